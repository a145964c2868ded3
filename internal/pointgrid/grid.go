package pointgrid

import (
	"slices"
	"sync"
)

// Grid stores points in insertion-ordered buckets keyed by voxel.
//
// A Grid is safe for concurrent use: inserts take the write lock, lookups and
// queries take the read lock. Buckets are never exposed directly; BucketOf
// returns a copy and QueryBox yields records by value.
type Grid[T any] struct {
	params Params

	mu      sync.RWMutex
	buckets map[Key][]Record[T]
	count   int
}

// New creates an empty grid with the given voxel edge length and origin.
func New[T any](voxelSize float64, offset Point) (*Grid[T], error) {
	params, err := NewParams(voxelSize, offset)
	if err != nil {
		return nil, err
	}
	return newGrid[T](params), nil
}

// NewFromParams creates an empty grid from previously validated params.
func NewFromParams[T any](params Params) (*Grid[T], error) {
	// Re-validate so a zero-value Params cannot slip through.
	p, err := NewParams(params.voxelSize, params.offset)
	if err != nil {
		return nil, err
	}
	return newGrid[T](p), nil
}

func newGrid[T any](params Params) *Grid[T] {
	return &Grid[T]{
		params:  params,
		buckets: make(map[Key][]Record[T]),
	}
}

// Params returns the grid geometry.
func (g *Grid[T]) Params() Params { return g.params }

// ComputeKey returns the voxel key of p under this grid's geometry.
func (g *Grid[T]) ComputeKey(p Point) (Key, error) {
	return ComputeKey(p, g.params)
}

// Insert appends p with a zero payload and returns its key.
func (g *Grid[T]) Insert(p Point) (Key, error) {
	var zero T
	return g.InsertWithPayload(p, zero)
}

// InsertWithPayload appends (p, payload) to the bucket for p's key, creating
// the bucket on first use.
func (g *Grid[T]) InsertWithPayload(p Point, payload T) (Key, error) {
	key, err := g.ComputeKey(p)
	if err != nil {
		return Key{}, err
	}

	g.mu.Lock()
	g.buckets[key] = append(g.buckets[key], Record[T]{Point: p, Payload: payload})
	g.count++
	g.mu.Unlock()

	return key, nil
}

// InsertBatch inserts records in order and returns their keys. Every point
// is validated before the grid is touched, so a batch is all-or-nothing.
// New buckets are sized from the batch and the write lock is taken once.
func (g *Grid[T]) InsertBatch(records []Record[T]) ([]Key, error) {
	keys, counts, err := keyBatch(g.params, records)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.appendLocked(records, keys, counts)
	return keys, nil
}

func (g *Grid[T]) appendLocked(records []Record[T], keys []Key, counts map[Key]int) {
	for key, n := range counts {
		if b, ok := g.buckets[key]; ok {
			g.buckets[key] = slices.Grow(b, n)
		} else {
			g.buckets[key] = make([]Record[T], 0, n)
		}
	}
	for i, rec := range records {
		g.buckets[keys[i]] = append(g.buckets[keys[i]], rec)
	}
	g.count += len(records)
}

// keyBatch computes the key of every record and the number of records per
// key. It fails on the first invalid point.
func keyBatch[T any](params Params, records []Record[T]) ([]Key, map[Key]int, error) {
	keys := make([]Key, len(records))
	counts := make(map[Key]int)
	for i, rec := range records {
		key, err := ComputeKey(rec.Point, params)
		if err != nil {
			return nil, nil, &BatchError{Index: i, Err: err}
		}
		keys[i] = key
		counts[key]++
	}
	return keys, counts, nil
}

// BucketOf returns a copy of the bucket for key in insertion order, or nil
// if the key was never populated.
func (g *Grid[T]) BucketOf(key Key) []Record[T] {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.buckets[key])
}

// Contains reports whether any point has been inserted under key.
func (g *Grid[T]) Contains(key Key) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.buckets[key]
	return ok
}

// PointCount returns the number of records across all buckets.
func (g *Grid[T]) PointCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.count
}

// BucketCount returns the number of populated voxels.
func (g *Grid[T]) BucketCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.buckets)
}

// Keys returns every populated key in query enumeration order.
func (g *Grid[T]) Keys() []Key {
	g.mu.RLock()
	keys := make([]Key, 0, len(g.buckets))
	for k := range g.buckets {
		keys = append(keys, k)
	}
	g.mu.RUnlock()

	slices.SortFunc(keys, compareKeys)
	return keys
}

// bucketView returns the live bucket slice for key. Buckets are append-only,
// so the returned prefix stays valid after the lock is released.
func (g *Grid[T]) bucketView(key Key) []Record[T] {
	g.mu.RLock()
	b := g.buckets[key]
	g.mu.RUnlock()
	return b[:len(b):len(b)]
}

func compareKeys(a, b Key) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}
