package pointgrid

import (
	"encoding/binary"
	"fmt"
	"iter"
	"slices"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
)

// ShardedGrid spreads buckets over independently locked Grid shards chosen
// by hash(key) mod N, so inserts that land in different shards do not
// contend. Per-bucket insertion order and query order match Grid.
type ShardedGrid[T any] struct {
	params Params
	shards []*Grid[T]
}

// NewSharded creates an empty grid split into n shards.
func NewSharded[T any](voxelSize float64, offset Point, n int) (*ShardedGrid[T], error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: shard count must be >= 1, got %d", ErrInvalidGridParameters, n)
	}
	params, err := NewParams(voxelSize, offset)
	if err != nil {
		return nil, err
	}
	s := &ShardedGrid[T]{
		params: params,
		shards: make([]*Grid[T], n),
	}
	for i := range s.shards {
		s.shards[i] = newGrid[T](params)
	}
	return s, nil
}

// Params returns the grid geometry.
func (s *ShardedGrid[T]) Params() Params { return s.params }

// ShardCount returns the number of shards.
func (s *ShardedGrid[T]) ShardCount() int { return len(s.shards) }

func (s *ShardedGrid[T]) shardIndex(key Key) int {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(key.I))
	binary.LittleEndian.PutUint64(buf[8:], uint64(key.J))
	binary.LittleEndian.PutUint64(buf[16:], uint64(key.K))
	return int(xxhash.Sum64(buf[:]) % uint64(len(s.shards)))
}

func (s *ShardedGrid[T]) shardFor(key Key) *Grid[T] {
	return s.shards[s.shardIndex(key)]
}

// ComputeKey returns the voxel key of p under this grid's geometry.
func (s *ShardedGrid[T]) ComputeKey(p Point) (Key, error) {
	return ComputeKey(p, s.params)
}

// Insert appends p with a zero payload and returns its key.
func (s *ShardedGrid[T]) Insert(p Point) (Key, error) {
	var zero T
	return s.InsertWithPayload(p, zero)
}

// InsertWithPayload appends (p, payload) to the owning shard.
func (s *ShardedGrid[T]) InsertWithPayload(p Point, payload T) (Key, error) {
	key, err := s.ComputeKey(p)
	if err != nil {
		return Key{}, err
	}
	shard := s.shardFor(key)
	shard.mu.Lock()
	shard.buckets[key] = append(shard.buckets[key], Record[T]{Point: p, Payload: payload})
	shard.count++
	shard.mu.Unlock()
	return key, nil
}

// InsertBatch validates the whole batch, partitions it by shard, and fills
// the shards in parallel. Each shard receives its records in input order.
func (s *ShardedGrid[T]) InsertBatch(records []Record[T]) ([]Key, error) {
	keys, _, err := keyBatch(s.params, records)
	if err != nil {
		return nil, err
	}

	type part struct {
		records []Record[T]
		keys    []Key
		counts  map[Key]int
	}
	parts := make([]part, len(s.shards))
	for i, rec := range records {
		p := &parts[s.shardIndex(keys[i])]
		if p.counts == nil {
			p.counts = make(map[Key]int)
		}
		p.records = append(p.records, rec)
		p.keys = append(p.keys, keys[i])
		p.counts[keys[i]]++
	}

	var g errgroup.Group
	for i := range parts {
		if len(parts[i].records) == 0 {
			continue
		}
		shard, p := s.shards[i], parts[i]
		g.Go(func() error {
			shard.mu.Lock()
			defer shard.mu.Unlock()
			shard.appendLocked(p.records, p.keys, p.counts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return keys, nil
}

// BucketOf returns a copy of the bucket for key, or nil if absent.
func (s *ShardedGrid[T]) BucketOf(key Key) []Record[T] {
	return s.shardFor(key).BucketOf(key)
}

// Contains reports whether any point has been inserted under key.
func (s *ShardedGrid[T]) Contains(key Key) bool {
	return s.shardFor(key).Contains(key)
}

// PointCount returns the number of records across all shards.
func (s *ShardedGrid[T]) PointCount() int {
	n := 0
	for _, shard := range s.shards {
		n += shard.PointCount()
	}
	return n
}

// BucketCount returns the number of populated voxels across all shards.
func (s *ShardedGrid[T]) BucketCount() int {
	n := 0
	for _, shard := range s.shards {
		n += shard.BucketCount()
	}
	return n
}

// Keys returns every populated key in query enumeration order.
func (s *ShardedGrid[T]) Keys() []Key {
	var keys []Key
	for _, shard := range s.shards {
		keys = append(keys, shard.Keys()...)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

func (s *ShardedGrid[T]) bucketView(key Key) []Record[T] {
	return s.shardFor(key).bucketView(key)
}

// QueryBox behaves exactly like Grid.QueryBox.
func (s *ShardedGrid[T]) QueryBox(kmin, kmax Key) (iter.Seq[Record[T]], error) {
	return queryBox[T](s, kmin, kmax)
}

// QueryBounds behaves exactly like Grid.QueryBounds.
func (s *ShardedGrid[T]) QueryBounds(lo, hi Point) (iter.Seq[Record[T]], error) {
	kmin, kmax, err := s.params.KeyRange(lo, hi)
	if err != nil {
		return nil, err
	}
	return s.QueryBox(kmin, kmax)
}
