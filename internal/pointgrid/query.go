package pointgrid

import (
	"iter"
	"math"
	"math/bits"
)

// bucketSource is the read side shared by Grid and ShardedGrid.
type bucketSource[T any] interface {
	BucketCount() int
	Keys() []Key
	bucketView(Key) []Record[T]
}

// QueryBox returns every record whose key lies in the inclusive cuboid
// [kmin, kmax]. Keys are visited with I outermost and K innermost; each bucket
// yields its records in insertion order.
//
// The result is lazy and restartable: every range over the returned sequence
// starts a fresh enumeration, and ranging never mutates the grid. Records
// are not filtered by their coordinates.
func (g *Grid[T]) QueryBox(kmin, kmax Key) (iter.Seq[Record[T]], error) {
	return queryBox[T](g, kmin, kmax)
}

// QueryBounds runs QueryBox over the cells covering the real-valued box
// [lo, hi]. The result is still cell-granular.
func (g *Grid[T]) QueryBounds(lo, hi Point) (iter.Seq[Record[T]], error) {
	kmin, kmax, err := g.params.KeyRange(lo, hi)
	if err != nil {
		return nil, err
	}
	return g.QueryBox(kmin, kmax)
}

// KeyRange converts the real-valued box [lo, hi] into the key cuboid that
// covers it. Flooring hi already includes its cell, so no padding is added.
func (p Params) KeyRange(lo, hi Point) (Key, Key, error) {
	kmin, err := ComputeKey(lo, p)
	if err != nil {
		return Key{}, Key{}, err
	}
	kmax, err := ComputeKey(hi, p)
	if err != nil {
		return Key{}, Key{}, err
	}
	return kmin, kmax, nil
}

func checkRange(kmin, kmax Key) error {
	switch {
	case kmin.I > kmax.I:
		return &RangeError{Axis: "i", Min: kmin.I, Max: kmax.I}
	case kmin.J > kmax.J:
		return &RangeError{Axis: "j", Min: kmin.J, Max: kmax.J}
	case kmin.K > kmax.K:
		return &RangeError{Axis: "k", Min: kmin.K, Max: kmax.K}
	}
	return nil
}

func queryBox[T any](src bucketSource[T], kmin, kmax Key) (iter.Seq[Record[T]], error) {
	if err := checkRange(kmin, kmax); err != nil {
		return nil, err
	}
	return func(yield func(Record[T]) bool) {
		// When the cuboid has more cells than the grid has buckets, walking
		// the sorted populated keys gives the same sequence for less work.
		if cells, ok := cellCount(kmin, kmax); ok && cells <= uint64(src.BucketCount()) {
			enumerateCells(src, kmin, kmax, yield)
			return
		}
		enumerateKeys(src, kmin, kmax, yield)
	}, nil
}

func enumerateCells[T any](src bucketSource[T], kmin, kmax Key, yield func(Record[T]) bool) {
	// Loops test for the last value before incrementing so a bound of
	// math.MaxInt64 cannot wrap.
	for i := kmin.I; ; i++ {
		for j := kmin.J; ; j++ {
			for k := kmin.K; ; k++ {
				for _, rec := range src.bucketView(Key{I: i, J: j, K: k}) {
					if !yield(rec) {
						return
					}
				}
				if k == kmax.K {
					break
				}
			}
			if j == kmax.J {
				break
			}
		}
		if i == kmax.I {
			break
		}
	}
}

func enumerateKeys[T any](src bucketSource[T], kmin, kmax Key, yield func(Record[T]) bool) {
	for _, key := range src.Keys() {
		if key.I < kmin.I || key.I > kmax.I ||
			key.J < kmin.J || key.J > kmax.J ||
			key.K < kmin.K || key.K > kmax.K {
			continue
		}
		for _, rec := range src.bucketView(key) {
			if !yield(rec) {
				return
			}
		}
	}
}

// cellCount returns the number of keys in [kmin, kmax], or false if it does
// not fit in a uint64.
func cellCount(kmin, kmax Key) (uint64, bool) {
	n := uint64(1)
	for _, span := range [...]uint64{
		uint64(kmax.I) - uint64(kmin.I),
		uint64(kmax.J) - uint64(kmin.J),
		uint64(kmax.K) - uint64(kmin.K),
	} {
		if span == math.MaxUint64 {
			return 0, false
		}
		hi, lo := bits.Mul64(n, span+1)
		if hi != 0 {
			return 0, false
		}
		n = lo
	}
	return n, true
}
