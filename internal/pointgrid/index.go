package pointgrid

import "iter"

// Index is the API shared by Grid and ShardedGrid.
type Index[T any] interface {
	Params() Params
	ComputeKey(p Point) (Key, error)
	Insert(p Point) (Key, error)
	InsertWithPayload(p Point, payload T) (Key, error)
	InsertBatch(records []Record[T]) ([]Key, error)
	BucketOf(key Key) []Record[T]
	Contains(key Key) bool
	PointCount() int
	BucketCount() int
	Keys() []Key
	QueryBox(kmin, kmax Key) (iter.Seq[Record[T]], error)
	QueryBounds(lo, hi Point) (iter.Seq[Record[T]], error)
}

var (
	_ Index[struct{}] = (*Grid[struct{}])(nil)
	_ Index[struct{}] = (*ShardedGrid[struct{}])(nil)
)
