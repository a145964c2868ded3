package pointgrid

import (
	"math"
	"slices"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSharded_Invalid(t *testing.T) {
	_, err := NewSharded[struct{}](1.0, Point{}, 0)
	assert.ErrorIs(t, err, ErrInvalidGridParameters)

	_, err = NewSharded[struct{}](-1.0, Point{}, 4)
	assert.ErrorIs(t, err, ErrInvalidGridParameters)
}

func TestShardedGrid_MatchesGrid(t *testing.T) {
	g := rangeFixtureGrid(t)
	s, err := NewSharded[struct{}](15.0, Point{10, 22, 19}, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, s.ShardCount())

	for _, p := range rangeFixture {
		want, err := g.ComputeKey(p)
		require.NoError(t, err)
		got, err := s.Insert(p)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	assert.Equal(t, g.PointCount(), s.PointCount())
	assert.Equal(t, g.BucketCount(), s.BucketCount())
	if diff := cmp.Diff(g.Keys(), s.Keys()); diff != "" {
		t.Errorf("keys differ (-grid +sharded):\n%s", diff)
	}

	for _, box := range [][2]Key{
		{{2, 2, 2}, {30, 30, 30}},
		{{-1 << 20, -1 << 20, -1 << 20}, {1 << 20, 1 << 20, 1 << 20}},
	} {
		want := points[struct{}](t, g, box[0], box[1])
		got := points[struct{}](t, s, box[0], box[1])
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("query %v differs (-grid +sharded):\n%s", box, diff)
		}
	}
}

func TestShardedGrid_InsertBatchPreservesOrder(t *testing.T) {
	s, err := NewSharded[int](1.0, Point{}, 3)
	require.NoError(t, err)

	records := make([]Record[int], 300)
	for i := range records {
		records[i] = Record[int]{Point: Point{float64(i % 4), float64(i % 3), 0.5}, Payload: i}
	}
	keys, err := s.InsertBatch(records)
	require.NoError(t, err)
	require.Len(t, keys, len(records))
	assert.Equal(t, 300, s.PointCount())

	for _, key := range s.Keys() {
		bucket := s.BucketOf(key)
		require.NotEmpty(t, bucket)
		payloads := make([]int, len(bucket))
		for i, rec := range bucket {
			payloads[i] = rec.Payload
		}
		assert.True(t, slices.IsSorted(payloads), "bucket %v out of order: %v", key, payloads)
	}
}

func TestShardedGrid_InsertBatchAllOrNothing(t *testing.T) {
	s, err := NewSharded[struct{}](1.0, Point{}, 2)
	require.NoError(t, err)

	_, err = s.InsertBatch([]Record[struct{}]{
		{Point: Point{0, 0, 0}},
		{Point: Point{math.NaN(), 0, 0}},
	})
	assert.ErrorIs(t, err, ErrInvalidPoint)
	assert.Equal(t, 0, s.PointCount())
}

func TestShardedGrid_ConcurrentInsert(t *testing.T) {
	s, err := NewSharded[int](1.0, Point{}, 8)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			batch := make([]Record[int], 100)
			for i := range batch {
				batch[i] = Record[int]{Point: Point{float64(i), float64(w), 0}, Payload: i}
			}
			if _, err := s.InsertBatch(batch); err != nil {
				t.Errorf("batch: %v", err)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 800, s.PointCount())
	assert.Equal(t, 800, s.BucketCount())
	assert.True(t, s.Contains(Key{99, 7, 0}))
	assert.False(t, s.Contains(Key{100, 7, 0}))
}

func TestShardedGrid_QueryBounds(t *testing.T) {
	s, err := NewSharded[string](10.0, Point{}, 5)
	require.NoError(t, err)
	_, err = s.InsertWithPayload(Point{9.5, 1, 1}, "edge")
	require.NoError(t, err)

	seq, err := s.QueryBounds(Point{0, 0, 0}, Point{5, 5, 5})
	require.NoError(t, err)
	got := slices.Collect(seq)
	require.Len(t, got, 1)
	assert.Equal(t, "edge", got[0].Payload)

	_, err = s.QueryBox(Key{1, 0, 0}, Key{0, 0, 0})
	assert.ErrorIs(t, err, ErrInvalidRange)
}
