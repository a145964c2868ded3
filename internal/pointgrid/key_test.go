package pointgrid

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParams(t *testing.T, size float64, offset Point) Params {
	t.Helper()
	p, err := NewParams(size, offset)
	require.NoError(t, err)
	return p
}

func TestComputeKey_Literal(t *testing.T) {
	params := mustParams(t, 12.0, Point{10, 12, 13})

	key, err := ComputeKey(Point{32, 44, 13}, params)
	require.NoError(t, err)
	assert.Equal(t, Key{I: 1, J: 2, K: 0}, key)
}

func TestComputeKey_FloorNotTruncate(t *testing.T) {
	params := mustParams(t, 1.0, Point{})

	tests := []struct {
		name string
		p    Point
		want Key
	}{
		{"origin", Point{0, 0, 0}, Key{0, 0, 0}},
		{"just below origin", Point{-0.1, -0.5, -0.999}, Key{-1, -1, -1}},
		{"exactly minus one", Point{-1, -1, -1}, Key{-1, -1, -1}},
		{"just past minus one", Point{-1.0001, 0, 0}, Key{-2, 0, 0}},
		{"positive boundary", Point{1, 2, 3}, Key{1, 2, 3}},
		{"inside positive cell", Point{1.999, 0.5, 2.5}, Key{1, 0, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeKey(tt.p, params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeKey_BoundaryBelongsToPositiveSide(t *testing.T) {
	params := mustParams(t, 2.5, Point{1, 1, 1})

	// 1 + 2*2.5 = 6 sits on the boundary between cells 1 and 2.
	key, err := ComputeKey(Point{6, 6, 6}, params)
	require.NoError(t, err)
	assert.Equal(t, Key{2, 2, 2}, key)
}

func TestComputeKey_Deterministic(t *testing.T) {
	params := mustParams(t, 0.3, Point{-4, 7, 0.25})
	points := []Point{{0, 0, 0}, {1e6, -1e6, 3.3}, {-0.15, 7.0001, 0.25}}

	for _, p := range points {
		first, err := ComputeKey(p, params)
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			again, err := ComputeKey(p, params)
			require.NoError(t, err)
			if again != first {
				t.Fatalf("key for %v changed: %v then %v", p, first, again)
			}
		}
	}
}

func TestComputeKey_MonotonicPerAxis(t *testing.T) {
	params := mustParams(t, 0.7, Point{3, -2, 1})

	prev := Key{I: math.MinInt64, J: math.MinInt64, K: math.MinInt64}
	for v := -20.0; v <= 20.0; v += 0.13 {
		kx, err := ComputeKey(Point{v, 0, 0}, params)
		require.NoError(t, err)
		ky, err := ComputeKey(Point{0, v, 0}, params)
		require.NoError(t, err)
		kz, err := ComputeKey(Point{0, 0, v}, params)
		require.NoError(t, err)

		if kx.I < prev.I || ky.J < prev.J || kz.K < prev.K {
			t.Fatalf("keys decreased at %v: x=%v y=%v z=%v prev=%v", v, kx, ky, kz, prev)
		}
		prev = Key{I: kx.I, J: ky.J, K: kz.K}
	}
}

func TestComputeKey_NonFinite(t *testing.T) {
	params := mustParams(t, 1.0, Point{})

	tests := []struct {
		name string
		p    Point
		axis string
	}{
		{"nan x", Point{math.NaN(), 0, 0}, "x"},
		{"inf y", Point{0, math.Inf(1), 0}, "y"},
		{"neg inf z", Point{0, 0, math.Inf(-1)}, "z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeKey(tt.p, params)
			require.ErrorIs(t, err, ErrInvalidPoint)

			var pe *PointError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.axis, pe.Axis)
		})
	}
}

func TestComputeKey_OutOfKeyRange(t *testing.T) {
	params := mustParams(t, 1e-300, Point{})

	_, err := ComputeKey(Point{1e10, 0, 0}, params)
	assert.ErrorIs(t, err, ErrInvalidPoint)
}

func TestComputeKey_ZeroParams(t *testing.T) {
	_, err := ComputeKey(Point{1, 2, 3}, Params{})
	assert.ErrorIs(t, err, ErrInvalidGridParameters)
}

func TestNewParams_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		size   float64
		offset Point
	}{
		{"zero size", 0, Point{}},
		{"negative size", -1, Point{}},
		{"nan size", math.NaN(), Point{}},
		{"inf size", math.Inf(1), Point{}},
		{"nan offset", 1, Point{0, math.NaN(), 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParams(tt.size, tt.offset)
			assert.ErrorIs(t, err, ErrInvalidGridParameters)
		})
	}
}

func TestKeyRange(t *testing.T) {
	params := mustParams(t, 10, Point{})

	kmin, kmax, err := params.KeyRange(Point{-5, 0, 15}, Point{25, 9.99, 30})
	require.NoError(t, err)
	assert.Equal(t, Key{-1, 0, 1}, kmin)
	assert.Equal(t, Key{2, 0, 3}, kmax)
}

func TestWithin(t *testing.T) {
	lo, hi := Point{0, 0, 0}, Point{1, 1, 1}
	assert.True(t, Within(Point{0, 0, 0}, lo, hi))
	assert.True(t, Within(Point{1, 1, 1}, lo, hi))
	assert.True(t, Within(Point{0.5, 0.2, 0.9}, lo, hi))
	assert.False(t, Within(Point{1.01, 0.5, 0.5}, lo, hi))
	assert.False(t, Within(Point{0.5, -0.01, 0.5}, lo, hi))
}

func TestKey_Less(t *testing.T) {
	assert.True(t, Key{0, 5, 5}.Less(Key{1, 0, 0}))
	assert.True(t, Key{1, 0, 5}.Less(Key{1, 1, 0}))
	assert.True(t, Key{1, 1, 0}.Less(Key{1, 1, 1}))
	assert.False(t, Key{1, 1, 1}.Less(Key{1, 1, 1}))
	assert.Equal(t, "(1,-2,3)", Key{1, -2, 3}.String())
}
