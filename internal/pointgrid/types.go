package pointgrid

import (
	"fmt"
	"math"
)

// Point is a position in world coordinates.
type Point struct {
	X, Y, Z float64
}

// Validate reports a *PointError for the first NaN or infinite coordinate.
func (p Point) Validate() error {
	for _, c := range [...]struct {
		axis string
		v    float64
	}{{"x", p.X}, {"y", p.Y}, {"z", p.Z}} {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) {
			return &PointError{Axis: c.axis, Value: c.v}
		}
	}
	return nil
}

// Within reports whether p lies inside the closed box [lo, hi] on every axis.
// Grid queries never apply this test; it is the secondary filter callers run
// over broad-phase results when they need exact geometry.
func Within(p, lo, hi Point) bool {
	return p.X >= lo.X && p.X <= hi.X &&
		p.Y >= lo.Y && p.Y <= hi.Y &&
		p.Z >= lo.Z && p.Z <= hi.Z
}

// Key identifies one voxel of the grid.
type Key struct {
	I, J, K int64
}

func (k Key) String() string {
	return fmt.Sprintf("(%d,%d,%d)", k.I, k.J, k.K)
}

// Less orders keys by I, then J, then K. This is the query enumeration order.
func (k Key) Less(o Key) bool {
	if k.I != o.I {
		return k.I < o.I
	}
	if k.J != o.J {
		return k.J < o.J
	}
	return k.K < o.K
}

// Record is a point stored in a bucket together with its caller payload.
type Record[T any] struct {
	Point   Point
	Payload T
}
