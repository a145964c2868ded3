package pointgrid

import (
	"fmt"
	"math"
)

// Bounds of float64 values that convert to int64 without overflow.
// -2^63 is exact; 2^63 is the first value past MaxInt64.
const (
	minKeyFloat = -9223372036854775808.0
	maxKeyFloat = 9223372036854775808.0
)

// Params fixes the voxel geometry of a grid. The zero value is not usable;
// construct with NewParams.
type Params struct {
	voxelSize float64
	offset    Point
}

// NewParams validates the voxel edge length and grid origin.
func NewParams(voxelSize float64, offset Point) (Params, error) {
	if math.IsNaN(voxelSize) || math.IsInf(voxelSize, 0) || voxelSize <= 0 {
		return Params{}, fmt.Errorf("%w: voxel size must be finite and > 0, got %v", ErrInvalidGridParameters, voxelSize)
	}
	if err := offset.Validate(); err != nil {
		return Params{}, fmt.Errorf("%w: offset: %v", ErrInvalidGridParameters, err)
	}
	return Params{voxelSize: voxelSize, offset: offset}, nil
}

// VoxelSize returns the edge length shared by all three axes.
func (p Params) VoxelSize() float64 { return p.voxelSize }

// Offset returns the world position of the corner of voxel (0,0,0).
func (p Params) Offset() Point { return p.offset }

func (p Params) valid() bool { return p.voxelSize > 0 }

// ComputeKey maps pt to its voxel: floor((pt - offset) / voxelSize) per axis.
// Values on a cell boundary belong to the cell on the positive side.
func ComputeKey(pt Point, params Params) (Key, error) {
	if !params.valid() {
		return Key{}, fmt.Errorf("%w: zero-value params", ErrInvalidGridParameters)
	}
	if err := pt.Validate(); err != nil {
		return Key{}, err
	}
	i, err := axisKey("x", pt.X, params.offset.X, params.voxelSize)
	if err != nil {
		return Key{}, err
	}
	j, err := axisKey("y", pt.Y, params.offset.Y, params.voxelSize)
	if err != nil {
		return Key{}, err
	}
	k, err := axisKey("z", pt.Z, params.offset.Z, params.voxelSize)
	if err != nil {
		return Key{}, err
	}
	return Key{I: i, J: j, K: k}, nil
}

func axisKey(axis string, v, origin, size float64) (int64, error) {
	f := math.Floor((v - origin) / size)
	if math.IsNaN(f) || f < minKeyFloat || f >= maxKeyFloat {
		return 0, &PointError{Axis: axis, Value: v}
	}
	return int64(f), nil
}
