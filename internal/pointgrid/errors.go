package pointgrid

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGridParameters is returned when a grid is constructed with a
	// non-positive or non-finite voxel size, or a non-finite offset.
	ErrInvalidGridParameters = errors.New("invalid grid parameters")
	// ErrInvalidPoint is returned when a coordinate is NaN, infinite, or
	// maps outside the representable key range.
	ErrInvalidPoint = errors.New("invalid point")
	// ErrInvalidRange is returned when a query minimum exceeds its maximum
	// on any axis.
	ErrInvalidRange = errors.New("invalid range")
)

// PointError describes which coordinate of a point was rejected.
type PointError struct {
	Axis  string
	Value float64
}

func (e *PointError) Error() string {
	return fmt.Sprintf("invalid point: %s coordinate %v", e.Axis, e.Value)
}

func (e *PointError) Unwrap() error { return ErrInvalidPoint }

// RangeError describes the first axis on which a key range is inverted.
type RangeError struct {
	Axis     string
	Min, Max int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range: %s min %d exceeds max %d", e.Axis, e.Min, e.Max)
}

func (e *RangeError) Unwrap() error { return ErrInvalidRange }

// BatchError reports the position of the record that rejected a batch.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch record %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
