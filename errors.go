package skygo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/skygo/skyline"
	"github.com/hupe1980/skygo/weight"
)

var (
	// ErrPoolNotEmpty is returned when the dimensionality is changed while
	// the pool or outlier set still holds points. Clear first.
	ErrPoolNotEmpty = errors.New("pool is not empty: clear before changing dimensions")

	// ErrInvalidSnapshot is returned when snapshot bytes cannot be decoded.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// ErrDimensionMismatch indicates a distance-vector/configuration
// dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrInvalidDimension indicates an invalid configured dimensionality.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidDimension struct {
	Dimension int
	cause     error
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

func (e *ErrInvalidDimension) Unwrap() error { return e.cause }

// ErrPositionOutOfRange indicates a pool position outside the valid range.
type ErrPositionOutOfRange struct {
	Position int
	Size     int
}

func (e *ErrPositionOutOfRange) Error() string {
	return fmt.Sprintf("pool position out of range: %d (size %d)", e.Position, e.Size)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Dimension normalization.
	var dm *skyline.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	var id *weight.ErrInvalidDimension
	if errors.As(err, &id) {
		return &ErrInvalidDimension{Dimension: id.Dimension, cause: err}
	}

	return err
}
