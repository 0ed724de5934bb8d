// Package weight enumerates discretized convex weight combinations.
//
// A combination assigns each distance dimension a weight that is a multiple
// of 0.1 in [0, 1], with all weights summing to 1. The set of combinations
// for a dimensionality is enumerated once and frozen; every combination has
// a stable index used as a bit position in pruning bitsets. The index is an
// artifact of generation order, not a sort key.
package weight

import (
	"fmt"
	"math"
)

const (
	// Step is the weight discretization step.
	Step = 0.1

	// stepsPerUnit is the number of discretization steps in the unit budget.
	stepsPerUnit = 10

	// MaxDimensions is the largest supported dimensionality.
	MaxDimensions = 8

	// tolerance absorbs floating round-trip error in component comparisons.
	tolerance = 0.001
)

// ErrInvalidDimension indicates a dimensionality outside the supported range.
type ErrInvalidDimension struct {
	Dimension int
}

// Error returns the error message for an invalid dimensionality.
func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d (supported range [0, %d])", e.Dimension, MaxDimensions)
}

// Lattice holds all weight combinations for a fixed dimensionality.
// A Lattice is immutable after construction and safe for concurrent reads.
type Lattice struct {
	dims   int
	combos [][]float32
}

// New enumerates the lattice for the given dimensionality.
//
// dims = 0 yields an empty lattice; dims = 1 yields the single combination
// {1.0}. The combination count equals C(10+dims-1, dims-1).
func New(dims int) (*Lattice, error) {
	if dims < 0 || dims > MaxDimensions {
		return nil, &ErrInvalidDimension{Dimension: dims}
	}
	return &Lattice{
		dims:   dims,
		combos: enumerate(dims),
	}, nil
}

// enumerate generates all compositions of the unit budget into dims parts
// with an explicit stack. Working in integer tenths keeps the arithmetic
// exact; values are converted to float32 multiples of 0.1 at the leaves.
func enumerate(dims int) [][]float32 {
	if dims == 0 {
		return nil
	}
	if dims == 1 {
		return [][]float32{{1.0}}
	}

	var combos [][]float32
	seen := make(map[uint64]struct{})

	type frame struct {
		dim       int
		remaining int
		next      int
	}

	tenths := make([]int, dims)
	stack := make([]frame, 1, dims)
	stack[0] = frame{dim: 0, remaining: stepsPerUnit}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if top.dim == dims-1 {
			// Last dimension takes the full remaining budget.
			tenths[top.dim] = top.remaining
			if key := packKey(tenths); !dupe(seen, key) {
				combos = append(combos, toWeights(tenths))
			}
			stack = stack[:len(stack)-1]
			continue
		}

		if top.next > top.remaining {
			stack = stack[:len(stack)-1]
			continue
		}

		tenths[top.dim] = top.next
		child := frame{dim: top.dim + 1, remaining: top.remaining - top.next}
		top.next++
		stack = append(stack, child)
	}

	return combos
}

func packKey(tenths []int) uint64 {
	key := uint64(0)
	for _, t := range tenths {
		key = key*(stepsPerUnit+1) + uint64(t)
	}
	return key
}

func dupe(seen map[uint64]struct{}, key uint64) bool {
	if _, ok := seen[key]; ok {
		return true
	}
	seen[key] = struct{}{}
	return false
}

func toWeights(tenths []int) []float32 {
	ws := make([]float32, len(tenths))
	for i, t := range tenths {
		ws[i] = float32(t) / stepsPerUnit
	}
	return ws
}

// Dimensions returns the dimensionality of the lattice.
func (l *Lattice) Dimensions() int {
	return l.dims
}

// Count returns the number of weight combinations.
func (l *Lattice) Count() int {
	return len(l.combos)
}

// At returns a copy of the combination at index i.
func (l *Lattice) At(i int) ([]float32, error) {
	if i < 0 || i >= len(l.combos) {
		return nil, fmt.Errorf("combination index out of range: %d (count %d)", i, len(l.combos))
	}
	ws := make([]float32, l.dims)
	copy(ws, l.combos[i])
	return ws, nil
}

// Combinations returns a deep copy of all combinations in index order.
func (l *Lattice) Combinations() [][]float32 {
	out := make([][]float32, len(l.combos))
	for i, combo := range l.combos {
		ws := make([]float32, len(combo))
		copy(ws, combo)
		out[i] = ws
	}
	return out
}

// IndexOf returns the stable index of the combination matching weights,
// after rounding each component to the nearest 0.1. The second return is
// false if no combination matches within tolerance; this can happen for
// weights that survived a floating round trip and is not an error.
func (l *Lattice) IndexOf(weights []float32) (int, bool) {
	if len(weights) != l.dims {
		return -1, false
	}

	rounded := make([]float32, len(weights))
	for i, w := range weights {
		rounded[i] = float32(math.Round(float64(w)*stepsPerUnit) / stepsPerUnit)
	}

	for i, combo := range l.combos {
		match := true
		for j := range combo {
			if math.Abs(float64(combo[j]-rounded[j])) > tolerance {
				match = false
				break
			}
		}
		if match {
			return i, true
		}
	}

	return -1, false
}
