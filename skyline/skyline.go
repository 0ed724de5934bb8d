// Package skyline implements Pareto dominance and skyline extraction over
// multi-metric candidate points.
package skyline

import (
	"fmt"
	"sort"

	"github.com/hupe1980/skygo/bitset"
)

// ErrDimensionMismatch indicates a distance vector whose length does not
// match the configured dimensionality.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch.
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Neighbor is a candidate point: an id plus one distance value per metric.
type Neighbor struct {
	// ID is the identifier of the candidate.
	ID uint32

	// Distances holds one non-negative distance per metric dimension.
	Distances []float32

	// Flag marks candidates of interest to the caller (e.g. newly inserted).
	Flag bool

	// Layer is the dominance layer assigned during peeling.
	Layer int
}

// Dimension returns the length of the distance vector.
func (n Neighbor) Dimension() int {
	return len(n.Distances)
}

// Less reports whether n orders before other in lexicographic distance order.
func (n Neighbor) Less(other Neighbor) bool {
	for i := 0; i < len(n.Distances) && i < len(other.Distances); i++ {
		if n.Distances[i] != other.Distances[i] {
			return n.Distances[i] < other.Distances[i]
		}
	}
	return len(n.Distances) < len(other.Distances)
}

// Equal reports whether n and other have the same id and distance vector.
func (n Neighbor) Equal(other Neighbor) bool {
	if n.ID != other.ID || len(n.Distances) != len(other.Distances) {
		return false
	}
	for i := range n.Distances {
		if n.Distances[i] != other.Distances[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the neighbor.
func (n Neighbor) Clone() Neighbor {
	distances := make([]float32, len(n.Distances))
	copy(distances, n.Distances)
	return Neighbor{ID: n.ID, Distances: distances, Flag: n.Flag, Layer: n.Layer}
}

// WeightedNeighbor is a Neighbor carrying a pruning bitset with one bit per
// weight combination. Bit i set means the point is prunable under the
// combination with index i.
type WeightedNeighbor struct {
	Neighbor

	// Pruning records prunability per weight-combination index.
	Pruning *bitset.Fixed
}

// NewWeightedNeighbor creates a WeightedNeighbor with an all-clear pruning
// bitset sized for numCombinations weight combinations.
func NewWeightedNeighbor(id uint32, distances []float32, numCombinations int, flag bool, layer int) WeightedNeighbor {
	d := make([]float32, len(distances))
	copy(d, distances)
	return WeightedNeighbor{
		Neighbor: Neighbor{ID: id, Distances: d, Flag: flag, Layer: layer},
		Pruning:  bitset.New(numCombinations),
	}
}

// SetPruned sets the pruning state for the given weight-combination index.
func (n *WeightedNeighbor) SetPruned(weightIdx int, pruned bool) error {
	return n.Pruning.SetTo(weightIdx, pruned)
}

// Pruned returns the pruning state for the given weight-combination index.
func (n *WeightedNeighbor) Pruned(weightIdx int) (bool, error) {
	return n.Pruning.Test(weightIdx)
}

// Clone returns a deep copy including the pruning bitset.
func (n WeightedNeighbor) Clone() WeightedNeighbor {
	return WeightedNeighbor{
		Neighbor: n.Neighbor.Clone(),
		Pruning:  n.Pruning.Clone(),
	}
}

// Dominates reports whether a Pareto-dominates b: a is no worse in every
// dimension and strictly better in at least one. Distances are costs, so
// smaller is better. The relation is a strict partial order: irreflexive,
// transitive and asymmetric. Vectors of unequal length never dominate.
func Dominates(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	strict := false
	for i := range a {
		if a[i] > b[i] {
			return false
		}
		if a[i] < b[i] {
			strict = true
		}
	}
	return strict
}

// Extract partitions points into the Pareto frontier and the remainder.
//
// A point is on the frontier iff no other point in the input dominates it.
// Two points with equal distance vectors are mutually non-dominating and
// both land on the frontier. Input order is preserved within each output.
//
// All points must have dims-length distance vectors; a violation returns
// *ErrDimensionMismatch with no partial output. Empty input yields empty
// outputs and no error. Extract is pure: the input is not modified.
//
// Cost is Θ(n²·d) comparisons.
func Extract(points []Neighbor, dims int) (frontier, remainder []Neighbor, err error) {
	if len(points) == 0 {
		return nil, nil, nil
	}

	for _, p := range points {
		if len(p.Distances) != dims {
			return nil, nil, &ErrDimensionMismatch{Expected: dims, Actual: len(p.Distances)}
		}
	}

	for i, p := range points {
		onFrontier := true
		for j, q := range points {
			if i == j || p.ID == q.ID {
				continue
			}
			if Dominates(q.Distances, p.Distances) {
				onFrontier = false
				break
			}
		}
		if onFrontier {
			frontier = append(frontier, p)
		} else {
			remainder = append(remainder, p)
		}
	}

	return frontier, remainder, nil
}

// PeelLayers repeatedly extracts the frontier from the shrinking remainder,
// assigning layer 0, 1, 2, ... to each successive frontier. The returned
// slices hold copies with Layer set; the input is not modified.
func PeelLayers(points []Neighbor, dims int) ([][]Neighbor, error) {
	var layers [][]Neighbor

	remaining := points
	for layer := 0; len(remaining) > 0; layer++ {
		frontier, remainder, err := Extract(remaining, dims)
		if err != nil {
			return nil, err
		}
		out := make([]Neighbor, len(frontier))
		for i, p := range frontier {
			out[i] = p.Clone()
			out[i].Layer = layer
		}
		layers = append(layers, out)
		remaining = remainder
	}

	return layers, nil
}

// Sort orders points in place by lexicographic distance order.
func Sort(points []Neighbor) {
	sort.Slice(points, func(i, j int) bool {
		return points[i].Less(points[j])
	})
}
