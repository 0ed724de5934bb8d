package skyline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func points2D(vectors ...[2]float32) []Neighbor {
	ns := make([]Neighbor, len(vectors))
	for i, v := range vectors {
		ns[i] = Neighbor{ID: uint32(i + 1), Distances: []float32{v[0], v[1]}}
	}
	return ns
}

func TestDominates(t *testing.T) {
	assert.True(t, Dominates([]float32{1, 2}, []float32{2, 3}))
	assert.True(t, Dominates([]float32{1, 3}, []float32{2, 3}))
	assert.False(t, Dominates([]float32{2, 3}, []float32{1, 3}))
	assert.False(t, Dominates([]float32{1, 4}, []float32{2, 3}))

	// Irreflexive: equal vectors never dominate each other.
	assert.False(t, Dominates([]float32{1, 2}, []float32{1, 2}))

	// Unequal lengths never dominate.
	assert.False(t, Dominates([]float32{1}, []float32{1, 2}))
}

func TestExtract_Scenario(t *testing.T) {
	ns := points2D([2]float32{10, 20}, [2]float32{5, 30}, [2]float32{15, 10}, [2]float32{8, 15}, [2]float32{20, 25})

	frontier, remainder, err := Extract(ns, 2)
	require.NoError(t, err)

	frontierVecs := make(map[[2]float32]bool)
	for _, p := range frontier {
		frontierVecs[[2]float32{p.Distances[0], p.Distances[1]}] = true
	}

	assert.Len(t, frontier, 3)
	assert.True(t, frontierVecs[[2]float32{5, 30}])
	assert.True(t, frontierVecs[[2]float32{15, 10}])
	assert.True(t, frontierVecs[[2]float32{8, 15}])

	assert.Len(t, remainder, 2)

	// Frontier non-domination: no frontier point dominates another.
	for i, p := range frontier {
		for j, q := range frontier {
			if i == j {
				continue
			}
			assert.False(t, Dominates(p.Distances, q.Distances))
		}
	}

	// Remainder coverage: every remainder point is dominated by some
	// frontier point.
	for _, r := range remainder {
		dominated := false
		for _, f := range frontier {
			if Dominates(f.Distances, r.Distances) {
				dominated = true
				break
			}
		}
		assert.True(t, dominated, "remainder point %v not covered", r.Distances)
	}
}

func TestExtract_SinglePoint(t *testing.T) {
	ns := points2D([2]float32{1, 1})

	frontier, remainder, err := Extract(ns, 2)
	require.NoError(t, err)
	assert.Len(t, frontier, 1)
	assert.Empty(t, remainder)
}

func TestExtract_Empty(t *testing.T) {
	frontier, remainder, err := Extract(nil, 2)
	require.NoError(t, err)
	assert.Empty(t, frontier)
	assert.Empty(t, remainder)
}

func TestExtract_MixedDimensions(t *testing.T) {
	ns := []Neighbor{
		{ID: 1, Distances: []float32{1, 2}},
		{ID: 2, Distances: []float32{1, 2, 3}},
	}

	frontier, remainder, err := Extract(ns, 2)
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 2, dm.Expected)
	assert.Equal(t, 3, dm.Actual)
	assert.Nil(t, frontier)
	assert.Nil(t, remainder)
}

func TestExtract_EqualVectors(t *testing.T) {
	// Equal vectors with different ids are mutually non-dominating and
	// both end up on the frontier.
	ns := []Neighbor{
		{ID: 1, Distances: []float32{1, 2}},
		{ID: 2, Distances: []float32{1, 2}},
	}

	frontier, remainder, err := Extract(ns, 2)
	require.NoError(t, err)
	assert.Len(t, frontier, 2)
	assert.Empty(t, remainder)
}

func TestPeelLayers(t *testing.T) {
	ns := points2D(
		[2]float32{1, 5}, [2]float32{5, 1}, // layer 0
		[2]float32{2, 6}, [2]float32{6, 2}, // layer 1
		[2]float32{7, 7}, // layer 2
	)

	layers, err := PeelLayers(ns, 2)
	require.NoError(t, err)
	require.Len(t, layers, 3)
	assert.Len(t, layers[0], 2)
	assert.Len(t, layers[1], 2)
	assert.Len(t, layers[2], 1)

	for l, layer := range layers {
		for _, p := range layer {
			assert.Equal(t, l, p.Layer)
		}
	}

	// Layer monotonicity: no point in a later layer dominates a point in
	// an earlier layer.
	for i := 0; i < len(layers); i++ {
		for j := i + 1; j < len(layers); j++ {
			for _, early := range layers[i] {
				for _, late := range layers[j] {
					assert.False(t, Dominates(late.Distances, early.Distances))
				}
			}
		}
	}
}

func TestPeelLayers_InputNotModified(t *testing.T) {
	ns := points2D([2]float32{1, 5}, [2]float32{2, 6})

	_, err := PeelLayers(ns, 2)
	require.NoError(t, err)
	for _, p := range ns {
		assert.Equal(t, 0, p.Layer)
	}
}

func TestNeighbor_Less(t *testing.T) {
	a := Neighbor{Distances: []float32{1, 5}}
	b := Neighbor{Distances: []float32{1, 6}}
	c := Neighbor{Distances: []float32{2, 0}}

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))
	assert.False(t, a.Less(a))
}

func TestWeightedNeighbor_PruningRoundTrip(t *testing.T) {
	n := NewWeightedNeighbor(1, []float32{1, 2}, 11, true, 0)

	require.NoError(t, n.SetPruned(3, true))
	pruned, err := n.Pruned(3)
	require.NoError(t, err)
	assert.True(t, pruned)

	// All other indices keep their prior value.
	for i := 0; i < 11; i++ {
		if i == 3 {
			continue
		}
		v, err := n.Pruned(i)
		require.NoError(t, err)
		assert.False(t, v)
	}

	require.NoError(t, n.SetPruned(3, false))
	pruned, err = n.Pruned(3)
	require.NoError(t, err)
	assert.False(t, pruned)

	// Bounds checks.
	assert.Error(t, n.SetPruned(11, true))
	_, err = n.Pruned(-1)
	assert.Error(t, err)
}
