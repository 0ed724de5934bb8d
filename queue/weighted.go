package queue

import (
	"github.com/hupe1980/skygo/skyline"
	"github.com/hupe1980/skygo/weight"
)

// WeightedQueue is a skyline queue whose points carry pruning bitsets sized
// for the weight lattice of its dimensionality.
type WeightedQueue struct {
	pool     []skyline.WeightedNeighbor
	lattice  *weight.Lattice
	capacity int
	dims     int
	layers   int
}

// NewWeighted creates a WeightedQueue for dims-dimensional points.
// dims must be in [1, weight.MaxDimensions].
func NewWeighted(capacity, dims int) (*WeightedQueue, error) {
	if dims < 1 || dims > weight.MaxDimensions {
		return nil, &ErrInvalidDimension{Dimension: dims}
	}
	lattice, err := weight.New(dims)
	if err != nil {
		return nil, err
	}
	return &WeightedQueue{
		pool:     make([]skyline.WeightedNeighbor, 0, capacity),
		lattice:  lattice,
		capacity: capacity,
		dims:     dims,
	}, nil
}

// Dimensions returns the configured dimensionality.
func (q *WeightedQueue) Dimensions() int {
	return q.dims
}

// Lattice returns the weight lattice of the queue.
func (q *WeightedQueue) Lattice() *weight.Lattice {
	return q.lattice
}

// NumWeightCombinations returns the pruning bitset capacity of each point.
func (q *WeightedQueue) NumWeightCombinations() int {
	return q.lattice.Count()
}

// Init builds the layered pool from points via repeated skyline peeling.
// Every admitted point gets Flag=true and a fresh all-clear pruning bitset.
func (q *WeightedQueue) Init(points []skyline.Neighbor) error {
	layers, err := skyline.PeelLayers(points, q.dims)
	if err != nil {
		return err
	}
	numCombos := q.lattice.Count()
	for layerIdx, layer := range layers {
		for _, p := range layer {
			q.pool = append(q.pool, skyline.NewWeightedNeighbor(p.ID, p.Distances, numCombos, true, layerIdx))
		}
	}
	q.layers = len(layers)
	return nil
}

// Pool returns the layered pool. The returned slice is owned by the queue.
func (q *WeightedQueue) Pool() []skyline.WeightedNeighbor {
	return q.pool
}

// Size returns the number of points in the pool.
func (q *WeightedQueue) Size() int {
	return len(q.pool)
}

// Layers returns the number of dominance layers assigned by Init.
func (q *WeightedQueue) Layers() int {
	return q.layers
}

// Clear empties the pool and resets the layer count.
func (q *WeightedQueue) Clear() {
	q.pool = q.pool[:0]
	q.layers = 0
}
