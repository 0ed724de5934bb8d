// Package queue provides lightweight, single-owner skyline queues.
//
// Unlike the pools in the root package, queues have no locking and no
// outlier machinery; they must not be shared across goroutines without
// external synchronization.
package queue

import (
	"errors"
	"fmt"

	"github.com/hupe1980/skygo/skyline"
)

// ErrRequires2D is returned when a 2D-only operation is invoked at another
// dimensionality.
var ErrRequires2D = errors.New("operation requires 2-dimensional points")

// ErrNotEmpty is returned when the dimensionality is changed while the
// queue still holds points.
var ErrNotEmpty = errors.New("queue is not empty: clear before changing dimensions")

// ErrInvalidDimension indicates an invalid configured dimensionality.
type ErrInvalidDimension struct {
	Dimension int
}

// Error returns the error message for an invalid dimensionality.
func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// Queue organizes candidate points into dominance layers in one shot.
type Queue struct {
	pool     []skyline.Neighbor
	capacity int
	dims     int
	layers   int
}

// New creates a Queue for dims-dimensional points, bounded by capacity
// during UpdateNeighbor.
func New(capacity, dims int) (*Queue, error) {
	if dims < 1 {
		return nil, &ErrInvalidDimension{Dimension: dims}
	}
	return &Queue{
		pool:     make([]skyline.Neighbor, 0, capacity),
		capacity: capacity,
		dims:     dims,
	}, nil
}

// Dimensions returns the configured dimensionality.
func (q *Queue) Dimensions() int {
	return q.dims
}

// SetDimensions changes the dimensionality. The queue must be empty.
func (q *Queue) SetDimensions(dims int) error {
	if dims < 1 {
		return &ErrInvalidDimension{Dimension: dims}
	}
	if len(q.pool) > 0 {
		return ErrNotEmpty
	}
	q.dims = dims
	return nil
}

// Init builds the layered pool from points via repeated skyline peeling.
// All admitted points get Flag=true. There is no capacity bound here.
func (q *Queue) Init(points []skyline.Neighbor) error {
	layers, err := skyline.PeelLayers(points, q.dims)
	if err != nil {
		return err
	}
	for _, layer := range layers {
		for i := range layer {
			layer[i].Flag = true
		}
		q.pool = append(q.pool, layer...)
	}
	q.layers = len(layers)
	return nil
}

// Push appends a point to the pool without re-layering. The caller is
// responsible for calling UpdateNeighbor afterwards.
func (q *Queue) Push(n skyline.Neighbor) error {
	if len(n.Distances) != q.dims {
		return &skyline.ErrDimensionMismatch{Expected: q.dims, Actual: len(n.Distances)}
	}
	q.pool = append(q.pool, n.Clone())
	return nil
}

// UpdateNeighbor re-layers the current pool, sorted lexicographically,
// stopping once the pool reaches capacity. A layer that has started being
// admitted is admitted in full, so the bound is soft.
//
// It returns the pool position at which the first flagged point was
// admitted, or -1 if no flagged point was admitted. Callers use this to
// track the resulting rank of one distinguished point.
func (q *Queue) UpdateNeighbor() (int, error) {
	candidates := q.pool
	q.pool = make([]skyline.Neighbor, 0, q.capacity)

	skyline.Sort(candidates)

	position := -1
	layer := 0
	for len(q.pool) < q.capacity && len(candidates) > 0 {
		frontier, remainder, err := skyline.Extract(candidates, q.dims)
		if err != nil {
			q.pool = candidates // restore: all-or-nothing
			return -1, err
		}
		candidates = remainder

		for _, p := range frontier {
			if position < 0 && p.Flag {
				position = len(q.pool)
			}
			admitted := p.Clone()
			admitted.Layer = layer
			q.pool = append(q.pool, admitted)
		}
		layer++
	}

	q.layers = layer
	return position, nil
}

// cross computes the 2D cross product used by the convex hull turn test.
func cross(o, a, b skyline.Neighbor) float32 {
	return (a.Distances[1]-o.Distances[1])*(b.Distances[0]-o.Distances[0]) -
		(a.Distances[0]-o.Distances[0])*(b.Distances[1]-o.Distances[1])
}

// FindConvexHull builds a monotone hull over points in their given order
// (callers pass points sorted by the first distance). Points popped off the
// hull are returned in remainder. Only valid for 2-dimensional queues.
func (q *Queue) FindConvexHull(points []skyline.Neighbor) (hull, remainder []skyline.Neighbor, err error) {
	if q.dims != 2 {
		return nil, nil, ErrRequires2D
	}
	for _, p := range points {
		if len(p.Distances) != 2 {
			return nil, nil, &skyline.ErrDimensionMismatch{Expected: 2, Actual: len(p.Distances)}
		}
	}

	for _, p := range points {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			remainder = append(remainder, hull[len(hull)-1])
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	return hull, remainder, nil
}

// Pool returns the layered pool. The returned slice is owned by the queue.
func (q *Queue) Pool() []skyline.Neighbor {
	return q.pool
}

// Size returns the number of points in the pool.
func (q *Queue) Size() int {
	return len(q.pool)
}

// Layers returns the number of dominance layers assigned by the last
// Init or UpdateNeighbor.
func (q *Queue) Layers() int {
	return q.layers
}

// Clear empties the pool and resets the layer count.
func (q *Queue) Clear() {
	q.pool = q.pool[:0]
	q.layers = 0
}
