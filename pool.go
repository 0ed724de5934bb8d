package skygo

import (
	"sync"
	"time"

	"github.com/hupe1980/skygo/skyline"
)

// MaxDimensions is the largest dimensionality supported by the weighted
// variant. The plain Pool only requires dims >= 1.
const MaxDimensions = 8

// Pool maintains a layered Pareto-frontier decomposition of candidate
// points. All mutating operations are serialized behind one lock; reads
// take the same lock and return copies.
type Pool struct {
	mu            sync.Mutex
	pool          []skyline.Neighbor
	outliers      []skyline.Neighbor
	capacity      int
	neighborCount int
	quality       int
	dims          int
	layers        int
	logger        *Logger
	metrics       MetricsCollector
	compression   Compression
}

// New creates a Pool.
//
// capacity bounds the pool size after an Update pass (soft bound: a layer
// that has started being admitted is admitted in full). neighborCount and
// quality are tuning parameters consumed by callers building graph indexes
// on top of the pool. dims must be at least 1.
func New(capacity, neighborCount, quality, dims int, optFns ...Option) (*Pool, error) {
	if dims < 1 {
		return nil, &ErrInvalidDimension{Dimension: dims}
	}

	o := applyOptions(optFns)

	return &Pool{
		pool:          make([]skyline.Neighbor, 0, capacity),
		capacity:      capacity,
		neighborCount: neighborCount,
		quality:       quality,
		dims:          dims,
		logger:        o.logger,
		metrics:       o.metricsCollector,
		compression:   o.compression,
	}, nil
}

// Init consumes points, peeling skyline layers off the shrinking remainder
// and assigning layer 0, 1, 2, ... to each successive frontier. All
// admitted points get Flag=true. The final pool is sorted lexicographically
// by distance vector. The input slice is not modified.
func (p *Pool) Init(points []skyline.Neighbor) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()

	layers, err := skyline.PeelLayers(points, p.dims)
	if err != nil {
		err = translateError(err)
		p.metrics.RecordInit(len(points), time.Since(start), err)
		p.logger.LogInit(len(points), 0, err)
		return err
	}

	for _, layer := range layers {
		for i := range layer {
			layer[i].Flag = true
		}
		p.pool = append(p.pool, layer...)
	}
	p.layers = len(layers)
	skyline.Sort(p.pool)

	p.metrics.RecordInit(len(points), time.Since(start), nil)
	p.logger.LogInit(len(points), p.layers, nil)
	return nil
}

// Update re-layers the pool. The current pool contents plus any pending
// outliers become a fresh candidate set, sorted lexicographically, and
// layers are peeled off until the candidates are exhausted or the pool
// reaches capacity. Later layers are dropped: this is a soft capacity
// bound, not a precise top-M selection.
func (p *Pool) Update() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()

	candidates := append(p.pool, p.outliers...)
	p.pool = make([]skyline.Neighbor, 0, p.capacity)
	p.outliers = nil

	skyline.Sort(candidates)

	// On error the full candidate set is restored, outliers folded in.
	original := candidates

	layer := 0
	for len(p.pool) < p.capacity && len(candidates) > 0 {
		frontier, remainder, err := skyline.Extract(candidates, p.dims)
		if err != nil {
			p.pool = original
			err = translateError(err)
			p.metrics.RecordUpdate(time.Since(start), err)
			p.logger.LogUpdate(len(p.pool), p.layers, err)
			return err
		}
		candidates = remainder

		for _, point := range frontier {
			admitted := point.Clone()
			admitted.Layer = layer
			p.pool = append(p.pool, admitted)
		}
		layer++
	}
	p.layers = layer

	p.metrics.RecordUpdate(time.Since(start), nil)
	p.logger.LogUpdate(len(p.pool), p.layers, nil)
	return nil
}

// Insert accepts a new candidate into the outlier set at layer 0 with
// Flag=true. A point whose id already exists in the pool or the outlier
// set is silently ignored (idempotent insert). Insert does not trigger
// re-layering; call Update to fold outliers in.
func (p *Pool) Insert(id uint32, distances []float32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()

	if len(distances) != p.dims {
		err := &ErrDimensionMismatch{Expected: p.dims, Actual: len(distances)}
		p.metrics.RecordInsert(time.Since(start), err)
		p.logger.LogInsert(id, len(distances), err)
		return err
	}

	if p.containsLocked(id) {
		p.metrics.RecordInsert(time.Since(start), nil)
		return nil
	}

	d := make([]float32, len(distances))
	copy(d, distances)
	p.outliers = append(p.outliers, skyline.Neighbor{ID: id, Distances: d, Flag: true, Layer: 0})

	p.metrics.RecordInsert(time.Since(start), nil)
	p.logger.LogInsert(id, len(distances), nil)
	return nil
}

func (p *Pool) containsLocked(id uint32) bool {
	for _, point := range p.pool {
		if point.ID == id {
			return true
		}
	}
	for _, point := range p.outliers {
		if point.ID == id {
			return true
		}
	}
	return false
}

// Clear empties the pool and the outlier set and resets the layer count.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pool = p.pool[:0]
	p.outliers = nil
	p.layers = 0
}

// Snapshot returns a deep copy of the layered pool.
func (p *Pool) Snapshot() []skyline.Neighbor {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]skyline.Neighbor, len(p.pool))
	for i, point := range p.pool {
		out[i] = point.Clone()
	}
	return out
}

// Size returns the number of points in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pool)
}

// OutlierCount returns the number of points pending in the outlier set.
func (p *Pool) OutlierCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.outliers)
}

// Layers returns the number of dominance layers assigned by the last
// Init or Update.
func (p *Pool) Layers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.layers
}

// Dimensions returns the configured dimensionality.
func (p *Pool) Dimensions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dims
}

// SetDimensions changes the dimensionality. The pool and the outlier set
// must be empty; otherwise ErrPoolNotEmpty is returned and nothing changes.
func (p *Pool) SetDimensions(dims int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if dims < 1 {
		return &ErrInvalidDimension{Dimension: dims}
	}
	if len(p.pool) > 0 || len(p.outliers) > 0 {
		return ErrPoolNotEmpty
	}
	p.dims = dims
	return nil
}

// Clone returns a deep copy of the pool, including its contents, outliers
// and configuration.
func (p *Pool) Clone() *Pool {
	p.mu.Lock()
	defer p.mu.Unlock()

	clone := &Pool{
		pool:          make([]skyline.Neighbor, len(p.pool)),
		outliers:      make([]skyline.Neighbor, len(p.outliers)),
		capacity:      p.capacity,
		neighborCount: p.neighborCount,
		quality:       p.quality,
		dims:          p.dims,
		layers:        p.layers,
		logger:        p.logger,
		metrics:       p.metrics,
		compression:   p.compression,
	}
	for i, point := range p.pool {
		clone.pool[i] = point.Clone()
	}
	for i, point := range p.outliers {
		clone.outliers[i] = point.Clone()
	}
	return clone
}
