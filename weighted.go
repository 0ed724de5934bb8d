package skygo

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/skygo/skyline"
	"github.com/hupe1980/skygo/weight"
	"golang.org/x/sync/errgroup"
)

// WeightedPool is a layered Pareto-frontier pool whose points carry a
// pruning bitset with one bit per discretized weight combination. Callers
// consult the bitset at query time to skip candidates without recomputing
// weighted distances.
type WeightedPool struct {
	mu            sync.Mutex
	pool          []skyline.WeightedNeighbor
	outliers      []skyline.WeightedNeighbor
	lattice       *weight.Lattice
	capacity      int
	neighborCount int
	quality       int
	dims          int
	layers        int
	logger        *Logger
	metrics       MetricsCollector
	compression   Compression
}

// NewWeighted creates a WeightedPool and derives the weight lattice for
// dims. dims must be in [1, MaxDimensions].
func NewWeighted(capacity, neighborCount, quality, dims int, optFns ...Option) (*WeightedPool, error) {
	if dims < 1 || dims > MaxDimensions {
		return nil, &ErrInvalidDimension{Dimension: dims}
	}

	lattice, err := weight.New(dims)
	if err != nil {
		return nil, translateError(err)
	}

	o := applyOptions(optFns)

	return &WeightedPool{
		pool:          make([]skyline.WeightedNeighbor, 0, capacity),
		lattice:       lattice,
		capacity:      capacity,
		neighborCount: neighborCount,
		quality:       quality,
		dims:          dims,
		logger:        o.logger,
		metrics:       o.metricsCollector,
		compression:   o.compression,
	}, nil
}

// Lattice returns the weight lattice of the pool.
func (p *WeightedPool) Lattice() *weight.Lattice {
	return p.lattice
}

// NumWeightCombinations returns the pruning bitset capacity of each point.
func (p *WeightedPool) NumWeightCombinations() int {
	return p.lattice.Count()
}

// WeightIndex returns the stable combination index for weights, or
// (-1, false) when no combination matches after rounding. A miss is not an
// error; callers fall back to recomputing weighted distances.
func (p *WeightedPool) WeightIndex(weights []float32) (int, bool) {
	return p.lattice.IndexOf(weights)
}

// Init consumes points, peeling skyline layers and assigning layer
// 0, 1, 2, ... to each successive frontier. Every admitted point gets
// Flag=true and a fresh all-clear pruning bitset. The final pool is sorted
// lexicographically by distance vector.
func (p *WeightedPool) Init(points []skyline.Neighbor) error {
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

	numCombos := p.lattice.Count()
	for layerIdx, layer := range layers {
		for _, point := range layer {
			p.pool = append(p.pool, skyline.NewWeightedNeighbor(point.ID, point.Distances, numCombos, true, layerIdx))
		}
	}
	p.layers = len(layers)
	p.sortPoolLocked()

	p.metrics.RecordInit(len(points), time.Since(start), nil)
	p.logger.LogInit(len(points), p.layers, nil)
	return nil
}

func (p *WeightedPool) sortPoolLocked() {
	sort.Slice(p.pool, func(i, j int) bool {
		return p.pool[i].Neighbor.Less(p.pool[j].Neighbor)
	})
}

// Update re-layers the pool. Current contents plus pending outliers become
// a fresh candidate set, sorted lexicographically; layers are peeled until
// the candidates are exhausted or the pool reaches capacity (soft bound).
// Admitted points get fresh all-clear pruning bitsets: pruning state does
// not survive a re-layering pass, call RecomputePruning afterwards.
func (p *WeightedPool) Update() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()

	candidates := make([]skyline.Neighbor, 0, len(p.pool)+len(p.outliers))
	for _, point := range p.pool {
		candidates = append(candidates, point.Neighbor)
	}
	for _, point := range p.outliers {
		candidates = append(candidates, point.Neighbor)
	}
	p.pool = make([]skyline.WeightedNeighbor, 0, p.capacity)
	p.outliers = nil

	skyline.Sort(candidates)

	// On error the full candidate set is restored, outliers folded in.
	original := candidates

	numCombos := p.lattice.Count()
	layer := 0
	for len(p.pool) < p.capacity && len(candidates) > 0 {
		frontier, remainder, err := skyline.Extract(candidates, p.dims)
		if err != nil {
			restored := make([]skyline.WeightedNeighbor, 0, len(original))
			for _, point := range original {
				restored = append(restored, skyline.NewWeightedNeighbor(point.ID, point.Distances, numCombos, point.Flag, point.Layer))
			}
			p.pool = restored
			err = translateError(err)
			p.metrics.RecordUpdate(time.Since(start), err)
			p.logger.LogUpdate(len(p.pool), p.layers, err)
			return err
		}
		candidates = remainder

		for _, point := range frontier {
			admitted := skyline.NewWeightedNeighbor(point.ID, point.Distances, numCombos, point.Flag, layer)
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
// Flag=true and an all-clear pruning bitset. Duplicate ids are silently
// ignored. Call Update to fold outliers in.
func (p *WeightedPool) Insert(id uint32, distances []float32) error {
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

	p.outliers = append(p.outliers, skyline.NewWeightedNeighbor(id, distances, p.lattice.Count(), true, 0))

	p.metrics.RecordInsert(time.Since(start), nil)
	p.logger.LogInsert(id, len(distances), nil)
	return nil
}

func (p *WeightedPool) containsLocked(id uint32) bool {
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

// SetPruned sets the pruning state of the point at pool position pos for
// the given weight-combination index. Both indices are bounds-checked.
func (p *WeightedPool) SetPruned(pos, weightIdx int, pruned bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pos < 0 || pos >= len(p.pool) {
		return &ErrPositionOutOfRange{Position: pos, Size: len(p.pool)}
	}
	return p.pool[pos].SetPruned(weightIdx, pruned)
}

// Pruned returns the pruning state of the point at pool position pos for
// the given weight-combination index.
func (p *WeightedPool) Pruned(pos, weightIdx int) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pos < 0 || pos >= len(p.pool) {
		return false, &ErrPositionOutOfRange{Position: pos, Size: len(p.pool)}
	}
	return p.pool[pos].Pruned(weightIdx)
}

// RecomputePruning repopulates every point's pruning bitset. Under each
// weight combination, the neighborCount points with the smallest weighted
// distance sum are kept and all others are marked prunable. Ties at the
// threshold are kept (never over-pruned).
//
// Weight combinations are scored in parallel; ctx cancellation aborts the
// pass with the pool's pruning state unspecified (callers re-run or Clear).
func (p *WeightedPool) RecomputePruning(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()

	combos := p.lattice.Combinations()
	n := len(p.pool)

	if n == 0 {
		p.metrics.RecordPruning(len(combos), time.Since(start), nil)
		p.logger.LogPruning(len(combos), 0, nil)
		return nil
	}

	// Phase 1: per-combination admission threshold (the S-th smallest
	// weighted score). Each goroutine writes only its own slot.
	thresholds := make([]float64, len(combos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for idx, ws := range combos {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scores := make([]float64, n)
			for i, point := range p.pool {
				scores[i] = weightedScore(ws, point.Distances)
			}
			sort.Float64s(scores)
			if p.neighborCount > 0 && p.neighborCount <= n {
				thresholds[idx] = scores[p.neighborCount-1]
			} else if p.neighborCount > n {
				thresholds[idx] = scores[n-1]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.metrics.RecordPruning(len(combos), time.Since(start), err)
		p.logger.LogPruning(len(combos), n, err)
		return err
	}

	// Phase 2: per-point bit population. Each goroutine owns one bitset,
	// so no two goroutines touch the same words.
	g2, g2ctx := errgroup.WithContext(ctx)
	g2.SetLimit(runtime.GOMAXPROCS(0))
	for i := range p.pool {
		g2.Go(func() error {
			if err := g2ctx.Err(); err != nil {
				return err
			}
			point := &p.pool[i]
			for idx, ws := range combos {
				prunable := p.neighborCount <= 0 ||
					weightedScore(ws, point.Distances) > thresholds[idx]
				if err := point.SetPruned(idx, prunable); err != nil {
					return err
				}
			}
			return nil
		})
	}
	err := g2.Wait()

	p.metrics.RecordPruning(len(combos), time.Since(start), err)
	p.logger.LogPruning(len(combos), n, err)
	return err
}

func weightedScore(weights []float32, distances []float32) float64 {
	score := 0.0
	for i, w := range weights {
		score += float64(w) * float64(distances[i])
	}
	return score
}

// PrunedIDs returns a bitmap of the ids of all pool points prunable under
// the given weight-combination index. Callers AND/OR these across
// weightings to drive candidate skipping.
func (p *WeightedPool) PrunedIDs(weightIdx int) (*roaring.Bitmap, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rb := roaring.New()
	for i := range p.pool {
		pruned, err := p.pool[i].Pruned(weightIdx)
		if err != nil {
			return nil, err
		}
		if pruned {
			rb.Add(p.pool[i].ID)
		}
	}
	return rb, nil
}

// Clear empties the pool and the outlier set and resets the layer count.
func (p *WeightedPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pool = p.pool[:0]
	p.outliers = nil
	p.layers = 0
}

// Snapshot returns a deep copy of the layered pool, pruning bitsets
// included.
func (p *WeightedPool) Snapshot() []skyline.WeightedNeighbor {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]skyline.WeightedNeighbor, len(p.pool))
	for i, point := range p.pool {
		out[i] = point.Clone()
	}
	return out
}

// Size returns the number of points in the pool.
func (p *WeightedPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pool)
}

// OutlierCount returns the number of points pending in the outlier set.
func (p *WeightedPool) OutlierCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.outliers)
}

// Layers returns the number of dominance layers assigned by the last
// Init or Update.
func (p *WeightedPool) Layers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.layers
}

// Dimensions returns the configured dimensionality.
func (p *WeightedPool) Dimensions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dims
}

// SetDimensions changes the dimensionality and re-derives the weight
// lattice. The pool and the outlier set must be empty; otherwise
// ErrPoolNotEmpty is returned and nothing changes.
func (p *WeightedPool) SetDimensions(dims int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if dims < 1 || dims > MaxDimensions {
		return &ErrInvalidDimension{Dimension: dims}
	}
	if len(p.pool) > 0 || len(p.outliers) > 0 {
		return ErrPoolNotEmpty
	}

	lattice, err := weight.New(dims)
	if err != nil {
		return translateError(err)
	}
	p.dims = dims
	p.lattice = lattice
	return nil
}

// Clone returns a deep copy of the pool, including contents, outliers,
// pruning bitsets and configuration.
func (p *WeightedPool) Clone() *WeightedPool {
	p.mu.Lock()
	defer p.mu.Unlock()

	clone := &WeightedPool{
		pool:          make([]skyline.WeightedNeighbor, len(p.pool)),
		outliers:      make([]skyline.WeightedNeighbor, len(p.outliers)),
		lattice:       p.lattice,
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
