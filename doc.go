// Package skygo maintains layered Pareto-frontier (skyline) decompositions
// of multi-metric candidate sets.
//
// Each candidate point carries a vector of per-dimension distance/cost
// values, e.g. the similarity metrics of a multi-vector nearest-neighbor
// index. Points are organized into dominance layers by onion peeling:
// repeatedly extracting the Pareto frontier and recursing on the remainder,
// assigning increasing layer numbers.
//
// # Quick Start
//
//	pool, _ := skygo.New(64, 16, 4, 2)
//	_ = pool.Init([]skyline.Neighbor{
//	    {ID: 1, Distances: []float32{5, 30}},
//	    {ID: 2, Distances: []float32{15, 10}},
//	    {ID: 3, Distances: []float32{10, 20}},
//	})
//	for _, p := range pool.Snapshot() {
//	    fmt.Println(p.ID, p.Layer)
//	}
//
// New points are accepted lazily: Insert places them in an outlier set, and
// the next Update folds them into the layered pool, re-peeling under the
// capacity bound.
//
// # Weighted variant
//
// WeightedPool additionally precomputes, for every discretized convex
// combination of per-dimension weights (step 0.1, summing to 1), whether a
// point can be discarded under that weighting:
//
//	pool, _ := skygo.NewWeighted(64, 16, 4, 2)
//	_ = pool.Init(points)
//	_ = pool.RecomputePruning(ctx)
//
//	idx, ok := pool.WeightIndex([]float32{0.3, 0.7})
//	if ok {
//	    pruned, _ := pool.Pruned(pos, idx)
//	}
//
// A query layer holding a live weight vector consults WeightIndex and the
// per-point pruning bitsets to skip dominated candidates without
// recomputing weighted distances.
//
// # Concurrency
//
// Pool and WeightedPool serialize all operations behind a per-instance
// lock; accessors return copies. The lighter queue package variants are
// single-owner and must not be shared across goroutines.
//
// skygo computes no vector similarities itself: distance vectors are
// supplied by the caller, and graph traversal/query logic lives outside
// this package.
package skygo
