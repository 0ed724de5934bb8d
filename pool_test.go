package skygo

import (
	"testing"

	"github.com/hupe1980/skygo/skyline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPoints2D() []skyline.Neighbor {
	return []skyline.Neighbor{
		{ID: 1, Distances: []float32{10, 20}},
		{ID: 2, Distances: []float32{5, 30}},
		{ID: 3, Distances: []float32{15, 10}},
		{ID: 4, Distances: []float32{8, 15}},
		{ID: 5, Distances: []float32{20, 25}},
	}
}

func TestPool_Init(t *testing.T) {
	pool, err := New(64, 16, 4, 2)
	require.NoError(t, err)

	require.NoError(t, pool.Init(testPoints2D()))

	assert.Equal(t, 5, pool.Size())
	assert.Equal(t, 2, pool.Layers())

	snapshot := pool.Snapshot()

	// Sorted lexicographically by distance vector.
	for i := 1; i < len(snapshot); i++ {
		assert.False(t, snapshot[i].Less(snapshot[i-1]))
	}

	// Layer 0 is the frontier {(5,30),(15,10),(8,15)}.
	layerOf := make(map[uint32]int)
	for _, p := range snapshot {
		layerOf[p.ID] = p.Layer
	}
	assert.Equal(t, 0, layerOf[2])
	assert.Equal(t, 0, layerOf[3])
	assert.Equal(t, 0, layerOf[4])
	assert.Equal(t, 1, layerOf[1])
	assert.Equal(t, 1, layerOf[5])

	// No point in a later layer dominates a point in an earlier layer.
	for _, p := range snapshot {
		for _, q := range snapshot {
			if p.Layer < q.Layer {
				assert.False(t, skyline.Dominates(q.Distances, p.Distances))
			}
		}
	}
}

func TestPool_InitDimensionMismatch(t *testing.T) {
	pool, err := New(64, 16, 4, 2)
	require.NoError(t, err)

	err = pool.Init([]skyline.Neighbor{
		{ID: 1, Distances: []float32{1, 2}},
		{ID: 2, Distances: []float32{1, 2, 3}},
	})

	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 2, dm.Expected)
	assert.Equal(t, 3, dm.Actual)
	assert.Equal(t, 0, pool.Size())
}

func TestPool_InvalidDimension(t *testing.T) {
	_, err := New(64, 16, 4, 0)
	var id *ErrInvalidDimension
	require.ErrorAs(t, err, &id)
	assert.Equal(t, 0, id.Dimension)
}

func TestPool_InsertIdempotent(t *testing.T) {
	pool, err := New(64, 16, 4, 2)
	require.NoError(t, err)
	require.NoError(t, pool.Init(testPoints2D()))

	require.NoError(t, pool.Insert(42, []float32{1, 1}))
	assert.Equal(t, 1, pool.OutlierCount())

	// Same id again: no-op, not an error.
	require.NoError(t, pool.Insert(42, []float32{2, 2}))
	assert.Equal(t, 1, pool.OutlierCount())
	assert.Equal(t, 5, pool.Size())

	// Id already in the pool: also a no-op.
	require.NoError(t, pool.Insert(1, []float32{3, 3}))
	assert.Equal(t, 1, pool.OutlierCount())
}

func TestPool_InsertDimensionMismatch(t *testing.T) {
	pool, err := New(64, 16, 4, 2)
	require.NoError(t, err)

	err = pool.Insert(1, []float32{1, 2, 3})
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 0, pool.OutlierCount())
}

func TestPool_UpdateFoldsOutliers(t *testing.T) {
	pool, err := New(64, 16, 4, 2)
	require.NoError(t, err)
	require.NoError(t, pool.Init(testPoints2D()))

	// (1,1) dominates everything and becomes the sole layer-0 point.
	require.NoError(t, pool.Insert(42, []float32{1, 1}))
	require.NoError(t, pool.Update())

	assert.Equal(t, 6, pool.Size())
	assert.Equal(t, 0, pool.OutlierCount())

	snapshot := pool.Snapshot()
	assert.Equal(t, uint32(42), snapshot[0].ID)
	assert.Equal(t, 0, snapshot[0].Layer)
	for _, p := range snapshot[1:] {
		assert.Greater(t, p.Layer, 0)
	}
}

func TestPool_UpdateCapacityBound(t *testing.T) {
	pool, err := New(3, 16, 4, 2)
	require.NoError(t, err)
	require.NoError(t, pool.Init(testPoints2D()))
	assert.Equal(t, 5, pool.Size()) // Init has no capacity bound

	require.NoError(t, pool.Update())

	// Layer 0 holds 3 points, reaching capacity; layer 1 is dropped.
	assert.Equal(t, 3, pool.Size())
	assert.Equal(t, 1, pool.Layers())
}

func TestPool_UpdatePartialLayerAdmittedInFull(t *testing.T) {
	pool, err := New(2, 16, 4, 2)
	require.NoError(t, err)
	require.NoError(t, pool.Init(testPoints2D()))

	require.NoError(t, pool.Update())

	// The bound is soft: layer 0 (3 points) exceeds capacity 2 but is
	// admitted in full before admission stops.
	assert.Equal(t, 3, pool.Size())
}

func TestPool_UpdateErrorRestoresCandidates(t *testing.T) {
	pool, err := New(64, 16, 4, 2)
	require.NoError(t, err)
	require.NoError(t, pool.Init(testPoints2D()))
	require.NoError(t, pool.Insert(42, []float32{1, 1}))

	// Force an extraction failure mid-update.
	pool.pool = append(pool.pool, skyline.Neighbor{ID: 99, Distances: []float32{1}})

	var dm *ErrDimensionMismatch
	require.ErrorAs(t, pool.Update(), &dm)

	// Nothing is lost: the full candidate set, outliers folded in, survives.
	assert.Equal(t, 7, pool.Size())
	assert.Equal(t, 0, pool.OutlierCount())
}

func TestPool_Clear(t *testing.T) {
	pool, err := New(64, 16, 4, 2)
	require.NoError(t, err)
	require.NoError(t, pool.Init(testPoints2D()))
	require.NoError(t, pool.Insert(42, []float32{1, 1}))

	pool.Clear()
	assert.Equal(t, 0, pool.Size())
	assert.Equal(t, 0, pool.OutlierCount())
	assert.Equal(t, 0, pool.Layers())
}

func TestPool_SetDimensions(t *testing.T) {
	pool, err := New(64, 16, 4, 2)
	require.NoError(t, err)
	require.NoError(t, pool.Init(testPoints2D()))

	assert.ErrorIs(t, pool.SetDimensions(3), ErrPoolNotEmpty)

	pool.Clear()
	require.NoError(t, pool.SetDimensions(3))
	assert.Equal(t, 3, pool.Dimensions())

	var id *ErrInvalidDimension
	assert.ErrorAs(t, pool.SetDimensions(0), &id)
}

func TestPool_Clone(t *testing.T) {
	pool, err := New(64, 16, 4, 2)
	require.NoError(t, err)
	require.NoError(t, pool.Init(testPoints2D()))
	require.NoError(t, pool.Insert(42, []float32{1, 1}))

	clone := pool.Clone()
	assert.Equal(t, pool.Size(), clone.Size())
	assert.Equal(t, pool.OutlierCount(), clone.OutlierCount())
	assert.Equal(t, pool.Layers(), clone.Layers())

	// Deep copy: mutating the clone leaves the original untouched.
	clone.Clear()
	assert.Equal(t, 5, pool.Size())
	assert.Equal(t, 1, pool.OutlierCount())
}

func TestPool_SnapshotIsCopy(t *testing.T) {
	pool, err := New(64, 16, 4, 2)
	require.NoError(t, err)
	require.NoError(t, pool.Init(testPoints2D()))

	snapshot := pool.Snapshot()
	snapshot[0].Distances[0] = 999

	fresh := pool.Snapshot()
	assert.NotEqual(t, float32(999), fresh[0].Distances[0])
}

func TestPool_Metrics(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	pool, err := New(64, 16, 4, 2, WithMetricsCollector(metrics))
	require.NoError(t, err)

	require.NoError(t, pool.Init(testPoints2D()))
	require.NoError(t, pool.Insert(42, []float32{1, 1}))
	require.NoError(t, pool.Update())

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.InitCount)
	assert.Equal(t, int64(5), stats.InitPoints)
	assert.Equal(t, int64(1), stats.InsertCount)
	assert.Equal(t, int64(1), stats.UpdateCount)
	assert.Equal(t, int64(0), stats.InitErrors)
}
