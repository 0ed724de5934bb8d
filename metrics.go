package skygo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordInit is called after each bulk initialization pass.
	// count is the number of points consumed, duration is the total time
	// taken, err is nil if successful.
	RecordInit(count int, duration time.Duration, err error)

	// RecordUpdate is called after each re-layering pass.
	RecordUpdate(duration time.Duration, err error)

	// RecordInsert is called after each insert operation.
	RecordInsert(duration time.Duration, err error)

	// RecordPruning is called after each pruning precomputation pass.
	// combinations is the number of weight combinations processed.
	RecordPruning(combinations int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInit(int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordUpdate(time.Duration, error)       {}
func (NoopMetricsCollector) RecordInsert(time.Duration, error)       {}
func (NoopMetricsCollector) RecordPruning(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InitCount           atomic.Int64
	InitPoints          atomic.Int64
	InitErrors          atomic.Int64
	InitTotalNanos      atomic.Int64
	UpdateCount         atomic.Int64
	UpdateErrors        atomic.Int64
	UpdateTotalNanos    atomic.Int64
	InsertCount         atomic.Int64
	InsertErrors        atomic.Int64
	InsertTotalNanos    atomic.Int64
	PruningCount        atomic.Int64
	PruningCombinations atomic.Int64
	PruningErrors       atomic.Int64
	PruningTotalNanos   atomic.Int64
}

// RecordInit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInit(count int, duration time.Duration, err error) {
	b.InitCount.Add(1)
	b.InitPoints.Add(int64(count))
	b.InitTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.InitErrors.Add(1)
	}
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(duration time.Duration, err error) {
	b.UpdateCount.Add(1)
	b.UpdateTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.UpdateErrors.Add(1)
	}
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(duration time.Duration, err error) {
	b.InsertCount.Add(1)
	b.InsertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordPruning implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPruning(combinations int, duration time.Duration, err error) {
	b.PruningCount.Add(1)
	b.PruningCombinations.Add(int64(combinations))
	b.PruningTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PruningErrors.Add(1)
	}
}

// MetricsStats is a point-in-time snapshot of collected metrics.
type MetricsStats struct {
	InitCount    int64
	InitPoints   int64
	InitErrors   int64
	InitAvgNanos int64

	UpdateCount    int64
	UpdateErrors   int64
	UpdateAvgNanos int64

	InsertCount    int64
	InsertErrors   int64
	InsertAvgNanos int64

	PruningCount    int64
	PruningErrors   int64
	PruningAvgNanos int64
}

// GetStats returns a snapshot of the collected metrics.
func (b *BasicMetricsCollector) GetStats() MetricsStats {
	stats := MetricsStats{
		InitCount:     b.InitCount.Load(),
		InitPoints:    b.InitPoints.Load(),
		InitErrors:    b.InitErrors.Load(),
		UpdateCount:   b.UpdateCount.Load(),
		UpdateErrors:  b.UpdateErrors.Load(),
		InsertCount:   b.InsertCount.Load(),
		InsertErrors:  b.InsertErrors.Load(),
		PruningCount:  b.PruningCount.Load(),
		PruningErrors: b.PruningErrors.Load(),
	}
	if stats.InitCount > 0 {
		stats.InitAvgNanos = b.InitTotalNanos.Load() / stats.InitCount
	}
	if stats.UpdateCount > 0 {
		stats.UpdateAvgNanos = b.UpdateTotalNanos.Load() / stats.UpdateCount
	}
	if stats.InsertCount > 0 {
		stats.InsertAvgNanos = b.InsertTotalNanos.Load() / stats.InsertCount
	}
	if stats.PruningCount > 0 {
		stats.PruningAvgNanos = b.PruningTotalNanos.Load() / stats.PruningCount
	}
	return stats
}
