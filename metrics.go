package versebase

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordCreate is called after each create operation.
	RecordCreate(duration time.Duration, err error)

	// RecordGet is called after each get operation.
	RecordGet(duration time.Duration, err error)

	// RecordSelect is called after each select operation.
	// matched is the number of rows returned.
	RecordSelect(matched int, duration time.Duration, err error)

	// RecordDelete is called after each delete operation.
	RecordDelete(duration time.Duration, err error)

	// RecordUpdate is called after each update operation.
	RecordUpdate(duration time.Duration, err error)

	// RecordRebuild is called after each full index rebuild.
	RecordRebuild(rows int, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCreate(time.Duration, error)      {}
func (NoopMetricsCollector) RecordGet(time.Duration, error)         {}
func (NoopMetricsCollector) RecordSelect(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)      {}
func (NoopMetricsCollector) RecordUpdate(time.Duration, error)      {}
func (NoopMetricsCollector) RecordRebuild(int, time.Duration)       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	CreateCount      atomic.Int64
	CreateErrors     atomic.Int64
	CreateTotalNanos atomic.Int64
	GetCount         atomic.Int64
	GetMisses        atomic.Int64
	GetTotalNanos    atomic.Int64
	SelectCount      atomic.Int64
	SelectRows       atomic.Int64
	SelectErrors     atomic.Int64
	DeleteCount      atomic.Int64
	DeleteErrors     atomic.Int64
	UpdateCount      atomic.Int64
	UpdateErrors     atomic.Int64
	RebuildCount     atomic.Int64
	RebuildRows      atomic.Int64
	RebuildNanos     atomic.Int64
}

// RecordCreate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCreate(duration time.Duration, err error) {
	b.CreateCount.Add(1)
	b.CreateTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.CreateErrors.Add(1)
	}
}

// RecordGet implements MetricsCollector. Any error counts as a miss.
func (b *BasicMetricsCollector) RecordGet(duration time.Duration, err error) {
	b.GetCount.Add(1)
	b.GetTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.GetMisses.Add(1)
	}
}

// RecordSelect implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSelect(matched int, _ time.Duration, err error) {
	b.SelectCount.Add(1)
	b.SelectRows.Add(int64(matched))
	if err != nil {
		b.SelectErrors.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(_ time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(_ time.Duration, err error) {
	b.UpdateCount.Add(1)
	if err != nil {
		b.UpdateErrors.Add(1)
	}
}

// RecordRebuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRebuild(rows int, duration time.Duration) {
	b.RebuildCount.Add(1)
	b.RebuildRows.Add(int64(rows))
	b.RebuildNanos.Add(duration.Nanoseconds())
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		CreateCount:    b.CreateCount.Load(),
		CreateErrors:   b.CreateErrors.Load(),
		CreateAvgNanos: avg(b.CreateTotalNanos.Load(), b.CreateCount.Load()),
		GetCount:       b.GetCount.Load(),
		GetMisses:      b.GetMisses.Load(),
		GetAvgNanos:    avg(b.GetTotalNanos.Load(), b.GetCount.Load()),
		SelectCount:    b.SelectCount.Load(),
		SelectRows:     b.SelectRows.Load(),
		SelectErrors:   b.SelectErrors.Load(),
		DeleteCount:    b.DeleteCount.Load(),
		DeleteErrors:   b.DeleteErrors.Load(),
		UpdateCount:    b.UpdateCount.Load(),
		UpdateErrors:   b.UpdateErrors.Load(),
		RebuildCount:   b.RebuildCount.Load(),
		RebuildRows:    b.RebuildRows.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	CreateCount    int64
	CreateErrors   int64
	CreateAvgNanos int64
	GetCount       int64
	GetMisses      int64
	GetAvgNanos    int64
	SelectCount    int64
	SelectRows     int64
	SelectErrors   int64
	DeleteCount    int64
	DeleteErrors   int64
	UpdateCount    int64
	UpdateErrors   int64
	RebuildCount   int64
	RebuildRows    int64
}
