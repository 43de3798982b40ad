package cullgrid

import (
	"sync/atomic"
	"time"
)

// QueryKind names the shape of a query for metrics.
type QueryKind string

const (
	QueryKindSphere  QueryKind = "sphere"
	QueryKindBox     QueryKind = "box"
	QueryKindFrustum QueryKind = "frustum"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; package
// metrics/prometheus provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordInsert is called after each insert operation.
	RecordInsert(duration time.Duration, err error)

	// RecordRemove is called after each remove operation.
	RecordRemove(duration time.Duration, err error)

	// RecordUpdate is called after each bounds update. relocated counts the
	// grids in which the entity changed cell.
	RecordUpdate(duration time.Duration, relocated int, err error)

	// RecordQuery is called after each query.
	RecordQuery(kind QueryKind, stats QueryStats, duration time.Duration)

	// RecordPromotion is called when a cached grid is created.
	RecordPromotion()

	// RecordEviction is called when a cached grid is freed.
	RecordEviction()

	// RecordMigration is called once per frame with the number of entities
	// copied into cached grids.
	RecordMigration(moved int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)                {}
func (NoopMetricsCollector) RecordRemove(time.Duration, error)                {}
func (NoopMetricsCollector) RecordUpdate(time.Duration, int, error)           {}
func (NoopMetricsCollector) RecordQuery(QueryKind, QueryStats, time.Duration) {}
func (NoopMetricsCollector) RecordPromotion()                                 {}
func (NoopMetricsCollector) RecordEviction()                                  {}
func (NoopMetricsCollector) RecordMigration(int)                              {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and tests.
type BasicMetricsCollector struct {
	InsertCount      atomic.Int64
	InsertErrors     atomic.Int64
	RemoveCount      atomic.Int64
	RemoveErrors     atomic.Int64
	UpdateCount      atomic.Int64
	UpdateErrors     atomic.Int64
	Relocations      atomic.Int64
	QueryCount       atomic.Int64
	QueryTotalNanos  atomic.Int64
	ObjectsTested    atomic.Int64
	ObjectsPassed    atomic.Int64
	CacheHits        atomic.Int64
	Promotions       atomic.Int64
	Evictions        atomic.Int64
	MigratedEntities atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(_ time.Duration, err error) {
	b.InsertCount.Add(1)
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(_ time.Duration, err error) {
	b.RemoveCount.Add(1)
	if err != nil {
		b.RemoveErrors.Add(1)
	}
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(_ time.Duration, relocated int, err error) {
	b.UpdateCount.Add(1)
	b.Relocations.Add(int64(relocated))
	if err != nil {
		b.UpdateErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(_ QueryKind, stats QueryStats, duration time.Duration) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	b.ObjectsTested.Add(int64(stats.Tested))
	b.ObjectsPassed.Add(int64(stats.Passed))
	b.CacheHits.Add(int64(stats.CacheHits))
}

// RecordPromotion implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPromotion() { b.Promotions.Add(1) }

// RecordEviction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEviction() { b.Evictions.Add(1) }

// RecordMigration implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMigration(moved int) { b.MigratedEntities.Add(int64(moved)) }

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:      b.InsertCount.Load(),
		InsertErrors:     b.InsertErrors.Load(),
		RemoveCount:      b.RemoveCount.Load(),
		RemoveErrors:     b.RemoveErrors.Load(),
		UpdateCount:      b.UpdateCount.Load(),
		UpdateErrors:     b.UpdateErrors.Load(),
		Relocations:      b.Relocations.Load(),
		QueryCount:       b.QueryCount.Load(),
		QueryAvgNanos:    b.getAvgQueryNanos(),
		ObjectsTested:    b.ObjectsTested.Load(),
		ObjectsPassed:    b.ObjectsPassed.Load(),
		CacheHits:        b.CacheHits.Load(),
		Promotions:       b.Promotions.Load(),
		Evictions:        b.Evictions.Load(),
		MigratedEntities: b.MigratedEntities.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgQueryNanos() int64 {
	count := b.QueryCount.Load()
	if count == 0 {
		return 0
	}
	return b.QueryTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InsertCount      int64
	InsertErrors     int64
	RemoveCount      int64
	RemoveErrors     int64
	UpdateCount      int64
	UpdateErrors     int64
	Relocations      int64
	QueryCount       int64
	QueryAvgNanos    int64
	ObjectsTested    int64
	ObjectsPassed    int64
	CacheHits        int64
	Promotions       int64
	Evictions        int64
	MigratedEntities int64
}
