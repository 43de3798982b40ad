// Package prometheus exports index metrics to Prometheus.
package prometheus

import (
	"time"

	"github.com/hupe1980/cullgrid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	operationLabel = "operation"
	statusLabel    = "status"
	kindLabel      = "kind"
)

// Collector implements cullgrid.MetricsCollector.
type Collector struct {
	operations      *prometheus.CounterVec
	operationTime   *prometheus.HistogramVec
	relocations     prometheus.Counter
	queries         *prometheus.CounterVec
	queryTime       *prometheus.HistogramVec
	objectsTested   *prometheus.CounterVec
	objectsPassed   *prometheus.CounterVec
	cacheHits       prometheus.Counter
	promotions      prometheus.Counter
	evictions       prometheus.Counter
	migratedObjects prometheus.Counter
}

// New registers the index metrics on reg. Use prometheus.DefaultRegisterer
// to expose them on the default handler.
func New(reg prometheus.Registerer, namespace string) *Collector {
	f := promauto.With(reg)
	return &Collector{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "The total number of insert, remove and update operations.",
		}, []string{operationLabel, statusLabel}),

		operationTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "The duration of insert, remove and update operations.",
			Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 10),
		}, []string{operationLabel}),

		relocations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relocations_total",
			Help:      "The total number of cell changes caused by bounds updates.",
		}),

		queries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "The total number of queries.",
		}, []string{kindLabel}),

		queryTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "The duration of queries.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{kindLabel}),

		objectsTested: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_tested_total",
			Help:      "The total number of objects spatially tested by queries.",
		}, []string{kindLabel}),

		objectsPassed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_passed_total",
			Help:      "The total number of objects reported by queries.",
		}, []string{kindLabel}),

		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "The total number of categories served by a cached grid.",
		}),

		promotions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_promotions_total",
			Help:      "The total number of cached grids created.",
		}),

		evictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "The total number of cached grids freed.",
		}),

		migratedObjects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_migrated_objects_total",
			Help:      "The total number of objects copied into cached grids.",
		}),
	}
}

func (c *Collector) instrumentOperation(op string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.operations.
		With(prometheus.Labels{operationLabel: op, statusLabel: status}).
		Inc()
	c.operationTime.
		With(prometheus.Labels{operationLabel: op}).
		Observe(d.Seconds())
}

// RecordInsert implements cullgrid.MetricsCollector.
func (c *Collector) RecordInsert(d time.Duration, err error) {
	c.instrumentOperation("insert", d, err)
}

// RecordRemove implements cullgrid.MetricsCollector.
func (c *Collector) RecordRemove(d time.Duration, err error) {
	c.instrumentOperation("remove", d, err)
}

// RecordUpdate implements cullgrid.MetricsCollector.
func (c *Collector) RecordUpdate(d time.Duration, relocated int, err error) {
	c.instrumentOperation("update", d, err)
	c.relocations.Add(float64(relocated))
}

// RecordQuery implements cullgrid.MetricsCollector.
func (c *Collector) RecordQuery(kind cullgrid.QueryKind, stats cullgrid.QueryStats, d time.Duration) {
	labels := prometheus.Labels{kindLabel: string(kind)}
	c.queries.With(labels).Inc()
	c.queryTime.With(labels).Observe(d.Seconds())
	c.objectsTested.With(labels).Add(float64(stats.Tested))
	c.objectsPassed.With(labels).Add(float64(stats.Passed))
	c.cacheHits.Add(float64(stats.CacheHits))
}

// RecordPromotion implements cullgrid.MetricsCollector.
func (c *Collector) RecordPromotion() { c.promotions.Inc() }

// RecordEviction implements cullgrid.MetricsCollector.
func (c *Collector) RecordEviction() { c.evictions.Inc() }

// RecordMigration implements cullgrid.MetricsCollector.
func (c *Collector) RecordMigration(moved int) { c.migratedObjects.Add(float64(moved)) }

var _ cullgrid.MetricsCollector = (*Collector)(nil)
