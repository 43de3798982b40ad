package cullgrid

import (
	"log/slog"

	"github.com/hupe1980/cullgrid/internal/cache"
)

const (
	// DefaultCellSize is the default grid cell edge length.
	DefaultCellSize = 64
	// DefaultCacheCapacity is the default number of cached grids.
	DefaultCacheCapacity = 8
	// DefaultMigrationBatchSize is the default number of entities examined
	// per cached grid per frame.
	DefaultMigrationBatchSize = 64
	// DefaultCachingThreshold is the default number of spatial hits a
	// filtered query needs to become a caching candidate.
	DefaultCachingThreshold = 256
)

type options struct {
	cellSize           float32
	cacheCapacity      int
	migrationBatchSize int
	cache              CacheConfig
	metricsCollector   MetricsCollector
	logger             *Logger
}

// Option configures an Index.
type Option func(*options)

// WithCellSize sets the grid cell edge length. Entities whose bounds do not
// fit a cell plus a quarter cell margin on each side go to the overflow
// cell, so the size should exceed the typical entity diameter.
func WithCellSize(size float32) Option {
	return func(o *options) {
		o.cellSize = size
	}
}

// WithCacheCapacity sets how many cached grids may exist at once.
// Zero disables caching.
func WithCacheCapacity(n int) Option {
	return func(o *options) {
		o.cacheCapacity = n
	}
}

// WithMigrationBatchSize sets how many entities each migrating cached grid
// examines per frame.
func WithMigrationBatchSize(n int) Option {
	return func(o *options) {
		o.migrationBatchSize = n
	}
}

// WithCachingThreshold sets the initial caching threshold. See CacheConfig.
func WithCachingThreshold(n int) Option {
	return func(o *options) {
		o.cache.CachingThreshold = n
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &cullgrid.BasicMetricsCollector{}
//	idx, _ := cullgrid.New(categories, cullgrid.WithMetricsCollector(metrics))
//	// ... use idx ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// CacheConfig is the runtime-tunable part of the configuration.
type CacheConfig struct {
	// CachingThreshold is the number of objects a filtered query must hit
	// before it is recorded as a caching candidate. Minimum 1.
	CachingThreshold int
}

func (c CacheConfig) validate() error {
	if c.CachingThreshold < 1 {
		return invalidArgument("caching threshold %d < 1", c.CachingThreshold)
	}
	return nil
}

func applyOptions(optFns []Option) options {
	o := options{
		cellSize:           DefaultCellSize,
		cacheCapacity:      DefaultCacheCapacity,
		migrationBatchSize: DefaultMigrationBatchSize,
		cache:              CacheConfig{CachingThreshold: DefaultCachingThreshold},
		metricsCollector:   NoopMetricsCollector{},
		logger:             NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}

func (o options) validate() error {
	if !(o.cellSize > 0) {
		return invalidArgument("cell size %v must be positive", o.cellSize)
	}
	if o.cacheCapacity < 0 {
		return invalidArgument("cache capacity %d < 0", o.cacheCapacity)
	}
	if o.migrationBatchSize < 1 {
		return invalidArgument("migration batch size %d < 1", o.migrationBatchSize)
	}
	return o.cache.validate()
}

func (o options) trackerConfig() cache.Config {
	cfg := cache.DefaultConfig()
	cfg.Capacity = o.cacheCapacity
	cfg.Threshold = o.cache.CachingThreshold
	return cfg
}
