package cullgrid

import (
	"log/slog"
	"os"

	"github.com/hupe1980/cullgrid/internal/cache"
)

// Logger wraps slog.Logger with index-specific helpers.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// WithIndexID adds the index instance id.
func (l *Logger) WithIndexID(id string) *Logger {
	return &Logger{Logger: l.Logger.With("index_id", id)}
}

// WithCategory adds a category name.
func (l *Logger) WithCategory(name string) *Logger {
	return &Logger{Logger: l.Logger.With("category", name)}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(h Handle, grids uint64, err error) {
	if err != nil {
		l.Error("insert failed", "error", err)
		return
	}
	l.Debug("insert completed", "handle", h, "grids", grids)
}

// LogRemove logs a remove operation.
func (l *Logger) LogRemove(h Handle, err error) {
	if err != nil {
		l.Error("remove failed", "handle", h, "error", err)
		return
	}
	l.Debug("remove completed", "handle", h)
}

// LogPromotion logs a candidate promoted to a cached grid.
func (l *Logger) LogPromotion(k cache.Key, slot int, score float64) {
	l.Info("cache grid promoted",
		"slot", slot,
		"include", k.Include.String(),
		"exclude", k.Exclude.String(),
		"score", score,
	)
}

// LogEviction logs a cached grid freed.
func (l *Logger) LogEviction(k cache.Key, slot int) {
	l.Info("cache grid evicted",
		"slot", slot,
		"include", k.Include.String(),
		"exclude", k.Exclude.String(),
	)
}

// LogMigrationComplete logs a cached grid that finished populating.
func (l *Logger) LogMigrationComplete(slot, objects int, frames uint64) {
	l.Debug("cache grid migration completed",
		"slot", slot,
		"objects", objects,
		"frames", frames,
	)
}

// LogCacheFlush logs a configuration-triggered flush.
func (l *Logger) LogCacheFlush(freed, threshold int) {
	l.Info("cache grids flushed",
		"freed", freed,
		"caching_threshold", threshold,
	)
}
