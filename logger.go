package skygo

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with skygo-specific context.
// This provides structured logging with consistent field names.
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
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithID adds an ID field to the logger (useful for tagging operations).
func (l *Logger) WithID(id uint32) *Logger {
	return &Logger{
		Logger: l.Logger.With("id", id),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// LogInit logs a bulk initialization pass.
func (l *Logger) LogInit(count, layers int, err error) {
	if err != nil {
		l.Error("init failed",
			"count", count,
			"error", err,
		)
	} else {
		l.Debug("init completed",
			"count", count,
			"layers", layers,
		)
	}
}

// LogUpdate logs a re-layering pass.
func (l *Logger) LogUpdate(size, layers int, err error) {
	if err != nil {
		l.Error("update failed",
			"error", err,
		)
	} else {
		l.Debug("update completed",
			"size", size,
			"layers", layers,
		)
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(id uint32, dimension int, err error) {
	if err != nil {
		l.Error("insert failed",
			"id", id,
			"dimension", dimension,
			"error", err,
		)
	} else {
		l.Debug("insert completed",
			"id", id,
			"dimension", dimension,
		)
	}
}

// LogPruning logs a pruning precomputation pass.
func (l *Logger) LogPruning(combinations, size int, err error) {
	if err != nil {
		l.Error("pruning precomputation failed",
			"combinations", combinations,
			"error", err,
		)
	} else {
		l.Debug("pruning precomputation completed",
			"combinations", combinations,
			"size", size,
		)
	}
}

// LogSnapshot logs a snapshot save or load.
func (l *Logger) LogSnapshot(op string, size int, err error) {
	if err != nil {
		l.Error("snapshot failed",
			"op", op,
			"error", err,
		)
	} else {
		l.Info("snapshot completed",
			"op", op,
			"size", size,
		)
	}
}
