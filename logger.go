package versebase

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with versebase-specific fields.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithTable adds a table field to the logger.
func (l *Logger) WithTable(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("table", name),
	}
}

// WithID adds an id field to the logger.
func (l *Logger) WithID(id int32) *Logger {
	return &Logger{
		Logger: l.Logger.With("id", id),
	}
}

// LogCreate logs a create operation.
func (l *Logger) LogCreate(ctx context.Context, id int32, offset int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "create failed",
			"id", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "create completed",
			"id", id,
			"offset", offset,
		)
	}
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, id int32, err error) {
	if err != nil {
		l.DebugContext(ctx, "delete failed",
			"id", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "delete completed",
			"id", id,
		)
	}
}

// LogRebuild logs an index rebuild.
func (l *Logger) LogRebuild(ctx context.Context, rows int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index rebuild failed",
			"rows", rows,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "index rebuilt",
			"rows", rows,
			"elapsed", elapsed,
		)
	}
}

// LogBackup logs the backup of one table.
func (l *Logger) LogBackup(ctx context.Context, table string, raw, stored int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "backup failed",
			"table", table,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "table backed up",
			"table", table,
			"raw_bytes", raw,
			"stored_bytes", stored,
		)
	}
}

// LogRestore logs the restore of one table.
func (l *Logger) LogRestore(ctx context.Context, table string, raw int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "restore failed",
			"table", table,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "table restored",
			"table", table,
			"raw_bytes", raw,
		)
	}
}
