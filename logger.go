package skipgrid

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/skipgrid/model"
	"github.com/hupe1980/skipgrid/optimizer"
)

// Logger wraps slog.Logger with skipgrid-specific context.
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

// WithEpoch adds an epoch field to the logger.
func (l *Logger) WithEpoch(epoch int) *Logger {
	return &Logger{
		Logger: l.Logger.With("epoch", epoch),
	}
}

// LogStep logs one completed scheduler step.
func (l *Logger) LogStep(ctx context.Context, key model.StepKey, lr float64, loss optimizer.Loss, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "step failed",
			"step", key.String(),
			"learning_rate", lr,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "step completed",
		"step", key.String(),
		"learning_rate", lr,
		"pairs", loss.Pairs,
		"skipped", loss.Skipped,
		"mean_loss", loss.Mean(),
		"duration_ms", duration.Milliseconds(),
	)
}

// LogCheckpoint logs a checkpoint save.
func (l *Logger) LogCheckpoint(ctx context.Context, key model.StepKey, records int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "checkpoint failed",
			"step", key.String(),
			"records", records,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "checkpoint saved",
		"step", key.String(),
		"records", records,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogResume logs a successful resume from a checkpoint.
func (l *Logger) LogResume(ctx context.Context, key model.StepKey, records int) {
	l.InfoContext(ctx, "resuming from checkpoint",
		"step", key.String(),
		"records", records,
	)
}
