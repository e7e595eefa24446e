package recsort

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lanrat/recsort/record"
)

// Logger wraps slog.Logger with consistent field names for sort progress.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses a text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// WithPath tags the logger with a file path.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{Logger: l.Logger.With("path", path)}
}

// LogPhase logs the end of a sort phase with its record volume.
func (l *Logger) LogPhase(ctx context.Context, phase string, records int64, elapsed time.Duration) {
	l.DebugContext(ctx, "phase completed",
		"phase", phase,
		"records", humanize.Comma(records),
		"bytes", humanize.IBytes(uint64(records)*record.Size),
		"elapsed", elapsed,
	)
}

// LogRun logs a run file that has been written.
func (l *Logger) LogRun(ctx context.Context, run Run) {
	l.InfoContext(ctx, "run written",
		"path", run.Path,
		"records", humanize.Comma(run.Count),
		"bytes", humanize.IBytes(uint64(run.Count)*record.Size),
	)
}

// LogSort logs the outcome of a complete sort.
func (l *Logger) LogSort(ctx context.Context, in, out string, records int64, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "sort failed",
			"input", in,
			"output", out,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "sort completed",
		"input", in,
		"output", out,
		"records", humanize.Comma(records),
		"bytes", humanize.IBytes(uint64(records)*record.Size),
		"elapsed", elapsed,
	)
}
