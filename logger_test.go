package recsort

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := context.Background()

	l.LogRun(ctx, Run{Path: "/tmp/run-0000", Count: 20_000_000})
	assert.Contains(t, buf.String(), "records=20,000,000")
	assert.Contains(t, buf.String(), `bytes="1.9 GiB"`)

	buf.Reset()
	l.WithPath("in").LogPhase(ctx, "sort", 1000, time.Second)
	assert.Contains(t, buf.String(), "phase=sort")
	assert.Contains(t, buf.String(), "path=in")

	buf.Reset()
	l.LogSort(ctx, "in", "out", 0, 0, errors.New("boom"))
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "error=boom")
}

func TestNoopLoggerDiscards(t *testing.T) {
	l := NoopLogger()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
}
