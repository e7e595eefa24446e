package metrics_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/lanrat/recsort/metrics"
)

func TestBasicConcurrent(t *testing.T) {
	var b metrics.Basic
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.RecordRead(100, time.Microsecond)
				b.RecordWrite(200, time.Microsecond)
			}
		}()
	}
	wg.Wait()
	b.RecordPhase("merge", time.Second)

	s := b.Snapshot()
	require.EqualValues(t, 800, s.Reads)
	require.EqualValues(t, 80000, s.ReadBytes)
	require.EqualValues(t, 800, s.Writes)
	require.EqualValues(t, 160000, s.WriteBytes)
	require.Equal(t, 800*time.Microsecond, s.WriteTime)
	require.EqualValues(t, 1, s.Phases)
	require.Equal(t, time.Second, s.PhaseTime)
}

func TestPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := metrics.NewPrometheus(reg)
	require.NoError(t, err)

	var sink metrics.Sink = p
	sink.RecordRead(1000, time.Millisecond)
	sink.RecordRead(24, time.Millisecond)
	sink.RecordWrite(512, time.Millisecond)
	sink.RecordPhase("sort", time.Second)

	expected := `
# HELP recsort_io_bytes_total Bytes transferred by the I/O workers.
# TYPE recsort_io_bytes_total counter
recsort_io_bytes_total{op="read"} 1024
recsort_io_bytes_total{op="write"} 512
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "recsort_io_bytes_total"))
	n, err := testutil.GatherAndCount(reg, "recsort_phase_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// registering twice on the same registry fails
	_, err = metrics.NewPrometheus(reg)
	require.Error(t, err)
}
