package recsort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanrat/recsort/metrics"
)

func TestMergeConfigDefaults(t *testing.T) {
	d := DefaultConfig()
	c := mergeConfig(nil)
	assert.Equal(t, d.Buckets, c.Buckets)
	assert.Equal(t, d.InMemoryLimit, c.InMemoryLimit)
	assert.NotNil(t, c.Logger)
	assert.NotNil(t, c.Metrics)

	c = mergeConfig(&Config{Workers: -1, Buckets: 64, InMemoryLimit: 1, MergeMemory: -5})
	assert.Equal(t, d.Workers, c.Workers)
	assert.Equal(t, 64, c.Buckets)
	assert.Equal(t, int64(1), c.InMemoryLimit)
	assert.Zero(t, c.MergeMemory)
	assert.Equal(t, d.ChunkRecords, c.ChunkRecords)
}

func TestMergeConfigDoesNotModifyInput(t *testing.T) {
	in := &Config{Buckets: 32}
	_ = mergeConfig(in)
	assert.Zero(t, in.Workers)
	assert.Nil(t, in.Metrics)
}

func TestSorterKeepsCustomSink(t *testing.T) {
	sink := &metrics.Basic{}
	s, err := New(&Config{Metrics: sink, Buckets: 1})
	require.NoError(t, err)
	assert.Same(t, sink, s.Config().Metrics)
	assert.Equal(t, 1, s.bucketer.Buckets())
}

func TestRangeMemory(t *testing.T) {
	c := &Config{ReadBufferRecords: 10, WriteBufferRecords: 5}
	assert.Equal(t, int64(3*10+2*5)*100, c.rangeMemory(3))
}
