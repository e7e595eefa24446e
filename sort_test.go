package recsort

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanrat/recsort/metrics"
	"github.com/lanrat/recsort/record"
)

func writeRecords(t *testing.T, path string, r record.Records) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, r.Bytes(), 0o644))
}

func readRecords(t *testing.T, path string) record.Records {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Zero(t, len(data)%record.Size, "output length %d is not whole records", len(data))
	return record.Records(data)
}

// externalConfig forces the chunked path with small buffers.
func externalConfig(t *testing.T, chunk int) *Config {
	return &Config{
		Workers:            4,
		Buckets:            16,
		ChunkRecords:       chunk,
		InMemoryLimit:      1,
		ReadBufferRecords:  100,
		WriteBufferRecords: 64,
		MergeWorkers:       4,
		ScratchDir:         t.TempDir(),
		RunFilePrefix:      "test_",
	}
}

func TestSortDescendingKeys(t *testing.T) {
	dir := t.TempDir()
	in := record.MakeRecords(10)
	for i := 0; i < 10; i++ {
		rec := in.At(i)
		copy(rec, fmt.Sprintf("%010d", 9-i))
		copy(rec[record.KeySize:], fmt.Sprintf("payload of %d", 9-i))
	}
	inPath := filepath.Join(dir, "in")
	outPath := filepath.Join(dir, "out")
	writeRecords(t, inPath, in)

	s, err := New(nil)
	require.NoError(t, err)
	require.NoError(t, s.Sort(context.Background(), inPath, outPath))

	out := readRecords(t, outPath)
	require.Equal(t, 10, out.Len())
	for i := 0; i < 10; i++ {
		rec := out.At(i)
		assert.Equal(t, fmt.Sprintf("%010d", i), string(rec[:record.KeySize]))
		payload := fmt.Sprintf("payload of %d", i)
		assert.Equal(t, payload, string(rec[record.KeySize:record.KeySize+len(payload)]))
	}
}

func TestSortEmptyInput(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in")
	outPath := filepath.Join(dir, "out")
	writeRecords(t, inPath, nil)

	s, err := New(nil)
	require.NoError(t, err)
	require.NoError(t, s.Sort(context.Background(), inPath, outPath))

	st, err := os.Stat(outPath)
	require.NoError(t, err)
	assert.Zero(t, st.Size())
}

func TestSortSingleRecord(t *testing.T) {
	for name, config := range map[string]*Config{
		"memory":   nil,
		"external": externalConfig(t, 8),
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			in := randomRecords(rand.New(rand.NewSource(1)), 1)
			inPath := filepath.Join(dir, "in")
			outPath := filepath.Join(dir, "out")
			writeRecords(t, inPath, in)

			s, err := New(config)
			require.NoError(t, err)
			require.NoError(t, s.Sort(context.Background(), inPath, outPath))
			assert.Equal(t, in.Bytes(), readRecords(t, outPath).Bytes())
		})
	}
}

func TestSortFormatError(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in")
	require.NoError(t, os.WriteFile(inPath, make([]byte, 250), 0o644))

	s, err := New(nil)
	require.NoError(t, err)
	err = s.Sort(context.Background(), inPath, filepath.Join(dir, "out"))
	var formatErr *FormatError
	require.True(t, errors.As(err, &formatErr), "expected a FormatError, got %v", err)
	assert.Equal(t, int64(250), formatErr.Size)
}

func TestSortMissingInput(t *testing.T) {
	dir := t.TempDir()
	s, err := New(nil)
	require.NoError(t, err)
	err = s.Sort(context.Background(), filepath.Join(dir, "missing"), filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSortSamePath(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in")
	writeRecords(t, inPath, numbered(3))

	s, err := New(nil)
	require.NoError(t, err)
	err = s.Sort(context.Background(), inPath, filepath.Join(dir, ".", "in"))
	var configErr *ConfigError
	require.True(t, errors.As(err, &configErr), "expected a ConfigError, got %v", err)
}

func TestSortInMemory(t *testing.T) {
	dir := t.TempDir()
	in := randomRecords(rand.New(rand.NewSource(3)), 50000)
	inPath := filepath.Join(dir, "in")
	outPath := filepath.Join(dir, "out")
	writeRecords(t, inPath, in)

	s, err := New(&Config{Workers: 4})
	require.NoError(t, err)
	require.NoError(t, s.Sort(context.Background(), inPath, outPath))
	checkPermutation(t, in, readRecords(t, outPath))
}

func TestSortExternal(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	in := concatRecords(randomRecords(rng, 15000), skewedRecords(rng, 5000))

	for _, chunk := range []int{1000, 4096, 7777, 20000, 50000} {
		t.Run(fmt.Sprintf("chunk=%d", chunk), func(t *testing.T) {
			dir := t.TempDir()
			inPath := filepath.Join(dir, "in")
			outPath := filepath.Join(dir, "out")
			writeRecords(t, inPath, in)

			config := externalConfig(t, chunk)
			s, err := New(config)
			require.NoError(t, err)
			require.NoError(t, s.Sort(context.Background(), inPath, outPath))
			checkPermutation(t, in, readRecords(t, outPath))

			left, err := os.ReadDir(config.ScratchDir)
			require.NoError(t, err)
			assert.Empty(t, left, "run files left in the scratch directory")
		})
	}
}

func TestSortExternalMatchesInMemory(t *testing.T) {
	dir := t.TempDir()
	in := randomRecords(rand.New(rand.NewSource(9)), 12345)
	inPath := filepath.Join(dir, "in")
	writeRecords(t, inPath, in)

	mem, err := New(nil)
	require.NoError(t, err)
	require.NoError(t, mem.Sort(context.Background(), inPath, filepath.Join(dir, "mem")))

	config := externalConfig(t, 2000)
	config.MergeMemory = mergeConfig(config).rangeMemory(4)
	ext, err := New(config)
	require.NoError(t, err)
	require.NoError(t, ext.Sort(context.Background(), inPath, filepath.Join(dir, "ext")))

	a := readRecords(t, filepath.Join(dir, "mem"))
	b := readRecords(t, filepath.Join(dir, "ext"))
	assert.True(t, bytes.Equal(a, b), "in-memory and external outputs differ")
}

func TestSortIdempotent(t *testing.T) {
	dir := t.TempDir()
	in := randomRecords(rand.New(rand.NewSource(13)), 5000)
	writeRecords(t, filepath.Join(dir, "in"), in)

	s, err := New(externalConfig(t, 1500))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Sort(ctx, filepath.Join(dir, "in"), filepath.Join(dir, "once")))
	require.NoError(t, s.Sort(ctx, filepath.Join(dir, "once"), filepath.Join(dir, "twice")))

	once := readRecords(t, filepath.Join(dir, "once"))
	twice := readRecords(t, filepath.Join(dir, "twice"))
	assert.True(t, bytes.Equal(once, twice), "sorting sorted output changed it")
}

func TestSortRecordsMetrics(t *testing.T) {
	dir := t.TempDir()
	in := randomRecords(rand.New(rand.NewSource(17)), 3000)
	writeRecords(t, filepath.Join(dir, "in"), in)

	sink := &metrics.Basic{}
	config := externalConfig(t, 1000)
	config.Metrics = sink
	s, err := New(config)
	require.NoError(t, err)
	require.NoError(t, s.Sort(context.Background(), filepath.Join(dir, "in"), filepath.Join(dir, "out")))

	snap := sink.Snapshot()
	// three chunks are read; two runs and the output are written
	assert.GreaterOrEqual(t, snap.ReadBytes, int64(in.Len())*record.Size)
	assert.Equal(t, int64(in.Len())*record.Size+2000*record.Size, snap.WriteBytes)
	assert.Positive(t, snap.Phases)
}

func TestSortCancelled(t *testing.T) {
	dir := t.TempDir()
	writeRecords(t, filepath.Join(dir, "in"), randomRecords(rand.New(rand.NewSource(19)), 20000))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for name, config := range map[string]*Config{
		"memory":   nil,
		"external": externalConfig(t, 5000),
	} {
		t.Run(name, func(t *testing.T) {
			s, err := New(config)
			require.NoError(t, err)
			err = s.Sort(ctx, filepath.Join(dir, "in"), filepath.Join(dir, "out-"+name))
			assert.True(t, errors.Is(err, context.Canceled), "expected context.Canceled, got %v", err)
		})
	}
}

func TestMergeFiles(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(23))
	// two runs of 1MB each
	a := sortedCopy(randomRecords(rng, 10000))
	b := sortedCopy(randomRecords(rng, 10000))
	writeRecords(t, filepath.Join(dir, "a"), a)
	writeRecords(t, filepath.Join(dir, "b"), b)
	writeRecords(t, filepath.Join(dir, "empty"), nil)

	s, err := New(&Config{Buckets: 64, ReadBufferRecords: 500, WriteBufferRecords: 300})
	require.NoError(t, err)
	paths := []string{filepath.Join(dir, "a"), filepath.Join(dir, "empty"), filepath.Join(dir, "b")}
	require.NoError(t, s.MergeFiles(context.Background(), paths, filepath.Join(dir, "out")))

	want := sortedCopy(concatRecords(a, b))
	got := readRecords(t, filepath.Join(dir, "out"))
	assert.True(t, bytes.Equal(want, got), "merged output differs from a full sort")
}

func TestNewRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		config *Config
		field  string
	}{
		{"buckets not a power of two", &Config{Buckets: 3}, "Buckets"},
		{"too many buckets", &Config{Buckets: 1 << 17}, "Buckets"},
		{"chunk over index range", &Config{ChunkRecords: 1<<32 + 1}, "ChunkRecords"},
		{"merge memory below one range", &Config{MergeMemory: 1}, "MergeMemory"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.config)
			var configErr *ConfigError
			require.True(t, errors.As(err, &configErr), "expected a ConfigError, got %v", err)
			assert.Equal(t, tc.field, configErr.Field)
		})
	}
}
