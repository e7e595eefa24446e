package recsort

import (
	"fmt"
	"math/bits"
	"os"
	"runtime"

	"github.com/lanrat/recsort/metrics"
	"github.com/lanrat/recsort/record"
)

// Config holds configuration settings for recsort
type Config struct {
	Workers            int          // goroutines for the data-parallel sort phases
	Buckets            int          // radix buckets per chunk, power of two
	ChunkRecords       int          // records per external sort chunk
	InMemoryLimit      int64        // inputs up to this many bytes are sorted without run files
	ReadBufferRecords  int          // records per merge source read buffer
	WriteBufferRecords int          // records per write buffer half
	MergeWorkers       int          // merge ranges processed concurrently
	MergeMemory        int64        // bytes of merge buffers allowed at once, 0 for unlimited
	IOQueueDepth       int          // request queue capacity of each I/O worker
	IOBytesPerSec      int64        // I/O rate cap per worker, 0 for unlimited
	ScratchDir         string       // empty for an automatically chosen directory
	RunFilePrefix      string       // filename prefix for run files put in the scratch directory
	Logger             *Logger      // nil for no logging
	Metrics            metrics.Sink // nil for no metrics
}

// DefaultConfig returns the default configuration options used if none provided
func DefaultConfig() *Config {
	return &Config{
		Workers:            runtime.GOMAXPROCS(0),
		Buckets:            256,
		ChunkRecords:       20_000_000,  // ~2GB per physical buffer
		InMemoryLimit:      8 << 30,     // 8GiB
		ReadBufferRecords:  40_000,      // ~4MB per source
		WriteBufferRecords: 100_000,     // ~10MB per half
		MergeWorkers:       8,
		MergeMemory:        0,
		IOQueueDepth:       16,
		IOBytesPerSec:      0,
		ScratchDir:         "",
		RunFilePrefix:      fmt.Sprintf("recsort_%d_", os.Getpid()),
		Logger:             NoopLogger(),
		Metrics:            metrics.Noop{},
	}
}

// mergeConfig takes a provided config and replaces any values not set with the defaults
func mergeConfig(c *Config) *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	merged := *c
	if merged.Workers <= 0 {
		merged.Workers = d.Workers
	}
	if merged.Buckets <= 0 {
		merged.Buckets = d.Buckets
	}
	if merged.ChunkRecords <= 0 {
		merged.ChunkRecords = d.ChunkRecords
	}
	if merged.InMemoryLimit <= 0 {
		merged.InMemoryLimit = d.InMemoryLimit
	}
	if merged.ReadBufferRecords <= 0 {
		merged.ReadBufferRecords = d.ReadBufferRecords
	}
	if merged.WriteBufferRecords <= 0 {
		merged.WriteBufferRecords = d.WriteBufferRecords
	}
	if merged.MergeWorkers <= 0 {
		merged.MergeWorkers = d.MergeWorkers
	}
	if merged.MergeMemory < 0 {
		merged.MergeMemory = d.MergeMemory
	}
	if merged.IOQueueDepth <= 0 {
		merged.IOQueueDepth = d.IOQueueDepth
	}
	if merged.IOBytesPerSec < 0 {
		merged.IOBytesPerSec = d.IOBytesPerSec
	}
	if merged.RunFilePrefix == "" {
		merged.RunFilePrefix = d.RunFilePrefix
	}
	if merged.Logger == nil {
		merged.Logger = d.Logger
	}
	if merged.Metrics == nil {
		merged.Metrics = d.Metrics
	}
	// skipping ScratchDir as the empty string selects a directory
	return &merged
}

// validate rejects settings the sort cannot run with.
func (c *Config) validate() error {
	if bits.OnesCount(uint(c.Buckets)) != 1 || c.Buckets > maxBuckets {
		return &ConfigError{Field: "Buckets", Value: c.Buckets, Reason: fmt.Sprintf("must be a power of two no larger than %d", maxBuckets)}
	}
	if int64(c.ChunkRecords) > maxSortRecords {
		return &ConfigError{Field: "ChunkRecords", Value: c.ChunkRecords, Reason: "record indexes are 32-bit"}
	}
	if c.MergeMemory > 0 && c.MergeMemory < c.rangeMemory(1) {
		return &ConfigError{Field: "MergeMemory", Value: c.MergeMemory, Reason: "smaller than the buffers of a single-source merge"}
	}
	return nil
}

// rangeMemory is the buffer footprint of merging one range with the given
// number of sources.
func (c *Config) rangeMemory(sources int) int64 {
	return int64(sources*c.ReadBufferRecords+2*c.WriteBufferRecords) * record.Size
}
