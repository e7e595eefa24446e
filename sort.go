// Package recsort sorts files of fixed-size 100-byte records by their
// 10-byte key. Inputs that fit in memory are radix bucketed and sorted in
// parallel in place of a memory map; larger inputs are sorted in chunks that
// spill to run files and are then combined by bucket-aligned parallel k-way
// merges.
//
// recsort is not a stable sort. On error the output is incomplete and run
// files may remain in the scratch directory.
package recsort

import (
	"context"
	"path/filepath"
	"time"

	"github.com/lanrat/recsort/rawio"
	"github.com/lanrat/recsort/record"
	"github.com/lanrat/recsort/tempfile"
)

// Sorter sorts record files.
type Sorter struct {
	config   Config
	bucketer *Bucketer
	merger   *Merger
}

// New returns a Sorter. config can be nil to use the defaults, or only set
// the non-default values desired.
func New(config *Config) (*Sorter, error) {
	c := mergeConfig(config)
	if err := c.validate(); err != nil {
		return nil, err
	}
	b, err := NewBucketer(c.Buckets, c.Workers)
	if err != nil {
		return nil, err
	}
	return &Sorter{
		config:   *c,
		bucketer: b,
		merger:   &Merger{config: *c},
	}, nil
}

// Config returns the effective configuration.
func (s *Sorter) Config() Config {
	return s.config
}

// Sort reads the records of inPath and writes them to outPath in key order.
func (s *Sorter) Sort(ctx context.Context, inPath, outPath string) error {
	start := time.Now()
	count, err := s.sort(ctx, inPath, outPath)
	s.config.Logger.LogSort(ctx, inPath, outPath, count, time.Since(start), err)
	return err
}

func (s *Sorter) sort(ctx context.Context, inPath, outPath string) (int64, error) {
	if samePath(inPath, outPath) {
		return 0, &ConfigError{Field: "output", Value: outPath, Reason: "output must differ from input"}
	}
	in, err := rawio.Open(inPath)
	if err != nil {
		return 0, NewDiskError(err, "open input", inPath)
	}
	defer in.Close()
	size, err := in.Size()
	if err != nil {
		return 0, NewDiskError(err, "stat input", inPath)
	}
	if size%record.Size != 0 {
		return 0, &FormatError{Path: inPath, Size: size}
	}
	count := size / record.Size

	switch {
	case count == 0:
		err = writeEmpty(outPath)
	case size <= s.config.InMemoryLimit:
		err = s.sortInMemory(ctx, in, count, outPath)
	default:
		err = s.sortExternal(ctx, in, count, outPath)
	}
	return count, err
}

func samePath(a, b string) bool {
	aa, err := filepath.Abs(a)
	if err != nil {
		return false
	}
	bb, err := filepath.Abs(b)
	if err != nil {
		return false
	}
	return aa == bb
}

func writeEmpty(path string) error {
	f, err := rawio.Create(path)
	if err != nil {
		return NewDiskError(err, "create output", path)
	}
	if err := f.Close(); err != nil {
		return NewDiskError(err, "close output", path)
	}
	return nil
}

// createOutput creates path preallocated for count records.
func createOutput(path string, count int64) (*rawio.File, error) {
	out, err := rawio.Create(path)
	if err != nil {
		return nil, NewDiskError(err, "create output", path)
	}
	if err := out.Preallocate(count * record.Size); err != nil {
		out.Close()
		return nil, NewDiskError(err, "preallocate output", path)
	}
	return out, nil
}

// sortInMemory maps the input, sorts (key, index) pairs and copies the
// payloads into a mapping of the output by indirection.
func (s *Sorter) sortInMemory(ctx context.Context, in *rawio.File, count int64, outPath string) error {
	size := count * record.Size
	src, err := rawio.Map(in, size, false)
	if err != nil {
		return NewDiskError(err, "map input", in.Name())
	}
	defer src.Close()
	_ = src.Advise(rawio.AdviceSequential)

	start := time.Now()
	sorted := make([]record.SortRecord, count)
	if _, err := s.bucketer.Sort(ctx, src.Records(), sorted); err != nil {
		return err
	}
	s.config.Metrics.RecordPhase("sort", time.Since(start))
	s.config.Logger.LogPhase(ctx, "sort", count, time.Since(start))

	start = time.Now()
	out, err := createOutput(outPath, count)
	if err != nil {
		return err
	}
	defer out.Close()
	dst, err := rawio.Map(out, size, true)
	if err != nil {
		return NewDiskError(err, "map output", outPath)
	}
	// the gather reads the input in key order
	_ = src.Advise(rawio.AdviceRandom)
	_ = dst.Advise(rawio.AdviceSequential)
	if err := Gather(ctx, src.Records(), sorted, dst.Records(), s.config.Workers); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return NewDiskError(err, "unmap output", outPath)
	}
	if err := out.Close(); err != nil {
		return NewDiskError(err, "close output", outPath)
	}
	s.config.Metrics.RecordPhase("write", time.Since(start))
	s.config.Logger.LogPhase(ctx, "write", count, time.Since(start))
	return nil
}

// sortExternal spills sorted chunks to run files and merges them with the
// resident final chunk into the output.
func (s *Sorter) sortExternal(ctx context.Context, in *rawio.File, count int64, outPath string) error {
	scratch, err := tempfile.NewScratch(s.config.ScratchDir, s.config.RunFilePrefix)
	if err != nil {
		return NewDiskError(err, "create scratch directory", s.config.ScratchDir)
	}
	chunks, err := s.sortChunks(ctx, in, count, scratch)
	if err != nil {
		return err
	}
	defer chunks.release()

	if total := computeWriteOffsets(chunks.ranges); total != count {
		return &InvariantError{What: "merge ranges do not cover the input", Value: total}
	}

	sources := make([]rawio.ReaderAt, 0, len(chunks.runs)+1)
	for _, run := range chunks.runs {
		f, err := rawio.Open(run.Path)
		if err != nil {
			return NewDiskError(err, "open run", run.Path)
		}
		defer f.Close()
		_ = f.Advise(0, 0, rawio.AdviceSequential)
		sources = append(sources, f)
	}
	sources = append(sources, rawio.NewMem(chunks.tail))

	out, err := createOutput(outPath, count)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := s.merger.Merge(ctx, sources, chunks.ranges, out); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return NewDiskError(err, "close output", outPath)
	}
	return scratch.Remove()
}

// MergeFiles merges already sorted record files into outPath. The runs are
// partitioned into bucket ranges by binary search so the merge runs in
// parallel like the one following a chunked sort.
func (s *Sorter) MergeFiles(ctx context.Context, paths []string, outPath string) error {
	sources := make([]rawio.ReaderAt, 0, len(paths))
	counts := make([]int64, 0, len(paths))
	var total int64
	for _, p := range paths {
		f, err := rawio.Open(p)
		if err != nil {
			return NewDiskError(err, "open run", p)
		}
		defer f.Close()
		size, err := f.Size()
		if err != nil {
			return NewDiskError(err, "stat run", p)
		}
		if size%record.Size != 0 {
			return &FormatError{Path: p, Size: size}
		}
		sources = append(sources, f)
		counts = append(counts, size/record.Size)
		total += size / record.Size
	}

	ranges, err := PartitionRuns(ctx, sources, counts, s.bucketer)
	if err != nil {
		return err
	}
	out, err := createOutput(outPath, total)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := s.merger.Merge(ctx, sources, ranges, out); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return NewDiskError(err, "close output", outPath)
	}
	return nil
}
