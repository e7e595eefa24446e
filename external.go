package recsort

import (
	"context"
	"time"

	"github.com/lanrat/recsort/aio"
	"github.com/lanrat/recsort/rawio"
	"github.com/lanrat/recsort/record"
	"github.com/lanrat/recsort/tempfile"
)

// chunkedSort is the output of the chunk phase: the spilled runs, the final
// chunk kept sorted in memory, and one merge range per bucket covering the
// runs followed by the tail.
type chunkedSort struct {
	runs   []Run
	tail   record.Records
	ranges []MergeRange

	buffers [2]*rawio.Mapping
}

// release frees the physical chunk buffers, including the one holding tail.
func (c *chunkedSort) release() {
	for _, b := range c.buffers {
		if b != nil {
			_ = b.Close()
		}
	}
}

// sortChunks splits the count records of in into chunks. Chunk i+1 is read
// into the idle physical buffer while chunk i is sorted; every chunk but the
// last is written to a run file, the last is compacted into the other buffer
// and stays resident for the merge.
func (s *Sorter) sortChunks(ctx context.Context, in *rawio.File, count int64, scratch *tempfile.Scratch) (*chunkedSort, error) {
	chunk := min(int64(s.config.ChunkRecords), count)
	chunks := int((count + chunk - 1) / chunk)
	span := func(i int) (int64, int) {
		off := int64(i) * chunk
		return off, int(min(chunk, count-off))
	}

	res := &chunkedSort{ranges: make([]MergeRange, s.bucketer.Buckets())}
	for i := range res.buffers {
		m, err := rawio.Alloc(int(chunk))
		if err != nil {
			res.release()
			return nil, NewDiskError(err, "allocate chunk buffer", "")
		}
		res.buffers[i] = m
	}
	sorted := make([]record.SortRecord, chunk)

	if err := in.Advise(0, 0, rawio.AdviceSequential); err != nil {
		s.config.Logger.WarnContext(ctx, "fadvise failed", "path", in.Name(), "error", err)
	}
	worker := aio.Start(aio.Config{
		QueueDepth:  s.config.IOQueueDepth,
		BytesPerSec: s.config.IOBytesPerSec,
		Metrics:     s.config.Metrics,
	})
	defer worker.Close()
	readDone := make(chan aio.Completion, 1)
	// a read may still target a chunk buffer; join the worker before unmapping
	fail := func(err error) (*chunkedSort, error) {
		worker.Close()
		res.release()
		return nil, err
	}

	readChunk := func(i int) {
		off, n := span(i)
		worker.Submit(aio.Read(in, res.buffers[i%2].Records().Slice(0, n), off, readDone))
	}

	readChunk(0)
	for i := 0; i < chunks; i++ {
		off, n := span(i)
		cur := res.buffers[i%2].Records().Slice(0, n)
		if c := <-readDone; c.Err != nil {
			return fail(NewDiskError(c.Err, "read chunk", in.Name()))
		}
		// the other buffer is free: its chunk was fully written out last round
		if i+1 < chunks {
			readChunk(i + 1)
		}
		_ = in.Advise(off*record.Size, int64(n)*record.Size, rawio.AdviceDontNeed)

		start := time.Now()
		groups, err := s.bucketer.Sort(ctx, cur, sorted)
		if err != nil {
			return fail(err)
		}
		for b, g := range groups {
			res.ranges[b].Groups = append(res.ranges[b].Groups, g)
		}
		s.config.Metrics.RecordPhase("sort", time.Since(start))
		s.config.Logger.LogPhase(ctx, "sort chunk", int64(n), time.Since(start))

		if i == chunks-1 {
			res.tail = res.buffers[(i+1)%2].Records().Slice(0, n)
			if err := Gather(ctx, cur, sorted[:n], res.tail, s.config.Workers); err != nil {
				return fail(err)
			}
			break
		}

		run, err := s.writeRun(ctx, worker, cur, sorted[:n], scratch.RunPath(i))
		if err != nil {
			return fail(err)
		}
		res.runs = append(res.runs, run)
	}
	return res, nil
}

// writeRun streams the records of chunk in sorted order to a new run file
// through a double-buffered writer on worker.
func (s *Sorter) writeRun(ctx context.Context, worker *aio.Worker, chunk record.Records, sorted []record.SortRecord, path string) (Run, error) {
	start := time.Now()
	f, err := rawio.Create(path)
	if err != nil {
		return Run{}, NewDiskError(err, "create run", path)
	}
	defer f.Close()
	if err := f.Preallocate(int64(len(sorted)) * record.Size); err != nil {
		return Run{}, NewDiskError(err, "preallocate run", path)
	}

	wb := NewWriteBuffer(f, worker, min(s.config.WriteBufferRecords, len(sorted)), 0)
	for _, sr := range sorted {
		if err := wb.Put(chunk.At(int(sr.Index))); err != nil {
			return Run{}, NewDiskError(err, "write run", path)
		}
	}
	if err := wb.Close(); err != nil {
		return Run{}, NewDiskError(err, "write run", path)
	}
	// the run is not read again until the merge; keep it out of the page cache
	_ = f.Advise(0, 0, rawio.AdviceDontNeed)
	if err := f.Close(); err != nil {
		return Run{}, NewDiskError(err, "close run", path)
	}

	run := Run{Path: path, Count: int64(len(sorted))}
	s.config.Metrics.RecordPhase("write run", time.Since(start))
	s.config.Logger.LogRun(ctx, run)
	return run, nil
}
