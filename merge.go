package recsort

import (
	"cmp"
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/lanrat/recsort/aio"
	"github.com/lanrat/recsort/queue"
	"github.com/lanrat/recsort/rawio"
	"github.com/lanrat/recsort/record"
)

// Run is a sorted run persisted to a scratch file.
type Run struct {
	Path  string
	Count int64
}

// MergeRange is one bucket-aligned slice of every source that merges into
// output records [WriteStart, WriteStart+Size()). Groups holds one entry per
// source, in source order.
type MergeRange struct {
	Groups     []record.GroupData
	WriteStart int64
}

// Size returns the number of records the range produces.
func (r MergeRange) Size() int64 {
	var n int64
	for _, g := range r.Groups {
		n += g.Count
	}
	return n
}

// computeWriteOffsets lays the ranges out back to back in output order.
func computeWriteOffsets(ranges []MergeRange) int64 {
	var start int64
	for i := range ranges {
		ranges[i].WriteStart = start
		start += ranges[i].Size()
	}
	return start
}

// Merger runs k-way merges of sorted sources.
type Merger struct {
	config Config
}

// NewMerger returns a Merger. config can be nil to use the defaults.
func NewMerger(config *Config) (*Merger, error) {
	c := mergeConfig(config)
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &Merger{config: *c}, nil
}

// Merge merges every range into out. Ranges are independent: bucket
// boundaries never straddle the global order, so they run in parallel with
// no coordination beyond their WriteStart. Larger ranges are started first.
func (m *Merger) Merge(ctx context.Context, sources []rawio.ReaderAt, ranges []MergeRange, out rawio.WriterAt) error {
	start := time.Now()
	pq := queue.NewPriorityQueue(func(a, b MergeRange) int {
		return cmp.Compare(b.Size(), a.Size())
	})
	var total int64
	for i, r := range ranges {
		if len(r.Groups) != len(sources) {
			return &InvariantError{What: fmt.Sprintf("merge range %d has %d groups for %d sources", i, len(r.Groups), len(sources)), Value: len(r.Groups)}
		}
		if r.Size() > 0 {
			pq.Push(r)
			total += r.Size()
		}
	}

	var mem *semaphore.Weighted
	if m.config.MergeMemory > 0 {
		mem = semaphore.NewWeighted(m.config.MergeMemory)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.MergeWorkers)
	for pq.Len() > 0 {
		r := pq.Pop()
		weight := m.weight(r)
		if mem != nil {
			if err := mem.Acquire(gctx, weight); err != nil {
				break
			}
		}
		g.Go(func() error {
			if mem != nil {
				defer mem.Release(weight)
			}
			return m.mergeRange(gctx, sources, r, out)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.config.Metrics.RecordPhase("merge", time.Since(start))
	m.config.Logger.LogPhase(ctx, "merge", total, time.Since(start))
	return nil
}

// weight is the share of MergeMemory a range holds while it runs. A range
// needing more than the whole budget runs alone.
func (m *Merger) weight(r MergeRange) int64 {
	sources := 0
	for _, g := range r.Groups {
		if g.Count > 0 {
			sources++
		}
	}
	w := m.config.rangeMemory(sources)
	if m.config.MergeMemory > 0 && w > m.config.MergeMemory {
		w = m.config.MergeMemory
	}
	return w
}

// mergeRange merges one range with its own I/O worker. M is small, so the
// smallest head is found by a linear scan rather than a heap.
func (m *Merger) mergeRange(ctx context.Context, sources []rawio.ReaderAt, r MergeRange, out rawio.WriterAt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	worker := aio.Start(aio.Config{
		QueueDepth:  m.config.IOQueueDepth,
		BytesPerSec: m.config.IOBytesPerSec,
		Metrics:     m.config.Metrics,
	})
	defer worker.Close()
	done := make(chan aio.Completion, 1)
	refill := func(b *ReadBuffer) (int, error) {
		worker.Submit(aio.Refill(b, b.Capacity(), done))
		c := <-done
		return c.Count, c.Err
	}

	active := make([]*ReadBuffer, 0, len(sources))
	keys := make([]record.Key, 0, len(sources))
	for i, grp := range r.Groups {
		if grp.Count == 0 {
			continue
		}
		b := NewReadBuffer(sources[i], int(min(int64(m.config.ReadBufferRecords), grp.Count)), grp)
		n, err := refill(b)
		if err != nil {
			return err
		}
		if n > 0 {
			active = append(active, b)
			keys = append(keys, b.Key())
		}
	}

	size := r.Size()
	wb := NewWriteBuffer(out, worker, int(min(int64(m.config.WriteBufferRecords), size)), r.WriteStart)
	for len(active) > 0 {
		best := 0
		for i := 1; i < len(keys); i++ {
			if record.Less(keys[i], keys[best]) {
				best = i
			}
		}
		src := active[best]
		if err := wb.Put(src.Load()); err != nil {
			return err
		}
		src.Advance()
		if src.NeedsRefill() {
			n, err := refill(src)
			if err != nil {
				return err
			}
			if n == 0 {
				active = append(active[:best], active[best+1:]...)
				keys = append(keys[:best], keys[best+1:]...)
				continue
			}
		}
		keys[best] = src.Key()
	}
	if err := wb.Close(); err != nil {
		return err
	}
	if wb.Written() != size {
		return &InvariantError{What: fmt.Sprintf("merge range at %d wrote %d of %d records", r.WriteStart, wb.Written(), size), Value: wb.Written()}
	}
	return nil
}

// PartitionRuns splits whole sorted sources into bucket-aligned merge ranges
// by binary searching every source for the first record of each bucket.
// counts[i] is the number of records in sources[i].
func PartitionRuns(ctx context.Context, sources []rawio.ReaderAt, counts []int64, b *Bucketer) ([]MergeRange, error) {
	if len(sources) != len(counts) {
		return nil, &InvariantError{What: "one record count per source", Value: len(counts)}
	}
	buckets := b.Buckets()
	ranges := make([]MergeRange, buckets)
	for i := range ranges {
		ranges[i].Groups = make([]record.GroupData, len(sources))
	}

	g, gctx := errgroup.WithContext(ctx)
	for s, src := range sources {
		g.Go(func() error {
			rec := record.MakeRecords(1)
			var searchErr error
			bucketAt := func(i int64) int {
				if searchErr != nil {
					return buckets
				}
				if err := src.ReadRecordsAt(rec, i); err != nil {
					searchErr = err
					return buckets
				}
				return b.Bucket(rec.Key(0))
			}
			var lo int64
			for bucket := 0; bucket < buckets; bucket++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				hi := counts[s]
				if bucket < buckets-1 {
					// first record past this bucket, searching only after lo
					n := sort.Search(int(counts[s]-lo), func(i int) bool {
						return bucketAt(lo+int64(i)) > bucket
					})
					hi = lo + int64(n)
				}
				if searchErr != nil {
					return searchErr
				}
				ranges[bucket].Groups[s] = record.GroupData{Start: lo, Count: hi - lo}
				lo = hi
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	computeWriteOffsets(ranges)
	return ranges, nil
}
