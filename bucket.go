package recsort

import (
	"context"
	"encoding/binary"
	"math/bits"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/lanrat/recsort/record"
)

const (
	maxBuckets     = 1 << 16
	maxSortRecords = 1 << 32
	// below this many records per worker the parallel phases are not worth it
	minRecordsPerWorker = 4096
)

// Bucketer partitions records into buckets by the high-order bits of their
// key and radix sorts every bucket in parallel. Reading the buckets in index
// order yields the records in sorted order.
type Bucketer struct {
	buckets int
	shift   uint
	workers int
}

// NewBucketer returns a Bucketer with the given power-of-two bucket count
// running its phases on up to workers goroutines.
func NewBucketer(buckets, workers int) (*Bucketer, error) {
	if buckets <= 0 || bits.OnesCount(uint(buckets)) != 1 || buckets > maxBuckets {
		return nil, &ConfigError{Field: "Buckets", Value: buckets, Reason: "must be a power of two no larger than 65536"}
	}
	if workers <= 0 {
		workers = 1
	}
	return &Bucketer{
		buckets: buckets,
		shift:   uint(32 - bits.TrailingZeros(uint(buckets))),
		workers: workers,
	}, nil
}

// Buckets returns the number of buckets every sort produces.
func (b *Bucketer) Buckets() int {
	return b.buckets
}

// Bucket returns the bucket index of a key.
func (b *Bucketer) Bucket(k record.Key) int {
	// a shift of 32 yields 0 for a single bucket
	return int(binary.BigEndian.Uint32(k[:4]) >> b.shift)
}

// span returns the contiguous slice of n records owned by worker t of w.
func span(n, w, t int) (int, int) {
	return n * t / w, n * (t + 1) / w
}

func (b *Bucketer) workersFor(n int) int {
	w := min(b.workers, n/minRecordsPerWorker)
	return max(w, 1)
}

// Sort fills out[:in.Len()] with the (key, index) pairs of in, sorted by key,
// and returns one GroupData per bucket locating it in out.
func (b *Bucketer) Sort(ctx context.Context, in record.Records, out []record.SortRecord) ([]record.GroupData, error) {
	n := in.Len()
	if int64(n) > maxSortRecords {
		return nil, &ConfigError{Field: "ChunkRecords", Value: n, Reason: "record indexes are 32-bit"}
	}
	if len(out) < n {
		return nil, &InvariantError{What: "sort buffer smaller than input", Value: len(out)}
	}
	out = out[:n]
	groups := make([]record.GroupData, b.buckets)
	if n == 0 {
		return groups, nil
	}

	workers := b.workersFor(n)
	counts := make([][]uint32, workers)
	for t := range counts {
		counts[t] = make([]uint32, b.buckets)
	}
	ranks := make([]uint32, n)

	// count
	g, gctx := errgroup.WithContext(ctx)
	for t := 0; t < workers; t++ {
		g.Go(func() error {
			count := counts[t]
			lo, hi := span(n, workers, t)
			for i := lo; i < hi; i++ {
				bucket := b.Bucket(in.Key(i))
				if bucket >= b.buckets {
					return &InvariantError{What: "bucket index out of range", Value: bucket}
				}
				ranks[i] = count[bucket]
				count[bucket]++
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// prefix sums: bucket starts, then per-worker offsets inside each bucket
	var start int64
	for bucket := range groups {
		var inBucket uint32
		for t := 0; t < workers; t++ {
			c := counts[t][bucket]
			counts[t][bucket] = inBucket
			inBucket += c
		}
		groups[bucket] = record.GroupData{Start: start, Count: int64(inBucket)}
		start += int64(inBucket)
	}
	if start != int64(n) {
		return nil, &InvariantError{What: "bucket counts do not cover the input", Value: start}
	}

	// scatter
	g, gctx = errgroup.WithContext(ctx)
	for t := 0; t < workers; t++ {
		g.Go(func() error {
			offsets := counts[t]
			lo, hi := span(n, workers, t)
			for i := lo; i < hi; i++ {
				k := in.Key(i)
				bucket := b.Bucket(k)
				out[groups[bucket].Start+int64(offsets[bucket]+ranks[i])] = record.SortRecord{Key: k, Index: uint32(i)}
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return groups, b.sortBuckets(ctx, out, groups)
}

// sortBuckets radix sorts every non-empty bucket. Buckets are claimed one at
// a time so a few oversized buckets do not leave the other workers idle.
func (b *Bucketer) sortBuckets(ctx context.Context, out []record.SortRecord, groups []record.GroupData) error {
	last := len(groups)
	for last > 0 && groups[last-1].Count == 0 {
		last--
	}

	var next atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for t := 0; t < min(b.workers, last); t++ {
		g.Go(func() error {
			var scratch []record.SortRecord
			for {
				i := int(next.Add(1) - 1)
				if i >= last {
					return nil
				}
				if err := gctx.Err(); err != nil {
					return err
				}
				grp := groups[i]
				if grp.Count == 0 {
					continue
				}
				if int64(len(scratch)) < grp.Count {
					scratch = make([]record.SortRecord, grp.Count)
				}
				radixSort(out[grp.Start:grp.End()], scratch)
			}
		})
	}
	return g.Wait()
}

// Gather copies the records of in into dst in the order given by sorted.
// dst must not overlap in.
func Gather(ctx context.Context, in record.Records, sorted []record.SortRecord, dst record.Records, workers int) error {
	n := len(sorted)
	if dst.Len() < n {
		return &InvariantError{What: "gather destination smaller than input", Value: dst.Len()}
	}
	workers = max(1, min(workers, n/minRecordsPerWorker))
	g, gctx := errgroup.WithContext(ctx)
	for t := 0; t < workers; t++ {
		g.Go(func() error {
			lo, hi := span(n, workers, t)
			for i := lo; i < hi; i++ {
				dst.Set(i, in.At(int(sorted[i].Index)))
			}
			return gctx.Err()
		})
	}
	return g.Wait()
}
