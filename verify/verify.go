// Package verify checks a sorted record file against its input without
// holding either in memory.
package verify

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/lanrat/recsort/rawio"
	"github.com/lanrat/recsort/record"
)

const batchRecords = 10_000

// Summary describes a record file.
type Summary struct {
	Records int64
	// FirstUnsorted is the index of the first record whose key is smaller
	// than its predecessor's, or -1 when the file is sorted.
	FirstUnsorted int64
	// DuplicateKeys counts records whose key equals the previous record's.
	DuplicateKeys int64
	// Checksum is the sum of the xxhash of every record. It does not depend
	// on record order, so an input and its sorted output share it.
	Checksum uint64
}

// Sorted reports whether no out of order record was seen.
func (s Summary) Sorted() bool {
	return s.FirstUnsorted < 0
}

// File summarizes the records of path.
func File(path string) (Summary, error) {
	f, err := rawio.Open(path)
	if err != nil {
		return Summary{}, err
	}
	defer f.Close()
	size, err := f.Size()
	if err != nil {
		return Summary{}, err
	}
	if size%record.Size != 0 {
		return Summary{}, fmt.Errorf("%s is %d bytes, not a whole number of records", path, size)
	}
	_ = f.Advise(0, 0, rawio.AdviceSequential)

	count := size / record.Size
	sum := Summary{Records: count, FirstUnsorted: -1}
	buf := record.MakeRecords(int(min(count, batchRecords)))
	var prev record.Key
	for off := int64(0); off < count; off += int64(buf.Len()) {
		batch := buf.Slice(0, int(min(int64(buf.Len()), count-off)))
		if err := f.ReadRecordsAt(batch, off); err != nil {
			return Summary{}, err
		}
		for i := 0; i < batch.Len(); i++ {
			k := batch.Key(i)
			if off+int64(i) > 0 {
				switch c := record.Compare(prev, k); {
				case c > 0 && sum.FirstUnsorted < 0:
					sum.FirstUnsorted = off + int64(i)
				case c == 0:
					sum.DuplicateKeys++
				}
			}
			sum.Checksum += xxhash.Sum64(batch.At(i))
			prev = k
		}
	}
	return sum, nil
}

// Output checks that out is a sorted permutation of in.
func Output(in, out Summary) error {
	if in.Records != out.Records {
		return fmt.Errorf("output has %d records, input has %d", out.Records, in.Records)
	}
	if in.Checksum != out.Checksum {
		return fmt.Errorf("output checksum %016x does not match input checksum %016x", out.Checksum, in.Checksum)
	}
	if !out.Sorted() {
		return fmt.Errorf("output record %d is out of order", out.FirstUnsorted)
	}
	return nil
}
