package rawio

import (
	"fmt"
	"sync"

	"github.com/lanrat/recsort/record"
)

// Mem is an in-memory record store implementing ReaderAt and WriterAt. The
// sorter uses it for the resident tail chunk; tests use it in place of files.
type Mem struct {
	mu   sync.RWMutex
	data record.Records
}

// NewMem wraps an existing buffer without copying it.
func NewMem(data record.Records) *Mem {
	return &Mem{data: data}
}

// Records returns the backing buffer.
func (m *Mem) Records() record.Records {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data
}

// Len returns the number of records stored.
func (m *Mem) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.Len()
}

// ReadRecordsAt copies dst.Len() records starting at off into dst.
func (m *Mem) ReadRecordsAt(dst record.Records, off int64) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	end := off + int64(dst.Len())
	if off < 0 || end > int64(m.data.Len()) {
		return fmt.Errorf("mem read [%d,%d) out of range (%d records)", off, end, m.data.Len())
	}
	copy(dst, m.data.Slice(int(off), int(end)))
	return nil
}

// WriteRecordsAt stores src at off, growing the buffer when needed.
func (m *Mem) WriteRecordsAt(src record.Records, off int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if off < 0 {
		return fmt.Errorf("mem write at negative offset %d", off)
	}
	end := int(off) + src.Len()
	if end > m.data.Len() {
		grown := record.MakeRecords(end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data.Slice(int(off), end), src)
	return nil
}
