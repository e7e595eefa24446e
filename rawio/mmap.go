package rawio

import (
	"fmt"

	"github.com/lanrat/recsort/record"
)

// Mapping is a memory region backed either by a file mapping or by an
// anonymous allocation.
type Mapping struct {
	data    []byte
	release func([]byte) error
}

// Map maps the first size bytes of f. Writable mappings are shared, so
// stores reach the file when the mapping is closed.
func Map(f *File, size int64, writable bool) (*Mapping, error) {
	if size == 0 {
		return &Mapping{}, nil
	}
	data, release, err := mapFile(f, int(size), writable)
	if err != nil {
		return nil, fmt.Errorf("mmap %s (%d bytes): %w", f.Name(), size, err)
	}
	return &Mapping{data: data, release: release}, nil
}

// Alloc returns an anonymous buffer able to hold n records. Where the
// platform allows it the region is hinted for transparent huge pages to keep
// TLB pressure down on multi-gigabyte buffers.
func Alloc(n int) (*Mapping, error) {
	if n == 0 {
		return &Mapping{}, nil
	}
	data, release, err := mapAnon(n * record.Size)
	if err != nil {
		return nil, fmt.Errorf("allocate %d records: %w", n, err)
	}
	return &Mapping{data: data, release: release}, nil
}

// Records returns the mapping viewed as records.
func (m *Mapping) Records() record.Records {
	return record.Records(m.data)
}

// Bytes returns the raw mapped bytes.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Advise hints the kernel about the access pattern of the whole mapping.
func (m *Mapping) Advise(advice Advice) error {
	if len(m.data) == 0 {
		return nil
	}
	return madvise(m.data, advice)
}

// Close unmaps the region. The mapping must not be used afterwards.
func (m *Mapping) Close() error {
	if m.release == nil {
		return nil
	}
	err := m.release(m.data)
	m.data = nil
	m.release = nil
	return err
}
