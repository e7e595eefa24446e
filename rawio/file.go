// Package rawio holds the file primitives the sorter is built on: whole-record
// positional reads and writes that retry short transfers, preallocation,
// page-cache advice, memory maps and huge-page backed anonymous buffers.
package rawio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lanrat/recsort/record"
)

// ReaderAt reads whole records at a record offset.
type ReaderAt interface {
	ReadRecordsAt(dst record.Records, off int64) error
}

// WriterAt writes whole records at a record offset.
type WriterAt interface {
	WriteRecordsAt(src record.Records, off int64) error
}

// Advice is a byte-range access hint.
type Advice int

const (
	AdviceNormal Advice = iota
	AdviceSequential
	AdviceRandom
	AdviceWillNeed
	AdviceDontNeed
)

func (a Advice) String() string {
	switch a {
	case AdviceSequential:
		return "sequential"
	case AdviceRandom:
		return "random"
	case AdviceWillNeed:
		return "willneed"
	case AdviceDontNeed:
		return "dontneed"
	default:
		return "normal"
	}
}

// File is a record-addressed file handle. ReadRecordsAt and WriteRecordsAt
// are safe for concurrent use on disjoint ranges.
type File struct {
	f *os.File
}

// Open opens path read-only.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &File{f: f}, nil
}

// Create creates or truncates path for reading and writing.
func Create(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return &File{f: f}, nil
}

// OpenWritable opens an existing file for reading and writing without truncating it.
func OpenWritable(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	return &File{f: f}, nil
}

// Name returns the path the file was opened with.
func (f *File) Name() string {
	return f.f.Name()
}

// OS exposes the underlying *os.File.
func (f *File) OS() *os.File {
	return f.f
}

// Size returns the current length of the file in bytes.
func (f *File) Size() (int64, error) {
	st, err := f.f.Stat()
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

// ReadRecordsAt fills dst with dst.Len() records starting at record offset
// off. Short reads are retried; reaching EOF early is an error.
func (f *File) ReadRecordsAt(dst record.Records, off int64) error {
	buf := dst.Bytes()
	pos := off * record.Size
	for done := 0; done < len(buf); {
		n, err := f.f.ReadAt(buf[done:], pos+int64(done))
		done += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				if done == len(buf) {
					return nil
				}
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("pread %s at record %d: %w", f.Name(), off, err)
		}
	}
	return nil
}

// WriteRecordsAt writes every record of src starting at record offset off,
// retrying short writes.
func (f *File) WriteRecordsAt(src record.Records, off int64) error {
	buf := src.Bytes()
	pos := off * record.Size
	for done := 0; done < len(buf); {
		n, err := f.f.WriteAt(buf[done:], pos+int64(done))
		done += n
		if err != nil {
			return fmt.Errorf("pwrite %s at record %d: %w", f.Name(), off, err)
		}
	}
	return nil
}

// Preallocate reserves size bytes for the file and sets its length.
func (f *File) Preallocate(size int64) error {
	if size == 0 {
		return f.f.Truncate(0)
	}
	if err := fallocate(f.f, size); err != nil {
		// not every filesystem supports fallocate
		return f.f.Truncate(size)
	}
	return nil
}

// Advise hints the kernel about how a byte range of the file will be used.
// Hints are advisory; unsupported platforms ignore them.
func (f *File) Advise(off, length int64, advice Advice) error {
	return fadvise(f.f, off, length, advice)
}

// Sync commits the file to stable storage.
func (f *File) Sync() error {
	return f.f.Sync()
}

// Close closes the file.
func (f *File) Close() error {
	return f.f.Close()
}
