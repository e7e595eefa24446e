//go:build !unix

package rawio

import "github.com/lanrat/recsort/record"

// Platforms without mmap get heap copies. Writable mappings are written back
// on Close.

func mapFile(f *File, size int, writable bool) ([]byte, func([]byte) error, error) {
	data := make([]byte, size)
	if err := f.ReadRecordsAt(record.Records(data), 0); err != nil && !writable {
		return nil, nil, err
	}
	if !writable {
		return data, func([]byte) error { return nil }, nil
	}
	return data, func(b []byte) error {
		_, err := f.OS().WriteAt(b, 0)
		return err
	}, nil
}

func mapAnon(size int) ([]byte, func([]byte) error, error) {
	return make([]byte, size), func([]byte) error { return nil }, nil
}

func madvise([]byte, Advice) error {
	return nil
}
