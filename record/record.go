// Package record defines the fixed 100-byte record layout sorted by recsort
// and the ordering of its 10-byte key.
package record

import (
	"bytes"
	"fmt"
)

const (
	// Size is the length of every record in bytes.
	Size = 100
	// KeySize is the length of the key prefix that defines the sort order.
	KeySize = 10
)

// Record is a single fixed-size record. Bytes [0, KeySize) are the key.
type Record [Size]byte

// Key is the sort key of a record.
type Key [KeySize]byte

// Key returns a copy of the record's key.
func (r *Record) Key() Key {
	var k Key
	copy(k[:], r[:KeySize])
	return k
}

// KeyOf copies the key out of a raw record slice.
func KeyOf(rec []byte) Key {
	var k Key
	copy(k[:], rec[:KeySize])
	return k
}

// Compare orders two keys as unsigned big-endian integers, which is the same
// as a plain byte-wise comparison starting at offset 0.
func Compare(a, b Key) int {
	return bytes.Compare(a[:], b[:])
}

// Less reports whether a sorts strictly before b.
func Less(a, b Key) bool {
	return Compare(a, b) < 0
}

// SortRecord decouples key comparisons from the payload: the key is copied
// and Index points back at the record in its source buffer.
type SortRecord struct {
	Key   Key
	Index uint32
}

// GroupData is a contiguous bucket of a sorted buffer or run file.
type GroupData struct {
	Start int64
	Count int64
}

// End returns the first offset past the group.
func (g GroupData) End() int64 {
	return g.Start + g.Count
}

func (g GroupData) String() string {
	return fmt.Sprintf("[%d,%d)", g.Start, g.End())
}

// Records is an owned buffer of consecutive records.
type Records []byte

// MakeRecords allocates a zeroed buffer for n records on the Go heap.
func MakeRecords(n int) Records {
	return make(Records, n*Size)
}

// Len returns the number of whole records in the buffer.
func (r Records) Len() int {
	return len(r) / Size
}

// At returns the i-th record. The slice aliases the buffer.
func (r Records) At(i int) []byte {
	off := i * Size
	return r[off : off+Size : off+Size]
}

// Key returns a copy of the i-th record's key.
func (r Records) Key(i int) Key {
	return KeyOf(r[i*Size:])
}

// Set overwrites the i-th record with rec.
func (r Records) Set(i int, rec []byte) {
	copy(r[i*Size:i*Size+Size], rec[:Size])
}

// Slice returns records [lo, hi) sharing the same backing memory.
func (r Records) Slice(lo, hi int) Records {
	return r[lo*Size : hi*Size]
}

// Bytes returns the raw bytes of the buffer.
func (r Records) Bytes() []byte {
	return r
}

// Less reports whether record i sorts before record j.
func (r Records) Less(i, j int) bool {
	return bytes.Compare(r[i*Size:i*Size+KeySize], r[j*Size:j*Size+KeySize]) < 0
}

// IsSorted reports whether every adjacent pair of records is in key order.
func IsSorted(r Records) bool {
	for i := 1; i < r.Len(); i++ {
		if r.Less(i, i-1) {
			return false
		}
	}
	return true
}
