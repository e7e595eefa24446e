package recsort

import (
	"github.com/lanrat/recsort/aio"
	"github.com/lanrat/recsort/rawio"
	"github.com/lanrat/recsort/record"
)

// ReadBuffer stages a window of a sorted source. The window covers records
// [fileOffset, fileOffset+total) of the source and is reloaded in pieces of
// at most the buffer capacity.
type ReadBuffer struct {
	data       record.Records
	size       int // records currently loaded
	cursor     int
	processed  int64 // records loaded so far
	total      int64
	fileOffset int64
	src        rawio.ReaderAt
}

// NewReadBuffer returns an empty buffer of capacity records over group of src.
// Call Refill before the first Load.
func NewReadBuffer(src rawio.ReaderAt, capacity int, group record.GroupData) *ReadBuffer {
	return NewReadBufferWith(src, record.MakeRecords(capacity), group)
}

// NewReadBufferWith is NewReadBuffer using caller supplied memory.
func NewReadBufferWith(src rawio.ReaderAt, data record.Records, group record.GroupData) *ReadBuffer {
	return &ReadBuffer{
		data:       data,
		total:      group.Count,
		fileOffset: group.Start,
		src:        src,
	}
}

// Load returns the record at the cursor. It aliases the buffer and is only
// valid until the next Refill.
func (b *ReadBuffer) Load() []byte {
	return b.data.At(b.cursor)
}

// Key returns the key of the record at the cursor.
func (b *ReadBuffer) Key() record.Key {
	return b.data.Key(b.cursor)
}

// Advance moves the cursor to the next loaded record.
func (b *ReadBuffer) Advance() {
	b.cursor++
}

// NeedsRefill reports whether every loaded record has been consumed.
func (b *ReadBuffer) NeedsRefill() bool {
	return b.cursor >= b.size
}

// Remaining returns how many records of the window have not been loaded yet.
func (b *ReadBuffer) Remaining() int64 {
	return b.total - b.processed
}

// Refill loads up to count records following the ones already loaded and
// resets the cursor. It returns the number of records read; 0 means the
// window is exhausted.
func (b *ReadBuffer) Refill(count int) (int, error) {
	n := int(min(int64(count), b.Remaining(), int64(b.data.Len())))
	b.cursor = 0
	if n <= 0 {
		b.size = 0
		return 0, nil
	}
	if err := b.src.ReadRecordsAt(b.data.Slice(0, n), b.fileOffset+b.processed); err != nil {
		b.size = 0
		return 0, err
	}
	b.processed += int64(n)
	b.size = n
	return n, nil
}

// Capacity returns the number of records the buffer can hold.
func (b *ReadBuffer) Capacity() int {
	return b.data.Len()
}

// WriteBuffer stages output records in two halves. While one half is being
// written by the I/O worker the producer fills the other; the producer only
// blocks when it needs a half whose write has not completed yet.
type WriteBuffer struct {
	halves     [2]record.Records
	pending    [2]bool
	active     int
	cursor     int
	unflushed  int // records in the half swapped out but not yet submitted
	processed  int64
	fileOffset int64
	dst        rawio.WriterAt
	worker     *aio.Worker
	done       chan aio.Completion
	err        error
}

// NewWriteBuffer returns a buffer with two halves of capacity records each,
// writing to dst from record offset fileOffset onwards through worker.
func NewWriteBuffer(dst rawio.WriterAt, worker *aio.Worker, capacity int, fileOffset int64) *WriteBuffer {
	return &WriteBuffer{
		halves:     [2]record.Records{record.MakeRecords(capacity), record.MakeRecords(capacity)},
		fileOffset: fileOffset,
		dst:        dst,
		worker:     worker,
		done:       make(chan aio.Completion, 2),
	}
}

// Store appends rec to the active half. The half must not be full.
func (b *WriteBuffer) Store(rec []byte) {
	b.halves[b.active].Set(b.cursor, rec)
	b.cursor++
}

// Full reports whether the active half has no room left.
func (b *WriteBuffer) Full() bool {
	return b.cursor == b.halves[b.active].Len()
}

// Swap makes the other half active and resets the cursor. If the other half
// is still being written, Swap waits for that write to complete.
func (b *WriteBuffer) Swap() error {
	next := 1 - b.active
	if b.pending[next] {
		if err := b.wait(); err != nil {
			return err
		}
		b.pending[next] = false
	}
	b.unflushed = b.cursor
	b.active = next
	b.cursor = 0
	return nil
}

// Flush submits a write of the half that was active before the last Swap.
func (b *WriteBuffer) Flush() {
	if b.unflushed == 0 {
		return
	}
	half := 1 - b.active
	b.worker.Submit(aio.Write(b.dst, b.halves[half].Slice(0, b.unflushed), b.fileOffset+b.processed, b.done))
	b.pending[half] = true
	b.processed += int64(b.unflushed)
	b.unflushed = 0
}

// Put stores rec and hands the active half to the I/O worker once it fills.
func (b *WriteBuffer) Put(rec []byte) error {
	b.Store(rec)
	if !b.Full() {
		return nil
	}
	if err := b.Swap(); err != nil {
		return err
	}
	b.Flush()
	return nil
}

// Close writes out the partially filled half and waits until every
// submitted write has completed.
func (b *WriteBuffer) Close() error {
	if b.cursor > 0 {
		if err := b.Swap(); err != nil {
			return err
		}
		b.Flush()
	}
	for half := range b.pending {
		if b.pending[half] {
			if err := b.wait(); err != nil {
				return err
			}
			b.pending[half] = false
		}
	}
	return b.err
}

// Written returns the number of records submitted for writing.
func (b *WriteBuffer) Written() int64 {
	return b.processed
}

// wait receives the completion of the oldest outstanding write.
func (b *WriteBuffer) wait() error {
	c := <-b.done
	if c.Err != nil && b.err == nil {
		b.err = c.Err
	}
	return b.err
}
