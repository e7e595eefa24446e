package aio

import (
	"github.com/lanrat/recsort/rawio"
	"github.com/lanrat/recsort/record"
)

// Completion is pushed to the issuer's channel once a request has been
// carried out. Count is the number of records transferred.
type Completion struct {
	Count int
	Err   error
}

// Request is one unit of work for a Worker. The set of variants is closed:
// build requests with Read, Write or Refill.
type Request interface {
	notify() chan<- Completion
	records() int
}

// Refiller is a staging buffer that knows how to reload itself from its
// source.
type Refiller interface {
	// Refill loads up to count records and returns how many were read.
	Refill(count int) (int, error)
}

type readRequest struct {
	src  rawio.ReaderAt
	buf  record.Records
	off  int64
	done chan<- Completion
}

type writeRequest struct {
	dst  rawio.WriterAt
	buf  record.Records
	off  int64
	done chan<- Completion
}

type refillRequest struct {
	target Refiller
	count  int
	done   chan<- Completion
}

type terminate struct{}

// Read fills buf with buf.Len() records of src starting at record offset off.
func Read(src rawio.ReaderAt, buf record.Records, off int64, done chan<- Completion) Request {
	return readRequest{src: src, buf: buf, off: off, done: done}
}

// Write stores every record of buf into dst at record offset off.
func Write(dst rawio.WriterAt, buf record.Records, off int64, done chan<- Completion) Request {
	return writeRequest{dst: dst, buf: buf, off: off, done: done}
}

// Refill asks target to reload up to count records.
func Refill(target Refiller, count int, done chan<- Completion) Request {
	return refillRequest{target: target, count: count, done: done}
}

func (r readRequest) notify() chan<- Completion   { return r.done }
func (r writeRequest) notify() chan<- Completion  { return r.done }
func (r refillRequest) notify() chan<- Completion { return r.done }
func (terminate) notify() chan<- Completion       { return nil }

func (r readRequest) records() int   { return r.buf.Len() }
func (r writeRequest) records() int  { return r.buf.Len() }
func (r refillRequest) records() int { return r.count }
func (terminate) records() int       { return 0 }
