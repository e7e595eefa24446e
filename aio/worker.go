// Package aio runs positional record transfers on a single background
// goroutine so compute goroutines can overlap sorting and merging with disk
// I/O.
//
// Requests are served strictly in submission order. Every request names the
// channel its completion is pushed to; an issuer must not touch a buffer it
// handed to the worker until the matching Completion has been received.
// After all work has been submitted, Close pushes a single terminate
// sentinel and joins the goroutine.
package aio

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lanrat/recsort/metrics"
	"github.com/lanrat/recsort/record"
)

// Config tunes a Worker.
type Config struct {
	QueueDepth  int          // capacity of the request queue, default 16
	BytesPerSec int64        // transfer rate cap, 0 for unlimited
	Metrics     metrics.Sink // nil for none
}

// Worker is a single I/O goroutine draining a FIFO request queue.
type Worker struct {
	requests  chan Request
	limiter   *rate.Limiter
	metrics   metrics.Sink
	done      chan struct{}
	closeOnce sync.Once
	// err is sticky and only touched by the worker goroutine
	err error
}

// Start launches a worker goroutine.
func Start(cfg Config) *Worker {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 16
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Noop{}
	}
	w := &Worker{
		requests: make(chan Request, cfg.QueueDepth),
		metrics:  cfg.Metrics,
		done:     make(chan struct{}),
	}
	if cfg.BytesPerSec > 0 {
		w.limiter = rate.NewLimiter(rate.Limit(cfg.BytesPerSec), burst(cfg.BytesPerSec))
	}
	go w.run()
	return w
}

func burst(bytesPerSec int64) int {
	const maxBurst = 8 << 20
	if bytesPerSec > maxBurst {
		return maxBurst
	}
	return int(bytesPerSec)
}

// Submit queues r. It blocks while the queue is full. Submit must not be
// called after Close.
func (w *Worker) Submit(r Request) {
	w.requests <- r
}

// Close pushes the terminate sentinel after all previously submitted
// requests and waits for the worker to exit.
func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		w.requests <- terminate{}
	})
	<-w.done
}

func (w *Worker) run() {
	defer close(w.done)
	for r := range w.requests {
		if _, ok := r.(terminate); ok {
			return
		}
		n, err := w.serve(r)
		r.notify() <- Completion{Count: n, Err: err}
	}
}

func (w *Worker) serve(r Request) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	if r.records() == 0 {
		return 0, nil
	}
	start := time.Now()
	var n int
	var err error
	switch req := r.(type) {
	case readRequest:
		w.throttle(req.buf.Len())
		err = req.src.ReadRecordsAt(req.buf, req.off)
		n = req.buf.Len()
		w.metrics.RecordRead(int64(len(req.buf)), time.Since(start))
	case writeRequest:
		w.throttle(req.buf.Len())
		err = req.dst.WriteRecordsAt(req.buf, req.off)
		n = req.buf.Len()
		w.metrics.RecordWrite(int64(len(req.buf)), time.Since(start))
	case refillRequest:
		n, err = req.target.Refill(req.count)
		w.metrics.RecordRead(int64(n)*record.Size, time.Since(start))
		w.throttle(n)
	}
	if err != nil {
		w.err = err
		return 0, err
	}
	return n, nil
}

// throttle blocks until the limiter admits n records worth of bytes.
func (w *Worker) throttle(n int) {
	if w.limiter == nil {
		return
	}
	remaining := n * record.Size
	for remaining > 0 {
		step := min(remaining, w.limiter.Burst())
		// WaitN only fails for a cancelled context or step > burst
		_ = w.limiter.WaitN(context.Background(), step)
		remaining -= step
	}
}
