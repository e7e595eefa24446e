// Package metrics collects I/O and phase timings from a sort. A Sink is
// threaded through the pipeline explicitly instead of living in globals.
package metrics

import (
	"sync/atomic"
	"time"
)

// Sink receives measurements. Implementations must be safe for concurrent use.
type Sink interface {
	// RecordRead is called after every completed read transfer.
	RecordRead(bytes int64, d time.Duration)
	// RecordWrite is called after every completed write transfer.
	RecordWrite(bytes int64, d time.Duration)
	// RecordPhase is called when a named sort phase finishes.
	RecordPhase(phase string, d time.Duration)
}

// Noop discards everything.
type Noop struct{}

func (Noop) RecordRead(int64, time.Duration)    {}
func (Noop) RecordWrite(int64, time.Duration)   {}
func (Noop) RecordPhase(string, time.Duration) {}

// Basic keeps in-memory totals.
type Basic struct {
	Reads      atomic.Int64
	ReadBytes  atomic.Int64
	ReadNanos  atomic.Int64
	Writes     atomic.Int64
	WriteBytes atomic.Int64
	WriteNanos atomic.Int64
	Phases     atomic.Int64
	PhaseNanos atomic.Int64
}

// RecordRead implements Sink.
func (b *Basic) RecordRead(bytes int64, d time.Duration) {
	b.Reads.Add(1)
	b.ReadBytes.Add(bytes)
	b.ReadNanos.Add(d.Nanoseconds())
}

// RecordWrite implements Sink.
func (b *Basic) RecordWrite(bytes int64, d time.Duration) {
	b.Writes.Add(1)
	b.WriteBytes.Add(bytes)
	b.WriteNanos.Add(d.Nanoseconds())
}

// RecordPhase implements Sink.
func (b *Basic) RecordPhase(_ string, d time.Duration) {
	b.Phases.Add(1)
	b.PhaseNanos.Add(d.Nanoseconds())
}

// Snapshot is a point-in-time copy of Basic.
type Snapshot struct {
	Reads      int64
	ReadBytes  int64
	ReadTime   time.Duration
	Writes     int64
	WriteBytes int64
	WriteTime  time.Duration
	Phases     int64
	PhaseTime  time.Duration
}

// Snapshot returns the current totals.
func (b *Basic) Snapshot() Snapshot {
	return Snapshot{
		Reads:      b.Reads.Load(),
		ReadBytes:  b.ReadBytes.Load(),
		ReadTime:   time.Duration(b.ReadNanos.Load()),
		Writes:     b.Writes.Load(),
		WriteBytes: b.WriteBytes.Load(),
		WriteTime:  time.Duration(b.WriteNanos.Load()),
		Phases:     b.Phases.Load(),
		PhaseTime:  time.Duration(b.PhaseNanos.Load()),
	}
}
