package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus exports sort measurements as Prometheus collectors.
type Prometheus struct {
	ioBytes    *prometheus.CounterVec
	ioDuration *prometheus.HistogramVec
	phase      *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them on reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		ioBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recsort",
			Name:      "io_bytes_total",
			Help:      "Bytes transferred by the I/O workers.",
		}, []string{"op"}),
		ioDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "recsort",
			Name:      "io_duration_seconds",
			Help:      "Latency of single I/O transfers.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"op"}),
		phase: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "recsort",
			Name:      "phase_duration_seconds",
			Help:      "Duration of sort phases.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 12),
		}, []string{"phase"}),
	}
	for _, c := range []prometheus.Collector{p.ioBytes, p.ioDuration, p.phase} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// RecordRead implements Sink.
func (p *Prometheus) RecordRead(bytes int64, d time.Duration) {
	p.ioBytes.WithLabelValues("read").Add(float64(bytes))
	p.ioDuration.WithLabelValues("read").Observe(d.Seconds())
}

// RecordWrite implements Sink.
func (p *Prometheus) RecordWrite(bytes int64, d time.Duration) {
	p.ioBytes.WithLabelValues("write").Add(float64(bytes))
	p.ioDuration.WithLabelValues("write").Observe(d.Seconds())
}

// RecordPhase implements Sink.
func (p *Prometheus) RecordPhase(phase string, d time.Duration) {
	p.phase.WithLabelValues(phase).Observe(d.Seconds())
}
