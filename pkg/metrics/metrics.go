// Package metrics defines the Prometheus metric collectors used by the
// indexer and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for an indexing run.
type Metrics struct {
	DocsReadTotal        prometheus.Counter
	DocsIndexedTotal     prometheus.Counter
	SegmentsWrittenTotal prometheus.Counter
	SegmentSizeBytes     prometheus.Histogram
	AccumulatorFlushes   *prometheus.CounterVec
	FailuresTotal        *prometheus.CounterVec
	RunDuration          *prometheus.HistogramVec
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewFor(prometheus.DefaultRegisterer)
}

// NewFor creates all collectors and registers them with reg. Tests pass
// their own registry so repeated construction does not collide.
func NewFor(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocsReadTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_read_total",
				Help: "Total documents read from disk.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents indexed.",
			},
		),
		SegmentsWrittenTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "segments_written_total",
				Help: "Total temporary segment files spilled to disk.",
			},
		),
		SegmentSizeBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "segment_size_bytes",
				Help:    "Size of spilled segment files in bytes.",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
			},
		),
		AccumulatorFlushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accumulator_flushes_total",
				Help: "Accumulator emissions by reason (threshold, final).",
			},
			[]string{"reason"},
		),
		FailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "failures_total",
				Help: "Per-document failures by originating operation.",
			},
			[]string{"op"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "run_duration_seconds",
				Help:    "Wall-clock duration of complete indexing runs.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
			},
			[]string{"mode"},
		),
	}

	reg.MustRegister(
		m.DocsReadTotal,
		m.DocsIndexedTotal,
		m.SegmentsWrittenTotal,
		m.SegmentSizeBytes,
		m.AccumulatorFlushes,
		m.FailuresTotal,
		m.RunDuration,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
