// Package metrics exposes Prometheus metrics for the render pipeline and
// the proxy endpoints.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the registry and the pipeline's instruments.
type Metrics struct {
	registry *prometheus.Registry

	rendersTotal     *prometheus.CounterVec
	renderDuration   prometheus.Histogram
	streamErrors     prometheus.Counter
	prefetchFailures prometheus.Counter
}

// New creates and registers the instruments on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		rendersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "storefront",
				Name:      "renders_total",
				Help:      "Completed render sessions by terminal outcome",
			},
			[]string{"outcome"},
		),
		renderDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "storefront",
				Name:      "render_duration_seconds",
				Help:      "Wall-clock duration of render sessions",
				Buckets:   prometheus.DefBuckets,
			},
		),
		streamErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "storefront",
				Name:      "render_stream_errors_total",
				Help:      "Chunk-level render faults, including post-flush ones",
			},
		),
		prefetchFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "storefront",
				Name:      "prefetch_failures_total",
				Help:      "Prefetches that failed before render start",
			},
		),
	}

	registry.MustRegister(
		m.rendersTotal,
		m.renderDuration,
		m.streamErrors,
		m.prefetchFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RecordRender records a finished render session. Nil-safe so the pipeline
// can run without metrics in tests.
func (m *Metrics) RecordRender(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.rendersTotal.WithLabelValues(outcome).Inc()
	m.renderDuration.Observe(duration.Seconds())
}

// RecordStreamError counts a chunk-level render fault.
func (m *Metrics) RecordStreamError() {
	if m == nil {
		return
	}
	m.streamErrors.Inc()
}

// RecordPrefetchFailure counts a failed prefetch.
func (m *Metrics) RecordPrefetchFailure() {
	if m == nil {
		return
	}
	m.prefetchFailures.Inc()
}

// Handler returns the /metrics endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
