// Package metrics exposes the lookup service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors on a private registry.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram

	executionsTotal   *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec

	sourcesTotal *prometheus.CounterVec

	inflight prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers the collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lookup_requests_total",
				Help: "Total number of lookup requests by HTTP status",
			},
			[]string{"status"},
		),
		requestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lookup_duration_seconds",
				Help:    "Lookup request latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 90},
			},
		),
		executionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "query_executions_total",
				Help: "Total number of bgpq4 query executions by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		executionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "query_duration_seconds",
				Help:    "Query execution time in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
			[]string{"mode"},
		),
		sourcesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "query_sources_total",
				Help: "Per IRR source query outcomes",
			},
			[]string{"source", "outcome"},
		),
		inflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "query_inflight",
				Help: "Number of query executions currently running",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.executionsTotal,
		m.executionDuration,
		m.sourcesTotal,
		m.inflight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveRequest records a finished lookup request.
func (m *Metrics) ObserveRequest(status int, d time.Duration) {
	m.requestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	m.requestDuration.Observe(d.Seconds())
}

// ObserveExecution records one run of a query plan.
func (m *Metrics) ObserveExecution(mode, outcome string, d time.Duration) {
	m.executionsTotal.WithLabelValues(mode, outcome).Inc()
	m.executionDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// ObserveSource records the outcome of one IRR source query.
func (m *Metrics) ObserveSource(source, outcome string) {
	m.sourcesTotal.WithLabelValues(source, outcome).Inc()
}

// TrackInflight increments the in-flight gauge and returns its decrement.
func (m *Metrics) TrackInflight() func() {
	m.inflight.Inc()
	return m.inflight.Dec
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
