// Package metrics defines the Prometheus metric collectors used across the
// indexing and query pipelines and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	DocsIndexedTotal      prometheus.Counter
	MalformedRecordsTotal prometheus.Counter
	WorkerFlushesTotal    *prometheus.CounterVec
	WorkerMemoryBytes     *prometheus.GaugeVec
	MergeDuration         prometheus.Histogram
	MergeTermsTotal       prometheus.Counter
	QueriesTotal          *prometheus.CounterVec
	QueryLatency          *prometheus.HistogramVec
	QueryResultsCount     prometheus.Histogram
	CacheHitsTotal        prometheus.Counter
	CacheMissesTotal      prometheus.Counter
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	CircuitBreakerState   *prometheus.GaugeVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents consumed from the corpus and indexed.",
			},
		),
		MalformedRecordsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "malformed_records_total",
				Help: "Total corpus records skipped for missing or empty fields.",
			},
		),
		WorkerFlushesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worker_flushes_total",
				Help: "Total partial-index flushes by worker and status.",
			},
			[]string{"worker_id", "status"},
		),
		WorkerMemoryBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "worker_memory_estimate_bytes",
				Help: "Estimated in-memory index size per worker.",
			},
			[]string{"worker_id"},
		),
		MergeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "merge_duration_seconds",
				Help:    "Duration of the final k-way merge.",
				Buckets: prometheus.DefBuckets,
			},
		),
		MergeTermsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "merge_terms_total",
				Help: "Total distinct terms written to the final index.",
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queries_total",
				Help: "Total queries processed by ranker and result type (hit, miss, zero_result, error).",
			},
			[]string{"ranker", "result_type"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "query_latency_seconds",
				Help:    "Query processing latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		QueryResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "query_results_count",
				Help:    "Number of results returned per query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total query-result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total query-result cache misses.",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests to the query service by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed by the query service.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	prometheus.MustRegister(
		m.DocsIndexedTotal,
		m.MalformedRecordsTotal,
		m.WorkerFlushesTotal,
		m.WorkerMemoryBytes,
		m.MergeDuration,
		m.MergeTermsTotal,
		m.QueriesTotal,
		m.QueryLatency,
		m.QueryResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
