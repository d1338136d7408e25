// Package metrics defines the Prometheus collectors used by the medicine
// search service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	FallbacksTotal       *prometheus.CounterVec
	DegradedTotal        prometheus.Counter
	QueryCorrections     prometheus.Counter
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	IndexedDocuments     prometheus.Gauge
	IndexVocabulary      prometheus.Gauge
	IndexRebuildsTotal   *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
	EvaluationMetric     *prometheus.GaugeVec
	QueryLogDropped      prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates all collectors and registers them with reg. A nil reg uses the
// process-wide default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
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
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by provenance (lexical, semantic, hybrid, empty).",
			},
			[]string{"provenance"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search latency in seconds by mode.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"mode"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		FallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_semantic_fallbacks_total",
				Help: "Semantic fallback attempts by outcome (ok, error, open).",
			},
			[]string{"outcome"},
		),
		DegradedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "search_degraded_total",
				Help: "Searches answered lexically because the semantic channel was unavailable.",
			},
		),
		QueryCorrections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "search_query_corrections_total",
				Help: "Queries rewritten by the fuzzy corrector.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses.",
			},
		),
		IndexedDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_documents",
				Help: "Documents in the active BM25 index.",
			},
		),
		IndexVocabulary: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_vocabulary_terms",
				Help: "Distinct terms in the active BM25 index.",
			},
		),
		IndexRebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_rebuilds_total",
				Help: "Index rebuilds by status.",
			},
			[]string{"status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		EvaluationMetric: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "evaluation_mean",
				Help: "Mean value of the last offline evaluation run by metric.",
			},
			[]string{"metric"},
		),
		QueryLogDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "query_log_dropped_total",
				Help: "Query log records dropped because the collector buffer was full.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.FallbacksTotal,
		m.DegradedTotal,
		m.QueryCorrections,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.IndexedDocuments,
		m.IndexVocabulary,
		m.IndexRebuildsTotal,
		m.CircuitBreakerState,
		m.EvaluationMetric,
		m.QueryLogDropped,
	)

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// Handler returns the Prometheus scrape HTTP handler for the registry the
// collectors were registered with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Handler returns the scrape handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
