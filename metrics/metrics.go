// Package metrics exposes Prometheus metrics for the analysis and query
// routing pipelines
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector used by the engine
type Metrics struct {
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram

	QueriesTotal  *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec

	CacheHitsTotal          prometheus.Counter
	CacheMissesTotal        prometheus.Counter
	CacheInvalidationsTotal prometheus.Counter

	ProviderRetriesTotal  prometheus.Counter
	ProviderTimeoutsTotal prometheus.Counter
}

// New creates and registers all collectors on the default registry
func New() *Metrics {
	m := &Metrics{}

	m.AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexquery_analyses_total",
			Help: "Total number of document analyses by outcome",
		},
		[]string{"status"},
	)

	m.AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lexquery_analysis_duration_seconds",
			Help:    "Duration of document analyses in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	m.QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexquery_queries_total",
			Help: "Total number of routed queries by type and cache outcome",
		},
		[]string{"query_type", "from_cache"},
	)

	m.QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lexquery_query_duration_seconds",
			Help:    "Duration of query routing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query_type"},
	)

	m.CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexquery_cache_hits_total",
		Help: "Total number of result cache hits",
	})

	m.CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexquery_cache_misses_total",
		Help: "Total number of result cache misses",
	})

	m.CacheInvalidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexquery_cache_invalidations_total",
		Help: "Total number of cache entries dropped by scope invalidation",
	})

	m.ProviderRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexquery_provider_retries_total",
		Help: "Total number of retried external provider calls",
	})

	m.ProviderTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexquery_provider_timeouts_total",
		Help: "Total number of external provider deadline hits",
	})

	return m
}

// ObserveAnalysis records one analysis run
func (m *Metrics) ObserveAnalysis(status string, d time.Duration) {
	m.AnalysesTotal.WithLabelValues(status).Inc()
	m.AnalysisDuration.Observe(d.Seconds())
}

// ObserveQuery records one routed query
func (m *Metrics) ObserveQuery(queryType string, fromCache bool, d time.Duration) {
	cached := "false"
	if fromCache {
		cached = "true"
	}
	m.QueriesTotal.WithLabelValues(queryType, cached).Inc()
	m.QueryDuration.WithLabelValues(queryType).Observe(d.Seconds())
}
