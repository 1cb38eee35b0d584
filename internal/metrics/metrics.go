// Package metrics provides Prometheus metrics for the movie data layer
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cache lookup results
const (
	LookupHit     = "hit"
	LookupMiss    = "miss"
	LookupExpired = "expired"
)

// Status labels
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusDropped = "dropped" // background task submitted after shutdown
)

// Metrics contains Prometheus metrics for cache, API and background operations.
// All Record methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	cacheLookupsTotal      *prometheus.CounterVec
	cachePrunedTotal       *prometheus.CounterVec
	remoteRequestsTotal    *prometheus.CounterVec
	remoteRequestDuration  *prometheus.HistogramVec
	remoteRetriesTotal     *prometheus.CounterVec
	backgroundTasksTotal   *prometheus.CounterVec
	favoriteRollbacksTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics with registry
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_cache_lookups_total",
			Help: "Total number of local cache lookups",
		},
		[]string{"kind", "result"}, // kind: search, detail, states; result: hit, miss, expired
	)

	m.cachePrunedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_cache_pruned_total",
			Help: "Total number of expired cache records removed",
		},
		[]string{"kind"},
	)

	m.remoteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_remote_requests_total",
			Help: "Total number of requests to the movie database API",
		},
		[]string{"endpoint", "status_code"},
	)

	m.remoteRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "marquee_remote_request_duration_seconds",
			Help: "Time taken by movie database API requests, including retries",
			// 50ms to ~25s
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"endpoint"},
	)

	m.remoteRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_remote_retries_total",
			Help: "Total number of retried movie database API requests",
		},
		[]string{"endpoint"},
	)

	m.backgroundTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_background_tasks_total",
			Help: "Total number of background tasks by outcome",
		},
		[]string{"task", "status"},
	)

	m.favoriteRollbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_favorite_rollbacks_total",
			Help: "Total number of local favorite changes reverted after a failed API call",
		},
		[]string{"status"},
	)
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.cacheLookupsTotal.Describe(ch)
	m.cachePrunedTotal.Describe(ch)
	m.remoteRequestsTotal.Describe(ch)
	m.remoteRequestDuration.Describe(ch)
	m.remoteRetriesTotal.Describe(ch)
	m.backgroundTasksTotal.Describe(ch)
	m.favoriteRollbacksTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.cacheLookupsTotal.Collect(ch)
	m.cachePrunedTotal.Collect(ch)
	m.remoteRequestsTotal.Collect(ch)
	m.remoteRequestDuration.Collect(ch)
	m.remoteRetriesTotal.Collect(ch)
	m.backgroundTasksTotal.Collect(ch)
	m.favoriteRollbacksTotal.Collect(ch)
}

// RecordCacheLookup records a local cache lookup
func (m *Metrics) RecordCacheLookup(kind, result string) {
	if m == nil {
		return
	}
	m.cacheLookupsTotal.WithLabelValues(kind, result).Inc()
}

// RecordCachePruned records expired records removed by the janitor
func (m *Metrics) RecordCachePruned(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cachePrunedTotal.WithLabelValues(kind).Add(float64(n))
}

// RecordRemoteRequest records a finished API request. statusCode is "error"
// when no response was received.
func (m *Metrics) RecordRemoteRequest(endpoint, statusCode string, duration time.Duration) {
	if m == nil {
		return
	}
	m.remoteRequestsTotal.WithLabelValues(endpoint, statusCode).Inc()
	m.remoteRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRemoteRetry records a retried API request
func (m *Metrics) RecordRemoteRetry(endpoint string) {
	if m == nil {
		return
	}
	m.remoteRetriesTotal.WithLabelValues(endpoint).Inc()
}

// RecordBackgroundTask records a finished or dropped background task
func (m *Metrics) RecordBackgroundTask(task, status string) {
	if m == nil {
		return
	}
	m.backgroundTasksTotal.WithLabelValues(task, status).Inc()
}

// RecordFavoriteRollback records a favorite rollback attempt
func (m *Metrics) RecordFavoriteRollback(status string) {
	if m == nil {
		return
	}
	m.favoriteRollbacksTotal.WithLabelValues(status).Inc()
}
