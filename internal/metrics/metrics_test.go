package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCacheLookup(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewMetrics(registry)
	require.NoError(t, err)

	m.RecordCacheLookup("search", LookupHit)
	m.RecordCacheLookup("search", LookupHit)
	m.RecordCacheLookup("detail", LookupExpired)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.cacheLookupsTotal.WithLabelValues("search", LookupHit)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cacheLookupsTotal.WithLabelValues("detail", LookupExpired)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.cacheLookupsTotal.WithLabelValues("detail", LookupMiss)))
}

func TestRecordRemoteRequest(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewMetrics(registry)
	require.NoError(t, err)

	m.RecordRemoteRequest("/search/movie", "200", 120*time.Millisecond)
	m.RecordRemoteRetry("/search/movie")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.remoteRequestsTotal.WithLabelValues("/search/movie", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.remoteRetriesTotal.WithLabelValues("/search/movie")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.remoteRequestDuration))
}

func TestRecordCachePruned_IgnoresZero(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewMetrics(registry)
	require.NoError(t, err)

	m.RecordCachePruned("search", 0)
	m.RecordCachePruned("detail", 3)

	assert.Equal(t, 1, testutil.CollectAndCount(m.cachePrunedTotal))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.cachePrunedTotal.WithLabelValues("detail")))
}

func TestRecordBackgroundTask_Statuses(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordBackgroundTask("refresh", StatusSuccess)
	m.RecordBackgroundTask("refresh", StatusDropped)
	m.RecordBackgroundTask("refresh", StatusDropped)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.backgroundTasksTotal.WithLabelValues("refresh", StatusSuccess)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.backgroundTasksTotal.WithLabelValues("refresh", StatusDropped)))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordCacheLookup("search", LookupHit)
		m.RecordCachePruned("search", 1)
		m.RecordRemoteRequest("/movie", "500", time.Second)
		m.RecordRemoteRetry("/movie")
		m.RecordBackgroundTask("refresh", StatusSuccess)
		m.RecordFavoriteRollback(StatusError)
	})
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewMetrics(registry)
	require.NoError(t, err)

	_, err = NewMetrics(registry)
	assert.Error(t, err)
}
