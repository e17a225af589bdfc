package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "happdash",
			Name:      "http_requests_total",
			Help:      "Dashboard API requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	backendRequests = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "happdash",
			Name:      "backend_request_seconds",
			Help:      "Reservation engine request latency by method and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)

	cacheFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "happdash",
			Name:      "cache_fetches_total",
			Help:      "Cache fetches by key and result.",
		},
		[]string{"key", "result"},
	)

	cacheDedup = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "happdash",
			Name:      "cache_dedup_total",
			Help:      "Readers that joined an already in-flight fetch.",
		},
		[]string{"key"},
	)

	cacheInvalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "happdash",
			Name:      "cache_invalidations_total",
			Help:      "Explicit invalidations by key.",
		},
		[]string{"key"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, backendRequests, cacheFetches, cacheDedup, cacheInvalidations)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// ObserveBackendRequest records one engine round trip.
func ObserveBackendRequest(method, status string, elapsed time.Duration) {
	backendRequests.WithLabelValues(method, status).Observe(elapsed.Seconds())
}

// IncCacheFetch counts a completed fetch; result is "ok" or "error".
func IncCacheFetch(key, result string) {
	cacheFetches.WithLabelValues(key, result).Inc()
}

// IncCacheDedup counts a reader attached to a pending fetch.
func IncCacheDedup(key string) {
	cacheDedup.WithLabelValues(key).Inc()
}

// IncCacheInvalidation counts an explicit invalidation.
func IncCacheInvalidation(key string) {
	cacheInvalidations.WithLabelValues(key).Inc()
}
