package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequests counts API round trips by method, route template, and status.
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_api_requests_total",
		Help: "Total number of API requests by method, route, and status",
	}, []string{"method", "route", "status"})

	// APIRequestDuration records API latency by method and route template.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agora_api_request_duration_seconds",
		Help:    "API request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// OptimisticRollbacks counts reverted optimistic updates by entity kind.
	OptimisticRollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_optimistic_rollbacks_total",
		Help: "Total number of optimistic updates rolled back after a failed request",
	}, []string{"entity"})

	// DeferredIntents counts deferred actions by kind and outcome.
	DeferredIntents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_deferred_intents_total",
		Help: "Total number of deferred actions by kind and outcome",
	}, []string{"kind", "outcome"})

	// CacheFallbacks counts reads answered from the last-known-good cache.
	CacheFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_cache_fallbacks_total",
		Help: "Total number of failed reads served from the read cache",
	}, []string{"resource"})
)

// TrackRequest returns a function that records latency for route when called (e.g. defer).
func TrackRequest(method, route string) func() {
	start := time.Now()
	return func() {
		APIRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
