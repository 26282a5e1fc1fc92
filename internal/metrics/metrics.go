// Package metrics provides Prometheus metrics collection for the geo cache service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration tracks HTTP request duration by method, path, and status code.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)

	// HTTPRequestTotal tracks total HTTP requests by method, path, and status code.
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	// LookupsTotal tracks lookups by request kind and outcome (hit, miss, error, invalid).
	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocache_lookups_total",
			Help: "Total number of cache lookups",
		},
		[]string{"kind", "result"},
	)

	// LookupDuration tracks end-to-end lookup latency.
	LookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geocache_lookup_duration_seconds",
			Help:    "Lookup duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"kind", "result"},
	)

	// BatchSize tracks the number of items per batch request.
	BatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geocache_batch_size",
			Help:    "Items per batch lookup request",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"kind"},
	)

	// ProviderCallsTotal tracks external provider calls.
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocache_provider_calls_total",
			Help: "Total number of external provider calls",
		},
		[]string{"provider", "result"},
	)

	// ProviderCallDuration tracks external provider latency.
	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geocache_provider_call_duration_seconds",
			Help:    "External provider call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider"},
	)

	// StoreOperationsTotal tracks backing store operations.
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocache_store_operations_total",
			Help: "Total number of cache store operations",
		},
		[]string{"operation", "result"},
	)

	// LocalCacheOperationsTotal tracks operations on the in-process cache tier.
	LocalCacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocache_local_cache_operations_total",
			Help: "Total number of in-process cache operations",
		},
		[]string{"operation", "result"},
	)

	// CacheEntries tracks the number of stored entries as of the last stats run.
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "geocache_entries",
			Help: "Cache entries in the backing store",
		},
		[]string{"state"},
	)

	// CacheHitRatio is the window hit rate from the last stats run.
	CacheHitRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "geocache_hit_ratio",
			Help: "Cache hit ratio over the reporting window",
		},
	)

	// EstimatedMonthlySavings is the savings estimate from the last maintenance run.
	EstimatedMonthlySavings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "geocache_estimated_monthly_savings_dollars",
			Help: "Estimated monthly provider cost avoided by the cache",
		},
	)

	// MaintenanceRunsTotal tracks maintenance runs by action and outcome.
	MaintenanceRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocache_maintenance_runs_total",
			Help: "Total number of maintenance runs",
		},
		[]string{"action", "result"},
	)

	// ExpiredEntriesCleaned counts entries removed by sweeps.
	ExpiredEntriesCleaned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geocache_expired_entries_cleaned_total",
			Help: "Total number of expired entries removed",
		},
	)

	// UsageEventsDropped counts hit/usage events dropped because the recorder queue was full.
	UsageEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geocache_usage_events_dropped_total",
			Help: "Usage events dropped by the recorder",
		},
	)

	// CircuitBreakerState exposes breaker state (0 closed, 1 open, 2 half-open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "geocache_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)
)

// PrometheusMiddleware returns a Gin middleware that collects HTTP metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start).Seconds()
		statusCode := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(duration)
		HTTPRequestTotal.WithLabelValues(method, path, statusCode).Inc()
	}
}

// RecordLookup records the outcome and latency of a single lookup.
func RecordLookup(kind, result string, duration time.Duration) {
	LookupsTotal.WithLabelValues(kind, result).Inc()
	LookupDuration.WithLabelValues(kind, result).Observe(duration.Seconds())
}

// RecordBatch records the size of a batch request.
func RecordBatch(kind string, size int) {
	BatchSize.WithLabelValues(kind).Observe(float64(size))
}

// RecordProviderCall records one external provider call.
func RecordProviderCall(provider, result string, duration time.Duration) {
	ProviderCallsTotal.WithLabelValues(provider, result).Inc()
	ProviderCallDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordStoreOperation records metrics for a cache store operation.
func RecordStoreOperation(operation, result string) {
	StoreOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordLocalCacheOperation records an in-process cache get or eviction.
func RecordLocalCacheOperation(operation, result string) {
	LocalCacheOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordMaintenance records a maintenance run.
func RecordMaintenance(action, result string, cleaned int64) {
	MaintenanceRunsTotal.WithLabelValues(action, result).Inc()
	if cleaned > 0 {
		ExpiredEntriesCleaned.Add(float64(cleaned))
	}
}

// UpdateCacheMetrics updates the gauges derived from aggregate store stats.
func UpdateCacheMetrics(total, expired int64, hitRate float64) {
	CacheEntries.WithLabelValues("total").Set(float64(total))
	CacheEntries.WithLabelValues("expired").Set(float64(expired))
	CacheHitRatio.Set(hitRate)
}

// SetCircuitBreakerState publishes the numeric state of a named breaker.
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
