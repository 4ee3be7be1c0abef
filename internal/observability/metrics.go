// Package observability registers and updates the service's prometheus
// instruments.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	cacheOpTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Cache backend operations by op and result.",
		},
		[]string{"op", "result"},
	)

	cacheOpDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_op_duration_seconds",
			Help:    "Duration of cache backend operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	planCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_cache_results_total",
			Help: "Plan cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	planOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_outcomes_total",
			Help: "Fuel plan computations by outcome.",
		},
		[]string{"outcome"},
	)

	fuelStopsPerPlan = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fuel_stops_per_plan",
			Help:    "Number of refueling stops per successful plan.",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream"},
	)

	invalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invalidations_total",
			Help: "Cache invalidation events by result.",
		},
		[]string{"result"},
	)

	invalidatedKeysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "invalidated_keys_total",
			Help: "Plan cache keys deleted by invalidation events.",
		},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	cacheOpTotal.WithLabelValues(op, result).Inc()
	cacheOpDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func AddPlanCacheHit()  { planCacheResults.WithLabelValues("hit").Inc() }
func AddPlanCacheMiss() { planCacheResults.WithLabelValues("miss").Inc() }

// ObservePlan records a computation outcome; stops is ignored for failures.
func ObservePlan(outcome string, stops int) {
	planOutcomes.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		fuelStopsPerPlan.Observe(float64(stops))
	}
}

func ObserveUpstreamLatency(upstream string, seconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream).Observe(seconds)
}

func ObserveInvalidation(err error, deletedKeys int) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	invalidationsTotal.WithLabelValues(result).Inc()
	if deletedKeys > 0 {
		invalidatedKeysTotal.Add(float64(deletedKeys))
	}
}

func ExposeBuildInfo(version string) {
	buildInfo.WithLabelValues(version).Set(1)
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
