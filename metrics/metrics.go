// Package metrics provides Prometheus metrics for the lookup front end.
// It exports HTTP server metrics, metrics for calls to the medicine backend,
// and gauges for the per-session UI state:
//   - http_request_total / http_request_duration_seconds / http_request_in_flight
//   - apiclient_requests_total / apiclient_request_duration_seconds
//   - search_total (by outcome)
//   - ui_sessions_active, ui_toasts_active
//   - rate_limiter_buckets_total
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	APIClientRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apiclient_requests_total",
			Help: "Requests sent to the medicine backend, by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	APIClientDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apiclient_request_duration_seconds",
			Help:    "Medicine backend request latency",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	SearchTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_total",
			Help: "Search transactions, by outcome",
		},
		[]string{"outcome"},
	)

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ui_sessions_active",
			Help: "Browser sessions holding UI state",
		},
	)

	ToastsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ui_toasts_active",
			Help: "Toasts currently attached to a toast container",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(APIClientRequests)
	prometheus.MustRegister(APIClientDuration)
	prometheus.MustRegister(SearchTotals)
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(ToastsActive)
	prometheus.MustRegister(RateLimiterBucketsTotal)
}
