package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmlib_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status_code"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filmlib_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filmlib_http_active_requests",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filmlib_rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter.",
		},
	)

	MembershipWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmlib_membership_writes_total",
			Help: "Membership writes by list and outcome (created, updated, deleted, rejected).",
		},
		[]string{"list", "outcome"},
	)
)

// RecordRequest records the outcome of one HTTP request.
func RecordRequest(method, route string, status int, elapsed time.Duration) {
	RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
