// Package metrics provides Prometheus metrics for Social Pulse.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "socialpulse"

var (
	// CyclesTotal counts summary cycles by trigger (api, sweep, cli) and status.
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_cycles_total",
			Help:      "Total number of summary cycles",
		},
		[]string{"trigger", "status"},
	)

	// CycleDuration measures end-to-end cycle duration.
	CycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "summary_cycle_duration_seconds",
			Help:      "Duration of summary cycles in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"trigger"},
	)

	// FetchedItems observes how many in-window items each handle returned.
	FetchedItems = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetched_items",
			Help:      "Distribution of in-window items per fetched handle",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
		[]string{"platform"},
	)

	// FetchErrorsTotal counts fetches that ended with an error.
	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Total number of failed content fetches",
		},
		[]string{"platform"},
	)

	// OracleCallsTotal counts summarization calls by outcome
	// (ok, no_content, no_response, malformed).
	OracleCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_calls_total",
			Help:      "Total number of trend summarization calls",
		},
		[]string{"platform", "outcome"},
	)

	// DeliveriesTotal counts report emails by status.
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Total number of report deliveries",
		},
		[]string{"status"},
	)

	// VerificationsTotal counts handle verifications by result.
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Total number of handle verifications",
		},
		[]string{"platform", "result"},
	)

	// HTTPRequestsTotal counts API requests by method and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)
)

// RecordCycle records a finished summary cycle.
func RecordCycle(trigger, status string, duration time.Duration) {
	CyclesTotal.WithLabelValues(trigger, status).Inc()
	CycleDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// RecordFetch records one handle fetch.
func RecordFetch(platform string, items int, err error) {
	if err != nil {
		FetchErrorsTotal.WithLabelValues(platform).Inc()
	}
	FetchedItems.WithLabelValues(platform).Observe(float64(items))
}

// RecordOracleCall records one summarization attempt.
func RecordOracleCall(platform, outcome string) {
	OracleCallsTotal.WithLabelValues(platform, outcome).Inc()
}

// RecordDelivery records an email delivery attempt.
func RecordDelivery(err error) {
	DeliveriesTotal.WithLabelValues(statusOf(err)).Inc()
}

// RecordVerification records a handle verification.
func RecordVerification(platform string, verified bool) {
	result := "invalid"
	if verified {
		result = "valid"
	}
	VerificationsTotal.WithLabelValues(platform, result).Inc()
}

// RecordHTTPRequest records a served API request.
func RecordHTTPRequest(method, status string) {
	HTTPRequestsTotal.WithLabelValues(method, status).Inc()
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
