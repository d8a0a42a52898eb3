// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values for BookingsTotal and LockWait.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeTimeout  = "timeout"
	OutcomeError    = "error"
)

// Metrics groups every collector the service records.
type Metrics struct {
	// HTTP requests by method, route and status code
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP latency by method and route
	HTTPRequestDuration *prometheus.HistogramVec

	// booking engine calls; operation is book or cancel, outcome is
	// success, rejected (a domain error), timeout or error
	BookingsTotal *prometheus.CounterVec

	// time spent waiting for the per-show lock
	LockWait *prometheus.HistogramVec

	// transactions retried after a deadlock or lock-wait timeout
	TxRetries prometheus.Counter
}

// New registers on the default registry, which promhttp.Handler serves.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		BookingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookings_total",
				Help: "Booking and cancellation attempts by outcome",
			},
			[]string{"operation", "outcome"},
		),
		LockWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "show_lock_wait_seconds",
				Help:    "Time spent acquiring the per-show lock",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"backend", "outcome"},
		),
		TxRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "booking_tx_retries_total",
				Help: "Booking transactions retried after a transient storage error",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BookingsTotal,
		m.LockWait,
		m.TxRetries,
	)
	return m
}
