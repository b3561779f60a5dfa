// Package metrics constructs the metrics the application will track.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ledger"

// Metrics holds the request metrics for the web api.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
	panics   prometheus.Counter
}

// New constructs the request metrics and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total number of API requests.",
			},
			[]string{"method", "route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "API request duration in seconds.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Total number of API requests that returned an error.",
			},
			[]string{"method", "route"},
		),
		panics: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "panics_total",
				Help:      "Total number of recovered panics.",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration, m.errors, m.panics} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return &m, nil
}

// ObserveRequest records a completed request that started at start.
func (m *Metrics) ObserveRequest(method string, route string, status int, start time.Time) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
}

// AddError records a request that returned an error.
func (m *Metrics) AddError(method string, route string) {
	m.errors.WithLabelValues(method, route).Inc()
}

// AddPanic records a recovered panic.
func (m *Metrics) AddPanic() {
	m.panics.Inc()
}
