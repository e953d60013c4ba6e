// Package observability provides Prometheus metrics and OpenTelemetry
// tracing setup for the service.
//
// Metrics are exposed on /metrics. All methods on a nil *Metrics are no-ops
// so components can run without instrumentation in tests.
package observability

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"piazza/models"
)

const metricsNamespace = "piazza"

type Metrics struct {
	// OperationsTotal counts engine operations.
	// Labels: operation (create_post, like, ...), outcome (ok, not_found, ...)
	OperationsTotal *prometheus.CounterVec

	// PostsExpiredTotal counts cached statuses flipped to Expired.
	// Labels: source (sweeper, read)
	PostsExpiredTotal *prometheus.CounterVec

	// MutationRetriesTotal counts store conflicts that led to a retry.
	MutationRetriesTotal prometheus.Counter

	// HTTPRequestsTotal counts requests by route and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration measures request latency by route.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics on reg. Registering twice on
// the same registry panics, so call it once per registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "engagement",
				Name:      "operations_total",
				Help:      "Engagement operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		PostsExpiredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "engagement",
				Name:      "posts_expired_total",
				Help:      "Posts whose cached status was flipped to Expired",
			},
			[]string{"source"},
		),
		MutationRetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "engagement",
				Name:      "mutation_retries_total",
				Help:      "Post mutations retried after a concurrent write",
			},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"method", "route"},
		),
	}
}

func (m *Metrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, Outcome(err)).Inc()
}

func (m *Metrics) PostExpired(source string) {
	if m == nil {
		return
	}
	m.PostsExpiredTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) MutationRetried() {
	if m == nil {
		return
	}
	m.MutationRetriesTotal.Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Outcome maps an engine error to a low-cardinality label.
func Outcome(err error) string {
	var verr *models.ValidationError
	var serr *models.StoreFailure
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr):
		return "validation_error"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrPostExpired):
		return "post_expired"
	case errors.Is(err, models.ErrSelfInteraction):
		return "self_interaction"
	case errors.Is(err, models.ErrInvalidTopic):
		return "invalid_topic"
	case errors.Is(err, models.ErrNoPostsInTopic):
		return "no_posts"
	case errors.Is(err, models.ErrConflict):
		return "conflict"
	case errors.Is(err, models.ErrUnauthorized):
		return "unauthorized"
	case errors.As(err, &serr):
		return "store_failure"
	}
	return "error"
}
