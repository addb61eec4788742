// Package metrics defines the Prometheus collectors of the relay. All
// collectors live on a private registry so tests can build independent
// instances.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics encapsulates Prometheus metrics for the server.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP layer
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ActiveRequests  *prometheus.GaugeVec
	ErrorsTotal     *prometheus.CounterVec

	// Pipeline
	EventsTotal     *prometheus.CounterVec
	InvalidEvents   prometheus.Counter
	RepliesTotal    *prometheus.CounterVec
	BatchSize       prometheus.Histogram
	DegradedReplies *prometheus.CounterVec
	ReplyDuration   prometheus.Histogram
	InFlightEvents  prometheus.Gauge

	// Completion calls
	CompletionsTotal    *prometheus.CounterVec
	CompletionDuration  *prometheus.HistogramVec
	CircuitBreakerState *prometheus.GaugeVec
	RateLimitWait       prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with a custom registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		registry: registry,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kotoba_http_requests_total",
				Help: "Total number of HTTP requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kotoba_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		ActiveRequests: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kotoba_http_active_requests",
				Help: "Number of currently active HTTP requests",
			},
			[]string{"endpoint"},
		),
		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kotoba_errors_total",
				Help: "Failed webhook deliveries by error type",
			},
			[]string{"type"},
		),
		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kotoba_events_total",
				Help: "Webhook events by route (auto_rewrite, question, unknown_command, ignored)",
			},
			[]string{"route"},
		),
		InvalidEvents: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "kotoba_invalid_events_total",
				Help: "Webhook events rejected at the boundary",
			},
		),
		RepliesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kotoba_replies_total",
				Help: "Reply-send attempts by outcome",
			},
			[]string{"outcome"},
		),
		BatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kotoba_webhook_batch_size",
				Help:    "Number of events per webhook delivery",
				Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
			},
		),
		DegradedReplies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kotoba_degraded_replies_total",
				Help: "Replies that carried the failure text instead of a completion",
			},
			[]string{"use_case"},
		),
		ReplyDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kotoba_reply_duration_seconds",
				Help:    "Duration of reply-send calls",
				Buckets: prometheus.DefBuckets,
			},
		),
		InFlightEvents: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kotoba_events_in_flight",
				Help: "Events currently being handled",
			},
		),
		CompletionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kotoba_completions_total",
				Help: "Completion calls by profile and outcome",
			},
			[]string{"profile", "outcome"},
		),
		CompletionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kotoba_completion_duration_seconds",
				Help:    "Duration of completion calls",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
			},
			[]string{"profile"},
		),
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kotoba_circuit_breaker_state",
				Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
			},
			[]string{"profile"},
		),
		RateLimitWait: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kotoba_rate_limit_wait_seconds",
				Help:    "Time spent waiting for the outbound rate limiter",
				Buckets: []float64{0, .01, .05, .1, .5, 1, 5},
			},
		),
	}

	// Register default Go metrics
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	for _, route := range []string{"auto_rewrite", "question", "unknown_command", "ignored"} {
		m.EventsTotal.WithLabelValues(route).Add(0)
	}
	m.RepliesTotal.WithLabelValues("success").Add(0)
	m.RepliesTotal.WithLabelValues("failure").Add(0)

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns a handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: false,
	})
}
