// Package observability owns the Prometheus collectors and the OpenTelemetry tracer.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokenValidations counts public token checks by resulting status.
	TokenValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quotewall_token_validations_total",
		Help: "Collection token validations by resulting status",
	}, []string{"status"})

	// TokensIssued counts newly issued collection tokens.
	TokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quotewall_tokens_issued_total",
		Help: "Collection tokens issued",
	})

	// TokenCancellations counts cancel requests by outcome (cancelled, noop, rejected).
	TokenCancellations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quotewall_token_cancellations_total",
		Help: "Collection token cancel requests by outcome",
	}, []string{"outcome"})

	// TestimonialSubmissions counts public submissions by outcome.
	TestimonialSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quotewall_testimonial_submissions_total",
		Help: "Public testimonial submissions by outcome",
	}, []string{"outcome"})

	// WidgetRequests counts widget content requests by outcome.
	WidgetRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quotewall_widget_requests_total",
		Help: "Widget content requests by outcome",
	}, []string{"outcome"})

	// WidgetRenderDuration records time spent rendering widget HTML on cache misses.
	WidgetRenderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quotewall_widget_render_seconds",
		Help:    "Widget HTML render latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quotewall_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quotewall_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// EventSubscribers is the number of live dashboard event connections.
	EventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quotewall_event_subscribers",
		Help: "Open dashboard event websocket connections",
	})

	// EventDrops counts events dropped because a subscriber was too slow.
	EventDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quotewall_event_drops_total",
		Help: "Dashboard events dropped due to backpressure",
	})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
