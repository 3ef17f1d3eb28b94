// Package observability provides Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astramentor_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "astramentor_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// FeedConnections is the gauge of active feed WebSocket connections.
	FeedConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "astramentor_feed_connections",
		Help: "Number of active feed WebSocket connections",
	})

	// FeedEventsTotal counts feed events published by type.
	FeedEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astramentor_feed_events_total",
		Help: "Total feed events published by type",
	}, []string{"event_type"})

	// FeedBackpressureDrops counts feed messages dropped because a client's
	// send buffer was full or closed.
	FeedBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astramentor_feed_backpressure_drops_total",
		Help: "Feed messages dropped due to client backpressure",
	}, []string{"reason"})

	// CommentCounterFailures counts best-effort comment counter increments that
	// failed after the comment row was already inserted.
	CommentCounterFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "astramentor_comment_counter_failures_total",
		Help: "Comment count increments that failed after a successful insert",
	})

	// UploadFallbacks counts uploads that needed the raw-bytes fallback strategy.
	UploadFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "astramentor_upload_fallbacks_total",
		Help: "Image uploads that fell back to the raw-bytes strategy",
	})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}
