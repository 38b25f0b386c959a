// Package metrics declares the service's Prometheus instruments. Counters
// are incremented where the work happens; runtime gauges are bound to their
// sources once at startup via RegisterRuntime.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsCreated counts accepted captures by input type.
	RecordsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intray_records_created_total",
			Help: "Total number of records created",
		},
		[]string{"input_type"},
	)

	// AnalysisTotal counts finished classification runs.
	AnalysisTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intray_analysis_total",
			Help: "Total number of analysis runs by outcome",
		},
		[]string{"outcome"},
	)

	// UploadsTotal counts upload attempts by target service.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intray_uploads_total",
			Help: "Total number of uploads by target and outcome",
		},
		[]string{"target", "outcome"},
	)

	// HTTPRequests counts handled API requests.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intray_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPDuration tracks API request latency.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intray_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Outcome labels for AnalysisTotal and UploadsTotal.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// StreamCounts exposes live subscriber totals, satisfied by stream.Broker.
type StreamCounts interface {
	Subscribers() int
	Drops() int64
}

// QueueCounts exposes the background queue depth, satisfied by jobs.Runner.
type QueueCounts interface {
	Backlog() int
}

// RegisterRuntime binds gauges to live runtime state. Call once at startup;
// registering twice panics.
func RegisterRuntime(streams StreamCounts, queue QueueCounts) {
	if streams != nil {
		promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "intray_stream_subscribers",
			Help: "Open event stream subscriptions",
		}, func() float64 { return float64(streams.Subscribers()) })
		promauto.NewCounterFunc(prometheus.CounterOpts{
			Name: "intray_stream_dropped_frames_total",
			Help: "Event frames dropped against full subscriber queues",
		}, func() float64 { return float64(streams.Drops()) })
	}
	if queue != nil {
		promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "intray_jobs_backlog",
			Help: "Queued background tasks not yet started",
		}, func() float64 { return float64(queue.Backlog()) })
	}
}
