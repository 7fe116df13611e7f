// Package observability holds the Prometheus collectors and the gin
// middleware that feeds them.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LLMBuckets covers chat latencies from 100ms up to the 60s call ceiling.
var LLMBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}

var (
	// RequestsTotal counts HTTP requests by method, route and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mrga_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mrga_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// StreamingConnections tracks chat streams currently being relayed.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mrga_streaming_connections_active",
			Help: "Active chat streams",
		},
	)

	// UpstreamRequestsTotal counts provider calls by outcome. status is the
	// HTTP status code, or an error kind when no response arrived.
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mrga_upstream_requests_total",
			Help: "Provider requests",
		},
		[]string{"provider", "status"},
	)

	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mrga_upstream_latency_seconds",
			Help:    "Time until provider response headers",
			Buckets: LLMBuckets,
		},
		[]string{"provider"},
	)

	// StreamEventsTotal counts events relayed to clients by type.
	StreamEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mrga_stream_events_total",
			Help: "Chat stream events sent to clients",
		},
		[]string{"provider", "type"},
	)

	// FallbacksTotal counts non-streaming answers served from local text.
	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mrga_fallback_responses_total",
			Help: "Fallback responses",
		},
		[]string{"provider", "reason"},
	)

	CatalogStations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mrga_catalog_stations",
			Help: "Stations in the catalog",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		UpstreamRequestsTotal,
		UpstreamLatency,
		StreamEventsTotal,
		FallbacksTotal,
		CatalogStations,
	)
}

// RecordUpstream notes one provider call.
func RecordUpstream(provider, status string, elapsed time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(provider, status).Inc()
	UpstreamLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func RecordStreamEvent(provider, eventType string) {
	StreamEventsTotal.WithLabelValues(provider, eventType).Inc()
}

func RecordFallback(provider, reason string) {
	FallbacksTotal.WithLabelValues(provider, reason).Inc()
}
