package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec

	authFailuresTotal *prometheus.CounterVec

	wsConnections          prometheus.Gauge
	realtimeEventsTotal    *prometheus.CounterVec
	realtimeDroppedTotal   *prometheus.CounterVec
	realtimeBridgeFailures *prometheus.CounterVec

	uploadRequestsTotal  *prometheus.CounterVec
	uploadRejectedTotal  *prometheus.CounterVec
	uploadLatencySeconds prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used across the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyrooms_http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studyrooms_http_latency_seconds",
			Help:    "Latency distribution for HTTP requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyrooms_http_errors_total",
			Help: "Total number of error responses returned.",
		}, []string{"method", "route", "status"})

		authFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyrooms_auth_failures_total",
			Help: "Authentication failures by reason.",
		}, []string{"reason"})

		wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "studyrooms_ws_connections",
			Help: "Currently open realtime websocket connections.",
		})

		realtimeEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyrooms_realtime_events_total",
			Help: "Realtime events delivered to local subscribers by type.",
		}, []string{"type"})

		realtimeDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyrooms_realtime_dropped_total",
			Help: "Realtime events dropped before delivery.",
		}, []string{"reason"})

		realtimeBridgeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyrooms_realtime_bridge_failures_total",
			Help: "Failures publishing realtime events to the cross-node bus.",
		}, []string{"transport"})

		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyrooms_upload_requests_total",
			Help: "Accepted uploads by detected MIME type.",
		}, []string{"type"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyrooms_upload_rejected_total",
			Help: "Rejected uploads by reason.",
		}, []string{"reason"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "studyrooms_upload_latency_seconds",
			Help:    "Time spent validating and storing uploads.",
			Buckets: prometheus.DefBuckets,
		})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			authFailuresTotal,
			wsConnections, realtimeEventsTotal, realtimeDroppedTotal, realtimeBridgeFailures,
			uploadRequestsTotal, uploadRejectedTotal, uploadLatencySeconds,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// AuthFailures exposes the authentication failure counter.
func AuthFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return authFailuresTotal
}

// WebsocketConnections exposes the open connection gauge.
func WebsocketConnections() prometheus.Gauge {
	RegisterMetrics()
	return wsConnections
}

// RealtimeEvents exposes the delivered event counter.
func RealtimeEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return realtimeEventsTotal
}

// RealtimeDropped exposes the dropped event counter.
func RealtimeDropped() *prometheus.CounterVec {
	RegisterMetrics()
	return realtimeDroppedTotal
}

// RealtimeBridgeFailures exposes the cross-node publish failure counter.
func RealtimeBridgeFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return realtimeBridgeFailures
}

// UploadRequests exposes the accepted upload counter.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequestsTotal
}

// UploadRejected exposes the rejected upload counter.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// UploadLatency exposes the upload latency histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}
