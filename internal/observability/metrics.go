package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec

	websocketSessionsActive prometheus.Gauge
	realtimeEventsTotal     *prometheus.CounterVec
	messagesSentTotal       prometheus.Counter
	postsCreatedTotal       *prometheus.CounterVec
	karmaAwardedTotal       prometheus.Counter
	uploadsTotal            *prometheus.CounterVec
	uploadsRejectedTotal    *prometheus.CounterVec
	trendLookupsTotal       *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "localaid_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "localaid_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		websocketSessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "localaid_websocket_sessions_active",
			Help: "Number of websocket sessions currently connected.",
		})

		realtimeEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "localaid_realtime_events_total",
			Help: "Realtime events pushed to connected clients, by event name.",
		}, []string{"event"})

		messagesSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "localaid_messages_sent_total",
			Help: "Chat messages appended to the ledger.",
		})

		postsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "localaid_posts_created_total",
			Help: "Posts created, by type.",
		}, []string{"type"})

		karmaAwardedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "localaid_karma_awarded_total",
			Help: "Total karma points awarded to helpers.",
		})

		uploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "localaid_uploads_total",
			Help: "Successful image uploads, by asset kind.",
		}, []string{"kind"})

		uploadsRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "localaid_uploads_rejected_total",
			Help: "Uploads rejected before reaching storage, by reason.",
		}, []string{"reason"})

		trendLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "localaid_trend_lookups_total",
			Help: "Trend summary lookups, by summary source.",
		}, []string{"source"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			websocketSessionsActive,
			realtimeEventsTotal,
			messagesSentTotal,
			postsCreatedTotal,
			karmaAwardedTotal,
			uploadsTotal,
			uploadsRejectedTotal,
			trendLookupsTotal,
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

// WebsocketSessions exposes the active session gauge.
func WebsocketSessions() prometheus.Gauge {
	RegisterMetrics()
	return websocketSessionsActive
}

// RealtimeEvents exposes the pushed-event counter.
func RealtimeEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return realtimeEventsTotal
}

// MessagesSent exposes the message counter.
func MessagesSent() prometheus.Counter {
	RegisterMetrics()
	return messagesSentTotal
}

// PostsCreated exposes the post creation counter.
func PostsCreated() *prometheus.CounterVec {
	RegisterMetrics()
	return postsCreatedTotal
}

// KarmaAwarded exposes the karma counter.
func KarmaAwarded() prometheus.Counter {
	RegisterMetrics()
	return karmaAwardedTotal
}

// Uploads exposes the upload counter.
func Uploads() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadsTotal
}

// UploadsRejected exposes the rejected-upload counter.
func UploadsRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadsRejectedTotal
}

// TrendLookups exposes the trend lookup counter.
func TrendLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return trendLookupsTotal
}
