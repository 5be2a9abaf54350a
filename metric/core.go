package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all SDK-level metrics (not bot-specific)
type Metrics struct {
	// Client metrics
	ClientStatus       prometheus.Gauge
	FramesReceived     *prometheus.CounterVec
	MessagesPublished  *prometheus.CounterVec
	SubscriptionsGauge prometheus.Gauge
	ProcessingDuration *prometheus.HistogramVec
	ErrorsTotal        *prometheus.CounterVec

	// Stream metrics
	EmissionsDropped *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all SDK metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ClientStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "videostream",
				Subsystem: "client",
				Name:      "status",
				Help:      "RTM client status (1=stopped, 2=running, 3=pending_stopped)",
			},
		),

		FramesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "videostream",
				Subsystem: "client",
				Name:      "frames_received_total",
				Help:      "Total number of inbound protocol frames by action",
			},
			[]string{"action"},
		),

		MessagesPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "videostream",
				Subsystem: "client",
				Name:      "messages_published_total",
				Help:      "Total number of messages published by channel",
			},
			[]string{"channel"},
		),

		SubscriptionsGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "videostream",
				Subsystem: "client",
				Name:      "subscriptions",
				Help:      "Number of channel subscription records in the registry",
			},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "videostream",
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"component", "operation"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "videostream",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"component", "type"},
		),

		EmissionsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "videostream",
				Subsystem: "streams",
				Name:      "emissions_dropped_total",
				Help:      "Emissions discarded by best-effort sources for lack of demand",
			},
			[]string{"source"},
		),
	}
}

// RecordClientStatus updates the client status gauge
func (m *Metrics) RecordClientStatus(status int) {
	m.ClientStatus.Set(float64(status))
}

// RecordFrameReceived increments the inbound frame counter
func (m *Metrics) RecordFrameReceived(action string) {
	m.FramesReceived.WithLabelValues(action).Inc()
}

// RecordMessagePublished increments the published message counter
func (m *Metrics) RecordMessagePublished(channel string) {
	m.MessagesPublished.WithLabelValues(channel).Inc()
}

// RecordSubscriptions updates the subscription registry size gauge
func (m *Metrics) RecordSubscriptions(n int) {
	m.SubscriptionsGauge.Set(float64(n))
}

// RecordProcessingDuration records processing time
func (m *Metrics) RecordProcessingDuration(component, operation string, duration time.Duration) {
	m.ProcessingDuration.WithLabelValues(component, operation).Observe(duration.Seconds())
}

// RecordError increments the error counter
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordEmissionsDropped adds to the dropped emission counter for a source
func (m *Metrics) RecordEmissionsDropped(source string, n int64) {
	if n > 0 {
		m.EmissionsDropped.WithLabelValues(source).Add(float64(n))
	}
}
