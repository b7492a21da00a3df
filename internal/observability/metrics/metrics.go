// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "transcript_sync"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Connection metrics
	ConnectsTotal    prometheus.Counter
	ConnectionUp     prometheus.Gauge
	StateTransitions *prometheus.CounterVec

	// Reconnection metrics
	ReconnectAttempts  prometheus.Counter
	ReconnectExhausted prometheus.Counter
	ReconnectDelay     prometheus.Histogram

	// Liveness metrics
	HeartbeatsSent     prometheus.Counter
	HeartbeatAcks      prometheus.Counter
	LivenessReconnects prometheus.Counter

	// Frame metrics
	FramesReceived *prometheus.CounterVec
	FramesDropped  *prometheus.CounterVec

	// Segment metrics
	SegmentsInterim prometheus.Counter
	SegmentsFinal   prometheus.Counter
	DedupRejected   *prometheus.CounterVec
	HistorySize     prometheus.Gauge
	ActiveSegments  prometheus.Gauge

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Connection metrics
		ConnectsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connects_total",
			Help:      "Total number of transports successfully opened",
		}),
		ConnectionUp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_up",
			Help:      "Whether the feed connection is currently open (1) or not (0)",
		}),
		StateTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Total number of connection state transitions",
		}, []string{"state"}),

		// Reconnection metrics
		ReconnectAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnect_attempts_total",
			Help:      "Total number of reconnection attempts scheduled",
		}),
		ReconnectExhausted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnect_exhausted_total",
			Help:      "Total number of times the reconnect budget was exhausted",
		}),
		ReconnectDelay: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconnect_delay_seconds",
			Help:      "Backoff delay applied before reconnection attempts",
			Buckets:   []float64{1, 2, 4, 8, 16, 30},
		}),

		// Liveness metrics
		HeartbeatsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeats_sent_total",
			Help:      "Total number of liveness probes sent",
		}),
		HeartbeatAcks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeat_acks_total",
			Help:      "Total number of heartbeat acknowledgments received",
		}),
		LivenessReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "liveness_reconnects_total",
			Help:      "Total number of forced reconnects due to missed heartbeats",
		}),

		// Frame metrics
		FramesReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Total number of inbound frames by type",
		}, []string{"type"}),
		FramesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Total number of inbound frames dropped",
		}, []string{"reason"}),

		// Segment metrics
		SegmentsInterim: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_interim_total",
			Help:      "Total number of interim segment updates applied",
		}),
		SegmentsFinal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_final_total",
			Help:      "Total number of segments finalized into history",
		}),
		DedupRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_rejected_total",
			Help:      "Total number of segment updates rejected by the dedup filter",
		}, []string{"reason"}),
		HistorySize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_segments",
			Help:      "Number of finalized segments currently held",
		}),
		ActiveSegments: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_segments",
			Help:      "Number of in-progress segments currently held",
		}),

		// Kafka publish metrics
		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordStateTransition records the connection entering a new state.
func (m *Metrics) RecordStateTransition(state string, connected bool) {
	m.StateTransitions.WithLabelValues(state).Inc()
	if connected {
		m.ConnectionUp.Set(1)
	} else {
		m.ConnectionUp.Set(0)
	}
}

// RecordConnect records a transport successfully opening.
func (m *Metrics) RecordConnect() {
	m.ConnectsTotal.Inc()
}

// RecordReconnectScheduled records a reconnection attempt and its delay.
func (m *Metrics) RecordReconnectScheduled(delaySeconds float64) {
	m.ReconnectAttempts.Inc()
	m.ReconnectDelay.Observe(delaySeconds)
}

// RecordReconnectExhausted records the budget running out.
func (m *Metrics) RecordReconnectExhausted() {
	m.ReconnectExhausted.Inc()
}

// RecordHeartbeatSent records an outgoing liveness probe.
func (m *Metrics) RecordHeartbeatSent() {
	m.HeartbeatsSent.Inc()
}

// RecordHeartbeatAck records an acknowledgment to a local probe.
func (m *Metrics) RecordHeartbeatAck() {
	m.HeartbeatAcks.Inc()
}

// RecordLivenessReconnect records a forced reconnect after missed probes.
func (m *Metrics) RecordLivenessReconnect() {
	m.LivenessReconnects.Inc()
}

// RecordFrame records an inbound frame by type.
func (m *Metrics) RecordFrame(frameType string) {
	m.FramesReceived.WithLabelValues(frameType).Inc()
}

// RecordFrameDropped records an inbound frame that was not applied.
func (m *Metrics) RecordFrameDropped(reason string) {
	m.FramesDropped.WithLabelValues(reason).Inc()
}

// RecordSegmentApplied records a segment update reaching the store.
func (m *Metrics) RecordSegmentApplied(final bool) {
	if final {
		m.SegmentsFinal.Inc()
	} else {
		m.SegmentsInterim.Inc()
	}
}

// RecordDedupRejected records a segment update stopped by the filter.
func (m *Metrics) RecordDedupRejected(reason string) {
	m.DedupRejected.WithLabelValues(reason).Inc()
}

// RecordStoreSize records the current store contents.
func (m *Metrics) RecordStoreSize(history, active int) {
	m.HistorySize.Set(float64(history))
	m.ActiveSegments.Set(float64(active))
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
