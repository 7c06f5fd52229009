package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTT error stages.
const (
	MQTTStageConnect   = "connect"
	MQTTStageSubscribe = "subscribe"
	MQTTStageLost      = "connection_lost"
	MQTTStagePublish   = "publish"
)

// MQTTMetrics tracks the MQTT remote: broker connection, control messages
// received and state messages published.
type MQTTMetrics struct {
	Connected         prometheus.Gauge
	LastConnectTime   prometheus.Gauge
	ReconnectAttempts prometheus.Counter
	Commands          *prometheus.CounterVec
	StatePublished    prometheus.Counter
	Errors            *prometheus.CounterVec
	StateSize         prometheus.Histogram
	PublishLatency    prometheus.Histogram
}

// NewMQTTMetrics creates and registers MQTT metrics on registry.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "audiofx_mqtt_connected",
			Help: "1 while connected to the broker",
		}),
		LastConnectTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "audiofx_mqtt_last_connect_timestamp_seconds",
			Help: "Unix time of the last successful broker connection",
		}),
		ReconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audiofx_mqtt_reconnect_attempts_total",
			Help: "Broker reconnection attempts",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audiofx_mqtt_commands_total",
			Help: "Control messages received by command and status",
		}, []string{"command", "status"}),
		StatePublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audiofx_mqtt_state_published_total",
			Help: "State messages delivered to the broker",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audiofx_mqtt_errors_total",
			Help: "MQTT failures by stage",
		}, []string{"stage"}),
		StateSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "audiofx_mqtt_state_size_bytes",
			Help:    "Size of published state messages",
			Buckets: prometheus.ExponentialBuckets(BucketStart64B, BucketFactor2, BucketCount10),
		}),
		PublishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "audiofx_mqtt_publish_latency_seconds",
			Help:    "Time until the broker acknowledged a state message",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		}),
	}
	for _, c := range m.collectors() {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
		}
	}
	return m, nil
}

func (m *MQTTMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Connected, m.LastConnectTime, m.ReconnectAttempts, m.Commands,
		m.StatePublished, m.Errors, m.StateSize, m.PublishLatency,
	}
}

// UpdateConnectionStatus sets the connection gauge and, on connect, the
// last connect time.
func (m *MQTTMetrics) UpdateConnectionStatus(connected bool) {
	if !connected {
		m.Connected.Set(0)
		return
	}
	m.Connected.Set(1)
	m.LastConnectTime.SetToCurrentTime()
}

// RecordCommand counts one received control message.
func (m *MQTTMetrics) RecordCommand(command, status string) {
	m.Commands.WithLabelValues(command, status).Inc()
}

// RecordPublished counts a delivered state message of size bytes.
func (m *MQTTMetrics) RecordPublished(size int) {
	m.StatePublished.Inc()
	m.StateSize.Observe(float64(size))
}

// RecordError counts a failure at stage.
func (m *MQTTMetrics) RecordError(stage string) {
	m.Errors.WithLabelValues(stage).Inc()
}

func (m *MQTTMetrics) IncrementReconnectAttempts() {
	m.ReconnectAttempts.Inc()
}

// StartPublishTimer starts timing one publish.
func (m *MQTTMetrics) StartPublishTimer() *PublishTimer {
	return &PublishTimer{start: time.Now(), histogram: m.PublishLatency}
}

// PublishTimer measures a single publish.
type PublishTimer struct {
	start     time.Time
	histogram prometheus.Histogram
}

// ObserveDuration records the time since the timer started.
func (pt *PublishTimer) ObserveDuration() {
	pt.histogram.Observe(time.Since(pt.start).Seconds())
}
