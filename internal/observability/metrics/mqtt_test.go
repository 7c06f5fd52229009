package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMQTTMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.UpdateConnectionStatus(true)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Connected), 0)
	assert.Positive(t, testutil.ToFloat64(m.LastConnectTime))

	m.UpdateConnectionStatus(false)
	assert.InDelta(t, 0.0, testutil.ToFloat64(m.Connected), 0)

	m.RecordCommand("band", StatusSuccess)
	m.RecordCommand("band", StatusSuccess)
	m.RecordCommand("reverb", StatusError)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.Commands.WithLabelValues("band", StatusSuccess)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("reverb", StatusError)), 0)

	m.RecordPublished(512)
	m.RecordError(MQTTStagePublish)
	m.RecordError(MQTTStagePublish)
	m.IncrementReconnectAttempts()
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.StatePublished), 0)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.Errors.WithLabelValues(MQTTStagePublish)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.ReconnectAttempts), 0)

	m.StartPublishTimer().ObserveDuration()
	assert.Equal(t, 1, testutil.CollectAndCount(m.StateSize))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PublishLatency))
}

func TestMQTTMetrics_DoubleRegistration(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewMQTTMetrics(registry)
	require.NoError(t, err)
	_, err = NewMQTTMetrics(registry)
	require.Error(t, err)
}
