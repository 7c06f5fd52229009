package remote

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/audiofx/internal/control"
	"github.com/tphakala/audiofx/internal/engine"
	"github.com/tphakala/audiofx/internal/errors"
	"github.com/tphakala/audiofx/internal/logger"
	"github.com/tphakala/audiofx/internal/observability/metrics"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func doneToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient records publishes and subscriptions instead of talking to a
// broker.
type fakeClient struct {
	mu          sync.Mutex
	connected   bool
	connectErr  error
	published   []published
	filters     map[string]byte
	disconnects int
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) IsConnectionOpen() bool { return c.IsConnected() }

func (c *fakeClient) Connect() mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = c.connectErr == nil
	return doneToken(c.connectErr)
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.disconnects++
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload any) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, _ := payload.([]byte)
	c.published = append(c.published, published{topic, qos, retained, b})
	return doneToken(nil)
}

func (c *fakeClient) Subscribe(topic string, qos byte, _ mqtt.MessageHandler) mqtt.Token {
	return c.SubscribeMultiple(map[string]byte{topic: qos}, nil)
}

func (c *fakeClient) SubscribeMultiple(filters map[string]byte, _ mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = filters
	return doneToken(nil)
}

func (c *fakeClient) Unsubscribe(...string) mqtt.Token        { return doneToken(nil) }
func (c *fakeClient) AddRoute(string, mqtt.MessageHandler)    {}
func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }

func (c *fakeClient) publishes() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.published...)
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

var testConfig = Config{
	Broker:      "tcp://localhost:1883",
	ClientID:    "audiofx-test",
	TopicPrefix: "fx",
	QoS:         1,
	Retain:      true,
}

func newTestRemote(t *testing.T) (*Remote, *control.Service, *fakeClient, *metrics.MQTTMetrics) {
	t.Helper()
	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
	svc := control.New(engine.New(engine.WithLogger(log)), control.WithLogger(log))
	m, err := metrics.NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	client := &fakeClient{}
	r := New(testConfig, svc, WithClient(client), WithLogger(log), WithMetrics(m))
	return r, svc, client, m
}

func TestHandleMessage_Band(t *testing.T) {
	t.Parallel()

	r, svc, _, _ := newTestRemote(t)

	cmd, err := r.handleMessage("fx/set/band/2", []byte(" -6.5 "))
	require.NoError(t, err)
	assert.Equal(t, "band", cmd)
	assert.InDelta(t, -6.5, svc.State().Equalizer.Bands[2].GainDB, 0)

	_, err = r.handleMessage("fx/set/band/4", []byte(`{"gain_db": 3}`))
	require.NoError(t, err)
	assert.InDelta(t, 3.0, svc.State().Equalizer.Bands[4].GainDB, 0)
}

func TestHandleMessage_BandRejects(t *testing.T) {
	t.Parallel()

	r, _, _, _ := newTestRemote(t)

	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"non-numeric index", "fx/set/band/x", "1"},
		{"garbage payload", "fx/set/band/1", "loud"},
		{"json without gain", "fx/set/band/1", `{"gain": 3}`},
		{"index out of range", "fx/set/band/9", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.handleMessage(tt.topic, []byte(tt.payload))
			require.Error(t, err)
		})
	}
}

func TestHandleMessage_Bands(t *testing.T) {
	t.Parallel()

	r, svc, _, _ := newTestRemote(t)

	_, err := r.handleMessage("fx/set/bands", []byte(`{"gains":[1,2,3,4,5,6]}`))
	require.NoError(t, err)
	for i, b := range svc.State().Equalizer.Bands {
		assert.InDelta(t, float64(i+1), b.GainDB, 0)
	}

	_, err = r.handleMessage("fx/set/bands", []byte(`{"gains":[1,2]}`))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestHandleMessage_ReverbPartialUpdate(t *testing.T) {
	t.Parallel()

	r, svc, _, _ := newTestRemote(t)
	before := svc.State().Reverb.Parameters

	cmd, err := r.handleMessage("fx/set/reverb", []byte(`{"mix": 30, "enabled": true}`))
	require.NoError(t, err)
	assert.Equal(t, "reverb", cmd)

	st := svc.State().Reverb
	assert.True(t, st.Enabled)
	assert.InDelta(t, 30.0, st.Parameters.Mix, 0)
	assert.InDelta(t, before.RoomSize, st.Parameters.RoomSize, 0)
	assert.InDelta(t, before.DecayTime, st.Parameters.DecayTime, 0)

	_, err = r.handleMessage("fx/set/reverb", []byte(`[1,2]`))
	require.Error(t, err)
}

func TestHandleMessage_Commands(t *testing.T) {
	t.Parallel()

	r, svc, _, _ := newTestRemote(t)

	_, err := r.handleMessage("fx/cmd/"+CmdEqualizerDisable, nil)
	require.NoError(t, err)
	assert.False(t, svc.State().Equalizer.Enabled)

	_, err = r.handleMessage("fx/cmd/"+CmdEqualizerEnable, nil)
	require.NoError(t, err)
	assert.True(t, svc.State().Equalizer.Enabled)

	_, err = r.handleMessage("fx/cmd/"+CmdPreset, []byte("bass-boost"))
	require.NoError(t, err)
	assert.InDelta(t, 6.0, svc.State().Equalizer.Bands[0].GainDB, 0)

	_, err = r.handleMessage("fx/cmd/"+CmdEqualizerReset, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, svc.State().Equalizer.Bands[0].GainDB, 0)

	_, err = r.handleMessage("fx/cmd/"+CmdPreset, []byte("no-such-preset"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))

	_, err = r.handleMessage("fx/cmd/"+CmdPreset, nil)
	require.Error(t, err)

	cmd, err := r.handleMessage("fx/cmd/explode", nil)
	require.Error(t, err)
	assert.Equal(t, "explode", cmd)
}

func TestHandleMessage_ForeignTopic(t *testing.T) {
	t.Parallel()

	r, _, _, _ := newTestRemote(t)
	cmd, err := r.handleMessage("other/set/band/1", []byte("1"))
	require.Error(t, err)
	assert.Equal(t, "unknown", cmd)
}

func TestOnMessage_RecordsMetrics(t *testing.T) {
	t.Parallel()

	r, _, client, m := newTestRemote(t)

	r.onMessage(client, fakeMessage{topic: "fx/set/band/0", payload: []byte("2")})
	r.onMessage(client, fakeMessage{topic: "fx/set/band/0", payload: []byte("nope")})

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("band", metrics.StatusSuccess)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("band", metrics.StatusError)), 0)
}

func TestOnConnect_Subscribes(t *testing.T) {
	t.Parallel()

	r, _, client, m := newTestRemote(t)
	r.onConnect(client)

	assert.Equal(t, map[string]byte{"fx/set/#": 1, "fx/cmd/#": 1}, client.filters)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Connected), 0)
}

func TestEnqueue_KeepsLatest(t *testing.T) {
	t.Parallel()

	r, svc, _, _ := newTestRemote(t)

	_, err := svc.SetBandGain(0, -1)
	require.NoError(t, err)
	_, err = svc.SetBandGain(0, -2)
	require.NoError(t, err)

	require.Len(t, r.pending, 1)
	s := <-r.pending
	assert.InDelta(t, -2.0, s.Equalizer.Bands[0].GainDB, 0)
}

func TestPublishState_NotConnected(t *testing.T) {
	t.Parallel()

	r, svc, _, _ := newTestRemote(t)
	require.Error(t, r.publishState(svc.State()))
}

func TestRun_PublishesStateUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, svc, client, m := newTestRemote(t)
	ctx, cancel := context.WithCancel(t.Context())

	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return len(client.publishes()) >= 1 }, 2*time.Second, 10*time.Millisecond)

	_, err := svc.SetBandGain(3, -4)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		for _, p := range client.publishes() {
			var st engine.State
			if json.Unmarshal(p.payload, &st) == nil && st.Equalizer.Bands[3].GainDB == -4 {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	first := client.publishes()[0]
	assert.Equal(t, "fx/state", first.topic)
	assert.True(t, first.retained)
	assert.Equal(t, byte(1), first.qos)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 1, client.disconnects)
	assert.Positive(t, testutil.ToFloat64(m.StatePublished))
}

func TestRun_ConnectError(t *testing.T) {
	t.Parallel()

	r, _, client, m := newTestRemote(t)
	client.connectErr = assert.AnError

	err := r.Run(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTConnect))
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues(metrics.MQTTStageConnect)), 0)
}
