// Package remote exposes the effects engine over MQTT. Control messages
// arrive on <prefix>/set/... and <prefix>/cmd/...; the engine state is
// published to <prefix>/state after every change.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tphakala/audiofx/internal/conf"
	"github.com/tphakala/audiofx/internal/engine"
	"github.com/tphakala/audiofx/internal/equalizer"
	"github.com/tphakala/audiofx/internal/errors"
	"github.com/tphakala/audiofx/internal/logger"
	"github.com/tphakala/audiofx/internal/observability/metrics"
)

const (
	componentRemote = "remote"

	connectTimeout    = 30 * time.Second
	publishTimeout    = 10 * time.Second
	disconnectQuiesce = 250 // milliseconds
	maxReconnect      = 5 * time.Minute
)

// Service is the control surface the remote drives.
type Service interface {
	State() engine.State
	Subscribe(fn func(engine.State))
	SetBandGain(index int, gainDB float64) (engine.State, error)
	SetBandGains(gains [equalizer.NumBands]float64) (engine.State, error)
	SetEqualizerEnabled(enabled bool) engine.State
	ResetEqualizer() engine.State
	SetReverbParameters(mix, roomSize, decayTime float64) (engine.State, error)
	SetReverbEnabled(enabled bool) engine.State
	ResetReverb() engine.State
	ApplyPreset(name string) (engine.State, error)
}

// Config holds the configuration for the remote.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string //nolint:gosec // G117: config field
	TopicPrefix string
	QoS         byte
	Retain      bool
}

// ConfigFromSettings maps MQTT settings onto a Config.
func ConfigFromSettings(s *conf.MQTTSettings) Config {
	return Config{
		Broker:      s.Broker,
		ClientID:    s.ClientID,
		Username:    s.Username,
		Password:    s.Password,
		TopicPrefix: s.TopicPrefix,
		QoS:         s.QoS,
		Retain:      s.Retain,
	}
}

// Remote bridges MQTT and a control Service.
type Remote struct {
	config  Config
	svc     Service
	client  mqtt.Client
	metrics *metrics.MQTTMetrics
	log     logger.Logger

	// latest state waiting to be published; newer states replace it
	pending chan engine.State
	wg      sync.WaitGroup
}

// Option configures a Remote.
type Option func(*Remote)

// WithMetrics records connection and message metrics.
func WithMetrics(m *metrics.MQTTMetrics) Option {
	return func(r *Remote) { r.metrics = m }
}

// WithLogger sets the remote logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Remote) { r.log = l }
}

// WithClient replaces the paho client, for tests.
func WithClient(c mqtt.Client) Option {
	return func(r *Remote) { r.client = c }
}

// New returns a remote for svc. Nothing connects until Run.
func New(cfg Config, svc Service, opts ...Option) *Remote {
	r := &Remote{
		config:  cfg,
		svc:     svc,
		log:     logger.Global().Module("remote"),
		pending: make(chan engine.State, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = mqtt.NewClient(r.clientOptions())
	}
	svc.Subscribe(r.enqueue)
	return r
}

func (r *Remote) clientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(r.config.Broker)
	opts.SetClientID(r.config.ClientID)
	opts.SetUsername(r.config.Username)
	opts.SetPassword(r.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetMaxReconnectInterval(maxReconnect)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetOnConnectHandler(r.onConnect)
	opts.SetConnectionLostHandler(r.onConnectionLost)
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		if r.metrics != nil {
			r.metrics.IncrementReconnectAttempts()
		}
	})
	return opts
}

// Topic returns prefix/suffix.
func (r *Remote) Topic(suffix string) string {
	return r.config.TopicPrefix + "/" + suffix
}

// Run connects, serves control messages and publishes state until ctx is
// cancelled.
func (r *Remote) Run(ctx context.Context) error {
	token := r.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		r.client.Disconnect(disconnectQuiesce)
		return nil
	}
	if err := token.Error(); err != nil {
		r.countError(metrics.MQTTStageConnect)
		return errors.New(err).
			Component(componentRemote).
			Category(errors.CategoryMQTTConnect).
			Context("broker", r.config.Broker).
			Build()
	}

	r.enqueue(r.svc.State())

	r.wg.Go(func() { r.publishLoop(ctx) })
	<-ctx.Done()

	r.wg.Wait()
	r.client.Disconnect(disconnectQuiesce)
	if r.metrics != nil {
		r.metrics.UpdateConnectionStatus(false)
	}
	r.log.Info("MQTT remote stopped")
	return nil
}

func (r *Remote) onConnect(c mqtt.Client) {
	r.log.Info("Connected to MQTT broker", logger.String("broker", r.config.Broker))
	if r.metrics != nil {
		r.metrics.UpdateConnectionStatus(true)
	}
	filters := map[string]byte{
		r.Topic("set/#"): r.config.QoS,
		r.Topic("cmd/#"): r.config.QoS,
	}
	token := c.SubscribeMultiple(filters, r.onMessage)
	if !token.WaitTimeout(publishTimeout) || token.Error() != nil {
		r.countError(metrics.MQTTStageSubscribe)
		r.log.Error("MQTT subscribe failed", logger.Error(token.Error()))
		return
	}
	// retained state may be stale after a reconnect
	r.enqueue(r.svc.State())
}

func (r *Remote) onConnectionLost(_ mqtt.Client, err error) {
	r.log.Warn("Connection to MQTT broker lost", logger.String("broker", r.config.Broker), logger.Error(err))
	if r.metrics != nil {
		r.metrics.UpdateConnectionStatus(false)
	}
	r.countError(metrics.MQTTStageLost)
}

func (r *Remote) onMessage(_ mqtt.Client, msg mqtt.Message) {
	command, err := r.handleMessage(msg.Topic(), msg.Payload())
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
		r.log.Warn("MQTT control message rejected",
			logger.String("topic", msg.Topic()),
			logger.Error(err))
	}
	if r.metrics != nil {
		r.metrics.RecordCommand(command, status)
	}
}

// enqueue replaces any unpublished state with s.
func (r *Remote) enqueue(s engine.State) {
	for {
		select {
		case r.pending <- s:
			return
		default:
		}
		select {
		case <-r.pending:
		default:
		}
	}
}

func (r *Remote) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-r.pending:
			if err := r.publishState(s); err != nil {
				r.log.Warn("MQTT state publish failed", logger.Error(err))
			}
		}
	}
}

// publishState sends s to <prefix>/state.
func (r *Remote) publishState(s engine.State) error {
	if !r.client.IsConnected() {
		return fmt.Errorf("not connected to MQTT broker")
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	var timer *metrics.PublishTimer
	if r.metrics != nil {
		timer = r.metrics.StartPublishTimer()
	}
	token := r.client.Publish(r.Topic("state"), r.config.QoS, r.config.Retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		r.countError(metrics.MQTTStagePublish)
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		r.countError(metrics.MQTTStagePublish)
		return errors.New(err).
			Component(componentRemote).
			Category(errors.CategoryMQTTPublish).
			Build()
	}
	if r.metrics != nil {
		timer.ObserveDuration()
		r.metrics.RecordPublished(len(payload))
	}
	return nil
}

func (r *Remote) countError(stage string) {
	if r.metrics != nil {
		r.metrics.RecordError(stage)
	}
}
