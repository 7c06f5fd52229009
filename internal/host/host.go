// Package host runs the effects engine on a full-duplex sound card stream:
// captured frames are processed and written straight to playback.
package host

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/tphakala/audiofx/internal/conf"
	"github.com/tphakala/audiofx/internal/engine"
	"github.com/tphakala/audiofx/internal/errors"
	"github.com/tphakala/audiofx/internal/logger"
	"github.com/tphakala/audiofx/internal/observability/metrics"
)

const componentHost = "host"

// Effects is the engine surface the host drives.
type Effects interface {
	Prepare(f engine.Format) error
	Process(buf []byte, frames int) ([]byte, error)
	Teardown() error
}

// Config describes the duplex stream.
type Config struct {
	Device       string
	SampleRate   int
	Channels     int
	PeriodFrames int
	Float        bool
}

// ConfigFromSettings maps live settings onto a Config.
func ConfigFromSettings(s *conf.LiveSettings) Config {
	return Config{
		Device:       s.Device,
		SampleRate:   s.SampleRate,
		Channels:     s.Channels,
		PeriodFrames: s.PeriodFrames,
		Float:        s.Float,
	}
}

// Format returns the engine format for the stream at sampleRate.
func (c Config) Format(sampleRate int) engine.Format {
	if c.Float {
		return engine.Float32Format(sampleRate, c.Channels)
	}
	return engine.Int16Format(sampleRate, c.Channels)
}

func (c Config) malgoFormat() malgo.FormatType {
	if c.Float {
		return malgo.FormatF32
	}
	return malgo.FormatS16
}

// Duplex owns one malgo duplex device.
type Duplex struct {
	config   Config
	effects  Effects
	log      logger.Logger
	recorder metrics.Recorder
	monitor  *Monitor

	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	running   atomic.Bool
	callbacks atomic.Uint64
	errors    atomic.Uint64
	// slowest callback since the last monitor tick, in nanoseconds
	worst atomic.Int64
}

// Option configures a Duplex.
type Option func(*Duplex)

// WithLogger sets the host logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Duplex) { d.log = l }
}

// WithRecorder records callback timing and errors.
func WithRecorder(r metrics.Recorder) Option {
	return func(d *Duplex) { d.recorder = r }
}

// New returns a duplex host for effects. The device opens in Run.
func New(cfg Config, effects Effects, opts ...Option) *Duplex {
	d := &Duplex{
		config:   cfg,
		effects:  effects,
		log:      logger.Global().Module("host"),
		recorder: metrics.NopRecorder{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Monitor returns the output monitor, nil before Run.
func (d *Duplex) Monitor() *Monitor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.monitor
}

// Callbacks returns the number of device callbacks served.
func (d *Duplex) Callbacks() uint64 {
	return d.callbacks.Load()
}

// Run opens the device, prepares the engine for the negotiated format and
// streams until ctx is cancelled.
func (d *Duplex) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.Newf("duplex host already running").
			Component(componentHost).
			Category(errors.CategoryState).
			Build()
	}
	defer d.running.Store(false)

	if err := d.open(); err != nil {
		return err
	}
	defer d.close()

	d.mu.Lock()
	device := d.device
	monitor := d.monitor
	d.mu.Unlock()

	var wg sync.WaitGroup
	monCtx, cancel := context.WithCancel(ctx)
	wg.Go(func() { monitor.Run(monCtx, d.flush) })

	if err := device.Start(); err != nil {
		cancel()
		wg.Wait()
		return errors.New(err).
			Component(componentHost).
			Category(errors.CategoryAudioDevice).
			Context("operation", "start_device").
			Build()
	}
	d.log.Info("Duplex stream started",
		logger.String("device", d.config.Device),
		logger.Int("sample_rate", int(device.SampleRate())),
		logger.Int("channels", d.config.Channels),
		logger.Int("period_frames", d.config.PeriodFrames))

	<-ctx.Done()
	_ = device.Stop()
	cancel()
	wg.Wait()

	d.log.Info("Duplex stream stopped", logger.Uint64("callbacks", d.callbacks.Load()))
	return nil
}

func (d *Duplex) open() error {
	backend := platformBackend()
	mctx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, func(message string) {
		d.log.Debug("malgo", logger.String("message", message))
	})
	if err != nil {
		return errors.New(err).
			Component(componentHost).
			Category(errors.CategoryAudioDevice).
			Context("operation", "init_context").
			Context("backend", runtime.GOOS).
			Build()
	}

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return errors.New(err).
			Component(componentHost).
			Category(errors.CategoryAudioDevice).
			Context("operation", "enumerate_devices").
			Build()
	}
	idx, err := SelectDevice(candidates(infos), d.config.Device)
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return err
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Duplex)
	cfg.Capture.Format = d.config.malgoFormat()
	cfg.Capture.Channels = uint32(d.config.Channels)       //nolint:gosec // G115: validated 1..2
	cfg.Capture.DeviceID = infos[idx].ID.Pointer()
	cfg.Playback.Format = d.config.malgoFormat()
	cfg.Playback.Channels = uint32(d.config.Channels)      //nolint:gosec // G115: validated 1..2
	cfg.SampleRate = uint32(d.config.SampleRate)           //nolint:gosec // G115: validated range
	cfg.PeriodSizeInFrames = uint32(d.config.PeriodFrames) //nolint:gosec // G115: validated range
	cfg.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: d.onData,
		Stop: d.onStop,
	})
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return errors.New(err).
			Component(componentHost).
			Category(errors.CategoryAudioDevice).
			Context("operation", "init_device").
			Context("device", infos[idx].Name()).
			Build()
	}

	format := d.config.Format(int(device.SampleRate()))
	if err := d.effects.Prepare(format); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return err
	}

	d.mu.Lock()
	d.ctx = mctx
	d.device = device
	d.monitor = NewMonitor(format, d.config.PeriodFrames, WithMonitorLogger(d.log))
	d.mu.Unlock()
	return nil
}

func (d *Duplex) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device != nil {
		d.device.Uninit()
		d.device = nil
	}
	if d.ctx != nil {
		_ = d.ctx.Uninit()
		d.ctx.Free()
		d.ctx = nil
	}
	if err := d.effects.Teardown(); err != nil {
		d.log.Warn("Engine teardown failed", logger.Error(err))
	}
}

// onData runs on the device thread. Capture is copied to playback and
// processed in place; on an engine error the dry copy is played.
func (d *Duplex) onData(out, in []byte, frames uint32) {
	start := time.Now()
	n := copy(out, in)
	clear(out[n:])

	if _, err := d.effects.Process(out[:n], int(frames)); err != nil {
		d.errors.Add(1)
	}
	if m := d.monitor; m != nil {
		m.Write(out[:n])
	}
	d.callbacks.Add(1)

	elapsed := int64(time.Since(start))
	for {
		cur := d.worst.Load()
		if elapsed <= cur || d.worst.CompareAndSwap(cur, elapsed) {
			break
		}
	}
}

func (d *Duplex) onStop() {
	if d.running.Load() {
		d.log.Warn("Audio device stopped unexpectedly")
		d.recorder.RecordError(metrics.OpDeviceCallback, "device_stopped")
	}
}

// flush moves callback statistics into the recorder. Called from the
// monitor goroutine.
func (d *Duplex) flush(overruns uint64) {
	if worst := d.worst.Swap(0); worst > 0 {
		d.recorder.RecordDuration(metrics.OpDeviceCallback, time.Duration(worst).Seconds())
		d.recorder.RecordOperation(metrics.OpDeviceCallback, metrics.StatusSuccess)
	}
	for range d.errors.Swap(0) {
		d.recorder.RecordError(metrics.OpDeviceCallback, "process")
	}
	if overruns > 0 {
		d.recorder.RecordError(metrics.OpDeviceCallback, "monitor_overrun")
	}
}

func platformBackend() malgo.Backend {
	switch runtime.GOOS {
	case "linux":
		return malgo.BackendAlsa
	case "windows":
		return malgo.BackendWasapi
	case "darwin":
		return malgo.BackendCoreaudio
	default:
		return malgo.BackendNull
	}
}
