// Package engine is the per-callback frame processor. It owns an equalizer
// bank, a reverb, a DC blocker and loudness meters, adapts host buffers to
// float64 channel buffers and back, and exposes the control surface hosts
// drive from their UI or API goroutines.
//
// Process and its format variants belong to the host audio thread. Every
// other method is safe from any goroutine, except Prepare and Teardown,
// which are rejected with ErrBusy while a Process call is in flight.
package engine

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tphakala/audiofx/internal/dsp"
	"github.com/tphakala/audiofx/internal/equalizer"
	"github.com/tphakala/audiofx/internal/logger"
	"github.com/tphakala/audiofx/internal/reverb"
)

// defaultScratchFrames is the scratch size allocated at Prepare.
const defaultScratchFrames = 4096

// Engine processes PCM blocks through the effect chain.
type Engine struct {
	eq       *equalizer.Bank
	rv       *reverb.Engine
	ceilings Ceilings
	log      logger.Logger

	busy     atomic.Bool
	prepared atomic.Bool
	format   atomic.Pointer[Format]
	session  atomic.Value // string
	stats    counters

	// audio side
	dc      dsp.DCBlocker
	rms     dsp.RMSTracker
	scratch [dsp.MaxChannels][]float64
	current Format
	ceiling float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithCeilings overrides the soft limiter ceilings.
func WithCeilings(c Ceilings) Option {
	return func(e *Engine) {
		e.ceilings = c
	}
}

// New returns an engine with a flat, enabled equalizer and a disabled
// reverb. Process returns ErrNotPrepared until Prepare succeeds.
func New(opts ...Option) *Engine {
	e := &Engine{
		eq:       equalizer.NewBank(),
		rv:       reverb.New(),
		ceilings: DefaultCeilings(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Global().Module("engine")
	}
	e.session.Store("")
	return e
}

// Configure sets the equalizer sample rate. Reverb buffers follow at the
// next Prepare.
func (e *Engine) Configure(sampleRate float64) error {
	if err := e.eq.Configure(sampleRate); err != nil {
		return err
	}
	e.log.Debug("equalizer configured", logger.Float64("sample_rate", sampleRate))
	return nil
}

// SetBandGain sets one band gain in dB.
func (e *Engine) SetBandGain(index int, gainDB float64) error {
	if err := e.eq.SetBandGain(index, gainDB); err != nil {
		return err
	}
	e.log.Debug("band gain set",
		logger.Int("band", equalizer.ClampIndex(index)),
		logger.Float64("gain_db", gainDB))
	return nil
}

// SetBandGains replaces every band gain at once.
func (e *Engine) SetBandGains(gains [equalizer.NumBands]float64) error {
	return e.eq.SetBandGains(gains)
}

// EnableEqualizer restores filtering from the stored band gains.
func (e *Engine) EnableEqualizer() {
	e.eq.Enable()
	e.log.Debug("equalizer enabled")
}

// DisableEqualizer bypasses the equalizer, keeping band gains.
func (e *Engine) DisableEqualizer() {
	e.eq.Disable()
	e.log.Debug("equalizer disabled")
}

// ResetEqualizer sets every band to 0 dB.
func (e *Engine) ResetEqualizer() {
	e.eq.ResetAllBands()
	e.log.Debug("equalizer reset")
}

// SetReverbParameters publishes mix (percent), room size and decay time.
func (e *Engine) SetReverbParameters(mix, roomSize, decayTime float64) error {
	if err := e.rv.SetParameters(mix, roomSize, decayTime); err != nil {
		return err
	}
	p := e.rv.Parameters()
	e.log.Debug("reverb parameters set",
		logger.Float64("mix", p.Mix),
		logger.Float64("room_size", p.RoomSize),
		logger.Float64("decay_time", p.DecayTime))
	return nil
}

// EnableReverb turns the reverb on.
func (e *Engine) EnableReverb() {
	e.rv.Enable()
	e.log.Debug("reverb enabled")
}

// DisableReverb turns the reverb off and clears its buffers before the
// next use.
func (e *Engine) DisableReverb() {
	e.rv.Disable()
	e.log.Debug("reverb disabled")
}

// ResetReverb restores default reverb parameters and clears its buffers.
func (e *Engine) ResetReverb() {
	e.rv.Reset()
	e.log.Debug("reverb reset")
}

// Prepare starts a session for format f. It resets every piece of
// processing state and issues a new session ID. An unsupported format is
// still recorded, so Process passes buffers through, and ErrUnsupportedFormat
// is returned.
func (e *Engine) Prepare(f Format) error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer e.busy.Store(false)

	if f.Supported() {
		if err := e.eq.Configure(float64(f.SampleRate)); err != nil {
			return err
		}
		sr := float64(f.SampleRate)
		if e.rv.SampleRate() != sr {
			if err := e.rv.Prepare(sr); err != nil {
				return err
			}
		}
		if rebuilt := e.rv.OnSessionReset(); rebuilt > 0 {
			e.log.Warn("reverb buffers restored to designed length", logger.Int("buffers", rebuilt))
		}
		e.eq.ResetState()
		e.dc.Reset()
		e.rms.Reset()
		for ch := range e.scratch {
			if cap(e.scratch[ch]) < defaultScratchFrames {
				e.scratch[ch] = make([]float64, defaultScratchFrames)
			}
		}
	}

	e.current = f
	e.ceiling = f.ceiling(e.ceilings)
	e.format.Store(&f)
	e.session.Store(uuid.NewString())
	e.prepared.Store(true)
	e.stats.prepares.Add(1)

	if !f.Supported() {
		e.log.Warn("unsupported format, effects disabled for this session",
			logger.String("format", f.String()),
			logger.String("session_id", e.SessionID()))
		return ErrUnsupportedFormat
	}
	e.log.Info("session prepared",
		logger.String("format", f.String()),
		logger.String("session_id", e.SessionID()))
	return nil
}

// Teardown ends the session. Process returns ErrNotPrepared until the next
// Prepare.
func (e *Engine) Teardown() error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer e.busy.Store(false)

	if !e.prepared.Swap(false) {
		return nil
	}
	id := e.SessionID()
	e.session.Store("")
	e.format.Store(nil)
	e.log.Info("session torn down", logger.String("session_id", id))
	return nil
}

// SessionID returns the current session ID, or "" outside a session.
func (e *Engine) SessionID() string {
	id, _ := e.session.Load().(string)
	return id
}

// Format returns the prepared format and whether a session is active.
func (e *Engine) Format() (Format, bool) {
	f := e.format.Load()
	if f == nil {
		return Format{}, false
	}
	return *f, true
}
