// Package control applies parameter changes from the control surfaces (HTTP
// API, MQTT remote, CLI flags) to an effects engine and tells subscribers
// about the resulting state.
package control

import (
	"sync"

	"github.com/tphakala/audiofx/internal/conf"
	"github.com/tphakala/audiofx/internal/engine"
	"github.com/tphakala/audiofx/internal/equalizer"
	"github.com/tphakala/audiofx/internal/errors"
	"github.com/tphakala/audiofx/internal/logger"
	"github.com/tphakala/audiofx/internal/observability/metrics"
)

const componentControl = "control"

// Engine is the control-side surface of an effects engine.
type Engine interface {
	State() engine.State
	SetBandGain(index int, gainDB float64) error
	SetBandGains(gains [equalizer.NumBands]float64) error
	EnableEqualizer()
	DisableEqualizer()
	ResetEqualizer()
	SetReverbParameters(mix, roomSize, decayTime float64) error
	EnableReverb()
	DisableReverb()
	ResetReverb()
}

// ChangeRecorder counts applied parameter changes per target.
type ChangeRecorder interface {
	RecordParameterChange(target string)
}

type nopRecorder struct{}

func (nopRecorder) RecordParameterChange(string) {}

// Service serializes control changes to one engine.
type Service struct {
	eng      Engine
	log      logger.Logger
	recorder ChangeRecorder

	mu          sync.Mutex
	presets     []conf.Preset
	subscribers []func(engine.State)
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithRecorder counts every applied change.
func WithRecorder(r ChangeRecorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithPresets replaces the built-in preset list.
func WithPresets(p []conf.Preset) Option {
	return func(s *Service) { s.presets = p }
}

// New returns a service controlling eng.
func New(eng Engine, opts ...Option) *Service {
	s := &Service{
		eng:      eng,
		log:      logger.Global().Module("control"),
		recorder: nopRecorder{},
		presets:  conf.BuiltinPresets(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to receive the engine state after every change.
// fn runs on the goroutine that made the change and must not block.
func (s *Service) Subscribe(fn func(engine.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// State returns the current engine state.
func (s *Service) State() engine.State {
	return s.eng.State()
}

// changed records target and notifies subscribers. Caller holds mu.
func (s *Service) changedLocked(target string) engine.State {
	s.recorder.RecordParameterChange(target)
	state := s.eng.State()
	for _, fn := range s.subscribers {
		fn(state)
	}
	return state
}

// SetBandGain sets one band. Unlike the engine, which clamps the index, an
// index outside the band table is rejected.
func (s *Service) SetBandGain(index int, gainDB float64) (engine.State, error) {
	if index < 0 || index >= equalizer.NumBands {
		return engine.State{}, errors.Newf("band index %d out of range", index).
			Component(componentControl).
			Category(errors.CategoryNotFound).
			Context("band", index).
			Build()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.eng.SetBandGain(index, gainDB); err != nil {
		return engine.State{}, err
	}
	s.log.Info("band gain changed", logger.Int("band", index), logger.Float64("gain_db", gainDB))
	return s.changedLocked(metrics.TargetBand), nil
}

// SetBandGains replaces every band gain at once.
func (s *Service) SetBandGains(gains [equalizer.NumBands]float64) (engine.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.eng.SetBandGains(gains); err != nil {
		return engine.State{}, err
	}
	s.log.Info("band gains changed")
	return s.changedLocked(metrics.TargetBand), nil
}

// SetEqualizerEnabled enables or disables the equalizer.
func (s *Service) SetEqualizerEnabled(enabled bool) engine.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enabled {
		s.eng.EnableEqualizer()
	} else {
		s.eng.DisableEqualizer()
	}
	s.log.Info("equalizer toggled", logger.Bool("enabled", enabled))
	return s.changedLocked(metrics.TargetEqualizer)
}

// ResetEqualizer zeroes every band.
func (s *Service) ResetEqualizer() engine.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eng.ResetEqualizer()
	s.log.Info("equalizer reset")
	return s.changedLocked(metrics.TargetEqualizer)
}

// SetReverbParameters validates and applies reverb parameters.
func (s *Service) SetReverbParameters(mix, roomSize, decayTime float64) (engine.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.eng.SetReverbParameters(mix, roomSize, decayTime); err != nil {
		return engine.State{}, err
	}
	s.log.Info("reverb parameters changed",
		logger.Float64("mix", mix),
		logger.Float64("room_size", roomSize),
		logger.Float64("decay_time", decayTime))
	return s.changedLocked(metrics.TargetReverb), nil
}

// SetReverbEnabled enables or disables the reverb. Disabling clears its
// tails.
func (s *Service) SetReverbEnabled(enabled bool) engine.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enabled {
		s.eng.EnableReverb()
	} else {
		s.eng.DisableReverb()
	}
	s.log.Info("reverb toggled", logger.Bool("enabled", enabled))
	return s.changedLocked(metrics.TargetReverb)
}

// ResetReverb restores default reverb parameters and clears its tails.
func (s *Service) ResetReverb() engine.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eng.ResetReverb()
	s.log.Info("reverb reset")
	return s.changedLocked(metrics.TargetReverb)
}
