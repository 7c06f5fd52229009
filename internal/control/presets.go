package control

import (
	"slices"

	"github.com/tphakala/audiofx/internal/conf"
	"github.com/tphakala/audiofx/internal/engine"
	"github.com/tphakala/audiofx/internal/errors"
	"github.com/tphakala/audiofx/internal/logger"
	"github.com/tphakala/audiofx/internal/observability/metrics"
)

// Presets returns a copy of the known presets.
func (s *Service) Presets() []conf.Preset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.presets)
}

// ApplyPreset looks name up and applies its gains and reverb settings in
// one change.
func (s *Service) ApplyPreset(name string) (engine.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := conf.FindPreset(s.presets, name)
	if !ok {
		return engine.State{}, errors.Newf("preset %q not found", name).
			Component(componentControl).
			Category(errors.CategoryNotFound).
			Context("preset", name).
			Build()
	}
	if err := s.applyLocked(p.BandGains(), true, p.Reverb); err != nil {
		return engine.State{}, err
	}
	s.log.Info("preset applied", logger.String("preset", p.Name))
	return s.changedLocked(metrics.TargetPreset), nil
}

// ApplySettings installs the startup equalizer and reverb configuration.
func (s *Service) ApplySettings(settings *conf.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rv := conf.ReverbPreset{
		Enabled:   settings.Reverb.Enabled,
		Mix:       settings.Reverb.Mix,
		RoomSize:  settings.Reverb.RoomSize,
		DecayTime: settings.Reverb.DecayTime,
	}
	if err := s.applyLocked(settings.Equalizer.BandGains(), settings.Equalizer.Enabled, rv); err != nil {
		return err
	}
	s.changedLocked(metrics.TargetPreset)
	return nil
}

// applyLocked sets gains, the equalizer flag and the reverb. Caller holds mu.
func (s *Service) applyLocked(gains [conf.NumBands]float64, eqEnabled bool, rv conf.ReverbPreset) error {
	if err := s.eng.SetBandGains(gains); err != nil {
		return err
	}
	if eqEnabled {
		s.eng.EnableEqualizer()
	} else {
		s.eng.DisableEqualizer()
	}
	if !rv.Enabled {
		s.eng.DisableReverb()
		return nil
	}
	if err := s.eng.SetReverbParameters(rv.Mix, rv.RoomSize, rv.DecayTime); err != nil {
		return err
	}
	s.eng.EnableReverb()
	return nil
}
