package reverb

import (
	"math"

	"github.com/tphakala/audiofx/internal/dsp"
	"github.com/tphakala/audiofx/internal/errors"
)

const (
	MaxMix       = 100.0
	MinDecayTime = 0.1
	MaxDecayTime = 10.0

	// ActiveMix is the mix below which the reverb is skipped.
	ActiveMix = 0.01

	maxFeedback   = 0.95
	baseFeedback  = 0.75
	roomFeedback  = 0.2
	decayFeedback = 0.1
	decayDamping  = 0.4
	// wetScale maps a 100% mix to 35% wet.
	wetScale = 0.7
)

// Parameters are the user-facing reverb controls.
type Parameters struct {
	// Mix is the dry/wet mix in percent.
	Mix float64 `json:"mix" yaml:"mix" mapstructure:"mix"`
	// RoomSize is in [0, 1].
	RoomSize float64 `json:"room_size" yaml:"room_size" mapstructure:"room_size"`
	// DecayTime is in seconds.
	DecayTime float64 `json:"decay_time" yaml:"decay_time" mapstructure:"decay_time"`
}

// DefaultParameters returns the parameters restored by Reset.
func DefaultParameters() Parameters {
	return Parameters{Mix: 0, RoomSize: 0.5, DecayTime: 2.5}
}

// Validate rejects non-finite values.
func (p Parameters) Validate() error {
	fields := [...]struct {
		name  string
		value float64
	}{{"mix", p.Mix}, {"room_size", p.RoomSize}, {"decay_time", p.DecayTime}}
	for _, f := range fields {
		if !dsp.IsFinite(f.value) {
			return errors.Newf("reverb %s must be finite", f.name).
				Component(componentReverb).
				Category(errors.CategoryValidation).
				Context("parameter", f.name).
				Build()
		}
	}
	return nil
}

// Clamped returns p with every field limited to its range.
func (p Parameters) Clamped() Parameters {
	return Parameters{
		Mix:       clamp(p.Mix, 0, MaxMix),
		RoomSize:  clamp(p.RoomSize, 0, 1),
		DecayTime: clamp(p.DecayTime, MinDecayTime, MaxDecayTime),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func (p Parameters) decayRatio() float64 {
	return math.Min(p.DecayTime/MaxDecayTime, 1)
}

// Feedback is the comb feedback, always in [0.75, 0.95].
func (p Parameters) Feedback() float64 {
	fb := baseFeedback + roomFeedback*p.RoomSize + decayFeedback*p.decayRatio()
	return clamp(fb, baseFeedback, maxFeedback)
}

// Damping is the share of the delayed sample passed by the comb low-pass.
// Longer decays damp more.
func (p Parameters) Damping() float64 {
	return clamp(1-decayDamping*p.decayRatio(), 0, 1)
}

// WetGain is the gain applied to the diffused signal.
func (p Parameters) WetGain() float64 {
	return p.Mix / 200 * wetScale
}

// DryGain is the gain applied to the input.
func (p Parameters) DryGain() float64 {
	return 1 - p.Mix/200
}

// Active reports whether p has an audible mix.
func (p Parameters) Active() bool {
	return p.Mix > ActiveMix
}
