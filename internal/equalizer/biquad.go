// Package equalizer implements the six-band peaking equalizer: RBJ cookbook
// biquad stages, the pure-subtractive band policy and the gain staging that
// restores loudness lost to it.
//
// The control side (SetBandGain, Enable, Disable, Configure) builds an
// immutable Snapshot and publishes it atomically. The audio side (Acquire,
// Apply) loads the snapshot once per callback and copies coefficients into
// filter state it owns exclusively.
package equalizer

import (
	"math"

	"github.com/tphakala/audiofx/internal/dsp"
)

const (
	MinFrequency = 20.0
	MinQ         = 0.1
	MaxQ         = 10.0
	MaxStageGain = 24.0

	// nyquistMargin keeps centre frequencies below sampleRate/2.5.
	nyquistMargin = 2.5
)

// Coefficients holds a biquad transfer function normalized by a0.
type Coefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// Identity is the pass-through filter.
var Identity = Coefficients{B0: 1}

// IsFinite reports whether every coefficient is finite.
func (c Coefficients) IsFinite() bool {
	return dsp.IsFinite(c.B0) && dsp.IsFinite(c.B1) && dsp.IsFinite(c.B2) &&
		dsp.IsFinite(c.A1) && dsp.IsFinite(c.A2)
}

// ClampFrequency limits frequency to [20, sampleRate/2.5].
func ClampFrequency(frequency, sampleRate float64) float64 {
	return math.Max(MinFrequency, math.Min(frequency, sampleRate/nyquistMargin))
}

// PeakingCoefficients returns RBJ peaking-EQ coefficients. Inputs are
// clamped to their legal ranges; a derivation that is not finite yields
// Identity.
func PeakingCoefficients(frequency, sampleRate, q, gainDB float64) Coefficients {
	if !dsp.IsFinite(frequency) || !dsp.IsFinite(sampleRate) || !dsp.IsFinite(q) ||
		!dsp.IsFinite(gainDB) || sampleRate <= 0 {
		return Identity
	}

	frequency = ClampFrequency(frequency, sampleRate)
	q = math.Max(MinQ, math.Min(q, MaxQ))
	gainDB = math.Max(-MaxStageGain, math.Min(gainDB, MaxStageGain))

	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * frequency / sampleRate
	cw := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	a0 := 1 + alpha/a
	c := Coefficients{
		B0: (1 + alpha*a) / a0,
		B1: (-2 * cw) / a0,
		B2: (1 - alpha*a) / a0,
		A1: (-2 * cw) / a0,
		A2: (1 - alpha/a) / a0,
	}
	if !c.IsFinite() {
		return Identity
	}
	return c
}

// biquadState is the direct-form memory of one channel.
type biquadState struct {
	x1, x2, y1, y2 float64
}

// Stage is a single peaking filter with independent memory per channel.
type Stage struct {
	coeffs Coefficients
	state  [dsp.MaxChannels]biquadState
}

// NewStage returns a stage initialised to Identity.
func NewStage() *Stage {
	return &Stage{coeffs: Identity}
}

// SetPeakingEQ derives and installs peaking coefficients. Filter memory is
// kept.
func (s *Stage) SetPeakingEQ(frequency, sampleRate, q, gainDB float64) {
	s.coeffs = PeakingCoefficients(frequency, sampleRate, q, gainDB)
}

// SetCoefficients installs c, falling back to Identity when c is not finite.
func (s *Stage) SetCoefficients(c Coefficients) {
	if !c.IsFinite() {
		c = Identity
	}
	s.coeffs = c
}

// Coefficients returns the installed coefficients.
func (s *Stage) Coefficients() Coefficients {
	return s.coeffs
}

// Process filters one sample on channel ch. Non-finite input yields 0. If
// the recurrence diverges the channel memory is cleared and x is returned.
func (s *Stage) Process(ch int, x float64) float64 {
	if !dsp.IsFinite(x) {
		return 0
	}
	st := &s.state[ch]
	c := &s.coeffs
	y := c.B0*x + c.B1*st.x1 + c.B2*st.x2 - c.A1*st.y1 - c.A2*st.y2
	if !dsp.IsFinite(y) {
		*st = biquadState{}
		return x
	}
	st.x2, st.x1 = st.x1, x
	st.y2, st.y1 = st.y1, y
	return y
}

// ProcessBlock filters buf in place on channel ch.
func (s *Stage) ProcessBlock(ch int, buf []float64) {
	for i, x := range buf {
		buf[i] = s.Process(ch, x)
	}
}

// Reset zeroes filter memory on every channel. Coefficients are kept.
func (s *Stage) Reset() {
	s.state = [dsp.MaxChannels]biquadState{}
}
