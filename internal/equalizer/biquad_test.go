package equalizer

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// magnitudeAt evaluates |H(e^jw)| of c at frequency f.
func magnitudeAt(c Coefficients, f, sampleRate float64) float64 {
	w := 2 * math.Pi * f / sampleRate
	z1 := cmplx.Exp(complex(0, -w))
	z2 := z1 * z1
	num := complex(c.B0, 0) + complex(c.B1, 0)*z1 + complex(c.B2, 0)*z2
	den := 1 + complex(c.A1, 0)*z1 + complex(c.A2, 0)*z2
	return cmplx.Abs(num / den)
}

func TestPeakingCoefficients_CentreGain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		freq   float64
		q      float64
		gainDB float64
	}{
		{"cut 6 dB at 1 kHz", 1000, 1.0, -6},
		{"cut 20 dB at 60 Hz", 60, 0.7, -20},
		{"boost 12 dB at 2.4 kHz", 2400, 0.9, 12},
		{"zero gain", 400, 1.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := PeakingCoefficients(tt.freq, 48000, tt.q, tt.gainDB)
			require.True(t, c.IsFinite())
			got := 20 * math.Log10(magnitudeAt(c, tt.freq, 48000))
			assert.InDelta(t, tt.gainDB, got, 0.01)
		})
	}
}

func TestPeakingCoefficients_Clamps(t *testing.T) {
	t.Parallel()

	// gain above the stage limit behaves like the limit
	assert.Equal(t,
		PeakingCoefficients(1000, 48000, 1, MaxStageGain),
		PeakingCoefficients(1000, 48000, 1, 60))

	// Q outside [0.1, 10]
	assert.Equal(t,
		PeakingCoefficients(1000, 48000, MaxQ, -6),
		PeakingCoefficients(1000, 48000, 50, -6))
	assert.Equal(t,
		PeakingCoefficients(1000, 48000, MinQ, -6),
		PeakingCoefficients(1000, 48000, 0, -6))

	// frequency near or above Nyquist is pulled below sampleRate/2.5
	assert.Equal(t,
		PeakingCoefficients(48000/2.5, 48000, 1, -6),
		PeakingCoefficients(30000, 48000, 1, -6))
	assert.InDelta(t, MinFrequency, ClampFrequency(1, 48000), 1e-12)
}

func TestPeakingCoefficients_NonFiniteInputs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Identity, PeakingCoefficients(math.NaN(), 48000, 1, -6))
	assert.Equal(t, Identity, PeakingCoefficients(1000, math.Inf(1), 1, -6))
	assert.Equal(t, Identity, PeakingCoefficients(1000, 48000, math.NaN(), -6))
	assert.Equal(t, Identity, PeakingCoefficients(1000, 48000, 1, math.Inf(-1)))
	assert.Equal(t, Identity, PeakingCoefficients(1000, 0, 1, -6))
}

func TestStage_IdentityPassesThrough(t *testing.T) {
	t.Parallel()

	s := NewStage()
	for _, x := range []float64{0.5, -0.25, 1, 0} {
		assert.InDelta(t, x, s.Process(0, x), 0)
	}
}

func TestStage_NonFiniteInputYieldsZero(t *testing.T) {
	t.Parallel()

	s := NewStage()
	s.SetPeakingEQ(1000, 48000, 1, -6)
	s.Process(0, 0.5)
	before := s.state[0]

	assert.InDelta(t, 0.0, s.Process(0, math.NaN()), 0)
	assert.InDelta(t, 0.0, s.Process(0, math.Inf(1)), 0)
	assert.Equal(t, before, s.state[0], "non-finite input must not touch memory")
}

func TestStage_DivergenceResetsChannel(t *testing.T) {
	t.Parallel()

	s := NewStage()
	// an unstable pole pair, installed directly
	s.SetCoefficients(Coefficients{B0: 1, A1: -2.5, A2: 1.5})

	for range 5000 {
		y := s.Process(0, 1)
		require.False(t, math.IsInf(y, 0) || math.IsNaN(y))
	}
}

func TestStage_SetCoefficientsRejectsNonFinite(t *testing.T) {
	t.Parallel()

	s := NewStage()
	s.SetCoefficients(Coefficients{B0: math.NaN()})
	assert.Equal(t, Identity, s.Coefficients())
}

func TestStage_ChannelsAreIndependent(t *testing.T) {
	t.Parallel()

	s := NewStage()
	s.SetPeakingEQ(150, 48000, 0.8, -12)

	s.Process(0, 1)
	s.Process(0, 0.5)
	assert.Equal(t, biquadState{}, s.state[1])

	s.Reset()
	assert.Equal(t, biquadState{}, s.state[0])
	assert.NotEqual(t, Identity, s.Coefficients(), "Reset keeps coefficients")
}
