package dsp

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"finite in bound", 0.25, 0.25},
		{"negative in bound", -9.5, -9.5},
		{"at bound", 10, 10},
		{"above bound", 10.01, 0},
		{"below negative bound", -11, 0},
		{"NaN", math.NaN(), 0},
		{"+Inf", math.Inf(1), 0},
		{"-Inf", math.Inf(-1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, Sanitize(tt.in, FeedbackBound), 0)
		})
	}
}

func TestDCBlockerRemovesOffset(t *testing.T) {
	t.Parallel()

	var b DCBlocker
	const offset = 0.3
	var last float64
	for range 5000 {
		last = b.Process(0, offset)
	}
	// half of a converged offset remains after the partial subtraction
	assert.InDelta(t, offset*0.5, last, 1e-6)
	assert.InDelta(t, offset, b.Offset(0), 1e-6)

	// other channel untouched
	assert.Zero(t, b.Offset(1))

	b.Reset()
	assert.Zero(t, b.Offset(0))
}

func TestDCBlockerZeroesNonFiniteInput(t *testing.T) {
	t.Parallel()

	var b DCBlocker
	assert.Zero(t, b.Process(0, math.NaN()))
	assert.Zero(t, b.Process(0, math.Inf(1)))
	assert.Zero(t, b.Offset(0))
}

func TestSoftLimit(t *testing.T) {
	t.Parallel()

	// linear region
	assert.InDelta(t, 0.3, SoftLimit(0.3, CeilingFloat), 0)
	assert.InDelta(t, -0.3, SoftLimit(-0.3, CeilingInt16), 0)

	for _, ceiling := range []float64{CeilingInt16, CeilingFloat} {
		for _, x := range []float64{0.95, 1, 2, 50, 1e9} {
			y := SoftLimit(x, ceiling)
			assert.LessOrEqual(t, y, ceiling)
			assert.Greater(t, y, ceiling*kneeRatio)
			assert.InDelta(t, -y, SoftLimit(-x, ceiling), 1e-12, "limiter must be odd-symmetric")
		}
	}

	// monotonic above the knee
	prev := SoftLimit(0.72, CeilingFloat)
	for x := 0.73; x < 3; x += 0.01 {
		y := SoftLimit(x, CeilingFloat)
		assert.GreaterOrEqual(t, y, prev)
		prev = y
	}

	assert.Zero(t, SoftLimit(math.NaN(), CeilingFloat))
}

func TestRMSTracker(t *testing.T) {
	t.Parallel()

	var r RMSTracker
	buf := make([]float64, 48000)
	for i := range buf {
		buf[i] = 0.5
	}
	r.ProcessBlock(1, buf)

	assert.InDelta(t, 0.5, r.Level(1), 1e-3)
	assert.Zero(t, r.Level(0))
	assert.Zero(t, r.Level(7))

	r.Reset()
	assert.Zero(t, r.Level(1))
}

func TestLinearToDBFS(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0, LinearToDBFS(1), 1e-9)
	assert.InDelta(t, -6.0206, LinearToDBFS(0.5), 1e-3)
	assert.InDelta(t, -120, LinearToDBFS(0), 0)
}

func TestApplyGainAndMean(t *testing.T) {
	t.Parallel()

	buf := []float64{0.1, -0.2, 0.3, 0.4, 0.5}
	ApplyGain(buf, 2)
	assert.InDeltaSlice(t, []float64{0.2, -0.4, 0.6, 0.8, 1.0}, buf, 1e-12)

	assert.InDelta(t, 0.44, Mean(buf), 1e-12)
	assert.Zero(t, Mean(nil))
	assert.InDelta(t, 10.0, DBToLinear(20), 1e-12)
}

func TestInt16RoundTripIsExact(t *testing.T) {
	t.Parallel()

	for _, s := range []int16{math.MinInt16, -12345, -1, 0, 1, 12345, math.MaxInt16} {
		assert.Equal(t, s, FloatToInt16(Int16ToFloat(s)))
	}
	assert.Equal(t, int16(math.MaxInt16), FloatToInt16(3))
	assert.Equal(t, int16(math.MinInt16), FloatToInt16(-3))
	assert.Equal(t, int16(0), FloatToInt16(math.NaN()))
}

func TestInterleaveRoundTrip(t *testing.T) {
	t.Parallel()

	const frames, channels = 4, 2
	scratch := [][]float64{make([]float64, frames), make([]float64, frames)}

	f := []float32{0.1, -0.1, 0.2, -0.2, 0.3, -0.3, 0.4, -0.4}
	DeinterleaveFloat32(scratch, f, channels, frames)
	assert.InDelta(t, 0.3, scratch[0][2], 1e-6)
	assert.InDelta(t, -0.3, scratch[1][2], 1e-6)
	out := make([]float32, len(f))
	InterleaveFloat32(out, scratch, channels, frames)
	assert.Equal(t, f, out)

	s := []int16{100, -100, 200, -200, 300, -300, 400, -400}
	DeinterleaveInt16(scratch, s, channels, frames)
	outS := make([]int16, len(s))
	InterleaveInt16(outS, scratch, channels, frames)
	assert.Equal(t, s, outS)
}

func TestByteCodecs(t *testing.T) {
	t.Parallel()

	const frames, channels = 3, 2
	scratch := [][]float64{make([]float64, frames), make([]float64, frames)}

	raw := make([]byte, frames*channels*2)
	vals := []int16{1000, -1000, 2000, -2000, 32767, -32768}
	for i, v := range vals {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(v)) //nolint:gosec // G115: PCM test data
	}
	DecodeS16LE(scratch, raw, channels, frames)
	assert.InDelta(t, 2000.0/32768, scratch[0][1], 1e-12)
	assert.InDelta(t, -1.0, scratch[1][2], 1e-12)

	enc := make([]byte, len(raw))
	EncodeS16LE(enc, scratch, channels, frames)
	assert.Equal(t, raw, enc)

	rawF := make([]byte, frames*channels*4)
	for i := range frames * channels {
		binary.LittleEndian.PutUint32(rawF[i*4:], math.Float32bits(float32(i)*0.1))
	}
	DecodeF32LE(scratch, rawF, channels, frames)
	require.InDelta(t, float64(float32(0.5)), scratch[1][2], 1e-7)
	encF := make([]byte, len(rawF))
	EncodeF32LE(encF, scratch, channels, frames)
	assert.Equal(t, rawF, encF)
}
