package engine

import (
	"encoding/binary"
	"io"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audiofx/internal/errors"
	"github.com/tphakala/audiofx/internal/logger"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(WithLogger(logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)))
}

func noiseFloat32(seed uint64, n int, amplitude float64) []float32 {
	r := rand.New(rand.NewPCG(seed, seed+1))
	out := make([]float32, n)
	for i := range out {
		out[i] = float32((r.Float64()*2 - 1) * amplitude)
	}
	return out
}

func noiseInt16(seed uint64, n int) []int16 {
	r := rand.New(rand.NewPCG(seed, seed+1))
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(r.IntN(65536) - 32768) //nolint:gosec // G115: range fits int16
	}
	return out
}

func TestProcess_NotPrepared(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	buf := []byte{1, 2, 3, 4}
	out, err := e.Process(buf, 1)
	require.ErrorIs(t, err, ErrNotPrepared)
	assert.Equal(t, []byte{1, 2, 3, 4}, out)
	assert.Equal(t, uint64(1), e.Stats().Rejected)
}

func TestProcess_BypassFloatIsBitExact(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.Prepare(Float32Format(48000, 2)))

	in := noiseFloat32(1, 512*2, 1.5)
	in[7] = float32(math.NaN())
	samples := append([]float32(nil), in...)

	require.NoError(t, e.ProcessFloat32(samples, 512))
	for i := range in {
		assert.Equal(t, math.Float32bits(in[i]), math.Float32bits(samples[i]), "sample %d", i)
	}
	assert.Equal(t, uint64(1), e.Stats().Bypassed)
}

func TestProcess_BypassInt16IsExact(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.Prepare(Int16Format(44100, 2)))

	in := noiseInt16(2, 512*2)
	samples := append([]int16(nil), in...)
	require.NoError(t, e.ProcessInt16(samples, 512))
	assert.Equal(t, in, samples)

	raw := make([]byte, len(in)*2)
	for i, s := range in {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(s)) //nolint:gosec // G115: PCM reinterpretation
	}
	want := append([]byte(nil), raw...)
	out, err := e.Process(raw, 512)
	require.NoError(t, err)
	assert.Equal(t, want, out)
}

func TestProcess_BypassWhenEqualizerDisabled(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.Prepare(Float32Format(48000, 1)))
	require.NoError(t, e.SetBandGain(2, -12))
	e.DisableEqualizer()

	in := noiseFloat32(3, 256, 0.5)
	samples := append([]float32(nil), in...)
	require.NoError(t, e.ProcessFloat32(samples, 256))
	assert.Equal(t, in, samples)
}

func TestProcess_UnsupportedFormatPassesThrough(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	err := e.Prepare(Format{SampleRate: 48000, Channels: 2, BitDepth: 24})
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.True(t, errors.IsCategory(err, errors.CategoryUnsupported))
	assert.NotEmpty(t, e.SessionID())

	require.NoError(t, e.SetBandGain(0, 6))
	buf := []byte{9, 8, 7, 6, 5, 4}
	out, err := e.Process(buf, 1)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, []byte{9, 8, 7, 6, 5, 4}, out)
	assert.Equal(t, uint64(1), e.Stats().Unsupported)
}

func TestProcess_TypedCallMustMatchFormat(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.Prepare(Int16Format(48000, 1)))
	err := e.ProcessFloat32(make([]float32, 16), 16)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestProcess_ShortBuffer(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.Prepare(Int16Format(48000, 2)))

	_, err := e.Process(make([]byte, 10), 4)
	require.ErrorIs(t, err, ErrFrameCount)
	require.ErrorIs(t, e.ProcessInt16(make([]int16, 3), 2), ErrFrameCount)
	require.ErrorIs(t, e.ProcessPlanarInt16([][]int16{make([]int16, 4)}, 4), ErrFrameCount)
	require.ErrorIs(t, e.ProcessInt16(nil, -1), ErrFrameCount)
}

func TestPrepare_BusyWhileProcessing(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	e.busy.Store(true)
	require.ErrorIs(t, e.Prepare(Float32Format(48000, 2)), ErrBusy)
	require.ErrorIs(t, e.Teardown(), ErrBusy)

	e.busy.Store(false)
	require.NoError(t, e.Prepare(Float32Format(48000, 2)))
}

func TestPrepare_InvalidSampleRate(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	err := e.Prepare(Float32Format(100, 2))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	_, ok := e.Format()
	assert.False(t, ok)
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	assert.Empty(t, e.SessionID())

	require.NoError(t, e.Prepare(Float32Format(48000, 2)))
	first := e.SessionID()
	require.NotEmpty(t, first)

	require.NoError(t, e.Prepare(Float32Format(44100, 2)))
	assert.NotEqual(t, first, e.SessionID())
	f, ok := e.Format()
	require.True(t, ok)
	assert.Equal(t, 44100, f.SampleRate)
	assert.InDelta(t, 44100.0, e.State().Equalizer.SampleRate, 0)

	require.NoError(t, e.Teardown())
	assert.Empty(t, e.SessionID())
	require.ErrorIs(t, e.ProcessFloat32(make([]float32, 4), 2), ErrNotPrepared)
	require.NoError(t, e.Teardown(), "second teardown is a no-op")
	assert.Equal(t, uint64(2), e.Stats().Prepares)
}

func TestProcess_NoiseThroughReverbStaysBounded(t *testing.T) {
	t.Parallel()

	const sampleRate = 44100
	const block = 1024

	e := newTestEngine(t)
	require.NoError(t, e.Prepare(Float32Format(sampleRate, 2)))
	require.NoError(t, e.SetReverbParameters(100, 1, 10))
	e.EnableReverb()
	for i := range 6 {
		require.NoError(t, e.SetBandGain(i, float64(20-8*i)))
	}

	r := rand.New(rand.NewPCG(9, 10))
	samples := make([]float32, block*2)
	for n := 0; n < 10*sampleRate; n += block {
		for i := range samples {
			samples[i] = float32(r.Float64()*2 - 1)
		}
		require.NoError(t, e.ProcessFloat32(samples, block))
		for i, y := range samples {
			require.False(t, math.IsNaN(float64(y)) || math.IsInf(float64(y), 0), "sample %d", i)
			require.LessOrEqual(t, math.Abs(float64(y)), 0.9, "sample %d", i)
		}
	}

	levels := e.Levels()
	assert.Positive(t, levels.RMS[0])
	assert.Positive(t, levels.RMS[1])
	assert.Less(t, levels.DBFS[0], 0.0)
}

func TestProcess_Int16PathUsesCodecCeiling(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.Prepare(Int16Format(48000, 2)))
	require.NoError(t, e.SetBandGain(1, 12))

	samples := noiseInt16(4, 2048*2)
	require.NoError(t, e.ProcessInt16(samples, 2048))
	for _, s := range samples {
		require.LessOrEqual(t, math.Abs(float64(s)), 0.5*32768+1)
	}
}

func TestProcess_LayoutsAgree(t *testing.T) {
	t.Parallel()

	const frames = 600
	setup := func(f Format) *Engine {
		e := newTestEngine(t)
		require.NoError(t, e.Prepare(f))
		require.NoError(t, e.SetBandGain(3, -9))
		require.NoError(t, e.SetBandGain(5, 4))
		require.NoError(t, e.SetReverbParameters(40, 0.3, 1.5))
		e.EnableReverb()
		return e
	}

	interleaved := noiseInt16(5, frames*2)

	a := setup(Int16Format(48000, 2))
	got := append([]int16(nil), interleaved...)
	require.NoError(t, a.ProcessInt16(got, frames))

	b := setup(Int16Format(48000, 2))
	planes := [][]int16{make([]int16, frames), make([]int16, frames)}
	for i := range frames {
		planes[0][i] = interleaved[2*i]
		planes[1][i] = interleaved[2*i+1]
	}
	require.NoError(t, b.ProcessPlanarInt16(planes, frames))

	pf := Int16Format(48000, 2)
	pf.Planar = true
	c := setup(pf)
	raw := make([]byte, frames*4)
	for ch := range 2 {
		for i := range frames {
			binary.LittleEndian.PutUint16(raw[(ch*frames+i)*2:], uint16(interleaved[2*i+ch])) //nolint:gosec // G115: PCM reinterpretation
		}
	}
	_, err := c.Process(raw, frames)
	require.NoError(t, err)

	for i := range frames {
		assert.Equal(t, got[2*i], planes[0][i])
		assert.Equal(t, got[2*i+1], planes[1][i])
		assert.Equal(t, got[2*i], int16(binary.LittleEndian.Uint16(raw[i*2:])))                 //nolint:gosec // G115: PCM reinterpretation
		assert.Equal(t, got[2*i+1], int16(binary.LittleEndian.Uint16(raw[(frames+i)*2:]))) //nolint:gosec // G115: PCM reinterpretation
	}
}

func TestProcess_PlanarFloat32(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.Prepare(Float32Format(48000, 1)))
	require.NoError(t, e.SetBandGain(0, -6))

	plane := noiseFloat32(6, 300, 0.5)
	orig := append([]float32(nil), plane...)
	require.NoError(t, e.ProcessPlanarFloat32([][]float32{plane}, 300))
	assert.NotEqual(t, orig, plane)
	for _, y := range plane {
		assert.LessOrEqual(t, math.Abs(float64(y)), 0.9)
	}
}

func TestProcess_RemovesDCOffset(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.Prepare(Float32Format(48000, 1)))
	require.NoError(t, e.SetBandGain(5, -1))

	samples := make([]float32, 4096)
	for i := range samples {
		samples[i] = 0.4
	}
	require.NoError(t, e.ProcessFloat32(samples, len(samples)))
	assert.Less(t, float64(samples[len(samples)-1]), 0.3)
}

func TestResetEqualizerIsIdempotent(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.SetBandGain(1, 7))
	require.NoError(t, e.SetBandGain(4, -3))

	e.ResetEqualizer()
	once := e.State().Equalizer
	e.ResetEqualizer()
	assert.Equal(t, once, e.State().Equalizer)
	assert.False(t, once.Active)
}

func TestState(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.SetBandGain(0, 10))
	require.NoError(t, e.SetReverbParameters(50, 0.5, 2.5))
	e.EnableReverb()

	s := e.State()
	assert.False(t, s.Prepared)
	assert.Nil(t, s.Format)
	assert.True(t, s.Equalizer.Active)
	assert.InDelta(t, -10.0, s.Equalizer.AppliedGains[3], 1e-12)
	assert.InDelta(t, 0.3162, s.Equalizer.GainStage.Compensation, 1e-4)
	assert.True(t, s.Reverb.Active)
	assert.InDelta(t, 0.875, s.Reverb.Feedback, 1e-12)

	e.ResetReverb()
	assert.False(t, e.State().Reverb.Active)
	assert.True(t, e.State().Reverb.Enabled)

	require.Error(t, e.SetReverbParameters(math.Inf(1), 0, 1))
}

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		format    Format
		supported bool
		encoding  string
		frameSize int
	}{
		{"s16 stereo", Int16Format(48000, 2), true, "pcm_s16le", 4},
		{"f32 mono", Float32Format(44100, 1), true, "pcm_f32le", 4},
		{"24-bit", Format{SampleRate: 48000, Channels: 2, BitDepth: 24}, false, "pcm_24bit", 6},
		{"int32", Format{SampleRate: 48000, Channels: 1, BitDepth: 32}, false, "pcm_32bit", 4},
		{"surround", Int16Format(48000, 6), false, "pcm_s16le", 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.supported, tt.format.Supported())
			assert.Equal(t, tt.encoding, tt.format.Encoding())
			assert.Equal(t, tt.frameSize, tt.format.FrameSize())
		})
	}
}
