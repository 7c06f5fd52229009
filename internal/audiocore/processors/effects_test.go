package processors

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audiofx/internal/audiocore"
	"github.com/tphakala/audiofx/internal/engine"
	"github.com/tphakala/audiofx/internal/logger"
)

func newTestEngine() *engine.Engine {
	return engine.New(engine.WithLogger(logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)))
}

func TestEffectsProcessorNilEngine(t *testing.T) {
	t.Parallel()

	proc, err := NewEffectsProcessor("fx", nil)
	require.Error(t, err)
	assert.Nil(t, proc)
}

func TestEffectsProcessorPreparesOnFormat(t *testing.T) {
	t.Parallel()

	eng := newTestEngine()
	proc, err := NewEffectsProcessor("fx", eng)
	require.NoError(t, err)

	format := audiocore.AudioFormat{SampleRate: 44100, Channels: 2, BitDepth: 16, Encoding: audiocore.EncodingPCMS16LE}
	input := &audiocore.AudioData{Buffer: s16Buffer(1000, -1000, 500, -500), Format: format}

	output, err := proc.Process(t.Context(), input)
	require.NoError(t, err)
	assert.Equal(t, input.Buffer, output.Buffer, "flat engine is a bypass")
	assert.NotSame(t, input, output)

	f, ok := eng.Format()
	require.True(t, ok)
	assert.Equal(t, engine.Int16Format(44100, 2), f)
	first := eng.SessionID()

	// same format keeps the session
	_, err = proc.Process(t.Context(), input)
	require.NoError(t, err)
	assert.Equal(t, first, eng.SessionID())

	// a new rate starts a new one
	input.Format.SampleRate = 48000
	_, err = proc.Process(t.Context(), input)
	require.NoError(t, err)
	assert.NotEqual(t, first, eng.SessionID())
}

func TestEffectsProcessorAppliesEngine(t *testing.T) {
	t.Parallel()

	eng := newTestEngine()
	require.NoError(t, eng.SetBandGain(3, -12))
	proc, err := NewEffectsProcessor("fx", eng)
	require.NoError(t, err)

	samples := make([]int16, 2048)
	for i := range samples {
		if i%20 < 10 {
			samples[i] = 8000
		} else {
			samples[i] = -8000
		}
	}
	input := &audiocore.AudioData{
		Buffer: s16Buffer(samples...),
		Format: audiocore.AudioFormat{SampleRate: 48000, Channels: 1, BitDepth: 16, Encoding: audiocore.EncodingPCMS16LE},
	}
	output, err := proc.Process(t.Context(), input)
	require.NoError(t, err)
	assert.NotEqual(t, input.Buffer, output.Buffer)
	assert.Equal(t, int16(8000), s16At(input.Buffer, 0), "input untouched")
	assert.Equal(t, uint64(1), eng.Stats().Callbacks)
}

func TestEffectsProcessorUnsupportedEncoding(t *testing.T) {
	t.Parallel()

	proc, err := NewEffectsProcessor("fx", newTestEngine())
	require.NoError(t, err)

	_, err = proc.Process(t.Context(), &audiocore.AudioData{
		Buffer: []byte{1, 2, 3},
		Format: audiocore.AudioFormat{SampleRate: 48000, Channels: 1, BitDepth: 24, Encoding: "pcm_s24le"},
	})
	require.ErrorIs(t, err, audiocore.ErrInvalidAudioFormat)
}

func TestEffectsProcessorPassesThroughUnsupportedLayout(t *testing.T) {
	t.Parallel()

	eng := newTestEngine()
	proc, err := NewEffectsProcessor("fx", eng)
	require.NoError(t, err)

	input := &audiocore.AudioData{
		Buffer: make([]byte, 6*2*4),
		Format: audiocore.AudioFormat{SampleRate: 48000, Channels: 6, BitDepth: 16, Encoding: audiocore.EncodingPCMS16LE},
	}
	for range 2 {
		output, err := proc.Process(t.Context(), input)
		require.NoError(t, err)
		assert.Same(t, input, output)
	}
	assert.Equal(t, uint64(1), eng.Stats().Unsupported)
}

func TestEffectsProcessorInChain(t *testing.T) {
	t.Parallel()

	chain := audiocore.NewProcessorChainWithLogger(logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC))
	fx, err := NewEffectsProcessor("fx", newTestEngine())
	require.NoError(t, err)
	trim, err := NewGainProcessor("trim", 0.5)
	require.NoError(t, err)
	require.NoError(t, chain.AddProcessor(fx))
	require.NoError(t, chain.AddProcessor(trim))

	input := &audiocore.AudioData{
		Buffer: s16Buffer(1000, 2000),
		Format: audiocore.AudioFormat{SampleRate: 48000, Channels: 1, BitDepth: 16, Encoding: audiocore.EncodingPCMS16LE},
	}
	output, err := chain.Process(t.Context(), input)
	require.NoError(t, err)
	assert.Equal(t, int16(500), s16At(output.Buffer, 0))
	assert.Equal(t, int16(1000), s16At(output.Buffer, 1))
}
