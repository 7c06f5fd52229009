package audiofile

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audiofx/internal/audiocore"
	"github.com/tphakala/audiofx/internal/errors"
)

func sine(frames, channels int, amp float64) []float32 {
	out := make([]float32, frames*channels)
	for i := range frames {
		v := float32(amp * math.Sin(2*math.Pi*440*float64(i)/48000))
		for ch := range channels {
			out[i*channels+ch] = v
		}
	}
	return out
}

func writeWAV(t *testing.T, path string, bitDepth, channels int, samples []float32) {
	t.Helper()
	w, err := Create(path, 48000, channels, bitDepth)
	require.NoError(t, err)
	require.NoError(t, w.WriteSamples(samples))
	require.NoError(t, w.Close())
}

func readAll(t *testing.T, r *Reader) []float32 {
	t.Helper()
	var out []float32
	buf := make([]float32, 1000)
	for {
		n, err := r.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
	}
}

func TestWAV_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		bitDepth int
		channels int
		delta    float64
	}{
		{"16-bit mono", 16, 1, 1e-4},
		{"16-bit stereo", 16, 2, 1e-4},
		{"24-bit stereo", 24, 2, 1e-6},
		{"32-bit float stereo", 32, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "tone.wav")
			in := sine(4800, tt.channels, 0.5)
			writeWAV(t, path, tt.bitDepth, tt.channels, in)

			r, err := Open(path)
			require.NoError(t, err)
			defer func() { _ = r.Close() }()

			info := r.Info()
			assert.Equal(t, ContainerWAV, info.Container)
			assert.Equal(t, 48000, info.SampleRate)
			assert.Equal(t, tt.channels, info.Channels)
			assert.Equal(t, tt.bitDepth, info.BitDepth)
			assert.Equal(t, tt.bitDepth == 32, info.Float)
			assert.Equal(t, int64(4800), info.Frames)

			out := readAll(t, r)
			require.Len(t, out, len(in))
			for i := range in {
				require.InDelta(t, in[i], out[i], tt.delta, "sample %d", i)
			}
		})
	}
}

func TestWriter_ClipsIntegerOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "clip.wav")
	writeWAV(t, path, 16, 1, []float32{2, -2, float32(math.NaN()), 0.25})

	r, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	out := readAll(t, r)
	require.Len(t, out, 4)
	assert.InDelta(t, 32767.0/32768, out[0], 1e-6)
	assert.InDelta(t, -1.0, out[1], 1e-6)
	assert.InDelta(t, 0.0, out[2], 0)
	assert.InDelta(t, 0.25, out[3], 1e-4)
}

func TestReader_ReadBlock(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "block.wav")
	writeWAV(t, path, 32, 2, sine(1500, 2, 0.3))

	r, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	first, err := r.ReadBlock(1024)
	require.NoError(t, err)
	assert.Equal(t, audiocore.EncodingPCMF32LE, first.Format.Encoding)
	assert.Len(t, first.Buffer, 1024*2*4)
	assert.Equal(t, "block.wav", first.SourceID)

	second, err := r.ReadBlock(1024)
	require.NoError(t, err)
	assert.Len(t, second.Buffer, (1500-1024)*2*4)
	assert.Equal(t, first.Duration, second.Timestamp.Sub(first.Timestamp))

	_, err = r.ReadBlock(1024)
	assert.ErrorIs(t, err, io.EOF)
}

func TestWriter_WriteData(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.wav")
	w, err := Create(path, 48000, 1, 16)
	require.NoError(t, err)

	buf := make([]byte, 4)
	binary.LittleEndian.PutUint16(buf[0:], uint16(16384))
	binary.LittleEndian.PutUint16(buf[2:], 0xC000) // -16384
	require.NoError(t, w.WriteData(&audiocore.AudioData{
		Buffer: buf,
		Format: audiocore.AudioFormat{SampleRate: 48000, Channels: 1, BitDepth: 16, Encoding: audiocore.EncodingPCMS16LE},
	}))

	err = w.WriteData(&audiocore.AudioData{
		Buffer: buf,
		Format: audiocore.AudioFormat{SampleRate: 48000, Channels: 2, BitDepth: 16, Encoding: audiocore.EncodingPCMS16LE},
	})
	require.Error(t, err)
	require.ErrorIs(t, w.WriteData(nil), audiocore.ErrNilInput)
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	out := readAll(t, r)
	require.Len(t, out, 2)
	assert.InDelta(t, 0.5, out[0], 1e-4)
	assert.InDelta(t, -0.5, out[1], 1e-4)
}

func TestCreate_Validates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := Create(filepath.Join(dir, "a.wav"), 48000, 2, 8)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	_, err = Create(filepath.Join(dir, "b.wav"), 0, 2, 16)
	require.Error(t, err)
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "song.mp3"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryUnsupported))

	_, err = Open(filepath.Join(dir, "missing.wav"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))

	garbage := filepath.Join(dir, "garbage.wav")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not a riff header"), 0o600))
	_, err = Open(garbage)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))

	badFLAC := filepath.Join(dir, "garbage.flac")
	require.NoError(t, os.WriteFile(badFLAC, []byte("not flac"), 0o600))
	_, err = Open(badFLAC)
	require.Error(t, err)
}

func TestDecodeLE(t *testing.T) {
	t.Parallel()

	// 24-bit: 0x7FFFFF, -0x800000, -1
	src := []byte{0xFF, 0xFF, 0x7F, 0x00, 0x00, 0x80, 0xFF, 0xFF, 0xFF}
	dst := make([]float32, 3)
	decodeLE(dst, src, 24, 8388608)
	assert.InDelta(t, 8388607.0/8388608, dst[0], 1e-7)
	assert.InDelta(t, -1.0, dst[1], 0)
	assert.InDelta(t, -1.0/8388608, dst[2], 1e-9)

	src16 := []byte{0x00, 0x40, 0x00, 0xC0}
	dst16 := make([]float32, 2)
	decodeLE(dst16, src16, 16, 32768)
	assert.InDelta(t, 0.5, dst16[0], 0)
	assert.InDelta(t, -0.5, dst16[1], 0)
}

func TestScaleFor(t *testing.T) {
	t.Parallel()

	for _, bits := range []int{8, 16, 24, 32} {
		s, err := scaleFor(bits)
		require.NoError(t, err)
		assert.InDelta(t, math.Pow(2, float64(bits-1)), float64(s), 0)
	}
	_, err := scaleFor(12)
	require.Error(t, err)
}
