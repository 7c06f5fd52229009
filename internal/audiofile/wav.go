package audiofile

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/audiofx/internal/audiocore"
	"github.com/tphakala/audiofx/internal/dsp"
	"github.com/tphakala/audiofx/internal/errors"
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3

	// wavChunkSamples is the decode buffer size in frames.
	wavChunkSamples = 16384
	// wavHeaderSize is the canonical RIFF/fmt/data header length.
	wavHeaderSize = 44
)

type wavSource struct {
	dec   *wav.Decoder
	buf   *audio.IntBuffer
	float bool
	scale float32
	out   []float32
}

// newWAVSource reads the header of r. size is the file length, used to
// estimate the frame count.
func newWAVSource(r io.ReadSeeker, size int64) (Info, source, error) {
	dec := wav.NewDecoder(r)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return Info{}, nil, fmt.Errorf("invalid WAV file format")
	}

	info := Info{
		Container:  ContainerWAV,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Float:      dec.WavAudioFormat == wavFormatFloat,
	}
	if info.Float && info.BitDepth != 32 {
		return Info{}, nil, fmt.Errorf("unsupported float WAV bit depth: %d", info.BitDepth)
	}
	if info.Channels < 1 {
		return Info{}, nil, fmt.Errorf("invalid channel count: %d", info.Channels)
	}
	scale, err := scaleFor(info.BitDepth)
	if err != nil {
		return Info{}, nil, err
	}
	if size > wavHeaderSize {
		info.Frames = (size - wavHeaderSize) / int64(info.BitDepth/8*info.Channels)
	}

	src := &wavSource{
		dec: dec,
		buf: &audio.IntBuffer{
			Data:   make([]int, wavChunkSamples*info.Channels),
			Format: &audio.Format{SampleRate: info.SampleRate, NumChannels: info.Channels},
		},
		float: info.Float,
		scale: scale,
		out:   make([]float32, wavChunkSamples*info.Channels),
	}
	return info, src, nil
}

func (s *wavSource) next() ([]float32, error) {
	n, err := s.dec.PCMBuffer(s.buf)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, io.EOF
	}
	out := s.out[:n]
	for i, v := range s.buf.Data[:n] {
		if s.float {
			out[i] = math.Float32frombits(uint32(int32(v))) //nolint:gosec // G115: IEEE bits carried as int
		} else {
			out[i] = float32(v) / s.scale
		}
	}
	return out, nil
}

// Writer encodes interleaved float32 samples to a WAV file.
type Writer struct {
	file     *os.File
	enc      *wav.Encoder
	channels int
	bitDepth int
	buf      *audio.IntBuffer
}

// Create opens path for writing. bitDepth 16 and 24 write integer PCM,
// 32 writes IEEE float.
func Create(path string, sampleRate, channels, bitDepth int) (*Writer, error) {
	if bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return nil, errors.Newf("unsupported output bit depth %d", bitDepth).
			Component(componentAudioFile).
			Category(errors.CategoryValidation).
			Build()
	}
	if channels < 1 || sampleRate <= 0 {
		return nil, errors.Newf("invalid output format %d Hz, %d channels", sampleRate, channels).
			Component(componentAudioFile).
			Category(errors.CategoryValidation).
			Build()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, errors.New(err).
			Component(componentAudioFile).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	f, err := os.Create(path) //nolint:gosec // G304: user-supplied output file
	if err != nil {
		return nil, errors.New(err).
			Component(componentAudioFile).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	format := wavFormatPCM
	if bitDepth == 32 {
		format = wavFormatFloat
	}
	return &Writer{
		file:     f,
		enc:      wav.NewEncoder(f, sampleRate, bitDepth, channels, format),
		channels: channels,
		bitDepth: bitDepth,
		buf: &audio.IntBuffer{
			Format:         &audio.Format{SampleRate: sampleRate, NumChannels: channels},
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// WriteSamples appends interleaved samples. Integer output is clipped to
// full scale.
func (w *Writer) WriteSamples(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}
	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	data := w.buf.Data[:len(samples)]
	for i, s := range samples {
		data[i] = w.encode(s)
	}
	w.buf.Data = data
	if err := w.enc.Write(w.buf); err != nil {
		return errors.New(err).
			Component(componentAudioFile).
			Category(errors.CategoryFileIO).
			Context("operation", "wav_write").
			Build()
	}
	return nil
}

func (w *Writer) encode(s float32) int {
	x := float64(s)
	if !dsp.IsFinite(x) {
		x = 0
	}
	switch w.bitDepth {
	case 32:
		return int(int32(math.Float32bits(float32(x)))) //nolint:gosec // G115: IEEE bits carried as int
	case 24:
		x = math.Max(-1, math.Min(x, 1))
		return int(math.Round(x * 8388607))
	default:
		return int(dsp.FloatToInt16(x))
	}
}

// WriteData appends a pcm_f32le or pcm_s16le block.
func (w *Writer) WriteData(data *audiocore.AudioData) error {
	if data == nil {
		return audiocore.ErrNilInput
	}
	if data.Format.Channels != w.channels {
		return errors.Newf("block has %d channels, writer has %d", data.Format.Channels, w.channels).
			Component(componentAudioFile).
			Category(errors.CategoryValidation).
			Build()
	}
	frames := data.Format.Frames(len(data.Buffer))
	chans := make([][]float64, w.channels)
	for ch := range chans {
		chans[ch] = make([]float64, frames)
	}
	switch data.Format.Encoding {
	case audiocore.EncodingPCMF32LE:
		dsp.DecodeF32LE(chans, data.Buffer, w.channels, frames)
	case audiocore.EncodingPCMS16LE:
		dsp.DecodeS16LE(chans, data.Buffer, w.channels, frames)
	default:
		return errors.New(audiocore.ErrInvalidAudioFormat).
			Component(componentAudioFile).
			Context("encoding", data.Format.Encoding).
			Build()
	}
	samples := make([]float32, frames*w.channels)
	dsp.InterleaveFloat32(samples, chans, w.channels, frames)
	return w.WriteSamples(samples)
}

// Close finalizes the WAV header and closes the file.
func (w *Writer) Close() error {
	encErr := w.enc.Close()
	fileErr := w.file.Close()
	if encErr != nil {
		return errors.New(encErr).
			Component(componentAudioFile).
			Category(errors.CategoryFileIO).
			Context("operation", "wav_finalize").
			Build()
	}
	return fileErr
}
