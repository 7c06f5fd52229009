// Package audiofile reads WAV and FLAC files and writes WAV files as
// interleaved float32 samples for offline rendering.
package audiofile

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tphakala/audiofx/internal/audiocore"
	"github.com/tphakala/audiofx/internal/errors"
)

const componentAudioFile = "audiofile"

// Containers.
const (
	ContainerWAV  = "wav"
	ContainerFLAC = "flac"
)

// Info describes a decoded stream.
type Info struct {
	Container  string `json:"container"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth"`
	Float      bool   `json:"float"`
	// Frames is the length in frames. For WAV it is estimated from the file
	// size.
	Frames int64 `json:"frames"`
}

// Duration returns the stream length.
func (i Info) Duration() time.Duration {
	if i.SampleRate <= 0 {
		return 0
	}
	return time.Duration(i.Frames) * time.Second / time.Duration(i.SampleRate)
}

// source yields successive chunks of interleaved samples in [-1, 1].
type source interface {
	next() ([]float32, error)
}

// Reader decodes an audio file.
type Reader struct {
	file    *os.File
	name    string
	info    Info
	src     source
	pending []float32
	frames  int64
}

// Open decodes path, choosing the codec from the file extension.
func Open(path string) (*Reader, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext != ContainerWAV && ext != ContainerFLAC {
		return nil, errors.Newf("unsupported audio file extension %q", ext).
			Component(componentAudioFile).
			Category(errors.CategoryUnsupported).
			Context("path", path).
			Build()
	}

	f, err := os.Open(path) //nolint:gosec // G304: user-supplied input file
	if err != nil {
		return nil, errors.New(err).
			Component(componentAudioFile).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	var (
		info Info
		src  source
	)
	switch ext {
	case ContainerWAV:
		var st os.FileInfo
		if st, err = f.Stat(); err == nil {
			info, src, err = newWAVSource(f, st.Size())
		}
	case ContainerFLAC:
		info, src, err = newFLACSource(f)
	}
	if err != nil {
		_ = f.Close()
		return nil, errors.New(err).
			Component(componentAudioFile).
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Build()
	}

	return &Reader{file: f, name: filepath.Base(path), info: info, src: src}, nil
}

// Info returns the stream description.
func (r *Reader) Info() Info {
	return r.info
}

// Format returns the audiocore format of ReadBlock output.
func (r *Reader) Format() audiocore.AudioFormat {
	return audiocore.AudioFormat{
		SampleRate: r.info.SampleRate,
		Channels:   r.info.Channels,
		BitDepth:   32,
		Encoding:   audiocore.EncodingPCMF32LE,
	}
}

// ReadSamples fills dst with whole interleaved frames and returns the
// number of samples written. It returns io.EOF once the stream is drained.
func (r *Reader) ReadSamples(dst []float32) (int, error) {
	ch := max(r.info.Channels, 1)
	want := len(dst) - len(dst)%ch
	n := 0
	for n < want {
		if len(r.pending) == 0 {
			chunk, err := r.src.next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return n, errors.New(err).
					Component(componentAudioFile).
					Category(errors.CategoryFileParsing).
					Context("file", r.name).
					Build()
			}
			r.pending = chunk
			continue
		}
		c := copy(dst[n:want], r.pending)
		r.pending = r.pending[c:]
		n += c
	}
	r.frames += int64(n / ch)
	if n == 0 && want > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// ReadBlock reads up to frames frames as pcm_f32le AudioData. The
// timestamp is the block offset from the start of the file.
func (r *Reader) ReadBlock(frames int) (*audiocore.AudioData, error) {
	start := r.frames
	samples := make([]float32, frames*max(r.info.Channels, 1))
	n, err := r.ReadSamples(samples)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, n*4)
	for i, s := range samples[:n] {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	format := r.Format()
	return &audiocore.AudioData{
		Buffer:    buf,
		Format:    format,
		Timestamp: time.Unix(0, 0).Add(framesToDuration(start, r.info.SampleRate)),
		Duration:  format.DurationOf(len(buf)),
		SourceID:  r.name,
	}, nil
}

// Close releases the file.
func (r *Reader) Close() error {
	return r.file.Close()
}

func framesToDuration(frames int64, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

// scaleFor returns the divisor mapping signed integers of bitDepth to [-1, 1].
func scaleFor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 8:
		return 128, nil
	case 16:
		return 32768, nil
	case 24:
		return 8388608, nil
	case 32:
		return 2147483648, nil
	}
	return 0, errors.Newf("unsupported bit depth %d", bitDepth).
		Component(componentAudioFile).
		Category(errors.CategoryUnsupported).
		Build()
}
