package audiofile

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tphakala/flac"
)

type flacSource struct {
	dec      *flac.Decoder
	bitDepth int
	scale    float32
	out      []float32
}

func newFLACSource(r io.Reader) (Info, source, error) {
	dec, err := flac.NewDecoder(r)
	if err != nil {
		return Info{}, nil, err
	}
	info := Info{
		Container:  ContainerFLAC,
		SampleRate: dec.SampleRate,
		Channels:   dec.NChannels,
		BitDepth:   dec.BitsPerSample,
		Frames:     int64(dec.TotalSamples), //nolint:gosec // G115: sample counts fit
	}
	if info.Channels < 1 {
		return Info{}, nil, fmt.Errorf("invalid channel count: %d", info.Channels)
	}
	scale, err := scaleFor(info.BitDepth)
	if err != nil {
		return Info{}, nil, err
	}
	return info, &flacSource{dec: dec, bitDepth: info.BitDepth, scale: scale}, nil
}

func (s *flacSource) next() ([]float32, error) {
	frame, err := s.dec.Next()
	if err != nil {
		return nil, err
	}
	n := len(frame) / (s.bitDepth / 8)
	if cap(s.out) < n {
		s.out = make([]float32, n)
	}
	out := s.out[:n]
	decodeLE(out, frame, s.bitDepth, s.scale)
	return out, nil
}

// decodeLE converts little-endian signed integer samples to float32.
func decodeLE(dst []float32, src []byte, bitDepth int, scale float32) {
	width := bitDepth / 8
	for i := range dst {
		b := src[i*width:]
		var v int32
		switch bitDepth {
		case 8:
			v = int32(int8(b[0]))
		case 16:
			v = int32(int16(binary.LittleEndian.Uint16(b))) //nolint:gosec // G115: PCM reinterpretation
		case 24:
			v = int32(b[0]) | int32(b[1])<<8 | int32(int8(b[2]))<<16
		case 32:
			v = int32(binary.LittleEndian.Uint32(b)) //nolint:gosec // G115: PCM reinterpretation
		}
		dst[i] = float32(v) / scale
	}
}
