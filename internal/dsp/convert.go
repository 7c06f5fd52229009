package dsp

import (
	"encoding/binary"
	"math"
)

const int16Scale = 32768.0

// Int16ToFloat maps a 16-bit sample to [-1, 1).
func Int16ToFloat(s int16) float64 {
	return float64(s) / int16Scale
}

// FloatToInt16 maps x back to 16 bits with rounding and saturation.
func FloatToInt16(x float64) int16 {
	v := math.Round(x * int16Scale)
	switch {
	case math.IsNaN(v):
		return 0
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}

// DeinterleaveFloat32 splits frames of interleaved src into dst[ch].
func DeinterleaveFloat32(dst [][]float64, src []float32, channels, frames int) {
	for ch := range channels {
		out := dst[ch][:frames]
		for i := range out {
			out[i] = float64(src[i*channels+ch])
		}
	}
}

// InterleaveFloat32 writes src[ch] back into interleaved dst.
func InterleaveFloat32(dst []float32, src [][]float64, channels, frames int) {
	for ch := range channels {
		in := src[ch][:frames]
		for i, x := range in {
			dst[i*channels+ch] = float32(x)
		}
	}
}

// DeinterleaveInt16 splits frames of interleaved 16-bit src into dst[ch].
func DeinterleaveInt16(dst [][]float64, src []int16, channels, frames int) {
	for ch := range channels {
		out := dst[ch][:frames]
		for i := range out {
			out[i] = Int16ToFloat(src[i*channels+ch])
		}
	}
}

// InterleaveInt16 writes src[ch] back into interleaved 16-bit dst.
func InterleaveInt16(dst []int16, src [][]float64, channels, frames int) {
	for ch := range channels {
		in := src[ch][:frames]
		for i, x := range in {
			dst[i*channels+ch] = FloatToInt16(x)
		}
	}
}

// CopyFromFloat32 widens one planar channel.
func CopyFromFloat32(dst []float64, src []float32) {
	for i, x := range src {
		dst[i] = float64(x)
	}
}

// CopyToFloat32 narrows one planar channel.
func CopyToFloat32(dst []float32, src []float64) {
	for i, x := range src {
		dst[i] = float32(x)
	}
}

// CopyFromInt16 converts one planar 16-bit channel.
func CopyFromInt16(dst []float64, src []int16) {
	for i, s := range src {
		dst[i] = Int16ToFloat(s)
	}
}

// CopyToInt16 converts one planar channel back to 16 bits.
func CopyToInt16(dst []int16, src []float64) {
	for i, x := range src {
		dst[i] = FloatToInt16(x)
	}
}

// DecodeS16LE splits interleaved little-endian 16-bit PCM bytes into dst[ch].
func DecodeS16LE(dst [][]float64, src []byte, channels, frames int) {
	for ch := range channels {
		out := dst[ch][:frames]
		for i := range out {
			off := (i*channels + ch) * 2
			out[i] = Int16ToFloat(int16(binary.LittleEndian.Uint16(src[off:]))) //nolint:gosec // G115: PCM reinterpretation
		}
	}
}

// EncodeS16LE writes dst[ch] back as interleaved little-endian 16-bit PCM.
func EncodeS16LE(dst []byte, src [][]float64, channels, frames int) {
	for ch := range channels {
		in := src[ch][:frames]
		for i, x := range in {
			off := (i*channels + ch) * 2
			binary.LittleEndian.PutUint16(dst[off:], uint16(FloatToInt16(x))) //nolint:gosec // G115: PCM reinterpretation
		}
	}
}

// DecodeF32LE splits interleaved little-endian float32 PCM bytes into dst[ch].
func DecodeF32LE(dst [][]float64, src []byte, channels, frames int) {
	for ch := range channels {
		out := dst[ch][:frames]
		for i := range out {
			off := (i*channels + ch) * 4
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(src[off:])))
		}
	}
}

// EncodeF32LE writes dst[ch] back as interleaved little-endian float32 PCM.
func EncodeF32LE(dst []byte, src [][]float64, channels, frames int) {
	for ch := range channels {
		in := src[ch][:frames]
		for i, x := range in {
			off := (i*channels + ch) * 4
			binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(float32(x)))
		}
	}
}
