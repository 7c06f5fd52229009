package engine

import (
	"fmt"

	"github.com/tphakala/audiofx/internal/dsp"
)

// Format describes the PCM layout the host will deliver for a session.
type Format struct {
	SampleRate int  `json:"sample_rate"`
	Channels   int  `json:"channels"`
	BitDepth   int  `json:"bit_depth"`
	Float      bool `json:"float"`
	// Planar buffers hold each channel contiguously instead of interleaved.
	Planar bool `json:"planar"`
}

// Int16Format is interleaved signed 16-bit PCM.
func Int16Format(sampleRate, channels int) Format {
	return Format{SampleRate: sampleRate, Channels: channels, BitDepth: 16}
}

// Float32Format is interleaved 32-bit float PCM.
func Float32Format(sampleRate, channels int) Format {
	return Format{SampleRate: sampleRate, Channels: channels, BitDepth: 32, Float: true}
}

// Supported reports whether the engine can process f: mono or stereo,
// 16-bit integer or 32-bit float.
func (f Format) Supported() bool {
	if f.Channels < 1 || f.Channels > dsp.MaxChannels {
		return false
	}
	return (f.BitDepth == 16 && !f.Float) || (f.BitDepth == 32 && f.Float)
}

// BytesPerSample returns the width of one sample.
func (f Format) BytesPerSample() int {
	return f.BitDepth / 8
}

// FrameSize returns the bytes in one frame across all channels.
func (f Format) FrameSize() int {
	return f.BytesPerSample() * f.Channels
}

// ceiling returns the soft limiter ceiling for this format.
func (f Format) ceiling(c Ceilings) float64 {
	if f.Float {
		return c.Float
	}
	return c.Int16
}

// Encoding returns the audiocore encoding name.
func (f Format) Encoding() string {
	switch {
	case f.BitDepth == 16 && !f.Float:
		return "pcm_s16le"
	case f.BitDepth == 32 && f.Float:
		return "pcm_f32le"
	}
	return fmt.Sprintf("pcm_%dbit", f.BitDepth)
}

func (f Format) String() string {
	layout := "interleaved"
	if f.Planar {
		layout = "planar"
	}
	return fmt.Sprintf("%s %d Hz %dch %s", f.Encoding(), f.SampleRate, f.Channels, layout)
}

// Ceilings are the soft limiter ceilings per sample path.
type Ceilings struct {
	Int16 float64 `json:"int16"`
	Float float64 `json:"float"`
}

// DefaultCeilings leaves codec headroom on the 16-bit path.
func DefaultCeilings() Ceilings {
	return Ceilings{Int16: dsp.CeilingInt16, Float: dsp.CeilingFloat}
}
