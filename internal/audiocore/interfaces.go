package audiocore

import (
	"context"
	"time"
)

// Supported encodings.
const (
	EncodingPCMS16LE = "pcm_s16le"
	EncodingPCMF32LE = "pcm_f32le"
)

// AudioFormat represents the format of audio data
type AudioFormat struct {
	SampleRate int    // Sample rate in Hz (e.g., 48000)
	Channels   int    // Number of channels (1 for mono, 2 for stereo)
	BitDepth   int    // Bits per sample (16 or 32)
	Encoding   string // Encoding format ("pcm_s16le", "pcm_f32le")
}

// FrameSize returns the bytes per interleaved frame.
func (f AudioFormat) FrameSize() int {
	return f.Channels * f.BitDepth / 8
}

// Frames returns how many whole frames fit in n bytes.
func (f AudioFormat) Frames(n int) int {
	size := f.FrameSize()
	if size <= 0 {
		return 0
	}
	return n / size
}

// DurationOf returns the playing time of n bytes.
func (f AudioFormat) DurationOf(n int) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(f.Frames(n)) * time.Second / time.Duration(f.SampleRate)
}

// AudioData represents a chunk of audio with metadata
type AudioData struct {
	Buffer    []byte        // Raw audio data
	Format    AudioFormat   // Audio format information
	Timestamp time.Time     // When this audio was captured
	Duration  time.Duration // Duration of the audio chunk
	SourceID  string        // Identifier of the source that produced this audio
}

// AudioProcessor processes audio data
type AudioProcessor interface {
	// ID returns a unique identifier for this processor
	ID() string

	// Process transforms audio data
	Process(ctx context.Context, input *AudioData) (*AudioData, error)

	// GetRequiredFormat returns the audio format this processor requires
	// Returns nil if the processor can handle any format
	GetRequiredFormat() *AudioFormat

	// GetOutputFormat returns the audio format this processor outputs
	// given an input format
	GetOutputFormat(inputFormat AudioFormat) AudioFormat
}

// ProcessorChain represents a sequence of audio processors
type ProcessorChain interface {
	// AddProcessor adds a processor to the chain
	AddProcessor(processor AudioProcessor) error

	// RemoveProcessor removes a processor from the chain
	RemoveProcessor(id string) error

	// Process runs audio through the entire chain
	Process(ctx context.Context, input *AudioData) (*AudioData, error)

	// GetProcessors returns all processors in order
	GetProcessors() []AudioProcessor
}
