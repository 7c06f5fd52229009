package processors

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/tphakala/audiofx/internal/audiocore"
	"github.com/tphakala/audiofx/internal/dsp"
	"github.com/tphakala/audiofx/internal/errors"
	"github.com/tphakala/audiofx/internal/logger"
)

// MaxGain bounds the linear output trim.
const MaxGain = 10.0

// GainProcessor applies a linear output trim to audio data
type GainProcessor struct {
	id   string
	gain atomic.Value // stores float64
	log  logger.Logger
}

func validateGain(gain float64) error {
	if !dsp.IsFinite(gain) || gain < 0.0 || gain > MaxGain {
		return errors.Newf("gain must be between 0.0 and %.1f", MaxGain).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryValidation).
			Context("gain", gain).
			Build()
	}
	return nil
}

// NewGainProcessor creates a new gain processor
func NewGainProcessor(id string, initialGain float64) (audiocore.AudioProcessor, error) {
	if err := validateGain(initialGain); err != nil {
		return nil, err
	}

	gp := &GainProcessor{
		id: id,
		log: logger.Global().Module("audiocore").With(
			logger.String("component", "gain_processor"),
			logger.String("processor_id", id)),
	}
	gp.gain.Store(initialGain)
	gp.log.Debug("gain processor created", logger.Float64("initial_gain", initialGain))
	return gp, nil
}

// ID returns a unique identifier for this processor
func (gp *GainProcessor) ID() string {
	return gp.id
}

// Process returns a copy of input scaled by the current gain. Unity gain
// returns input itself.
func (gp *GainProcessor) Process(ctx context.Context, input *audiocore.AudioData) (*audiocore.AudioData, error) {
	if input == nil {
		return nil, audiocore.ErrNilInput
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	gain := gp.GetGain()
	if gain == 1.0 {
		return input, nil
	}

	f := input.Format
	if f.Channels <= 0 {
		return nil, errors.New(audiocore.ErrInvalidAudioFormat).
			Component(audiocore.ComponentAudioCore).
			Context("channels", f.Channels).
			Build()
	}
	frames := f.Frames(len(input.Buffer))
	chans := make([][]float64, f.Channels)
	for ch := range chans {
		chans[ch] = make([]float64, frames)
	}

	output := &audiocore.AudioData{
		Buffer:    make([]byte, len(input.Buffer)),
		Format:    input.Format,
		Timestamp: input.Timestamp,
		Duration:  input.Duration,
		SourceID:  input.SourceID,
	}
	copy(output.Buffer, input.Buffer)

	switch f.Encoding {
	case audiocore.EncodingPCMS16LE:
		dsp.DecodeS16LE(chans, input.Buffer, f.Channels, frames)
		scale(chans, gain)
		dsp.EncodeS16LE(output.Buffer, chans, f.Channels, frames)
	case audiocore.EncodingPCMF32LE:
		dsp.DecodeF32LE(chans, input.Buffer, f.Channels, frames)
		scale(chans, gain)
		dsp.EncodeF32LE(output.Buffer, chans, f.Channels, frames)
	default:
		gp.log.Error("unsupported audio encoding", logger.String("encoding", f.Encoding))
		return nil, errors.New(audiocore.ErrInvalidAudioFormat).
			Component(audiocore.ComponentAudioCore).
			Context("encoding", f.Encoding).
			Build()
	}

	return output, nil
}

// scale applies gain and hard-clips to full scale.
func scale(chans [][]float64, gain float64) {
	for _, buf := range chans {
		dsp.ApplyGain(buf, gain)
		for i, x := range buf {
			buf[i] = math.Max(-1, math.Min(x, 1))
		}
	}
}

// GetRequiredFormat returns nil as gain processor can handle any format
func (gp *GainProcessor) GetRequiredFormat() *audiocore.AudioFormat {
	return nil
}

// GetOutputFormat returns the same format as input
func (gp *GainProcessor) GetOutputFormat(inputFormat audiocore.AudioFormat) audiocore.AudioFormat {
	return inputFormat
}

// SetGain updates the gain value
func (gp *GainProcessor) SetGain(gain float64) error {
	if err := validateGain(gain); err != nil {
		return err
	}
	gp.gain.Store(gain)
	gp.log.Info("gain updated", logger.Float64("new_gain", gain))
	return nil
}

// GetGain returns the current gain value
func (gp *GainProcessor) GetGain() float64 {
	g, _ := gp.gain.Load().(float64)
	return g
}
