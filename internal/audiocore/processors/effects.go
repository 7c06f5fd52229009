// Package processors provides audio processing implementations for the audiocore package
package processors

import (
	"context"
	"sync"

	"github.com/tphakala/audiofx/internal/audiocore"
	"github.com/tphakala/audiofx/internal/engine"
	"github.com/tphakala/audiofx/internal/errors"
	"github.com/tphakala/audiofx/internal/logger"
)

// Effects is the part of the engine the effects processor drives.
type Effects interface {
	Prepare(f engine.Format) error
	Process(buf []byte, frames int) ([]byte, error)
	Format() (engine.Format, bool)
}

// EffectsProcessor runs AudioData through an effects engine. The engine is
// prepared on the first block and again whenever the block format changes.
type EffectsProcessor struct {
	id      string
	effects Effects
	log     logger.Logger

	mu          sync.Mutex
	unsupported bool
}

// NewEffectsProcessor wraps effects as an AudioProcessor.
func NewEffectsProcessor(id string, effects Effects) (audiocore.AudioProcessor, error) {
	if effects == nil {
		return nil, errors.Newf("effects engine cannot be nil").
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryValidation).
			Context("processor_id", id).
			Build()
	}
	return &EffectsProcessor{
		id:      id,
		effects: effects,
		log: logger.Global().Module("audiocore").With(
			logger.String("component", "effects_processor"),
			logger.String("processor_id", id)),
	}, nil
}

// ID returns a unique identifier for this processor
func (ep *EffectsProcessor) ID() string {
	return ep.id
}

// engineFormat maps an audiocore format onto an engine format.
func engineFormat(f audiocore.AudioFormat) (engine.Format, error) {
	switch f.Encoding {
	case audiocore.EncodingPCMS16LE:
		return engine.Int16Format(f.SampleRate, f.Channels), nil
	case audiocore.EncodingPCMF32LE:
		return engine.Float32Format(f.SampleRate, f.Channels), nil
	}
	return engine.Format{}, errors.New(audiocore.ErrInvalidAudioFormat).
		Component(audiocore.ComponentAudioCore).
		Context("encoding", f.Encoding).
		Build()
}

// Process copies input and runs the copy through the engine. Blocks in a
// format the engine cannot handle are returned unchanged.
func (ep *EffectsProcessor) Process(ctx context.Context, input *audiocore.AudioData) (*audiocore.AudioData, error) {
	if input == nil {
		return nil, audiocore.ErrNilInput
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	want, err := engineFormat(input.Format)
	if err != nil {
		return nil, err
	}

	ep.mu.Lock()
	defer ep.mu.Unlock()

	if current, ok := ep.effects.Format(); !ok || current != want {
		err := ep.effects.Prepare(want)
		switch {
		case errors.Is(err, engine.ErrUnsupportedFormat):
			if !ep.unsupported {
				ep.log.Warn("format not supported by engine, passing audio through",
					logger.String("format", want.String()))
			}
			ep.unsupported = true
			return input, nil
		case err != nil:
			return nil, err
		}
		ep.unsupported = false
	}

	output := &audiocore.AudioData{
		Buffer:    make([]byte, len(input.Buffer)),
		Format:    input.Format,
		Timestamp: input.Timestamp,
		Duration:  input.Duration,
		SourceID:  input.SourceID,
	}
	copy(output.Buffer, input.Buffer)

	frames := input.Format.Frames(len(input.Buffer))
	if _, err := ep.effects.Process(output.Buffer, frames); err != nil {
		if errors.Is(err, engine.ErrUnsupportedFormat) {
			return input, nil
		}
		return nil, errors.New(err).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryProcessing).
			Context("processor_id", ep.id).
			Build()
	}
	return output, nil
}

// GetRequiredFormat returns nil; the engine adapts to 16-bit and float PCM.
func (ep *EffectsProcessor) GetRequiredFormat() *audiocore.AudioFormat {
	return nil
}

// GetOutputFormat returns the same format as input
func (ep *EffectsProcessor) GetOutputFormat(inputFormat audiocore.AudioFormat) audiocore.AudioFormat {
	return inputFormat
}
