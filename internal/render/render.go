// Package render runs audio files through the effects engine offline.
package render

import (
	"context"
	"io"
	"time"

	"github.com/tphakala/audiofx/internal/audiocore"
	"github.com/tphakala/audiofx/internal/audiocore/processors"
	"github.com/tphakala/audiofx/internal/audiofile"
	"github.com/tphakala/audiofx/internal/dsp"
	"github.com/tphakala/audiofx/internal/errors"
	"github.com/tphakala/audiofx/internal/logger"
	"github.com/tphakala/audiofx/internal/observability/metrics"
)

const (
	componentRender = "render"

	DefaultBlockFrames = 1024
	MaxTail            = 30 * time.Second
)

// Source yields pcm_f32le blocks; io.EOF ends the stream.
type Source interface {
	Format() audiocore.AudioFormat
	ReadBlock(frames int) (*audiocore.AudioData, error)
}

// Sink consumes processed blocks.
type Sink interface {
	WriteData(data *audiocore.AudioData) error
}

// Summary describes a finished render.
type Summary struct {
	Blocks      int           `json:"blocks"`
	Frames      int64         `json:"frames"`
	TailFrames  int64         `json:"tail_frames"`
	Elapsed     time.Duration `json:"elapsed"`
	AudioLength time.Duration `json:"audio_length"`
}

// Speed returns how many times faster than real time the render ran.
func (s Summary) Speed() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return s.AudioLength.Seconds() / s.Elapsed.Seconds()
}

// Renderer pushes blocks through an audiocore chain: an optional input
// trim followed by the effects engine.
type Renderer struct {
	chain       audiocore.ProcessorChain
	recorder    metrics.Recorder
	log         logger.Logger
	blockFrames int
	tail        time.Duration
	inputGain   float64
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithBlockFrames sets the block size in frames.
func WithBlockFrames(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.blockFrames = n
		}
	}
}

// WithTail renders d of silence after the input so reverb can decay.
func WithTail(d time.Duration) Option {
	return func(r *Renderer) { r.tail = min(max(d, 0), MaxTail) }
}

// WithInputGainDB trims the input before the engine.
func WithInputGainDB(db float64) Option {
	return func(r *Renderer) { r.inputGain = dsp.DBToLinear(db) }
}

// WithRecorder records per-block timings.
func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Renderer) { r.recorder = rec }
}

// WithLogger sets the renderer logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Renderer) { r.log = l }
}

// New builds a renderer around effects.
func New(effects processors.Effects, opts ...Option) (*Renderer, error) {
	r := &Renderer{
		recorder:    metrics.NopRecorder{},
		log:         logger.Global().Module("render"),
		blockFrames: DefaultBlockFrames,
		inputGain:   1,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.chain = audiocore.NewProcessorChainWithLogger(r.log)
	if r.inputGain != 1 {
		gain, err := processors.NewGainProcessor("input-trim", r.inputGain)
		if err != nil {
			return nil, err
		}
		if err := r.chain.AddProcessor(gain); err != nil {
			return nil, err
		}
	}
	fx, err := processors.NewEffectsProcessor("effects", effects)
	if err != nil {
		return nil, err
	}
	if err := r.chain.AddProcessor(fx); err != nil {
		return nil, err
	}
	return r, nil
}

// Render processes src into dst until src is drained, then renders the
// tail. Cancelling ctx stops between blocks.
func (r *Renderer) Render(ctx context.Context, src Source, dst Sink) (Summary, error) {
	var sum Summary
	start := time.Now()
	format := src.Format()

	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		t := time.Now()
		block, err := src.ReadBlock(r.blockFrames)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			r.recorder.RecordError(metrics.OpDecode, "read")
			return sum, err
		}
		r.recorder.RecordDuration(metrics.OpDecode, time.Since(t).Seconds())

		if err := r.processBlock(ctx, block, dst); err != nil {
			return sum, err
		}
		sum.Blocks++
		sum.Frames += int64(format.Frames(len(block.Buffer)))
	}

	tailFrames := int64(r.tail.Seconds() * float64(format.SampleRate))
	for sum.TailFrames < tailFrames {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		n := int(min(int64(r.blockFrames), tailFrames-sum.TailFrames))
		block := &audiocore.AudioData{
			Buffer: make([]byte, n*format.FrameSize()),
			Format: format,
		}
		if err := r.processBlock(ctx, block, dst); err != nil {
			return sum, err
		}
		sum.Blocks++
		sum.TailFrames += int64(n)
	}

	sum.Elapsed = time.Since(start)
	if format.SampleRate > 0 {
		sum.AudioLength = time.Duration(sum.Frames+sum.TailFrames) * time.Second / time.Duration(format.SampleRate)
	}
	r.log.Info("render finished",
		logger.Int("blocks", sum.Blocks),
		logger.Int64("frames", sum.Frames),
		logger.Duration("elapsed", sum.Elapsed),
		logger.Float64("speed", sum.Speed()))
	return sum, nil
}

func (r *Renderer) processBlock(ctx context.Context, block *audiocore.AudioData, dst Sink) error {
	t := time.Now()
	out, err := r.chain.Process(ctx, block)
	if err != nil {
		r.recorder.RecordOperation(metrics.OpRenderBlock, metrics.StatusError)
		r.recorder.RecordError(metrics.OpRenderBlock, "process")
		return err
	}
	r.recorder.RecordOperation(metrics.OpRenderBlock, metrics.StatusSuccess)
	r.recorder.RecordDuration(metrics.OpRenderBlock, time.Since(t).Seconds())

	t = time.Now()
	if err := dst.WriteData(out); err != nil {
		r.recorder.RecordError(metrics.OpEncode, "write")
		return errors.New(err).
			Component(componentRender).
			Category(errors.CategoryFileIO).
			Build()
	}
	r.recorder.RecordDuration(metrics.OpEncode, time.Since(t).Seconds())
	return nil
}

var (
	_ Source = (*audiofile.Reader)(nil)
	_ Sink   = (*audiofile.Writer)(nil)
)
