// Package reverb implements a Freeverb-derived stereo reverb: a pre-delay,
// eight parallel damped combs and four series all-passes per channel.
//
// Parameters and the enabled flag are published atomically by the control
// side. Buffer clears requested by Disable and Reset are counted in a
// generation number and carried out by the audio side in Acquire, so ring
// buffers are only ever touched by the goroutine that runs Process.
package reverb

import (
	"math"
	"sync/atomic"

	"github.com/tphakala/audiofx/internal/dsp"
	"github.com/tphakala/audiofx/internal/errors"
)

const (
	componentReverb = "reverb"

	// TuningSampleRate is the rate the delay tunings are expressed at.
	TuningSampleRate = 44100.0
	MinSampleRate    = 8000.0
	MaxSampleRate    = 384000.0

	numCombs     = 8
	numAllpasses = 4

	// stereoSpread offsets every right-channel line.
	stereoSpread    = 23
	preDelaySeconds = 0.020
)

var (
	combTuning    = [numCombs]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	allpassTuning = [numAllpasses]int{556, 441, 341, 225}
)

type channelState struct {
	preDelay  delayLine
	combs     [numCombs]comb
	allpasses [numAllpasses]allpass
}

func (c *channelState) lines() []*delayLine {
	out := make([]*delayLine, 0, 1+numCombs+numAllpasses)
	out = append(out, &c.preDelay)
	for i := range c.combs {
		out = append(out, &c.combs[i].line)
	}
	for i := range c.allpasses {
		out = append(out, &c.allpasses[i].line)
	}
	return out
}

func (c *channelState) clear() {
	c.preDelay.clear()
	for i := range c.combs {
		c.combs[i].clear()
	}
	for i := range c.allpasses {
		c.allpasses[i].clear()
	}
}

// Engine is a stereo reverb. Setters are safe from any goroutine; Acquire,
// Process, Prepare and OnSessionReset belong to the audio side.
type Engine struct {
	params   atomic.Pointer[Parameters]
	enabled  atomic.Bool
	clearGen atomic.Uint64

	// audio side
	seenGen    uint64
	sampleRate float64
	channels   [dsp.MaxChannels]channelState
}

// New returns a disabled reverb sized for TuningSampleRate.
func New() *Engine {
	e := &Engine{}
	p := DefaultParameters()
	e.params.Store(&p)
	e.build(TuningSampleRate)
	return e
}

// scaledLength converts a tuning at TuningSampleRate into samples at sr.
func scaledLength(tuning int, sr float64) int {
	return int(math.Round(float64(tuning) * sr / TuningSampleRate))
}

func (e *Engine) build(sr float64) {
	e.sampleRate = sr
	for ch := range e.channels {
		spread := ch * stereoSpread
		state := &e.channels[ch]
		state.preDelay.resize(int(math.Round(preDelaySeconds * sr)))
		for i := range state.combs {
			state.combs[i].line.resize(scaledLength(combTuning[i]+spread, sr))
			state.combs[i].store = 0
		}
		for i := range state.allpasses {
			state.allpasses[i].line.resize(scaledLength(allpassTuning[i]+spread, sr))
		}
	}
}

// Prepare sizes every ring buffer for sampleRate and clears it. It must
// not run concurrently with Process.
func (e *Engine) Prepare(sampleRate float64) error {
	if !dsp.IsFinite(sampleRate) || sampleRate < MinSampleRate || sampleRate > MaxSampleRate {
		return errors.Newf("sample rate %v out of range", sampleRate).
			Component(componentReverb).
			Category(errors.CategoryValidation).
			Context("sample_rate", sampleRate).
			Build()
	}
	e.build(sampleRate)
	e.seenGen = e.clearGen.Load()
	return nil
}

// OnSessionReset validates every ring buffer, restoring corrupt ones to
// their designed length, and zeroes all of them. It returns how many
// buffers had to be rebuilt. It must not run concurrently with Process.
func (e *Engine) OnSessionReset() int {
	rebuilt := 0
	for ch := range e.channels {
		for _, line := range e.channels[ch].lines() {
			if line.validate() {
				rebuilt++
			}
		}
		e.channels[ch].clear()
	}
	e.seenGen = e.clearGen.Load()
	return rebuilt
}

// SampleRate returns the rate the buffers are sized for.
func (e *Engine) SampleRate() float64 {
	return e.sampleRate
}

// Enable turns the reverb on. Buffers keep their content.
func (e *Engine) Enable() {
	e.enabled.Store(true)
}

// Disable turns the reverb off and requests a buffer clear.
func (e *Engine) Disable() {
	e.enabled.Store(false)
	e.clearGen.Add(1)
}

// Enabled reports the enabled flag.
func (e *Engine) Enabled() bool {
	return e.enabled.Load()
}

// SetParameters validates, clamps and publishes new parameters.
func (e *Engine) SetParameters(mix, roomSize, decayTime float64) error {
	p := Parameters{Mix: mix, RoomSize: roomSize, DecayTime: decayTime}
	if err := p.Validate(); err != nil {
		return err
	}
	p = p.Clamped()
	e.params.Store(&p)
	return nil
}

// Parameters returns the published parameters.
func (e *Engine) Parameters() Parameters {
	return *e.params.Load()
}

// Reset restores default parameters and requests a buffer clear. The
// enabled flag is unchanged.
func (e *Engine) Reset() {
	p := DefaultParameters()
	e.params.Store(&p)
	e.clearGen.Add(1)
}

// Active reports whether Process would change the signal.
func (e *Engine) Active() bool {
	return e.enabled.Load() && e.params.Load().Active()
}

// Acquire applies any pending buffer clear and returns the parameters for
// this callback and whether the reverb should run. Audio side only.
func (e *Engine) Acquire() (Parameters, bool) {
	if g := e.clearGen.Load(); g != e.seenGen {
		for ch := range e.channels {
			e.channels[ch].clear()
		}
		e.seenGen = g
	}
	p := *e.params.Load()
	return p, e.enabled.Load() && p.Active()
}

// Process runs buf through channel ch in place with parameters p from
// Acquire. Audio side only.
func (e *Engine) Process(ch int, buf []float64, p Parameters) {
	state := &e.channels[ch]
	feedback := p.Feedback()
	damping := p.Damping()
	wet := p.WetGain()
	dry := p.DryGain()

	for i, x := range buf {
		if !dsp.IsFinite(x) {
			x = 0
		}
		pre := state.preDelay.tap()
		state.preDelay.push(dsp.Sanitize(x, dsp.FeedbackBound))

		var sum float64
		for c := range state.combs {
			sum += state.combs[c].process(pre, feedback, damping)
		}
		out := sum / numCombs
		for a := range state.allpasses {
			out = state.allpasses[a].process(out)
		}
		buf[i] = x*dry + out*wet
	}
}
