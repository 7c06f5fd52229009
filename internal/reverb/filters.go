package reverb

import "github.com/tphakala/audiofx/internal/dsp"

const allpassFeedback = 0.5

// comb is a feedback comb with a one-pole low-pass in the loop.
type comb struct {
	line  delayLine
	store float64
}

// process returns the damped delayed sample and feeds in + damped*feedback
// back into the line.
func (c *comb) process(in, feedback, damping float64) float64 {
	delayed := c.line.tap()
	c.store = dsp.Sanitize(delayed*damping+c.store*(1-damping), dsp.FeedbackBound)
	c.line.push(dsp.Sanitize(in+c.store*feedback, dsp.FeedbackBound))
	return c.store
}

func (c *comb) clear() {
	c.line.clear()
	c.store = 0
}

// allpass is a Schroeder all-pass diffuser.
type allpass struct {
	line delayLine
}

func (a *allpass) process(in float64) float64 {
	delayed := a.line.tap()
	a.line.push(dsp.Sanitize(in+delayed*allpassFeedback, dsp.FeedbackBound))
	return -in + delayed
}

func (a *allpass) clear() {
	a.line.clear()
}
