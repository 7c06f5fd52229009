package dsp

import (
	"math"
	"sync/atomic"
)

// rmsCoefficient gives the tracker a slow attack of roughly 2000 samples.
const rmsCoefficient = 0.9995

// RMSTracker keeps a slow exponential mean-square per channel. Process runs
// on the audio thread; Level may be read from any goroutine.
type RMSTracker struct {
	meanSquare [MaxChannels]float64
	published  [MaxChannels]atomic.Uint64
}

// ProcessBlock folds buf into channel ch and publishes the new level.
func (r *RMSTracker) ProcessBlock(ch int, buf []float64) {
	ms := r.meanSquare[ch]
	for _, x := range buf {
		ms = rmsCoefficient*ms + (1-rmsCoefficient)*x*x
	}
	ms = Sanitize(ms, FeedbackBound)
	r.meanSquare[ch] = ms
	r.published[ch].Store(math.Float64bits(math.Sqrt(ms)))
}

// Level returns the last published RMS for channel ch.
func (r *RMSTracker) Level(ch int) float64 {
	if ch < 0 || ch >= MaxChannels {
		return 0
	}
	return math.Float64frombits(r.published[ch].Load())
}

// Reset clears state and published levels.
func (r *RMSTracker) Reset() {
	for ch := range MaxChannels {
		r.meanSquare[ch] = 0
		r.published[ch].Store(0)
	}
}

// LinearToDBFS converts a linear amplitude to dBFS, flooring silence at -120.
func LinearToDBFS(v float64) float64 {
	if v <= 1e-6 {
		return -120
	}
	return 20 * math.Log10(v)
}
