// Package dsp holds the small per-sample building blocks shared by the
// equalizer, reverb and engine packages, plus the sample format adapters at
// the host boundary. Everything here is allocation free once constructed and
// safe to call from an audio callback.
package dsp

import "math"

// FeedbackBound is the magnitude above which a recursive state value is
// considered diverged.
const FeedbackBound = 10.0

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Sanitize returns x, or 0 when x is non-finite or |x| exceeds bound.
func Sanitize(x, bound float64) float64 {
	if !IsFinite(x) || x > bound || x < -bound {
		return 0
	}
	return x
}
