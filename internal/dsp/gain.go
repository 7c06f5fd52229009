package dsp

import (
	"math"

	"github.com/tphakala/simd/f64"
)

// DBToLinear converts decibels to a linear amplitude factor.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// ApplyGain scales buf in place. Unity gain leaves buf untouched.
func ApplyGain(buf []float64, gain float64) {
	if gain == 1 || len(buf) == 0 {
		return
	}
	f64.Scale(buf, buf, gain)
}

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return f64.Sum(xs) / float64(len(xs))
}
