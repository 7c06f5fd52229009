package dsp

import "math"

const (
	// CeilingInt16 leaves codec headroom on the 16-bit path.
	CeilingInt16 = 0.5
	// CeilingFloat is the pre-limiting ceiling on the float path.
	CeilingFloat = 0.9

	kneeRatio = 0.8
)

// SoftLimit passes |x| below 80% of ceiling unchanged and bends everything
// above it toward ceiling with a tanh curve. The output never exceeds
// ceiling in magnitude and non-finite input returns 0.
func SoftLimit(x, ceiling float64) float64 {
	if !IsFinite(x) {
		return 0
	}
	knee := ceiling * kneeRatio
	mag := math.Abs(x)
	if mag <= knee {
		return x
	}
	span := ceiling - knee
	limited := knee + span*math.Tanh((mag-knee)/span)
	if limited > ceiling {
		limited = ceiling
	}
	return math.Copysign(limited, x)
}

// SoftLimitBlock limits buf in place.
func SoftLimitBlock(buf []float64, ceiling float64) {
	for i, x := range buf {
		buf[i] = SoftLimit(x, ceiling)
	}
}
