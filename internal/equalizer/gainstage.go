package equalizer

import (
	"math"

	"github.com/tphakala/audiofx/internal/dsp"
)

const (
	// makeupRecovery is the share of the reference boost restored after
	// filtering; the rest stays as headroom.
	makeupRecovery = 0.95
	// masteringRatio is the share of the mean band attenuation the
	// mastering gain gives back.
	masteringRatio = 0.5
	// MaxMasteringDB caps the mastering gain.
	MaxMasteringDB = 6.0
)

// GainStage holds the linear multipliers applied around the filter cascade.
type GainStage struct {
	Compensation float64 `json:"compensation"`
	Makeup       float64 `json:"makeup"`
	Mastering    float64 `json:"mastering"`
}

// Unity is the bypass gain stage.
var Unity = GainStage{Compensation: 1, Makeup: 1, Mastering: 1}

// MaxGain returns the largest gain in gains, or 0 for an empty slice.
func MaxGain(gains []float64) float64 {
	if len(gains) == 0 {
		return 0
	}
	maxGain := gains[0]
	for _, g := range gains[1:] {
		maxGain = math.Max(maxGain, g)
	}
	return maxGain
}

// Reference is the gain every band is measured against. It never drops
// below 0 dB, so an all-cut setting is realised as real cuts.
func Reference(gains []float64) float64 {
	return math.Max(MaxGain(gains), 0)
}

// ComputeGainStage derives compensation, makeup and mastering from band
// gains in dB. Any setting without a positive gain is a unity stage.
func ComputeGainStage(gains []float64) GainStage {
	maxGain := MaxGain(gains)
	if maxGain <= 0 || !dsp.IsFinite(maxGain) {
		return Unity
	}

	var relative [NumBands]float64
	n := copy(relative[:], gains)
	for i := range n {
		relative[i] -= maxGain
	}
	avgAttenuation := dsp.Mean(relative[:n])

	masteringDB := math.Max(0, math.Min(-avgAttenuation*masteringRatio, MaxMasteringDB))

	return GainStage{
		Compensation: dsp.DBToLinear(-maxGain),
		Makeup:       dsp.DBToLinear(makeupRecovery * maxGain),
		Mastering:    math.Max(1, math.Min(dsp.DBToLinear(masteringDB), dsp.DBToLinear(MaxMasteringDB))),
	}
}
