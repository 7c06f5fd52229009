package equalizer

// NumBands is the fixed number of equalizer bands.
const NumBands = 6

const (
	// MaxBandGain bounds the gain a band may store, in dB.
	MaxBandGain = 20.0
	// ActiveThreshold is the deadband below which a band counts as flat.
	ActiveThreshold = 0.1
)

// Band describes one equalizer band. Only GainDB changes at runtime.
type Band struct {
	Name      string  `json:"name" yaml:"name"`
	Frequency float64 `json:"frequency" yaml:"frequency"`
	Q         float64 `json:"q" yaml:"q"`
	GainDB    float64 `json:"gain_db" yaml:"gain_db"`
}

// DefaultBands returns the fixed band layout at 0 dB.
func DefaultBands() [NumBands]Band {
	return [NumBands]Band{
		{Name: "Sub", Frequency: 60, Q: 0.7},
		{Name: "Bass", Frequency: 150, Q: 0.8},
		{Name: "Low Mid", Frequency: 400, Q: 1.0},
		{Name: "Mid", Frequency: 1000, Q: 1.0},
		{Name: "Presence", Frequency: 2400, Q: 0.9},
		{Name: "Air", Frequency: 15000, Q: 0.7},
	}
}

// ClampIndex maps any index onto a valid band.
func ClampIndex(index int) int {
	switch {
	case index < 0:
		return 0
	case index >= NumBands:
		return NumBands - 1
	}
	return index
}
