package dsp

// MaxChannels is the widest layout the engine processes.
const MaxChannels = 2

const (
	// dcTrackCoefficient is the one-pole smoothing of the DC estimate.
	dcTrackCoefficient = 0.99
	// dcRemoval is the share of the tracked offset subtracted per sample.
	dcRemoval = 0.5
)

// DCBlocker removes sub-audio offset per channel. It tracks the running
// mean with a one-pole low-pass and subtracts half of it per sample.
type DCBlocker struct {
	dc [MaxChannels]float64
}

// Process filters one sample on channel ch.
func (b *DCBlocker) Process(ch int, x float64) float64 {
	if !IsFinite(x) {
		return 0
	}
	dc := dcTrackCoefficient*b.dc[ch] + (1-dcTrackCoefficient)*x
	b.dc[ch] = Sanitize(dc, FeedbackBound)
	return x - dcRemoval*b.dc[ch]
}

// ProcessBlock filters buf in place on channel ch.
func (b *DCBlocker) ProcessBlock(ch int, buf []float64) {
	for i, x := range buf {
		buf[i] = b.Process(ch, x)
	}
}

// Offset returns the tracked DC estimate for channel ch.
func (b *DCBlocker) Offset(ch int) float64 {
	return b.dc[ch]
}

// Reset clears the tracked offsets.
func (b *DCBlocker) Reset() {
	b.dc = [MaxChannels]float64{}
}
