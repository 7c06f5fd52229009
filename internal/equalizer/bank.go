package equalizer

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/tphakala/audiofx/internal/dsp"
	"github.com/tphakala/audiofx/internal/errors"
)

const (
	// DefaultSampleRate is used until the host reports the real rate.
	DefaultSampleRate = 48000.0
	MinSampleRate     = 8000.0
	MaxSampleRate     = 384000.0

	componentEqualizer = "equalizer"
)

// Snapshot is an immutable equalizer configuration handed from the control
// side to the audio side.
type Snapshot struct {
	Coefficients [NumBands]Coefficients
	Gain         GainStage
	// Active is true when the bank is enabled and any band is outside the
	// deadband. Consumers skip the whole cascade when it is false.
	Active bool
}

// Bank is the six-band cascade for up to two channels.
type Bank struct {
	// control side, guarded by mu
	mu         sync.Mutex
	bands      [NumBands]Band
	applied    [NumBands]float64
	sampleRate float64
	enabled    bool
	designer   *designer

	snapshot  atomic.Pointer[Snapshot]
	hasActive atomic.Bool

	// audio side, touched only by Acquire, Apply and ResetState
	stages  [NumBands]Stage
	current *Snapshot
}

// NewBank returns an enabled, flat bank at DefaultSampleRate.
func NewBank() *Bank {
	b := &Bank{
		bands:      DefaultBands(),
		sampleRate: DefaultSampleRate,
		enabled:    true,
		designer:   newDesigner(),
	}
	for i := range b.stages {
		b.stages[i].coeffs = Identity
	}
	b.mu.Lock()
	b.rebuildLocked()
	b.mu.Unlock()
	return b
}

// Configure sets the sample rate and recomputes every stage.
func (b *Bank) Configure(sampleRate float64) error {
	if !dsp.IsFinite(sampleRate) || sampleRate < MinSampleRate || sampleRate > MaxSampleRate {
		return errors.Newf("sample rate %v out of range", sampleRate).
			Component(componentEqualizer).
			Category(errors.CategoryValidation).
			Context("sample_rate", sampleRate).
			Build()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sampleRate = sampleRate
	b.rebuildLocked()
	return nil
}

// UpdateAllFilters recomputes every stage from the stored band state.
func (b *Bank) UpdateAllFilters() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rebuildLocked()
}

// SetBandGain stores gainDB on the band at index and republishes the bank.
// The index is clamped onto a valid band and the gain to +/-MaxBandGain.
func (b *Bank) SetBandGain(index int, gainDB float64) error {
	if !dsp.IsFinite(gainDB) {
		return errors.Newf("band gain must be finite").
			Component(componentEqualizer).
			Category(errors.CategoryValidation).
			Context("band", index).
			Build()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bands[ClampIndex(index)].GainDB = clampBandGain(gainDB)
	b.rebuildLocked()
	return nil
}

// SetBandGains replaces every band gain in one publication.
func (b *Bank) SetBandGains(gains [NumBands]float64) error {
	for i, g := range gains {
		if !dsp.IsFinite(g) {
			return errors.Newf("band gain must be finite").
				Component(componentEqualizer).
				Category(errors.CategoryValidation).
				Context("band", i).
				Build()
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, g := range gains {
		b.bands[i].GainDB = clampBandGain(g)
	}
	b.rebuildLocked()
	return nil
}

// Enable restores filtering from the stored band gains.
func (b *Bank) Enable() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = true
	b.rebuildLocked()
}

// Disable sets every stage to 0 dB and the gain stage to unity. Band gains
// are kept so a later Enable restores them.
func (b *Bank) Disable() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = false
	b.rebuildLocked()
}

// ResetAllBands zeroes every band gain and the gain stage.
func (b *Bank) ResetAllBands() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.bands {
		b.bands[i].GainDB = 0
	}
	b.rebuildLocked()
}

// Enabled reports whether the bank is enabled.
func (b *Bank) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// HasActiveEQ reports whether any stored band gain is outside the deadband.
func (b *Bank) HasActiveEQ() bool {
	return b.hasActive.Load()
}

// SampleRate returns the configured sample rate.
func (b *Bank) SampleRate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sampleRate
}

// Bands returns a copy of the band table.
func (b *Bank) Bands() [NumBands]Band {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bands
}

// AppliedGains returns the gain each stage actually filters with. Every
// value is <= 0 dB; all are 0 while the bank is disabled.
func (b *Bank) AppliedGains() [NumBands]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.applied
}

// Snapshot returns the currently published snapshot.
func (b *Bank) Snapshot() *Snapshot {
	return b.snapshot.Load()
}

// GainStage returns the published gain stage.
func (b *Bank) GainStage() GainStage {
	return b.snapshot.Load().Gain
}

func clampBandGain(g float64) float64 {
	return math.Max(-MaxBandGain, math.Min(g, MaxBandGain))
}

// rebuildLocked derives and publishes a new snapshot. Caller holds mu.
func (b *Bank) rebuildLocked() {
	var gains [NumBands]float64
	active := false
	for i, band := range b.bands {
		gains[i] = band.GainDB
		if math.Abs(band.GainDB) > ActiveThreshold {
			active = true
		}
	}
	b.hasActive.Store(active)

	snap := &Snapshot{Gain: Unity}
	if !b.enabled {
		for i := range snap.Coefficients {
			snap.Coefficients[i] = Identity
			b.applied[i] = 0
		}
		b.snapshot.Store(snap)
		return
	}

	ref := Reference(gains[:])
	for i, band := range b.bands {
		applied := band.GainDB - ref
		b.applied[i] = applied
		snap.Coefficients[i] = b.designer.design(band, b.sampleRate, applied)
	}
	snap.Gain = ComputeGainStage(gains[:])
	snap.Active = active
	b.snapshot.Store(snap)
}

// Acquire loads the published snapshot and installs its coefficients in
// the audio-side stages. Filter memory survives coefficient changes; it is
// cleared only when the bank turns active again after a bypass. Audio
// thread only.
func (b *Bank) Acquire() *Snapshot {
	snap := b.snapshot.Load()
	if snap == b.current {
		return snap
	}
	if snap.Active && (b.current == nil || !b.current.Active) {
		for i := range b.stages {
			b.stages[i].Reset()
		}
	}
	for i := range b.stages {
		b.stages[i].SetCoefficients(snap.Coefficients[i])
	}
	b.current = snap
	return snap
}

// Apply runs compensation, the cascade, makeup and mastering over each
// channel buffer. snap must come from Acquire. Audio thread only.
func (b *Bank) Apply(snap *Snapshot, chans [][]float64) {
	for ch, buf := range chans {
		dsp.ApplyGain(buf, snap.Gain.Compensation)
		for i := range b.stages {
			b.stages[i].ProcessBlock(ch, buf)
		}
		dsp.ApplyGain(buf, snap.Gain.Makeup)
		dsp.ApplyGain(buf, snap.Gain.Mastering)
	}
}

// ResetState clears filter memory. It must not run concurrently with
// Acquire or Apply.
func (b *Bank) ResetState() {
	for i := range b.stages {
		b.stages[i].Reset()
	}
	b.current = nil
}
