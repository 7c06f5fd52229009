package engine

import (
	"sync/atomic"

	"github.com/tphakala/audiofx/internal/dsp"
	"github.com/tphakala/audiofx/internal/equalizer"
	"github.com/tphakala/audiofx/internal/reverb"
)

type counters struct {
	callbacks   atomic.Uint64
	frames      atomic.Uint64
	bypassed    atomic.Uint64
	unsupported atomic.Uint64
	rejected    atomic.Uint64
	prepares    atomic.Uint64
}

// Stats are monotonically increasing processing counters.
type Stats struct {
	// Callbacks counts Process calls that reached the effect chain.
	Callbacks uint64 `json:"callbacks"`
	Frames    uint64 `json:"frames"`
	// Bypassed counts callbacks that left the buffer untouched.
	Bypassed    uint64 `json:"bypassed"`
	Unsupported uint64 `json:"unsupported"`
	// Rejected counts calls refused for busy, unprepared or short buffers.
	Rejected uint64 `json:"rejected"`
	Prepares uint64 `json:"prepares"`
}

// Stats returns a copy of the counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Callbacks:   e.stats.callbacks.Load(),
		Frames:      e.stats.frames.Load(),
		Bypassed:    e.stats.bypassed.Load(),
		Unsupported: e.stats.unsupported.Load(),
		Rejected:    e.stats.rejected.Load(),
		Prepares:    e.stats.prepares.Load(),
	}
}

// Levels is the slow RMS of the last processed block per channel.
type Levels struct {
	RMS  [dsp.MaxChannels]float64 `json:"rms"`
	DBFS [dsp.MaxChannels]float64 `json:"dbfs"`
}

// Levels returns the published loudness per channel.
func (e *Engine) Levels() Levels {
	var l Levels
	for ch := range dsp.MaxChannels {
		l.RMS[ch] = e.rms.Level(ch)
		l.DBFS[ch] = dsp.LinearToDBFS(l.RMS[ch])
	}
	return l
}

// EqualizerState is the control-plane view of the equalizer.
type EqualizerState struct {
	Enabled      bool                               `json:"enabled"`
	Active       bool                               `json:"active"`
	SampleRate   float64                            `json:"sample_rate"`
	Bands        [equalizer.NumBands]equalizer.Band `json:"bands"`
	AppliedGains [equalizer.NumBands]float64        `json:"applied_gains_db"`
	GainStage    equalizer.GainStage                `json:"gain_stage"`
}

// ReverbState is the control-plane view of the reverb.
type ReverbState struct {
	Enabled    bool              `json:"enabled"`
	Active     bool              `json:"active"`
	Parameters reverb.Parameters `json:"parameters"`
	Feedback   float64           `json:"feedback"`
	Damping    float64           `json:"damping"`
}

// State is a snapshot of everything a control surface shows.
type State struct {
	SessionID string         `json:"session_id,omitempty"`
	Prepared  bool           `json:"prepared"`
	Format    *Format        `json:"format,omitempty"`
	Equalizer EqualizerState `json:"equalizer"`
	Reverb    ReverbState    `json:"reverb"`
	Levels    Levels         `json:"levels"`
}

// State returns the current control-plane state.
func (e *Engine) State() State {
	p := e.rv.Parameters()
	s := State{
		SessionID: e.SessionID(),
		Prepared:  e.prepared.Load(),
		Equalizer: EqualizerState{
			Enabled:      e.eq.Enabled(),
			Active:       e.eq.Snapshot().Active,
			SampleRate:   e.eq.SampleRate(),
			Bands:        e.eq.Bands(),
			AppliedGains: e.eq.AppliedGains(),
			GainStage:    e.eq.GainStage(),
		},
		Reverb: ReverbState{
			Enabled:    e.rv.Enabled(),
			Active:     e.rv.Active(),
			Parameters: p,
			Feedback:   p.Feedback(),
			Damping:    p.Damping(),
		},
		Levels: e.Levels(),
	}
	if f, ok := e.Format(); ok {
		s.Format = &f
	}
	return s
}
