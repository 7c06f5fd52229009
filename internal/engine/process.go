package engine

import (
	"github.com/tphakala/audiofx/internal/dsp"
	"github.com/tphakala/audiofx/internal/equalizer"
	"github.com/tphakala/audiofx/internal/reverb"
)

// callback is the state one Process call works from.
type callback struct {
	eq           *equalizer.Snapshot
	reverb       reverb.Parameters
	reverbActive bool
}

// enter claims the audio side and validates the session. On a nil error
// the caller must call exit.
func (e *Engine) enter(frames int) error {
	if !e.busy.CompareAndSwap(false, true) {
		e.stats.rejected.Add(1)
		return ErrBusy
	}
	if !e.prepared.Load() {
		e.busy.Store(false)
		e.stats.rejected.Add(1)
		return ErrNotPrepared
	}
	if !e.current.Supported() {
		e.busy.Store(false)
		e.stats.unsupported.Add(1)
		return ErrUnsupportedFormat
	}
	if frames < 0 {
		e.busy.Store(false)
		e.stats.rejected.Add(1)
		return ErrFrameCount
	}
	return nil
}

func (e *Engine) exit() {
	e.busy.Store(false)
}

// acquire loads this callback's snapshots. It reports false when neither
// effect is active and the buffer must be left untouched.
func (e *Engine) acquire(frames int) (callback, bool) {
	e.stats.callbacks.Add(1)
	e.stats.frames.Add(uint64(frames)) //nolint:gosec // G115: frames checked non-negative

	cb := callback{eq: e.eq.Acquire()}
	cb.reverb, cb.reverbActive = e.rv.Acquire()
	if !cb.eq.Active && !cb.reverbActive {
		e.stats.bypassed.Add(1)
		return cb, false
	}
	return cb, true
}

// channels returns n scratch buffers of length frames, growing them only
// when a block is larger than any seen before.
func (e *Engine) channels(n, frames int) [][]float64 {
	for ch := range n {
		if cap(e.scratch[ch]) < frames {
			e.scratch[ch] = make([]float64, frames)
		}
		e.scratch[ch] = e.scratch[ch][:frames]
	}
	return e.scratch[:n]
}

// run applies the chain to float channel buffers.
func (e *Engine) run(cb callback, chans [][]float64) {
	for ch, buf := range chans {
		e.dc.ProcessBlock(ch, buf)
	}
	if cb.eq.Active {
		e.eq.Apply(cb.eq, chans)
	}
	if cb.reverbActive {
		for ch, buf := range chans {
			e.rv.Process(ch, buf, cb.reverb)
		}
	}
	for ch, buf := range chans {
		e.rms.ProcessBlock(ch, buf)
		dsp.SoftLimitBlock(buf, e.ceiling)
	}
}

// Process runs frames of the prepared byte format through the chain in
// place and returns buf. On any error buf is returned unmodified.
func (e *Engine) Process(buf []byte, frames int) ([]byte, error) {
	if err := e.enter(frames); err != nil {
		return buf, err
	}
	defer e.exit()

	f := e.current
	bps := f.BytesPerSample()
	if len(buf) < frames*f.FrameSize() {
		e.stats.rejected.Add(1)
		return buf, ErrFrameCount
	}
	cb, active := e.acquire(frames)
	if !active || frames == 0 {
		return buf, nil
	}

	chans := e.channels(f.Channels, frames)
	switch {
	case f.Planar && f.Float:
		for ch := range chans {
			dsp.DecodeF32LE(chans[ch:ch+1], buf[ch*frames*bps:], 1, frames)
		}
	case f.Planar:
		for ch := range chans {
			dsp.DecodeS16LE(chans[ch:ch+1], buf[ch*frames*bps:], 1, frames)
		}
	case f.Float:
		dsp.DecodeF32LE(chans, buf, f.Channels, frames)
	default:
		dsp.DecodeS16LE(chans, buf, f.Channels, frames)
	}

	e.run(cb, chans)

	switch {
	case f.Planar && f.Float:
		for ch := range chans {
			dsp.EncodeF32LE(buf[ch*frames*bps:], chans[ch:ch+1], 1, frames)
		}
	case f.Planar:
		for ch := range chans {
			dsp.EncodeS16LE(buf[ch*frames*bps:], chans[ch:ch+1], 1, frames)
		}
	case f.Float:
		dsp.EncodeF32LE(buf, chans, f.Channels, frames)
	default:
		dsp.EncodeS16LE(buf, chans, f.Channels, frames)
	}
	return buf, nil
}

// ProcessFloat32 processes interleaved float32 samples in place. The
// session must have been prepared with a float format; the Planar flag is
// only consulted by Process.
func (e *Engine) ProcessFloat32(samples []float32, frames int) error {
	if err := e.enter(frames); err != nil {
		return err
	}
	defer e.exit()

	f := e.current
	if !f.Float {
		e.stats.unsupported.Add(1)
		return ErrUnsupportedFormat
	}
	if len(samples) < frames*f.Channels {
		e.stats.rejected.Add(1)
		return ErrFrameCount
	}
	cb, active := e.acquire(frames)
	if !active || frames == 0 {
		return nil
	}
	chans := e.channels(f.Channels, frames)
	dsp.DeinterleaveFloat32(chans, samples, f.Channels, frames)
	e.run(cb, chans)
	dsp.InterleaveFloat32(samples, chans, f.Channels, frames)
	return nil
}

// ProcessInt16 processes interleaved 16-bit samples in place. The session
// must have been prepared with a 16-bit format.
func (e *Engine) ProcessInt16(samples []int16, frames int) error {
	if err := e.enter(frames); err != nil {
		return err
	}
	defer e.exit()

	f := e.current
	if f.Float {
		e.stats.unsupported.Add(1)
		return ErrUnsupportedFormat
	}
	if len(samples) < frames*f.Channels {
		e.stats.rejected.Add(1)
		return ErrFrameCount
	}
	cb, active := e.acquire(frames)
	if !active || frames == 0 {
		return nil
	}
	chans := e.channels(f.Channels, frames)
	dsp.DeinterleaveInt16(chans, samples, f.Channels, frames)
	e.run(cb, chans)
	dsp.InterleaveInt16(samples, chans, f.Channels, frames)
	return nil
}

// ProcessPlanarFloat32 processes one float32 slice per channel in place.
func (e *Engine) ProcessPlanarFloat32(planes [][]float32, frames int) error {
	if err := e.enter(frames); err != nil {
		return err
	}
	defer e.exit()

	f := e.current
	if !f.Float {
		e.stats.unsupported.Add(1)
		return ErrUnsupportedFormat
	}
	if !planesFit(planes, f.Channels, frames) {
		e.stats.rejected.Add(1)
		return ErrFrameCount
	}
	cb, active := e.acquire(frames)
	if !active || frames == 0 {
		return nil
	}
	chans := e.channels(f.Channels, frames)
	for ch, buf := range chans {
		dsp.CopyFromFloat32(buf, planes[ch][:frames])
	}
	e.run(cb, chans)
	for ch, buf := range chans {
		dsp.CopyToFloat32(planes[ch][:frames], buf)
	}
	return nil
}

// ProcessPlanarInt16 processes one 16-bit slice per channel in place.
func (e *Engine) ProcessPlanarInt16(planes [][]int16, frames int) error {
	if err := e.enter(frames); err != nil {
		return err
	}
	defer e.exit()

	f := e.current
	if f.Float {
		e.stats.unsupported.Add(1)
		return ErrUnsupportedFormat
	}
	if !planesFit(planes, f.Channels, frames) {
		e.stats.rejected.Add(1)
		return ErrFrameCount
	}
	cb, active := e.acquire(frames)
	if !active || frames == 0 {
		return nil
	}
	chans := e.channels(f.Channels, frames)
	for ch, buf := range chans {
		dsp.CopyFromInt16(buf, planes[ch][:frames])
	}
	e.run(cb, chans)
	for ch, buf := range chans {
		dsp.CopyToInt16(planes[ch][:frames], buf)
	}
	return nil
}

func planesFit[T any](planes [][]T, channels, frames int) bool {
	if len(planes) < channels {
		return false
	}
	for _, p := range planes[:channels] {
		if len(p) < frames {
			return false
		}
	}
	return true
}
