package host

import (
	"context"
	"encoding/binary"
	"math"
	"sync/atomic"
	"time"

	"github.com/smallnest/ringbuffer"

	"github.com/tphakala/audiofx/internal/dsp"
	"github.com/tphakala/audiofx/internal/engine"
	"github.com/tphakala/audiofx/internal/logger"
)

const (
	// monitorPeriods is how many device periods the monitor buffer holds.
	monitorPeriods    = 32
	monitorInterval   = 100 * time.Millisecond
	monitorLogEvery   = 50 // ticks between level log lines
	peakHoldDecay     = 0.9
	minMonitorSamples = 256
)

// Monitor meters the processed output off the audio thread. The device
// callback writes into a ring buffer; Run drains it and tracks the peak.
type Monitor struct {
	format engine.Format
	rb     *ringbuffer.RingBuffer
	log    logger.Logger

	overruns atomic.Uint64
	peak     atomic.Uint64 // float64 bits, linear
	samples  atomic.Uint64

	scratch []byte
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithMonitorLogger sets the monitor logger.
func WithMonitorLogger(l logger.Logger) MonitorOption {
	return func(m *Monitor) { m.log = l }
}

// NewMonitor sizes the ring buffer for periodFrames of format.
func NewMonitor(format engine.Format, periodFrames int, opts ...MonitorOption) *Monitor {
	period := max(periodFrames, minMonitorSamples) * max(format.FrameSize(), 1)
	m := &Monitor{
		format:  format,
		rb:      ringbuffer.New(period * monitorPeriods),
		log:     logger.Global().Module("host"),
		scratch: make([]byte, period*monitorPeriods),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Write copies processed output into the monitor. It never blocks; data
// that does not fit is dropped and counted as an overrun.
func (m *Monitor) Write(p []byte) {
	n, err := m.rb.Write(p)
	if err != nil || n < len(p) {
		m.overruns.Add(1)
	}
}

// Overruns returns how many writes were truncated or dropped.
func (m *Monitor) Overruns() uint64 {
	return m.overruns.Load()
}

// Peak returns the held output peak, linear full scale.
func (m *Monitor) Peak() float64 {
	return math.Float64frombits(m.peak.Load())
}

// PeakDBFS returns Peak in dBFS.
func (m *Monitor) PeakDBFS() float64 {
	return dsp.LinearToDBFS(m.Peak())
}

// Samples returns how many samples have been metered.
func (m *Monitor) Samples() uint64 {
	return m.samples.Load()
}

// Run drains the buffer every tick until ctx is done. tick, when not nil,
// receives the overruns seen since the previous tick.
func (m *Monitor) Run(ctx context.Context, tick func(overruns uint64)) {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	var lastOverruns uint64
	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		m.Drain()
		total := m.overruns.Load()
		if tick != nil {
			tick(total - lastOverruns)
		}
		lastOverruns = total

		ticks++
		if ticks%monitorLogEvery == 0 {
			m.log.Debug("Output level",
				logger.Float64("peak_dbfs", m.PeakDBFS()),
				logger.Uint64("overruns", total))
		}
	}
}

// Drain reads everything buffered and updates the peak.
func (m *Monitor) Drain() {
	peak := m.Peak() * peakHoldDecay
	var count uint64
	for {
		n, err := m.rb.Read(m.scratch)
		if n > 0 {
			p, c := m.measure(m.scratch[:n])
			peak = math.Max(peak, p)
			count += c
		}
		if err != nil || n == 0 {
			break
		}
	}
	m.peak.Store(math.Float64bits(peak))
	m.samples.Add(count)
}

// measure returns the absolute peak and sample count of whole samples in p.
func (m *Monitor) measure(p []byte) (float64, uint64) {
	bps := m.format.BytesPerSample()
	if bps <= 0 {
		return 0, 0
	}
	var peak float64
	n := len(p) / bps
	for i := range n {
		var x float64
		if m.format.Float {
			x = float64(math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:])))
		} else {
			x = dsp.Int16ToFloat(int16(binary.LittleEndian.Uint16(p[i*2:]))) //nolint:gosec // G115: PCM reinterpretation
		}
		if dsp.IsFinite(x) {
			peak = math.Max(peak, math.Abs(x))
		}
	}
	return peak, uint64(n) //nolint:gosec // G115: non-negative
}
