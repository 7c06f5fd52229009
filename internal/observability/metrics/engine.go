package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/audiofx/internal/engine"
)

// EngineSource is the read side of an effects engine.
type EngineSource interface {
	Stats() engine.Stats
	State() engine.State
}

// EngineMetrics exports engine counters and control state. Counters and
// gauges are read from the source at scrape time so the audio path never
// touches a Prometheus type.
type EngineMetrics struct {
	source EngineSource

	callbacksDesc    *prometheus.Desc
	framesDesc       *prometheus.Desc
	bypassedDesc     *prometheus.Desc
	unsupportedDesc  *prometheus.Desc
	rejectedDesc     *prometheus.Desc
	preparesDesc     *prometheus.Desc
	levelDesc        *prometheus.Desc
	eqActiveDesc     *prometheus.Desc
	reverbActiveDesc *prometheus.Desc
	bandGainDesc     *prometheus.Desc
	appliedGainDesc  *prometheus.Desc
	gainStageDesc    *prometheus.Desc

	ParameterChanges *prometheus.CounterVec
	operations       *prometheus.CounterVec
	durations        *prometheus.HistogramVec
	errors           *prometheus.CounterVec
}

// NewEngineMetrics creates and registers engine metrics reading from source.
func NewEngineMetrics(registry *prometheus.Registry, source EngineSource) (*EngineMetrics, error) {
	if source == nil {
		return nil, fmt.Errorf("engine metrics require a source")
	}
	m := &EngineMetrics{source: source}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register engine metrics: %w", err)
	}
	return m, nil
}

func (m *EngineMetrics) initMetrics() {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc("audiofx_engine_"+name, help, labels, nil)
	}
	m.callbacksDesc = desc("callbacks_total", "Process calls that reached the effect chain")
	m.framesDesc = desc("frames_total", "Frames processed")
	m.bypassedDesc = desc("bypassed_total", "Callbacks that left the buffer untouched")
	m.unsupportedDesc = desc("unsupported_total", "Callbacks passed through for an unsupported format")
	m.rejectedDesc = desc("rejected_total", "Calls refused while busy, unprepared or short")
	m.preparesDesc = desc("prepares_total", "Sessions started")
	m.levelDesc = desc("level_dbfs", "Output RMS level per channel in dBFS", "channel")
	m.eqActiveDesc = desc("equalizer_active", "1 when the equalizer cascade runs")
	m.reverbActiveDesc = desc("reverb_active", "1 when the reverb runs")
	m.bandGainDesc = desc("band_gain_db", "Stored band gain in dB", "band")
	m.appliedGainDesc = desc("applied_gain_db", "Gain the band filter applies in dB", "band")
	m.gainStageDesc = desc("gain_stage", "Linear gain stage multiplier", "stage")

	m.ParameterChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audiofx_parameter_changes_total",
		Help: "Parameter changes applied from control surfaces",
	}, []string{"target"})

	m.operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audiofx_operations_total",
		Help: "Operations by type and status",
	}, []string{"operation", "status"})

	m.durations = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "audiofx_operation_duration_seconds",
		Help:    "Operation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(BucketStart100us, BucketFactor2, BucketCount12),
	}, []string{"operation"})

	m.errors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audiofx_operation_errors_total",
		Help: "Operation errors by type",
	}, []string{"operation", "error_type"})
}

// RecordOperation implements Recorder.
func (m *EngineMetrics) RecordOperation(operation, status string) {
	m.operations.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *EngineMetrics) RecordDuration(operation string, seconds float64) {
	m.durations.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *EngineMetrics) RecordError(operation, errorType string) {
	m.errors.WithLabelValues(operation, errorType).Inc()
}

// RecordParameterChange counts one applied change for target.
func (m *EngineMetrics) RecordParameterChange(target string) {
	m.ParameterChanges.WithLabelValues(target).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *EngineMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		m.callbacksDesc, m.framesDesc, m.bypassedDesc, m.unsupportedDesc,
		m.rejectedDesc, m.preparesDesc, m.levelDesc, m.eqActiveDesc,
		m.reverbActiveDesc, m.bandGainDesc, m.appliedGainDesc, m.gainStageDesc,
	} {
		ch <- d
	}
	m.ParameterChanges.Describe(ch)
	m.operations.Describe(ch)
	m.durations.Describe(ch)
	m.errors.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *EngineMetrics) Collect(ch chan<- prometheus.Metric) {
	stats := m.source.Stats()
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	counter(m.callbacksDesc, stats.Callbacks)
	counter(m.framesDesc, stats.Frames)
	counter(m.bypassedDesc, stats.Bypassed)
	counter(m.unsupportedDesc, stats.Unsupported)
	counter(m.rejectedDesc, stats.Rejected)
	counter(m.preparesDesc, stats.Prepares)

	state := m.source.State()
	for channel, dbfs := range state.Levels.DBFS {
		ch <- prometheus.MustNewConstMetric(m.levelDesc, prometheus.GaugeValue, dbfs, strconv.Itoa(channel))
	}
	ch <- prometheus.MustNewConstMetric(m.eqActiveDesc, prometheus.GaugeValue, boolToFloat(state.Equalizer.Active))
	ch <- prometheus.MustNewConstMetric(m.reverbActiveDesc, prometheus.GaugeValue, boolToFloat(state.Reverb.Active))
	for i, band := range state.Equalizer.Bands {
		ch <- prometheus.MustNewConstMetric(m.bandGainDesc, prometheus.GaugeValue, band.GainDB, band.Name)
		ch <- prometheus.MustNewConstMetric(m.appliedGainDesc, prometheus.GaugeValue, state.Equalizer.AppliedGains[i], band.Name)
	}
	gs := state.Equalizer.GainStage
	ch <- prometheus.MustNewConstMetric(m.gainStageDesc, prometheus.GaugeValue, gs.Compensation, "compensation")
	ch <- prometheus.MustNewConstMetric(m.gainStageDesc, prometheus.GaugeValue, gs.Makeup, "makeup")
	ch <- prometheus.MustNewConstMetric(m.gainStageDesc, prometheus.GaugeValue, gs.Mastering, "mastering")

	m.ParameterChanges.Collect(ch)
	m.operations.Collect(ch)
	m.durations.Collect(ch)
	m.errors.Collect(ch)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
