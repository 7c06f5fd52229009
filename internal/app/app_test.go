package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audiofx/internal/conf"
)

func testSettings() *conf.Settings {
	s := &conf.Settings{}
	s.Engine.SampleRate = 44100
	s.Limiter.Int16Ceiling = 0.5
	s.Limiter.FloatCeiling = 0.9
	s.Equalizer.Enabled = true
	s.Equalizer.Gains = []float64{0, 0, -3, 0, 0, 0}
	s.Reverb.Mix = 20
	s.Reverb.RoomSize = 0.5
	s.Reverb.DecayTime = 2
	return s
}

func TestNew_AppliesSettings(t *testing.T) {
	t.Parallel()

	a, err := New(testSettings())
	require.NoError(t, err)

	st := a.Control.State()
	assert.InDelta(t, 44100.0, st.Equalizer.SampleRate, 0)
	assert.InDelta(t, -3.0, st.Equalizer.Bands[2].GainDB, 0)
	assert.False(t, st.Reverb.Enabled)
	assert.NotNil(t, a.Metrics.Registry())
	assert.NotEmpty(t, a.Control.Presets())
}

func TestNew_LoadsPresetFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "presets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`presets:
  - name: telephone
    gains: [-20, -10, 0, 4, -10, -20]
`), 0o600))

	s := testSettings()
	s.Presets.File = path
	a, err := New(s)
	require.NoError(t, err)

	st, err := a.Control.ApplyPreset("telephone")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, st.Equalizer.Bands[3].GainDB, 0)
}

func TestNew_RejectsBadSampleRate(t *testing.T) {
	t.Parallel()

	s := testSettings()
	s.Engine.SampleRate = 100
	_, err := New(s)
	require.Error(t, err)
}
