package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audiofx/internal/conf"
	"github.com/tphakala/audiofx/internal/control"
	"github.com/tphakala/audiofx/internal/engine"
	"github.com/tphakala/audiofx/internal/errors"
	"github.com/tphakala/audiofx/internal/logger"
)

func setupTestController(t *testing.T) (*echo.Echo, *Controller) {
	t.Helper()
	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
	svc := control.New(engine.New(engine.WithLogger(log)), control.WithLogger(log))
	e := echo.New()
	c := New(e.Group("/api/v1"), svc, WithLogger(log))
	return e, c
}

func doRequest(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestGetEngine(t *testing.T) {
	t.Parallel()
	e, _ := setupTestController(t)

	rec := doRequest(t, e, http.MethodGet, "/api/v1/engine", "")
	require.Equal(t, http.StatusOK, rec.Code)

	state := decode[engine.State](t, rec)
	assert.False(t, state.Prepared)
	assert.True(t, state.Equalizer.Enabled)
	assert.Equal(t, "Sub", state.Equalizer.Bands[0].Name)
	assert.InDelta(t, 1.0, state.Equalizer.GainStage.Makeup, 0)
}

func TestSetBandGain(t *testing.T) {
	t.Parallel()
	e, _ := setupTestController(t)

	rec := doRequest(t, e, http.MethodPut, "/api/v1/equalizer/bands/0", `{"gain_db": 10}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	eq := decode[engine.EqualizerState](t, rec)
	assert.InDelta(t, 10.0, eq.Bands[0].GainDB, 0)
	assert.InDelta(t, 0.0, eq.AppliedGains[0], 1e-12)
	assert.InDelta(t, -10.0, eq.AppliedGains[3], 1e-12)
	assert.InDelta(t, 0.3162, eq.GainStage.Compensation, 1e-4)
	assert.True(t, eq.Active)
}

func TestSetBandGain_Errors(t *testing.T) {
	t.Parallel()
	e, _ := setupTestController(t)

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"index not a number", "/api/v1/equalizer/bands/x", `{"gain_db": 1}`, http.StatusBadRequest},
		{"index out of range", "/api/v1/equalizer/bands/6", `{"gain_db": 1}`, http.StatusNotFound},
		{"missing gain", "/api/v1/equalizer/bands/1", `{}`, http.StatusBadRequest},
		{"malformed body", "/api/v1/equalizer/bands/1", `{"gain_db":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, e, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.code, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.Len(t, resp.CorrelationID, 8)
		})
	}
}

func TestSetBandGains(t *testing.T) {
	t.Parallel()
	e, _ := setupTestController(t)

	rec := doRequest(t, e, http.MethodPut, "/api/v1/equalizer/bands", `{"gains": [1, 2, 3, 4, 5, 6]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	eq := decode[engine.EqualizerState](t, rec)
	assert.InDelta(t, 6.0, eq.Bands[5].GainDB, 0)
	assert.InDelta(t, -5.0, eq.AppliedGains[0], 1e-12)

	rec = doRequest(t, e, http.MethodPut, "/api/v1/equalizer/bands", `{"gains": [1, 2]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEqualizerToggles(t *testing.T) {
	t.Parallel()
	e, _ := setupTestController(t)

	doRequest(t, e, http.MethodPut, "/api/v1/equalizer/bands/2", `{"gain_db": -6}`)

	rec := doRequest(t, e, http.MethodPost, "/api/v1/equalizer/disable", "")
	require.Equal(t, http.StatusOK, rec.Code)
	eq := decode[engine.EqualizerState](t, rec)
	assert.False(t, eq.Enabled)
	assert.False(t, eq.Active)
	assert.InDelta(t, -6.0, eq.Bands[2].GainDB, 0)

	rec = doRequest(t, e, http.MethodPost, "/api/v1/equalizer/enable", "")
	eq = decode[engine.EqualizerState](t, rec)
	assert.True(t, eq.Active)

	rec = doRequest(t, e, http.MethodPost, "/api/v1/equalizer/reset", "")
	eq = decode[engine.EqualizerState](t, rec)
	assert.False(t, eq.Active)
	assert.InDelta(t, 0.0, eq.Bands[2].GainDB, 0)

	rec = doRequest(t, e, http.MethodGet, "/api/v1/equalizer", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSetReverb(t *testing.T) {
	t.Parallel()
	e, _ := setupTestController(t)

	rec := doRequest(t, e, http.MethodPut, "/api/v1/reverb", `{"mix": 50, "enabled": true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rv := decode[engine.ReverbState](t, rec)
	assert.True(t, rv.Enabled)
	assert.True(t, rv.Active)
	assert.InDelta(t, 50.0, rv.Parameters.Mix, 0)
	assert.InDelta(t, 0.5, rv.Parameters.RoomSize, 0, "omitted fields are kept")

	rec = doRequest(t, e, http.MethodPut, "/api/v1/reverb", `{"room_size": 1, "decay_time": 10}`)
	rv = decode[engine.ReverbState](t, rec)
	assert.InDelta(t, 50.0, rv.Parameters.Mix, 0)
	assert.InDelta(t, 0.95, rv.Feedback, 1e-9)
	assert.InDelta(t, 0.6, rv.Damping, 1e-9)

	// out of range values are clamped
	rec = doRequest(t, e, http.MethodPut, "/api/v1/reverb", `{"mix": 400}`)
	rv = decode[engine.ReverbState](t, rec)
	assert.InDelta(t, 100.0, rv.Parameters.Mix, 0)

	rec = doRequest(t, e, http.MethodPut, "/api/v1/reverb", `{"mix": "loud"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReverbToggles(t *testing.T) {
	t.Parallel()
	e, _ := setupTestController(t)

	rec := doRequest(t, e, http.MethodPost, "/api/v1/reverb/enable", "")
	rv := decode[engine.ReverbState](t, rec)
	assert.True(t, rv.Enabled)
	assert.False(t, rv.Active, "default mix is dry")

	rec = doRequest(t, e, http.MethodPost, "/api/v1/reverb/disable", "")
	rv = decode[engine.ReverbState](t, rec)
	assert.False(t, rv.Enabled)

	doRequest(t, e, http.MethodPut, "/api/v1/reverb", `{"mix": 30}`)
	rec = doRequest(t, e, http.MethodPost, "/api/v1/reverb/reset", "")
	rv = decode[engine.ReverbState](t, rec)
	assert.InDelta(t, 0.0, rv.Parameters.Mix, 0)

	rec = doRequest(t, e, http.MethodGet, "/api/v1/reverb", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPresets(t *testing.T) {
	t.Parallel()
	e, _ := setupTestController(t)

	rec := doRequest(t, e, http.MethodGet, "/api/v1/presets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	presets := decode[[]conf.Preset](t, rec)
	assert.Len(t, presets, 4)

	rec = doRequest(t, e, http.MethodPost, "/api/v1/presets/vocal/apply", "")
	require.Equal(t, http.StatusOK, rec.Code)
	applied := decode[PresetApplied](t, rec)
	assert.Equal(t, "vocal", applied.Preset)
	assert.True(t, applied.State.Reverb.Active)
	assert.InDelta(t, 4.0, applied.State.Equalizer.Bands[4].GainDB, 0)

	rec = doRequest(t, e, http.MethodPost, "/api/v1/presets/nope/apply", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	build := func(cat errors.ErrorCategory) error {
		return errors.Newf("x").Component("test").Category(cat).Build()
	}
	tests := []struct {
		err  error
		want int
	}{
		{build(errors.CategoryValidation), http.StatusBadRequest},
		{build(errors.CategoryNotFound), http.StatusNotFound},
		{build(errors.CategoryConflict), http.StatusConflict},
		{build(errors.CategoryUnsupported), http.StatusUnprocessableEntity},
		{build(errors.CategoryState), http.StatusInternalServerError},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
