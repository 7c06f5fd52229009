package errors

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	mu       sync.Mutex
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(err *EnhancedError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reported = append(r.reported, err)
}

func (r *recordingReporter) IsEnabled() bool { return true }

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestBuilderFields(t *testing.T) {
	t.Parallel()

	ee := Newf("bad gain %d", 3).
		Component("equalizer").
		Category(CategoryValidation).
		Priority(PriorityHigh).
		Context("band", 3).
		Build()

	assert.Equal(t, "bad gain 3", ee.Error())
	assert.Equal(t, "equalizer", ee.GetComponent())
	assert.True(t, IsCategory(ee, CategoryValidation))
	assert.Equal(t, PriorityHigh, ee.GetPriority())
	assert.Equal(t, 3, ee.GetContext()["band"])

	// context copy must not leak mutations
	ctx := ee.GetContext()
	ctx["band"] = 9
	assert.Equal(t, 3, ee.GetContext()["band"])
}

func TestInvalidPriorityFallsBackToMedium(t *testing.T) {
	t.Parallel()

	ee := Newf("x").Priority("urgent").Build()
	assert.Equal(t, PriorityMedium, ee.Priority)
}

func TestWrappedSentinelMatches(t *testing.T) {
	t.Parallel()

	sentinel := Newf("unsupported").Component("engine").Category(CategoryUnsupported).Build()
	wrapped := New(sentinel).Context("bit_depth", 24).Build()

	assert.ErrorIs(t, wrapped, sentinel)
	assert.NotErrorIs(t, Newf("other").Build(), sentinel)
}

func TestNilCauseSentinelsDistinguishedByContext(t *testing.T) {
	t.Parallel()

	a := New(nil).Component("audiocore").Category(CategoryValidation).Context("resource", "format").Build()
	b := New(nil).Component("audiocore").Category(CategoryValidation).Context("resource", "buffer").Build()
	a2 := New(nil).Component("audiocore").Category(CategoryValidation).Context("resource", "format").Build()

	assert.NotErrorIs(t, a, b)
	assert.ErrorIs(t, a2, a)
	assert.Contains(t, a.Error(), "audiocore")
}

func TestReporterReceivesBuiltErrors(t *testing.T) {
	rep := &recordingReporter{}
	SetTelemetryReporter(rep)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := Newf("device lost").Category(CategoryAudioDevice).Build()

	rep.mu.Lock()
	defer rep.mu.Unlock()
	require.Len(t, rep.reported, 1)
	assert.Same(t, ee, rep.reported[0])
}

func TestScrubMessageForPrivacy(t *testing.T) {
	t.Parallel()

	scrubbed := scrubMessageForPrivacy("connect tcp://user:pw@broker:1883 failed, see https://x.io/a?token=abc")
	assert.NotContains(t, scrubbed, "user:pw")
	assert.NotContains(t, scrubbed, "abc")
	assert.Contains(t, scrubbed, "[REDACTED]")

	assert.Contains(t, scrubMessageForPrivacy("password=hunter2"), "[REDACTED]")
}

func TestGenerateErrorTitle(t *testing.T) {
	t.Parallel()

	ee := Newf("boom").Component("reverb").Category(CategoryAudio).Context("operation", "session_reset").Build()
	assert.Equal(t, "Reverb Audio Processing Error Session Reset", generateErrorTitle(ee))
}

func TestFileContextRecordsExtensionOnly(t *testing.T) {
	t.Parallel()

	ee := Newf("open failed").FileContext("/home/user/take1.FLAC").Build()
	assert.Equal(t, "flac", ee.GetContext()["file_extension"])
}
