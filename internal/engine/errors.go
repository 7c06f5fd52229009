package engine

import "github.com/tphakala/audiofx/internal/errors"

// ComponentEngine identifies engine errors.
const ComponentEngine = "engine"

// Sentinel errors returned by Prepare and the Process family. They are built
// once so the audio path never allocates an error.
var (
	// ErrUnsupportedFormat is returned when the prepared format cannot be
	// interpreted. The buffer is passed through unmodified.
	ErrUnsupportedFormat = errors.New(nil).
		Component(ComponentEngine).
		Category(errors.CategoryUnsupported).
		Context("resource", "sample_format").
		Build()

	// ErrNotPrepared is returned by Process before Prepare or after Teardown.
	ErrNotPrepared = errors.New(nil).
		Component(ComponentEngine).
		Category(errors.CategoryState).
		Context("resource", "session").
		Build()

	// ErrBusy is returned when Prepare or Teardown overlaps Process.
	ErrBusy = errors.New(nil).
		Component(ComponentEngine).
		Category(errors.CategoryConflict).
		Context("resource", "audio_callback").
		Build()

	// ErrFrameCount is returned when the buffer is shorter than the frame
	// count requires or the frame count is negative.
	ErrFrameCount = errors.New(nil).
		Component(ComponentEngine).
		Category(errors.CategoryValidation).
		Context("resource", "frame_count").
		Build()
)
