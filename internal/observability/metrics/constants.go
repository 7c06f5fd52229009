// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Operation type constants recorded through the Recorder interface.
const (
	// OpRenderBlock is one block processed by the render command.
	OpRenderBlock = "render_block"
	// OpDecode is decoding an input file.
	OpDecode = "decode"
	// OpEncode is writing an output file.
	OpEncode = "encode"
	// OpPrepare is starting an engine session.
	OpPrepare = "prepare"
	// OpDeviceCallback is one live device callback.
	OpDeviceCallback = "device_callback"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Parameter change targets.
const (
	TargetBand      = "band"
	TargetEqualizer = "equalizer"
	TargetReverb    = "reverb"
	TargetPreset    = "preset"
)

// Histogram bucket configuration constants.
const (
	// BucketStart100us is the starting bucket for 0.1ms histograms (0.1ms to ~400ms range).
	BucketStart100us = 0.0001
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart64B is the starting bucket for 64 byte histograms.
	BucketStart64B = 64.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)

// ShutdownTimeout is the timeout for graceful shutdown operations.
const ShutdownTimeout = 5 * time.Second
