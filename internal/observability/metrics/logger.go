package metrics

import "github.com/tphakala/audiofx/internal/logger"

// Package-level cached logger instance.
var log = logger.Global().Module("telemetry")
