package observability

import "github.com/tphakala/audiofx/internal/logger"

var log = logger.Global().Module("telemetry")
