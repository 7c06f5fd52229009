// Package conf provides configuration management for audiofx.
package conf

import "github.com/tphakala/audiofx/internal/logger"

// GetLogger returns the config package logger. It is fetched from the global
// logger each time so it follows a central logger installed after init.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
