// config.go: settings for the audiofx engine and its host surfaces, and the
// functions that load them.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"github.com/tphakala/audiofx/internal/logger"
)

// EngineSettings configures the effects engine.
type EngineSettings struct {
	SampleRate int // internal sample rate until a host reports the real one
}

// EqualizerSettings holds the initial equalizer state.
type EqualizerSettings struct {
	Enabled bool      // equalizer enabled at startup
	Gains   []float64 // initial band gains in dB, one per band
}

// ReverbSettings holds the initial reverb state.
type ReverbSettings struct {
	Enabled   bool
	Mix       float64 // wet/dry mix, 0-100
	RoomSize  float64 // 0-1
	DecayTime float64 // seconds, 0.1-10
}

// LimiterSettings are the soft limiter ceilings per sample type.
type LimiterSettings struct {
	Int16Ceiling float64
	FloatCeiling float64
}

// SentrySettings configures optional error telemetry.
type SentrySettings struct {
	Enabled bool
	DSN     string
}

// RateLimitSettings configures the control API limiter.
type RateLimitSettings struct {
	Enabled bool
	Rate    float64 // requests per second
	Burst   int
}

// ServerSettings configures the HTTP control API.
type ServerSettings struct {
	Enabled   bool
	Listen    string // host:port
	RateLimit RateLimitSettings
}

// MQTTSettings configures the MQTT remote control.
type MQTTSettings struct {
	Enabled     bool
	Broker      string // e.g. tcp://localhost:1883
	ClientID    string
	Username    string
	Password    string //nolint:gosec // G117: config field, not a hardcoded secret
	TopicPrefix string
	QoS         byte
	Retain      bool // retain published state messages
}

// MetricsSettings configures Prometheus export.
type MetricsSettings struct {
	Enabled bool
	Listen  string // standalone listener used by the live command
}

// LiveSettings configures the duplex audio device.
type LiveSettings struct {
	Enabled      bool   // run the live host inside serve
	Device       string // capture device name, empty for the system default
	SampleRate   int
	Channels     int
	PeriodFrames int
	Float        bool // use 32-bit float samples instead of 16-bit
}

// RenderSettings configures offline rendering.
type RenderSettings struct {
	BlockFrames int
	BitDepth    int // 16 or 32 (float)
}

// PresetSettings locates the user presets file.
type PresetSettings struct {
	File string
}

// Settings is the complete configuration.
type Settings struct {
	Debug bool

	Engine    EngineSettings
	Equalizer EqualizerSettings
	Reverb    ReverbSettings
	Limiter   LimiterSettings

	Logging logger.LoggingConfig
	Sentry  SentrySettings

	Server  ServerSettings
	MQTT    MQTTSettings
	Metrics MetricsSettings
	Live    LiveSettings
	Render  RenderSettings
	Presets PresetSettings
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables through the
// global viper instance, which also carries bound command-line flags.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return nil, fmt.Errorf("error getting default config paths: %w", err)
	}

	settings, err := load(viper.GetViper(), configPaths...)
	if err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// load initializes v, reads the first config.yaml found in paths and
// unmarshals the result.
func load(v *viper.Viper, paths ...string) (*Settings, error) {
	if err := initViper(v, paths); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}
	return settings, nil
}

// initViper sets defaults, binds the environment and reads the config file.
// A missing config file is not an error; defaults apply.
func initViper(v *viper.Viper, paths []string) error {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaultConfig(v)

	if err := bindEnvVars(v); err != nil {
		return err
	}

	err := v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			GetLogger().Debug("no config file found, using defaults")
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	GetLogger().Info("loaded config file", logger.String("path", v.ConfigFileUsed()))
	return nil
}

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// in order.
func GetDefaultConfigPaths() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}
	return []string{
		".",
		filepath.Join(home, ".config", "audiofx"),
		"/etc/audiofx",
	}, nil
}

// GetSettings returns the current settings instance, or nil before Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}
