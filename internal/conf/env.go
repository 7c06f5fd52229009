// env.go - environment variable configuration and validation
package conf

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for an environment variable binding.
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns the environment variables that are validated
// before use. Every other key is still reachable as AUDIOFX_<KEY> through
// AutomaticEnv.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "AUDIOFX_DEBUG", validateEnvBool},
		{"engine.samplerate", "AUDIOFX_ENGINE_SAMPLERATE", validateEnvSampleRate},

		{"equalizer.enabled", "AUDIOFX_EQUALIZER_ENABLED", validateEnvBool},
		{"reverb.enabled", "AUDIOFX_REVERB_ENABLED", validateEnvBool},
		{"reverb.mix", "AUDIOFX_REVERB_MIX", rangeValidator("reverb mix", 0, 100)},
		{"reverb.roomsize", "AUDIOFX_REVERB_ROOMSIZE", rangeValidator("room size", 0, 1)},
		{"reverb.decaytime", "AUDIOFX_REVERB_DECAYTIME", rangeValidator("decay time", 0.1, 10)},

		{"server.listen", "AUDIOFX_SERVER_LISTEN", validateEnvListen},
		{"metrics.listen", "AUDIOFX_METRICS_LISTEN", validateEnvListen},

		{"mqtt.enabled", "AUDIOFX_MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "AUDIOFX_MQTT_BROKER", nil},
		{"mqtt.username", "AUDIOFX_MQTT_USERNAME", nil},
		{"mqtt.password", "AUDIOFX_MQTT_PASSWORD", nil},

		{"sentry.dsn", "AUDIOFX_SENTRY_DSN", nil},
	}
}

// bindEnvVars enables AUDIOFX_ overrides and validates the known bindings.
func bindEnvVars(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var warnings []string
	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvSampleRate(value string) error {
	rate, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid sample rate: %w", err)
	}
	if rate < MinSampleRate || rate > MaxSampleRate {
		return fmt.Errorf("sample rate must be between %d and %d, got %d", MinSampleRate, MaxSampleRate, rate)
	}
	return nil
}

func rangeValidator(name string, lo, hi float64) func(string) error {
	return func(value string) error {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if f < lo || f > hi {
			return fmt.Errorf("%s must be between %g and %g, got %g", name, lo, hi, f)
		}
		return nil
	}
}

func validateEnvListen(value string) error {
	if _, _, err := net.SplitHostPort(value); err != nil {
		return fmt.Errorf("listen address must be host:port: %w", err)
	}
	return nil
}
