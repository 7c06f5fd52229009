// conf/validate.go

package conf

import (
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"slices"
	"strings"
)

// NumBands is the number of equalizer bands a gains list may hold.
const NumBands = 6

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	for _, check := range []func(*Settings) error{
		func(s *Settings) error { return validateEngineSettings(&s.Engine) },
		func(s *Settings) error { return validateEqualizerSettings(&s.Equalizer) },
		func(s *Settings) error { return validateReverbSettings(&s.Reverb) },
		func(s *Settings) error { return validateLimiterSettings(&s.Limiter) },
		func(s *Settings) error { return validateSentrySettings(&s.Sentry) },
		func(s *Settings) error { return validateServerSettings(&s.Server) },
		func(s *Settings) error { return validateMQTTSettings(&s.MQTT) },
		func(s *Settings) error { return validateMetricsSettings(&s.Metrics) },
		func(s *Settings) error { return validateLiveSettings(&s.Live) },
		func(s *Settings) error { return validateRenderSettings(&s.Render) },
	} {
		if err := check(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateSampleRate(rate int) error {
	if rate < MinSampleRate || rate > MaxSampleRate {
		return fmt.Errorf("sample rate must be between %d and %d, got %d", MinSampleRate, MaxSampleRate, rate)
	}
	return nil
}

func validateEngineSettings(s *EngineSettings) error {
	if err := validateSampleRate(s.SampleRate); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

func validateEqualizerSettings(s *EqualizerSettings) error {
	if len(s.Gains) > NumBands {
		return fmt.Errorf("equalizer: at most %d band gains allowed, got %d", NumBands, len(s.Gains))
	}
	for i, g := range s.Gains {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return fmt.Errorf("equalizer: band %d gain must be finite", i)
		}
		if math.Abs(g) > 20 {
			return fmt.Errorf("equalizer: band %d gain must be between -20 and 20 dB, got %g", i, g)
		}
	}
	return nil
}

func validateReverbSettings(s *ReverbSettings) error {
	var errs []error
	if s.Mix < 0 || s.Mix > 100 {
		errs = append(errs, fmt.Errorf("mix must be between 0 and 100, got %g", s.Mix))
	}
	if s.RoomSize < 0 || s.RoomSize > 1 {
		errs = append(errs, fmt.Errorf("room size must be between 0 and 1, got %g", s.RoomSize))
	}
	if s.DecayTime < 0.1 || s.DecayTime > 10 {
		errs = append(errs, fmt.Errorf("decay time must be between 0.1 and 10, got %g", s.DecayTime))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("reverb: %w", err)
	}
	return nil
}

func validateLimiterSettings(s *LimiterSettings) error {
	if s.Int16Ceiling <= 0 || s.Int16Ceiling > 1 {
		return fmt.Errorf("limiter: int16 ceiling must be in (0, 1], got %g", s.Int16Ceiling)
	}
	if s.FloatCeiling <= 0 || s.FloatCeiling > 1 {
		return fmt.Errorf("limiter: float ceiling must be in (0, 1], got %g", s.FloatCeiling)
	}
	return nil
}

func validateSentrySettings(s *SentrySettings) error {
	if s.Enabled && s.DSN == "" {
		return errors.New("sentry: DSN is required when sentry is enabled")
	}
	return nil
}

func validateListen(name, addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s: invalid listen address %q: %w", name, addr, err)
	}
	return nil
}

func validateServerSettings(s *ServerSettings) error {
	if !s.Enabled {
		return nil
	}
	if err := validateListen("server", s.Listen); err != nil {
		return err
	}
	if s.RateLimit.Enabled && (s.RateLimit.Rate <= 0 || s.RateLimit.Burst < 1) {
		return fmt.Errorf("server: rate limit needs a positive rate and burst, got %g/%d", s.RateLimit.Rate, s.RateLimit.Burst)
	}
	return nil
}

var mqttSchemes = []string{"tcp", "ssl", "tls", "mqtt", "mqtts", "ws", "wss"}

func validateMQTTSettings(s *MQTTSettings) error {
	if !s.Enabled {
		return nil
	}
	u, err := url.Parse(s.Broker)
	if err != nil || u.Host == "" {
		return fmt.Errorf("mqtt: invalid broker URL %q", s.Broker)
	}
	if !slices.Contains(mqttSchemes, u.Scheme) {
		return fmt.Errorf("mqtt: unsupported broker scheme %q, must be one of %s", u.Scheme, strings.Join(mqttSchemes, ", "))
	}
	if s.TopicPrefix == "" || strings.ContainsAny(s.TopicPrefix, "#+") {
		return fmt.Errorf("mqtt: topic prefix must be non-empty and free of wildcards, got %q", s.TopicPrefix)
	}
	if s.QoS > 2 {
		return fmt.Errorf("mqtt: QoS must be 0, 1 or 2, got %d", s.QoS)
	}
	return nil
}

func validateMetricsSettings(s *MetricsSettings) error {
	if !s.Enabled {
		return nil
	}
	return validateListen("metrics", s.Listen)
}

func validateLiveSettings(s *LiveSettings) error {
	if err := validateSampleRate(s.SampleRate); err != nil {
		return fmt.Errorf("live: %w", err)
	}
	if s.Channels < 1 || s.Channels > 2 {
		return fmt.Errorf("live: channels must be 1 or 2, got %d", s.Channels)
	}
	if s.PeriodFrames < 16 || s.PeriodFrames > 16384 {
		return fmt.Errorf("live: period frames must be between 16 and 16384, got %d", s.PeriodFrames)
	}
	return nil
}

func validateRenderSettings(s *RenderSettings) error {
	if s.BlockFrames < 1 {
		return fmt.Errorf("render: block frames must be positive, got %d", s.BlockFrames)
	}
	if s.BitDepth != 16 && s.BitDepth != 32 {
		return fmt.Errorf("render: bit depth must be 16 or 32, got %d", s.BitDepth)
	}
	return nil
}

// BandGains returns the configured gains padded to NumBands.
func (s *EqualizerSettings) BandGains() [NumBands]float64 {
	var gains [NumBands]float64
	copy(gains[:], s.Gains)
	return gains
}
