// conf/defaults.go default values for settings
package conf

import "github.com/spf13/viper"

// setDefaultConfig sets default values for every configuration key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("engine.samplerate", DefaultSampleRate)

	v.SetDefault("equalizer.enabled", true)
	v.SetDefault("equalizer.gains", []float64{0, 0, 0, 0, 0, 0})

	v.SetDefault("reverb.enabled", false)
	v.SetDefault("reverb.mix", 0.0)
	v.SetDefault("reverb.roomsize", 0.5)
	v.SetDefault("reverb.decaytime", 2.5)

	v.SetDefault("limiter.int16ceiling", 0.5)
	v.SetDefault("limiter.floatceiling", 0.9)

	v.SetDefault("logging.default_level", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", "logs/audiofx.log")
	v.SetDefault("logging.file_output.level", "info")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.listen", "127.0.0.1:8080")
	v.SetDefault("server.ratelimit.enabled", true)
	v.SetDefault("server.ratelimit.rate", 20.0)
	v.SetDefault("server.ratelimit.burst", 40)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.clientid", "audiofx")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topicprefix", "audiofx")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.retain", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen", "127.0.0.1:9090")

	v.SetDefault("live.enabled", false)
	v.SetDefault("live.device", "")
	v.SetDefault("live.samplerate", DefaultSampleRate)
	v.SetDefault("live.channels", 2)
	v.SetDefault("live.periodframes", 512)
	v.SetDefault("live.float", true)

	v.SetDefault("render.blockframes", DefaultBlockFrames)
	v.SetDefault("render.bitdepth", 16)

	v.SetDefault("presets.file", "")
}
