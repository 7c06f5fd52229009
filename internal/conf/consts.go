// conf/consts.go hard coded constants
package conf

const (
	DefaultSampleRate  = 48000 // engine rate until a host reports one
	DefaultBlockFrames = 1024  // render block size

	EnvPrefix = "AUDIOFX"

	PresetsFile = "presets.yaml"
)

// Sample rate bounds accepted by the engine.
const (
	MinSampleRate = 8000
	MaxSampleRate = 384000
)
