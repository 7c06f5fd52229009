package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tphakala/audiofx/internal/logger"
)

// ReverbPreset is the reverb part of a preset.
type ReverbPreset struct {
	Enabled   bool    `yaml:"enabled" json:"enabled"`
	Mix       float64 `yaml:"mix" json:"mix"`
	RoomSize  float64 `yaml:"room_size" json:"room_size"`
	DecayTime float64 `yaml:"decay_time" json:"decay_time"`
}

// Preset is a named set of band gains and reverb parameters.
type Preset struct {
	Name        string       `yaml:"name" json:"name"`
	Description string       `yaml:"description,omitempty" json:"description,omitempty"`
	Gains       []float64    `yaml:"gains,flow" json:"gains"`
	Reverb      ReverbPreset `yaml:"reverb" json:"reverb"`
	Builtin     bool         `yaml:"-" json:"builtin"`
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// BandGains returns the preset gains padded to NumBands.
func (p *Preset) BandGains() [NumBands]float64 {
	var gains [NumBands]float64
	copy(gains[:], p.Gains)
	return gains
}

// Validate checks the preset against the same ranges as the settings.
func (p *Preset) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("preset name is required")
	}
	if err := validateEqualizerSettings(&EqualizerSettings{Gains: p.Gains}); err != nil {
		return fmt.Errorf("preset %q: %w", p.Name, err)
	}
	if p.Reverb.Enabled {
		rs := ReverbSettings{Mix: p.Reverb.Mix, RoomSize: p.Reverb.RoomSize, DecayTime: p.Reverb.DecayTime}
		if err := validateReverbSettings(&rs); err != nil {
			return fmt.Errorf("preset %q: %w", p.Name, err)
		}
	}
	return nil
}

// BuiltinPresets returns the presets compiled into the binary.
func BuiltinPresets() []Preset {
	return []Preset{
		{
			Name:        "flat",
			Description: "No equalization, no reverb",
			Gains:       []float64{0, 0, 0, 0, 0, 0},
			Reverb:      ReverbPreset{RoomSize: 0.5, DecayTime: 2.5},
			Builtin:     true,
		},
		{
			Name:        "vocal",
			Description: "Presence lift with a short room",
			Gains:       []float64{-3, -1, 0, 2, 4, 1},
			Reverb:      ReverbPreset{Enabled: true, Mix: 15, RoomSize: 0.3, DecayTime: 1.2},
			Builtin:     true,
		},
		{
			Name:        "bass-boost",
			Description: "Sub and bass lift",
			Gains:       []float64{6, 4, 1, 0, 0, 0},
			Reverb:      ReverbPreset{RoomSize: 0.5, DecayTime: 2.5},
			Builtin:     true,
		},
		{
			Name:        "hall",
			Description: "Large hall with a bright top",
			Gains:       []float64{0, 0, 0, 0, 1, 2},
			Reverb:      ReverbPreset{Enabled: true, Mix: 40, RoomSize: 0.85, DecayTime: 4},
			Builtin:     true,
		},
	}
}

// LoadPresets returns the built-in presets merged with the presets in path.
// A file preset replaces a built-in one of the same name. An empty path or
// a missing file yields the built-ins.
func LoadPresets(path string) ([]Preset, error) {
	presets := BuiltinPresets()
	if path == "" {
		return presets, nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			GetLogger().Debug("presets file not found, using built-ins", logger.String("path", path))
			return presets, nil
		}
		return nil, fmt.Errorf("error reading presets file: %w", err)
	}

	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing presets file %s: %w", path, err)
	}

	for _, p := range file.Presets {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		p.Builtin = false
		if i := presetIndex(presets, p.Name); i >= 0 {
			presets[i] = p
			continue
		}
		presets = append(presets, p)
	}
	return presets, nil
}

// SavePresets writes the non built-in presets to path.
func SavePresets(path string, presets []Preset) error {
	file := presetFile{}
	for _, p := range presets {
		if !p.Builtin {
			file.Presets = append(file.Presets, p)
		}
	}
	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("error marshaling presets: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating presets directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("error writing presets file: %w", err)
	}
	return nil
}

// FindPreset looks a preset up by name, ignoring case.
func FindPreset(presets []Preset, name string) (Preset, bool) {
	if i := presetIndex(presets, name); i >= 0 {
		return presets[i], true
	}
	return Preset{}, false
}

// PresetNames returns the preset names sorted.
func PresetNames(presets []Preset) []string {
	names := make([]string, 0, len(presets))
	for _, p := range presets {
		names = append(names, p.Name)
	}
	slices.Sort(names)
	return names
}

func presetIndex(presets []Preset, name string) int {
	return slices.IndexFunc(presets, func(p Preset) bool {
		return strings.EqualFold(p.Name, name)
	})
}
