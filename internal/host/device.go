package host

import (
	"encoding/hex"
	"strings"

	"github.com/gen2brain/malgo"

	"github.com/tphakala/audiofx/internal/errors"
)

// DeviceInfo describes one capture device.
type DeviceInfo struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	ID      string `json:"id"`
	Default bool   `json:"default"`
}

func candidates(infos []malgo.DeviceInfo) []DeviceInfo {
	out := make([]DeviceInfo, 0, len(infos))
	for i := range infos {
		id := infos[i].ID.String()
		if decoded, err := hexToASCII(id); err == nil {
			id = decoded
		}
		out = append(out, DeviceInfo{
			Index:   i,
			Name:    infos[i].Name(),
			ID:      id,
			Default: infos[i].IsDefault == 1,
		})
	}
	return out
}

// ListDevices enumerates the capture devices of the platform backend.
func ListDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext([]malgo.Backend{platformBackend()}, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.New(err).
			Component(componentHost).
			Category(errors.CategoryAudioDevice).
			Context("operation", "init_context").
			Build()
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.New(err).
			Component(componentHost).
			Category(errors.CategoryAudioDevice).
			Context("operation", "enumerate_devices").
			Build()
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for _, d := range candidates(infos) {
		// skip the null backend's discard device
		if strings.Contains(d.Name, "Discard all samples") {
			continue
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// SelectDevice returns the index into devices of the device matching name.
// An empty name, "default" or "sysdefault" picks the system default, or the
// first device when none is flagged. Otherwise an exact name match wins over
// an ID match, which wins over a case-insensitive substring match.
func SelectDevice(devices []DeviceInfo, name string) (int, error) {
	if len(devices) == 0 {
		return 0, errors.Newf("no capture devices found").
			Component(componentHost).
			Category(errors.CategoryAudioDevice).
			Build()
	}

	switch name {
	case "", "default", "sysdefault":
		for i := range devices {
			if devices[i].Default {
				return i, nil
			}
		}
		return 0, nil
	}

	for i := range devices {
		if devices[i].Name == name {
			return i, nil
		}
	}
	for i := range devices {
		if devices[i].ID == name {
			return i, nil
		}
	}
	lower := strings.ToLower(name)
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), lower) {
			return i, nil
		}
	}

	return 0, errors.Newf("capture device %q not found", name).
		Component(componentHost).
		Category(errors.CategoryNotFound).
		Context("device", name).
		Build()
}

func hexToASCII(s string) (string, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
