package remote

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tphakala/audiofx/internal/equalizer"
	"github.com/tphakala/audiofx/internal/errors"
)

// Command verbs accepted on <prefix>/cmd/<verb>.
const (
	CmdEqualizerEnable  = "eq-enable"
	CmdEqualizerDisable = "eq-disable"
	CmdEqualizerReset   = "eq-reset"
	CmdReverbEnable     = "reverb-enable"
	CmdReverbDisable    = "reverb-disable"
	CmdReverbReset      = "reverb-reset"
	CmdPreset           = "preset"
	CmdState            = "state"
)

// bandPayload accepts either a bare number or {"gain_db": x}.
type bandPayload struct {
	GainDB *float64 `json:"gain_db"`
}

type bandsPayload struct {
	Gains []float64 `json:"gains"`
}

type reverbPayload struct {
	Mix       *float64 `json:"mix"`
	RoomSize  *float64 `json:"room_size"`
	DecayTime *float64 `json:"decay_time"`
	Enabled   *bool    `json:"enabled"`
}

func invalid(msg, topic string) error {
	return errors.Newf("%s", msg).
		Component(componentRemote).
		Category(errors.CategoryValidation).
		Context("topic", topic).
		Build()
}

// handleMessage applies one control message and returns the command name
// used for metrics.
func (r *Remote) handleMessage(topic string, payload []byte) (string, error) {
	rest, ok := strings.CutPrefix(topic, r.config.TopicPrefix+"/")
	if !ok {
		return "unknown", invalid("topic outside prefix", topic)
	}

	switch {
	case rest == "set/bands":
		return "bands", r.setBands(topic, payload)
	case strings.HasPrefix(rest, "set/band/"):
		return "band", r.setBand(topic, strings.TrimPrefix(rest, "set/band/"), payload)
	case rest == "set/reverb":
		return "reverb", r.setReverb(topic, payload)
	case strings.HasPrefix(rest, "cmd/"):
		verb := strings.TrimPrefix(rest, "cmd/")
		return verb, r.runCommand(topic, verb, payload)
	}
	return "unknown", invalid("unknown control topic", topic)
}

func (r *Remote) setBand(topic, index string, payload []byte) error {
	i, err := strconv.Atoi(index)
	if err != nil {
		return invalid("band index must be an integer", topic)
	}

	text := strings.TrimSpace(string(payload))
	gain, err := strconv.ParseFloat(text, 64)
	if err != nil {
		var p bandPayload
		if jerr := json.Unmarshal(payload, &p); jerr != nil || p.GainDB == nil {
			return invalid("band payload must be a number or {\"gain_db\": x}", topic)
		}
		gain = *p.GainDB
	}
	_, err = r.svc.SetBandGain(i, gain)
	return err
}

func (r *Remote) setBands(topic string, payload []byte) error {
	var p bandsPayload
	if err := json.Unmarshal(payload, &p); err != nil || len(p.Gains) != equalizer.NumBands {
		return invalid("bands payload must be {\"gains\": [6 values]}", topic)
	}
	var gains [equalizer.NumBands]float64
	copy(gains[:], p.Gains)
	_, err := r.svc.SetBandGains(gains)
	return err
}

func (r *Remote) setReverb(topic string, payload []byte) error {
	var p reverbPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return invalid("reverb payload must be a JSON object", topic)
	}

	cur := r.svc.State().Reverb.Parameters
	if p.Mix != nil {
		cur.Mix = *p.Mix
	}
	if p.RoomSize != nil {
		cur.RoomSize = *p.RoomSize
	}
	if p.DecayTime != nil {
		cur.DecayTime = *p.DecayTime
	}
	if _, err := r.svc.SetReverbParameters(cur.Mix, cur.RoomSize, cur.DecayTime); err != nil {
		return err
	}
	if p.Enabled != nil {
		r.svc.SetReverbEnabled(*p.Enabled)
	}
	return nil
}

func (r *Remote) runCommand(topic, verb string, payload []byte) error {
	switch verb {
	case CmdEqualizerEnable:
		r.svc.SetEqualizerEnabled(true)
	case CmdEqualizerDisable:
		r.svc.SetEqualizerEnabled(false)
	case CmdEqualizerReset:
		r.svc.ResetEqualizer()
	case CmdReverbEnable:
		r.svc.SetReverbEnabled(true)
	case CmdReverbDisable:
		r.svc.SetReverbEnabled(false)
	case CmdReverbReset:
		r.svc.ResetReverb()
	case CmdPreset:
		name := strings.TrimSpace(string(payload))
		if name == "" {
			return invalid("preset command needs a preset name", topic)
		}
		_, err := r.svc.ApplyPreset(name)
		return err
	case CmdState:
		r.enqueue(r.svc.State())
	default:
		return invalid("unknown command "+verb, topic)
	}
	return nil
}
