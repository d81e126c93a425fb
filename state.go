package mtscv

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrInvalidState is returned when persisted state cannot be interpreted.
var ErrInvalidState = errors.New("invalid state")

type (
	// State is the persisted configuration of a MIDI-CV engine and a
	// quantizer. Fields missing from a document keep the value they had
	// before unmarshaling, so unmarshal into DefaultState() or into the
	// current state of the engine.
	State struct {
		Smooth        bool     `yaml:"smooth" json:"smooth"`
		Channels      int      `yaml:"channels" json:"channels"`
		PolyMode      PolyMode `yaml:"polyMode" json:"polyMode"`
		ClockDivision int      `yaml:"clockDivision" json:"clockDivision"`

		// LastPitch and LastMod are the shared wheel positions. They are
		// not saved in MPE mode, where the wheels are per channel.
		LastPitch *int `yaml:"lastPitch,omitempty" json:"lastPitch,omitempty"`
		LastMod   *int `yaml:"lastMod,omitempty" json:"lastMod,omitempty"`

		Rounding     Rounding     `yaml:"rounding" json:"rounding"`
		QuantizeMode QuantizeMode `yaml:"quantizeMode" json:"quantizeMode"`
	}

	// ClockDivision is a named preset for the clock divider output.
	ClockDivision struct {
		Name    string
		Divisor int
	}
)

// ClockDivisions lists the clock divider presets, in MIDI clock ticks (24
// per quarter note).
var ClockDivisions = []ClockDivision{
	{"Whole", 24 * 4},
	{"Half", 24 * 2},
	{"Quarter", 24},
	{"8th", 24 / 2},
	{"16th", 24 / 4},
	{"32nd", 24 / 8},
	{"12 PPQN", 2},
	{"24 PPQN", 1},
}

func DefaultState() State {
	return State{
		Smooth:        true,
		Channels:      1,
		PolyMode:      RotateMode,
		ClockDivision: 24,
		Rounding:      RoundNearest,
		QuantizeMode:  Quantize,
	}
}

// Validate clamps out of range fields. It only returns an error for values
// that cannot be clamped meaningfully.
func (s *State) Validate() error {
	if s.PolyMode < 0 || s.PolyMode >= NumPolyModes {
		return fmt.Errorf("%w: poly mode %d", ErrInvalidState, int(s.PolyMode))
	}
	if s.QuantizeMode < 0 || s.QuantizeMode >= NumQuantizeModes {
		return fmt.Errorf("%w: quantize mode %d", ErrInvalidState, int(s.QuantizeMode))
	}
	s.Channels = Clamp(s.Channels, 1, MaxChannels)
	s.ClockDivision = max(s.ClockDivision, 1)
	s.Rounding = Clamp(s.Rounding, RoundDown, RoundUp)
	if s.LastPitch != nil {
		v := Clamp(*s.LastPitch, 0, 16383)
		s.LastPitch = &v
	}
	if s.LastMod != nil {
		v := Clamp(*s.LastMod, 0, 127)
		s.LastMod = &v
	}
	return nil
}

// UnmarshalState parses a JSON or a YAML document into s. Fields not present
// in the document are left untouched.
func UnmarshalState(data []byte, s *State) error {
	tmp := *s
	if errJSON := json.Unmarshal(data, &tmp); errJSON != nil {
		tmp = *s
		if errYaml := yaml.Unmarshal(data, &tmp); errYaml != nil {
			return fmt.Errorf("%w: the state could not be parsed as .json (%v) or .yml (%v)", ErrInvalidState, errJSON, errYaml)
		}
	}
	if err := tmp.Validate(); err != nil {
		return err
	}
	*s = tmp
	return nil
}

// MarshalState writes the state as YAML.
func MarshalState(s State) ([]byte, error) {
	if s.PolyMode == MPEMode {
		s.LastPitch, s.LastMod = nil, nil
	}
	b, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("could not marshal state: %w", err)
	}
	return b, nil
}
