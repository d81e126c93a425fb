package mtscv

import (
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxChannels is the number of voice slots of the engine and the maximum
// number of polyphonic channels carried by a single cable.
const MaxChannels = 16

// NumNotes is the size of a MIDI tuning table.
const NumNotes = 128

// PulseDuration is the width of every trigger pulse, in seconds.
const PulseDuration = 1e-3

// FreqC4 is the frequency corresponding to 0 V on a 1 V/oct cable: MIDI note
// 60 in 12-TET with A4 = 440 Hz.
var FreqC4 = 440 * math.Pow(2, -0.75)

type (
	// PolyMode selects how the engine assigns notes to channels.
	PolyMode int

	// Rounding selects which neighbour the quantizer picks when the input
	// falls between two notes.
	Rounding int

	// QuantizeMode selects between nearest-frequency quantization and
	// note-number retuning.
	QuantizeMode int
)

const (
	// RotateMode cycles through the channels, preferring free ones.
	RotateMode PolyMode = iota
	// ReuseMode re-gates the channel that already holds the note, otherwise
	// behaves like RotateMode.
	ReuseMode
	// ResetMode always takes the lowest free channel.
	ResetMode
	// MPEMode uses the MIDI channel of the event as the voice.
	MPEMode
	NumPolyModes
)

const (
	RoundDown Rounding = iota - 1
	RoundNearest
	RoundUp
)

const (
	// Quantize finds the table entry nearest in frequency.
	Quantize QuantizeMode = iota
	// Retune rounds to a note number and outputs its tuned frequency.
	Retune
	NumQuantizeModes
)

var polyModeNames = [NumPolyModes]string{"rotate", "reuse", "reset", "mpe"}

func (m PolyMode) String() string {
	if m < 0 || m >= NumPolyModes {
		return fmt.Sprintf("PolyMode(%d)", int(m))
	}
	return polyModeNames[m]
}

func (m PolyMode) MarshalText() ([]byte, error) {
	if m < 0 || m >= NumPolyModes {
		return nil, fmt.Errorf("invalid poly mode %d", int(m))
	}
	return []byte(polyModeNames[m]), nil
}

// UnmarshalText accepts the name or the number of a mode.
func (m *PolyMode) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	if n, err := strconv.Atoi(s); err == nil {
		*m = PolyMode(n)
		return nil
	}
	for i, n := range polyModeNames {
		if n == s {
			*m = PolyMode(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown poly mode %q", ErrInvalidState, s)
}

func (r Rounding) String() string {
	switch r {
	case RoundDown:
		return "down"
	case RoundUp:
		return "up"
	case RoundNearest:
		return "nearest"
	}
	return fmt.Sprintf("Rounding(%d)", int(r))
}

func (r Rounding) MarshalText() ([]byte, error) {
	if r < RoundDown || r > RoundUp {
		return nil, fmt.Errorf("invalid rounding %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Rounding) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	if n, err := strconv.Atoi(s); err == nil {
		*r = Rounding(n)
		return nil
	}
	switch s {
	case "down":
		*r = RoundDown
	case "nearest":
		*r = RoundNearest
	case "up":
		*r = RoundUp
	default:
		return fmt.Errorf("%w: unknown rounding %q", ErrInvalidState, text)
	}
	return nil
}

func (m QuantizeMode) String() string {
	switch m {
	case Quantize:
		return "quantize"
	case Retune:
		return "retune"
	}
	return fmt.Sprintf("QuantizeMode(%d)", int(m))
}

func (m QuantizeMode) MarshalText() ([]byte, error) {
	if m < 0 || m >= NumQuantizeModes {
		return nil, fmt.Errorf("invalid quantize mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *QuantizeMode) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	if n, err := strconv.Atoi(s); err == nil {
		*m = QuantizeMode(n)
		return nil
	}
	switch s {
	case "quantize":
		*m = Quantize
	case "retune":
		*m = Retune
	default:
		return fmt.Errorf("%w: unknown quantize mode %q", ErrInvalidState, text)
	}
	return nil
}

func (m *PolyMode) UnmarshalJSON(data []byte) error     { return unmarshalJSONText(m, data) }
func (r *Rounding) UnmarshalJSON(data []byte) error     { return unmarshalJSONText(r, data) }
func (m *QuantizeMode) UnmarshalJSON(data []byte) error { return unmarshalJSONText(m, data) }

// unmarshalJSONText decodes a JSON string or number with UnmarshalText.
func unmarshalJSONText(u encoding.TextUnmarshaler, data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		s = string(data)
	}
	return u.UnmarshalText([]byte(s))
}

// Sanitize coerces NaN and infinite voltages to 0.
func Sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// VoltsToSample maps a ±10 V control voltage to a ±1 full scale sample, the
// usual convention for DC-coupled audio interfaces.
func VoltsToSample(v float32) float32 {
	return v * 0.1
}

// Rescale maps x linearly from [xMin, xMax] to [yMin, yMax].
func Rescale(x, xMin, xMax, yMin, yMax float32) float32 {
	return yMin + (x-xMin)/(xMax-xMin)*(yMax-yMin)
}

// Clamp limits value to the inclusive range [lo, hi].
func Clamp[T ~int | ~float32 | ~float64](value, lo, hi T) T {
	return max(min(value, hi), lo)
}
