package quantizer

import (
	"math"

	"github.com/oddsound/mtscv"
	"github.com/oddsound/mtscv/dsp"
	"github.com/oddsound/mtscv/tuning"
	"github.com/viterin/vek"
)

// refreshPeriod is the minimum time between two tuning table refreshes while
// nothing else changes.
const refreshPeriod = 0.005

// exactMatch is the tolerance, in Hz, under which an input is considered to
// be exactly on a table entry.
const exactMatch = 1e-7

type (
	// Quantizer snaps 1 V/oct voltages to the notes of the current tuning. It
	// is not safe for concurrent use.
	Quantizer struct {
		client mtscv.Client

		rounding mtscv.Rounding
		mode     mtscv.QuantizeMode

		hasMaster       bool
		settingsChanged bool
		bypassed        bool
		timer           dsp.Timer

		freqs   [mtscv.NumNotes]float64
		diffs   []float64
		lastIn  [mtscv.MaxChannels]float32
		lastOut [mtscv.MaxChannels]float32
		pulses  [mtscv.MaxChannels]dsp.PulseGenerator
	}

	// Outputs holds the quantized voltages and change triggers of one sample.
	Outputs struct {
		Channels int
		CV       [mtscv.MaxChannels]float32
		Trigger  [mtscv.MaxChannels]float32
	}
)

// New returns a quantizer registered as a client of reg. A nil registry
// uses 12-TET, which makes the quantizer a pass-through.
func New(reg mtscv.Registry) *Quantizer {
	if reg == nil {
		reg = tuning.Equal{}
	}
	return &Quantizer{
		client: reg.RegisterClient(),
		freqs:  tuning.EqualTable(),
		diffs:  make([]float64, mtscv.NumNotes),
	}
}

// Close deregisters the quantizer from its tuning registry.
func (q *Quantizer) Close() error {
	return q.client.Close()
}

// HasMaster reports whether the tuning registry has a master connected.
func (q *Quantizer) HasMaster() bool { return q.client.HasMaster() }

func (q *Quantizer) Rounding() mtscv.Rounding { return q.rounding }
func (q *Quantizer) Mode() mtscv.QuantizeMode { return q.mode }

// SetRounding sets the rounding policy, clamped to the valid range.
func (q *Quantizer) SetRounding(r mtscv.Rounding) {
	r = mtscv.Clamp(r, mtscv.RoundDown, mtscv.RoundUp)
	if r != q.rounding {
		q.rounding = r
		q.settingsChanged = true
	}
}

// SetMode selects quantize or retune mode. Invalid modes are ignored.
func (q *Quantizer) SetMode(m mtscv.QuantizeMode) {
	if m < 0 || m >= mtscv.NumQuantizeModes || m == q.mode {
		return
	}
	q.mode = m
	q.settingsChanged = true
}

// State merges the quantizer settings into s.
func (q *Quantizer) State(s mtscv.State) mtscv.State {
	s.Rounding = q.rounding
	s.QuantizeMode = q.mode
	return s
}

func (q *Quantizer) SetState(s mtscv.State) error {
	if err := s.Validate(); err != nil {
		return err
	}
	q.SetRounding(s.Rounding)
	q.SetMode(s.QuantizeMode)
	return nil
}

// Process quantizes one sample of up to 16 input voltages.
func (q *Quantizer) Process(in []float32, sampleTime float64, out *Outputs) {
	lastHasMaster := q.hasMaster
	q.hasMaster = q.client.HasMaster()
	changed := q.hasMaster != lastHasMaster || q.settingsChanged || q.bypassed
	q.settingsChanged, q.bypassed = false, false

	elapsed := q.timer.Elapsed(sampleTime, refreshPeriod)

	channels := min(len(in), mtscv.MaxChannels)
	out.Channels = channels

	if !q.hasMaster {
		for c := 0; c < channels; c++ {
			vin := float32(mtscv.Sanitize(float64(in[c])))
			out.CV[c] = vin
			q.lastIn[c], q.lastOut[c] = vin, vin
			q.pulses[c].Process(sampleTime)
			out.Trigger[c] = 0
		}
		return
	}

	if !elapsed && !changed {
		for c := 0; c < channels; c++ {
			out.CV[c] = q.lastOut[c]
			out.Trigger[c] = boolToVolts(q.pulses[c].Process(sampleTime))
		}
		return
	}

	dirty := changed
	for i := range q.freqs {
		if f := q.client.NoteToFrequency(i, -1); f != q.freqs[i] {
			q.freqs[i] = f
			dirty = true
		}
	}
	for c := 0; c < channels; c++ {
		vin := float32(mtscv.Sanitize(float64(in[c])))
		cv := q.lastOut[c]
		if dirty || vin != q.lastIn[c] {
			cv = q.quantize(vin)
		}
		q.lastIn[c] = vin
		out.CV[c] = cv
		if cv != q.lastOut[c] {
			q.pulses[c].Trigger(mtscv.PulseDuration)
			q.lastOut[c] = cv
		}
		out.Trigger[c] = boolToVolts(q.pulses[c].Process(sampleTime))
	}
}

// ProcessBypass passes the inputs through while the host bypasses the
// quantizer. The next call to Process recomputes every channel.
func (q *Quantizer) ProcessBypass(in []float32, sampleTime float64, out *Outputs) {
	q.bypassed = true
	channels := min(len(in), mtscv.MaxChannels)
	out.Channels = channels
	for c := 0; c < channels; c++ {
		out.CV[c] = float32(mtscv.Sanitize(float64(in[c])))
		out.Trigger[c] = 0
		q.pulses[c].Process(sampleTime)
	}
}

func (q *Quantizer) quantize(vin float32) float32 {
	if q.mode == mtscv.Retune {
		return q.retune(vin)
	}
	freq := mtscv.FreqC4 * math.Pow(2, float64(vin))
	vek.SubNumber_Into(q.diffs, q.freqs[:], freq)
	var dLower, dUpper float64
	iLower, iUpper := -1, -1
	for i, d := range q.diffs {
		if q.client.ShouldFilterNote(i, -1) {
			continue
		}
		if math.Abs(d) < exactMatch {
			return vin
		}
		if d < 0 {
			if iLower < 0 || d > dLower {
				dLower, iLower = d, i
			}
		} else if iUpper < 0 || d < dUpper {
			dUpper, iUpper = d, i
		}
	}
	var qf float64
	switch {
	case iLower < 0 && iUpper < 0:
		return vin
	case iLower < 0:
		qf = q.freqs[iUpper]
	case iUpper < 0:
		qf = q.freqs[iLower]
	case q.rounding == mtscv.RoundDown:
		qf = q.freqs[iLower]
	case q.rounding == mtscv.RoundUp:
		qf = q.freqs[iUpper]
	default:
		fLower, fUpper := q.freqs[iLower], q.freqs[iUpper]
		fMid := fLower * math.Pow(2, 0.5*math.Log2(fUpper/fLower))
		qf = fUpper
		if freq < fMid {
			qf = fLower
		}
	}
	return float32(math.Log2(qf / mtscv.FreqC4))
}

// retune rounds the input to a note number and outputs the tuned frequency
// of that note.
func (q *Quantizer) retune(vin float32) float32 {
	pitch := float64(vin)*12 + 60
	switch q.rounding {
	case mtscv.RoundDown:
		pitch = math.Floor(pitch)
	case mtscv.RoundUp:
		pitch = math.Ceil(pitch)
	default:
		pitch = math.Round(pitch)
	}
	n := int(mtscv.Clamp(pitch, 0, mtscv.NumNotes-1))
	return float32(math.Log2(q.freqs[n] / mtscv.FreqC4))
}

func boolToVolts(b bool) float32 {
	if b {
		return 10
	}
	return 0
}
