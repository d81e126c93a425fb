package midicv

import (
	"github.com/oddsound/mtscv"
	"github.com/oddsound/mtscv/dsp"
	"github.com/oddsound/mtscv/tuning"
)

type (
	// Engine converts MIDI events to per channel control voltages. It is not
	// safe for concurrent use: events and output rendering must happen on
	// the same goroutine, typically the audio callback.
	Engine struct {
		client mtscv.Client

		smooth        bool
		channels      int
		polyMode      mtscv.PolyMode
		clockDivision int

		notes        [mtscv.MaxChannels]uint8
		gates        [mtscv.MaxChannels]bool
		velocities   [mtscv.MaxChannels]uint8
		aftertouches [mtscv.MaxChannels]uint8
		pitches      [mtscv.MaxChannels]uint16
		mods         [mtscv.MaxChannels]uint8

		pitchFilters    [mtscv.MaxChannels]dsp.ExponentialFilter
		modFilters      [mtscv.MaxChannels]dsp.ExponentialFilter
		retriggerPulses [mtscv.MaxChannels]dsp.PulseGenerator

		heldNotes   heldStack
		rotateIndex int
		pedal       bool

		transport transport
		bypassed  bool
	}

	// Outputs holds the voltages of one sample. Only the first Channels
	// entries of the per channel arrays and the first WheelChannels entries
	// of Pitch and Mod are meaningful.
	Outputs struct {
		Channels   int
		CV         [mtscv.MaxChannels]float32
		Gate       [mtscv.MaxChannels]float32
		Velocity   [mtscv.MaxChannels]float32
		Aftertouch [mtscv.MaxChannels]float32
		Retrigger  [mtscv.MaxChannels]float32

		WheelChannels int
		Pitch         [mtscv.MaxChannels]float32
		Mod           [mtscv.MaxChannels]float32

		Clock    float32
		ClockDiv float32
		Start    float32
		Stop     float32
		Continue float32
	}
)

// wheelTau is the time constant of the pitch and mod wheel smoothing.
const wheelTau = 1.0 / 30

// NewEngine returns an engine registered as a client of reg. A nil registry
// uses 12-TET.
func NewEngine(reg mtscv.Registry) *Engine {
	if reg == nil {
		reg = tuning.Equal{}
	}
	e := &Engine{client: reg.RegisterClient()}
	for c := range e.pitchFilters {
		e.pitchFilters[c].SetTau(wheelTau)
		e.modFilters[c].SetTau(wheelTau)
	}
	e.Reset()
	return e
}

// Close deregisters the engine from its tuning registry.
func (e *Engine) Close() error {
	return e.client.Close()
}

// Reset restores the default settings and panics.
func (e *Engine) Reset() {
	s := mtscv.DefaultState()
	e.smooth = s.Smooth
	e.channels = s.Channels
	e.polyMode = s.PolyMode
	e.clockDivision = s.ClockDivision
	e.Panic()
}

// Panic releases every channel and returns all performance state to rest.
func (e *Engine) Panic() {
	e.pedal = false
	for c := 0; c < mtscv.MaxChannels; c++ {
		e.notes[c] = 60
		e.gates[c] = false
		e.velocities[c] = 0
		e.aftertouches[c] = 0
		e.pitches[c] = 8192
		e.mods[c] = 0
		e.pitchFilters[c].Reset()
		e.modFilters[c].Reset()
	}
	e.rotateIndex = -1
	e.heldNotes.clear()
}

// HasMaster reports whether the tuning registry has a master connected.
func (e *Engine) HasMaster() bool { return e.client.HasMaster() }

func (e *Engine) Smooth() bool                  { return e.smooth }
func (e *Engine) SetSmooth(smooth bool)         { e.smooth = smooth }
func (e *Engine) Channels() int                 { return e.channels }
func (e *Engine) PolyMode() mtscv.PolyMode      { return e.polyMode }
func (e *Engine) ClockDivision() int            { return e.clockDivision }
func (e *Engine) Pedal() bool                   { return e.pedal }
func (e *Engine) Note(channel int) uint8        { return e.notes[channel] }
func (e *Engine) Gate(channel int) bool         { return e.gates[channel] }
func (e *Engine) Velocity(channel int) uint8    { return e.velocities[channel] }
func (e *Engine) Aftertouch(channel int) uint8  { return e.aftertouches[channel] }
func (e *Engine) PitchWheel(channel int) uint16 { return e.pitches[channel] }
func (e *Engine) ModWheel(channel int) uint8    { return e.mods[channel] }

// SetChannels sets the number of polyphonic channels, clamped to 1..16.
// Changing it panics.
func (e *Engine) SetChannels(channels int) {
	channels = mtscv.Clamp(channels, 1, mtscv.MaxChannels)
	if channels == e.channels {
		return
	}
	e.channels = channels
	e.Panic()
}

// SetPolyMode changes the allocation policy. Changing it panics. Invalid
// modes are ignored.
func (e *Engine) SetPolyMode(mode mtscv.PolyMode) {
	if mode < 0 || mode >= mtscv.NumPolyModes || mode == e.polyMode {
		return
	}
	e.polyMode = mode
	e.Panic()
}

// SetClockDivision sets the number of clock ticks per divider pulse.
func (e *Engine) SetClockDivision(division int) {
	e.clockDivision = max(division, 1)
}

// HeldNotes returns the keys currently down, least recent first.
func (e *Engine) HeldNotes() []uint8 {
	return append([]uint8(nil), e.heldNotes.notes[:e.heldNotes.len]...)
}

// State returns the persisted part of the engine state, merged into s so
// that quantizer fields survive.
func (e *Engine) State(s mtscv.State) mtscv.State {
	s.Smooth = e.smooth
	s.Channels = e.channels
	s.PolyMode = e.polyMode
	s.ClockDivision = e.clockDivision
	s.LastPitch, s.LastMod = nil, nil
	if e.polyMode != mtscv.MPEMode {
		pitch, mod := int(e.pitches[0]), int(e.mods[0])
		s.LastPitch, s.LastMod = &pitch, &mod
	}
	return s
}

// SetState restores the engine part of a state. The state is validated
// first; an invalid state leaves the engine untouched.
func (e *Engine) SetState(s mtscv.State) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.smooth = s.Smooth
	e.SetChannels(s.Channels)
	e.SetPolyMode(s.PolyMode)
	e.SetClockDivision(s.ClockDivision)
	if s.PolyMode != mtscv.MPEMode {
		if s.LastPitch != nil {
			e.pitches[0] = uint16(*s.LastPitch)
		}
		if s.LastMod != nil {
			e.mods[0] = uint8(*s.LastMod)
		}
	}
	return nil
}

// Process handles the events due at frame and computes the outputs of that
// sample. sampleTime is the duration of one sample in seconds.
func (e *Engine) Process(ctx ProcessContext, frame int, sampleTime float64, out *Outputs) {
	e.drain(ctx, frame)
	forceWheels := e.bypassed
	e.bypassed = false

	out.Channels = e.channels
	for c := 0; c < e.channels; c++ {
		note := float64(e.notes[c]) + e.client.RetuningInSemitones(int(e.notes[c]), e.oracleChannel(c))
		out.CV[c] = float32((note - 60) / 12)
		out.Gate[c] = boolToVolts(e.gates[c])
		out.Velocity[c] = mtscv.Rescale(float32(e.velocities[c]), 0, 127, 0, 10)
		out.Aftertouch[c] = mtscv.Rescale(float32(e.aftertouches[c]), 0, 127, 0, 10)
		out.Retrigger[c] = boolToVolts(e.retriggerPulses[c].Process(sampleTime))
	}
	for c := e.channels; c < mtscv.MaxChannels; c++ {
		e.retriggerPulses[c].Process(sampleTime)
	}

	out.WheelChannels = e.wheelChannels()
	dt := float32(sampleTime)
	for c := 0; c < out.WheelChannels; c++ {
		pw := mtscv.Clamp(float32(int(e.pitches[c])-8192)/8191, -1, 1)
		mod := mtscv.Clamp(float32(e.mods[c])/127, 0, 1)
		if e.smooth && !forceWheels {
			pw = e.pitchFilters[c].Process(dt, pw)
			mod = e.modFilters[c].Process(dt, mod)
		} else {
			e.pitchFilters[c].Out = pw
			e.modFilters[c].Out = mod
		}
		out.Pitch[c] = pw * 5
		out.Mod[c] = mod * 10
	}

	e.transport.process(sampleTime, out)
}

// ProcessBypass is called instead of Process while the host bypasses the
// engine. Events are still applied so that no release is lost, all outputs
// are zero, and the next Process call snaps the wheel smoothers to their
// targets.
func (e *Engine) ProcessBypass(ctx ProcessContext, frame int, sampleTime float64, out *Outputs) {
	e.drain(ctx, frame)
	e.bypassed = true
	for c := range e.retriggerPulses {
		e.retriggerPulses[c].Process(sampleTime)
	}
	var discard Outputs
	e.transport.process(sampleTime, &discard)
	*out = Outputs{Channels: e.channels, WheelChannels: e.wheelChannels()}
}

// Render processes a block, one Outputs per frame, and finishes the block on
// the context.
func (e *Engine) Render(ctx ProcessContext, outs []Outputs, sampleTime float64) {
	for i := range outs {
		e.Process(ctx, i, sampleTime, &outs[i])
	}
	ctx.FinishBlock(len(outs))
}

func (e *Engine) drain(ctx ProcessContext, frame int) {
	for ev, ok := ctx.NextEvent(frame); ok; ev, ok = ctx.NextEvent(frame) {
		e.HandleMessage(ev.Message)
	}
}

func (e *Engine) wheelChannels() int {
	if e.polyMode == mtscv.MPEMode {
		return mtscv.MaxChannels
	}
	return 1
}

// oracleChannel is the channel hint passed to tuning queries: the MIDI
// channel in MPE, where voices and MIDI channels coincide, otherwise any.
func (e *Engine) oracleChannel(c int) int {
	if e.polyMode == mtscv.MPEMode {
		return c
	}
	return -1
}

func boolToVolts(b bool) float32 {
	if b {
		return 10
	}
	return 0
}
