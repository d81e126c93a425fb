// Package cvmidi turns control voltages back into MIDI messages.
package cvmidi

import (
	"math"

	"github.com/oddsound/mtscv"
	"github.com/oddsound/mtscv/dsp"
	"github.com/oddsound/mtscv/tuning"
	"gitlab.com/gomidi/midi/v2"
)

// controllerPeriod limits the rate of wheel, volume and pan messages.
const controllerPeriod = 1.0 / 200

// gateThreshold is the voltage at or above which a gate or trigger input is
// high.
const gateThreshold = 1

type (
	// Sender delivers a message, e.g. the function returned by midi.SendTo.
	Sender func(msg midi.Message) error

	Cable = mtscv.Cable

	// Inputs are the voltages of one sample. The number of channels is the
	// number of entries of Pitch.
	Inputs struct {
		Pitch      Cable
		Gate       Cable
		Velocity   Cable // unconnected means velocity 100
		Aftertouch Cable

		PitchWheel Cable
		ModWheel   Cable
		Volume     Cable // unconnected means full volume
		Pan        Cable

		Clock    Cable
		Start    Cable
		Stop     Cable
		Continue Cable
	}

	// Generator tracks what has been sent and emits a message only when a
	// value changes.
	Generator struct {
		// Channel is the MIDI channel of all channel messages.
		Channel uint8

		client mtscv.Client
		send   Sender
		timer  dsp.Timer
		err    error

		notes        [mtscv.MaxChannels]uint8
		gates        [mtscv.MaxChannels]bool
		velocities   [mtscv.MaxChannels]uint8
		keyPressures [mtscv.MaxChannels]int

		pitchWheel, modWheel, volume, pan int

		clock, start, stop, cont bool
	}
)

// NewGenerator returns a generator that sends through send and asks reg for
// note numbers. A nil registry uses 12-TET.
func NewGenerator(reg mtscv.Registry, send Sender) *Generator {
	if reg == nil {
		reg = tuning.Equal{}
	}
	g := &Generator{client: reg.RegisterClient(), send: send}
	g.Reset()
	return g
}

// Close deregisters the generator from its tuning registry.
func (g *Generator) Close() error {
	return g.client.Close()
}

// HasMaster reports whether the tuning registry has a master connected.
func (g *Generator) HasMaster() bool { return g.client.HasMaster() }

// Reset forgets what has been sent, without sending anything.
func (g *Generator) Reset() {
	for c := range g.notes {
		g.notes[c] = 0
		g.gates[c] = false
		g.velocities[c] = 100
		g.keyPressures[c] = -1
	}
	g.pitchWheel, g.modWheel, g.volume, g.pan = -1, -1, -1, -1
	g.clock, g.start, g.stop, g.cont = false, false, false, false
	g.timer.Reset()
}

// Panic sends all notes off on every MIDI channel and resets the generator.
func (g *Generator) Panic() error {
	g.Reset()
	g.err = nil
	for ch := uint8(0); ch < 16; ch++ {
		g.emit(midi.ControlChange(ch, 123, 0))
	}
	return g.flush()
}

// Process encodes one sample. All messages are attempted; the first send
// error is returned.
func (g *Generator) Process(in *Inputs, sampleTime float64) error {
	g.err = nil
	controllers := g.timer.Elapsed(sampleTime, controllerPeriod)

	channels := min(len(in.Pitch), mtscv.MaxChannels)
	hasMaster := g.client.HasMaster()
	for c := 0; c < channels; c++ {
		g.velocities[c] = uint8(toMIDI(in.Velocity.Poly(c, 10.0*100/127) / 10 * 127))

		v := float64(mtscv.Sanitize(float64(in.Pitch[c])))
		var note int
		if hasMaster {
			note = g.client.FrequencyToNote(440*math.Pow(2, v-0.75), -1)
		} else {
			note = int(math.Round(v*12 + 60))
		}
		g.setNoteGate(c, uint8(mtscv.Clamp(note, 0, 127)), in.Gate.Poly(c, 0) >= gateThreshold)

		g.setKeyPressure(c, toMIDI(in.Aftertouch.Poly(c, 0)/10*127))
	}

	if controllers {
		pw := int(math.Round(float64(mtscv.Sanitize(float64(in.PitchWheel.Mono(0)))+5) / 10 * 0x4000))
		pw = mtscv.Clamp(pw, 0, 0x3FFF)
		if pw != g.pitchWheel {
			g.pitchWheel = pw
			g.emit(midi.Pitchbend(g.Channel, int16(pw-0x2000)))
		}
		g.setController(&g.modWheel, 1, toMIDI(in.ModWheel.Mono(0)/10*127))
		g.setController(&g.volume, 7, toMIDI(in.Volume.Mono(10)/10*127))
		g.setController(&g.pan, 10, toMIDI((in.Pan.Mono(0)+5)/10*127))
	}

	g.setRealtime(&g.clock, in.Clock.Mono(0), midi.TimingClock())
	g.setRealtime(&g.start, in.Start.Mono(0), midi.Start())
	g.setRealtime(&g.stop, in.Stop.Mono(0), midi.Stop())
	g.setRealtime(&g.cont, in.Continue.Mono(0), midi.Continue())
	return g.flush()
}

func (g *Generator) setNoteGate(c int, note uint8, gate bool) {
	changedNote := gate && g.gates[c] && note != g.notes[c]
	enabled := gate && !g.gates[c]
	disabled := !gate && g.gates[c]
	if changedNote || disabled {
		g.emit(midi.NoteOff(g.Channel, g.notes[c]))
	}
	if changedNote || enabled {
		g.emit(midi.NoteOn(g.Channel, note, g.velocities[c]))
	}
	g.notes[c] = note
	g.gates[c] = gate
}

func (g *Generator) setKeyPressure(c int, value int) {
	if g.keyPressures[c] == value {
		return
	}
	g.keyPressures[c] = value
	g.emit(midi.PolyAfterTouch(g.Channel, g.notes[c], uint8(value)))
}

func (g *Generator) setController(last *int, cc uint8, value int) {
	if *last == value {
		return
	}
	*last = value
	g.emit(midi.ControlChange(g.Channel, cc, uint8(value)))
}

// setRealtime sends msg on the rising edge of a trigger input.
func (g *Generator) setRealtime(last *bool, v float32, msg midi.Message) {
	high := v >= gateThreshold
	if high && !*last {
		g.emit(msg)
	}
	*last = high
}

func (g *Generator) emit(msg midi.Message) {
	if g.send == nil {
		return
	}
	if err := g.send(msg); err != nil && g.err == nil {
		g.err = err
	}
}

func (g *Generator) flush() error {
	err := g.err
	g.err = nil
	return err
}

// toMIDI rounds a 7-bit value and clamps it to 0..127.
func toMIDI(v float32) int {
	r := math.Round(mtscv.Sanitize(float64(v)))
	return int(mtscv.Clamp(r, 0, 127))
}
