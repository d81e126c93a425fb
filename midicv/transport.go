package midicv

import (
	"github.com/oddsound/mtscv"
	"github.com/oddsound/mtscv/dsp"
	"gitlab.com/gomidi/midi/v2"
)

// System real-time status bytes.
const (
	timingClock = 0xF8
	start       = 0xFA
	cont        = 0xFB
	stop        = 0xFC
)

// transport counts MIDI clock ticks since the last start or stop.
type transport struct {
	clock int

	clockPulse    dsp.PulseGenerator
	dividerPulse  dsp.PulseGenerator
	startPulse    dsp.PulseGenerator
	stopPulse     dsp.PulseGenerator
	continuePulse dsp.PulseGenerator
}

func (e *Engine) handleSystem(msg midi.Message) {
	if len(msg) != 1 {
		return
	}
	t := &e.transport
	switch msg[0] {
	case timingClock:
		t.clockPulse.Trigger(mtscv.PulseDuration)
		if t.clock%e.clockDivision == 0 {
			t.dividerPulse.Trigger(mtscv.PulseDuration)
		}
		t.clock++
	case start:
		t.startPulse.Trigger(mtscv.PulseDuration)
		t.clock = 0
	case cont:
		t.continuePulse.Trigger(mtscv.PulseDuration)
	case stop:
		t.stopPulse.Trigger(mtscv.PulseDuration)
		t.clock = 0
	}
}

// Clock returns the number of clock ticks since the last start or stop.
func (e *Engine) Clock() int { return e.transport.clock }

func (t *transport) process(sampleTime float64, out *Outputs) {
	out.Clock = boolToVolts(t.clockPulse.Process(sampleTime))
	out.ClockDiv = boolToVolts(t.dividerPulse.Process(sampleTime))
	out.Start = boolToVolts(t.startPulse.Process(sampleTime))
	out.Stop = boolToVolts(t.stopPulse.Process(sampleTime))
	out.Continue = boolToVolts(t.continuePulse.Process(sampleTime))
}
