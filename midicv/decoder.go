package midicv

import (
	"github.com/oddsound/mtscv"
	"gitlab.com/gomidi/midi/v2"
)

// Controller numbers handled by the engine.
const (
	ccModWheel    = 1
	ccSustain     = 64
	ccAllNotesOff = 123
)

// HandleMessage applies a single MIDI message to the engine. Messages the
// engine has no use for are ignored.
func (e *Engine) HandleMessage(msg midi.Message) {
	var channel, key, value uint8
	var bend int16
	var absBend uint16
	switch {
	case msg.GetNoteStart(&channel, &key, &value):
		if e.client.ShouldFilterNote(int(key), e.eventChannel(channel)) {
			return
		}
		c := e.PressNote(key, int(channel))
		e.velocities[c] = value
	case msg.GetNoteEnd(&channel, &key):
		e.ReleaseNote(key)
	case msg.GetPolyAfterTouch(&channel, &key, &value):
		for c := 0; c < mtscv.MaxChannels; c++ {
			if e.notes[c] == key {
				e.aftertouches[c] = value
			}
		}
	case msg.GetControlChange(&channel, &key, &value):
		e.handleCC(channel, key, value)
	case msg.GetAfterTouch(&channel, &value):
		if e.polyMode == mtscv.MPEMode {
			e.aftertouches[channel] = value
			return
		}
		for c := range e.aftertouches {
			e.aftertouches[c] = value
		}
	case msg.GetPitchBend(&channel, &bend, &absBend):
		e.pitches[e.wheelIndex(channel)] = min(absBend, 0x3FFF)
	default:
		e.handleSystem(msg)
	}
}

func (e *Engine) handleCC(channel, cc, value uint8) {
	switch cc {
	case ccModWheel:
		e.mods[e.wheelIndex(channel)] = value
	case ccSustain:
		if value >= 64 {
			e.PressPedal()
		} else {
			e.ReleasePedal()
		}
	case ccAllNotesOff:
		if value == 0 {
			e.Panic()
		}
	}
}

func (e *Engine) wheelIndex(channel uint8) int {
	if e.polyMode == mtscv.MPEMode {
		return int(channel & 0x0F)
	}
	return 0
}

func (e *Engine) eventChannel(channel uint8) int {
	if e.polyMode == mtscv.MPEMode {
		return int(channel)
	}
	return -1
}
