package midicv

import "github.com/oddsound/mtscv"

// heldStack is the set of keys currently down, ordered by press time with
// the most recent last. A key appears at most once.
type heldStack struct {
	notes [128]uint8
	len   int
}

func (h *heldStack) remove(note uint8) {
	for i := 0; i < h.len; i++ {
		if h.notes[i] == note {
			copy(h.notes[i:h.len], h.notes[i+1:h.len])
			h.len--
			return
		}
	}
}

func (h *heldStack) push(note uint8) {
	h.remove(note)
	h.notes[h.len] = note
	h.len++
}

func (h *heldStack) contains(note uint8) bool {
	for i := 0; i < h.len; i++ {
		if h.notes[i] == note {
			return true
		}
	}
	return false
}

func (h *heldStack) top() (uint8, bool) {
	if h.len == 0 {
		return 0, false
	}
	return h.notes[h.len-1], true
}

func (h *heldStack) clear() { h.len = 0 }

// assignChannel picks the channel for a new note outside MPE.
func (e *Engine) assignChannel(note uint8) int {
	if e.channels == 1 {
		return 0
	}
	switch e.polyMode {
	case mtscv.ReuseMode:
		for c := 0; c < e.channels; c++ {
			if e.notes[c] == note {
				return c
			}
		}
		fallthrough
	case mtscv.RotateMode:
		for i := 0; i < e.channels; i++ {
			e.advanceRotate()
			if !e.gates[e.rotateIndex] {
				return e.rotateIndex
			}
		}
		// every channel is gated: steal the one after the cursor
		e.advanceRotate()
		return e.rotateIndex
	case mtscv.ResetMode:
		for c := 0; c < e.channels; c++ {
			if !e.gates[c] {
				return c
			}
		}
		return e.channels - 1
	}
	return 0
}

func (e *Engine) advanceRotate() {
	e.rotateIndex++
	if e.rotateIndex >= e.channels {
		e.rotateIndex = 0
	}
}

// PressNote gates a channel with note and fires its retrigger pulse. In MPE
// mode the note goes to channel, otherwise the poly mode picks the channel.
// It returns the channel used.
func (e *Engine) PressNote(note uint8, channel int) int {
	note &= 0x7F
	e.heldNotes.push(note)
	if e.polyMode != mtscv.MPEMode {
		channel = e.assignChannel(note)
	}
	channel = mtscv.Clamp(channel, 0, mtscv.MaxChannels-1)
	e.notes[channel] = note
	e.gates[channel] = true
	e.retriggerPulses[channel].Trigger(mtscv.PulseDuration)
	return channel
}

// ReleaseNote lifts a key. While the pedal is down the gates are kept. In
// mono, releasing the sounding note falls back to the most recent key still
// down without retriggering.
func (e *Engine) ReleaseNote(note uint8) {
	note &= 0x7F
	e.heldNotes.remove(note)
	if e.pedal {
		return
	}
	for c := 0; c < e.channels; c++ {
		if e.notes[c] == note {
			e.gates[c] = false
		}
	}
	if e.channels == 1 && note == e.notes[0] {
		if last, ok := e.heldNotes.top(); ok {
			e.notes[0] = last
			e.gates[0] = true
		}
	}
}

func (e *Engine) PressPedal() {
	e.pedal = true
}

// ReleasePedal lifts the sustain pedal and drops the gates of channels whose
// key is no longer down.
func (e *Engine) ReleasePedal() {
	if !e.pedal {
		return
	}
	e.pedal = false
	if e.channels == 1 {
		if last, ok := e.heldNotes.top(); ok {
			e.notes[0] = last
		} else {
			e.gates[0] = false
		}
		return
	}
	for c := 0; c < e.channels; c++ {
		if e.gates[c] {
			e.gates[c] = e.heldNotes.contains(e.notes[c])
		}
	}
}
