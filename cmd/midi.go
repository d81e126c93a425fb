package cmd

import (
	"errors"

	"github.com/oddsound/mtscv/midicv"
	"gitlab.com/gomidi/midi/v2"
)

type (
	// MIDIContext is a live MIDI input feeding the engine, with optional
	// MIDI outputs.
	MIDIContext interface {
		midicv.ProcessContext
		TryToOpenBy(namePrefix string, takeFirst bool) error
		OpenOutput(namePrefix string) (send func(msg midi.Message) error, err error)
		SetSysExHandler(handler func(msg midi.Message))
		Close()
	}

	NullMIDIContext struct{}
)

var ErrNoMIDI = errors.New("MIDI is not available in this build")

func (NullMIDIContext) NextEvent(frame int) (midicv.Event, bool) { return midicv.Event{}, false }
func (NullMIDIContext) FinishBlock(frame int)                    {}
func (NullMIDIContext) TryToOpenBy(string, bool) error           { return ErrNoMIDI }
func (NullMIDIContext) SetSysExHandler(func(midi.Message))       {}
func (NullMIDIContext) Close()                                   {}
func (NullMIDIContext) OpenOutput(string) (func(midi.Message) error, error) {
	return nil, ErrNoMIDI
}
