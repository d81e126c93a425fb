//go:build cgo

package cmd

import (
	"github.com/oddsound/mtscv/gomidi"
)

func NewMidiContext(sampleRate int) MIDIContext {
	return gomidi.NewContext(sampleRate)
}
