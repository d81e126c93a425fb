//go:build plugin

package main

import (
	"testing"

	"github.com/oddsound/mtscv/midicv"
	"github.com/oddsound/mtscv/tuning"
	"gitlab.com/gomidi/midi/v2"
	"pipelined.dev/audio/vst2"
)

func TestHandleEvent(t *testing.T) {
	queue := midicv.NewEventQueue(4)
	lib := tuning.NewLibrary()
	handleEvent(&vst2.MIDIEvent{DeltaFrames: 3, Data: [3]byte{0xF8}}, queue, lib)
	handleEvent(&vst2.MIDIEvent{DeltaFrames: 5, Data: [3]byte{0xD2, 100}}, queue, lib)
	handleEvent(&vst2.MIDIEvent{DeltaFrames: 5, Data: [3]byte{0x40, 1, 2}}, queue, lib)
	want := []midicv.Event{
		{Frame: 3, Message: midi.TimingClock()},
		{Frame: 5, Message: midi.AfterTouch(2, 100)},
	}
	if queue.Len() != len(want) {
		t.Fatalf("got %d queued events, want %d", queue.Len(), len(want))
	}
	for i, w := range want {
		ev, ok := queue.NextEvent(w.Frame)
		if !ok || ev.Frame != w.Frame || string(ev.Message) != string(w.Message) {
			t.Fatalf("event %d: got %v % X, want %v % X", i, ev.Frame, ev.Message, w.Frame, w.Message)
		}
	}
}
