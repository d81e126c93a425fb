package gomidi_test

import (
	"bytes"
	"testing"

	"github.com/oddsound/mtscv/gomidi"
	"gitlab.com/gomidi/midi/v2"
)

func TestContextDeliversDueEvents(t *testing.T) {
	ctx := gomidi.NewContext(1000)
	defer ctx.Close()
	ctx.HandleMessage(midi.NoteOn(0, 60, 100), 5)
	ctx.HandleMessage(midi.NoteOff(0, 60), 15)
	ev, ok := ctx.NextEvent(0)
	if !ok || ev.Frame != 0 || !bytes.Equal(ev.Message, midi.NoteOn(0, 60, 100)) {
		t.Fatalf("got %v %v, want the note on at frame 0", ev, ok)
	}
	if _, ok := ctx.NextEvent(9); ok {
		t.Fatalf("note off returned before it is due")
	}
	ev, ok = ctx.NextEvent(10)
	if !ok || ev.Frame != 10 || !bytes.Equal(ev.Message, midi.NoteOff(0, 60)) {
		t.Fatalf("got %v %v, want the note off at frame 10", ev, ok)
	}
	if _, ok := ctx.NextEvent(100); ok {
		t.Fatalf("got an event from an empty context")
	}
}

func TestContextKeepsPendingEvents(t *testing.T) {
	ctx := gomidi.NewContext(1000)
	defer ctx.Close()
	ctx.HandleMessage(midi.NoteOn(0, 60, 100), 0)
	ctx.HandleMessage(midi.NoteOn(0, 62, 100), 100)
	if _, ok := ctx.NextEvent(0); !ok {
		t.Fatalf("first event missing")
	}
	if _, ok := ctx.NextEvent(63); ok {
		t.Fatalf("second event returned early")
	}
	ctx.FinishBlock(64)
	ev, ok := ctx.NextEvent(63)
	if !ok || !bytes.Equal(ev.Message, midi.NoteOn(0, 62, 100)) {
		t.Fatalf("got %v %v, want the pending event in the next block", ev, ok)
	}
}

func TestContextRoutesSysEx(t *testing.T) {
	ctx := gomidi.NewContext(48000)
	defer ctx.Close()
	var got []midi.Message
	ctx.SetSysExHandler(func(msg midi.Message) { got = append(got, msg) })
	ctx.HandleMessage(midi.SysEx([]byte{0x7F, 0x7F, 0x08, 0x02, 0, 0}), 0)
	if len(got) != 1 {
		t.Fatalf("got %d SysEx messages, want 1", len(got))
	}
	if _, ok := ctx.NextEvent(1 << 20); ok {
		t.Fatalf("SysEx should not be queued for the engine")
	}
}
