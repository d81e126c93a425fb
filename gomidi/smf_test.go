package gomidi_test

import (
	"bytes"
	"testing"

	"github.com/oddsound/mtscv/gomidi"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func writeSMF(t *testing.T, tracks ...smf.Track) *bytes.Buffer {
	t.Helper()
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(960)
	for _, track := range tracks {
		if err := sm.Add(track); err != nil {
			t.Fatalf("adding track failed: %v", err)
		}
	}
	var buf bytes.Buffer
	if _, err := sm.WriteTo(&buf); err != nil {
		t.Fatalf("writing SMF failed: %v", err)
	}
	return &buf
}

func TestReadSMF(t *testing.T) {
	var track0, track1 smf.Track
	track0.Add(0, smf.MetaTempo(60))
	track0.Add(0, midi.NoteOn(0, 60, 100))
	track0.Add(960, midi.NoteOff(0, 60))
	track0.Close(0)
	track1.Add(480, midi.ControlChange(0, 1, 64))
	track1.Close(0)
	// at 60 BPM a quarter note is one second, i.e. 1000 frames at 1 kHz
	queue, length, err := gomidi.ReadSMF(writeSMF(t, track0, track1), 1000, nil)
	if err != nil {
		t.Fatalf("ReadSMF failed: %v", err)
	}
	if length != 1000 {
		t.Fatalf("got length %v, want 1000", length)
	}
	want := []struct {
		frame int
		msg   midi.Message
	}{
		{0, midi.NoteOn(0, 60, 100)},
		{500, midi.ControlChange(0, 1, 64)},
		{1000, midi.NoteOff(0, 60)},
	}
	if queue.Len() != len(want) {
		t.Fatalf("got %d events, want %d", queue.Len(), len(want))
	}
	for i, w := range want {
		ev, ok := queue.NextEvent(2000)
		if !ok {
			t.Fatalf("event %d missing", i)
		}
		if ev.Frame != w.frame || !bytes.Equal(ev.Message, w.msg) {
			t.Errorf("event %d: got %v at %v, want %v at %v", i, ev.Message, ev.Frame, w.msg, w.frame)
		}
	}
}

func TestReadSMFNotDue(t *testing.T) {
	var track smf.Track
	track.Add(960, midi.NoteOn(1, 64, 90))
	track.Close(0)
	// the default tempo is 120 BPM: half a second
	queue, _, err := gomidi.ReadSMF(writeSMF(t, track), 48000, nil)
	if err != nil {
		t.Fatalf("ReadSMF failed: %v", err)
	}
	if _, ok := queue.NextEvent(23999); ok {
		t.Fatalf("event returned before its frame")
	}
	if ev, ok := queue.NextEvent(24000); !ok || ev.Frame != 24000 {
		t.Fatalf("got %v %v, want the event at frame 24000", ev, ok)
	}
}

func TestReadSMFInvalid(t *testing.T) {
	if _, _, err := gomidi.ReadSMF(bytes.NewReader([]byte("not a midi file")), 48000, nil); err == nil {
		t.Fatalf("expected an error")
	}
}
