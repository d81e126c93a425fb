package gomidi

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/oddsound/mtscv/midicv"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ReadSMF reads a standard MIDI file and queues its channel and realtime
// messages at their frames for sampleRate, merging all tracks. Meta events
// are skipped and SysEx messages are passed to sysex, in file order, instead
// of being queued; sysex may be nil. The returned length is the frame of the
// last event.
func ReadSMF(r io.Reader, sampleRate int, sysex func(msg midi.Message)) (queue *midicv.EventQueue, length int, err error) {
	var events []smf.TrackEvent
	rd := smf.ReadTracksFrom(r)
	rd.Do(func(ev smf.TrackEvent) {
		if ev.Message.IsMeta() {
			return
		}
		events = append(events, ev)
	})
	if err := rd.Error(); err != nil {
		return nil, 0, fmt.Errorf("reading MIDI file failed: %w", err)
	}
	slices.SortStableFunc(events, func(a, b smf.TrackEvent) int {
		return cmp.Compare(a.AbsMicroSeconds, b.AbsMicroSeconds)
	})
	queue = midicv.NewEventQueue(len(events))
	for _, ev := range events {
		msg := midi.Message(ev.Message)
		var data []byte
		if msg.GetSysEx(&data) {
			if sysex != nil {
				sysex(msg)
			}
			continue
		}
		frame := int(ev.AbsMicroSeconds * int64(sampleRate) / 1e6)
		queue.Push(frame, msg)
		length = frame
	}
	return queue, length, nil
}
