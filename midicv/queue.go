package midicv

import "gitlab.com/gomidi/midi/v2"

type (
	// Event is a MIDI message due at a frame. While processing a block the
	// Frame is relative to the start of the block.
	Event struct {
		Frame   int
		Message midi.Message
	}

	// ProcessContext supplies the events of the block being processed.
	// NextEvent returns the next event whose frame is at or before frame, in
	// arrival order, and false when no event is due yet. FinishBlock is
	// called once the block of the given length has been rendered.
	ProcessContext interface {
		NextEvent(frame int) (event Event, ok bool)
		FinishBlock(frame int)
	}

	// EventQueue is a ProcessContext backed by a slice. Frames of pushed
	// events are relative to the start of the current block; FinishBlock
	// shifts them to the next block.
	EventQueue struct {
		events []Event
		index  int
	}
)

// NewEventQueue returns an empty queue with room for capacity events.
func NewEventQueue(capacity int) *EventQueue {
	return &EventQueue{events: make([]Event, 0, capacity)}
}

// Push appends an event. Events with a frame earlier than the last queued
// event are moved forward to it, so the queue stays in arrival order.
func (q *EventQueue) Push(frame int, msg midi.Message) {
	if n := len(q.events); n > 0 && frame < q.events[n-1].Frame {
		frame = q.events[n-1].Frame
	}
	q.events = append(q.events, Event{Frame: frame, Message: msg})
}

func (q *EventQueue) NextEvent(frame int) (event Event, ok bool) {
	if q.index >= len(q.events) || q.events[q.index].Frame > frame {
		return Event{}, false
	}
	q.index++
	return q.events[q.index-1], true
}

func (q *EventQueue) FinishBlock(frame int) {
	n := copy(q.events, q.events[q.index:])
	clear(q.events[n:])
	q.events = q.events[:n]
	q.index = 0
	for i := range q.events {
		q.events[i].Frame -= frame
	}
}

// Len returns the number of events not consumed yet.
func (q *EventQueue) Len() int { return len(q.events) - q.index }

// Clear drops all queued events.
func (q *EventQueue) Clear() {
	clear(q.events)
	q.events = q.events[:0]
	q.index = 0
}

// ShortMessage copies the bytes of a non-SysEx message from a fixed size
// buffer, e.g. the data of a VST MIDI event, dropping the padding after the
// length implied by the status byte. It returns nil when data does not start
// with a status byte or is too short.
func ShortMessage(data []byte) midi.Message {
	if len(data) == 0 || data[0] < 0x80 {
		return nil
	}
	n := 3
	switch status := data[0]; {
	case status >= 0xF0:
		switch status {
		case 0xF1, 0xF3:
			n = 2
		case 0xF2:
			n = 3
		default:
			n = 1
		}
	case status&0xF0 == 0xC0, status&0xF0 == 0xD0:
		n = 2
	}
	if len(data) < n {
		return nil
	}
	return append(midi.Message(nil), data[:n]...)
}
