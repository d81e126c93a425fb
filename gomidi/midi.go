package gomidi

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/oddsound/mtscv/midicv"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type (
	// RTMIDIContext receives messages from a hardware MIDI input and hands
	// them to the engine as a midicv.ProcessContext. Receiving happens on the
	// driver's goroutine; NextEvent and FinishBlock must be called from the
	// audio goroutine.
	RTMIDIContext struct {
		driver             *rtmididrv.Driver
		currentIn          drivers.In
		stop               func()
		outs               []drivers.Out
		inputDevices       []RTMIDIDevice
		devicesInitialized bool
		sampleRate         int

		events        chan timestampedMsg
		eventsBuf     []timestampedMsg
		eventIndex    int
		startFrame    int
		startFrameSet bool

		sysexMu sync.Mutex
		sysex   func(msg midi.Message)
	}

	RTMIDIDevice struct {
		context *RTMIDIContext
		in      drivers.In
	}

	timestampedMsg struct {
		frame int
		msg   midi.Message
	}
)

var ErrNoDriver = errors.New("no MIDI driver available")

// NewContext opens the driver. Timestamps are converted to frames at
// sampleRate.
func NewContext(sampleRate int) *RTMIDIContext {
	m := RTMIDIContext{events: make(chan timestampedMsg, 1024), sampleRate: sampleRate}
	// there's not much we can do if this fails, so just use m.driver = nil to
	// indicate no driver available
	m.driver, _ = rtmididrv.New()
	return &m
}

// SetSysExHandler sets the function receiving SysEx messages, typically
// tuning dumps. It is called on the driver's goroutine and SysEx messages are
// never queued for the engine.
func (c *RTMIDIContext) SetSysExHandler(handler func(msg midi.Message)) {
	c.sysexMu.Lock()
	c.sysex = handler
	c.sysexMu.Unlock()
}

func (c *RTMIDIContext) InputDevices(yield func(RTMIDIDevice) bool) {
	if c.devicesInitialized {
		for _, device := range c.inputDevices {
			if !yield(device) {
				return
			}
		}
		return
	}
	if c.driver == nil {
		return
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return
	}
	for _, in := range ins {
		c.inputDevices = append(c.inputDevices, RTMIDIDevice{context: c, in: in})
	}
	c.devicesInitialized = true
	for _, device := range c.inputDevices {
		if !yield(device) {
			return
		}
	}
}

// Open the input device while closing the currently open if necessary.
func (d RTMIDIDevice) Open() error {
	c := d.context
	if c.currentIn == d.in {
		return nil
	}
	if c.driver == nil {
		return ErrNoDriver
	}
	c.closeInput()
	if err := d.in.Open(); err != nil {
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	stop, err := midi.ListenTo(d.in, c.HandleMessage, midi.UseSysEx())
	if err != nil {
		d.in.Close()
		return fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	c.currentIn, c.stop = d.in, stop
	return nil
}

func (d RTMIDIDevice) String() string {
	return d.in.String()
}

func (c *RTMIDIContext) closeInput() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	if c.HasDeviceOpen() {
		c.currentIn.Close()
	}
	c.currentIn = nil
}

func (c *RTMIDIContext) Close() {
	if c.driver == nil {
		return
	}
	c.closeInput()
	for _, out := range c.outs {
		out.Close()
	}
	c.outs = nil
	c.driver.Close()
}

// OpenOutput opens the first output whose name starts with namePrefix and
// returns a function sending to it.
func (c *RTMIDIContext) OpenOutput(namePrefix string) (send func(msg midi.Message) error, err error) {
	if c.driver == nil {
		return nil, ErrNoDriver
	}
	outs, err := c.driver.Outs()
	if err != nil {
		return nil, fmt.Errorf("listing MIDI outputs failed: %w", err)
	}
	for _, out := range outs {
		if !strings.HasPrefix(out.String(), namePrefix) {
			continue
		}
		if err := out.Open(); err != nil {
			return nil, fmt.Errorf("opening MIDI output failed: %w", err)
		}
		send, err := midi.SendTo(out)
		if err != nil {
			out.Close()
			return nil, fmt.Errorf("sending to MIDI output failed: %w", err)
		}
		c.outs = append(c.outs, out)
		return send, nil
	}
	return nil, fmt.Errorf("could not find any MIDI output starting with %q", namePrefix)
}

func (c *RTMIDIContext) HasDeviceOpen() bool {
	return c.currentIn != nil && c.currentIn.IsOpen()
}

// TryToOpenBy opens the first input whose name starts with namePrefix, or the
// first input at all if takeFirst is set.
func (c *RTMIDIContext) TryToOpenBy(namePrefix string, takeFirst bool) error {
	if namePrefix == "" && !takeFirst {
		return nil
	}
	for input := range c.InputDevices {
		if takeFirst || strings.HasPrefix(input.String(), namePrefix) {
			return input.Open()
		}
	}
	if takeFirst {
		return errors.New("could not find any MIDI input")
	}
	return fmt.Errorf("could not find any MIDI input starting with %q", namePrefix)
}

func (c *RTMIDIContext) HandleMessage(msg midi.Message, timestampms int32) {
	var data []byte
	if msg.GetSysEx(&data) {
		c.sysexMu.Lock()
		handler := c.sysex
		c.sysexMu.Unlock()
		if handler != nil {
			handler(msg)
		}
		return
	}
	frame := int(int64(timestampms) * int64(c.sampleRate) / 1000)
	select {
	case c.events <- timestampedMsg{frame: frame, msg: msg}: // if the channel is full, just drop the message
	default:
	}
}

// NextEvent returns the next received message once the clock of the block
// has reached it.
func (c *RTMIDIContext) NextEvent(frame int) (event midicv.Event, ok bool) {
F:
	for {
		select {
		case msg := <-c.events:
			c.eventsBuf = append(c.eventsBuf, msg)
			if !c.startFrameSet {
				c.startFrame = msg.frame - frame
				c.startFrameSet = true
			}
		default:
			break F
		}
	}
	if c.eventIndex >= len(c.eventsBuf) {
		return midicv.Event{}, false
	}
	m := c.eventsBuf[c.eventIndex]
	f := m.frame - c.startFrame
	if f > frame {
		return midicv.Event{}, false
	}
	c.eventIndex++
	// the event was consumed late; pull the clock towards it
	c.startFrame -= (frame - f) / 5
	return midicv.Event{Frame: f, Message: m.msg}, true
}

func (c *RTMIDIContext) FinishBlock(frame int) {
	c.startFrame += frame
	n := copy(c.eventsBuf, c.eventsBuf[c.eventIndex:])
	c.eventsBuf = c.eventsBuf[:n]
	c.eventIndex = 0
	if n > 0 {
		// Events were not consumed this round; adjust the start frame
		// towards the future events, so they are rendered at the same
		// distance as they were received. delta is always negative.
		delta := c.startFrame - c.eventsBuf[0].frame
		c.startFrame -= delta / 5
	}
}
