package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/oddsound/mtscv"
	"github.com/oddsound/mtscv/interval"
	"github.com/oddsound/mtscv/midicv"
	"github.com/oddsound/mtscv/quantizer"
)

type (
	// Column selects one voltage of the host outputs for a CV buffer
	// channel, e.g. "cv0", "gate3", "quantized1", "clock".
	Column struct {
		Signal  Signal
		Channel int
	}

	Signal int

	// Host runs a MIDI-CV engine, optionally transposes its CV outputs by an
	// interval, feeds the result to a quantizer, and writes the selected
	// columns into CV buffers.
	Host struct {
		Engine    *midicv.Engine
		Interval  *interval.Interval
		Quantizer *quantizer.Quantizer
		Columns   []Column
		Tracer    *Tracer

		defaultColumns bool
		frame          int
		out            midicv.Outputs
		iout           interval.Outputs
		qout           quantizer.Outputs
	}
)

const (
	SignalCV Signal = iota
	SignalGate
	SignalVelocity
	SignalAftertouch
	SignalRetrigger
	SignalQuantized
	SignalQuantizerTrigger
	SignalTransposed
	SignalPitch
	SignalMod
	SignalClock
	SignalClockDiv
	SignalStart
	SignalStop
	SignalContinue
	NumSignals
)

var signalNames = [NumSignals]string{
	"cv", "gate", "velocity", "aftertouch", "retrigger", "quantized", "qtrigger",
	"transposed", "pitch", "mod", "clock", "clockdiv", "start", "stop", "continue",
}

var ErrUnknownColumn = errors.New("unknown column")

func (s Signal) String() string {
	if s < 0 || s >= NumSignals {
		return "Signal(" + strconv.Itoa(int(s)) + ")"
	}
	return signalNames[s]
}

// perChannel reports whether the signal has one value per channel.
func (s Signal) perChannel() bool {
	return s <= SignalMod
}

func (c Column) String() string {
	if c.Signal.perChannel() {
		return c.Signal.String() + strconv.Itoa(c.Channel)
	}
	return c.Signal.String()
}

// ParseColumn parses a signal name followed by a channel number, which
// defaults to 0. Transport signals take no channel.
func ParseColumn(s string) (Column, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	name := strings.TrimRight(s, "0123456789")
	for i, n := range signalNames {
		if n != name {
			continue
		}
		col := Column{Signal: Signal(i)}
		if digits := s[len(name):]; digits != "" {
			if !col.Signal.perChannel() {
				return Column{}, fmt.Errorf("%w: %q takes no channel", ErrUnknownColumn, s)
			}
			ch, err := strconv.Atoi(digits)
			if err != nil || ch >= mtscv.MaxChannels {
				return Column{}, fmt.Errorf("%w: channel of %q", ErrUnknownColumn, s)
			}
			col.Channel = ch
		}
		return col, nil
	}
	return Column{}, fmt.Errorf("%w: %q", ErrUnknownColumn, s)
}

// ParseColumns parses a comma separated column list.
func ParseColumns(s string) ([]Column, error) {
	var ret []Column
	for _, f := range strings.Split(s, ",") {
		if strings.TrimSpace(f) == "" {
			continue
		}
		col, err := ParseColumn(f)
		if err != nil {
			return nil, err
		}
		ret = append(ret, col)
	}
	return ret, nil
}

// DefaultColumns returns the CV and gate of every channel followed by the
// clock.
func DefaultColumns(channels int) []Column {
	var ret []Column
	for c := 0; c < channels; c++ {
		ret = append(ret, Column{SignalCV, c}, Column{SignalGate, c})
	}
	return append(ret, Column{Signal: SignalClock})
}

// NewHost returns a host for the engine and quantizer, which should share a
// tuning registry. The quantizer may be nil. Without columns the host uses
// DefaultColumns, following the engine's channel count across SetState.
func NewHost(engine *midicv.Engine, q *quantizer.Quantizer, columns []Column) *Host {
	h := &Host{Engine: engine, Quantizer: q, Columns: columns}
	if len(columns) == 0 {
		h.defaultColumns = true
		h.Columns = DefaultColumns(engine.Channels())
	}
	return h
}

// SetState applies s to the engine and the quantizer.
func (h *Host) SetState(s mtscv.State) error {
	if err := h.Engine.SetState(s); err != nil {
		return err
	}
	if h.Quantizer != nil {
		if err := h.Quantizer.SetState(s); err != nil {
			return err
		}
	}
	if h.defaultColumns {
		h.Columns = DefaultColumns(h.Engine.Channels())
	}
	return nil
}

// State returns the engine and quantizer settings merged into s.
func (h *Host) State(s mtscv.State) mtscv.State {
	s = h.Engine.State(s)
	if h.Quantizer != nil {
		s = h.Quantizer.State(s)
	}
	return s
}

// Close deregisters the engine and the quantizer from their registries.
func (h *Host) Close() error {
	err := h.Engine.Close()
	if h.Quantizer != nil {
		err = errors.Join(err, h.Quantizer.Close())
	}
	return err
}

// Render fills buffer, which must have one channel per column, and finishes
// the block on ctx. Each block is traced once, at its first frame.
func (h *Host) Render(ctx midicv.ProcessContext, buffer mtscv.CVBuffer, sampleTime float64) error {
	frames := buffer.Frames()
	for i := 0; i < frames; i++ {
		h.Engine.Process(ctx, i, sampleTime, &h.out)
		cv := mtscv.Cable(h.out.CV[:h.out.Channels])
		if h.Interval != nil {
			h.Interval.Process(cv, nil, nil, &h.iout)
			cv = h.iout.CV[:h.iout.Channels]
		}
		if h.Quantizer != nil {
			h.Quantizer.Process(cv, sampleTime, &h.qout)
		}
		for c, col := range h.Columns {
			if c < len(buffer) {
				buffer[c][i] = h.value(col)
			}
		}
		if i == 0 && h.Tracer != nil {
			if err := h.Tracer.Trace(h.frame, sampleTime, &h.out, &h.qout); err != nil {
				return err
			}
		}
	}
	ctx.FinishBlock(frames)
	h.frame += frames
	return nil
}

// Outputs returns the outputs of the last rendered frame.
func (h *Host) Outputs() (*midicv.Outputs, *quantizer.Outputs) {
	return &h.out, &h.qout
}

func (h *Host) value(col Column) float32 {
	o, q, c := &h.out, &h.qout, col.Channel
	switch {
	case col.Signal <= SignalRetrigger && c >= o.Channels,
		col.Signal <= SignalQuantizerTrigger && col.Signal >= SignalQuantized && c >= q.Channels,
		col.Signal == SignalTransposed && c >= h.iout.Channels,
		col.Signal <= SignalMod && col.Signal >= SignalPitch && c >= o.WheelChannels:
		return 0
	}
	switch col.Signal {
	case SignalCV:
		return o.CV[c]
	case SignalGate:
		return o.Gate[c]
	case SignalVelocity:
		return o.Velocity[c]
	case SignalAftertouch:
		return o.Aftertouch[c]
	case SignalRetrigger:
		return o.Retrigger[c]
	case SignalQuantized:
		return q.CV[c]
	case SignalQuantizerTrigger:
		return q.Trigger[c]
	case SignalTransposed:
		return h.iout.CV[c]
	case SignalPitch:
		return o.Pitch[c]
	case SignalMod:
		return o.Mod[c]
	case SignalClock:
		return o.Clock
	case SignalClockDiv:
		return o.ClockDiv
	case SignalStart:
		return o.Start
	case SignalStop:
		return o.Stop
	case SignalContinue:
		return o.Continue
	}
	return 0
}
