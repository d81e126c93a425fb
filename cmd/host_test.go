package cmd_test

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/oddsound/mtscv"
	"github.com/oddsound/mtscv/cmd"
	"github.com/oddsound/mtscv/interval"
	"github.com/oddsound/mtscv/midicv"
	"github.com/oddsound/mtscv/quantizer"
	"github.com/oddsound/mtscv/tuning"
	"gitlab.com/gomidi/midi/v2"
)

func TestParseColumns(t *testing.T) {
	cols, err := cmd.ParseColumns("cv0, gate, Quantized3,clock,,velocity15")
	if err != nil {
		t.Fatalf("ParseColumns failed: %v", err)
	}
	want := []cmd.Column{
		{Signal: cmd.SignalCV},
		{Signal: cmd.SignalGate},
		{Signal: cmd.SignalQuantized, Channel: 3},
		{Signal: cmd.SignalClock},
		{Signal: cmd.SignalVelocity, Channel: 15},
	}
	if len(cols) != len(want) {
		t.Fatalf("got %v, want %v", cols, want)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Errorf("column %d: got %v, want %v", i, cols[i], want[i])
		}
	}
	if got := cols[2].String(); got != "quantized3" {
		t.Errorf("got %q, want %q", got, "quantized3")
	}
	for _, s := range []string{"cv16", "clock1", "volume", "gate-1"} {
		if _, err := cmd.ParseColumn(s); !errors.Is(err, cmd.ErrUnknownColumn) {
			t.Errorf("%q: got %v, want ErrUnknownColumn", s, err)
		}
	}
}

func TestHostRender(t *testing.T) {
	lib := tuning.NewLibrary()
	engine := midicv.NewEngine(lib)
	engine.SetChannels(2)
	engine.SetPolyMode(mtscv.ResetMode)
	host := cmd.NewHost(engine, quantizer.New(lib), nil)
	defer host.Close()
	if len(host.Columns) != 5 {
		t.Fatalf("got %d default columns, want 5", len(host.Columns))
	}
	queue := midicv.NewEventQueue(8)
	queue.Push(10, midi.NoteOn(0, 72, 127))
	buf := mtscv.MakeCVBuffer(len(host.Columns), 64)
	if err := host.Render(queue, buf, 1.0/48000); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if buf[0][9] != 0 || buf[1][9] != 0 {
		t.Fatalf("got cv %v gate %v before the note, want 0 0", buf[0][9], buf[1][9])
	}
	if buf[0][10] != 1 || buf[1][10] != 10 {
		t.Fatalf("got cv %v gate %v, want 1 10", buf[0][10], buf[1][10])
	}
	if buf[3][63] != 0 {
		t.Fatalf("second channel gate should stay low, got %v", buf[3][63])
	}
	if queue.Len() != 0 {
		t.Fatalf("got %d queued events after the block, want 0", queue.Len())
	}
}

func TestHostTrace(t *testing.T) {
	engine := midicv.NewEngine(nil)
	host := cmd.NewHost(engine, nil, []cmd.Column{{Signal: cmd.SignalCV}})
	defer host.Close()
	var out bytes.Buffer
	tracer, err := cmd.NewTracer(`{{.Frame}}:{{.CV | join ","}}{{"\n"}}`, &out)
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}
	host.Tracer = tracer
	queue := midicv.NewEventQueue(8)
	buf := mtscv.MakeCVBuffer(1, 16)
	for i := 0; i < 3; i++ {
		if err := host.Render(queue, buf, 1.0/48000); err != nil {
			t.Fatalf("Render failed: %v", err)
		}
	}
	if got, want := out.String(), "0:0\n16:0\n32:0\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if _, err := cmd.NewTracer("{{.CV", &out); err == nil {
		t.Fatalf("expected a parse error")
	}
}

func TestDefaultPreferences(t *testing.T) {
	p := cmd.MakePreferences()
	if p.SampleRate <= 0 || p.BlockSize <= 0 {
		t.Fatalf("got sample rate %v block size %v, want positive defaults", p.SampleRate, p.BlockSize)
	}
	if _, err := cmd.ParseColumns(p.Columns); err != nil {
		t.Fatalf("default columns do not parse: %v", err)
	}
}

func TestHostSetState(t *testing.T) {
	lib := tuning.NewLibrary()
	host := cmd.NewHost(midicv.NewEngine(lib), quantizer.New(lib), nil)
	if len(host.Columns) != 3 {
		t.Fatalf("got %d default columns, want 3", len(host.Columns))
	}
	s := mtscv.DefaultState()
	s.Channels = 4
	s.Rounding = mtscv.RoundUp
	if err := host.SetState(s); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}
	if len(host.Columns) != 9 {
		t.Fatalf("default columns should follow the channel count, got %d", len(host.Columns))
	}
	if got := host.State(mtscv.DefaultState()); got.Channels != 4 || got.Rounding != mtscv.RoundUp {
		t.Fatalf("got channels %v rounding %v, want 4 %v", got.Channels, got.Rounding, mtscv.RoundUp)
	}
	s.PolyMode = 99
	if err := host.SetState(s); !errors.Is(err, mtscv.ErrInvalidState) {
		t.Fatalf("got %v, want ErrInvalidState", err)
	}
	if err := host.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if n := lib.NumClients(); n != 0 {
		t.Fatalf("got %d registered clients after Close, want 0", n)
	}
}

func TestHostInterval(t *testing.T) {
	lib := tuning.NewLibrary()
	cols, err := cmd.ParseColumns("cv0,transposed0,quantized0")
	if err != nil {
		t.Fatalf("ParseColumns failed: %v", err)
	}
	host := cmd.NewHost(midicv.NewEngine(lib), quantizer.New(lib), cols)
	defer host.Close()
	host.Interval = interval.New()
	if err := host.Interval.Set("3/2"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	host.Interval.SetTranspose(1)
	queue := midicv.NewEventQueue(8)
	queue.Push(0, midi.NoteOn(0, 60, 127))
	buf := mtscv.MakeCVBuffer(len(cols), 4)
	if err := host.Render(queue, buf, 1.0/48000); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	want := float32(math.Log2(1.5))
	if buf[0][3] != 0 || buf[1][3] != want || buf[2][3] != want {
		t.Fatalf("got cv %v transposed %v quantized %v, want 0 %v %v", buf[0][3], buf[1][3], buf[2][3], want, want)
	}
}
