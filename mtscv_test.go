package mtscv_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/oddsound/mtscv"
)

func TestUnmarshalState(t *testing.T) {
	for _, tt := range []struct {
		name string
		doc  string
		want mtscv.State
	}{
		{
			name: "json numbers",
			doc:  `{"smooth": false, "channels": 8, "polyMode": 2, "clockDivision": 12, "rounding": -1, "quantizeMode": 1}`,
			want: mtscv.State{Smooth: false, Channels: 8, PolyMode: mtscv.ResetMode, ClockDivision: 12, Rounding: mtscv.RoundDown, QuantizeMode: mtscv.Retune},
		},
		{
			name: "yaml names",
			doc:  "channels: 4\npolyMode: mpe\nrounding: up\n",
			want: mtscv.State{Smooth: true, Channels: 4, PolyMode: mtscv.MPEMode, ClockDivision: 24, Rounding: mtscv.RoundUp},
		},
		{
			name: "clamped",
			doc:  `{"channels": 40, "clockDivision": 0, "rounding": 5}`,
			want: mtscv.State{Smooth: true, Channels: 16, ClockDivision: 1, Rounding: mtscv.RoundUp},
		},
		{
			name: "missing fields keep defaults",
			doc:  `{}`,
			want: mtscv.DefaultState(),
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			s := mtscv.DefaultState()
			if err := mtscv.UnmarshalState([]byte(tt.doc), &s); err != nil {
				t.Fatalf("UnmarshalState failed: %v", err)
			}
			if s != tt.want {
				t.Fatalf("got %+v, want %+v", s, tt.want)
			}
		})
	}
}

func TestUnmarshalStateErrors(t *testing.T) {
	for _, doc := range []string{`{"polyMode": 9}`, `{"polyMode": "chaos"}`, "[1, 2", `{"quantizeMode": -1}`} {
		s := mtscv.DefaultState()
		err := mtscv.UnmarshalState([]byte(doc), &s)
		if !errors.Is(err, mtscv.ErrInvalidState) {
			t.Errorf("%s: got %v, want ErrInvalidState", doc, err)
		}
		if s != mtscv.DefaultState() {
			t.Errorf("%s: a failed unmarshal modified the state: %+v", doc, s)
		}
	}
}

func TestMarshalStateRoundTrip(t *testing.T) {
	pitch, mod := 9000, 64
	s := mtscv.DefaultState()
	s.PolyMode = mtscv.ReuseMode
	s.LastPitch, s.LastMod = &pitch, &mod
	data, err := mtscv.MarshalState(s)
	if err != nil {
		t.Fatalf("MarshalState failed: %v", err)
	}
	if !bytes.Contains(data, []byte("polyMode: reuse")) {
		t.Fatalf("got %s, want the mode written by name", data)
	}
	got := mtscv.DefaultState()
	if err := mtscv.UnmarshalState(data, &got); err != nil {
		t.Fatalf("UnmarshalState failed: %v", err)
	}
	if got.PolyMode != mtscv.ReuseMode || got.LastPitch == nil || *got.LastPitch != 9000 || *got.LastMod != 64 {
		t.Fatalf("got %+v, want the saved state", got)
	}
	s.PolyMode = mtscv.MPEMode
	if data, _ = mtscv.MarshalState(s); bytes.Contains(data, []byte("lastPitch")) {
		t.Fatalf("MPE state should not store the shared wheels: %s", data)
	}
}

func TestWav(t *testing.T) {
	buf := mtscv.MakeCVBuffer(2, 3)
	copy(buf[0], []float32{0, 5, 10})
	copy(buf[1], []float32{-10, -5, 20})
	wav, err := mtscv.Wav(buf, false, 48000)
	if err != nil {
		t.Fatalf("Wav failed: %v", err)
	}
	if string(wav[:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("missing RIFF/WAVE header")
	}
	if channels := binary.LittleEndian.Uint16(wav[22:]); channels != 2 {
		t.Fatalf("got %v channels, want 2", channels)
	}
	// float wav: 58 byte header including the fact chunk
	data := wav[58:]
	want := []float32{0, -1, 0.5, -0.5, 1, 2}
	if len(data) != 4*len(want) {
		t.Fatalf("got %d data bytes, want %d", len(data), 4*len(want))
	}
	for i, w := range want {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:])); got != w {
			t.Errorf("sample %d: got %v, want %v", i, got, w)
		}
	}
	pcm, err := mtscv.Raw(buf, true)
	if err != nil {
		t.Fatalf("Raw failed: %v", err)
	}
	if got := int16(binary.LittleEndian.Uint16(pcm[10:])); got != math.MaxInt16 {
		t.Fatalf("got %v, want a clipped full scale sample", got)
	}
}

func TestSanitize(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got := mtscv.Sanitize(v); got != 0 {
			t.Errorf("Sanitize(%v) = %v, want 0", v, got)
		}
	}
	if got := mtscv.Sanitize(-3.5); got != -3.5 {
		t.Errorf("got %v, want -3.5", got)
	}
}

func TestInterleave(t *testing.T) {
	b := mtscv.CVBuffer{{1, 2}, {-4, 8}}
	volts := b.InterleaveVolts([]float32{9})
	if want := []float32{9, 1, -4, 2, 8}; !slices.Equal(volts, want) {
		t.Fatalf("got %v, want %v", volts, want)
	}
	samples := b.Interleave([]float32{9})
	if want := []float32{9, 0.1, -0.4, 0.2, 0.8}; !slices.Equal(samples, want) {
		t.Fatalf("got %v, want %v", samples, want)
	}
}

func TestCable(t *testing.T) {
	var unconnected mtscv.Cable
	if got := unconnected.Poly(3, 7); got != 7 {
		t.Errorf("unconnected: got %v, want 7", got)
	}
	mono := mtscv.Cable{2}
	if got := mono.Poly(5, 7); got != 2 {
		t.Errorf("mono: got %v, want 2", got)
	}
	poly := mtscv.Cable{1, 2}
	if got, want := []float32{poly.Poly(1, 7), poly.Poly(2, 7), poly.Mono(7)}, []float32{2, 0, 1}; !slices.Equal(got, want) {
		t.Errorf("poly: got %v, want %v", got, want)
	}
}
