package interval_test

import (
	"errors"
	"math"
	"testing"

	"github.com/oddsound/mtscv"
	"github.com/oddsound/mtscv/interval"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func process(iv *interval.Interval, in, transpose, bend mtscv.Cable) interval.Outputs {
	var out interval.Outputs
	iv.Process(in, transpose, bend, &out)
	return out
}

func TestDefaults(t *testing.T) {
	iv := interval.New()
	if num, den := iv.Ratio(); num != 2 || den != 1 {
		t.Fatalf("got ratio %v/%v, want 2/1", num, den)
	}
	if iv.UseCents() || iv.Cents() != 1200 || iv.Volts() != 1 {
		t.Fatalf("got cents mode %v, cents %v, volts %v", iv.UseCents(), iv.Cents(), iv.Volts())
	}
	out := process(iv, mtscv.Cable{0.5}, nil, nil)
	if out.Channels != 1 || out.CV[0] != 0.5 || out.Thru[0] != 0.5 {
		t.Fatalf("without transpose the input should pass: %v", out)
	}
}

func TestRatioAndCents(t *testing.T) {
	iv := interval.New()
	iv.SetRatio(3, 2)
	iv.SetTranspose(2)
	out := process(iv, mtscv.Cable{0}, nil, nil)
	if want := 2 * math.Log2(1.5); !near(float64(out.CV[0]), want) {
		t.Fatalf("ratio: got %v, want %v", out.CV[0], want)
	}
	iv.SetCents(700)
	iv.SetUseCents(true)
	out = process(iv, mtscv.Cable{0}, nil, nil)
	if want := 1400.0 / 1200; !near(float64(out.CV[0]), want) {
		t.Fatalf("cents: got %v, want %v", out.CV[0], want)
	}
	// the ratio survives a round trip through cents mode
	iv.SetUseCents(false)
	if want := math.Log2(1.5); !near(iv.Volts(), want) {
		t.Fatalf("got %v, want %v", iv.Volts(), want)
	}
}

func TestSetRatioRoundsAndClamps(t *testing.T) {
	iv := interval.New()
	iv.SetRatio(0, 2.6)
	if num, den := iv.Ratio(); num != 1 || den != 3 {
		t.Fatalf("got %v/%v, want 1/3", num, den)
	}
	iv.SetTranspose(20000)
	iv.SetBend(-3)
	iv.SetCents(math.NaN())
	if iv.Transpose() != 9999 || iv.Bend() != -1 || iv.Cents() != 0 {
		t.Fatalf("got transpose %v, bend %v, cents %v", iv.Transpose(), iv.Bend(), iv.Cents())
	}
}

func TestOutputClamp(t *testing.T) {
	iv := interval.New()
	iv.SetTranspose(1)
	out := process(iv, mtscv.Cable{4.5, -9, float32(math.NaN())}, nil, nil)
	if out.CV[0] != 5 || out.Thru[0] != 4.5 {
		t.Fatalf("got cv %v thru %v, want 5 4.5", out.CV[0], out.Thru[0])
	}
	if out.CV[1] != -5 || out.Thru[1] != -9 {
		t.Fatalf("got cv %v thru %v, want -5 -9", out.CV[1], out.Thru[1])
	}
	if out.CV[2] != 1 || out.Thru[2] != 0 {
		t.Fatalf("got cv %v thru %v for NaN, want 1 0", out.CV[2], out.Thru[2])
	}
}

func TestNormalling(t *testing.T) {
	iv := interval.New()
	iv.SetTranspose(4)
	in := mtscv.Cable{0, 0, 0}

	// a mono transpose CV scales every channel
	out := process(iv, in, mtscv.Cable{2.5}, nil)
	for c := 0; c < 3; c++ {
		if out.CV[c] != 2 {
			t.Fatalf("mono cv, channel %d: got %v, want 2", c, out.CV[c])
		}
	}
	if out.Steps != 2 {
		t.Fatalf("got %v steps, want 2", out.Steps)
	}

	// channels beyond a polyphonic CV are unscaled
	out = process(iv, in, mtscv.Cable{5, -5}, nil)
	if out.CV[0] != 4 || out.CV[1] != -4 || out.CV[2] != 4 {
		t.Fatalf("poly cv: got %v", out.CV[:3])
	}

	// scaled steps truncate toward zero
	iv.SetTranspose(3)
	out = process(iv, in, mtscv.Cable{2.5}, nil)
	if out.CV[0] != 1 {
		t.Fatalf("got %v, want 1", out.CV[0])
	}

	iv.SetTranspose(0)
	iv.SetBend(0.5)
	out = process(iv, in, nil, nil)
	if out.CV[0] != 0.5 {
		t.Fatalf("unconnected bend: got %v, want 0.5", out.CV[0])
	}
	out = process(iv, in, nil, mtscv.Cable{-10})
	if out.CV[0] != -0.5 {
		t.Fatalf("bend cv clamped to -5 V: got %v, want -0.5", out.CV[0])
	}
}

func TestSet(t *testing.T) {
	iv := interval.New()
	for _, tt := range []struct {
		text  string
		volts float64
		str   string
	}{
		{"3/2", math.Log2(1.5), "3/2"},
		{" 5 ", math.Log2(5), "5/1"},
		{"701.955c", 0.5849625, "701.955c"},
		{"-100c", -1.0 / 12, "-100c"},
	} {
		if err := iv.Set(tt.text); err != nil {
			t.Fatalf("%q: %v", tt.text, err)
		}
		if !near(iv.Volts(), tt.volts) || iv.String() != tt.str {
			t.Errorf("%q: got %v %q, want %v %q", tt.text, iv.Volts(), iv.String(), tt.volts, tt.str)
		}
	}
	for _, s := range []string{"", "0/1", "3/", "c", "10000c", "NaN", "x/2"} {
		if err := iv.Set(s); !errors.Is(err, interval.ErrInvalidInterval) {
			t.Errorf("%q: got %v, want ErrInvalidInterval", s, err)
		}
	}
}
