package dsp_test

import (
	"math"
	"testing"

	"github.com/oddsound/mtscv/dsp"
)

const sampleTime = 1.0 / 48000

func TestPulseGeneratorWidth(t *testing.T) {
	var p dsp.PulseGenerator
	p.Trigger(1e-3)
	high := 0
	for i := 0; i < 1000; i++ {
		if p.Process(sampleTime) {
			high++
		}
	}
	if high < 48 || high > 49 {
		t.Fatalf("pulse was high for %v samples, want 48 or 49", high)
	}
	if p.High() {
		t.Fatalf("pulse still high after it should have ended")
	}
}

func TestPulseGeneratorRetriggerDoesNotStack(t *testing.T) {
	var a, b dsp.PulseGenerator
	a.Trigger(1e-3)
	b.Trigger(1e-3)
	for i := 0; i < 10; i++ {
		a.Process(sampleTime)
		b.Process(sampleTime)
	}
	b.Trigger(1e-3)
	b.Trigger(1e-3)
	countA, countB := 0, 0
	for i := 0; i < 1000; i++ {
		if a.Process(sampleTime) {
			countA++
		}
		if b.Process(sampleTime) {
			countB++
		}
	}
	if d := countB - countA; d < 9 || d > 11 {
		t.Fatalf("retriggered pulse lasted %v samples, want about %v", countB, countA+10)
	}
	if countB > 49 {
		t.Fatalf("retriggered pulse stacked: %v samples", countB)
	}
}

func TestPulseGeneratorReset(t *testing.T) {
	var p dsp.PulseGenerator
	p.Trigger(1)
	p.Reset()
	if p.Process(sampleTime) {
		t.Fatalf("pulse high after reset")
	}
}

func TestExponentialFilterConverges(t *testing.T) {
	var f dsp.ExponentialFilter
	f.SetTau(1.0 / 30)
	var out float32
	for i := 0; i < 48000; i++ {
		out = f.Process(sampleTime, 1)
	}
	if out != 1 {
		t.Fatalf("filter did not settle: got %v, want 1", out)
	}
}

func TestExponentialFilterTimeConstant(t *testing.T) {
	var f dsp.ExponentialFilter
	f.SetTau(1.0 / 30)
	steps := int(48000.0 / 30)
	var out float32
	for i := 0; i < steps; i++ {
		out = f.Process(sampleTime, 1)
	}
	want := 1 - math.Exp(-1)
	if math.Abs(float64(out)-want) > 0.01 {
		t.Fatalf("after one time constant got %v, want about %v", out, want)
	}
}

func TestExponentialFilterJump(t *testing.T) {
	var f dsp.ExponentialFilter
	f.SetTau(1.0 / 30)
	f.Out = 0.5
	if got := f.Process(0, 0.5); got != 0.5 {
		t.Fatalf("got %v, want 0.5", got)
	}
}

func TestTimerElapsed(t *testing.T) {
	var timer dsp.Timer
	const period = 0.005
	fired := 0
	for i := 0; i < 48000; i++ {
		if timer.Elapsed(sampleTime, period) {
			fired++
		}
	}
	if fired < 199 || fired > 200 {
		t.Fatalf("timer fired %v times in one second, want 200", fired)
	}
}
