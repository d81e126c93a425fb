// Package interval transposes 1 V/oct voltages by multiples of a just
// ratio or of an interval given in cents.
package interval

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/oddsound/mtscv"
)

const (
	maxRatio     = 9999999
	maxCents     = 9999.9
	maxTranspose = 9999
)

var ErrInvalidInterval = errors.New("invalid interval")

type (
	// Interval offsets every channel by volts*(transpose+bend), where volts
	// is the size of the interval. Transpose and bend are scaled per channel
	// by their CV inputs. It is not safe for concurrent use.
	Interval struct {
		num, den   float64
		cents      float64
		useCents   bool
		transpose  int
		bend       float64
		ratioVolts float64
	}

	// Outputs holds the transposed voltages and the sanitized input of one
	// sample.
	Outputs struct {
		Channels int
		CV       [mtscv.MaxChannels]float32
		Thru     [mtscv.MaxChannels]float32
		// Steps is the transpose of the first channel after CV scaling.
		Steps int
	}
)

// New returns an octave in ratio mode, with 1200 cents preset for cents
// mode.
func New() *Interval {
	iv := &Interval{cents: 1200}
	iv.SetRatio(2, 1)
	return iv
}

func (iv *Interval) Ratio() (num, den float64) { return iv.num, iv.den }
func (iv *Interval) Cents() float64            { return iv.cents }
func (iv *Interval) UseCents() bool            { return iv.useCents }
func (iv *Interval) Transpose() int            { return iv.transpose }
func (iv *Interval) Bend() float64             { return iv.bend }

// SetRatio rounds numerator and denominator to integers in 1..9999999.
func (iv *Interval) SetRatio(num, den float64) {
	num = mtscv.Clamp(math.Round(mtscv.Sanitize(num)), 1, maxRatio)
	den = mtscv.Clamp(math.Round(mtscv.Sanitize(den)), 1, maxRatio)
	if num == iv.num && den == iv.den {
		return
	}
	iv.num, iv.den = num, den
	iv.ratioVolts = math.Log2(num / den)
}

func (iv *Interval) SetCents(cents float64) {
	iv.cents = mtscv.Clamp(mtscv.Sanitize(cents), -maxCents, maxCents)
}

// SetUseCents selects between the cents and the ratio interval. Both are
// kept, so switching back restores the other one.
func (iv *Interval) SetUseCents(useCents bool) { iv.useCents = useCents }

func (iv *Interval) SetTranspose(steps int) {
	iv.transpose = mtscv.Clamp(steps, -maxTranspose, maxTranspose)
}

// SetBend sets the fraction of the interval added to every channel, in
// -1..1.
func (iv *Interval) SetBend(bend float64) {
	iv.bend = mtscv.Clamp(mtscv.Sanitize(bend), -1, 1)
}

// Volts returns the size of the active interval in volts.
func (iv *Interval) Volts() float64 {
	if iv.useCents {
		return iv.cents / 1200
	}
	return iv.ratioVolts
}

// Set parses a ratio such as "3/2" or "3", or cents with a "c" suffix such
// as "701.955c", and selects the matching mode.
func (iv *Interval) Set(s string) error {
	s = strings.TrimSpace(s)
	if c, ok := strings.CutSuffix(s, "c"); ok {
		cents, err := strconv.ParseFloat(c, 64)
		if err != nil || !(math.Abs(cents) <= maxCents) {
			return fmt.Errorf("%w: %q", ErrInvalidInterval, s)
		}
		iv.SetCents(cents)
		iv.useCents = true
		return nil
	}
	n, d, hasDen := strings.Cut(s, "/")
	num, err := strconv.ParseFloat(n, 64)
	den := 1.0
	if err == nil && hasDen {
		den, err = strconv.ParseFloat(d, 64)
	}
	if err != nil || !validRatio(num) || !validRatio(den) {
		return fmt.Errorf("%w: %q", ErrInvalidInterval, s)
	}
	iv.SetRatio(num, den)
	iv.useCents = false
	return nil
}

func (iv *Interval) String() string {
	if iv.useCents {
		return strconv.FormatFloat(iv.cents, 'f', -1, 64) + "c"
	}
	return strconv.FormatFloat(iv.num, 'f', -1, 64) + "/" + strconv.FormatFloat(iv.den, 'f', -1, 64)
}

// Process transposes one sample of up to 16 input voltages. The output is
// clamped to ±5 V.
func (iv *Interval) Process(in, transpose, bend mtscv.Cable, out *Outputs) {
	var transposeScales, bendScales [mtscv.MaxChannels]float64
	scales(transpose, &transposeScales)
	scales(bend, &bendScales)
	volts := iv.Volts()
	out.Steps = int(float64(iv.transpose) * transposeScales[0])
	channels := min(len(in), mtscv.MaxChannels)
	out.Channels = channels
	for c := 0; c < channels; c++ {
		v := mtscv.Sanitize(float64(in[c]))
		out.Thru[c] = float32(v)
		steps := int(float64(iv.transpose) * transposeScales[c])
		b := iv.bend * bendScales[c]
		out.CV[c] = float32(mtscv.Clamp(v+volts*(float64(steps)+b), -5, 5))
	}
}

// scales turns a CV cable into per channel factors. Connected channels scale
// by v/5 with v clamped to ±5 V; unconnected channels scale by 1.
func scales(cb mtscv.Cable, dst *[mtscv.MaxChannels]float64) {
	for c := range dst {
		if len(cb) == 0 || len(cb) > 1 && c >= len(cb) {
			dst[c] = 1
			continue
		}
		v := mtscv.Sanitize(float64(cb.Poly(c, 0)))
		dst[c] = mtscv.Clamp(v, -5, 5) * 0.2
	}
}

func validRatio(v float64) bool { return v >= 1 && v <= maxRatio }
