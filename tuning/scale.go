package tuning

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/oddsound/mtscv"
	"gopkg.in/yaml.v3"
)

type (
	// Scale is a tuning described in cents. Degrees are the steps of one
	// period above the reference note, in ascending order and excluding the
	// unison; the period itself closes the cycle.
	//
	//	name: 19-EDO
	//	reference: {note: 69, frequency: 440}
	//	degrees: [63.16, 126.32, ...]
	Scale struct {
		Name        string          `yaml:"name,omitempty"`
		Reference   Reference       `yaml:"reference,omitempty"`
		Period      float64         `yaml:"period,omitempty"`
		Degrees     []float64       `yaml:"degrees,omitempty"`
		Filter      []int           `yaml:"filter,flow,omitempty"`
		Frequencies map[int]float64 `yaml:"frequencies,omitempty"`
	}

	Reference struct {
		Note      int     `yaml:"note"`
		Frequency float64 `yaml:"frequency"`
	}
)

var errNoReference = errors.New("reference frequency must be positive")

// LoadScale parses a YAML scale and computes its tuning table and filter.
func LoadScale(r io.Reader) (freqs [mtscv.NumNotes]float64, filter [mtscv.NumNotes]bool, err error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return freqs, filter, fmt.Errorf("could not read scale: %w", err)
	}
	s := Scale{Reference: Reference{Note: 69, Frequency: 440}, Period: 1200}
	if err := yaml.Unmarshal(b, &s); err != nil {
		return freqs, filter, fmt.Errorf("could not parse scale: %w", err)
	}
	return s.Table()
}

// Table computes the 128 note frequencies of the scale. Notes listed in
// Frequencies override the computed value.
func (s *Scale) Table() (freqs [mtscv.NumNotes]float64, filter [mtscv.NumNotes]bool, err error) {
	if !validFrequency(s.Reference.Frequency) {
		return freqs, filter, fmt.Errorf("scale %q: %w", s.Name, errNoReference)
	}
	if s.Reference.Note < 0 || s.Reference.Note >= mtscv.NumNotes {
		return freqs, filter, fmt.Errorf("scale %q: reference note %d out of range", s.Name, s.Reference.Note)
	}
	period := s.Period
	if period == 0 {
		period = 1200
	}
	if period < 0 {
		return freqs, filter, fmt.Errorf("scale %q: negative period %v", s.Name, period)
	}
	// an empty degree list is an equal division with the period as its step
	steps := append([]float64{0}, s.Degrees...)
	for i := 1; i < len(steps); i++ {
		if steps[i] <= steps[i-1] || steps[i] >= period {
			return freqs, filter, fmt.Errorf("scale %q: degree %v is not ascending within the period", s.Name, steps[i])
		}
	}
	n := len(steps)
	for note := range freqs {
		rel := note - s.Reference.Note
		octave := floorDiv(rel, n)
		cents := float64(octave)*period + steps[rel-octave*n]
		freqs[note] = s.Reference.Frequency * math.Pow(2, cents/1200)
	}
	for note, f := range s.Frequencies {
		if note < 0 || note >= mtscv.NumNotes {
			return freqs, filter, fmt.Errorf("scale %q: frequency override for note %d out of range", s.Name, note)
		}
		if !validFrequency(f) {
			return freqs, filter, fmt.Errorf("scale %q: invalid frequency %v for note %d", s.Name, f, note)
		}
		freqs[note] = f
	}
	for _, note := range s.Filter {
		if note < 0 || note >= mtscv.NumNotes {
			return freqs, filter, fmt.Errorf("scale %q: filtered note %d out of range", s.Name, note)
		}
		filter[note] = true
	}
	return freqs, filter, nil
}

// Load connects the library to the scale as its master table.
func (l *Library) Load(freqs [mtscv.NumNotes]float64, filter [mtscv.NumNotes]bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hasMaster = true
	for i, f := range freqs {
		if validFrequency(f) {
			l.freqs[i] = f
		}
	}
	l.filter = filter
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
