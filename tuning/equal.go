package tuning

import (
	"math"

	"github.com/oddsound/mtscv"
)

// EqualFrequency returns the 12-TET frequency of a (possibly fractional)
// MIDI note with A4 = 440 Hz.
func EqualFrequency(note float64) float64 {
	return 440 * math.Pow(2, (note-69)/12)
}

// EqualNote returns the nearest 12-TET note to freq, clamped to the MIDI
// range.
func EqualNote(freq float64) int {
	if !(freq > 0) {
		return 0
	}
	n := math.Round(12*math.Log2(freq/440) + 69)
	return int(mtscv.Clamp(n, 0, mtscv.NumNotes-1))
}

// EqualTable returns a 12-TET tuning table.
func EqualTable() (ret [mtscv.NumNotes]float64) {
	for i := range ret {
		ret[i] = EqualFrequency(float64(i))
	}
	return
}

// Equal is a Registry whose clients never see a master and always answer in
// 12-TET.
type Equal struct{}

type equalClient struct{}

func (Equal) RegisterClient() mtscv.Client { return equalClient{} }

func (equalClient) HasMaster() bool { return false }
func (equalClient) NoteToFrequency(note int, channel int) float64 {
	return EqualFrequency(float64(note))
}
func (equalClient) FrequencyToNote(freq float64, channel int) int     { return EqualNote(freq) }
func (equalClient) ShouldFilterNote(note int, channel int) bool       { return false }
func (equalClient) RetuningInSemitones(note int, channel int) float64 { return 0 }
func (equalClient) Close() error                                      { return nil }
