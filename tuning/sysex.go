package tuning

import (
	"errors"
	"fmt"
	"math"

	"github.com/oddsound/mtscv"
	"gitlab.com/gomidi/midi/v2"
)

var (
	ErrNotSysEx         = errors.New("not a system exclusive message")
	ErrUnsupportedSysEx = errors.New("unsupported MIDI tuning message")
)

// MIDI Tuning Standard sub-IDs (sub-ID#1 is always 0x08).
const (
	mtsSubID          = 0x08
	mtsBulkDump       = 0x01
	mtsSingleNote     = 0x02
	mtsSingleNoteBank = 0x07

	universalNonRealTime = 0x7E
	universalRealTime    = 0x7F
)

// ApplyMessage applies a MIDI Tuning Standard SysEx message, see ApplySysEx.
func (l *Library) ApplyMessage(msg midi.Message) error {
	var data []byte
	if !msg.GetSysEx(&data) {
		return ErrNotSysEx
	}
	return l.ApplySysEx(data)
}

// ApplySysEx applies a MIDI Tuning Standard message: bulk tuning dump,
// single note tuning change, or single note tuning change with bank. The
// F0/F7 framing bytes are optional. Receiving tuning data connects the
// library to a master if it was not already. Program and bank numbers are
// ignored; the library holds a single table.
func (l *Library) ApplySysEx(data []byte) error {
	if len(data) > 0 && data[0] == 0xF0 {
		data = data[1:]
	}
	if len(data) > 0 && data[len(data)-1] == 0xF7 {
		data = data[:len(data)-1]
	}
	if len(data) < 4 || (data[0] != universalNonRealTime && data[0] != universalRealTime) || data[2] != mtsSubID {
		return ErrUnsupportedSysEx
	}
	body := data[4:]
	switch data[3] {
	case mtsBulkDump:
		// program, 16 byte name, 128 entries of 3 bytes, checksum
		const entries = 1 + 16
		if len(body) < entries+mtscv.NumNotes*3 {
			return fmt.Errorf("%w: bulk dump is %d bytes, too short", ErrUnsupportedSysEx, len(body))
		}
		body = body[entries:]
		l.mu.Lock()
		defer l.mu.Unlock()
		for note := 0; note < mtscv.NumNotes; note++ {
			if f, ok := entryFrequency(body[note*3], body[note*3+1], body[note*3+2]); ok {
				l.freqs[note] = f
			}
		}
		l.hasMaster = true
		return nil
	case mtsSingleNoteBank:
		if len(body) < 1 {
			return fmt.Errorf("%w: missing bank", ErrUnsupportedSysEx)
		}
		body = body[1:]
		fallthrough
	case mtsSingleNote:
		if len(body) < 2 {
			return fmt.Errorf("%w: missing program or count", ErrUnsupportedSysEx)
		}
		count := int(body[1])
		body = body[2:]
		if len(body) < count*4 {
			return fmt.Errorf("%w: %d changes announced, %d bytes present", ErrUnsupportedSysEx, count, len(body))
		}
		l.mu.Lock()
		defer l.mu.Unlock()
		for i := 0; i < count; i++ {
			e := body[i*4 : i*4+4]
			note := int(e[0])
			if note >= mtscv.NumNotes {
				continue
			}
			if f, ok := entryFrequency(e[1], e[2], e[3]); ok {
				l.freqs[note] = f
			}
		}
		l.hasMaster = true
		return nil
	}
	return fmt.Errorf("%w: sub-ID#2 0x%02x", ErrUnsupportedSysEx, data[3])
}

// entryFrequency decodes a three byte MTS frequency: a semitone and a 14-bit
// fraction of a semitone above it. 7F 7F 7F means no change.
func entryFrequency(semitone, msb, lsb byte) (float64, bool) {
	if semitone == 0x7F && msb == 0x7F && lsb == 0x7F {
		return 0, false
	}
	frac := float64(uint16(msb&0x7F)<<7|uint16(lsb&0x7F)) / 16384
	return EqualFrequency(float64(semitone&0x7F) + frac), true
}

// SingleNoteTuning builds a real-time single note tuning change message for
// the given notes and frequencies, suitable for sending to another device.
func SingleNoteTuning(device, program byte, notes []int, freqs []float64) []byte {
	n := min(len(notes), len(freqs), 127)
	ret := []byte{0xF0, universalRealTime, device & 0x7F, mtsSubID, mtsSingleNote, program & 0x7F, byte(n)}
	for i := 0; i < n; i++ {
		ret = append(ret, byte(mtscv.Clamp(notes[i], 0, 127)))
		ret = append(ret, encodeFrequency(freqs[i])...)
	}
	return append(ret, 0xF7)
}

func encodeFrequency(freq float64) []byte {
	if !validFrequency(freq) {
		return []byte{0x7F, 0x7F, 0x7F}
	}
	pitch := 12*math.Log2(freq/440) + 69
	pitch = mtscv.Clamp(pitch, 0, 127+16383.0/16384)
	semitone := int(pitch)
	frac := int((pitch-float64(semitone))*16384 + 0.5)
	if frac >= 16384 {
		semitone++
		frac = 0
	}
	if semitone > 127 {
		semitone, frac = 127, 16383
	}
	return []byte{byte(semitone), byte(frac >> 7), byte(frac & 0x7F)}
}
