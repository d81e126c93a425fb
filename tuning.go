package mtscv

type (
	// Oracle answers tuning queries. Implementations may change their mapping
	// at any time, from any goroutine, so callers should not cache answers
	// longer than they can tolerate. A channel of -1 means "any channel".
	Oracle interface {
		// HasMaster reports whether a tuning source is connected. Without
		// one, all other methods describe 12-TET with A4 = 440 Hz.
		HasMaster() bool
		NoteToFrequency(note int, channel int) float64
		FrequencyToNote(freq float64, channel int) int
		// ShouldFilterNote reports whether the note is not part of the
		// active scale and should be ignored.
		ShouldFilterNote(note int, channel int) bool
		// RetuningInSemitones is the deviation of the note from 12-TET.
		RetuningInSemitones(note int, channel int) float64
	}

	// Client is an Oracle handle that must be closed when no longer used.
	Client interface {
		Oracle
		Close() error
	}

	// Registry hands out Clients. Engines register once when constructed and
	// close their Client on teardown.
	Registry interface {
		RegisterClient() Client
	}
)
