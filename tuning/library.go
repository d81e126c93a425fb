package tuning

import (
	"errors"
	"math"
	"sync"

	"github.com/oddsound/mtscv"
)

// ErrMasterConnected is returned when a second master tries to connect.
var ErrMasterConnected = errors.New("a tuning master is already connected")

type (
	// Library is the shared tuning store. One master publishes a table into
	// it, any number of clients query it. All methods are safe for
	// concurrent use; a client sees every change on its next query.
	Library struct {
		mu        sync.RWMutex
		hasMaster bool
		freqs     [mtscv.NumNotes]float64
		filter    [mtscv.NumNotes]bool
		clients   int
	}

	libraryClient struct {
		lib    *Library
		closed bool
	}
)

// NewLibrary returns a library with no master and a 12-TET table.
func NewLibrary() *Library {
	return &Library{freqs: EqualTable()}
}

// RegisterClient implements mtscv.Registry.
func (l *Library) RegisterClient() mtscv.Client {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clients++
	return &libraryClient{lib: l}
}

// NumClients returns the number of clients that have not been closed.
func (l *Library) NumClients() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.clients
}

// ConnectMaster marks the library as driven by a master. The table keeps its
// current contents until the master changes it.
func (l *Library) ConnectMaster() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hasMaster {
		return ErrMasterConnected
	}
	l.hasMaster = true
	return nil
}

// DisconnectMaster removes the master and restores 12-TET with no filtered
// notes.
func (l *Library) DisconnectMaster() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hasMaster = false
	l.freqs = EqualTable()
	l.filter = [mtscv.NumNotes]bool{}
}

func (l *Library) HasMaster() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hasMaster
}

// SetNoteFrequency retunes a single note. Non-positive or non-finite
// frequencies are ignored.
func (l *Library) SetNoteFrequency(note int, freq float64) {
	if note < 0 || note >= mtscv.NumNotes || !validFrequency(freq) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.freqs[note] = freq
}

// SetFrequencies replaces the whole table. Invalid entries keep their
// previous value.
func (l *Library) SetFrequencies(freqs [mtscv.NumNotes]float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, f := range freqs {
		if validFrequency(f) {
			l.freqs[i] = f
		}
	}
}

// SetNoteFilter excludes (or includes back) a note from the active scale.
func (l *Library) SetNoteFilter(note int, filtered bool) {
	if note < 0 || note >= mtscv.NumNotes {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.filter[note] = filtered
}

// SetFilter replaces the whole filter.
func (l *Library) SetFilter(filter [mtscv.NumNotes]bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.filter = filter
}

// Frequencies returns a copy of the current table.
func (l *Library) Frequencies() [mtscv.NumNotes]float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.freqs
}

func validFrequency(f float64) bool {
	return f > 0 && !math.IsInf(f, 0)
}

func (c *libraryClient) HasMaster() bool {
	return c.lib.HasMaster()
}

func (c *libraryClient) NoteToFrequency(note int, channel int) float64 {
	note = mtscv.Clamp(note, 0, mtscv.NumNotes-1)
	c.lib.mu.RLock()
	defer c.lib.mu.RUnlock()
	if !c.lib.hasMaster {
		return EqualFrequency(float64(note))
	}
	return c.lib.freqs[note]
}

// FrequencyToNote returns the unfiltered note nearest to freq in log
// frequency. If every note is filtered, the 12-TET note is returned.
func (c *libraryClient) FrequencyToNote(freq float64, channel int) int {
	if !(freq > 0) {
		return 0
	}
	c.lib.mu.RLock()
	defer c.lib.mu.RUnlock()
	if !c.lib.hasMaster {
		return EqualNote(freq)
	}
	best, bestDist := -1, math.Inf(1)
	for i, f := range c.lib.freqs {
		if c.lib.filter[i] {
			continue
		}
		if d := math.Abs(math.Log2(f / freq)); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return EqualNote(freq)
	}
	return best
}

func (c *libraryClient) ShouldFilterNote(note int, channel int) bool {
	if note < 0 || note >= mtscv.NumNotes {
		return true
	}
	c.lib.mu.RLock()
	defer c.lib.mu.RUnlock()
	return c.lib.hasMaster && c.lib.filter[note]
}

func (c *libraryClient) RetuningInSemitones(note int, channel int) float64 {
	note = mtscv.Clamp(note, 0, mtscv.NumNotes-1)
	c.lib.mu.RLock()
	defer c.lib.mu.RUnlock()
	if !c.lib.hasMaster {
		return 0
	}
	return 12 * math.Log2(c.lib.freqs[note]/EqualFrequency(float64(note)))
}

// Close deregisters the client. Closing twice is a no-op.
func (c *libraryClient) Close() error {
	c.lib.mu.Lock()
	defer c.lib.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.lib.clients--
	return nil
}
