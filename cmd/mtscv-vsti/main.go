//go:build plugin

package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/oddsound/mtscv"
	"github.com/oddsound/mtscv/cmd"
	"github.com/oddsound/mtscv/midicv"
	"github.com/oddsound/mtscv/quantizer"
	"github.com/oddsound/mtscv/tuning"
	"pipelined.dev/audio/vst2"
)

const (
	pluginName    = "mtscv"
	pluginVersion = int32(100)
)

var pluginID = [4]byte{'M', 'T', 'C', 'V'}

// library is shared by all plugin instances of the process, so a tuning
// dump received by one instance retunes all of them.
var library = tuning.NewLibrary()

func sampleTime(h vst2.Host) float64 {
	timeInfo := h.GetTimeInfo(0)
	if timeInfo == nil || timeInfo.SampleRate <= 0 {
		return 1.0 / 44100
	}
	return 1 / timeInfo.SampleRate
}

// handleEvent queues MIDI events and applies tuning dumps to lib.
func handleEvent(ev vst2.Event, queue *midicv.EventQueue, lib *tuning.Library) {
	switch v := ev.(type) {
	case *vst2.MIDIEvent:
		if msg := midicv.ShortMessage(v.Data[:]); msg != nil {
			queue.Push(int(v.DeltaFrames), msg)
		}
	case *vst2.SysExMIDIEvent:
		if err := lib.ApplySysEx(v.SysExDump.Bytes()); err != nil {
			fmt.Fprintf(os.Stderr, "ignoring SysEx: %v\n", err)
		}
	}
}

func init() {
	vst2.PluginAllocator = func(h vst2.Host) (vst2.Plugin, vst2.Dispatcher) {
		prefs := cmd.MakePreferences()
		cols, err := cmd.ParseColumns(prefs.Columns)
		if err != nil || len(cols) == 0 {
			cols = cmd.DefaultColumns(mtscv.MaxChannels)
		}
		var mu sync.Mutex
		host := cmd.NewHost(midicv.NewEngine(library), quantizer.New(library), cols)
		queue := midicv.NewEventQueue(1024)
		buffer := mtscv.MakeCVBuffer(len(cols), 1024)
		return vst2.Plugin{
				UniqueID:       pluginID,
				Version:        pluginVersion,
				InputChannels:  0,
				OutputChannels: len(cols),
				Name:           pluginName,
				Vendor:         "oddsound/mtscv",
				Category:       vst2.PluginCategorySynth,
				Flags:          vst2.PluginIsSynth,
				ProcessFloatFunc: func(in, out vst2.FloatBuffer) {
					mu.Lock()
					defer mu.Unlock()
					dt := sampleTime(h)
					for start := 0; start < out.Frames; start += buffer.Frames() {
						n := min(buffer.Frames(), out.Frames-start)
						block := buffer
						if n < buffer.Frames() {
							block = make(mtscv.CVBuffer, len(buffer))
							for i := range buffer {
								block[i] = buffer[i][:n]
							}
						}
						host.Render(queue, block, dt)
						for i := range block {
							copy(out.Channel(i)[start:start+n], block[i])
						}
					}
				},
			}, vst2.Dispatcher{
				CanDoFunc: func(pcds vst2.PluginCanDoString) vst2.CanDoResponse {
					switch pcds {
					case vst2.PluginCanReceiveEvents, vst2.PluginCanReceiveMIDIEvent, vst2.PluginCanReceiveTimeInfo:
						return vst2.YesCanDo
					}
					return vst2.NoCanDo
				},
				ProcessEventsFunc: func(ev *vst2.EventsPtr) {
					mu.Lock()
					defer mu.Unlock()
					for i := 0; i < ev.NumEvents(); i++ {
						handleEvent(ev.Event(i), queue, library)
					}
				},
				CloseFunc: func() {
					mu.Lock()
					defer mu.Unlock()
					host.Close()
				},
				GetChunkFunc: func(isPreset bool) []byte {
					mu.Lock()
					defer mu.Unlock()
					data, err := mtscv.MarshalState(host.State(mtscv.DefaultState()))
					if err != nil {
						return nil
					}
					return data
				},
				SetChunkFunc: func(data []byte, isPreset bool) {
					mu.Lock()
					defer mu.Unlock()
					s := host.State(mtscv.DefaultState())
					if err := mtscv.UnmarshalState(data, &s); err != nil {
						fmt.Fprintf(os.Stderr, "could not restore state: %v\n", err)
						return
					}
					if err := host.SetState(s); err != nil {
						fmt.Fprintf(os.Stderr, "could not restore state: %v\n", err)
					}
					queue.Clear()
				},
			}
	}
}

func main() {}
