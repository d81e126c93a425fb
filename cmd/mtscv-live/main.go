package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"

	"github.com/oddsound/mtscv"
	"github.com/oddsound/mtscv/cmd"
	"github.com/oddsound/mtscv/cvmidi"
	"github.com/oddsound/mtscv/interval"
	"github.com/oddsound/mtscv/midicv"
	"github.com/oddsound/mtscv/oto"
	"github.com/oddsound/mtscv/quantizer"
	"github.com/oddsound/mtscv/tuning"
	"github.com/oddsound/mtscv/version"
	"gitlab.com/gomidi/midi/v2"
)

func main() {
	prefs := cmd.MakePreferences()
	if prefs.YmlError != nil {
		fmt.Fprintf(os.Stderr, "could not read preferences: %v\n", prefs.YmlError)
	}
	midiInput := flag.String("midi-input", prefs.MIDI.Input, "Connect MIDI input to matching device name prefix. Empty takes the first input.")
	midiOutput := flag.String("midi-output", prefs.MIDI.Output, "Send the quantized voices as MIDI to the output matching this name prefix.")
	scaleFile := flag.String("scale", "", "Tune with this .yml scale file instead of waiting for tuning SysEx.")
	stateFile := flag.String("state", prefs.State, "Restore the settings from this .yml or .json file, and save them there on exit.")
	columns := flag.String("columns", prefs.Columns, "Comma separated output columns, one per audio channel.")
	intervalFlag := flag.String("interval", "", "Transpose the CV by this interval before quantizing, as a ratio such as 3/2 or in cents such as 701.955c.")
	transpose := flag.Int("transpose", 1, "Number of intervals to transpose by.")
	trace := flag.String("trace", prefs.Trace, "Print this template once per block.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}

	lib := tuning.NewLibrary()
	if *scaleFile != "" {
		if err := cmd.LoadScaleFile(*scaleFile, lib); err != nil {
			log.Fatal(err)
		}
	}
	state := mtscv.DefaultState()
	if *stateFile != "" {
		if err := cmd.ReadStateFile(*stateFile, &state); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Fatal(err)
		}
	}
	cols, err := cmd.ParseColumns(*columns)
	if err != nil {
		log.Fatal(err)
	}
	host := cmd.NewHost(midicv.NewEngine(lib), quantizer.New(lib), cols)
	defer host.Close()
	if err := host.SetState(state); err != nil {
		log.Fatal(err)
	}
	if *intervalFlag != "" {
		host.Interval = interval.New()
		if err := host.Interval.Set(*intervalFlag); err != nil {
			log.Fatal(err)
		}
		host.Interval.SetTranspose(*transpose)
	}
	if *trace != "" {
		if host.Tracer, err = cmd.NewTracer(*trace, os.Stderr); err != nil {
			log.Fatal(err)
		}
	}

	midiContext := cmd.NewMidiContext(prefs.SampleRate)
	defer midiContext.Close()
	midiContext.SetSysExHandler(func(msg midi.Message) {
		if err := lib.ApplyMessage(msg); err != nil {
			fmt.Fprintf(os.Stderr, "ignoring SysEx: %v\n", err)
		}
	})
	if err := midiContext.TryToOpenBy(*midiInput, *midiInput == ""); err != nil {
		log.Fatal(err)
	}
	var generator *cvmidi.Generator
	if *midiOutput != "" {
		send, err := midiContext.OpenOutput(*midiOutput)
		if err != nil {
			log.Fatal(err)
		}
		generator = cvmidi.NewGenerator(lib, send)
		defer generator.Close()
	}

	audioContext, err := oto.NewContext(prefs.SampleRate, len(host.Columns))
	if err != nil {
		log.Fatal(err)
	}
	defer audioContext.Close()
	sink, err := audioContext.Output(len(host.Columns))
	if err != nil {
		log.Fatal(err)
	}
	defer sink.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	buffer := mtscv.MakeCVBuffer(len(host.Columns), max(prefs.BlockSize, 1))
	sampleTime := prefs.SampleTime()
	var in cvmidi.Inputs
loop:
	for {
		select {
		case <-interrupt:
			break loop
		default:
		}
		if err := host.Render(midiContext, buffer, sampleTime); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		if generator != nil {
			// the generator follows the last frame of each block
			out, qout := host.Outputs()
			in.Pitch = cvmidi.Cable(qout.CV[:qout.Channels])
			in.Gate = cvmidi.Cable(out.Gate[:out.Channels])
			in.Velocity = cvmidi.Cable(out.Velocity[:out.Channels])
			if err := generator.Process(&in, sampleTime*float64(buffer.Frames())); err != nil {
				fmt.Fprintf(os.Stderr, "could not send MIDI: %v\n", err)
			}
		}
		if err := sink.WriteCV(buffer); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			break
		}
	}
	if generator != nil {
		generator.Panic()
	}
	if *stateFile != "" {
		s := host.State(state)
		if err := cmd.WriteStateFile(*stateFile, s); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
	}
}
