package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oddsound/mtscv"
	"github.com/oddsound/mtscv/cmd"
	"github.com/oddsound/mtscv/gomidi"
	"github.com/oddsound/mtscv/interval"
	"github.com/oddsound/mtscv/midicv"
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
	help := flag.Bool("h", false, "Show help.")
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, everything is placed in the working directory.")
	rawOut := flag.Bool("r", false, "Output the rendered voltages as .raw file.")
	wavOut := flag.Bool("w", false, "Output the rendered voltages as .wav file (default behaviour when no other output is defined).")
	pcm := flag.Bool("c", false, "Convert to 16-bit signed PCM when outputting.")
	sampleRate := flag.Int("rate", prefs.SampleRate, "Sample rate of the output.")
	scaleFile := flag.String("scale", "", "Tune with this .yml scale file.")
	stateFile := flag.String("state", prefs.State, "Restore the engine and quantizer settings from this .yml or .json file.")
	columns := flag.String("columns", prefs.Columns, "Comma separated output columns, e.g. cv0,gate0,quantized0,clock. Defaults to cv and gate of every channel followed by clock.")
	intervalFlag := flag.String("interval", "", "Transpose the CV by this interval before quantizing, as a ratio such as 3/2 or in cents such as 701.955c.")
	transpose := flag.Int("transpose", 1, "Number of intervals to transpose by.")
	tail := flag.Float64("tail", 1, "Seconds rendered after the last event.")
	trace := flag.String("trace", prefs.Trace, "Print this template once per block.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	if !*rawOut && !*wavOut {
		*wavOut = true
	}
	cols, err := cmd.ParseColumns(*columns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid columns: %v\n", err)
		os.Exit(1)
	}
	state := mtscv.DefaultState()
	if *stateFile != "" {
		if err := cmd.ReadStateFile(*stateFile, &state); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
	var iv *interval.Interval
	if *intervalFlag != "" {
		iv = interval.New()
		if err := iv.Set(*intervalFlag); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		iv.SetTranspose(*transpose)
	}
	var tracer *cmd.Tracer
	if *trace != "" {
		if tracer, err = cmd.NewTracer(*trace, os.Stderr); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
	process := func(filename string) error {
		output := func(extension string, contents []byte) error {
			if *stdout {
				os.Stdout.Write(contents)
				return nil
			}
			_, name := filepath.Split(filename)
			dir := *directory
			if dir == "" {
				var err error
				dir, err = os.Getwd()
				if err != nil {
					return fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
				}
			}
			name = strings.TrimSuffix(name, filepath.Ext(name)) + extension
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return fmt.Errorf("could not create output directory %v: %v", dir, err)
			}
			f := filepath.Join(dir, name)
			if err := os.WriteFile(f, contents, 0644); err != nil {
				return fmt.Errorf("could not write file %v: %v", f, err)
			}
			return nil
		}
		lib := tuning.NewLibrary()
		if *scaleFile != "" {
			if err := cmd.LoadScaleFile(*scaleFile, lib); err != nil {
				return err
			}
		}
		inputBytes, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("could not read file %v: %v", filename, err)
		}
		// tuning dumps in the file are applied before rendering starts
		sysex := func(msg midi.Message) {
			if err := lib.ApplyMessage(msg); err != nil {
				fmt.Fprintf(os.Stderr, "%v: ignoring SysEx: %v\n", filename, err)
			}
		}
		queue, length, err := gomidi.ReadSMF(bytes.NewReader(inputBytes), *sampleRate, sysex)
		if err != nil {
			return err
		}
		host := cmd.NewHost(midicv.NewEngine(lib), quantizer.New(lib), cols)
		defer host.Close()
		if err := host.SetState(state); err != nil {
			return err
		}
		host.Interval = iv
		host.Tracer = tracer
		frames := length + int(*tail*float64(*sampleRate))
		buffer := mtscv.MakeCVBuffer(len(host.Columns), 0)
		block := mtscv.MakeCVBuffer(len(host.Columns), max(prefs.BlockSize, 1))
		sampleTime := 1 / float64(*sampleRate)
		for rendered := 0; rendered < frames; rendered += block.Frames() {
			n := min(block.Frames(), frames-rendered)
			part := make(mtscv.CVBuffer, len(block))
			for i := range block {
				part[i] = block[i][:n]
			}
			if err := host.Render(queue, part, sampleTime); err != nil {
				return err
			}
			buffer = buffer.Append(part)
		}
		if *rawOut {
			raw, err := mtscv.Raw(buffer, *pcm)
			if err != nil {
				return fmt.Errorf("could not generate .raw file: %v", err)
			}
			if err := output(".raw", raw); err != nil {
				return fmt.Errorf("error outputting .raw file: %v", err)
			}
		}
		if *wavOut {
			wav, err := mtscv.Wav(buffer, *pcm, *sampleRate)
			if err != nil {
				return fmt.Errorf("could not generate .wav file: %v", err)
			}
			if err := output(".wav", wav); err != nil {
				return fmt.Errorf("error outputting .wav file: %v", err)
			}
		}
		return nil
	}
	retval := 0
	for _, param := range flag.Args() {
		if info, err := os.Stat(param); err == nil && info.IsDir() {
			files, err := filepath.Glob(filepath.Join(param, "*.mid"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not glob the path %v for mid files: %v\n", param, err)
				retval = 1
				continue
			}
			for _, file := range files {
				if err := process(file); err != nil {
					fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", file, err)
					retval = 1
				}
			}
		} else if err := process(param); err != nil {
			fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", param, err)
			retval = 1
		}
	}
	os.Exit(retval)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "mtscv-render renders standard MIDI files to control voltages in .wav or .raw files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
