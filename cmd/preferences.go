package cmd

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

type (
	Preferences struct {
		SampleRate int
		BlockSize  int
		MIDI       MIDIPreferences
		// State is the path of a state file restored at start-up.
		State string
		// Columns is a comma separated list, see ParseColumns. Empty means
		// DefaultColumns.
		Columns string
		// Trace is a template printed once per block, see NewTracer.
		Trace    string
		YmlError error `yaml:"-"`
	}

	MIDIPreferences struct {
		Input  string
		Output string
	}
)

//go:embed preferences.yml
var defaultPreferencesYaml []byte

func loadDefaultPreferences() Preferences {
	var preferences Preferences
	err := yaml.UnmarshalStrict(defaultPreferencesYaml, &preferences)
	if err != nil {
		panic(fmt.Errorf("failed to unmarshal preferences: %w", err))
	}
	return preferences
}

// ReadCustomConfigYml modifies the target argument, i.e. needs a pointer
func ReadCustomConfigYml(filename string, target interface{}) (exists bool, err error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return false, err
	}
	path := filepath.Join(configDir, "mtscv", filename)
	bytes, err2 := os.ReadFile(path)
	if err2 != nil {
		return false, err2
	}
	err = yaml.UnmarshalStrict(bytes, target)
	return true, err
}

// MakePreferences returns the embedded defaults overridden by the user's
// preferences.yml. A broken user file is reported in YmlError.
func MakePreferences() Preferences {
	preferences := loadDefaultPreferences()
	exists, err := ReadCustomConfigYml("preferences.yml", &preferences)
	if exists {
		preferences.YmlError = err
	}
	return preferences
}

func (p Preferences) SampleTime() float64 {
	return 1 / float64(max(p.SampleRate, 1))
}
