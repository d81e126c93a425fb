package cmd

import (
	"fmt"
	"os"

	"github.com/oddsound/mtscv"
	"github.com/oddsound/mtscv/tuning"
)

// ReadStateFile parses a .yml or .json state file into s.
func ReadStateFile(filename string, s *mtscv.State) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("could not read state file %v: %w", filename, err)
	}
	if err := mtscv.UnmarshalState(data, s); err != nil {
		return fmt.Errorf("could not parse state file %v: %w", filename, err)
	}
	return nil
}

// WriteStateFile writes s as YAML.
func WriteStateFile(filename string, s mtscv.State) error {
	data, err := mtscv.MarshalState(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("could not write state file %v: %w", filename, err)
	}
	return nil
}

// LoadScaleFile loads a YAML scale into lib, connecting it as the master.
func LoadScaleFile(filename string, lib *tuning.Library) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("could not open scale file %v: %w", filename, err)
	}
	defer f.Close()
	freqs, filter, err := tuning.LoadScale(f)
	if err != nil {
		return fmt.Errorf("could not load scale file %v: %w", filename, err)
	}
	lib.Load(freqs, filter)
	return nil
}
