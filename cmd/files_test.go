package cmd_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oddsound/mtscv"
	"github.com/oddsound/mtscv/cmd"
	"github.com/oddsound/mtscv/tuning"
)

func TestStateFileRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "state.yml")
	s := mtscv.DefaultState()
	s.Channels = 4
	s.PolyMode = mtscv.ReuseMode
	if err := cmd.WriteStateFile(filename, s); err != nil {
		t.Fatalf("WriteStateFile failed: %v", err)
	}
	got := mtscv.DefaultState()
	if err := cmd.ReadStateFile(filename, &got); err != nil {
		t.Fatalf("ReadStateFile failed: %v", err)
	}
	if got.Channels != 4 || got.PolyMode != mtscv.ReuseMode {
		t.Fatalf("got %+v, want 4 channels in reuse mode", got)
	}
	if err := cmd.ReadStateFile(filepath.Join(t.TempDir(), "missing.yml"), &got); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestLoadScaleFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "scale.yml")
	if err := os.WriteFile(filename, []byte("degrees: [200, 400, 700, 900]\nreference: {note: 60, frequency: 261.6255653005986}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	lib := tuning.NewLibrary()
	if err := cmd.LoadScaleFile(filename, lib); err != nil {
		t.Fatalf("LoadScaleFile failed: %v", err)
	}
	if !lib.HasMaster() {
		t.Fatalf("loading a scale should connect the master")
	}
}
