package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Defaults()
	if cfg.Engine != want.Engine {
		t.Errorf("Engine = %q, want %q", cfg.Engine, want.Engine)
	}
	if cfg.BalanceBand != 50 || cfg.DecisiveThreshold != 200 {
		t.Errorf("thresholds = %d/%d, want 50/200", cfg.BalanceBand, cfg.DecisiveThreshold)
	}
	if cfg.MovetimeMS != 300 {
		t.Errorf("MovetimeMS = %d, want 300", cfg.MovetimeMS)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crux.yaml")
	content := "engine: /opt/engines/stockfish\nworkers: 2\nbalance_band: 75\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine != "/opt/engines/stockfish" {
		t.Errorf("Engine = %q, want file value", cfg.Engine)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Workers)
	}
	if cfg.BalanceBand != 75 {
		t.Errorf("BalanceBand = %d, want 75", cfg.BalanceBand)
	}
	// Untouched keys keep their defaults.
	if cfg.DecisiveThreshold != 200 {
		t.Errorf("DecisiveThreshold = %d, want default 200", cfg.DecisiveThreshold)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crux.yaml")
	if err := os.WriteFile(path, []byte("movetime_ms: 500\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	t.Setenv("CRUX_MOVETIME_MS", "150")
	t.Setenv("CRUX_ENGINE", "lc0")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MovetimeMS != 150 {
		t.Errorf("MovetimeMS = %d, want env value 150", cfg.MovetimeMS)
	}
	if cfg.Engine != "lc0" {
		t.Errorf("Engine = %q, want env value %q", cfg.Engine, "lc0")
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("CRUX_MOVETIME_MS", "0")
	if _, err := Load(""); err == nil {
		t.Error("Load() with zero movetime succeeded, want error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() with missing file succeeded, want error")
	}
}
