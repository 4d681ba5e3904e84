package config

import (
	"path/filepath"
	"testing"
)

func TestPath_UsesXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdgtest")

	got := Path()
	want := filepath.Join("/tmp/xdgtest", "circuitctl", "config.yaml")
	if got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Iterations != defaultIterations {
		t.Errorf("Iterations = %d, want %d", cfg.Iterations, defaultIterations)
	}
	if cfg.ProfileDBPath != "" {
		t.Errorf("ProfileDBPath = %q, want empty", cfg.ProfileDBPath)
	}
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := &Config{ProfileDBPath: "/var/lib/circuitctl/profile.db", Iterations: 50}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ProfileDBPath != cfg.ProfileDBPath {
		t.Errorf("ProfileDBPath = %q, want %q", got.ProfileDBPath, cfg.ProfileDBPath)
	}
	if got.Iterations != cfg.Iterations {
		t.Errorf("Iterations = %d, want %d", got.Iterations, cfg.Iterations)
	}
}

func TestLoad_ZeroIterationsOnDiskFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg := &Config{ProfileDBPath: "x.db"}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Iterations != defaultIterations {
		t.Errorf("Iterations = %d, want default %d", got.Iterations, defaultIterations)
	}
}
