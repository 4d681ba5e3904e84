// Package config handles circuitctl's own on-disk preferences: where
// to keep the profile database and how many pids to run by default.
// This is tool configuration, not circuit state — it never touches a
// socket value or a cell definition.
//
// Config is stored at $XDG_CONFIG_HOME/circuitctl/config.yaml,
// falling back to ~/.config/circuitctl/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// defaultIterations is used when a Config on disk doesn't set one.
const defaultIterations = 1

// Config holds circuitctl's preferences.
type Config struct {
	ProfileDBPath string `yaml:"profile-db-path,omitempty"`
	Iterations    int    `yaml:"iterations,omitempty"`
}

// Path returns the config file location, respecting XDG_CONFIG_HOME.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".config", "circuitctl", "config.yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "circuitctl", "config.yaml")
}

// Load reads the config file. If it does not exist, a Config with
// default values is returned, not an error.
func Load() (*Config, error) {
	data, err := os.ReadFile(Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{Iterations: defaultIterations}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = defaultIterations
	}
	return &cfg, nil
}

// Save writes the config to disk, creating directories as needed.
func (c *Config) Save() error {
	p := Path()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
