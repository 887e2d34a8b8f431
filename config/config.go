// Package config loads the optional .lydiff.yaml settings file. Values act as
// defaults; explicit CLI flags always win.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// FileName is looked up in the working directory first, then in $HOME.
const FileName = ".lydiff.yaml"

// Config mirrors the settings file. Pointer fields distinguish "absent" from
// zero values so flag defaults are only overridden when the file sets them.
type Config struct {
	// Tolerance is the default erosion distance in database units.
	Tolerance *float64 `yaml:"tolerance"`
	// Backend forces an engine kind (native, klayout, boolean).
	Backend string `yaml:"backend"`
	// KLayoutPath overrides the klayout executable name or path.
	KLayoutPath string `yaml:"klayout_path"`
	// TestRoot is the golden-store root directory.
	TestRoot string `yaml:"test_root"`
	// Verbose enables per-(cell, layer) status lines by default.
	Verbose *bool `yaml:"verbose"`
}

// Load reads the first settings file found. A missing file is not an error;
// the zero Config is returned.
func Load() (*Config, error) {
	var candidates []string
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, FileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, FileName))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return LoadFile(path)
	}
	return &Config{}, nil
}

// LoadFile reads one settings file. Unknown keys are rejected so typos fail
// loudly instead of being silently ignored.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %v", path, err)
	}
	cfg := &Config{}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %v", path, err)
	}
	if cfg.Tolerance != nil && *cfg.Tolerance < 0 {
		return nil, fmt.Errorf("config %s: tolerance must be >= 0, got %g", path, *cfg.Tolerance)
	}
	return cfg, nil
}
