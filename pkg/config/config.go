// Package config loads runtime configuration for the sample programs.
//
// The corpus's hardware build flows surface device selection, profiling
// toggles, and array-size overrides as build options; here they are a YAML
// file shared by the CLI and the samples. Every field has a default, so a
// missing file configures a working setup.
//
// Example file:
//
//	device:
//	  backend: emulator
//	  compute_units: 8
//	profiling: true
//	trace_dir: ./runs
//	samples:
//	  task-sequence:
//	    elements: 4096
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rho180/offload/pkg/device"
)

// SampleConfig overrides per-sample defaults.
type SampleConfig struct {
	// Elements overrides the sample's default element count. Zero keeps the
	// sample's built-in default.
	Elements int `yaml:"elements"`
}

// DeviceConfig selects and sizes the offload device.
type DeviceConfig struct {
	// Backend is the preferred device backend ("emulator", "fpga").
	// Empty auto-detects.
	Backend string `yaml:"backend"`

	// ComputeUnits overrides the emulator worker count. Zero uses one per
	// host CPU.
	ComputeUnits int `yaml:"compute_units"`
}

// Config is the full runtime configuration.
type Config struct {
	Device    DeviceConfig            `yaml:"device"`
	Profiling bool                    `yaml:"profiling"`
	TraceDir  string                  `yaml:"trace_dir"`
	Samples   map[string]SampleConfig `yaml:"samples"`
}

// Default returns the configuration used when no file is given: auto-detected
// device, profiling on, no persistent trace store.
func Default() *Config {
	return &Config{
		Profiling: true,
		Samples:   map[string]SampleConfig{},
	}
}

// Load reads a YAML configuration file. An empty path returns Default; a
// missing file is an error so typos in --config do not silently fall back.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Samples == nil {
		cfg.Samples = map[string]SampleConfig{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values no backend or sample accepts.
func (c *Config) Validate() error {
	switch device.Backend(c.Device.Backend) {
	case device.BackendEmulator, device.BackendFPGA, device.Backend(""):
	default:
		return fmt.Errorf("unknown device backend %q", c.Device.Backend)
	}
	if c.Device.ComputeUnits < 0 {
		return errors.New("compute_units must not be negative")
	}
	for name, sc := range c.Samples {
		if sc.Elements < 0 {
			return fmt.Errorf("sample %q: elements must not be negative", name)
		}
	}
	return nil
}

// DeviceSelection converts the configuration to device selection options.
func (c *Config) DeviceSelection() *device.Config {
	sel := device.DefaultConfig()
	if c.Device.Backend != "" {
		sel.PreferredBackend = device.Backend(c.Device.Backend)
	}
	sel.ComputeUnits = c.Device.ComputeUnits
	return sel
}

// Elements returns the configured element count for sample, or fallback when
// no override is set.
func (c *Config) Elements(sample string, fallback int) int {
	if sc, ok := c.Samples[sample]; ok && sc.Elements > 0 {
		return sc.Elements
	}
	return fallback
}
