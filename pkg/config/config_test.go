package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rho180/offload/pkg/device"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "offload.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Profiling)
	assert.Empty(t, cfg.Device.Backend)
	assert.Empty(t, cfg.TraceDir)
	assert.Equal(t, 1024, cfg.Elements("anything", 1024))
}

func TestLoadFullFile(t *testing.T) {
	path := writeConfig(t, `
device:
  backend: emulator
  compute_units: 8
profiling: false
trace_dir: ./runs
samples:
  task-sequence:
    elements: 4096
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "emulator", cfg.Device.Backend)
	assert.Equal(t, 8, cfg.Device.ComputeUnits)
	assert.False(t, cfg.Profiling)
	assert.Equal(t, "./runs", cfg.TraceDir)
	assert.Equal(t, 4096, cfg.Elements("task-sequence", 16384))
	assert.Equal(t, 16384, cfg.Elements("matmul-localmem", 16384))
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown backend", "device:\n  backend: quantum\n"},
		{"negative compute units", "device:\n  compute_units: -2\n"},
		{"negative elements", "samples:\n  demo:\n    elements: -1\n"},
		{"malformed yaml", "device: [not a map\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestDeviceSelection(t *testing.T) {
	cfg := Default()
	sel := cfg.DeviceSelection()
	assert.Equal(t, device.BackendNone, sel.PreferredBackend)
	assert.True(t, sel.FallbackOnError)

	cfg.Device.Backend = "fpga"
	cfg.Device.ComputeUnits = 2
	sel = cfg.DeviceSelection()
	assert.Equal(t, device.BackendFPGA, sel.PreferredBackend)
	assert.Equal(t, 2, sel.ComputeUnits)
}
