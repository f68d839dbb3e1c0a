// Package device provides offload device selection for sample programs.
//
// A Device executes kernels dispatched by a queue. The selector automatically
// picks the best available backend for the current host and falls back to the
// pure-Go emulator when nothing else is present, so every sample runs
// everywhere.
//
// Usage:
//
//	dev, err := device.Select(nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Release()
//
//	q := queue.New(dev, nil)
package device

import (
	"errors"
	"fmt"

	"github.com/rho180/offload/pkg/kernel"
)

// Errors
var (
	ErrNotAvailable   = errors.New("device: backend not available")
	ErrUnknownBackend = errors.New("device: unknown backend")
)

// Backend identifies a device implementation.
type Backend string

const (
	BackendNone     Backend = "none"
	BackendEmulator Backend = "emulator"
	BackendFPGA     Backend = "fpga"
)

// Config controls device selection.
type Config struct {
	// PreferredBackend is tried first. BackendNone means auto-detect.
	PreferredBackend Backend

	// FallbackOnError selects the emulator when the preferred backend is
	// unavailable instead of failing.
	FallbackOnError bool

	// ComputeUnits overrides the emulator's worker count. Zero uses one
	// worker per host CPU.
	ComputeUnits int
}

// DefaultConfig returns the selection behavior used when Select receives nil:
// auto-detect with emulator fallback.
func DefaultConfig() *Config {
	return &Config{
		PreferredBackend: BackendNone,
		FallbackOnError:  true,
	}
}

// Device is one accelerator able to execute offload kernels. Run blocks until
// the kernel completes and returns any host-level fault it raised.
type Device interface {
	Backend() Backend
	Name() string
	ComputeUnits() int
	Run(k *kernel.Kernel) error
	Release()
}

// opener creates a device for one backend. Backend packages register
// themselves here from the selection table in Select.
type opener func(config *Config) (Device, error)

// Info describes one backend for listing purposes.
type Info struct {
	Backend   Backend
	Name      string
	Available bool
	Detail    string
}

// Select opens a device according to config (nil means DefaultConfig). With
// no preference it tries hardware backends first and falls back to the
// emulator, which is always available.
func Select(config *Config) (Device, error) {
	if config == nil {
		config = DefaultConfig()
	}

	var backends []Backend
	if config.PreferredBackend != BackendNone {
		backends = append(backends, config.PreferredBackend)
	} else {
		backends = append(backends, BackendFPGA)
	}
	backends = append(backends, BackendEmulator)

	var firstErr error
	for i, backend := range backends {
		dev, err := open(backend, config)
		if err == nil {
			return dev, nil
		}
		if i == 0 {
			firstErr = err
		}
		if !config.FallbackOnError {
			break
		}
	}

	if firstErr == nil {
		firstErr = ErrNotAvailable
	}
	return nil, firstErr
}

func open(backend Backend, config *Config) (Device, error) {
	openers := map[Backend]opener{
		BackendEmulator: openEmulator,
		BackendFPGA:     openFPGA,
	}
	fn, ok := openers[backend]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
	return fn(config)
}

// Detect reports every known backend and whether it can be opened on this
// host. Used by the CLI device listing.
func Detect() []Info {
	infos := make([]Info, 0, 2)
	for _, backend := range []Backend{BackendFPGA, BackendEmulator} {
		dev, err := open(backend, DefaultConfig())
		if err != nil {
			infos = append(infos, Info{
				Backend: backend,
				Detail:  err.Error(),
			})
			continue
		}
		infos = append(infos, Info{
			Backend:   backend,
			Name:      dev.Name(),
			Available: true,
			Detail:    fmt.Sprintf("%d compute units", dev.ComputeUnits()),
		})
		dev.Release()
	}
	return infos
}
