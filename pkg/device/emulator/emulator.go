// Package emulator provides the pure-Go emulation device.
//
// The emulator executes kernels on host goroutines, one worker per compute
// unit, and is always available. It is the default target for every sample,
// the same role the emulation selector plays in hardware offload flows:
// functionally correct execution with no special hardware attached.
package emulator

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/rho180/offload/pkg/kernel"
)

// Device is the pure-Go emulation device.
type Device struct {
	computeUnits int

	mu       sync.Mutex
	released bool
	launched int64
}

// IsAvailable reports whether the emulator can run on this host. Always true.
func IsAvailable() bool { return true }

// New creates an emulation device with the given number of compute units.
// Zero or negative uses one unit per host CPU.
func New(computeUnits int) (*Device, error) {
	if computeUnits <= 0 {
		computeUnits = runtime.NumCPU()
	}
	return &Device{computeUnits: computeUnits}, nil
}

// Name returns a human-readable device description.
func (d *Device) Name() string {
	return fmt.Sprintf("Go Emulation Device (%s, %d compute units)", runtime.GOARCH, d.computeUnits)
}

// ComputeUnits returns the number of concurrently scheduled workers.
func (d *Device) ComputeUnits() int { return d.computeUnits }

// Run executes k to completion and returns any host-level fault it raised.
func (d *Device) Run(k *kernel.Kernel) error {
	d.mu.Lock()
	if d.released {
		d.mu.Unlock()
		return fmt.Errorf("emulator: device released")
	}
	d.launched++
	d.mu.Unlock()

	return k.Launch(d.computeUnits)
}

// Launched returns how many kernels this device has executed.
func (d *Device) Launched() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.launched
}

// Release marks the device unusable. The emulator holds no external
// resources, so this only guards against use-after-release bugs.
func (d *Device) Release() {
	d.mu.Lock()
	d.released = true
	d.mu.Unlock()
}
