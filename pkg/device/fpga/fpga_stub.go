// Package fpga is the FPGA device backend.
//
// This is a stub: driving real FPGA hardware requires a vendor board-support
// package and a cgo bridge that are out of scope for this repository, so the
// backend always reports unavailable and the selector falls back to the
// emulator. The stub keeps the backend surface identical to a real one so
// samples and the CLI treat both paths the same way.
package fpga

import (
	"errors"

	"github.com/rho180/offload/pkg/kernel"
)

// Errors
var (
	ErrFPGANotAvailable = errors.New("fpga: no board-support package linked")
	ErrDeviceCreation   = errors.New("fpga: failed to create device")
)

// Device represents an FPGA accelerator (stub).
type Device struct{}

// IsAvailable returns false: no board-support package is linked.
func IsAvailable() bool { return false }

// New returns an error on hosts without FPGA support.
func New(deviceID int) (*Device, error) {
	return nil, ErrFPGANotAvailable
}

// Name returns an empty string.
func (d *Device) Name() string { return "" }

// ComputeUnits returns 0.
func (d *Device) ComputeUnits() int { return 0 }

// Run returns an error.
func (d *Device) Run(k *kernel.Kernel) error { return ErrFPGANotAvailable }

// Release is a no-op stub.
func (d *Device) Release() {}
