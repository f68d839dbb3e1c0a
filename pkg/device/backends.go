package device

import (
	"fmt"

	"github.com/rho180/offload/pkg/device/emulator"
	"github.com/rho180/offload/pkg/device/fpga"
)

// emulatorDevice adapts the emulator backend to the Device interface.
type emulatorDevice struct {
	*emulator.Device
}

func (emulatorDevice) Backend() Backend { return BackendEmulator }

func openEmulator(config *Config) (Device, error) {
	if !emulator.IsAvailable() {
		return nil, fmt.Errorf("%w: emulator", ErrNotAvailable)
	}
	dev, err := emulator.New(config.ComputeUnits)
	if err != nil {
		return nil, err
	}
	return emulatorDevice{dev}, nil
}

// fpgaDevice adapts the FPGA backend to the Device interface.
type fpgaDevice struct {
	*fpga.Device
}

func (fpgaDevice) Backend() Backend { return BackendFPGA }

func openFPGA(config *Config) (Device, error) {
	if !fpga.IsAvailable() {
		return nil, fmt.Errorf("%w: fpga (%v)", ErrNotAvailable, fpga.ErrFPGANotAvailable)
	}
	dev, err := fpga.New(0)
	if err != nil {
		return nil, err
	}
	return fpgaDevice{dev}, nil
}
