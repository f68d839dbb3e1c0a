// Command task-sequence runs the task-sequence walkthrough: the same dot
// product computed first through one task queue handle, then split across
// four independent handles working on quarters of the input.
//
// Usage:
//
//	task-sequence [flags] [elements]
//
// Flags:
//
//	-backend string
//	    Device backend: auto, emulator, or fpga (default: auto)
//	-no-profile
//	    Disable kernel profiling timestamps
//
// Example:
//
//	# Run with the default input size
//	task-sequence
//
//	# Run one million elements on the emulator
//	task-sequence -backend emulator 1048576
package main

import (
	"flag"
	"log"
	"os"
	"strconv"

	"github.com/rho180/offload/pkg/config"
	"github.com/rho180/offload/pkg/samples"
)

func main() {
	backend := flag.String("backend", "auto", "device backend: auto, emulator, or fpga")
	noProfile := flag.Bool("no-profile", false, "disable kernel profiling timestamps")
	flag.Parse()

	elements := 0
	if flag.NArg() > 0 {
		n, err := strconv.Atoi(flag.Arg(0))
		if err != nil || n <= 0 {
			log.Fatalf("invalid element count %q", flag.Arg(0))
		}
		elements = n
	}

	cfg := config.Default()
	if *backend != "auto" {
		cfg.Device.Backend = *backend
	}
	cfg.Profiling = !*noProfile
	if err := cfg.Validate(); err != nil {
		log.Fatalf("configuration: %v", err)
	}

	report, err := samples.Run("task-sequence", samples.Options{
		Config:   cfg,
		Elements: elements,
		Out:      os.Stdout,
	})
	if err != nil {
		log.Fatalf("task-sequence: %v", err)
	}
	if !report.Passed {
		os.Exit(1)
	}
}
