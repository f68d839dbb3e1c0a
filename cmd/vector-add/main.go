// Command vector-add runs the introductory walkthrough: an element-wise
// vector addition dispatched as a parallel-for kernel and verified against
// a host reference.
//
// Usage:
//
//	vector-add [flags] [elements]
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
//	vector-add
//	vector-add -backend emulator 65536
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

	report, err := samples.Run("vector-add", samples.Options{
		Config:   cfg,
		Elements: elements,
		Out:      os.Stdout,
	})
	if err != nil {
		log.Fatalf("vector-add: %v", err)
	}
	if !report.Passed {
		os.Exit(1)
	}
}
