// Command matmul-localmem runs the work-group local-memory walkthrough:
// an N x N matrix multiply where each work-group stages both operand tiles
// in group-local storage behind a barrier before accumulating.
//
// Usage:
//
//	matmul-localmem [flags] [n]
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
//	# Multiply the default 16x16 matrices
//	matmul-localmem
//
//	# 32x32 on the emulator
//	matmul-localmem -backend emulator 32
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

	size := 0
	if flag.NArg() > 0 {
		n, err := strconv.Atoi(flag.Arg(0))
		if err != nil || n <= 0 {
			log.Fatalf("invalid matrix size %q", flag.Arg(0))
		}
		size = n
	}

	cfg := config.Default()
	if *backend != "auto" {
		cfg.Device.Backend = *backend
	}
	cfg.Profiling = !*noProfile
	if err := cfg.Validate(); err != nil {
		log.Fatalf("configuration: %v", err)
	}

	report, err := samples.Run("matmul-localmem", samples.Options{
		Config:   cfg,
		Elements: size,
		Out:      os.Stdout,
	})
	if err != nil {
		log.Fatalf("matmul-localmem: %v", err)
	}
	if !report.Passed {
		os.Exit(1)
	}
}
