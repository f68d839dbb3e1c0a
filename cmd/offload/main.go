// Command offload is the umbrella CLI for the offload compute toolkit. It
// lists devices, runs the registered walkthroughs, and browses the run
// history.
//
// Usage:
//
//	offload [command]
//
// Commands:
//
//	devices            List detected backends
//	samples            List registered walkthroughs
//	run <sample> [n]   Run a walkthrough, optionally overriding its size
//	history            Show persisted runs from the trace store
//
// Example:
//
//	offload devices
//	offload run task-sequence 65536 --backend emulator
//	offload --config offload.yaml run matmul-localmem
//	offload history
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rho180/offload/pkg/config"
	"github.com/rho180/offload/pkg/device"
	"github.com/rho180/offload/pkg/samples"
	"github.com/rho180/offload/pkg/trace"
)

var (
	configPath string
	backend    string
	noProfile  bool
)

func main() {
	root := &cobra.Command{
		Use:           "offload",
		Short:         "Run and inspect offload compute walkthroughs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")

	runCmd := &cobra.Command{
		Use:   "run <sample> [elements]",
		Short: "Run a walkthrough on the selected device",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runSample,
	}
	runCmd.Flags().StringVar(&backend, "backend", "", "device backend: emulator or fpga (default auto)")
	runCmd.Flags().BoolVar(&noProfile, "no-profile", false, "disable kernel profiling timestamps")

	root.AddCommand(
		&cobra.Command{
			Use:   "devices",
			Short: "List detected backends",
			Args:  cobra.NoArgs,
			RunE:  listDevices,
		},
		&cobra.Command{
			Use:   "samples",
			Short: "List registered walkthroughs",
			Args:  cobra.NoArgs,
			RunE:  listSamples,
		},
		runCmd,
		&cobra.Command{
			Use:   "history",
			Short: "Show persisted runs from the trace store",
			Args:  cobra.NoArgs,
			RunE:  showHistory,
		},
	)

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if backend != "" {
		cfg.Device.Backend = backend
	}
	if noProfile {
		cfg.Profiling = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func listDevices(cmd *cobra.Command, args []string) error {
	for _, info := range device.Detect() {
		status := "unavailable"
		if info.Available {
			status = "available"
		}
		fmt.Printf("%-10s %-12s", info.Backend, status)
		if info.Available {
			fmt.Printf(" %s (%s)", info.Name, info.Detail)
		} else if info.Detail != "" {
			fmt.Printf(" %s", info.Detail)
		}
		fmt.Println()
	}
	return nil
}

func listSamples(cmd *cobra.Command, args []string) error {
	for _, s := range samples.List() {
		fmt.Printf("%-18s %s (default %d elements)\n", s.Name, s.Description, s.DefaultElements)
	}
	return nil
}

func runSample(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	elements := 0
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid element count %q", args[1])
		}
		elements = n
	}

	opts := samples.Options{
		Config:   cfg,
		Elements: elements,
		Out:      os.Stdout,
	}

	if cfg.TraceDir != "" {
		store, err := trace.Open(cfg.TraceDir)
		if err != nil {
			return fmt.Errorf("opening trace store: %w", err)
		}
		defer store.Close()
		opts.Store = store
	}

	report, err := samples.Run(args[0], opts)
	if err != nil {
		return err
	}
	if !report.Passed {
		os.Exit(1)
	}
	return nil
}

func showHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.TraceDir == "" {
		return fmt.Errorf("no trace_dir configured; set one in the config file to persist runs")
	}

	store, err := trace.Open(cfg.TraceDir)
	if err != nil {
		return fmt.Errorf("opening trace store: %w", err)
	}
	defer store.Close()

	records, err := store.List()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	for _, rec := range records {
		result := "FAILED"
		if rec.Passed {
			result = "PASSED"
		}
		fmt.Printf("%s  %-18s %-9s %8d elements  %s  %s\n",
			rec.StartedAt.Format("2006-01-02 15:04:05"),
			rec.Sample, rec.Backend, rec.Elements, result, rec.ID)
	}
	return nil
}
