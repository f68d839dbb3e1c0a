// Package samples contains the demonstration programs of this repository.
//
// Each sample is a short, self-contained walkthrough of one offload feature:
// it generates input on the host, dispatches kernels through a queue, checks
// device results against a host-computed golden reference, and reports one
// PASSED or FAILED line per check. Samples are registered here so both the
// standalone executables under cmd/ and the offload CLI run the same code.
package samples

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/rho180/offload/pkg/config"
	"github.com/rho180/offload/pkg/device"
	"github.com/rho180/offload/pkg/pool"
	"github.com/rho180/offload/pkg/queue"
	"github.com/rho180/offload/pkg/trace"
	"github.com/rho180/offload/pkg/verify"
)

// Errors
var (
	ErrUnknownSample = fmt.Errorf("samples: unknown sample")
)

// Sample is one registered demonstration program.
type Sample struct {
	Name            string
	Description     string
	DefaultElements int

	run func(ctx *Context) error
}

// Context carries everything a sample body needs: the sized input, the queue
// on the selected device, and the checker collecting verification results.
type Context struct {
	Elements int
	Out      io.Writer
	Queue    *queue.Queue
	Checker  *verify.Checker

	// Times collects named kernel durations for reporting and tracing.
	Times map[string]time.Duration

	// Fingerprint identifies the generated input in the trace history.
	// Samples set it after generating their data.
	Fingerprint string

	rng *rand.Rand
}

// Random returns a uniform float32 in [0, 1).
func (c *Context) Random() float32 {
	return c.rng.Float32()
}

// RecordTime stores the profiled duration of ev under name, when profiling
// is enabled on the queue.
func (c *Context) RecordTime(name string, ev *queue.Event) {
	if d, err := ev.ProfilingDuration(); err == nil {
		c.Times[name] = d
	}
}

var registry = []*Sample{
	taskSequenceSample,
	matmulLocalmemSample,
	vectorAddSample,
}

// List returns every registered sample, sorted by name.
func List() []*Sample {
	out := make([]*Sample, len(registry))
	copy(out, registry)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the sample registered under name.
func Lookup(name string) (*Sample, error) {
	for _, s := range registry {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSample, name)
}

// Options configures one sample run.
type Options struct {
	// Config supplies device selection, profiling, and element overrides.
	// Nil uses config defaults.
	Config *config.Config

	// Elements overrides the element count; zero applies the config
	// override and then the sample default.
	Elements int

	// Out receives the sample's console report. Nil uses os.Stdout.
	Out io.Writer

	// Store, when non-nil, persists a run record.
	Store *trace.Store

	// Seed fixes the input generator; zero seeds from the clock.
	Seed int64
}

// Report summarizes a completed run.
type Report struct {
	Sample   string
	Device   string
	Elements int
	Passed   bool
	Times    map[string]time.Duration
}

// Run executes the named sample. Device faults and host-side contract
// violations are caught at this outermost scope and returned as errors;
// verification mismatches are reported on the console but are not errors,
// so sibling checks always complete (their outcome is in Report.Passed).
func Run(name string, opts Options) (*Report, error) {
	sample, err := Lookup(name)
	if err != nil {
		return nil, err
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	elements := opts.Elements
	if elements <= 0 {
		elements = cfg.Elements(sample.Name, sample.DefaultElements)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	dev, err := device.Select(cfg.DeviceSelection())
	if err != nil {
		return nil, fmt.Errorf("selecting device: %w", err)
	}
	defer dev.Release()

	q := queue.New(dev, &queue.Config{EnableProfiling: cfg.Profiling})
	defer q.Close()

	ctx := &Context{
		Elements: elements,
		Out:      out,
		Queue:    q,
		Checker:  &verify.Checker{},
		Times:    make(map[string]time.Duration),
		rng:      rand.New(rand.NewSource(seed)),
	}

	fmt.Fprintf(out, "Sample         : %s\n", sample.Name)
	fmt.Fprintf(out, "Offload Device : %s\n", dev.Name())
	fmt.Fprintf(out, "Elements       : %d\n", elements)

	started := time.Now()
	if err := runGuarded(sample, ctx); err != nil {
		fmt.Fprintf(out, "Caught a host exception:\n%v\n", err)
		return nil, err
	}

	ctx.Checker.Report(out)
	for _, name := range sortedTimeKeys(ctx.Times) {
		fmt.Fprintf(out, "%s time: %.3f ms\n", name, float64(ctx.Times[name])/float64(time.Millisecond))
	}

	report := &Report{
		Sample:   sample.Name,
		Device:   dev.Name(),
		Elements: elements,
		Passed:   ctx.Checker.AllPassed(),
		Times:    ctx.Times,
	}

	if opts.Store != nil {
		rec := &trace.Record{
			Sample:      sample.Name,
			Device:      dev.Name(),
			Backend:     string(dev.Backend()),
			Elements:    elements,
			Fingerprint: ctx.Fingerprint,
			Passed:      report.Passed,
			KernelTimes: ctx.Times,
			StartedAt:   started,
		}
		if err := opts.Store.Put(rec); err != nil {
			return report, fmt.Errorf("recording run: %w", err)
		}
	}

	return report, nil
}

// runGuarded invokes the sample body, converting panics (device faults that
// escaped the queue, accessor contract violations) into errors at the
// outermost scope.
func runGuarded(sample *Sample, ctx *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()
	return sample.run(ctx)
}

func sortedTimeKeys(times map[string]time.Duration) []string {
	keys := make([]string, 0, len(times))
	for k := range times {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// randomVector fills a pooled slice with uniform values in [0, 1). Callers
// return it with pool.PutFloat32Slice.
func randomVector(ctx *Context, n int) []float32 {
	v := pool.GetFloat32Slice(n)
	for i := range v {
		v[i] = ctx.Random()
	}
	return v
}
