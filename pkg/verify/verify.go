// Package verify provides host-side result checking for sample programs.
//
// Samples compute a golden reference on the host and compare device results
// against it with a floating-point tolerance. A Checker accumulates named
// pass/fail outcomes; one failing check never aborts the remaining ones, so
// a sample always reports every comparison it ran.
package verify

import (
	"fmt"
	"io"
	"sync"

	"github.com/chewxy/math32"
)

// DefaultTolerance is the float32 comparison threshold the samples use.
const DefaultTolerance float32 = 0.001

// NearEqual reports whether got is within tol of want.
func NearEqual(got, want, tol float32) bool {
	return math32.Abs(got-want) <= tol
}

// MaxAbsDiff returns the largest element-wise absolute difference between
// got and want. Slices of different lengths compare as infinitely far apart.
func MaxAbsDiff(got, want []float32) float32 {
	if len(got) != len(want) {
		return math32.Inf(1)
	}
	var max float32
	for i := range got {
		if d := math32.Abs(got[i] - want[i]); d > max {
			max = d
		}
	}
	return max
}

// Result records one named check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Checker accumulates named check results. The zero Checker is ready to use.
type Checker struct {
	mu      sync.Mutex
	results []Result
}

// Check records a pass/fail outcome under name.
func (c *Checker) Check(name string, passed bool, detail string) {
	c.mu.Lock()
	c.results = append(c.results, Result{Name: name, Passed: passed, Detail: detail})
	c.mu.Unlock()
}

// CheckNear records whether got is within tol of want.
func (c *Checker) CheckNear(name string, got, want, tol float32) {
	c.Check(name, NearEqual(got, want, tol),
		fmt.Sprintf("got %v, want %v (tolerance %v)", got, want, tol))
}

// CheckSlices records an element-wise comparison of got against want.
func (c *Checker) CheckSlices(name string, got, want []float32, tol float32) {
	diff := MaxAbsDiff(got, want)
	c.Check(name, diff <= tol,
		fmt.Sprintf("max element difference %v (tolerance %v)", diff, tol))
}

// AllPassed reports whether every recorded check passed. An empty Checker
// passes vacuously.
func (c *Checker) AllPassed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// Results returns a copy of the recorded checks in order.
func (c *Checker) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Result, len(c.results))
	copy(out, c.results)
	return out
}

// Report writes one PASSED/FAILED line per check to w, failed checks with
// their detail, and returns the number of failures.
func (c *Checker) Report(w io.Writer) int {
	failed := 0
	for _, r := range c.Results() {
		if r.Passed {
			fmt.Fprintf(w, "PASSED %s\n", r.Name)
			continue
		}
		failed++
		fmt.Fprintf(w, "FAILED %s: %s\n", r.Name, r.Detail)
	}
	return failed
}
