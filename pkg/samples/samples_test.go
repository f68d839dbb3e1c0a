package samples

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rho180/offload/pkg/config"
	"github.com/rho180/offload/pkg/trace"
)

func TestListAndLookup(t *testing.T) {
	list := List()
	require.Len(t, list, 3)

	names := make([]string, len(list))
	for i, s := range list {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"matmul-localmem", "task-sequence", "vector-add"}, names)

	s, err := Lookup("task-sequence")
	require.NoError(t, err)
	assert.Equal(t, 16384, s.DefaultElements)

	_, err = Lookup("ray-tracer")
	assert.ErrorIs(t, err, ErrUnknownSample)
}

func TestRunAllSamplesPass(t *testing.T) {
	for _, s := range List() {
		s := s
		t.Run(s.Name, func(t *testing.T) {
			var out bytes.Buffer
			report, err := Run(s.Name, Options{Out: &out, Seed: 1})
			require.NoError(t, err)

			assert.True(t, report.Passed, "output:\n%s", out.String())
			assert.Contains(t, out.String(), "PASSED")
			assert.NotContains(t, out.String(), "FAILED")
			assert.Contains(t, out.String(), "Offload Device :")
		})
	}
}

func TestRunTaskSequenceOutput(t *testing.T) {
	var out bytes.Buffer
	report, err := Run("task-sequence", Options{Out: &out, Seed: 42})
	require.NoError(t, err)
	require.True(t, report.Passed)

	text := out.String()
	assert.Contains(t, text, "PASSED sequential test")
	assert.Contains(t, text, "PASSED parallel test")
	assert.Contains(t, text, "sequential time:")
	assert.Contains(t, text, "parallel time:")
}

func TestRunElementsOverride(t *testing.T) {
	var out bytes.Buffer
	report, err := Run("vector-add", Options{Out: &out, Elements: 100, Seed: 1})
	require.NoError(t, err)

	assert.Equal(t, 100, report.Elements)
	assert.Contains(t, out.String(), "Elements       : 100")
}

func TestRunConfigOverride(t *testing.T) {
	cfg := config.Default()
	cfg.Samples["vector-add"] = config.SampleConfig{Elements: 256}

	report, err := Run("vector-add", Options{Config: cfg, Out: &bytes.Buffer{}, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, 256, report.Elements)
}

func TestRunRejectsBadElementCount(t *testing.T) {
	// The matmul walkthrough runs its matrix as a single work-group and
	// bounds the dimension accordingly.
	_, err := Run("matmul-localmem", Options{Out: &bytes.Buffer{}, Elements: 100, Seed: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matrix size")
}

func TestRunProfilingDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Profiling = false

	var out bytes.Buffer
	report, err := Run("vector-add", Options{Config: cfg, Out: &out, Elements: 64, Seed: 1})
	require.NoError(t, err)

	assert.True(t, report.Passed)
	assert.Empty(t, report.Times)
	assert.NotContains(t, out.String(), "time:")
}

func TestRunPersistsTraceRecord(t *testing.T) {
	store, err := trace.OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	report, err := Run("task-sequence", Options{
		Out:      &bytes.Buffer{},
		Elements: 512,
		Seed:     7,
		Store:    store,
	})
	require.NoError(t, err)
	require.True(t, report.Passed)

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "task-sequence", rec.Sample)
	assert.Equal(t, "emulator", rec.Backend)
	assert.Equal(t, 512, rec.Elements)
	assert.True(t, rec.Passed)
	assert.NotEmpty(t, rec.Fingerprint)
	assert.Contains(t, rec.KernelTimes, "sequential")
	assert.Contains(t, rec.KernelTimes, "parallel")
}

func TestRunDeterministicWithSeed(t *testing.T) {
	var first, second bytes.Buffer
	r1, err := Run("vector-add", Options{Out: &first, Elements: 128, Seed: 99})
	require.NoError(t, err)
	r2, err := Run("vector-add", Options{Out: &second, Elements: 128, Seed: 99})
	require.NoError(t, err)

	assert.True(t, r1.Passed && r2.Passed)
}

func TestRunGuardedCatchesHostFault(t *testing.T) {
	faulty := &Sample{
		Name: "faulty",
		run: func(ctx *Context) error {
			panic("host-side contract violation")
		},
	}
	err := runGuarded(faulty, &Context{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "contract violation"))
}
