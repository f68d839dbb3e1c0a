package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rho180/offload/pkg/device"
	"github.com/rho180/offload/pkg/kernel"
)

func newTestQueue(t *testing.T, config *Config) *Queue {
	t.Helper()
	dev, err := device.Select(&device.Config{PreferredBackend: device.BackendEmulator, ComputeUnits: 4})
	require.NoError(t, err)
	t.Cleanup(dev.Release)

	q := New(dev, config)
	t.Cleanup(func() { q.Close() })
	return q
}

func TestSubmitRendezvousesWithDispatcher(t *testing.T) {
	q := newTestQueue(t, nil)

	release := make(chan struct{})
	first := q.Submit(kernel.SingleTask("hold", func() { <-release }))

	// The dispatcher is busy with the first kernel, so the next submission
	// waits for it rather than queueing up.
	returned := make(chan struct{})
	go func() {
		q.Submit(kernel.SingleTask("next", func() {}))
		close(returned)
	}()

	select {
	case <-returned:
		t.Fatal("Submit returned while the previous kernel was still executing")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit did not complete once the dispatcher freed up")
	}
	require.NoError(t, first.Wait())
	require.NoError(t, q.Wait())
}

func TestSubmitAndWait(t *testing.T) {
	q := newTestQueue(t, nil)

	out := make([]int, 64)
	ev := q.Submit(kernel.ParallelFor("fill", kernel.Range1(len(out)), func(it kernel.Item) {
		out[it.GlobalID(0)] = 1
	}))
	require.NoError(t, ev.Wait())

	for i, v := range out {
		if v != 1 {
			t.Fatalf("out[%d] = %d, want 1", i, v)
		}
	}
}

func TestInOrderExecution(t *testing.T) {
	q := newTestQueue(t, nil)

	// Each kernel depends on the previous one having fully completed.
	var order []string
	var mu sync.Mutex
	for _, name := range []string{"first", "second", "third"} {
		name := name
		q.Submit(kernel.SingleTask(name, func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}))
	}
	require.NoError(t, q.Wait())

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestFaultSurfacesAtWait(t *testing.T) {
	q := newTestQueue(t, nil)

	ev := q.Submit(kernel.SingleTask("boom", func() { panic("device fault") }))
	err := ev.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device fault")

	// Queue.Wait reports the same fault once, then clears it.
	assert.Error(t, q.Wait())
	assert.NoError(t, q.Wait())
}

func TestAsyncHandler(t *testing.T) {
	var mu sync.Mutex
	var handled []error

	q := newTestQueue(t, &Config{AsyncHandler: func(err error) {
		mu.Lock()
		handled = append(handled, err)
		mu.Unlock()
	}})

	q.Submit(kernel.SingleTask("ok", func() {}))
	q.Submit(kernel.SingleTask("boom", func() { panic("bad") }))
	require.Error(t, q.Wait())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, handled, 1)
	assert.Contains(t, handled[0].Error(), "bad")
}

func TestProfiling(t *testing.T) {
	q := newTestQueue(t, &Config{EnableProfiling: true})

	ev := q.Submit(kernel.SingleTask("sleepy", func() { time.Sleep(20 * time.Millisecond) }))
	require.NoError(t, ev.Wait())

	d, err := ev.ProfilingDuration()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, d, 20*time.Millisecond)
}

func TestProfilingDisabled(t *testing.T) {
	q := newTestQueue(t, nil)

	ev := q.Submit(kernel.SingleTask("noop", func() {}))
	require.NoError(t, ev.Wait())

	_, err := ev.ProfilingDuration()
	assert.ErrorIs(t, err, ErrProfilingDisabled)
}

func TestProfilingIncomplete(t *testing.T) {
	q := newTestQueue(t, &Config{EnableProfiling: true})

	release := make(chan struct{})
	ev := q.Submit(kernel.SingleTask("held", func() { <-release }))

	_, err := ev.ProfilingDuration()
	assert.ErrorIs(t, err, ErrNotComplete)
	assert.Nil(t, ev.Program())

	close(release)
	require.NoError(t, ev.Wait())
}

func TestProgramCacheWarmsUp(t *testing.T) {
	q := newTestQueue(t, nil)

	k := kernel.SingleTask("repeated", func() {})
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Submit(k).Wait())
	}

	stats := q.CacheStats()
	assert.Equal(t, uint64(2), stats.Hits, "second and third submissions reuse the prepared program")
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestEventProgram(t *testing.T) {
	q := newTestQueue(t, nil)

	ev := q.Submit(kernel.SingleTask("prog", func() {}))
	require.NoError(t, ev.Wait())

	prog := ev.Program()
	require.NotNil(t, prog)
	assert.Equal(t, "prog", prog.Kernel)
	assert.Equal(t, device.BackendEmulator, prog.Backend)
	assert.Equal(t, 4, prog.Workers)
}

func TestSubmitAfterClose(t *testing.T) {
	dev, err := device.Select(&device.Config{PreferredBackend: device.BackendEmulator})
	require.NoError(t, err)
	defer dev.Release()

	q := New(dev, nil)
	require.NoError(t, q.Close())

	assert.PanicsWithValue(t, ErrQueueClosed, func() {
		q.Submit(kernel.SingleTask("late", func() {}))
	})
}
