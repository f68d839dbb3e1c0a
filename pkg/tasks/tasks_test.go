package tasks

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// span selects sz elements of v starting at s, mirroring how offload kernels
// hand a sequence a slice of the input per invocation.
type span struct {
	v  []float32
	s  int
	sz int
}

func sumSpan(sp span) float32 {
	var total float32
	for i := sp.s; i < sp.s+sp.sz; i++ {
		total += sp.v[i]
	}
	return total
}

func TestSequenceFIFOOrder(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
		n      int
	}{
		{"default capacities", nil, 8},
		{"deep pipeline", &Config{InvocationCapacity: 16, ResponseCapacity: 16}, 64},
		{"single slot", &Config{InvocationCapacity: 1, ResponseCapacity: 1}, 8},
		{"invalid capacities clamp to one", &Config{InvocationCapacity: -3, ResponseCapacity: 0}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := New(func(x int) int { return x * x }, tt.config)

			// Collect from a second goroutine so submission never stalls
			// on pipeline capacity.
			got := make([]int, 0, tt.n)
			done := make(chan struct{})
			go func() {
				defer close(done)
				for i := 0; i < tt.n; i++ {
					got = append(got, seq.Get())
				}
			}()

			for i := 0; i < tt.n; i++ {
				seq.Async(i)
			}
			<-done

			for i := 0; i < tt.n; i++ {
				if got[i] != i*i {
					t.Fatalf("collection %d = %d, want %d (FIFO order violated)", i, got[i], i*i)
				}
			}
			if err := seq.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
		})
	}
}

func TestSequenceQuarterSplit(t *testing.T) {
	// Four handles each cover a disjoint quarter of the input; their summed
	// results must match a single handle over the whole input.
	const count = 16384
	in := make([]float32, count)
	for i := range in {
		in[i] = float32(i%7) * 0.25
	}

	whole := New(sumSpan, nil)
	whole.Async(span{in, 0, count})
	golden := whole.Get()
	require.NoError(t, whole.Close())

	quarters := [4]*Sequence[span, float32]{}
	for i := range quarters {
		quarters[i] = New(sumSpan, nil)
	}
	quarter := count / 4
	for i, q := range quarters {
		q.Async(span{in, i * quarter, quarter})
	}

	var parallel float32
	for _, q := range quarters {
		parallel += q.Get()
	}
	for _, q := range quarters {
		require.NoError(t, q.Close())
	}

	assert.InDelta(t, golden, parallel, 0.001, "quarter results should sum to the whole")
}

func TestSequenceIndependentHandles(t *testing.T) {
	// Ordering guarantees hold within one handle, and a slow handle must not
	// stall a fast one.
	slow := New(func(d time.Duration) int {
		time.Sleep(d)
		return 1
	}, nil)
	fast := New(func(x int) int { return x + 1 }, nil)

	slow.Async(50 * time.Millisecond)
	fast.Async(41)

	start := time.Now()
	if got := fast.Get(); got != 42 {
		t.Fatalf("fast.Get() = %d, want 42", got)
	}
	if elapsed := time.Since(start); elapsed > 40*time.Millisecond {
		t.Errorf("fast handle blocked %v behind slow handle", elapsed)
	}

	if got := slow.Get(); got != 1 {
		t.Fatalf("slow.Get() = %d, want 1", got)
	}
	if err := slow.Close(); err != nil {
		t.Fatal(err)
	}
	if err := fast.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSequenceInvocationCapacity(t *testing.T) {
	// Async must not block while outstanding invocations stay below the
	// invocation capacity, even when nothing has been collected yet.
	block := make(chan struct{})
	seq := New(func(struct{}) struct{} {
		<-block
		return struct{}{}
	}, &Config{InvocationCapacity: 4, ResponseCapacity: 1})

	submitted := make(chan struct{})
	go func() {
		for i := 0; i < 4; i++ {
			seq.Async(struct{}{})
		}
		close(submitted)
	}()

	select {
	case <-submitted:
	case <-time.After(2 * time.Second):
		t.Fatal("Async blocked below invocation capacity")
	}

	close(block)
	for i := 0; i < 4; i++ {
		seq.Get()
	}
	if err := seq.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSequenceCloseLeakDetection(t *testing.T) {
	seq := New(func(x int) int { return x }, nil)
	seq.Async(7)

	err := seq.Close()
	assert.ErrorIs(t, err, ErrOutstandingInvocations)
}

func TestSequenceUseAfterClose(t *testing.T) {
	seq := New(func(x int) int { return x }, nil)
	require.NoError(t, seq.Close())

	assert.PanicsWithValue(t, ErrSequenceClosed, func() { seq.Async(1) })
	assert.PanicsWithValue(t, ErrSequenceClosed, func() { seq.Get() })
}

func TestSequenceGetBlocksAheadOfSubmission(t *testing.T) {
	// A collector scheduled before the submitter must park on the next
	// result, not fail: collection blocks until the oldest invocation
	// completes.
	seq := New(func(x int) int { return x + 1 }, nil)

	got := make(chan int, 1)
	go func() { got <- seq.Get() }()

	time.Sleep(20 * time.Millisecond)
	select {
	case v := <-got:
		t.Fatalf("Get returned %d before anything was submitted", v)
	default:
	}

	seq.Async(41)
	select {
	case v := <-got:
		if v != 42 {
			t.Fatalf("Get() = %d, want 42", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Get did not observe the submission")
	}
	require.NoError(t, seq.Close())
}

func TestSequenceGetWithoutAsync(t *testing.T) {
	// Closing a sequence out from under a Get that has nothing to collect
	// terminates the collector instead of leaving it parked forever.
	seq := New(func(x int) int { return x }, nil)

	go func() {
		time.Sleep(20 * time.Millisecond)
		seq.Close()
	}()

	assert.PanicsWithValue(t, ErrNothingToCollect, func() { seq.Get() })
}

func TestSequencePanicPropagation(t *testing.T) {
	seq := New(func(x int) int {
		if x < 0 {
			panic("negative input")
		}
		return x
	}, nil)

	seq.Async(-1)
	assert.PanicsWithValue(t, "negative input", func() { seq.Get() })
	require.NoError(t, seq.Close())
}

func TestSequenceOutstanding(t *testing.T) {
	seq := New(func(x int) int { return x }, &Config{InvocationCapacity: 8, ResponseCapacity: 8})

	for i := 0; i < 5; i++ {
		seq.Async(i)
	}
	if got := seq.Outstanding(); got != 5 {
		t.Errorf("Outstanding() = %d, want 5", got)
	}

	for i := 0; i < 5; i++ {
		seq.Get()
	}
	if got := seq.Outstanding(); got != 0 {
		t.Errorf("Outstanding() after collection = %d, want 0", got)
	}
	if got := seq.Submitted(); got != 5 {
		t.Errorf("Submitted() = %d, want 5", got)
	}
	if err := seq.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSequenceConcurrentPipelines(t *testing.T) {
	// Many independent sequences driven at once; each stream must stay FIFO.
	const handles = 16
	const perHandle = 100

	var wg sync.WaitGroup
	for h := 0; h < handles; h++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			seq := New(func(x int) int { return x * 2 }, &Config{InvocationCapacity: 4, ResponseCapacity: 4})
			defer seq.Close()

			collected := make(chan struct{})
			go func() {
				defer close(collected)
				for i := 0; i < perHandle; i++ {
					want := (base + i) * 2
					if got := seq.Get(); got != want {
						t.Errorf("handle %d: collection %d = %d, want %d", base, i, got, want)
						return
					}
				}
			}()

			for i := 0; i < perHandle; i++ {
				seq.Async(base + i)
			}
			<-collected
		}(h * 1000)
	}
	wg.Wait()
}
