// Package tasks provides asynchronous FIFO task sequences for offload kernels.
//
// A Sequence binds one fixed function at construction time and lets callers
// pipeline repeated invocations of it: Async enqueues an invocation, Get
// collects the oldest uncollected result. Results always come back in
// submission order. Declaring several Sequence values over the same function
// creates independent parallel instantiations, each with its own FIFO stream.
//
// Features:
// - Strict FIFO collection: the i-th Get returns the result of the i-th Async
// - Bounded pipelining via invocation and response capacities
// - Static argument/result typing through generics (mismatches fail to compile)
// - Leak detection: Close reports submissions that were never collected
//
// Usage:
//
//	seq := tasks.New(dotProduct, nil)
//
//	seq.Async(span{vec, 0, n})
//	seq.Async(span{vec, n, n})
//
//	first := seq.Get()
//	second := seq.Get()
//
//	if err := seq.Close(); err != nil {
//		log.Fatal(err)
//	}
package tasks

import (
	"errors"
	"sync"
)

// Errors
var (
	ErrOutstandingInvocations = errors.New("tasks: sequence closed with uncollected invocations")
	ErrSequenceClosed         = errors.New("tasks: sequence is closed")
	ErrNothingToCollect       = errors.New("tasks: sequence closed with no result left to collect")
)

// Config controls how much work a Sequence keeps in flight.
//
// Fields:
//   - InvocationCapacity: minimum number of outstanding (submitted but not yet
//     collected) invocations guaranteed not to block Async
//   - ResponseCapacity: maximum number of completed results that can wait for
//     collection before the sequence stops making forward progress
type Config struct {
	InvocationCapacity int
	ResponseCapacity   int
}

// DefaultConfig returns the capacity bounds used when New receives nil.
func DefaultConfig() *Config {
	return &Config{
		InvocationCapacity: 1,
		ResponseCapacity:   1,
	}
}

// result carries one completed invocation from the worker to Get.
// A panicking task function is a host-level fault: the panic value is
// captured here and re-raised on the collecting goroutine.
type result[R any] struct {
	value    R
	panicked bool
	panicVal any
}

// Sequence is an invocation handle: one FIFO queue of pending invocations of
// a fixed function, backed by its own worker instantiation. A Sequence is
// valid from New until Close. Async and Get may be called from different
// goroutines, but each must be called from at most one goroutine at a time.
type Sequence[A, R any] struct {
	pending chan A
	results chan result[R]

	mu          sync.Mutex
	submitted   int64
	collected   int64
	closed      bool
	workerGroup sync.WaitGroup
}

// New creates a Sequence bound to fn. A nil config uses DefaultConfig.
// Each call instantiates an independent worker; ordering guarantees apply
// only within a single Sequence, never across two of them.
func New[A, R any](fn func(A) R, config *Config) *Sequence[A, R] {
	if config == nil {
		config = DefaultConfig()
	}

	invCap := config.InvocationCapacity
	if invCap < 1 {
		invCap = 1
	}
	respCap := config.ResponseCapacity
	if respCap < 1 {
		respCap = 1
	}

	s := &Sequence[A, R]{
		pending: make(chan A, invCap),
		results: make(chan result[R], respCap),
	}

	s.workerGroup.Add(1)
	go func() {
		defer s.workerGroup.Done()
		for arg := range s.pending {
			s.results <- invoke(fn, arg)
		}
		close(s.results)
	}()

	return s
}

// invoke runs fn, converting a panic into a result the collector re-raises.
func invoke[A, R any](fn func(A) R, arg A) (res result[R]) {
	defer func() {
		if r := recover(); r != nil {
			res.panicked = true
			res.panicVal = r
		}
	}()
	res.value = fn(arg)
	return res
}

// Async enqueues one invocation of the bound function with arg.
//
// Async does not block while fewer than InvocationCapacity invocations are
// outstanding. Beyond that it blocks until pipeline capacity frees up, which
// requires the caller (or another goroutine) to collect results with Get.
// Every Async must eventually be matched by exactly one Get.
func (s *Sequence[A, R]) Async(arg A) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		panic(ErrSequenceClosed)
	}
	s.submitted++
	s.mu.Unlock()

	s.pending <- arg
}

// Get blocks until the oldest not-yet-collected invocation completes, then
// returns its result. Collection order is submission order: no reordering,
// no cancellation. A collector running ahead of the submitter simply waits
// for the next Async; only closing the sequence out from under a waiting
// Get raises ErrNothingToCollect. If the underlying task function panicked,
// Get re-raises that panic on the caller.
func (s *Sequence[A, R]) Get() R {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		panic(ErrSequenceClosed)
	}
	s.mu.Unlock()

	res, ok := <-s.results
	if !ok {
		panic(ErrNothingToCollect)
	}

	s.mu.Lock()
	s.collected++
	s.mu.Unlock()

	if res.panicked {
		panic(res.panicVal)
	}
	return res.value
}

// Outstanding returns the number of submitted invocations not yet collected.
func (s *Sequence[A, R]) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.submitted - s.collected)
}

// Submitted returns the total number of Async calls on this sequence.
func (s *Sequence[A, R]) Submitted() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

// Close releases the worker instantiation. Closing with invocations still
// outstanding returns ErrOutstandingInvocations: within a sequence's lifetime
// the number of collections must equal the number of submissions. Close is
// idempotent only for clean sequences; Async or Get after Close panics.
func (s *Sequence[A, R]) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	leaked := s.submitted - s.collected
	s.closed = true
	s.mu.Unlock()

	close(s.pending)
	// Drain uncollected results so a worker blocked on a full response
	// pipeline can finish and exit.
	for range s.results {
	}
	s.workerGroup.Wait()

	if leaked != 0 {
		return ErrOutstandingInvocations
	}
	return nil
}
