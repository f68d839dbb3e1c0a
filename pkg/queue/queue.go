// Package queue provides in-order command queues for offload devices.
//
// A Queue binds one device and executes submitted kernels strictly in
// submission order. Submit returns immediately with an Event; the host blocks
// on Event.Wait (or Queue.Wait) for completion, which is where device faults
// surface as errors. With profiling enabled each event records the command
// start and end time on the device.
//
// Usage:
//
//	q := queue.New(dev, &queue.Config{EnableProfiling: true})
//	defer q.Close()
//
//	ev := q.Submit(kernel.SingleTask("demo", body))
//	if err := ev.Wait(); err != nil {
//		log.Fatal(err)
//	}
//	elapsed, _ := ev.ProfilingDuration()
package queue

import (
	"errors"
	"sync"
	"time"

	"github.com/rho180/offload/pkg/device"
	"github.com/rho180/offload/pkg/kernel"
	"github.com/rho180/offload/pkg/progcache"
)

// Errors
var (
	ErrQueueClosed       = errors.New("queue: queue is closed")
	ErrProfilingDisabled = errors.New("queue: profiling not enabled on this queue")
	ErrNotComplete       = errors.New("queue: command has not completed")
)

// Config controls queue behavior.
type Config struct {
	// EnableProfiling records command start/end times on events.
	EnableProfiling bool

	// AsyncHandler receives device faults as they occur, before they are
	// returned from Wait. Nil means faults are only reported through Wait.
	AsyncHandler func(error)

	// ProgramCacheSize bounds the prepared-program cache. Zero uses the
	// progcache default.
	ProgramCacheSize int
}

// Program is a kernel prepared for one backend: the resolved launch plan the
// queue reuses when the same kernel is submitted again.
type Program struct {
	Kernel     string
	Backend    device.Backend
	Workers    int
	PreparedAt time.Time
}

// Queue is an in-order command queue bound to a single device. Submissions
// from multiple goroutines are serialized in arrival order.
type Queue struct {
	dev      device.Device
	config   *Config
	programs *progcache.Cache

	submit chan *Event
	done   sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	events  []*Event
	lastErr error
}

// New creates a queue on dev. A nil config disables profiling and async
// fault delivery.
func New(dev device.Device, config *Config) *Queue {
	if config == nil {
		config = &Config{}
	}
	q := &Queue{
		dev:      dev,
		config:   config,
		programs: progcache.New(config.ProgramCacheSize, 0),
		submit:   make(chan *Event),
	}

	q.done.Add(1)
	go q.dispatch()
	return q
}

// Device returns the device this queue executes on.
func (q *Queue) Device() device.Device { return q.dev }

// Submit hands k to the dispatcher for in-order execution and returns its
// event. Submission rendezvouses with the dispatcher: while a previously
// submitted kernel is still executing, Submit blocks until the dispatcher is
// ready for the next command. Submitting on a closed queue panics: a
// sample's queue outlives all of its work.
func (q *Queue) Submit(k *kernel.Kernel) *Event {
	ev := &Event{kernelName: k.Name(), kernel: k, complete: make(chan struct{})}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		panic(ErrQueueClosed)
	}
	q.events = append(q.events, ev)
	q.mu.Unlock()

	q.submit <- ev
	return ev
}

// dispatch executes submitted kernels strictly in submission order.
func (q *Queue) dispatch() {
	defer q.done.Done()
	for ev := range q.submit {
		prog := q.prepare(ev.kernel)

		if q.config.EnableProfiling {
			ev.profiled = true
			ev.start = time.Now()
		}
		err := q.dev.Run(ev.kernel)
		if q.config.EnableProfiling {
			ev.end = time.Now()
		}

		ev.program = prog
		ev.err = err
		close(ev.complete)

		if err != nil {
			q.mu.Lock()
			if q.lastErr == nil {
				q.lastErr = err
			}
			q.mu.Unlock()
			if q.config.AsyncHandler != nil {
				q.config.AsyncHandler(err)
			}
		}
	}
}

// prepare resolves the launch plan for k on this queue's backend, reusing a
// cached program when the kernel was submitted before.
func (q *Queue) prepare(k *kernel.Kernel) *Program {
	key := q.programs.Key(k.Name(), string(q.dev.Backend()))
	if cached, ok := q.programs.Get(key); ok {
		return cached.(*Program)
	}

	prog := &Program{
		Kernel:     k.Name(),
		Backend:    q.dev.Backend(),
		Workers:    q.dev.ComputeUnits(),
		PreparedAt: time.Now(),
	}
	q.programs.Put(key, prog)
	return prog
}

// Wait blocks until every submitted command has completed and returns the
// first fault raised since the previous Wait, mirroring how offload runtimes
// deliver asynchronous errors at synchronization points.
func (q *Queue) Wait() error {
	q.mu.Lock()
	pending := make([]*Event, len(q.events))
	copy(pending, q.events)
	q.events = q.events[:0]
	q.mu.Unlock()

	for _, ev := range pending {
		<-ev.complete
	}

	q.mu.Lock()
	err := q.lastErr
	q.lastErr = nil
	q.mu.Unlock()
	return err
}

// CacheStats returns prepared-program cache statistics.
func (q *Queue) CacheStats() progcache.Stats {
	return q.programs.Stats()
}

// Close drains outstanding work and shuts the queue down. It returns the
// first unreported fault, like a final Wait.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	err := q.Wait()
	close(q.submit)
	q.done.Wait()
	return err
}

// Event tracks one submitted command.
type Event struct {
	kernelName string
	kernel     *kernel.Kernel
	program    *Program

	complete chan struct{}
	err      error

	profiled bool
	start    time.Time
	end      time.Time
}

// Kernel returns the name of the submitted kernel.
func (e *Event) Kernel() string { return e.kernelName }

// Wait blocks until the command completes and returns its fault, if any.
func (e *Event) Wait() error {
	<-e.complete
	return e.err
}

// Program returns the prepared program the command ran with. Valid after the
// event completes.
func (e *Event) Program() *Program {
	select {
	case <-e.complete:
		return e.program
	default:
		return nil
	}
}

// ProfilingDuration returns how long the command ran on the device. It fails
// on queues created without EnableProfiling and on incomplete commands.
func (e *Event) ProfilingDuration() (time.Duration, error) {
	select {
	case <-e.complete:
	default:
		return 0, ErrNotComplete
	}
	if !e.profiled {
		return 0, ErrProfilingDisabled
	}
	return e.end.Sub(e.start), nil
}
