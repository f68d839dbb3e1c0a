package kernel

import (
	"fmt"
	"sync"
)

// Body is the per-work-item function of a data-parallel kernel.
type Body func(it Item)

// TaskBody is the function of a single-task kernel.
type TaskBody func()

type form int

const (
	formSingleTask form = iota
	formParallelFor
	formNDRange
)

// Kernel is one unit of computation dispatched from host code to a device.
// A kernel pairs a name (used for program caching and reporting) with an
// iteration space and a body.
type Kernel struct {
	name   string
	form   form
	global Range
	nd     NDRange
	body   Body
	task   TaskBody
}

// SingleTask returns a kernel whose body runs exactly once on the device.
func SingleTask(name string, fn TaskBody) *Kernel {
	return &Kernel{name: name, form: formSingleTask, task: fn}
}

// ParallelFor returns a kernel whose body runs once per item of global, with
// no ordering or grouping guarantees between items.
func ParallelFor(name string, global Range, fn Body) *Kernel {
	return &Kernel{name: name, form: formParallelFor, global: global, body: fn}
}

// NDRangeKernel returns a kernel executed as work-groups: the items of each
// group run concurrently and may share local memory and barriers.
func NDRangeKernel(name string, nd NDRange, fn Body) *Kernel {
	return &Kernel{name: name, form: formNDRange, nd: nd, body: fn}
}

// Name returns the kernel's identifier.
func (k *Kernel) Name() string { return k.name }

// Launch executes the kernel on the calling device using at most workers
// concurrently running goroutines for independent work (single items for
// ParallelFor, whole groups for NDRangeKernel; items within one group always
// run fully concurrently so barriers can complete). A panic in the kernel
// body is converted into an error carrying the kernel name.
func (k *Kernel) Launch(workers int) error {
	if workers < 1 {
		workers = 1
	}

	switch k.form {
	case formSingleTask:
		return k.launchSingleTask()
	case formParallelFor:
		return k.launchParallelFor(workers)
	case formNDRange:
		return k.launchNDRange(workers)
	default:
		return fmt.Errorf("kernel %q: unknown kernel form", k.name)
	}
}

// faultSink records the first fault raised by any goroutine of a launch.
type faultSink struct {
	mu  sync.Mutex
	err error
}

func (f *faultSink) record(name string, recovered any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return
	}
	if err, ok := recovered.(error); ok {
		f.err = fmt.Errorf("kernel %q: %w", name, err)
		return
	}
	f.err = fmt.Errorf("kernel %q: %v", name, recovered)
}

func (f *faultSink) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (k *Kernel) launchSingleTask() (err error) {
	defer func() {
		if r := recover(); r != nil {
			sink := &faultSink{}
			sink.record(k.name, r)
			err = sink.get()
		}
	}()
	k.task()
	return nil
}

func (k *Kernel) launchParallelFor(workers int) error {
	total := k.global.Size()
	if total == 0 {
		return nil
	}
	if workers > total {
		workers = total
	}

	sink := &faultSink{}
	var wg sync.WaitGroup

	// Static partition: worker w owns the contiguous linear index block
	// [w*chunk, min((w+1)*chunk, total)).
	chunk := (total + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > total {
			hi = total
		}
		if lo >= hi {
			break
		}

		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					sink.record(k.name, r)
				}
			}()
			for i := lo; i < hi; i++ {
				k.body(Item{global: k.global.delinearize(i)})
			}
		}(lo, hi)
	}

	wg.Wait()
	return sink.get()
}

func (k *Kernel) launchNDRange(workers int) error {
	groups := k.nd.GroupCount()
	if groups == 0 {
		return nil
	}
	if workers > groups {
		workers = groups
	}

	sink := &faultSink{}
	groupIdx := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for gi := range groupIdx {
				k.runGroup(gi, sink)
			}
		}()
	}

	for gi := 0; gi < groups; gi++ {
		groupIdx <- gi
	}
	close(groupIdx)
	wg.Wait()

	return sink.get()
}

// runGroup executes every work-item of group gi concurrently. All items of a
// group must run at once so that Group.Barrier can complete.
func (k *Kernel) runGroup(gi int, sink *faultSink) {
	grid := k.nd.groupRange()
	gid := delinearize3(gi, grid)
	local := k.nd.Local
	group := newGroup(gid, local.Size())

	var wg sync.WaitGroup
	for li := 0; li < local.Size(); li++ {
		lid := local.delinearize(li)

		var global [3]int
		for d := 0; d < 3; d++ {
			global[d] = gid[d]*local.At(d) + lid[d]
		}

		wg.Add(1)
		go func(it Item) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					if r != ErrBarrierBroken {
						sink.record(k.name, r)
					}
					group.barrier.breakBarrier()
				}
			}()
			k.body(it)
		}(Item{global: global, local: lid, group: group})
	}
	wg.Wait()
}

// delinearize maps a linear index to per-dimension coordinates, last
// dimension fastest.
func (r Range) delinearize(i int) [3]int {
	return delinearize3(i, r.size)
}

func delinearize3(i int, extents [3]int) [3]int {
	var out [3]int
	out[2] = i % extents[2]
	i /= extents[2]
	out[1] = i % extents[1]
	out[0] = i / extents[1]
	return out
}
