package kernel

import (
	"errors"
	"sync"
)

// ErrBarrierBroken is raised from Barrier when another work-item of the same
// group faulted before reaching the barrier. It terminates the remaining
// items of the group instead of deadlocking them.
var ErrBarrierBroken = errors.New("kernel: group barrier broken by faulted work-item")

// Item identifies one work-item inside an ND-range execution. The zero Item
// is not meaningful; items are handed to the kernel body by the device.
type Item struct {
	global [3]int
	local  [3]int
	group  *Group
}

// GlobalID returns the item's global index in dimension dim.
func (it Item) GlobalID(dim int) int { return it.global[dim] }

// LocalID returns the item's index within its work-group in dimension dim.
func (it Item) LocalID(dim int) int { return it.local[dim] }

// Group returns the work-group this item belongs to.
func (it Item) Group() *Group { return it.group }

// Group is one work-group of an ND-range execution: a set of work-items that
// run concurrently, share local memory, and synchronize through Barrier.
type Group struct {
	id   [3]int
	size int

	barrier *groupBarrier

	mu     sync.Mutex
	locals map[string]any
}

// newGroup creates a group of size concurrently running work-items.
func newGroup(id [3]int, size int) *Group {
	g := &Group{
		id:      id,
		size:    size,
		barrier: newGroupBarrier(size),
		locals:  make(map[string]any),
	}
	return g
}

// ID returns the group's index in dimension dim.
func (g *Group) ID(dim int) int { return g.id[dim] }

// Size returns the number of work-items in the group.
func (g *Group) Size() int { return g.size }

// Barrier blocks until every work-item of the group has reached it. If any
// item of the group faults before arriving, Barrier panics with
// ErrBarrierBroken so the group terminates instead of hanging.
func (g *Group) Barrier() {
	g.barrier.await()
}

// Local returns a slice of n elements of T shared by all work-items of the
// group, allocating it on first use. The key names the allocation so a kernel
// can hold several local buffers. All items of a group observe the same
// backing array; synchronize access with Barrier.
func Local[T any](g *Group, key string, n int) []T {
	g.mu.Lock()
	defer g.mu.Unlock()

	if buf, ok := g.locals[key]; ok {
		return buf.([]T)
	}
	buf := make([]T, n)
	g.locals[key] = buf
	return buf
}

// groupBarrier is a reusable cyclic barrier for the work-items of one group.
type groupBarrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	parties int
	waiting int
	phase   int
	broken  bool
}

func newGroupBarrier(parties int) *groupBarrier {
	b := &groupBarrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *groupBarrier) await() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.broken {
		panic(ErrBarrierBroken)
	}

	phase := b.phase
	b.waiting++
	if b.waiting == b.parties {
		b.waiting = 0
		b.phase++
		b.cond.Broadcast()
		return
	}
	for phase == b.phase && !b.broken {
		b.cond.Wait()
	}
	if b.broken {
		panic(ErrBarrierBroken)
	}
}

// breakBarrier wakes all waiters and poisons future arrivals. Called by the
// executor when a work-item of the group faults.
func (b *groupBarrier) breakBarrier() {
	b.mu.Lock()
	b.broken = true
	b.cond.Broadcast()
	b.mu.Unlock()
}
