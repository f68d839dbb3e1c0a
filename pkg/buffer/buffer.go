// Package buffer provides host/device data buffers for offload kernels.
//
// A Buffer binds a host slice for the duration of device work. Kernels touch
// buffer contents only through accessors that declare an access mode, and the
// buffer writes device results back to the bound host slice when it is
// closed (or when the host takes a HostAccess view).
//
// Usage:
//
//	in := buffer.New(inputData)
//	out := buffer.New(make([]float32, 2))
//
//	q.Submit(kernel.SingleTask("demo", func() {
//		src := in.Access(buffer.ReadOnly)
//		dst := out.Access(buffer.WriteOnly)
//		dst.Set(0, src.At(0)+src.At(1))
//	}))
//	q.Wait()
//
//	result := out.HostAccess()
package buffer

import (
	"errors"
	"sync"
)

// Errors
var (
	ErrWriteToReadOnly   = errors.New("buffer: write through read-only accessor")
	ErrReadFromWriteOnly = errors.New("buffer: read through write-only accessor")
	ErrBufferClosed      = errors.New("buffer: buffer is closed")
)

// Mode declares how a kernel accesses a buffer.
type Mode int

const (
	ReadOnly Mode = iota
	WriteOnly
	ReadWrite
)

func (m Mode) String() string {
	switch m {
	case ReadOnly:
		return "read_only"
	case WriteOnly:
		return "write_only"
	case ReadWrite:
		return "read_write"
	default:
		return "unknown"
	}
}

// Buffer owns a device-visible copy of a bound host slice. The host slice is
// not updated while device work runs; results reach it on Close or through
// HostAccess. Buffers are safe for concurrent kernel access; data races on
// individual elements are the kernel's responsibility, as on real devices.
type Buffer[T any] struct {
	mu      sync.Mutex
	host    []T
	data    []T
	written bool
	closed  bool
}

// New binds host and copies its current contents to the device-visible side.
func New[T any](host []T) *Buffer[T] {
	data := make([]T, len(host))
	copy(data, host)
	return &Buffer[T]{host: host, data: data}
}

// Len returns the element count of the buffer.
func (b *Buffer[T]) Len() int { return len(b.data) }

// Access returns a device-side accessor with the given mode. Creating a
// writable accessor marks the buffer dirty so Close writes results back.
func (b *Buffer[T]) Access(mode Mode) Accessor[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic(ErrBufferClosed)
	}
	if mode != ReadOnly {
		b.written = true
	}
	return Accessor[T]{mode: mode, data: b.data}
}

// HostAccess flushes device results to the bound host slice and returns it.
// Call it only after the queue work touching this buffer has completed.
func (b *Buffer[T]) HostAccess() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic(ErrBufferClosed)
	}
	if b.written {
		copy(b.host, b.data)
	}
	return b.host
}

// Close writes device results back to the bound host slice and releases the
// buffer. Closing twice is a no-op.
func (b *Buffer[T]) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	if b.written {
		copy(b.host, b.data)
	}
	b.closed = true
	b.data = nil
	return nil
}

// Accessor is a mode-checked device-side view of a buffer. The zero Accessor
// is invalid.
type Accessor[T any] struct {
	mode Mode
	data []T
}

// Mode returns the accessor's declared access mode.
func (a Accessor[T]) Mode() Mode { return a.mode }

// Len returns the accessible element count.
func (a Accessor[T]) Len() int { return len(a.data) }

// At reads element i. Reading through a write-only accessor is a contract
// violation and panics, mirroring the static accessor modes of offload
// toolchains where Go has no compile-time enforcement.
func (a Accessor[T]) At(i int) T {
	if a.mode == WriteOnly {
		panic(ErrReadFromWriteOnly)
	}
	return a.data[i]
}

// Set writes element i. Writing through a read-only accessor panics.
func (a Accessor[T]) Set(i int, v T) {
	if a.mode == ReadOnly {
		panic(ErrWriteToReadOnly)
	}
	a.data[i] = v
}
