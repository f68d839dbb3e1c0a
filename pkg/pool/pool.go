// Package pool provides object pooling for host-side staging data.
//
// Sample runs repeatedly allocate short-lived host vectors (input generation,
// golden references) and byte buffers (fingerprint encoding). Pooling reuses
// those allocations across repeated runs.
//
// Usage:
//
//	v := pool.GetFloat32Slice(count)
//	defer pool.PutFloat32Slice(v)
package pool

import (
	"sync"
)

// Config controls pooling behavior.
type Config struct {
	// Enabled controls whether pooling is active. Disable to chase
	// allocation bugs with every Get returning fresh memory.
	Enabled bool

	// MaxCap limits the capacity of slices kept in the pools.
	MaxCap int
}

var globalConfig = Config{
	Enabled: true,
	MaxCap:  1 << 22,
}

// Configure sets global pool configuration. Call once during initialization;
// not safe concurrently with Get/Put.
func Configure(config Config) {
	globalConfig = config
}

// IsEnabled returns whether pooling is active.
func IsEnabled() bool {
	return globalConfig.Enabled
}

var float32SlicePool = sync.Pool{
	New: func() any {
		return make([]float32, 0, 1024)
	},
}

// GetFloat32Slice returns a zeroed float32 slice of length n from the pool.
func GetFloat32Slice(n int) []float32 {
	if !globalConfig.Enabled {
		return make([]float32, n)
	}
	s := float32SlicePool.Get().([]float32)
	if cap(s) < n {
		return make([]float32, n)
	}
	s = s[:n]
	for i := range s {
		s[i] = 0
	}
	return s
}

// PutFloat32Slice returns a slice to the pool for reuse. Slices above the
// configured capacity limit are dropped instead of pooled.
func PutFloat32Slice(s []float32) {
	if !globalConfig.Enabled || s == nil {
		return
	}
	if cap(s) > globalConfig.MaxCap {
		return
	}
	float32SlicePool.Put(s[:0])
}

var byteBufferPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, 4096)
	},
}

// GetByteBuffer returns an empty byte buffer with pre-allocated capacity.
func GetByteBuffer() []byte {
	if !globalConfig.Enabled {
		return make([]byte, 0, 4096)
	}
	return byteBufferPool.Get().([]byte)[:0]
}

// PutByteBuffer returns a buffer to the pool for reuse.
func PutByteBuffer(buf []byte) {
	if !globalConfig.Enabled {
		return
	}
	if cap(buf) > globalConfig.MaxCap {
		return
	}
	byteBufferPool.Put(buf[:0])
}
