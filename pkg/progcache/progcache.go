// Package progcache caches prepared kernel programs.
//
// Preparing a kernel for a queue (validating its geometry and resolving the
// launch plan for the target device) only depends on the kernel name and the
// backend it runs on, so resubmitting the same kernel to the same queue can
// reuse the prepared program instead of planning again.
//
// Features:
// - LRU eviction for bounded memory
// - TTL expiration for stale programs
// - Thread-safe operations
// - Hit/miss statistics
//
// Usage:
//
//	cache := progcache.New(256, 10*time.Minute)
//
//	key := cache.Key("matmul_localmem", "emulator")
//	if prog, ok := cache.Get(key); ok {
//		return prog.(*Program)
//	}
//
//	prog := prepare(k, dev)
//	cache.Put(key, prog)
package progcache

import (
	"container/list"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"
)

// Cache is a thread-safe LRU cache for prepared programs. Lookups are O(1);
// a doubly-linked list maintains recency order for eviction.
type Cache struct {
	mu sync.RWMutex

	maxSize int
	ttl     time.Duration

	list  *list.List
	items map[uint64]*list.Element

	hits   uint64
	misses uint64
}

type entry struct {
	key       uint64
	value     any
	expiresAt time.Time
}

// New creates a program cache holding up to maxSize entries. A non-positive
// maxSize defaults to 256. A ttl of 0 disables expiration.
func New(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = 256
	}
	return &Cache{
		maxSize: maxSize,
		ttl:     ttl,
		list:    list.New(),
		items:   make(map[uint64]*list.Element, maxSize),
	}
}

// Key hashes a kernel name and backend into a cache key (FNV-1a). The same
// kernel prepared for different backends caches independently.
func (c *Cache) Key(kernelName, backend string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(kernelName))
	h.Write([]byte{0})
	h.Write([]byte(backend))
	return h.Sum64()
}

// Get retrieves a prepared program if present and not expired. A hit moves
// the entry to the front of the LRU order.
func (c *Cache) Get(key uint64) (any, bool) {
	c.mu.RLock()
	elem, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	ent := elem.Value.(*entry)

	if c.ttl > 0 && time.Now().After(ent.expiresAt) {
		c.mu.Lock()
		c.removeElement(elem)
		c.mu.Unlock()
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	c.mu.Lock()
	c.list.MoveToFront(elem)
	c.mu.Unlock()

	atomic.AddUint64(&c.hits, 1)
	return ent.value, true
}

// Put stores a prepared program, evicting the least recently used entry when
// the cache is full. Putting an existing key updates it in place.
func (c *Cache) Put(key uint64, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry)
		ent.value = value
		ent.expiresAt = time.Now().Add(c.ttl)
		c.list.MoveToFront(elem)
		return
	}

	if c.list.Len() >= c.maxSize {
		oldest := c.list.Back()
		if oldest != nil {
			c.removeElement(oldest)
		}
	}

	ent := &entry{key: key, value: value, expiresAt: time.Now().Add(c.ttl)}
	c.items[key] = c.list.PushFront(ent)
}

// removeElement deletes an entry. Caller holds the write lock.
func (c *Cache) removeElement(elem *list.Element) {
	if mapped, ok := c.items[elem.Value.(*entry).key]; !ok || mapped != elem {
		return
	}
	c.list.Remove(elem)
	delete(c.items, elem.Value.(*entry).key)
}

// Len returns the number of cached programs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.Len()
}

// Purge discards every cached program and resets statistics.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.list.Init()
	c.items = make(map[uint64]*list.Element, c.maxSize)
	c.mu.Unlock()

	atomic.StoreUint64(&c.hits, 0)
	atomic.StoreUint64(&c.misses, 0)
}

// Stats holds cache hit/miss counters.
type Stats struct {
	Hits   uint64
	Misses uint64
	Size   int
}

// Stats returns a snapshot of cache statistics.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   atomic.LoadUint64(&c.hits),
		Misses: atomic.LoadUint64(&c.misses),
		Size:   c.Len(),
	}
}
