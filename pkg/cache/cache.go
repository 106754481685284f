// Package cache memoizes compiled bytecode programs by their exact source
// text. Lookups are byte-for-byte: whitespace and case both matter. Only
// the compiled form is cached: a program that fails at runtime stays
// cached, because the bytecode itself remains valid and reusable.
//
// Two variants share one contract: Cache is thread-confined and does no
// locking; SharedCache guards a Cache with a mutex so the daemon can serve
// many connections against one instance. The lock covers pool operations
// only, never compilation or execution.
package cache

import (
	"container/list"
	"sync"

	"github.com/slatevm/slate/pkg/bytecode"
)

// DefaultCapacity is the entry limit used when none is configured.
const DefaultCapacity = 1000

// Stats is a point-in-time snapshot of cache accounting.
type Stats struct {
	Size     int
	Capacity int
	Hits     uint64
	Misses   uint64
	HitRate  float64 // hits / (hits + misses); 0 with no accesses
}

type entry struct {
	source  string
	program *bytecode.Program
}

// Cache is an LRU map from source text to compiled program. It performs
// no synchronization and must be confined to a single goroutine.
type Cache struct {
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used

	hits   uint64
	misses uint64
}

// New creates a cache with the given capacity. Non-positive capacities
// fall back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the program compiled from source, if cached. Every call
// counts as exactly one hit or one miss.
func (c *Cache) Get(source string) (*bytecode.Program, bool) {
	el, ok := c.entries[source]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*entry).program, true
}

// Insert adds or replaces the program for source, evicting the least
// recently used entry when the capacity is exceeded.
func (c *Cache) Insert(source string, program *bytecode.Program) {
	if el, ok := c.entries[source]; ok {
		el.Value.(*entry).program = program
		c.order.MoveToFront(el)
		return
	}
	c.entries[source] = c.order.PushFront(&entry{source: source, program: program})
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).source)
	}
}

// Stats returns current size, capacity and hit/miss accounting.
func (c *Cache) Stats() Stats {
	s := Stats{
		Size:     c.order.Len(),
		Capacity: c.capacity,
		Hits:     c.hits,
		Misses:   c.misses,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// Clear empties the cache and resets the hit and miss counters.
func (c *Cache) Clear() {
	c.entries = make(map[string]*list.Element, c.capacity)
	c.order.Init()
	c.hits = 0
	c.misses = 0
}

// SharedCache is a Cache safe for concurrent use. The daemon's request
// loop and any embedding threads share one instance.
type SharedCache struct {
	mu sync.Mutex
	c  *Cache
}

// NewShared creates a shared cache with the given capacity.
func NewShared(capacity int) *SharedCache {
	return &SharedCache{c: New(capacity)}
}

// Get looks up source under the lock.
func (s *SharedCache) Get(source string) (*bytecode.Program, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Get(source)
}

// Insert stores a program under the lock. Compile outside the lock and
// insert the result afterward.
func (s *SharedCache) Insert(source string, program *bytecode.Program) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Insert(source, program)
}

// Stats snapshots the accounting under the lock.
func (s *SharedCache) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Stats()
}

// Clear empties the cache and resets counters under the lock.
func (s *SharedCache) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Clear()
}

var (
	sharedOnce sync.Once
	shared     *SharedCache
)

// Shared returns the process-wide cache, created on first use with the
// default capacity. It lives until process exit.
func Shared() *SharedCache {
	sharedOnce.Do(func() {
		shared = NewShared(DefaultCapacity)
	})
	return shared
}
