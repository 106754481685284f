package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/slatevm/slate/pkg/bytecode"
)

// testProgram builds a minimal valid program distinguishable by n.
func testProgram(n int64) *bytecode.Program {
	p := bytecode.NewProgram()
	idx := p.AddConstant(n)
	p.Emit(bytecode.Instruction{Op: bytecode.OpLoadConst, Dst: 0, Idx: idx})
	p.Emit(bytecode.Instruction{Op: bytecode.OpSetResult, Src1: 0})
	p.Emit(bytecode.Instruction{Op: bytecode.OpHalt})
	return p
}

func TestCacheGetInsert(t *testing.T) {
	c := New(10)

	if _, ok := c.Get("1 + 1"); ok {
		t.Error("hit on empty cache")
	}

	prog := testProgram(2)
	c.Insert("1 + 1", prog)

	got, ok := c.Get("1 + 1")
	if !ok {
		t.Fatal("miss after insert")
	}
	if got != prog {
		t.Error("cache returned a different program")
	}

	// Lookup is byte-for-byte on the source text.
	if _, ok := c.Get("1 + 1 "); ok {
		t.Error("hit on whitespace-different source")
	}
	if _, ok := c.Get("1+1"); ok {
		t.Error("hit on formatting-different source")
	}
}

func TestCacheStats(t *testing.T) {
	c := New(10)

	s := c.Stats()
	if s.Hits != 0 || s.Misses != 0 || s.HitRate != 0 {
		t.Errorf("fresh stats = %+v, want zeroes", s)
	}
	if s.Capacity != 10 {
		t.Errorf("capacity = %d, want 10", s.Capacity)
	}

	c.Get("a") // miss
	c.Insert("a", testProgram(1))
	c.Get("a") // hit
	c.Get("a") // hit
	c.Get("b") // miss

	s = c.Stats()
	if s.Hits != 2 || s.Misses != 2 {
		t.Errorf("hits/misses = %d/%d, want 2/2", s.Hits, s.Misses)
	}
	if s.HitRate != 0.5 {
		t.Errorf("hit rate = %v, want 0.5", s.HitRate)
	}
	if s.Size != 1 {
		t.Errorf("size = %d, want 1", s.Size)
	}
}

func TestCacheLRUEviction(t *testing.T) {
	c := New(2)
	c.Insert("a", testProgram(1))
	c.Insert("b", testProgram(2))

	// Touch "a" so "b" becomes least recently used.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("miss on a")
	}

	c.Insert("c", testProgram(3))

	if _, ok := c.Get("b"); ok {
		t.Error("b survived eviction, want it evicted as LRU")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a evicted, want it kept (recently used)")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c missing after insert")
	}
	if s := c.Stats(); s.Size != 2 {
		t.Errorf("size = %d, want 2", s.Size)
	}
}

func TestCacheInsertReplaces(t *testing.T) {
	c := New(10)
	c.Insert("a", testProgram(1))
	replacement := testProgram(2)
	c.Insert("a", replacement)

	got, ok := c.Get("a")
	if !ok || got != replacement {
		t.Error("replacement not returned")
	}
	if s := c.Stats(); s.Size != 1 {
		t.Errorf("size = %d, want 1 after replace", s.Size)
	}
}

func TestCacheClear(t *testing.T) {
	c := New(10)
	c.Insert("a", testProgram(1))
	c.Get("a")
	c.Get("b")

	c.Clear()

	s := c.Stats()
	if s.Size != 0 || s.Hits != 0 || s.Misses != 0 || s.HitRate != 0 {
		t.Errorf("stats after Clear = %+v, want zeroes", s)
	}
	if _, ok := c.Get("a"); ok {
		t.Error("hit after Clear")
	}
}

func TestCacheDefaultCapacity(t *testing.T) {
	for _, capacity := range []int{0, -5} {
		c := New(capacity)
		if s := c.Stats(); s.Capacity != DefaultCapacity {
			t.Errorf("New(%d) capacity = %d, want %d", capacity, s.Capacity, DefaultCapacity)
		}
	}
}

func TestSharedCacheConcurrent(t *testing.T) {
	s := NewShared(100)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("prog-%d", i%20)
				if _, ok := s.Get(key); !ok {
					s.Insert(key, testProgram(int64(i)))
				}
			}
		}(g)
	}
	wg.Wait()

	stats := s.Stats()
	if total := stats.Hits + stats.Misses; total != 800 {
		t.Errorf("accesses = %d, want 800", total)
	}
	if stats.Size > 20 {
		t.Errorf("size = %d, want at most 20", stats.Size)
	}
}

func TestSharedSingleton(t *testing.T) {
	if Shared() != Shared() {
		t.Error("Shared() returned different instances")
	}
}
