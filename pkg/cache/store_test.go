package cache

import (
	"path/filepath"
	"testing"

	"github.com/slatevm/slate/pkg/bytecode"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "programs.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)

	prog := testProgram(42)
	if err := s.Put("42", prog); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get("42")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("miss after Put")
	}
	if got.Len() != prog.Len() {
		t.Errorf("loaded program has %d instructions, want %d", got.Len(), prog.Len())
	}
	if len(got.Constants) != 1 || got.Constants[0] != 42 {
		t.Errorf("loaded constants = %v, want [42]", got.Constants)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("loaded program failed validation: %v", err)
	}
}

func TestStoreMiss(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Get("never stored")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("hit on empty store")
	}
}

func TestStorePutReplaces(t *testing.T) {
	s := openTestStore(t)

	if err := s.Put("x", testProgram(1)); err != nil {
		t.Fatal(err)
	}
	if err := s.Put("x", testProgram(2)); err != nil {
		t.Fatal(err)
	}

	n, err := s.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 1 {
		t.Errorf("Len = %d, want 1 after replace", n)
	}

	got, ok, _ := s.Get("x")
	if !ok || got.Constants[0] != 2 {
		t.Errorf("loaded constants = %v, want [2]", got.Constants)
	}
}

func TestStoreLoadedProgramRuns(t *testing.T) {
	s := openTestStore(t)
	if err := s.Put("42", testProgram(42)); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.Get("42")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}

	result, hasResult, err := bytecode.NewVM(got).Run()
	if err != nil {
		t.Fatalf("run loaded program: %v", err)
	}
	if !hasResult || result.Int() != 42 {
		t.Errorf("result = %s (hasResult=%v), want 42", result, hasResult)
	}
}

func TestStoreWarm(t *testing.T) {
	s := openTestStore(t)
	for i, src := range []string{"a", "b", "c"} {
		if err := s.Put(src, testProgram(int64(i))); err != nil {
			t.Fatal(err)
		}
	}

	dst := NewShared(10)
	loaded, err := s.Warm(dst, 10)
	if err != nil {
		t.Fatalf("Warm: %v", err)
	}
	if loaded != 3 {
		t.Errorf("Warm loaded %d programs, want 3", loaded)
	}
	for _, src := range []string{"a", "b", "c"} {
		if _, ok := dst.Get(src); !ok {
			t.Errorf("warmed cache missing %q", src)
		}
	}
}

func TestStoreWarmRespectsLimit(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 5; i++ {
		if err := s.Put(string(rune('a'+i)), testProgram(int64(i))); err != nil {
			t.Fatal(err)
		}
	}

	dst := NewShared(10)
	loaded, err := s.Warm(dst, 2)
	if err != nil {
		t.Fatalf("Warm: %v", err)
	}
	if loaded != 2 {
		t.Errorf("Warm loaded %d programs, want 2", loaded)
	}
}
