package refmap

import (
	"fmt"
	"sync"
	"testing"
)

func TestNewOrdered(t *testing.T) {
	m := NewOrdered[int, string]()
	if m == nil {
		t.Fatal("NewOrdered() returned nil")
	}
	if !m.IsEmpty() {
		t.Error("new map should be empty")
	}
}

func TestOrderedGetMissing(t *testing.T) {
	m := NewOrdered[int, string]()
	if h, ok := m.Get(42); ok || h != nil {
		t.Errorf("Get(42) = (%v, %v), want (nil, false)", h, ok)
	}
	if st := m.Stats(); st.Misses != 1 {
		t.Errorf("Stats().Misses = %d, want 1", st.Misses)
	}
}

func TestOrderedLifecycle(t *testing.T) {
	m := NewOrdered[string, int]()

	ha := m.Insert("A", 1)
	hb := m.Insert("B", 2)
	if got := m.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}

	got, ok := m.Get("A")
	if !ok || got.Value() != 1 {
		t.Fatalf("Get(A) = (%v, %v), want value 1", got, ok)
	}

	ha.Release()
	got.Release()
	if n := m.Len(); n != 1 {
		t.Errorf("Len() after dropping A = %d, want 1", n)
	}
	if _, ok := m.Get("A"); ok {
		t.Error("Get(A) found removed entry")
	}
	if h, ok := m.Get("B"); !ok || h.Value() != 2 {
		t.Errorf("Get(B) = (%v, %v), want value 2", h, ok)
	} else {
		h.Release()
	}

	hb.Release()
	if !m.IsEmpty() {
		t.Error("map not empty at end")
	}
}

func TestOrderedCloneKeepsEntryAlive(t *testing.T) {
	m := NewOrdered[int, int]()

	h := m.Insert(10, 100)
	clone := h.Clone()

	h.Release()
	if got := m.Len(); got != 1 {
		t.Errorf("Len() = %d with clone outstanding, want 1", got)
	}

	clone.Release()
	if !m.IsEmpty() {
		t.Error("entry survived release of last clone")
	}
}

func TestOrderedDuplicateInsertReplaces(t *testing.T) {
	m := NewOrdered[int, string]()

	old := m.Insert(1, "old")
	newer := m.Insert(1, "new")

	if got := m.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}

	old.Release()
	if h, ok := m.Get(1); !ok || h.Value() != "new" {
		t.Errorf("Get(1) after detached release = (%v, %v), want value %q", h, ok, "new")
	} else {
		h.Release()
	}

	newer.Release()
	if !m.IsEmpty() {
		t.Error("map not empty after replacement handle released")
	}
}

func TestOrderedConcurrentDistinctKeys(t *testing.T) {
	const n = 128
	m := NewOrdered[string, int]()

	handles := make([]*Handle[string, int], n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i] = m.Insert(fmt.Sprintf("key-%04d", i), i)
		}(i)
	}
	wg.Wait()

	if got := m.Len(); got != n {
		t.Fatalf("Len() = %d, want %d", got, n)
	}
	for i := 0; i < n; i++ {
		h, ok := m.Get(fmt.Sprintf("key-%04d", i))
		if !ok || h.Value() != i {
			t.Fatalf("Get(key-%04d) = (%v, %v), want value %d", i, h, ok, i)
		}
		h.Release()
	}

	for _, h := range handles {
		h.Release()
	}
	if !m.IsEmpty() {
		t.Errorf("Len() = %d after releasing all handles, want 0", m.Len())
	}
}

func TestOrderedGetRacesFinalRelease(t *testing.T) {
	m := NewOrdered[string, int]()

	for i := 0; i < 1000; i++ {
		h := m.Insert("k", i)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.Release()
		}()
		go func(want int) {
			defer wg.Done()
			if got, ok := m.Get("k"); ok {
				if got.Value() != want {
					t.Errorf("raced Get saw value %d, want %d", got.Value(), want)
				}
				got.Release()
			}
		}(i)
		wg.Wait()

		if got := m.Len(); got != 0 {
			t.Fatalf("iteration %d: Len() = %d after all releases, want 0", i, got)
		}
	}
}

func TestOrderedDisposer(t *testing.T) {
	var mu sync.Mutex
	var disposed []int

	m := NewOrdered(WithDisposer(func(_ int, value int) {
		mu.Lock()
		disposed = append(disposed, value)
		mu.Unlock()
	}))

	h := m.Insert(1, 11)
	h.Release()

	mu.Lock()
	defer mu.Unlock()
	if len(disposed) != 1 || disposed[0] != 11 {
		t.Errorf("disposed = %v, want [11]", disposed)
	}
}
