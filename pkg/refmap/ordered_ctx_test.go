package refmap

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestOrderedCtxLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewOrderedCtx[int, string]()

	h1, err := m.Insert(ctx, 1, "one")
	if err != nil {
		t.Fatalf("Insert(1) error = %v", err)
	}
	h2, err := m.Insert(ctx, 2, "two")
	if err != nil {
		t.Fatalf("Insert(2) error = %v", err)
	}

	if n, err := m.Len(ctx); err != nil || n != 2 {
		t.Fatalf("Len() = (%d, %v), want (2, nil)", n, err)
	}

	got, ok, err := m.Get(ctx, 1)
	if err != nil || !ok || got.Value() != "one" {
		t.Fatalf("Get(1) = (%v, %v, %v), want value %q", got, ok, err, "one")
	}
	got.Release()
	h1.Release()

	if _, ok, err := m.Get(ctx, 1); err != nil || ok {
		t.Errorf("Get(1) after release = (ok=%v, err=%v), want absent", ok, err)
	}

	h2.Release()
	if empty, err := m.IsEmpty(ctx); err != nil || !empty {
		t.Errorf("IsEmpty() = (%v, %v), want (true, nil)", empty, err)
	}
}

func TestOrderedCtxCanceledContext(t *testing.T) {
	m := NewOrderedCtx[int, int]()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Insert(ctx, 1, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Insert with canceled ctx error = %v, want context.Canceled", err)
	}
	if _, _, err := m.Get(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Get with canceled ctx error = %v, want context.Canceled", err)
	}

	if n, err := m.Len(context.Background()); err != nil || n != 0 {
		t.Errorf("Len() = (%d, %v) after canceled inserts, want (0, nil)", n, err)
	}
}

func TestOrderedCtxDuplicateInsertReplaces(t *testing.T) {
	ctx := context.Background()
	m := NewOrderedCtx[int, string]()

	old, err := m.Insert(ctx, 7, "old")
	if err != nil {
		t.Fatalf("Insert error = %v", err)
	}
	newer, err := m.Insert(ctx, 7, "new")
	if err != nil {
		t.Fatalf("Insert error = %v", err)
	}

	old.Release()
	if h, ok, err := m.Get(ctx, 7); err != nil || !ok || h.Value() != "new" {
		t.Errorf("Get(7) = (%v, %v, %v), want value %q", h, ok, err, "new")
	} else {
		h.Release()
	}

	newer.Release()
	if empty, err := m.IsEmpty(ctx); err != nil || !empty {
		t.Errorf("IsEmpty() = (%v, %v), want (true, nil)", empty, err)
	}
}

func TestOrderedCtxConcurrentChurn(t *testing.T) {
	const workers = 8
	const perWorker = 50

	ctx := context.Background()
	m := NewOrderedCtx[int, int]()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := w*perWorker + i
				h, err := m.Insert(ctx, key, key)
				if err != nil {
					t.Errorf("Insert(%d) error = %v", key, err)
					return
				}
				got, ok, err := m.Get(ctx, key)
				if err != nil || !ok || got.Value() != key {
					t.Errorf("Get(%d) = (%v, %v, %v)", key, got, ok, err)
					return
				}
				got.Release()
				h.Release()
			}
		}(w)
	}
	wg.Wait()

	if empty, err := m.IsEmpty(ctx); err != nil || !empty {
		n, _ := m.Len(ctx)
		t.Errorf("map not empty after churn: Len() = %d, err = %v", n, err)
	}
}
