package refmap

import (
	"cmp"
	"context"

	"github.com/google/btree"
)

// OrderedCtx is the cooperative counterpart of Ordered: every
// operation takes a context, and waiting for the map lock suspends the
// calling goroutine and honors cancellation. The only error any method
// returns is ctx.Err() from a canceled wait; a canceled Insert or Get
// leaves the map untouched.
//
// The final-release teardown is the exception to the cooperative
// contract: it acquires the lock with context.Background(), blocking
// uncancelably, because no cancellation scope exists at release time.
type OrderedCtx[K cmp.Ordered, V any] struct {
	lk   *rwsem
	tree *btree.BTreeG[ordEntry[K, V]]
	cfg  config[K, V]
	c    counters
}

// NewOrderedCtx creates an empty cooperative ordered map.
func NewOrderedCtx[K cmp.Ordered, V any](opts ...Option[K, V]) *OrderedCtx[K, V] {
	m := &OrderedCtx[K, V]{
		lk:   newRWSem(),
		tree: btree.NewG(btreeDegree, ordLess[K, V]),
	}
	for _, opt := range opts {
		opt(&m.cfg)
	}
	return m
}

// Insert stores value under key and returns the initial handle.
// Replacement semantics match Ordered.Insert.
func (m *OrderedCtx[K, V]) Insert(ctx context.Context, key K, value V) (*Handle[K, V], error) {
	n := &node[K, V]{key: key, value: value, owner: m}
	n.refs.Store(1)

	if err := m.lk.lock(ctx); err != nil {
		return nil, err
	}
	_, replaced := m.tree.ReplaceOrInsert(ordEntry[K, V]{key: key, n: n})
	m.lk.unlock()

	m.c.insert(replaced)
	return &Handle[K, V]{n: n}, nil
}

// Get returns a fresh handle for the entry under key. An absent key is
// (nil, false, nil), not an error.
func (m *OrderedCtx[K, V]) Get(ctx context.Context, key K) (*Handle[K, V], bool, error) {
	if err := m.lk.rlock(ctx); err != nil {
		return nil, false, err
	}
	e, ok := m.tree.Get(ordEntry[K, V]{key: key})
	if !ok {
		m.lk.runlock()
		m.c.misses.Add(1)
		return nil, false, nil
	}
	alive := e.n.retain()
	m.lk.runlock()

	if !alive {
		panic("refmap: indexed entry has zero references")
	}
	m.c.hits.Add(1)
	return &Handle[K, V]{n: e.n}, true, nil
}

// Len returns the number of live entries.
func (m *OrderedCtx[K, V]) Len(ctx context.Context) (int, error) {
	if err := m.lk.rlock(ctx); err != nil {
		return 0, err
	}
	defer m.lk.runlock()
	return m.tree.Len(), nil
}

// IsEmpty reports whether the map has no live entries.
func (m *OrderedCtx[K, V]) IsEmpty(ctx context.Context) (bool, error) {
	n, err := m.Len(ctx)
	return n == 0, err
}

// Stats returns a snapshot of the map's counters.
func (m *OrderedCtx[K, V]) Stats() Stats {
	return m.c.snapshot()
}

func (m *OrderedCtx[K, V]) discard(n *node[K, V]) {
	// Teardown must run to completion; Background never cancels.
	_ = m.lk.lock(context.Background())
	if n.refs.Add(-1) > 0 {
		m.lk.unlock()
		return
	}
	if e, ok := m.tree.Get(ordEntry[K, V]{key: n.key}); ok && e.n == n {
		m.tree.Delete(ordEntry[K, V]{key: n.key})
		m.c.remove()
	}
	m.lk.unlock()

	if m.cfg.dispose != nil {
		m.cfg.dispose(n.key, n.value)
	}
}
