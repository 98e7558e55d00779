package refmap

import (
	"context"
)

// HashedCtx is the cooperative counterpart of Hashed: every operation
// takes a context, and waiting for the map lock suspends the calling
// goroutine and honors cancellation. The only error any method returns
// is ctx.Err() from a canceled wait; a canceled Insert or Get leaves
// the map untouched.
//
// The final-release teardown is the exception to the cooperative
// contract: it acquires the lock with context.Background(), blocking
// uncancelably, because no cancellation scope exists at release time.
type HashedCtx[K comparable, V any] struct {
	lk    *rwsem
	items map[K]*node[K, V]
	cfg   config[K, V]
	c     counters
}

// NewHashedCtx creates an empty cooperative hashed map.
func NewHashedCtx[K comparable, V any](opts ...Option[K, V]) *HashedCtx[K, V] {
	m := &HashedCtx[K, V]{
		lk:    newRWSem(),
		items: make(map[K]*node[K, V]),
	}
	for _, opt := range opts {
		opt(&m.cfg)
	}
	return m
}

// Insert stores value under key and returns the initial handle.
// Replacement semantics match Hashed.Insert.
func (m *HashedCtx[K, V]) Insert(ctx context.Context, key K, value V) (*Handle[K, V], error) {
	n := &node[K, V]{key: key, value: value, owner: m}
	n.refs.Store(1)

	if err := m.lk.lock(ctx); err != nil {
		return nil, err
	}
	_, replaced := m.items[key]
	m.items[key] = n
	m.lk.unlock()

	m.c.insert(replaced)
	return &Handle[K, V]{n: n}, nil
}

// Get returns a fresh handle for the entry under key. An absent key is
// (nil, false, nil), not an error.
func (m *HashedCtx[K, V]) Get(ctx context.Context, key K) (*Handle[K, V], bool, error) {
	if err := m.lk.rlock(ctx); err != nil {
		return nil, false, err
	}
	n, ok := m.items[key]
	if !ok {
		m.lk.runlock()
		m.c.misses.Add(1)
		return nil, false, nil
	}
	alive := n.retain()
	m.lk.runlock()

	if !alive {
		panic("refmap: indexed entry has zero references")
	}
	m.c.hits.Add(1)
	return &Handle[K, V]{n: n}, true, nil
}

// Len returns the number of live entries.
func (m *HashedCtx[K, V]) Len(ctx context.Context) (int, error) {
	if err := m.lk.rlock(ctx); err != nil {
		return 0, err
	}
	defer m.lk.runlock()
	return len(m.items), nil
}

// IsEmpty reports whether the map has no live entries.
func (m *HashedCtx[K, V]) IsEmpty(ctx context.Context) (bool, error) {
	n, err := m.Len(ctx)
	return n == 0, err
}

// Stats returns a snapshot of the map's counters.
func (m *HashedCtx[K, V]) Stats() Stats {
	return m.c.snapshot()
}

func (m *HashedCtx[K, V]) discard(n *node[K, V]) {
	// Teardown must run to completion; Background never cancels.
	_ = m.lk.lock(context.Background())
	if n.refs.Add(-1) > 0 {
		m.lk.unlock()
		return
	}
	if cur, ok := m.items[n.key]; ok && cur == n {
		delete(m.items, n.key)
		m.c.remove()
	}
	m.lk.unlock()

	if m.cfg.dispose != nil {
		m.cfg.dispose(n.key, n.value)
	}
}
