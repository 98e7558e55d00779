package refmap

import (
	"sync"
)

// Hashed is a self-cleaning map over hashable keys, backed by a Go map
// and a blocking reader/writer lock.
type Hashed[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]*node[K, V]
	cfg   config[K, V]
	c     counters
}

// NewHashed creates an empty hashed map.
func NewHashed[K comparable, V any](opts ...Option[K, V]) *Hashed[K, V] {
	m := &Hashed[K, V]{
		items: make(map[K]*node[K, V]),
	}
	for _, opt := range opts {
		opt(&m.cfg)
	}
	return m
}

// Insert stores value under key and returns the initial handle.
// Insert always succeeds. If key is already present the new entry
// replaces the old one; handles to the old entry stay usable but are
// detached from the map (their final release no longer removes key).
func (m *Hashed[K, V]) Insert(key K, value V) *Handle[K, V] {
	n := &node[K, V]{key: key, value: value, owner: m}
	n.refs.Store(1)

	m.mu.Lock()
	_, replaced := m.items[key]
	m.items[key] = n
	m.mu.Unlock()

	m.c.insert(replaced)
	return &Handle[K, V]{n: n}
}

// Get returns a fresh handle for the entry under key, or (nil, false)
// if key is absent.
func (m *Hashed[K, V]) Get(key K) (*Handle[K, V], bool) {
	m.mu.RLock()
	n, ok := m.items[key]
	if !ok {
		m.mu.RUnlock()
		m.c.misses.Add(1)
		return nil, false
	}
	alive := n.retain()
	m.mu.RUnlock()

	if !alive {
		// Unreachable: an indexed node cannot lose its last reference
		// while the shared lock is held.
		panic("refmap: indexed entry has zero references")
	}
	m.c.hits.Add(1)
	return &Handle[K, V]{n: n}, true
}

// Len returns the number of live entries.
func (m *Hashed[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// IsEmpty reports whether the map has no live entries.
func (m *Hashed[K, V]) IsEmpty() bool {
	return m.Len() == 0
}

// Stats returns a snapshot of the map's counters.
func (m *Hashed[K, V]) Stats() Stats {
	return m.c.snapshot()
}

// discard finishes a release that may be the entry's last. The 1->0
// transition happens under the exclusive lock so that Get, which
// upgrades under the shared lock, can never observe a dead indexed
// node. The entry leaves the index before the disposer sees the value.
func (m *Hashed[K, V]) discard(n *node[K, V]) {
	m.mu.Lock()
	if n.refs.Add(-1) > 0 {
		// A Get revived the entry while this release was waiting.
		m.mu.Unlock()
		return
	}
	if cur, ok := m.items[n.key]; ok && cur == n {
		delete(m.items, n.key)
		m.c.remove()
	}
	m.mu.Unlock()

	if m.cfg.dispose != nil {
		m.cfg.dispose(n.key, n.value)
	}
}
