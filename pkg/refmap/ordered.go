package refmap

import (
	"cmp"
	"sync"

	"github.com/google/btree"
)

// btreeDegree is the branching factor for the ordered index.
const btreeDegree = 32

// ordEntry is the ordered index record: the key plus the weak link to
// the entry's node. Only the key participates in ordering, so a
// zero-node ordEntry works as a lookup probe.
type ordEntry[K cmp.Ordered, V any] struct {
	key K
	n   *node[K, V]
}

func ordLess[K cmp.Ordered, V any](a, b ordEntry[K, V]) bool {
	return a.key < b.key
}

// Ordered is a self-cleaning map over totally-ordered keys, backed by
// a B-tree and a blocking reader/writer lock.
type Ordered[K cmp.Ordered, V any] struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[ordEntry[K, V]]
	cfg  config[K, V]
	c    counters
}

// NewOrdered creates an empty ordered map.
func NewOrdered[K cmp.Ordered, V any](opts ...Option[K, V]) *Ordered[K, V] {
	m := &Ordered[K, V]{
		tree: btree.NewG(btreeDegree, ordLess[K, V]),
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
func (m *Ordered[K, V]) Insert(key K, value V) *Handle[K, V] {
	n := &node[K, V]{key: key, value: value, owner: m}
	n.refs.Store(1)

	m.mu.Lock()
	_, replaced := m.tree.ReplaceOrInsert(ordEntry[K, V]{key: key, n: n})
	m.mu.Unlock()

	m.c.insert(replaced)
	return &Handle[K, V]{n: n}
}

// Get returns a fresh handle for the entry under key, or (nil, false)
// if key is absent.
func (m *Ordered[K, V]) Get(key K) (*Handle[K, V], bool) {
	m.mu.RLock()
	e, ok := m.tree.Get(ordEntry[K, V]{key: key})
	if !ok {
		m.mu.RUnlock()
		m.c.misses.Add(1)
		return nil, false
	}
	alive := e.n.retain()
	m.mu.RUnlock()

	if !alive {
		// Unreachable: an indexed node cannot lose its last reference
		// while the shared lock is held.
		panic("refmap: indexed entry has zero references")
	}
	m.c.hits.Add(1)
	return &Handle[K, V]{n: e.n}, true
}

// Len returns the number of live entries.
func (m *Ordered[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Len()
}

// IsEmpty reports whether the map has no live entries.
func (m *Ordered[K, V]) IsEmpty() bool {
	return m.Len() == 0
}

// Stats returns a snapshot of the map's counters.
func (m *Ordered[K, V]) Stats() Stats {
	return m.c.snapshot()
}

// discard finishes a release that may be the entry's last. The 1->0
// transition happens under the exclusive lock so that Get, which
// upgrades under the shared lock, can never observe a dead indexed
// node. The entry leaves the index before the disposer sees the value.
func (m *Ordered[K, V]) discard(n *node[K, V]) {
	m.mu.Lock()
	if n.refs.Add(-1) > 0 {
		// A Get revived the entry while this release was waiting.
		m.mu.Unlock()
		return
	}
	if e, ok := m.tree.Get(ordEntry[K, V]{key: n.key}); ok && e.n == n {
		m.tree.Delete(ordEntry[K, V]{key: n.key})
		m.c.remove()
	}
	m.mu.Unlock()

	if m.cfg.dispose != nil {
		m.cfg.dispose(n.key, n.value)
	}
}
