package refmap

import (
	"sync/atomic"
)

// node is the shared allocation behind every clone of a Handle for one
// entry. The index record points at the same node, but that link never
// contributes to refs: once refs reaches zero the node is dead and
// cannot be revived, which is what makes the index link weak.
type node[K comparable, V any] struct {
	refs  atomic.Int64
	key   K
	value V
	owner owner[K, V]
}

// owner is the back-link from a node to the map that indexed it.
// discard performs the final decrement and, when the count reaches
// zero, removes the entry under the owner's exclusive lock.
type owner[K comparable, V any] interface {
	discard(n *node[K, V])
}

// retain increments refs unless the node is already dead.
//
// Callers inside a map hold the shared lock, under which an indexed
// node always has refs >= 1 (the final 1->0 transition only happens
// under the exclusive lock), so retain cannot fail there.
func (n *node[K, V]) retain() bool {
	for {
		r := n.refs.Load()
		if r == 0 {
			return false
		}
		if n.refs.CompareAndSwap(r, r+1) {
			return true
		}
	}
}

// release gives up one reference. Decrements from a count above one
// are lock-free; a count of one means this may be the last reference,
// so the owner takes over and finishes the decrement under its
// exclusive lock.
func (n *node[K, V]) release() {
	for {
		r := n.refs.Load()
		if r > 1 {
			if n.refs.CompareAndSwap(r, r-1) {
				return
			}
			continue
		}
		n.owner.discard(n)
		return
	}
}

// Handle is a reference-counted, read-only capability for a value
// stored in a refmap. Clones share one count; the release that drives
// the count to zero removes the entry from its map and then runs the
// map's disposer, if any.
//
// A Handle must be released exactly once. Releasing twice is a no-op,
// but a Handle that is never released keeps its entry in the map
// forever.
type Handle[K comparable, V any] struct {
	n        *node[K, V]
	released atomic.Bool
}

// Key returns the entry key.
func (h *Handle[K, V]) Key() K {
	return h.n.key
}

// Value returns the stored value.
// It panics if the handle has already been released: the value may be
// mid-teardown, and handing it out would defeat the map's guarantee.
func (h *Handle[K, V]) Value() V {
	if h.released.Load() {
		panic("refmap: Value on released handle")
	}
	return h.n.value
}

// Clone returns a new handle sharing this handle's entry and count.
// The map itself is not touched. It panics on a released handle.
func (h *Handle[K, V]) Clone() *Handle[K, V] {
	if h.released.Load() {
		panic("refmap: Clone of released handle")
	}
	h.n.refs.Add(1)
	return &Handle[K, V]{n: h.n}
}

// Release gives up this handle. The handle that drops the shared count
// to zero synchronously tears the entry down: it acquires the map's
// lock exclusively, removes the entry, releases the lock, then runs
// the disposer. Release on an already-released handle does nothing.
func (h *Handle[K, V]) Release() {
	if h.released.Swap(true) {
		return
	}
	h.n.release()
}
