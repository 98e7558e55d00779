// Package refmap provides self-cleaning concurrent maps.
//
// A refmap entry lives exactly as long as at least one Handle to its
// value is held. Inserting returns a Handle; Get returns a fresh
// Handle for a live entry; releasing the last Handle for a key removes
// the entry from the map, race-free against concurrent lookups and
// inserts. There is no Delete: removal is driven entirely by handle
// release.
//
// Four variants cover the (ordering x substrate) matrix:
//
//   - Ordered:    ordered keys, blocking lock (sync.RWMutex)
//   - Hashed:     hashed keys, blocking lock (sync.RWMutex)
//   - OrderedCtx: ordered keys, context-suspending lock
//   - HashedCtx:  hashed keys, context-suspending lock
//
// Sharded spreads string keys over multiple Hashed maps for lower lock
// contention; per-key semantics are unchanged.
//
// The Ctx variants accept a context on every operation; waiting for
// the map lock honors cancellation. The teardown that runs on final
// release is the one exception: it always blocks until the lock is
// held, because no cancellation scope exists at release time.
//
// Usage:
//
//	m := refmap.NewHashed[string, *Conn]()
//	h := m.Insert("peer-1", conn)
//	defer h.Release()
//
//	if h2, ok := m.Get("peer-1"); ok {
//		use(h2.Value())
//		h2.Release()
//	}
//
// Go has no scope-exit finalization, so release is explicit: a Handle
// that is never released leaks its entry. Handles are read-only
// capabilities; the stored value is never mutated through them.
//
// Thread Safety:
//
// All operations are safe for concurrent use. Reads (Get, Len,
// IsEmpty) hold a shared lock, structural mutations (Insert, the
// final-release teardown) hold the exclusive lock.
package refmap
