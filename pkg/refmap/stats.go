package refmap

import "sync/atomic"

// Stats is a point-in-time snapshot of a map's counters.
type Stats struct {
	// Size is the number of live entries.
	Size int64
	// Inserts counts all Insert calls, including replacements.
	Inserts uint64
	// Replaced counts inserts that displaced an existing entry.
	Replaced uint64
	// Hits counts Get calls that returned a handle.
	Hits uint64
	// Misses counts Get calls for absent keys.
	Misses uint64
	// Removals counts entries removed by final handle release.
	Removals uint64
}

// counters accumulates map statistics without taking the map lock.
type counters struct {
	size     atomic.Int64
	inserts  atomic.Uint64
	replaced atomic.Uint64
	hits     atomic.Uint64
	misses   atomic.Uint64
	removals atomic.Uint64
}

func (c *counters) insert(replaced bool) {
	c.inserts.Add(1)
	if replaced {
		c.replaced.Add(1)
	} else {
		c.size.Add(1)
	}
}

func (c *counters) remove() {
	c.removals.Add(1)
	c.size.Add(-1)
}

func (c *counters) snapshot() Stats {
	return Stats{
		Size:     c.size.Load(),
		Inserts:  c.inserts.Load(),
		Replaced: c.replaced.Load(),
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Removals: c.removals.Load(),
	}
}
