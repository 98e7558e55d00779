package refmap

import (
	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is the default number of shards for Sharded.
const DefaultShardCount = 16

// Sharded distributes string keys over a set of Hashed maps to reduce
// lock contention under high concurrency. Each key always routes to
// the same shard, so the per-key lifecycle guarantees of Hashed hold
// unchanged; only whole-map reads (Len, IsEmpty, Stats) lose
// atomicity, becoming per-shard sums.
type Sharded[V any] struct {
	shards []*Hashed[string, V]
	mask   uint32
}

// ShardedOption configures a Sharded map.
type ShardedOption[V any] func(*shardedConfig[V])

type shardedConfig[V any] struct {
	shardCount int
	dispose    func(key string, value V)
}

// WithShardCount sets the number of shards. count must be a power of
// two; anything else falls back to DefaultShardCount.
func WithShardCount[V any](count int) ShardedOption[V] {
	return func(c *shardedConfig[V]) {
		c.shardCount = count
	}
}

// WithShardDisposer registers a disposer applied to every shard.
func WithShardDisposer[V any](fn func(key string, value V)) ShardedOption[V] {
	return func(c *shardedConfig[V]) {
		c.dispose = fn
	}
}

// NewSharded creates a sharded self-cleaning map.
func NewSharded[V any](opts ...ShardedOption[V]) *Sharded[V] {
	cfg := shardedConfig[V]{shardCount: DefaultShardCount}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.shardCount <= 0 || cfg.shardCount&(cfg.shardCount-1) != 0 {
		cfg.shardCount = DefaultShardCount
	}

	s := &Sharded[V]{
		shards: make([]*Hashed[string, V], cfg.shardCount),
		mask:   uint32(cfg.shardCount - 1),
	}
	for i := range s.shards {
		if cfg.dispose != nil {
			s.shards[i] = NewHashed(WithDisposer[string, V](cfg.dispose))
		} else {
			s.shards[i] = NewHashed[string, V]()
		}
	}
	return s
}

// shardFor routes a key to its shard.
func (s *Sharded[V]) shardFor(key string) *Hashed[string, V] {
	return s.shards[murmur3.Sum32([]byte(key))&s.mask]
}

// Insert stores value under key and returns the initial handle.
func (s *Sharded[V]) Insert(key string, value V) *Handle[string, V] {
	return s.shardFor(key).Insert(key, value)
}

// Get returns a fresh handle for the entry under key, or (nil, false)
// if key is absent.
func (s *Sharded[V]) Get(key string) (*Handle[string, V], bool) {
	return s.shardFor(key).Get(key)
}

// Len returns the total number of live entries across shards.
func (s *Sharded[V]) Len() int {
	total := 0
	for _, sh := range s.shards {
		total += sh.Len()
	}
	return total
}

// IsEmpty reports whether no shard has live entries.
func (s *Sharded[V]) IsEmpty() bool {
	for _, sh := range s.shards {
		if sh.Len() > 0 {
			return false
		}
	}
	return true
}

// Stats returns counters summed over all shards.
func (s *Sharded[V]) Stats() Stats {
	var total Stats
	for _, sh := range s.shards {
		st := sh.Stats()
		total.Size += st.Size
		total.Inserts += st.Inserts
		total.Replaced += st.Replaced
		total.Hits += st.Hits
		total.Misses += st.Misses
		total.Removals += st.Removals
	}
	return total
}

// ShardCount returns the number of shards.
func (s *Sharded[V]) ShardCount() int {
	return len(s.shards)
}
