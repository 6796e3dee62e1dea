package cache

import (
	"context"
	"hash/maphash"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/openspace/core/clock"
	"github.com/m3rciful/openspace/core/logger"
	"github.com/m3rciful/openspace/core/metrics"
)

const defaultShards = 16

// EvictFunc receives the key and value of an entry removed after expiry.
type EvictFunc[K comparable, V any] func(key K, value V)

// Options configures a Cache.
//
// Sliding <= 0 makes every entry expired on arrival. Absolute == 0 disables
// the absolute bound; a negative Absolute also makes entries expire on arrival.
// SweepInterval <= 0 lets every write trigger a sweep (still one at a time).
type Options[K comparable, V any] struct {
	Name          string
	Sliding       time.Duration
	Absolute      time.Duration
	SweepInterval time.Duration
	Shards        int
	Clock         clock.Clock
	Metrics       metrics.Recorder
	OnEvicted     EvictFunc[K, V]
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Sweeps    uint64
	Len       int
}

// Cache is a sharded expiring map. The zero value is not usable; call New.
type Cache[K comparable, V any] struct {
	name       string
	sliding    time.Duration
	absolute   time.Duration
	sweepEvery time.Duration
	clock      clock.Clock
	rec        metrics.Recorder

	seed   maphash.Seed
	shards []*shard[K, V]

	lastSweep atomic.Int64
	sweeping  atomic.Bool
	inflight  sync.WaitGroup

	subsMu sync.RWMutex
	subs   []EvictFunc[K, V]

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	sweeps    atomic.Uint64
}

type shard[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]*entry[V]
}

type entry[V any] struct {
	value    V
	sliding  time.Time
	absolute time.Time // zero means no absolute bound
}

type evicted[K comparable, V any] struct {
	key   K
	value V
}

func (e *entry[V]) expired(now time.Time) bool {
	if !e.sliding.After(now) {
		return true
	}
	return !e.absolute.IsZero() && !e.absolute.After(now)
}

// New constructs a cache. The first background sweep becomes eligible one
// SweepInterval after construction.
func New[K comparable, V any](opts Options[K, V]) *Cache[K, V] {
	n := opts.Shards
	if n <= 0 {
		n = defaultShards
	}
	name := opts.Name
	if name == "" {
		name = "default"
	}
	c := &Cache[K, V]{
		name:       name,
		sliding:    opts.Sliding,
		absolute:   opts.Absolute,
		sweepEvery: opts.SweepInterval,
		clock:      clock.OrReal(opts.Clock),
		rec:        metrics.OrDefault(opts.Metrics),
		seed:       maphash.MakeSeed(),
		shards:     make([]*shard[K, V], n),
	}
	for i := range c.shards {
		c.shards[i] = &shard[K, V]{items: make(map[K]*entry[V])}
	}
	c.lastSweep.Store(c.clock.Now().UnixNano())
	if opts.OnEvicted != nil {
		c.subs = []EvictFunc[K, V]{opts.OnEvicted}
	}
	return c
}

// OnEvicted subscribes fn to automatic evictions. Subscribers run synchronously
// on the goroutine that performed the eviction.
func (c *Cache[K, V]) OnEvicted(fn EvictFunc[K, V]) {
	if fn == nil {
		return
	}
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	subs := make([]EvictFunc[K, V], 0, len(c.subs)+1)
	subs = append(subs, c.subs...)
	c.subs = append(subs, fn)
}

// TryGet returns the value stored for key and slides its expiration forward.
// An expired entry is evicted and reported as a miss.
func (c *Cache[K, V]) TryGet(key K) (V, bool) {
	var zero V
	now := c.clock.Now()
	s := c.shardFor(key)

	s.mu.Lock()
	e, ok := s.items[key]
	if !ok {
		s.mu.Unlock()
		c.lookup(false)
		return zero, false
	}
	if e.expired(now) {
		delete(s.items, key)
		s.mu.Unlock()
		c.lookup(false)
		c.notify(key, e.value, "lazy")
		return zero, false
	}
	e.sliding = now.Add(c.sliding)
	value := e.value
	s.mu.Unlock()

	c.lookup(true)
	return value, true
}

// AddOrUpdate stores value under key with fresh expiration bounds and may
// schedule a background sweep. It never waits for the sweep.
func (c *Cache[K, V]) AddOrUpdate(key K, value V) {
	now := c.clock.Now()
	e := &entry[V]{value: value, sliding: now.Add(c.sliding)}
	if c.absolute != 0 {
		e.absolute = now.Add(c.absolute)
	}

	s := c.shardFor(key)
	s.mu.Lock()
	s.items[key] = e
	s.mu.Unlock()

	c.maybeSweep(now)
}

// AddIfAbsent stores value under key unless a live entry exists, in which
// case the stored value is returned with added=false. The check and the
// insert happen under one shard lock. An expired entry is evicted and
// replaced. A live entry's expiration is left untouched.
func (c *Cache[K, V]) AddIfAbsent(key K, value V) (existing V, added bool) {
	now := c.clock.Now()
	s := c.shardFor(key)

	s.mu.Lock()
	old, ok := s.items[key]
	if ok && !old.expired(now) {
		existing = old.value
		s.mu.Unlock()
		c.lookup(true)
		return existing, false
	}
	e := &entry[V]{value: value, sliding: now.Add(c.sliding)}
	if c.absolute != 0 {
		e.absolute = now.Add(c.absolute)
	}
	s.items[key] = e
	s.mu.Unlock()

	c.lookup(false)
	if ok {
		c.notify(key, old.value, "lazy")
	}
	c.maybeSweep(now)
	return value, true
}

// TryRemove deletes key without notifying subscribers. Callers that remove an
// entry own its cleanup.
func (c *Cache[K, V]) TryRemove(key K) bool {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; !ok {
		return false
	}
	delete(s.items, key)
	return true
}

// Clear drops every entry without notifying subscribers.
func (c *Cache[K, V]) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		clear(s.items)
		s.mu.Unlock()
	}
}

// Len returns the number of stored entries, including expired entries that
// have not been evicted yet.
func (c *Cache[K, V]) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.items)
		s.mu.Unlock()
	}
	return n
}

// Stats returns counters accumulated since construction.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Sweeps:    c.sweeps.Load(),
		Len:       c.Len(),
	}
}

func (c *Cache[K, V]) shardFor(key K) *shard[K, V] {
	if len(c.shards) == 1 {
		return c.shards[0]
	}
	h := maphash.Comparable(c.seed, key)
	return c.shards[h%uint64(len(c.shards))]
}

func (c *Cache[K, V]) lookup(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	c.rec.CacheLookup(context.Background(), c.name, hit)
}

// notify must be called after the entry has left the map.
func (c *Cache[K, V]) notify(key K, value V, reason string) {
	c.evictions.Add(1)
	ctx := context.Background()
	c.rec.CacheEviction(ctx, c.name, reason)
	logger.Debug(ctx, "cache", "cache.evicted",
		slog.String("cache_name", c.name),
		slog.String("reason", reason),
		slog.Any("key", key),
	)

	c.subsMu.RLock()
	subs := c.subs
	c.subsMu.RUnlock()
	for _, fn := range subs {
		c.invoke(fn, key, value)
	}
}

func (c *Cache[K, V]) invoke(fn EvictFunc[K, V], key K, value V) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(context.Background(), "cache", "cache.evict_callback",
				slog.String("status", "fail"),
				slog.String("cache_name", c.name),
				slog.Any("key", key),
				slog.Any("err", r),
			)
		}
	}()
	fn(key, value)
}
