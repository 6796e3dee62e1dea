package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/openspace/core/logger"
)

// maybeSweep claims the sweep slot when the interval has elapsed since the
// last sweep started and runs the scan in its own goroutine. Concurrent
// callers lose a CAS and return immediately. While a sweep is running the
// interval is not consumed, so the next write after it finishes may sweep.
func (c *Cache[K, V]) maybeSweep(now time.Time) {
	last := c.lastSweep.Load()
	nowNano := now.UnixNano()
	if c.sweepEvery > 0 && nowNano-last < int64(c.sweepEvery) {
		return
	}
	if !c.sweeping.CompareAndSwap(false, true) {
		return
	}
	if !c.lastSweep.CompareAndSwap(last, nowNano) {
		c.sweeping.Store(false)
		return
	}
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer c.sweeping.Store(false)
		c.sweep()
	}()
}

// Sweep evicts every expired entry on the calling goroutine and returns how
// many were removed.
func (c *Cache[K, V]) Sweep() int {
	return c.sweep()
}

// Wait blocks until background sweeps started so far have finished.
func (c *Cache[K, V]) Wait() {
	c.inflight.Wait()
}

// sweep holds one shard lock at a time and notifies outside of it. Entries
// written after the scan started carry bounds later than now and survive.
func (c *Cache[K, V]) sweep() int {
	start := time.Now()
	now := c.clock.Now()
	total := 0
	for _, s := range c.shards {
		var dead []evicted[K, V]
		s.mu.Lock()
		for k, e := range s.items {
			if e.expired(now) {
				delete(s.items, k)
				dead = append(dead, evicted[K, V]{key: k, value: e.value})
			}
		}
		s.mu.Unlock()

		for _, d := range dead {
			c.notify(d.key, d.value, "sweep")
		}
		total += len(dead)
	}

	c.sweeps.Add(1)
	ctx := context.Background()
	c.rec.CacheSweep(ctx, c.name, total)
	logger.Debug(ctx, "cache", "cache.sweep",
		slog.String("status", "ok"),
		slog.String("cache_name", c.name),
		slog.Int("count", total),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return total
}
