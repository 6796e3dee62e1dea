// Package cache implements a generic, concurrency-safe in-memory cache of
// short-lived objects with two expiration bounds per entry:
//
//   - sliding: pushed forward on every successful TryGet
//   - absolute: fixed at insertion, optional
//
// An entry is live while now is before both bounds. Expired entries are
// removed lazily by TryGet or by a background sweep that runs at most once
// per sweep interval and is triggered by writes. Each automatic removal is
// reported exactly once to the eviction subscribers, after the entry is gone
// from the map. Explicit TryRemove and Clear do not notify.
package cache
