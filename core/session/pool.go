// Package session keeps one live wallet connector per user in an expiring
// cache. A connector that goes cold is paused by the eviction hook; its
// state stays in the key-value store and is restored on the next request.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/m3rciful/openspace/core/cache"
	"github.com/m3rciful/openspace/core/clock"
	"github.com/m3rciful/openspace/core/kv"
	"github.com/m3rciful/openspace/core/logger"
	"github.com/m3rciful/openspace/core/metrics"
)

const component = "session"

// ErrNoFactory is returned by Get when the pool was built without a Factory.
var ErrNoFactory = errors.New("session: no connector factory")

// Connector is a per-user wallet connection.
type Connector interface {
	// Pause releases network resources; the connector must be able to
	// resume from its store later.
	Pause()
}

// Factory builds the connector for userID on top of its private store.
type Factory func(ctx context.Context, userID int64, store kv.Store) (Connector, error)

// Options configures a Pool. Zero durations fall back to 2m sliding,
// no absolute bound and a 10m sweep.
type Options struct {
	Sliding       time.Duration
	Absolute      time.Duration
	SweepInterval time.Duration
	Store         kv.Store
	Factory       Factory
	Clock         clock.Clock
	Metrics       metrics.Recorder
}

// Pool hands out cached connectors.
type Pool struct {
	cache   *cache.Cache[int64, Connector]
	group   singleflight.Group
	store   kv.Store
	factory Factory
}

// NewPool builds a pool from opts.
func NewPool(opts Options) *Pool {
	if opts.Sliding <= 0 {
		opts.Sliding = 2 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 10 * time.Minute
	}
	if opts.Store == nil {
		opts.Store = kv.NewMemory()
	}
	p := &Pool{store: opts.Store, factory: opts.Factory}
	p.cache = cache.New(cache.Options[int64, Connector]{
		Name:          "sessions",
		Sliding:       opts.Sliding,
		Absolute:      opts.Absolute,
		SweepInterval: opts.SweepInterval,
		Clock:         opts.Clock,
		Metrics:       opts.Metrics,
		OnEvicted:     p.recycle,
	})
	return p
}

// Get returns the live connector for userID, creating it on a miss.
// Concurrent misses for the same user share one factory call.
func (p *Pool) Get(ctx context.Context, userID int64) (Connector, error) {
	if c, ok := p.cache.TryGet(userID); ok {
		return c, nil
	}
	if p.factory == nil {
		return nil, ErrNoFactory
	}
	v, err, _ := p.group.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		if c, ok := p.cache.TryGet(userID); ok {
			return c, nil
		}
		c, err := p.factory(ctx, userID, StoreFor(p.store, userID))
		if err != nil {
			return nil, err
		}
		p.cache.AddOrUpdate(userID, c)
		logger.Debug(ctx, component, "connector.created", slog.Int64("user_id", userID))
		return c, nil
	})
	if err != nil {
		logger.Warn(ctx, component, "connector.create",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return nil, err
	}
	return v.(Connector), nil
}

// Forget drops userID's connector without pausing it. Callers that
// disconnect a wallet own the cleanup.
func (p *Pool) Forget(userID int64) bool {
	return p.cache.TryRemove(userID)
}

// Len returns the number of cached connectors, expired ones included.
func (p *Pool) Len() int { return p.cache.Len() }

// Stats exposes the underlying cache counters.
func (p *Pool) Stats() cache.Stats { return p.cache.Stats() }

// Sweep evicts cold connectors now and returns how many were paused.
func (p *Pool) Sweep() int { return p.cache.Sweep() }

// Close waits for background sweeps to finish.
func (p *Pool) Close() { p.cache.Wait() }

// StoreFor returns the namespaced view of store owned by userID.
func StoreFor(store kv.Store, userID int64) kv.Store {
	return kv.Prefixed(store, "session:"+strconv.FormatInt(userID, 10)+":")
}

func (p *Pool) recycle(userID int64, c Connector) {
	c.Pause()
	logger.Info(logger.Background(), component, "connector.paused", slog.Int64("user_id", userID))
}
