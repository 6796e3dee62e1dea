package waiter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/openspace/core/clock"
	"github.com/m3rciful/openspace/core/logger"
	"github.com/m3rciful/openspace/core/metrics"
)

const component = "waiter"

// Options configures a Registry.
type Options struct {
	Clock   clock.Clock
	Metrics metrics.Recorder
}

// Registry maps each key to at most one live Waiter.
type Registry[K comparable, V any] struct {
	waiters sync.Map // K -> *Waiter[K, V]
	clock   clock.Clock
	rec     metrics.Recorder
}

// New constructs an empty registry.
func New[K comparable, V any](opts Options) *Registry[K, V] {
	return &Registry[K, V]{
		clock: clock.OrReal(opts.Clock),
		rec:   metrics.OrDefault(opts.Metrics),
	}
}

// Register maps a fresh Waiter to key, replacing any previous mapping. The
// replaced Waiter is not cancelled. A non-positive timeout yields a Waiter
// that has already completed with none.
func (r *Registry[K, V]) Register(key K, timeout time.Duration) *Waiter[K, V] {
	ctx := context.Background()
	w := newWaiter[K, V](key, r.clock.Now().Add(timeout))

	if prev, loaded := r.waiters.Swap(key, w); loaded {
		logger.Debug(ctx, component, "waiter.replaced",
			slog.String("waiter_id", prev.(*Waiter[K, V]).id),
			slog.Any("key", key),
		)
	}
	logger.Debug(ctx, component, "waiter.registered",
		slog.String("waiter_id", w.id),
		slog.Any("key", key),
		slog.Duration("timeout", timeout),
	)

	if timeout <= 0 {
		r.expire(w)
		return w
	}
	w.arm(r.clock, timeout, func() { r.expire(w) })
	return w
}

// Resolve completes the Waiter mapped to key with value. It reports whether a
// live Waiter was found and completed by this call.
func (r *Registry[K, V]) Resolve(key K, value V) bool {
	w, ok := r.take(key)
	if !ok || !w.complete(value, true) {
		return false
	}
	r.finished(w, "resolved")
	return true
}

// Cancel completes the Waiter mapped to key with none.
func (r *Registry[K, V]) Cancel(key K) bool {
	w, ok := r.take(key)
	if !ok {
		return false
	}
	var zero V
	if !w.complete(zero, false) {
		return false
	}
	r.finished(w, "cancelled")
	return true
}

// WaitForNext registers a Waiter for key and blocks until it completes or ctx
// is done. A cancelled ctx completes the Waiter with none.
func (r *Registry[K, V]) WaitForNext(ctx context.Context, key K, timeout time.Duration) (V, bool) {
	w := r.Register(key, timeout)
	select {
	case <-w.done:
		return w.value, w.ok
	case <-ctx.Done():
		var zero V
		if w.complete(zero, false) {
			r.waiters.CompareAndDelete(key, w)
			r.finished(w, "cancelled")
		}
		return w.Result()
	}
}

// Pending reports whether key currently maps to a Waiter.
func (r *Registry[K, V]) Pending(key K) bool {
	_, ok := r.waiters.Load(key)
	return ok
}

// Len returns the number of mapped Waiters.
func (r *Registry[K, V]) Len() int {
	n := 0
	r.waiters.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (r *Registry[K, V]) take(key K) (*Waiter[K, V], bool) {
	v, ok := r.waiters.LoadAndDelete(key)
	if !ok {
		return nil, false
	}
	return v.(*Waiter[K, V]), true
}

// expire runs on the timer. The mapping is dropped only if it still points at
// w, so an orphan never unlinks its replacement.
func (r *Registry[K, V]) expire(w *Waiter[K, V]) {
	var zero V
	if !w.complete(zero, false) {
		return
	}
	r.waiters.CompareAndDelete(w.key, w)
	r.finished(w, "timeout")
}

func (r *Registry[K, V]) finished(w *Waiter[K, V], outcome string) {
	ctx := context.Background()
	r.rec.WaiterCompleted(ctx, outcome)
	logger.Debug(ctx, component, "waiter.completed",
		slog.String("waiter_id", w.id),
		slog.Any("key", w.key),
		slog.String("outcome", outcome),
	)
}
