// Package waiter correlates "the next input from this key" requests with an
// unordered stream of inbound events.
//
// A Waiter completes exactly once: with a value when an event resolves it, or
// with none when its own timer fires first. Registering a second Waiter for a
// key unlinks the first without cancelling it; the orphan still completes with
// none at its own deadline but can no longer be resolved.
package waiter

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/openspace/core/clock"
)

// Waiter is a single pending request for the next value of its key.
type Waiter[K comparable, V any] struct {
	id       string
	key      K
	deadline time.Time

	once  sync.Once
	done  chan struct{}
	value V
	ok    bool

	mu       sync.Mutex
	timer    clock.Timer
	released bool
}

func newWaiter[K comparable, V any](key K, deadline time.Time) *Waiter[K, V] {
	return &Waiter[K, V]{
		id:       uuid.NewString(),
		key:      key,
		deadline: deadline,
		done:     make(chan struct{}),
	}
}

// ID returns a unique identifier used in logs.
func (w *Waiter[K, V]) ID() string { return w.id }

// Key returns the correlation key the waiter was registered under.
func (w *Waiter[K, V]) Key() K { return w.key }

// Deadline returns the instant the waiter times out.
func (w *Waiter[K, V]) Deadline() time.Time { return w.deadline }

// Done is closed once the waiter has completed.
func (w *Waiter[K, V]) Done() <-chan struct{} { return w.done }

// Result returns the completed value. ok is false for timeouts and
// cancellations, and while the waiter is still pending.
func (w *Waiter[K, V]) Result() (V, bool) {
	select {
	case <-w.done:
		return w.value, w.ok
	default:
		var zero V
		return zero, false
	}
}

// Wait blocks until the waiter completes or ctx is done. Abandoning the wait
// does not complete the waiter; it still times out on its own.
func (w *Waiter[K, V]) Wait(ctx context.Context) (V, bool) {
	select {
	case <-w.done:
		return w.value, w.ok
	case <-ctx.Done():
		var zero V
		return zero, false
	}
}

// complete writes the slot once and reports whether this call won.
func (w *Waiter[K, V]) complete(v V, ok bool) bool {
	won := false
	w.once.Do(func() {
		w.value, w.ok = v, ok
		won = true
		close(w.done)
		w.release()
	})
	return won
}

func (w *Waiter[K, V]) arm(c clock.Clock, d time.Duration, fire func()) {
	t := c.AfterFunc(d, fire)
	w.mu.Lock()
	if w.released {
		w.mu.Unlock()
		t.Stop()
		return
	}
	w.timer = t
	w.mu.Unlock()
}

// release stops the timer. Safe against arm running concurrently.
func (w *Waiter[K, V]) release() {
	w.mu.Lock()
	w.released = true
	t := w.timer
	w.timer = nil
	w.mu.Unlock()
	if t != nil {
		t.Stop()
	}
}
