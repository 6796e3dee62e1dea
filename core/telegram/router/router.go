// Package router dispatches inbound events to pending waiters and to keyed
// command and callback handlers.
//
// Every message, command and callback is first offered to the waiter
// registry under its correlation key. A plain message that resolves a
// waiter is consumed: it was the answer to a prompt and is not dispatched
// again unless Options.DispatchResolved is set. Commands and callbacks
// still resolve the waiter, which the prompt treats as abandonment, and are
// then dispatched as usual. Events without a matching handler are dropped.
package router

import (
	"context"
	"log/slog"
	"time"

	tg "github.com/m3rciful/openspace/core/telegram"
	"github.com/m3rciful/openspace/core/telegram/event"
	"github.com/m3rciful/openspace/core/telegram/middleware"
	"github.com/m3rciful/openspace/core/telegram/waiter"
)

// Waiters is the registry type the router feeds.
type Waiters = waiter.Registry[event.Key, event.Event]

// Options tunes dispatch.
type Options struct {
	// DispatchResolved also dispatches a message that completed a waiter.
	DispatchResolved bool
	// AdminID gates commands flagged AdminOnly.
	AdminID       int64
	OnAdminReject event.Handler
}

// EventRouter routes events to waiters first and to handlers second.
type EventRouter struct {
	waiters *Waiters
	reg     *tg.Registry
	opts    Options
}

// New builds an EventRouter. Either waiters or reg may be nil.
func New(waiters *Waiters, reg *tg.Registry, opts Options) *EventRouter {
	if reg == nil {
		reg = tg.NewRegistry()
	}
	return &EventRouter{waiters: waiters, reg: reg, opts: opts}
}

// Registry returns the handler registry.
func (r *EventRouter) Registry() *tg.Registry {
	return r.reg
}

// Waiters returns the waiter registry the router resolves.
func (r *EventRouter) Waiters() *Waiters {
	return r.waiters
}

// Dispatch processes one event. It returns the handler error, if any.
func (r *EventRouter) Dispatch(ctx context.Context, ev event.Event) error {
	start := time.Now()

	if r.offer(ev) && ev.Kind == event.KindMessage && !r.opts.DispatchResolved {
		logHandled(ctx, ev, "waiter", start, "ok", "resolved", nil)
		return nil
	}

	name, h := r.route(ev)
	if h == nil {
		logHandled(ctx, ev, name, start, "skip", "ok", nil,
			slog.String("reason", "not_found"),
		)
		return nil
	}

	ctx = withHandler(ctx, name)
	err := h(ctx, ev)
	logHandled(ctx, ev, name, start, "", "", err)
	return err
}

// offer hands the event to a pending waiter and reports whether one took it.
func (r *EventRouter) offer(ev event.Event) bool {
	if r.waiters == nil {
		return false
	}
	switch ev.Kind {
	case event.KindMessage, event.KindCommand, event.KindCallback:
		return r.waiters.Resolve(ev.Key, ev)
	default:
		return false
	}
}

func (r *EventRouter) route(ev event.Event) (string, event.Handler) {
	switch ev.Kind {
	case event.KindCommand:
		if key, cmd, ok := r.reg.LookupCommand(ev.Command); ok && cmd.Handler != nil {
			h := cmd.Handler
			if cmd.AdminOnly {
				h = middleware.AdminOnly(middleware.AdminOptions{
					AdminID:  r.opts.AdminID,
					OnReject: r.opts.OnAdminReject,
				}, h)
			}
			return "command." + normalizeHandlerName(key), h
		}
		return "fallback", r.reg.TextFallback()
	case event.KindMessage:
		return "fallback", r.reg.TextFallback()
	case event.KindCallback:
		name := "callback." + normalizeHandlerName(ev.CallbackID)
		if h, ok := r.reg.GetCallback(ev.CallbackID); ok {
			return name, h
		}
		return name, r.reg.CallbackNotFound()
	default:
		return "other", nil
	}
}
