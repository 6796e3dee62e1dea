package middleware

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const repliesKey = "replies"

// Replies counts the messages a handler sent or edited for one update.
// Sends may complete on a dispatcher worker, so the counters are atomic.
type Replies struct {
	sent     atomic.Int32
	edited   atomic.Int32
	keyboard atomic.Bool
}

// Sent returns the number of new messages.
func (r *Replies) Sent() int { return int(r.sent.Load()) }

// Edited returns the number of edited messages.
func (r *Replies) Edited() int { return int(r.edited.Load()) }

// Total returns sent plus edited.
func (r *Replies) Total() int { return r.Sent() + r.Edited() }

// Keyboard reports whether any reply carried a keyboard.
func (r *Replies) Keyboard() bool { return r.keyboard.Load() }

func (r *Replies) record(edit bool, opts []any) {
	if edit {
		r.edited.Add(1)
	} else {
		r.sent.Add(1)
	}
	if hasKeyboard(opts) {
		r.keyboard.Store(true)
	}
}

// RepliesFrom returns the counters attached by MessageMetricsMiddleware, or
// empty counters when the middleware did not run.
func RepliesFrom(c tele.Context) *Replies {
	if c != nil {
		if r, ok := c.Get(repliesKey).(*Replies); ok {
			return r
		}
	}
	return &Replies{}
}

// countingContext records successful replies made through it.
type countingContext struct {
	tele.Context
	replies *Replies
}

func hasKeyboard(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (c countingContext) count(err error, edit bool, opts []any) error {
	if err == nil {
		c.replies.record(edit, opts)
	}
	return err
}

func (c countingContext) Send(what any, opts ...any) error {
	return c.count(c.Context.Send(what, opts...), false, opts)
}

func (c countingContext) Reply(what any, opts ...any) error {
	return c.count(c.Context.Reply(what, opts...), false, opts)
}

func (c countingContext) Edit(what any, opts ...any) error {
	return c.count(c.Context.Edit(what, opts...), true, opts)
}

// EditOrSend and EditOrReply edit when the update is a button press.
func (c countingContext) EditOrSend(what any, opts ...any) error {
	return c.count(c.Context.EditOrSend(what, opts...), c.Callback() != nil, opts)
}

func (c countingContext) EditOrReply(what any, opts ...any) error {
	return c.count(c.Context.EditOrReply(what, opts...), c.Callback() != nil, opts)
}

// MessageMetricsMiddleware attaches reply counters to the update; the router
// reports them when the handler finishes.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		r := &Replies{}
		c.Set(repliesKey, r)
		return next(countingContext{Context: c, replies: r})
	}
}
