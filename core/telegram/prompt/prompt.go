// Package prompt asks a user for input and keeps asking until the answer
// validates, showing the latest validation error in a single message.
package prompt

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/openspace/core/logger"
	"github.com/m3rciful/openspace/core/metrics"
	"github.com/m3rciful/openspace/core/telegram/event"
)

const component = "prompt"

// Result is the outcome of validating one raw input.
type Result[T any] struct {
	Value  T
	Reason string
	ok     bool
}

// Valid accepts v.
func Valid[T any](v T) Result[T] {
	return Result[T]{Value: v, ok: true}
}

// Invalid rejects the input; reason is shown to the user.
func Invalid[T any](reason string) Result[T] {
	return Result[T]{Reason: reason}
}

// OK reports whether the input was accepted.
func (r Result[T]) OK() bool { return r.ok }

// Waiters is the part of the waiter registry the loop needs.
type Waiters interface {
	WaitForNext(ctx context.Context, key event.Key, timeout time.Duration) (event.Event, bool)
}

// Sink sends, edits and deletes chat messages.
type Sink interface {
	Send(ctx context.Context, chatID int64, text string) (event.MessageRef, error)
	Edit(ctx context.Context, ref event.MessageRef, text string) error
	Delete(ctx context.Context, ref event.MessageRef) error
}

// Asker carries the collaborators of a prompt loop.
type Asker struct {
	Waiters Waiters
	Sink    Sink
	// Metrics receives a call for every rejected input. Defaults to metrics.Default().
	Metrics metrics.Recorder
}

// AskUntilValid waits for the next message from key and validates it,
// retrying until validate accepts or no input arrives within timeout.
// Every consumed message is deleted. While retrying, exactly one error
// message is visible; it is removed before returning.
//
// It returns false when the wait timed out, ctx was cancelled, or the
// user answered with something other than a plain message.
func AskUntilValid[T any](
	ctx context.Context,
	a Asker,
	key event.Key,
	timeout time.Duration,
	validate func(string) Result[T],
) (T, bool) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}
	ep := &errorPrompt{sink: a.Sink, chatID: key.ChatID}
	defer ep.clear(context.WithoutCancel(ctx))

	rec := metrics.OrDefault(a.Metrics)
	for attempt := 1; ; attempt++ {
		ev, ok := a.Waiters.WaitForNext(ctx, key, timeout)
		if !ok {
			logger.Debug(ctx, component, "prompt.none",
				slog.String("outcome", "timeout"),
				slog.Int("attempt", attempt),
			)
			return zero, false
		}
		if ev.Kind != event.KindMessage {
			logger.Debug(ctx, component, "prompt.abandoned",
				slog.String("outcome", "cancelled"),
				slog.String("op", ev.Kind.String()),
				slog.Int("attempt", attempt),
			)
			return zero, false
		}

		ep.consume(ctx, ev.Message)
		res := validate(ev.Text)
		if res.ok {
			return res.Value, true
		}
		rec.PromptRetry(ctx)
		logger.Debug(ctx, component, "prompt.invalid",
			slog.String("outcome", "invalid"),
			slog.Int("attempt", attempt),
		)
		ep.show(ctx, res.Reason)
	}
}

// errorPrompt tracks the one error message a loop may display.
type errorPrompt struct {
	sink   Sink
	chatID int64
	ref    event.MessageRef
	text   string
}

func (p *errorPrompt) consume(ctx context.Context, ref event.MessageRef) {
	if ref.IsZero() {
		return
	}
	if err := p.sink.Delete(ctx, ref); err != nil {
		warn(ctx, "prompt.delete_input", err)
	}
}

func (p *errorPrompt) show(ctx context.Context, text string) {
	if !p.ref.IsZero() {
		if text == p.text {
			return
		}
		err := p.sink.Edit(ctx, p.ref, text)
		if err == nil {
			p.text = text
			return
		}
		warn(ctx, "prompt.edit", err)
		// Replace the message the edit could not touch.
		p.clear(ctx)
	}
	ref, err := p.sink.Send(ctx, p.chatID, text)
	if err != nil {
		warn(ctx, "prompt.send", err)
		return
	}
	p.ref, p.text = ref, text
}

func (p *errorPrompt) clear(ctx context.Context) {
	if p.ref.IsZero() {
		return
	}
	if err := p.sink.Delete(ctx, p.ref); err != nil {
		warn(ctx, "prompt.delete", err)
	}
	p.ref, p.text = event.MessageRef{}, ""
}

func warn(ctx context.Context, ev string, err error) {
	logger.Warn(ctx, component, ev,
		slog.String("status", "fail"),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}
