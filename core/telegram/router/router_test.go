package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/openspace/core/clock"
	"github.com/m3rciful/openspace/core/metrics"
	tg "github.com/m3rciful/openspace/core/telegram"
	"github.com/m3rciful/openspace/core/telegram/commands"
	"github.com/m3rciful/openspace/core/telegram/event"
	"github.com/m3rciful/openspace/core/telegram/waiter"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) handler(name string) event.Handler {
	return func(_ context.Context, _ event.Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, name)
		return nil
	}
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

var testKey = event.Key{UserID: 7, ChatID: 70}

func newTestRouter(t *testing.T, opts Options) (*EventRouter, *recorder, *clock.Fake) {
	t.Helper()
	fc := clock.NewFake(time.Time{})
	waiters := waiter.New[event.Key, event.Event](waiter.Options{Clock: fc, Metrics: metrics.Noop{}})
	rec := &recorder{}
	reg := tg.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Handler: rec.handler("start"), Description: "Start"})
	reg.RegisterCommand("/stats", commands.Command{Handler: rec.handler("stats"), Description: "Stats", AdminOnly: true})
	require.NoError(t, reg.RegisterCallback("stake", rec.handler("stake")))
	reg.SetTextFallback(rec.handler("text"))
	return New(waiters, reg, opts), rec, fc
}

func message(text string) event.Event {
	ev := event.Event{Key: testKey, Kind: event.KindMessage, Text: text}
	if cmd, args, ok := event.ParseCommand(text); ok {
		ev.Kind, ev.Command, ev.Args = event.KindCommand, cmd, args
	}
	return ev
}

func callback(id, arg string) event.Event {
	return event.Event{Key: testKey, Kind: event.KindCallback, CallbackID: id, CallbackArg: arg}
}

func TestDispatchByKind(t *testing.T) {
	r, rec, _ := newTestRouter(t, Options{})
	ctx := context.Background()

	require.NoError(t, r.Dispatch(ctx, message("/start")))
	require.NoError(t, r.Dispatch(ctx, message("hello")))
	require.NoError(t, r.Dispatch(ctx, callback("stake", "")))
	assert.Equal(t, []string{"start", "text", "stake"}, rec.got())
}

func TestUnmatchedKeysAreDropped(t *testing.T) {
	r, rec, _ := newTestRouter(t, Options{})
	r.Registry().SetTextFallback(nil)
	ctx := context.Background()

	assert.NoError(t, r.Dispatch(ctx, callback("unknown", "x")))
	assert.NoError(t, r.Dispatch(ctx, message("plain text")))
	assert.NoError(t, r.Dispatch(ctx, event.Event{Key: testKey, Kind: event.KindOther}))
	assert.Empty(t, rec.got())
}

func TestMessageResolvingWaiterIsConsumed(t *testing.T) {
	r, rec, _ := newTestRouter(t, Options{})
	w := r.Waiters().Register(testKey, time.Minute)

	require.NoError(t, r.Dispatch(context.Background(), message("42")))

	got, ok := w.Result()
	require.True(t, ok)
	assert.Equal(t, "42", got.Text)
	assert.Empty(t, rec.got(), "answer to a prompt must not reach the text handler")
}

func TestDispatchResolvedRunsBoth(t *testing.T) {
	r, rec, _ := newTestRouter(t, Options{DispatchResolved: true})
	w := r.Waiters().Register(testKey, time.Minute)

	require.NoError(t, r.Dispatch(context.Background(), message("42")))

	_, ok := w.Result()
	assert.True(t, ok)
	assert.Equal(t, []string{"text"}, rec.got())
}

func TestCallbackResolvesWaiterAndDispatches(t *testing.T) {
	r, rec, _ := newTestRouter(t, Options{})
	w := r.Waiters().Register(testKey, time.Minute)

	require.NoError(t, r.Dispatch(context.Background(), callback("stake", "")))

	got, ok := w.Result()
	require.True(t, ok)
	assert.Equal(t, event.KindCallback, got.Kind)
	assert.Equal(t, []string{"stake"}, rec.got())
}

func TestCommandResolvesWaiterAndDispatches(t *testing.T) {
	r, rec, _ := newTestRouter(t, Options{})
	w := r.Waiters().Register(testKey, time.Minute)

	require.NoError(t, r.Dispatch(context.Background(), message("/start")))

	got, ok := w.Result()
	require.True(t, ok)
	assert.Equal(t, event.KindCommand, got.Kind)
	assert.Equal(t, []string{"start"}, rec.got())
}

func TestOtherKeyDoesNotResolve(t *testing.T) {
	r, rec, _ := newTestRouter(t, Options{})
	w := r.Waiters().Register(event.Key{UserID: 1, ChatID: 1}, time.Minute)

	require.NoError(t, r.Dispatch(context.Background(), message("42")))

	_, ok := w.Result()
	assert.False(t, ok)
	assert.Equal(t, []string{"text"}, rec.got())
}

func TestAdminOnlyCommand(t *testing.T) {
	rejected := 0
	r, rec, _ := newTestRouter(t, Options{
		AdminID: 999,
		OnAdminReject: func(context.Context, event.Event) error {
			rejected++
			return nil
		},
	})
	require.NoError(t, r.Dispatch(context.Background(), message("/stats")))
	assert.Empty(t, rec.got())
	assert.Equal(t, 1, rejected)

	admin := message("/stats")
	admin.Key.UserID = 999
	require.NoError(t, r.Dispatch(context.Background(), admin))
	assert.Equal(t, []string{"stats"}, rec.got())
}

func TestHandlerErrorIsReturned(t *testing.T) {
	r, _, _ := newTestRouter(t, Options{})
	boom := errors.New("boom")
	require.NoError(t, r.Registry().RegisterCallback("fail", func(context.Context, event.Event) error {
		return boom
	}))
	assert.ErrorIs(t, r.Dispatch(context.Background(), callback("fail", "")), boom)
}

func TestNormalizeHandlerName(t *testing.T) {
	assert.Equal(t, "start", normalizeHandlerName("/Start"))
	assert.Equal(t, "unknown", normalizeHandlerName("  "))
	assert.Equal(t, "wallet_connect", normalizeHandlerName("wallet connect"))
}
