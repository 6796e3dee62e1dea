package prompt

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/openspace/core/clock"
	"github.com/m3rciful/openspace/core/metrics"
	"github.com/m3rciful/openspace/core/telegram/event"
	"github.com/m3rciful/openspace/core/telegram/waiter"
)

type fakeSink struct {
	mu      sync.Mutex
	nextID  int
	visible map[int]string
	sends   int
	edits   int
	deleted []int
	editErr error
}

func newFakeSink() *fakeSink {
	return &fakeSink{nextID: 1000, visible: map[int]string{}}
}

func (s *fakeSink) Send(_ context.Context, chatID int64, text string) (event.MessageRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.sends++
	s.visible[s.nextID] = text
	return event.MessageRef{ChatID: chatID, MessageID: s.nextID}, nil
}

func (s *fakeSink) Edit(_ context.Context, ref event.MessageRef, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editErr != nil {
		return s.editErr
	}
	s.edits++
	s.visible[ref.MessageID] = text
	return nil
}

func (s *fakeSink) Delete(_ context.Context, ref event.MessageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.visible, ref.MessageID)
	s.deleted = append(s.deleted, ref.MessageID)
	return nil
}

func (s *fakeSink) snapshot() (visible map[int]string, sends, edits int, deleted []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	visible = make(map[int]string, len(s.visible))
	for k, v := range s.visible {
		visible[k] = v
	}
	return visible, s.sends, s.edits, append([]int(nil), s.deleted...)
}

var key = event.Key{UserID: 1, ChatID: 10}

type retryCounter struct {
	metrics.Noop
	retries atomic.Int32
}

func (r *retryCounter) PromptRetry(context.Context) { r.retries.Add(1) }

type harness struct {
	t       *testing.T
	fc      *clock.Fake
	waiters *waiter.Registry[event.Key, event.Event]
	sink    *fakeSink
	rec     *retryCounter
	msgID   int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fc := clock.NewFake(time.Time{})
	return &harness{
		t:       t,
		fc:      fc,
		waiters: waiter.New[event.Key, event.Event](waiter.Options{Clock: fc, Metrics: metrics.Noop{}}),
		sink:    newFakeSink(),
		rec:     &retryCounter{},
	}
}

// send waits for the loop to register and answers with a text message.
func (h *harness) send(text string) {
	h.t.Helper()
	h.awaitPending()
	h.msgID++
	ev := event.Event{
		Key:     key,
		Kind:    event.KindMessage,
		Text:    text,
		Message: event.MessageRef{ChatID: key.ChatID, MessageID: h.msgID},
	}
	require.True(h.t, h.waiters.Resolve(key, ev))
}

func (h *harness) awaitPending() {
	h.t.Helper()
	require.Eventually(h.t, func() bool { return h.waiters.Pending(key) }, time.Second, time.Millisecond)
}

type outcome struct {
	value int
	ok    bool
}

func (h *harness) ask(ctx context.Context, validate func(string) Result[int]) <-chan outcome {
	out := make(chan outcome, 1)
	go func() {
		asker := Asker{Waiters: h.waiters, Sink: h.sink, Metrics: h.rec}
		v, ok := AskUntilValid(ctx, asker, key, time.Second, validate)
		out <- outcome{v, ok}
	}()
	return out
}

func isInt(raw string) Result[int] {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return Invalid[int]("not a number")
	}
	if n <= 0 {
		return Invalid[int]("must be positive")
	}
	return Valid(n)
}

func receive(t *testing.T, ch <-chan outcome) outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("AskUntilValid did not return")
		return outcome{}
	}
}

func TestAskUntilValidRetriesThenSucceeds(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	out := h.ask(context.Background(), isInt)

	h.send("abc")
	h.send("42")

	got := receive(t, out)
	require.True(t, got.ok)
	assert.Equal(t, 42, got.value)

	visible, sends, edits, deleted := h.sink.snapshot()
	assert.Equal(t, 1, sends, "one error prompt for the rejected input")
	assert.Zero(t, edits)
	assert.Empty(t, visible, "error prompt removed before returning")
	assert.Contains(t, deleted, 1)
	assert.Contains(t, deleted, 2)
	assert.Equal(t, 0, h.waiters.Len())
	assert.Equal(t, int32(1), h.rec.retries.Load())
}

func TestAskUntilValidTimeoutLeavesNoPrompt(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	out := h.ask(context.Background(), isInt)

	h.send("nope")
	h.awaitPending()
	h.fc.Advance(time.Second)

	got := receive(t, out)
	assert.False(t, got.ok)
	visible, sends, _, _ := h.sink.snapshot()
	assert.Equal(t, 1, sends)
	assert.Empty(t, visible)
}

func TestAskUntilValidTimeoutWithoutInput(t *testing.T) {
	h := newHarness(t)
	out := h.ask(context.Background(), isInt)

	h.awaitPending()
	h.fc.Advance(time.Second)

	got := receive(t, out)
	assert.False(t, got.ok)
	visible, sends, _, deleted := h.sink.snapshot()
	assert.Zero(t, sends)
	assert.Empty(t, visible)
	assert.Empty(t, deleted)
}

func TestAskUntilValidEditsOnlyOnChange(t *testing.T) {
	h := newHarness(t)
	out := h.ask(context.Background(), isInt)

	h.send("abc")
	h.send("xyz")
	h.send("-5")
	h.send("7")

	got := receive(t, out)
	require.True(t, got.ok)
	assert.Equal(t, 7, got.value)
	visible, sends, edits, _ := h.sink.snapshot()
	assert.Equal(t, 1, sends)
	assert.Equal(t, 1, edits)
	assert.Empty(t, visible)
	assert.Equal(t, int32(3), h.rec.retries.Load())
}

func TestAskUntilValidReplacesPromptWhenEditFails(t *testing.T) {
	h := newHarness(t)
	h.sink.editErr = errors.New("message can't be edited")
	out := h.ask(context.Background(), isInt)

	h.send("abc")
	h.send("-1")
	h.send("3")

	got := receive(t, out)
	require.True(t, got.ok)
	visible, sends, _, _ := h.sink.snapshot()
	assert.Equal(t, 2, sends)
	assert.Empty(t, visible)
}

func TestAskUntilValidCallbackAbandons(t *testing.T) {
	h := newHarness(t)
	out := h.ask(context.Background(), isInt)

	h.send("abc")
	h.awaitPending()
	require.True(t, h.waiters.Resolve(key, event.Event{Key: key, Kind: event.KindCallback, CallbackID: "cancel"}))

	got := receive(t, out)
	assert.False(t, got.ok)
	visible, _, _, _ := h.sink.snapshot()
	assert.Empty(t, visible)
}

func TestAskUntilValidContextCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	out := h.ask(ctx, isInt)

	h.send("abc")
	h.awaitPending()
	cancel()

	got := receive(t, out)
	assert.False(t, got.ok)
	visible, _, _, _ := h.sink.snapshot()
	assert.Empty(t, visible)
	assert.False(t, h.waiters.Pending(key))
}

func TestBotSinkRequiresBind(t *testing.T) {
	s := NewBotSink(nil)
	_, err := s.Send(context.Background(), 1, "x")
	assert.ErrorIs(t, err, ErrNoBot)
	assert.ErrorIs(t, s.Edit(context.Background(), event.MessageRef{ChatID: 1, MessageID: 1}, "x"), ErrNoBot)
	assert.ErrorIs(t, s.Delete(context.Background(), event.MessageRef{ChatID: 1, MessageID: 1}), ErrNoBot)
}
