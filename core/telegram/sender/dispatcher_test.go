package sender

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/openspace/core/metrics"
)

func newTestDispatcher(t *testing.T, retries int) *Dispatcher {
	t.Helper()
	d := NewDispatcher(Options{
		QueueSize:    8,
		Workers:      2,
		MaxRetries:   retries,
		RetryBackoff: time.Millisecond,
		MaxDuration:  time.Second,
		Metrics:      metrics.Noop{},
	})
	t.Cleanup(d.Close)
	return d
}

func TestDispatcherRunsJob(t *testing.T) {
	d := newTestDispatcher(t, 0)
	done := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), "delete", "deleteMessage", func() error {
		close(done)
		return nil
	}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := newTestDispatcher(t, 3)
	var calls atomic.Int32
	done := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), "send", "sendMessage", func() error {
		if calls.Add(1) < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("connection refused")}
		}
		close(done)
		return nil
	}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not succeed")
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestDispatcherDoesNotRetryPermanentErrors(t *testing.T) {
	d := newTestDispatcher(t, 3)
	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "edit", "editMessageText", func() error {
		calls.Add(1)
		return errors.New("message is not modified")
	}))
	d.Close()
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := newTestDispatcher(t, 0)
	d.Close()
	err := d.Enqueue(context.Background(), "send", "sendMessage", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.Error(t, d.Enqueue(context.Background(), "send", "sendMessage", nil))
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "dial", classifyError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.Equal(t, "http_4xx", classifyError(&tele.Error{Code: 400, Description: "Bad Request"}))
	assert.Equal(t, "http_5xx", classifyError(errors.New("telegram: internal error (502)")))
	assert.Equal(t, "unknown", classifyError(errors.New("boom")))
}

func TestSanitizeErrorMessage(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AA-bb_cc/sendMessage": timeout`)
	assert.NotContains(t, sanitizeErrorMessage(err), "123456:AA-bb_cc")
	assert.Contains(t, sanitizeErrorMessage(err), "bot<redacted>")
}
