package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/openspace/core/metrics"
	tgsender "github.com/m3rciful/openspace/core/telegram/sender"
)

type idlePoller struct {
	polling chan struct{}
}

func (p *idlePoller) Poll(_ *tele.Bot, _ chan tele.Update, stop chan struct{}) {
	close(p.polling)
	<-stop
}

func offlineBot(t *testing.T, poller tele.Poller) *tele.Bot {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true, Poller: poller})
	require.NoError(t, err)
	return bot
}

func TestServeStopsOnCancel(t *testing.T) {
	poller := &idlePoller{polling: make(chan struct{})}
	bot := offlineBot(t, poller)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- serve(ctx, bot) }()
	<-poller.polling
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestInstallSkipsIncompleteEntries(t *testing.T) {
	bot := offlineBot(t, &idlePoller{polling: make(chan struct{})})
	used := 0
	install(bot, RunOptions{
		Middlewares: []Middleware{
			{Name: "nil"},
			{Name: "count", Use: func(next tele.HandlerFunc) tele.HandlerFunc {
				used++
				return next
			}},
		},
		Routes: []Route{
			{Endpoint: "/start"},
			{Endpoint: "/menu", Handler: func(tele.Context) error { return nil }},
		},
	})
	c := tele.NewContext(bot, tele.Update{})
	require.NoError(t, bot.Trigger("/menu", c))
	assert.Equal(t, 1, used)
	assert.Error(t, bot.Trigger("/start", c), "route without a handler is not installed")
}

func TestReleaseRunsEveryCloserInOrder(t *testing.T) {
	var order []string
	errStore := errors.New("store close failed")
	d := tgsender.NewDispatcher(tgsender.Options{Metrics: metrics.Noop{}})

	err := release(context.Background(), RunOptions{
		DisableHelperDispatcher: true,
		Closers: []func() error{
			func() error { order = append(order, "pool"); return nil },
			nil,
			func() error { order = append(order, "store"); return errStore },
			func() error { order = append(order, "last"); return nil },
		},
	}, d)

	assert.ErrorIs(t, err, errStore)
	assert.Equal(t, []string{"pool", "store", "last"}, order)
}

func TestRunTelegramRequiresConfig(t *testing.T) {
	closed := false
	err := RunTelegram(context.Background(), RunOptions{
		Closers: []func() error{func() error { closed = true; return nil }},
	})
	assert.Error(t, err)
	assert.False(t, closed, "nothing was started, nothing to close")
}
