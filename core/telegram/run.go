package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/openspace/core/config"
	"github.com/m3rciful/openspace/core/logger"
	tghelpers "github.com/m3rciful/openspace/core/telegram/helpers"
	tgsender "github.com/m3rciful/openspace/core/telegram/sender"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// Binder receives the bot once it is built. Components that send outside
// of a handler context, such as prompt sinks, bind here.
type Binder interface {
	Bind(b *tele.Bot)
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	// Binders are bound before OnStart. Closers run in order after the bot
	// has stopped and OnStop returned, and also when startup fails.
	Binders []Binder
	Closers []func() error

	DisableWebhookCleanup   bool
	DisableHelperDispatcher bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram composes and runs a Telegram bot until the provided context is done.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}
	cfg := opts.Config
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}

	poller := BuildPoller(PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	})

	buildStart := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Poller:  poller,
		Client:  BuildHTTPClient(),
		OnError: onBotError,
	})
	if err != nil {
		return errors.Join(fmt.Errorf("telegram: bot initialization failed: %w", err), runClosers(ctx, opts.Closers))
	}
	logMode(ctx, cfg, poller, time.Since(buildStart))
	if !opts.DisableWebhookCleanup {
		cleanupWebhook(ctx, cfg)
	}

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	if !opts.DisableHelperDispatcher {
		tghelpers.SetDispatcher(dispatcher)
	}
	rt := Runtime{Bot: bot, Dispatcher: dispatcher, Registry: opts.Registry}

	install(bot, opts)
	InitBotCommands(ctx, bot, opts.Registry)
	for _, b := range opts.Binders {
		b.Bind(bot)
	}

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return errors.Join(err, release(ctx, opts, dispatcher))
		}
	}

	runErr := serve(ctx, bot)

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(context.WithoutCancel(ctx), rt)
	}
	stopErr = errors.Join(stopErr, release(ctx, opts, dispatcher))
	if stopErr != nil {
		return stopErr
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// serve runs the bot until it stops on its own or ctx is done.
func serve(ctx context.Context, bot *tele.Bot) error {
	runDone := make(chan struct{})
	go func() {
		bot.Start()
		close(runDone)
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-runDone
		return ctx.Err()
	case <-runDone:
		return nil
	}
}

func install(bot *tele.Bot, opts RunOptions) {
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, route := range opts.Routes {
		if route.Endpoint != nil && route.Handler != nil {
			bot.Handle(route.Endpoint, route.Handler)
		}
	}
}

// release drains the dispatcher, then runs the closers.
func release(ctx context.Context, opts RunOptions, dispatcher *tgsender.Dispatcher) error {
	dispatcher.Close()
	if !opts.DisableHelperDispatcher {
		tghelpers.SetDispatcher(nil)
	}
	return runClosers(ctx, opts.Closers)
}

// runClosers runs every closer even when earlier ones fail.
func runClosers(ctx context.Context, closers []func() error) error {
	var errs []error
	for i, closeFn := range closers {
		if closeFn == nil {
			continue
		}
		if err := closeFn(); err != nil {
			logger.Warn(ctx, "tg", "shutdown.close",
				slog.String("status", "fail"),
				slog.Int("index", i),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func logMode(ctx context.Context, cfg *coreconfig.Config, poller tele.Poller, took time.Duration) {
	if p, ok := poller.(*tele.Webhook); ok {
		logger.Info(ctx, "tg", "mode",
			slog.String("mode", "webhook"),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Any("allowed_updates", p.AllowedUpdates),
			slog.Duration("duration", logger.RoundMS(took)),
		)
		return
	}
	timeoutSec := 10
	if cfg.Telegram.LongPollTimeoutSeconds > 0 {
		timeoutSec = cfg.Telegram.LongPollTimeoutSeconds
	}
	logger.Info(ctx, "tg", "mode",
		slog.String("mode", "polling"),
		slog.Int("timeout_seconds", timeoutSec),
		slog.Duration("duration", logger.RoundMS(took)),
	)
}

// cleanupWebhook removes a webhook left over from a previous webhook run;
// Telegram refuses getUpdates while one is set.
func cleanupWebhook(ctx context.Context, cfg *coreconfig.Config) {
	if !strings.EqualFold(cfg.Telegram.RunMode, coreconfig.RunModeLongpoll) {
		return
	}
	if err := deleteWebhook(cfg.Telegram.Token, false); err != nil {
		logger.Warn(ctx, "tg", "delete_webhook",
			slog.String("status", "fail"),
			slog.String("mode", "polling"),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.Info(ctx, "tg", "delete_webhook",
		slog.String("status", "ok"),
		slog.String("mode", "polling"),
	)
}

func onBotError(err error, c tele.Context) {
	ctx := logger.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.Error(ctx, "tg", "bot.error",
		slog.String("status", "fail"),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}

func deleteWebhook(token string, dropPending bool) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("empty token")
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/deleteWebhook", token)
	body := "drop_pending_updates=false"
	if dropPending {
		body = "drop_pending_updates=true"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deleteWebhook status: %s", resp.Status)
	}
	return nil
}
