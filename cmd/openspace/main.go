package main

import (
	"context"
	"fmt"
	"log"

	"github.com/m3rciful/openspace/app"
	"github.com/m3rciful/openspace/core/bootstrap"
	corecmd "github.com/m3rciful/openspace/core/cmd"
	coreconfig "github.com/m3rciful/openspace/core/config"
	"github.com/m3rciful/openspace/core/metrics"
	"github.com/m3rciful/openspace/core/session"
	tg "github.com/m3rciful/openspace/core/telegram"
	"github.com/m3rciful/openspace/core/telegram/event"
	"github.com/m3rciful/openspace/core/telegram/prompt"
	"github.com/m3rciful/openspace/core/telegram/router"
	tgsender "github.com/m3rciful/openspace/core/telegram/sender"
	"github.com/m3rciful/openspace/core/telegram/waiter"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return coreconfig.Load(path)
		},
		Bootstrap: build,
	})
	if err != nil {
		log.Fatal(err)
	}
}

type stakingBot struct {
	cfg        *coreconfig.Config
	closeStore func() error
	dispatcher *tgsender.Dispatcher
	pool       *session.Pool
	sink       *prompt.BotSink
	router     *router.EventRouter
	registry   *tg.Registry
}

func build(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg := carrier.CoreConfig()
	res, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}

	rec := metrics.Default()
	dispatcher := tgsender.NewDispatcher(tgsender.Options{Metrics: rec})
	waiters := waiter.New[event.Key, event.Event](waiter.Options{Metrics: rec})
	pool := session.NewPool(session.Options{
		Sliding:       cfg.Sessions.Sliding(),
		Absolute:      cfg.Sessions.Absolute(),
		SweepInterval: cfg.Sessions.SweepInterval(),
		Store:         res.Store,
		Factory:       app.NewWalletFactory(cfg.Staking.ManifestURL),
		Metrics:       rec,
	})
	sink := prompt.NewBotSink(dispatcher)

	bot := app.New(app.Options{
		Staking:      cfg.Staking,
		InputTimeout: cfg.Conversation.InputTimeout(),
		Pool:         pool,
		Waiters:      waiters,
		Sink:         sink,
		Metrics:      rec,
		Chain:        app.NewConfigChain(cfg.Staking),
		Screen:       app.TeleScreen{},
	})
	reg := tg.NewRegistry()
	if err := bot.Register(reg); err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("register handlers: %w", err)
	}

	return &stakingBot{
		cfg:        cfg,
		closeStore: res.Close,
		dispatcher: dispatcher,
		pool:       pool,
		sink:       sink,
		registry:   reg,
		router: router.New(waiters, reg, router.Options{
			DispatchResolved: cfg.Conversation.DispatchResolved,
			AdminID:          cfg.Telegram.AdminID,
			OnAdminReject:    bot.Denied,
		}),
	}, nil
}

func (b *stakingBot) TelegramRunOptions() (tg.RunOptions, error) {
	return tg.RunOptions{
		Config:      b.cfg,
		Registry:    b.registry,
		Dispatcher:  b.dispatcher,
		Middlewares: tg.DefaultMiddlewares(b.cfg, nil),
		Routes:      b.router.Routes(),
		Binders:     []tg.Binder{b.sink},
		Closers: []func() error{
			func() error {
				b.pool.Close()
				return nil
			},
			b.closeStore,
		},
	}, nil
}
