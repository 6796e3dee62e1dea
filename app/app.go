// Package app wires the staking bot: menus, wallet connection and the
// stake and donate conversations.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m3rciful/openspace/core/clock"
	coreconfig "github.com/m3rciful/openspace/core/config"
	"github.com/m3rciful/openspace/core/metrics"
	"github.com/m3rciful/openspace/core/session"
	"github.com/m3rciful/openspace/core/telegram"
	"github.com/m3rciful/openspace/core/telegram/commands"
	"github.com/m3rciful/openspace/core/telegram/event"
	"github.com/m3rciful/openspace/core/telegram/prompt"
	"github.com/m3rciful/openspace/core/telegram/waiter"
)

const component = "app"

// Callback ids.
const (
	CallbackMain       = "main"
	CallbackWallet     = "wallet"
	CallbackConnect    = "connect"
	CallbackDisconnect = "disconnect"
	CallbackStaking    = "staking"
	CallbackStake      = "stake"
	CallbackUnstake    = "unstake"
	CallbackDonate     = "donate"
	CallbackInfo       = "info"
)

// Options configures an App.
type Options struct {
	Staking      coreconfig.StakingConfig
	InputTimeout time.Duration
	Pool         *session.Pool
	Waiters      *waiter.Registry[event.Key, event.Event]
	Sink         prompt.Sink
	Metrics      metrics.Recorder
	Chain        Chain
	Screen       Screen
	Clock        clock.Clock
}

// App holds the bot's handlers.
type App struct {
	staking      coreconfig.StakingConfig
	inputTimeout time.Duration
	pool         *session.Pool
	waiters      *waiter.Registry[event.Key, event.Event]
	asker        prompt.Asker
	chain        Chain
	screen       Screen
	clock        clock.Clock
}

// New builds an App. Chain defaults to the configured staking parameters
// and Screen to TeleScreen.
func New(opts Options) *App {
	if opts.Chain == nil {
		opts.Chain = NewConfigChain(opts.Staking)
	}
	if opts.Screen == nil {
		opts.Screen = TeleScreen{}
	}
	if opts.InputTimeout <= 0 {
		opts.InputTimeout = 5 * time.Minute
	}
	return &App{
		staking:      opts.Staking,
		inputTimeout: opts.InputTimeout,
		pool:         opts.Pool,
		waiters:      opts.Waiters,
		asker:        prompt.Asker{Waiters: opts.Waiters, Sink: opts.Sink, Metrics: opts.Metrics},
		chain:        opts.Chain,
		screen:       opts.Screen,
		clock:        clock.OrReal(opts.Clock),
	}
}

// Register binds commands and callbacks to reg.
func (a *App) Register(reg *telegram.Registry) error {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Open the main menu",
		Aliases:     []string{"/menu"},
	})
	reg.RegisterCommand("/stats", commands.Command{
		Handler:     a.handleStats,
		Description: "Runtime statistics",
		AdminOnly:   true,
		Hidden:      true,
	})

	callbacks := map[string]event.Handler{
		CallbackMain:       a.handleMain,
		CallbackWallet:     a.handleWallet,
		CallbackConnect:    a.handleConnect,
		CallbackDisconnect: a.handleDisconnect,
		CallbackStaking:    a.handleStaking,
		CallbackStake:      a.handleStake,
		CallbackUnstake:    a.handleUnstake,
		CallbackDonate:     a.handleDonate,
		CallbackInfo:       a.handleInfo,
	}
	for id, h := range callbacks {
		if err := reg.RegisterCallback(id, h); err != nil {
			return fmt.Errorf("app: register %s: %w", id, err)
		}
	}
	reg.SetTextFallback(a.handleText)
	return nil
}

// Denied answers a non-admin calling an admin command.
func (a *App) Denied(ctx context.Context, ev event.Event) error {
	return a.screen.Show(ctx, ev, textDenied, nil)
}

func (a *App) wallet(ctx context.Context, userID int64) (*Wallet, error) {
	c, err := a.pool.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	w, ok := c.(*Wallet)
	if !ok {
		return nil, fmt.Errorf("app: unexpected connector %T", c)
	}
	return w, nil
}

// connected returns the wallet and its address, or shows the
// "not connected" screen and returns ok=false.
func (a *App) connected(ctx context.Context, ev event.Event) (*Wallet, string, bool, error) {
	w, err := a.wallet(ctx, ev.Key.UserID)
	if err != nil {
		return nil, "", false, err
	}
	addr, ok, err := w.Address(ctx)
	if err != nil {
		return nil, "", false, err
	}
	if !ok {
		return w, "", false, a.screen.Show(ctx, ev, textNoWallet, noWalletMarkup())
	}
	return w, addr, true, nil
}

// balance reads the token balance of addr. known is false when the chain
// cannot tell, in which case amounts are not bounded by it.
func (a *App) balance(ctx context.Context, addr string) (bal Amount, known bool, err error) {
	bal, err = a.chain.Balance(ctx, addr)
	if errors.Is(err, ErrBalanceUnknown) {
		return Unbounded(a.staking.TokenDecimals), false, nil
	}
	if err != nil {
		return Amount{}, false, err
	}
	return bal, true, nil
}

func (a *App) askDays(ctx context.Context, key event.Key, minDays, maxDays int) (int, bool) {
	return prompt.AskUntilValid(ctx, a.asker, key, a.inputTimeout, func(s string) prompt.Result[int] {
		return ParseDays(s, minDays, maxDays)
	})
}

func (a *App) askAmount(ctx context.Context, key event.Key, minimum, maximum Amount) (Amount, bool) {
	return prompt.AskUntilValid(ctx, a.asker, key, a.inputTimeout, func(s string) prompt.Result[Amount] {
		return ParseAmount(s, a.staking.TokenDecimals, minimum, maximum)
	})
}

func (a *App) askAddress(ctx context.Context, key event.Key) (string, bool) {
	return prompt.AskUntilValid(ctx, a.asker, key, a.inputTimeout, ParseAddress)
}
