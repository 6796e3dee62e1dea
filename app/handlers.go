package app

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/openspace/core/logger"
	"github.com/m3rciful/openspace/core/telegram/event"
	"github.com/m3rciful/openspace/core/telegram/keyboard"
)

func (a *App) handleStart(ctx context.Context, ev event.Event) error {
	return a.screen.Show(ctx, ev, textStart, mainMarkup())
}

func (a *App) handleMain(ctx context.Context, ev event.Event) error {
	return a.screen.Show(ctx, ev, textStart, mainMarkup())
}

func (a *App) handleText(ctx context.Context, ev event.Event) error {
	return a.screen.Show(ctx, ev, textHint, nil)
}

func (a *App) handleInfo(ctx context.Context, ev event.Event) error {
	text := fmt.Sprintf(textInfo, a.staking.StakingAddress, a.staking.TokenSymbol)
	return a.screen.Show(ctx, ev, text, keyboard.InlineButtonsRows([]keyboard.InlineBtn{backButton(CallbackMain)}))
}

func (a *App) handleWallet(ctx context.Context, ev event.Event) error {
	_, addr, ok, err := a.connected(ctx, ev)
	if err != nil || !ok {
		return err
	}
	return a.screen.Show(ctx, ev, fmt.Sprintf(textConnected, addr), walletMarkup())
}

func (a *App) handleDisconnect(ctx context.Context, ev event.Event) error {
	w, err := a.wallet(ctx, ev.Key.UserID)
	if err != nil {
		return err
	}
	if err := w.Disconnect(ctx); err != nil {
		return err
	}
	logger.Info(ctx, component, "wallet.disconnected", slog.Int64("user_id", ev.Key.UserID))
	return a.screen.Show(ctx, ev, textNoWallet, noWalletMarkup())
}

// handleConnect offers the wallet list, then a TON Connect link for the
// chosen wallet. The address can also be typed in while the link is shown.
func (a *App) handleConnect(ctx context.Context, ev event.Event) error {
	if ev.CallbackArg == "" {
		return a.screen.Show(ctx, ev, textSelectWallet, selectWalletMarkup())
	}
	app, ok := LookupWalletApp(ev.CallbackArg)
	if !ok {
		logger.Warn(ctx, component, "wallet.connect",
			slog.String("status", "fail"),
			slog.String("err", ErrUnknownWallet.Error()),
			slog.String("wallet", ev.CallbackArg),
		)
		return a.screen.Show(ctx, ev, textUnknownWallet, selectWalletMarkup())
	}
	w, err := a.wallet(ctx, ev.Key.UserID)
	if err != nil {
		return err
	}
	link, err := w.Connect(ctx, app)
	if err != nil {
		return err
	}
	if err := a.screen.Show(ctx, ev, textConnect, linkMarkup("Connect "+app.Name, link, CallbackMain)); err != nil {
		return err
	}

	addr, ok := a.askAddress(ctx, ev.Key)
	if !ok {
		return nil
	}
	if err := w.Bind(ctx, addr); err != nil {
		return err
	}
	logger.Info(ctx, component, "wallet.connected",
		slog.Int64("user_id", ev.Key.UserID),
		slog.String("wallet", app.ID),
	)
	return a.screen.Show(ctx, ev, fmt.Sprintf(textConnected, addr), walletMarkup())
}

func (a *App) handleStaking(ctx context.Context, ev event.Event) error {
	info, err := a.chain.StakingInfo(ctx)
	if err != nil {
		return err
	}
	sym := a.staking.TokenSymbol
	text := fmt.Sprintf(textStaking, info.APY()*100, info.RewardPool, sym,
		info.MinLockupDays, info.MaxLockupDays, info.MinStake, sym)
	return a.screen.Show(ctx, ev, text, stakingMarkup())
}

// handleStake asks for the lockup period and the amount, then hands the
// user a transfer link for their wallet.
func (a *App) handleStake(ctx context.Context, ev event.Event) error {
	if _, _, ok, err := a.connected(ctx, ev); err != nil || !ok {
		return err
	}
	info, err := a.chain.StakingInfo(ctx)
	if err != nil {
		return err
	}

	text := fmt.Sprintf(textStakeDays, info.MinLockupDays, info.MaxLockupDays)
	if err := a.screen.Show(ctx, ev, text, promptMarkup()); err != nil {
		return err
	}
	days, ok := a.askDays(ctx, ev.Key, info.MinLockupDays, info.MaxLockupDays)
	if !ok {
		return nil
	}

	// The wallet may have been disconnected while the user was typing.
	_, addr, ok, err := a.connected(ctx, ev)
	if err != nil || !ok {
		return err
	}
	bal, known, err := a.balance(ctx, addr)
	if err != nil {
		return err
	}
	sym := a.staking.TokenSymbol
	if known && bal.Units < max(info.MinStake.Units, 1) {
		return a.screen.Show(ctx, ev, fmt.Sprintf(textInsufficient, bal, sym, sym), backMarkup(CallbackStaking))
	}

	text = fmt.Sprintf(textStakeAmount, days, a.balanceLine(bal, known), info.MinStake, sym)
	if err := a.screen.Show(ctx, ev, text, promptMarkup()); err != nil {
		return err
	}
	amount, ok := a.askAmount(ctx, ev.Key, info.MinStake, bal)
	if !ok {
		return nil
	}

	if _, _, ok, err := a.connected(ctx, ev); err != nil || !ok {
		return err
	}
	link := TransferLink(a.staking.StakingAddress, amount, a.staking.TokenAddress, StakeComment(days))
	logger.Info(ctx, component, "stake.link",
		slog.Int64("user_id", ev.Key.UserID),
		slog.Int("days", days),
		slog.String("amount", amount.String()),
	)
	return a.confirm(ctx, ev, amount, "stake", link)
}

func (a *App) handleDonate(ctx context.Context, ev event.Event) error {
	_, addr, ok, err := a.connected(ctx, ev)
	if err != nil || !ok {
		return err
	}
	bal, known, err := a.balance(ctx, addr)
	if err != nil {
		return err
	}
	if known && bal.Units == 0 {
		return a.screen.Show(ctx, ev, fmt.Sprintf(textZeroBalance, a.staking.TokenSymbol), backMarkup(CallbackStaking))
	}
	if err := a.screen.Show(ctx, ev, fmt.Sprintf(textDonateAmount, a.balanceLine(bal, known)), promptMarkup()); err != nil {
		return err
	}
	amount, ok := a.askAmount(ctx, ev.Key, Amount{}, bal)
	if !ok {
		return nil
	}
	if _, _, ok, err := a.connected(ctx, ev); err != nil || !ok {
		return err
	}
	link := TransferLink(a.staking.StakingAddress, amount, a.staking.TokenAddress, DonateComment)
	logger.Info(ctx, component, "donate.link",
		slog.Int64("user_id", ev.Key.UserID),
		slog.String("amount", amount.String()),
	)
	return a.confirm(ctx, ev, amount, "donate", link)
}

// handleUnstake lists the wallet's positions. With a position index as the
// argument it hands out the withdrawal link, unless the position is locked.
func (a *App) handleUnstake(ctx context.Context, ev event.Event) error {
	_, addr, ok, err := a.connected(ctx, ev)
	if err != nil || !ok {
		return err
	}
	positions, err := a.chain.Positions(ctx, addr)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		return a.screen.Show(ctx, ev, textNoPositions, backMarkup(CallbackStaking))
	}
	index, err := strconv.ParseUint(ev.CallbackArg, 10, 64)
	if err != nil {
		return a.screen.Show(ctx, ev, textPositions, a.positionsMarkup(positions))
	}

	i := slices.IndexFunc(positions, func(p Position) bool { return p.Index == index })
	if i < 0 {
		return a.screen.Show(ctx, ev, textNoPositions, backMarkup(CallbackStaking))
	}
	p := positions[i]
	if !p.Unlocked(a.clock.Now()) {
		text := fmt.Sprintf(textStillLocked, p.Unlock.UTC().Format(time.DateTime))
		return a.screen.Show(ctx, ev, text, backMarkup(CallbackStaking))
	}
	logger.Info(ctx, component, "unstake.link",
		slog.Int64("user_id", ev.Key.UserID),
		slog.Uint64("index", p.Index),
		slog.String("amount", p.Redeem.String()),
	)
	return a.confirm(ctx, ev, p.Redeem, "unstake", UnstakeLink(p.Address))
}

// maxPositions caps the position list to one screen of buttons.
const maxPositions = 6

func (a *App) positionsMarkup(positions []Position) *tele.ReplyMarkup {
	sorted := slices.SortedFunc(slices.Values(positions), func(x, y Position) int {
		return cmp.Compare(x.Index, y.Index)
	})
	if len(sorted) > maxPositions {
		sorted = sorted[:maxPositions]
	}
	now := a.clock.Now()
	rows := make([][]keyboard.InlineBtn, 0, len(sorted)+1)
	for _, p := range sorted {
		status, left := "✅", "Ready"
		if !p.Unlocked(now) {
			status, left = "🔒", timeLeft(p.Unlock.Sub(now))
		}
		rows = append(rows, []keyboard.InlineBtn{{
			Text:   fmt.Sprintf("%s | %s | %s %s", status, left, p.Redeem, a.staking.TokenSymbol),
			Unique: CallbackUnstake,
			Data:   strconv.FormatUint(p.Index, 10),
		}})
	}
	rows = append(rows, []keyboard.InlineBtn{backButton(CallbackStaking)})
	return keyboard.InlineButtonsRows(rows...)
}

func timeLeft(d time.Duration) string {
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%d days", int(d/(24*time.Hour)))
	case d >= time.Hour:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return "<1 minute"
	}
}

func (a *App) balanceLine(bal Amount, known bool) string {
	if !known {
		return ""
	}
	return fmt.Sprintf(textBalanceLine, bal, a.staking.TokenSymbol)
}

func (a *App) confirm(ctx context.Context, ev event.Event, amount Amount, action, link string) error {
	w, err := a.wallet(ctx, ev.Key.UserID)
	if err != nil {
		return err
	}
	label := "Open wallet"
	if app, ok := w.App(ctx); ok {
		label = "Open " + app.Name
	}
	text := fmt.Sprintf(textConfirm, amount, a.staking.TokenSymbol, action)
	return a.screen.Show(ctx, ev, text, linkMarkup(label, link, CallbackStaking))
}

func (a *App) handleStats(ctx context.Context, ev event.Event) error {
	st := a.pool.Stats()
	text := fmt.Sprintf(textStats, st.Len, st.Hits, st.Misses, st.Evictions, st.Sweeps, a.waiters.Len())
	return a.screen.Show(ctx, ev, text, nil)
}
