package app

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/openspace/core/telegram/keyboard"
)

const (
	textStart = `🪐 Open Space

The interface to Open Project.
Available now:
- Staking`
	textNoWallet      = "Wallet is not connected."
	textSelectWallet  = "Choose the wallet to connect."
	textConnect       = "Tap the button below to connect your wallet (works best on a phone).\n\nOr send your wallet address as a message."
	textConnected     = "👛 Wallet\n\nAddress: %s"
	textStakeDays     = "Tokens cannot be withdrawn before the lockup period ends.\n\nEnter the lockup period in days (from %d to %d)."
	textStakeAmount   = "💎 Staking\n\nLockup period: %d days\n%sMinimum amount: %s %s\n\nEnter the amount to lock."
	textInsufficient  = "💎 Staking\n\nBalance: %s %s\n\nYou do not have enough %s to stake."
	textDonateAmount  = "🎁 Donate to the reward pool\n\n%sEnter the amount to donate."
	textZeroBalance   = "Your wallet holds no %s."
	textBalanceLine   = "Balance: %s %s\n"
	textNoPositions   = "No locked tokens found."
	textPositions     = "Choose a position to withdraw."
	textStillLocked   = "This position is locked until %s UTC."
	textConfirm       = "Confirm the transaction in your wallet.\n\n%s %s → %s"
	textStaking       = "💎 Staking\n\n💰 APY: %.2f%%\n🎁 Reward pool: %s %s\n\nLockup: %d–%d days\nMinimum stake: %s %s"
	textInfo          = "ℹ️ Info\n\nStaking contract: %s\nToken: %s"
	textUnknownWallet = "This wallet is not supported. Choose another one."
	textDenied        = "This command is not available."
	textHint          = "Use /start to open the menu."
	textStats         = "📊 Stats\n\nSessions: %d (hits %d, misses %d, evicted %d, sweeps %d)\nPending prompts: %d"
)

func backButton(to string) keyboard.InlineBtn {
	return keyboard.InlineBtn{Text: "☰ Back", Unique: to}
}

func mainMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "👛 Wallet", Unique: CallbackWallet}},
		[]keyboard.InlineBtn{{Text: "💎 Staking", Unique: CallbackStaking}},
		[]keyboard.InlineBtn{{Text: "ℹ️ Info", Unique: CallbackInfo}},
	)
}

func noWalletMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "📡 Connect wallet", Unique: CallbackConnect}},
		[]keyboard.InlineBtn{backButton(CallbackMain)},
	)
}

func walletMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "Disconnect", Unique: CallbackDisconnect}},
		[]keyboard.InlineBtn{backButton(CallbackMain)},
	)
}

func selectWalletMarkup() *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, len(WalletApps))
	for _, w := range WalletApps {
		btns = append(btns, keyboard.InlineBtn{Text: w.Name, Unique: CallbackConnect, Data: w.ID})
	}
	markup := keyboard.InlineButtonsNPerRow(btns, 2)
	markup.InlineKeyboard = append(markup.InlineKeyboard, []tele.InlineButton{*markup.Data("☰ Back", CallbackMain).Inline()})
	return markup
}

func stakingMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "📥 Stake", Unique: CallbackStake}, {Text: "📤 Unstake", Unique: CallbackUnstake}},
		[]keyboard.InlineBtn{{Text: "🎁 Donate to pool", Unique: CallbackDonate}},
		[]keyboard.InlineBtn{{Text: "♻️ Refresh", Unique: CallbackStaking}},
		[]keyboard.InlineBtn{backButton(CallbackMain)},
	)
}

func backMarkup(to string) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{backButton(to)})
}

// promptMarkup lets the user leave a prompt; the press abandons it.
func promptMarkup() *tele.ReplyMarkup {
	return keyboard.SingleCancelMarkup(CallbackStaking)
}

func linkMarkup(label, link, back string) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: label, URL: link}},
		[]keyboard.InlineBtn{backButton(back)},
	)
}
