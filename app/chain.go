package app

import (
	"context"
	"errors"
	"time"

	coreconfig "github.com/m3rciful/openspace/core/config"
)

// ErrBalanceUnknown is returned by a Chain that cannot read wallet balances.
// Amount prompts are then bounded below only.
var ErrBalanceUnknown = errors.New("app: wallet balance unavailable")

// StakingInfo is the part of the staking contract state the bot shows.
type StakingInfo struct {
	MinLockupDays  int
	MaxLockupDays  int
	MinStake       Amount
	RewardPool     Amount
	BaseRewardPool Amount
	// MaxAPY is a fraction, 0.25 for 25%.
	MaxAPY float64
}

// APY is MaxAPY scaled down while the reward pool is below its base size.
func (s StakingInfo) APY() float64 {
	if s.BaseRewardPool.Units == 0 || s.RewardPool.Units >= s.BaseRewardPool.Units {
		return s.MaxAPY
	}
	return s.MaxAPY * float64(s.RewardPool.Units) / float64(s.BaseRewardPool.Units)
}

// Position is one stake held by a wallet.
type Position struct {
	Index   uint64
	Address string
	Unlock  time.Time
	Redeem  Amount
}

// Unlocked reports whether the position can be withdrawn at now.
func (p Position) Unlocked(now time.Time) bool {
	return !now.Before(p.Unlock)
}

// Chain reads staking contract and token state.
type Chain interface {
	StakingInfo(ctx context.Context) (StakingInfo, error)
	// Balance returns the token balance of owner.
	Balance(ctx context.Context, owner string) (Amount, error)
	// Positions lists the stakes owned by owner.
	Positions(ctx context.Context, owner string) ([]Position, error)
}

// ConfigChain serves staking parameters from configuration. It has no view
// of wallets: balances are unknown and no positions are listed.
type ConfigChain struct {
	cfg coreconfig.StakingConfig
}

// NewConfigChain returns a Chain backed by cfg.
func NewConfigChain(cfg coreconfig.StakingConfig) *ConfigChain {
	return &ConfigChain{cfg: cfg}
}

func (c *ConfigChain) StakingInfo(context.Context) (StakingInfo, error) {
	return StakingInfo{
		MinLockupDays:  c.cfg.MinLockupDays,
		MaxLockupDays:  c.cfg.MaxLockupDays,
		MinStake:       AmountFromFloat(c.cfg.MinStake, c.cfg.TokenDecimals),
		RewardPool:     AmountFromFloat(c.cfg.RewardPool, c.cfg.TokenDecimals),
		BaseRewardPool: AmountFromFloat(c.cfg.BaseRewardPool, c.cfg.TokenDecimals),
		MaxAPY:         c.cfg.MaxAPY / 100,
	}, nil
}

func (c *ConfigChain) Balance(context.Context, string) (Amount, error) {
	return Amount{}, ErrBalanceUnknown
}

func (c *ConfigChain) Positions(context.Context, string) ([]Position, error) {
	return nil, nil
}
