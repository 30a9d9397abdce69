// Package machine implements the per-coin trade decision state machine.
// Exit logic (stop loss, holding-time limits, trailing target) is common to
// all strategy variants; the entry decision is delegated to the configured
// strategy.Entry predicate.
package machine

import (
	"coin-strategy-lab/internal/domain"
	"coin-strategy-lab/internal/strategy"
)

// Action is the kind of trade event emitted by the machine.
type Action string

// Actions.
const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Event is a trade decision emitted for a price event. Outcome is set on
// SELL events only.
type Event struct {
	Action  Action
	Outcome string
	Time    int64
	Price   float64
}

// Machine owns one symbol's CoinState and applies the transition rules on
// every price event. It assumes a clean feed with non-decreasing
// timestamps; malformed events are rejected upstream at the simulation
// boundary.
type Machine struct {
	cfg    domain.StrategyConfig
	state  *domain.CoinState
	entry  strategy.Entry
	window *strategy.PriceWindow
}

// New creates a machine for a validated configuration.
func New(cfg domain.StrategyConfig) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	entry, err := strategy.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	windowSize := 0
	if cfg.UsesTrendWindow() {
		windowSize = cfg.TrendWindow
	}

	return &Machine{
		cfg:    cfg,
		state:  domain.NewCoinState(cfg.Symbol),
		entry:  entry,
		window: strategy.NewPriceWindow(windowSize),
	}, nil
}

// State exposes the machine's coin state for inspection. The machine
// remains the sole mutator.
func (m *Machine) State() *domain.CoinState { return m.state }

// Config returns the immutable configuration the machine runs under.
func (m *Machine) Config() domain.StrategyConfig { return m.cfg }

// Update applies one price event and returns the resulting trade event,
// or nil when nothing fires. Transition priority, highest first:
// stop loss, hard holding limit, target/trailing evaluation, entry,
// cooldown release.
func (m *Machine) Update(now int64, price float64) *Event {
	ev := m.step(now, price)

	// The trend window sees only events preceding the one being evaluated.
	m.window.Push(price)
	m.state.LastPrice = price
	m.state.LastTime = now
	return ev
}

func (m *Machine) step(now int64, price float64) *Event {
	s := m.state

	if s.Holding() {
		// An exit is evaluated only against observations later than the
		// entry; further records at the buy instant cannot close the
		// position, so every trade's sell time is strictly after its buy.
		if now == s.BuyTime {
			return nil
		}

		// Stop-loss reference is fixed at buy time, never recalculated.
		if price <= s.BuyPrice*(1-m.cfg.StopLossPct) {
			return m.sell(now, price, domain.OutcomeStopLoss)
		}

		if now-s.BuyTime >= m.cfg.HardLimitHoldSec {
			return m.sell(now, price, domain.OutcomeStale)
		}

		if s.Status == domain.StatusHolding {
			if price >= m.effectiveTarget(now, price) {
				s.Status = domain.StatusTrailingTarget
				s.Tip = price
			}
			return nil
		}

		// TRAILING_TARGET: ratchet the peak, sell on the pullback.
		if price > s.Tip {
			s.Tip = price
			return nil
		}
		if price <= s.Tip*(1-m.cfg.TrailTargetSellPct) {
			return m.sell(now, price, domain.OutcomeCleanWin)
		}
		return nil
	}

	if s.Status == domain.StatusCooldown {
		if now >= s.CooldownUntil {
			s.Reset(price)
			s.CooldownUntil = 0
		}
		return nil
	}

	if m.entry.Evaluate(s, m.window, now, price) {
		s.Status = domain.StatusHolding
		s.BuyPrice = price
		s.BuyTime = now
		s.Min = 0
		s.Stats.Buys++
		return &Event{Action: ActionBuy, Time: now, Price: price}
	}
	return nil
}

// sell closes the position, updates stats and decides whether a cooldown
// follows. Stop losses always cool down; stale forced sells do so only when
// configured; clean wins never do.
func (m *Machine) sell(now int64, price float64, outcome string) *Event {
	s := m.state

	cooldown := false
	switch outcome {
	case domain.OutcomeStopLoss:
		s.Stats.Losses++
		cooldown = m.cfg.CooldownSec > 0
	case domain.OutcomeStale:
		s.Stats.Stales++
		cooldown = m.cfg.CooldownAfterStale && m.cfg.CooldownSec > 0
	case domain.OutcomeCleanWin:
		s.Stats.Wins++
	}

	s.Reset(price)
	if cooldown {
		s.Status = domain.StatusCooldown
		s.CooldownUntil = now + m.cfg.CooldownSec
	}

	return &Event{Action: ActionSell, Outcome: outcome, Time: now, Price: price}
}

// effectiveTarget returns the sell target for the current event. Before the
// soft holding limit it is the base target buy_price*(1+sell_at_pct). After
// the soft limit the profit requirement decays as holding time approaches
// the hard limit, down to the level where a full trailing pullback still
// clears the fee-adjusted break-even price. The target is non-increasing
// over the holding time and never drops below that floor. The floor is the
// break-even boundary, not the current price: a position that cannot clear
// break-even leaves through the hard limit as a stale sale.
func (m *Machine) effectiveTarget(now int64, _ float64) float64 {
	s := m.state
	base := s.BuyPrice * (1 + m.cfg.SellAtPct)

	elapsed := now - s.BuyTime
	if elapsed < m.cfg.SoftLimitHoldSec {
		return base
	}

	span := m.cfg.HardLimitHoldSec - m.cfg.SoftLimitHoldSec
	frac := 1.0
	if span > 0 {
		frac = float64(elapsed-m.cfg.SoftLimitHoldSec) / float64(span)
		if frac > 1 {
			frac = 1
		}
	}
	if m.cfg.TargetDecay == domain.DecayQuadratic {
		frac = frac * frac
	}

	floor := m.cfg.BreakEvenPrice(s.BuyPrice) / (1 - m.cfg.TrailTargetSellPct)
	if floor > base {
		return base
	}
	return base - frac*(base-floor)
}
