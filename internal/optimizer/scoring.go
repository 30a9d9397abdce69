package optimizer

import (
	"errors"
	"fmt"

	"coin-strategy-lab/internal/domain"
)

// Policy selects how candidate results are ranked.
type Policy string

// Scoring policies.
const (
	// PolicyMaxProfitCleanWins ranks by profit over CLEAN_WIN trades only;
	// any stop loss, stale forced sell or position still open at the end
	// sinks the candidate below every clean one.
	PolicyMaxProfitCleanWins Policy = "max_profit_on_clean_wins"

	// PolicyCleanWinCount prefers many consistent wins over few large
	// ones: rank by clean-win count, tie-broken by total profit.
	PolicyCleanWinCount Policy = "number_of_clean_wins"

	// PolicyGreed ranks purely by total realized profit across all
	// outcomes, stop losses and stales included.
	PolicyGreed Policy = "greed"
)

// ErrUnknownPolicy is returned for a policy name outside the fixed set.
var ErrUnknownPolicy = errors.New("unknown scoring policy")

// ParsePolicy validates a policy name.
func ParsePolicy(name string) (Policy, error) {
	switch p := Policy(name); p {
	case PolicyMaxProfitCleanWins, PolicyCleanWinCount, PolicyGreed:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// DisqualifiesStops reports whether a single stop-loss or stale outcome
// already disqualifies a candidate under this policy. Only then may the
// simulation use its early-exit optimization.
func (p Policy) DisqualifiesStops() bool {
	return p == PolicyMaxProfitCleanWins
}

// scored pairs a candidate's result with its rank inputs.
type scored struct {
	result   *domain.BacktestResult
	score    float64
	tainted  bool // penalized to the bottom under the policy
	cleanWin int
}

// evaluate computes the rank inputs for one result under the policy.
func (p Policy) evaluate(r *domain.BacktestResult) scored {
	s := scored{result: r, cleanWin: r.CleanWins}
	switch p {
	case PolicyMaxProfitCleanWins:
		s.score = r.CleanWinProfit()
		// Stales taint too: the early-exit truncation discards a staled
		// candidate's ledger tail, so ranking one on its clean-win profit
		// would make the selection depend on the toggle.
		s.tainted = r.StopLosses > 0 || r.Stales > 0 || r.StillHolding > 0
	case PolicyCleanWinCount:
		s.score = float64(r.CleanWins)
	case PolicyGreed:
		s.score = r.TotalProfit
	}
	return s
}

// better reports whether a ranks strictly above b under the policy.
// Shared tie-break: fewer stop losses, then the smaller buy-drop
// percentage (the more conservative entry).
func (p Policy) better(a, b scored) bool {
	if a.tainted != b.tainted {
		return !a.tainted
	}
	if a.score != b.score {
		return a.score > b.score
	}
	if p == PolicyCleanWinCount && a.result.TotalProfit != b.result.TotalProfit {
		return a.result.TotalProfit > b.result.TotalProfit
	}
	if a.result.StopLosses != b.result.StopLosses {
		return a.result.StopLosses < b.result.StopLosses
	}
	return a.result.Config.BuyDropPct < b.result.Config.BuyDropPct
}
