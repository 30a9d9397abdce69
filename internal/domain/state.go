package domain

// Status is the lifecycle state of a coin within one trading cycle.
type Status string

// Lifecycle states.
const (
	StatusIdle           Status = "IDLE"
	StatusArmedDrop      Status = "ARMED_DROP"
	StatusHolding        Status = "HOLDING"
	StatusTrailingTarget Status = "TRAILING_TARGET"
	StatusCooldown       Status = "COOLDOWN"
)

// CoinStats accumulates per-coin outcome counters across one run.
type CoinStats struct {
	Buys   int
	Wins   int
	Losses int
	Stales int
}

// CoinState is the mutable trading state for one symbol within one
// simulation run. It is owned exclusively by its state machine and is
// never shared across concurrent runs.
type CoinState struct {
	Symbol string
	Status Status

	// Reference prices for entry tracking: Max is the rolling maximum
	// while idle (watching for a drop), Min the rolling minimum since the
	// drop armed (watching for the recovery).
	Max float64
	Min float64

	LastPrice float64
	LastTime  int64

	// Open position. BuyPrice is set iff Status is a holding variant.
	BuyPrice float64
	BuyTime  int64

	// Tip is the highest price seen since the sell target was first
	// reached; the trailing exit ratchets off it.
	Tip float64

	// CooldownUntil suppresses re-buys until this timestamp passes.
	CooldownUntil int64

	Stats CoinStats
}

// NewCoinState creates the run-scoped state for a symbol.
func NewCoinState(symbol string) *CoinState {
	return &CoinState{Symbol: symbol, Status: StatusIdle}
}

// Holding reports whether a position is currently open.
func (s *CoinState) Holding() bool {
	return s.Status == StatusHolding || s.Status == StatusTrailingTarget
}

// Reset clears position and reference tracking, keeping cumulative stats.
func (s *CoinState) Reset(price float64) {
	s.Status = StatusIdle
	s.Max = price
	s.Min = 0
	s.BuyPrice = 0
	s.BuyTime = 0
	s.Tip = 0
}
