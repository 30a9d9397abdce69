package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coin-strategy-lab/internal/domain"
)

const validYAML = `
symbols:
  - BTCUSDT
  - ETHUSDT
scoring: number_of_clean_wins
parallelism: 4
interval: 15m
base:
  strategy: buy_drop_sell_recovery
  buy_drop_pct: 0.05
  buy_recovery_pct: 0.02
  sell_at_pct: 0.06
  trail_target_sell_pct: 0.01
  stop_loss_pct: 0.10
  hard_limit_hold_sec: 86400
  soft_limit_hold_sec: 43200
  cooldown_sec: 3600
  trading_fee_pct: 0.001
space:
  buy_drop_pcts: [0.03, 0.05, 0.10]
  sell_at_pcts: [0.04, 0.06]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "campaign.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, c.Symbols)
	assert.Equal(t, "number_of_clean_wins", c.Scoring)
	assert.Equal(t, 4, c.Parallelism)
	assert.Equal(t, "15m", c.Interval)
	assert.Equal(t, domain.StrategyBuyDropSellRecovery, c.Base.Strategy)
	assert.InDelta(t, 0.05, c.Base.BuyDropPct, 1e-9)
	assert.Len(t, c.Space.BuyDropPcts, 3)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Campaign)
	}{
		{"no symbols", func(c *Campaign) { c.Symbols = nil }},
		{"empty symbol", func(c *Campaign) { c.Symbols = []string{""} }},
		{"duplicate symbol", func(c *Campaign) { c.Symbols = []string{"BTCUSDT", "BTCUSDT"} }},
		{"unknown scoring", func(c *Campaign) { c.Scoring = "maximal_vibes" }},
		{"negative parallelism", func(c *Campaign) { c.Parallelism = -1 }},
		{"invalid base", func(c *Campaign) { c.Base.StopLossPct = 1.5 }},
		{"invalid space value", func(c *Campaign) { c.Space.BuyDropPcts = []float64{-0.05} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Load(writeConfig(t, validYAML))
			require.NoError(t, err)

			tc.mutate(c)
			err = c.Validate()
			assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
		})
	}
}

func TestValidate_DefaultsInterval(t *testing.T) {
	c, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	c.Interval = ""
	require.NoError(t, c.Validate())
	assert.Equal(t, "1h", c.Interval)
}
