package strategy

import (
	"errors"
	"testing"

	"coin-strategy-lab/internal/domain"
)

func TestPriceWindow_FillAndEvict(t *testing.T) {
	w := NewPriceWindow(3)

	if w.Full() {
		t.Fatal("empty window reported full")
	}
	w.Push(1)
	w.Push(2)
	if w.Full() {
		t.Fatal("partially filled window reported full")
	}
	w.Push(3)
	if !w.Full() {
		t.Fatal("filled window not reported full")
	}
	if w.Oldest() != 1 {
		t.Errorf("expected oldest 1, got %v", w.Oldest())
	}

	w.Push(4)
	if w.Oldest() != 2 {
		t.Errorf("expected oldest 2 after eviction, got %v", w.Oldest())
	}
}

func TestPriceWindow_ZeroSizeNeverFull(t *testing.T) {
	w := NewPriceWindow(0)
	w.Push(1)
	w.Push(2)
	if w.Full() {
		t.Fatal("zero-size window must never be full")
	}
	if got := w.ChangePct(10); got != 0 {
		t.Errorf("expected zero change for zero-size window, got %v", got)
	}
}

func TestPriceWindow_ChangePct(t *testing.T) {
	w := NewPriceWindow(2)
	w.Push(100)
	w.Push(104)
	if got := w.ChangePct(110); got != 0.10 {
		t.Errorf("expected 0.10, got %v", got)
	}
	if got := w.ChangePct(90); got != -0.10 {
		t.Errorf("expected -0.10, got %v", got)
	}
}

func TestBuyDropSellRecovery_ArmsAndBuys(t *testing.T) {
	e := NewBuyDropSellRecovery(0.10, 0.01)
	s := domain.NewCoinState("BTCUSDT")
	w := NewPriceWindow(0)

	steps := []struct {
		price      float64
		wantBuy    bool
		wantStatus domain.Status
	}{
		{100, false, domain.StatusIdle},
		{95, false, domain.StatusIdle},        // 5% drop, not enough
		{90, false, domain.StatusArmedDrop},   // 10% below max
		{88, false, domain.StatusArmedDrop},   // still falling
		{88.5, false, domain.StatusArmedDrop}, // bounce below 88*1.01
		{89, true, domain.StatusArmedDrop},    // >= 88.88
	}
	for i, step := range steps {
		got := e.Evaluate(s, w, int64(i), step.price)
		if got != step.wantBuy {
			t.Fatalf("step %d (price %v): buy = %v, want %v", i, step.price, got, step.wantBuy)
		}
		if s.Status != step.wantStatus {
			t.Fatalf("step %d: status %s, want %s", i, s.Status, step.wantStatus)
		}
	}
}

func TestFromConfig_Variants(t *testing.T) {
	tests := []struct {
		name     string
		cfg      domain.StrategyConfig
		wantName string
		wantErr  error
	}{
		{
			name: "drop recovery",
			cfg: domain.StrategyConfig{
				Strategy:       domain.StrategyBuyDropSellRecovery,
				BuyDropPct:     0.1,
				BuyRecoveryPct: 0.01,
			},
			wantName: domain.StrategyBuyDropSellRecovery,
		},
		{
			name: "moon",
			cfg: domain.StrategyConfig{
				Strategy:       domain.StrategyBuyMoonSellRecovery,
				TrendWindow:    5,
				TrendChangePct: 0.02,
			},
			wantName: domain.StrategyBuyMoonSellRecovery,
		},
		{
			name: "growth trend",
			cfg: domain.StrategyConfig{
				Strategy:         domain.StrategyBuyDropInGrowthTrend,
				BuyDropPct:       0.1,
				TrailRecoveryPct: 0.01,
				TrendWindow:      5,
				TrendChangePct:   0.02,
			},
			wantName: domain.StrategyBuyDropInGrowthTrend,
		},
		{
			name:    "unknown",
			cfg:     domain.StrategyConfig{Strategy: "martingale"},
			wantErr: ErrUnknownStrategy,
		},
		{
			name: "moon without window",
			cfg: domain.StrategyConfig{
				Strategy:       domain.StrategyBuyMoonSellRecovery,
				TrendChangePct: 0.02,
			},
			wantErr: ErrMissingTrendWindow,
		},
		{
			name: "drop without recovery pct",
			cfg: domain.StrategyConfig{
				Strategy:   domain.StrategyBuyDropSellRecovery,
				BuyDropPct: 0.1,
			},
			wantErr: ErrMissingBuyRecovery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := FromConfig(tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromConfig failed: %v", err)
			}
			if entry.Name() != tt.wantName {
				t.Errorf("expected name %s, got %s", tt.wantName, entry.Name())
			}
		})
	}
}
