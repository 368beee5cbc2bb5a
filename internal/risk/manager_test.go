package risk

import (
	"testing"
	"time"

	"trading-core/internal/config"
	"trading-core/internal/domain"
)

func baseCfg() config.RiskManagementConfig {
	return config.RiskManagementConfig{
		MaxPositions:           10,
		MaxExposurePerTokenPct: 1.0,
		GlobalMaxExposure:      1000,
		MaxPriceImpactPct:      0.03,
		MaxDailyLoss:           500,
		MaxDrawdown:            0.5,
		ConsecutiveLossLimit:   5,
		CoolingOffMinutes:      30,
		SizingMethod:           "fixed",
		FixedSize:              200,
		MinPositionSize:        10,
		MaxPositionSize:        1000,
		DefaultStopPct:         0.10,
		DefaultTakePct:         0.25,
	}
}

func TestExposureCapRejection(t *testing.T) {
	mgr := NewManager(baseCfg(), nil, nil, nil)
	portfolio := &domain.Portfolio{
		CashBalance:   10_000,
		AvailableCash: 10_000,
		Positions: map[string]domain.Position{
			"p1": {ID: "p1", Symbol: "OTHER", Size: 900, EntryPrice: 1, CurrentPrice: 1, Status: domain.PositionOpen},
		},
	}
	ctx := domain.StrategyContext{View: domain.AggregatedView{Symbol: "TKN1", ConsensusPrice: 1, LiquidityDepth: 1_000_000}}
	signal := domain.Signal{StrategyID: "launchpad", Symbol: "TKN1", Action: domain.ActionBuy, SuggestedSize: 200}

	d := mgr.Evaluate(ctx, portfolio, signal, 0, time.Now())

	if d.Verdict != domain.VerdictReject || d.RejectReason != "OverExposure" {
		t.Fatalf("expected OverExposure rejection, got verdict=%s reason=%s", d.Verdict, d.RejectReason)
	}
}

func TestHaltedPortfolioRejectsEverything(t *testing.T) {
	mgr := NewManager(baseCfg(), nil, nil, nil)
	portfolio := &domain.Portfolio{Halted: true, CashBalance: 1000, AvailableCash: 1000}
	ctx := domain.StrategyContext{View: domain.AggregatedView{Symbol: "TKN1", ConsensusPrice: 1, LiquidityDepth: 1_000_000}}
	signal := domain.Signal{StrategyID: "launchpad", Symbol: "TKN1", SuggestedSize: 10}

	d := mgr.Evaluate(ctx, portfolio, signal, 0, time.Now())

	if d.Verdict != domain.VerdictReject || d.RejectReason != "EngineHalted" {
		t.Fatalf("expected EngineHalted rejection, got %+v", d)
	}
}

func TestAcceptedDecisionReservesCash(t *testing.T) {
	mgr := NewManager(baseCfg(), nil, nil, nil)
	portfolio := &domain.Portfolio{CashBalance: 10_000, AvailableCash: 10_000}
	ctx := domain.StrategyContext{View: domain.AggregatedView{Symbol: "TKN1", ConsensusPrice: 1, LiquidityDepth: 1_000_000}}
	signal := domain.Signal{StrategyID: "launchpad", Symbol: "TKN1", SuggestedSize: 50}

	d := mgr.Evaluate(ctx, portfolio, signal, 0, time.Now())

	if d.Verdict != domain.VerdictAccept {
		t.Fatalf("expected accept, got reject reason=%s", d.RejectReason)
	}
	if portfolio.AvailableCash != 9_800 {
		t.Fatalf("expected cash reserved, available=%.2f", portfolio.AvailableCash)
	}

	mgr.ReleaseReservation(portfolio, d.ID)
	if portfolio.AvailableCash != 10_000 {
		t.Fatalf("expected cash released, available=%.2f", portfolio.AvailableCash)
	}

	// idempotent: a second release of the same decision id is a no-op.
	mgr.ReleaseReservation(portfolio, d.ID)
	if portfolio.AvailableCash != 10_000 {
		t.Fatalf("expected release to be idempotent, available=%.2f", portfolio.AvailableCash)
	}
}

type fakeLosses struct{ n int }

func (f fakeLosses) LossesInRow(string) int { return f.n }

type fakeCooldown struct{ called bool }

func (f *fakeCooldown) CoolOff(string, time.Time) { f.called = true }

func TestConsecutiveLossTriggersCooldown(t *testing.T) {
	cooldown := &fakeCooldown{}
	mgr := NewManager(baseCfg(), nil, cooldown, fakeLosses{n: 5})
	portfolio := &domain.Portfolio{CashBalance: 10_000, AvailableCash: 10_000}
	ctx := domain.StrategyContext{View: domain.AggregatedView{Symbol: "TKN1", ConsensusPrice: 1, LiquidityDepth: 1_000_000}}
	signal := domain.Signal{StrategyID: "launchpad", Symbol: "TKN1", SuggestedSize: 50}

	d := mgr.Evaluate(ctx, portfolio, signal, 0, time.Now())

	if d.Verdict != domain.VerdictReject || d.RejectReason != "StrategyCoolingOff" {
		t.Fatalf("expected StrategyCoolingOff, got %+v", d)
	}
	if !cooldown.called {
		t.Fatal("expected CoolOff to be invoked")
	}
}
