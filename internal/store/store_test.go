package store

import (
	"context"
	"testing"
	"time"
)

func TestSaveAndLoadStrategyState(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	rec := StrategyStateRecord{
		StrategyID:       "launchpad",
		Enabled:          true,
		SignalsGenerated: 3,
		Wins:             1,
		Losses:           2,
		LossesInRow:      2,
		RealizedPnL:      -12.5,
		UpdatedAt:        time.Now().UTC().Truncate(time.Second),
	}
	if err := s.SaveStrategyState(ctx, rec); err != nil {
		t.Fatalf("save strategy state: %v", err)
	}

	loaded, err := s.LoadStrategyStates(ctx)
	if err != nil {
		t.Fatalf("load strategy states: %v", err)
	}
	if len(loaded) != 1 || loaded[0].StrategyID != "launchpad" || loaded[0].LossesInRow != 2 {
		t.Fatalf("unexpected loaded state: %+v", loaded)
	}
}

func TestSubmittedOrdersFiltersTerminalStates(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	_ = s.SaveOrder(ctx, OrderRecord{DecisionID: "d1", Symbol: "TKN1", Side: "buy", State: "submitted", CreatedAt: now, UpdatedAt: now})
	_ = s.SaveOrder(ctx, OrderRecord{DecisionID: "d2", Symbol: "TKN1", Side: "buy", State: "filled", CreatedAt: now, UpdatedAt: now})

	pending, err := s.SubmittedOrders(ctx)
	if err != nil {
		t.Fatalf("submitted orders: %v", err)
	}
	if len(pending) != 1 || pending[0].DecisionID != "d1" {
		t.Fatalf("expected only d1 pending, got %+v", pending)
	}
}
