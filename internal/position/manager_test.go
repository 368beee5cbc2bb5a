package position

import (
	"testing"

	"trading-core/internal/domain"
	"trading-core/internal/eventbus"
)

func TestStopTriggersClose(t *testing.T) {
	bus := eventbus.New()
	sub, unsub := bus.Subscribe(eventbus.TopicLifecycle, 4)
	defer unsub()

	stop := 0.85
	portfolio := &domain.Portfolio{Positions: map[string]domain.Position{
		"pos-1": {ID: "pos-1", Symbol: "TKN1", Side: domain.SideLong, Size: 100, EntryPrice: 1.00, StopPrice: &stop, Status: domain.PositionOpen},
	}}
	mgr := NewManager(portfolio, bus)

	mgr.OnTick(domain.AggregatedView{Symbol: "TKN1", ConsensusPrice: 0.84})

	p := portfolio.Positions["pos-1"]
	if p.Status != domain.PositionClosing {
		t.Fatalf("expected position to transition to closing, got %s", p.Status)
	}

	select {
	case msg := <-sub:
		req, ok := msg.(CloseRequest)
		if !ok || req.Reason != ReasonStop {
			t.Fatalf("expected stop close request, got %+v", msg)
		}
	default:
		t.Fatal("expected a close request to be published")
	}
}

func TestConfirmIncrementsLossStreak(t *testing.T) {
	portfolio := &domain.Portfolio{Positions: map[string]domain.Position{
		"pos-1": {ID: "pos-1", Symbol: "TKN1", Side: domain.SideLong, Size: 100, EntryPrice: 1.00, CurrentPrice: 0.84, Status: domain.PositionClosing},
	}}
	mgr := NewManager(portfolio, nil)

	var lossCalled, winCalled bool
	mgr.Confirm("pos-1", 0.84, func() { winCalled = true }, func() { lossCalled = true })

	if !lossCalled || winCalled {
		t.Fatalf("expected loss callback only, loss=%v win=%v", lossCalled, winCalled)
	}
	p := portfolio.Positions["pos-1"]
	if p.Status != domain.PositionClosed {
		t.Fatalf("expected closed status, got %s", p.Status)
	}
}
