package execution

import (
	"context"
	"testing"
	"time"

	"trading-core/internal/config"
	"trading-core/internal/domain"
)

type fakeQuoter struct{ q Quote }

func (f fakeQuoter) Quote(ctx context.Context, in, out string, amount float64, slip int) (Quote, error) {
	return f.q, nil
}

type fakeSwapper struct {
	calls int
	sig   string
}

func (f *fakeSwapper) Submit(ctx context.Context, routeRef string) (string, error) {
	f.calls++
	return f.sig, nil
}

type timeoutRelay struct{ submitted int }

func (r *timeoutRelay) SubmitBundle(ctx context.Context, routeRef, tipAccount string, tipLamports uint64) (string, error) {
	r.submitted++
	return "bundle-1", nil
}

func (r *timeoutRelay) PollStatus(ctx context.Context, bundleID string) (BundleStatus, string, error) {
	return BundlePending, "", nil // never lands within the window
}

type instantConfirmer struct{}

func (instantConfirmer) Status(ctx context.Context, txSig, commitment string) (TxStatus, float64, float64, error) {
	return TxCommitted, 1.0, 10, nil
}

func newTestWAL(t *testing.T) *WAL {
	t.Helper()
	dir := t.TempDir()
	w, err := OpenWAL(dir)
	if err != nil {
		t.Fatalf("open WAL: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func TestBundleTimeoutFallsThroughToDirectSubmission(t *testing.T) {
	swapper := &fakeSwapper{sig: "direct-sig"}
	relay := &timeoutRelay{}
	coord := NewCoordinator(
		fakeQuoter{q: Quote{ImpliedPrice: 1.0, RouteRef: "route"}},
		swapper, relay, instantConfirmer{}, newTestWAL(t), nil, nil,
		config.MEVProtectionConfig{Enabled: true, MevThresholdUSD: 0, BundleTimeoutSeconds: 1, FallbackDirectOnTimeo: true, TipAccounts: []string{"tip1"}},
		config.SolanaConfig{Commitment: "confirmed"},
		config.AggregatorConfig{TxTimeoutSeconds: 5},
	)

	decision := domain.Decision{ID: "dec-1", SignalRef: domain.Signal{Symbol: "TKN1", Action: domain.ActionBuy}, SizedQuantity: 100}
	portfolio := &domain.Portfolio{CashBalance: 10_000, AvailableCash: 10_000}

	coord.Submit(context.Background(), decision, domain.AggregatedView{ConsensusPrice: 1.0}, "USDC", "TKN1", portfolio)

	if relay.submitted != 1 {
		t.Fatalf("expected bundle submitted once, got %d", relay.submitted)
	}
	if swapper.calls != 1 {
		t.Fatalf("expected direct fallback submission, got %d calls", swapper.calls)
	}
}

func TestBundleTimeoutWithoutFallbackIsTerminal(t *testing.T) {
	swapper := &fakeSwapper{sig: "direct-sig"}
	relay := &timeoutRelay{}
	coord := NewCoordinator(
		fakeQuoter{q: Quote{ImpliedPrice: 1.0, RouteRef: "route"}},
		swapper, relay, instantConfirmer{}, newTestWAL(t), nil, nil,
		config.MEVProtectionConfig{Enabled: true, MevThresholdUSD: 0, BundleTimeoutSeconds: 1, FallbackDirectOnTimeo: false, TipAccounts: []string{"tip1"}},
		config.SolanaConfig{Commitment: "confirmed"},
		config.AggregatorConfig{TxTimeoutSeconds: 5},
	)

	decision := domain.Decision{ID: "dec-2", SignalRef: domain.Signal{Symbol: "TKN1", Action: domain.ActionBuy}, SizedQuantity: 100}
	portfolio := &domain.Portfolio{CashBalance: 10_000, AvailableCash: 10_000}

	coord.Submit(context.Background(), decision, domain.AggregatedView{ConsensusPrice: 1.0}, "USDC", "TKN1", portfolio)

	if swapper.calls != 0 {
		t.Fatalf("expected no direct submission without fallback, got %d calls", swapper.calls)
	}
}

func TestDuplicateDecisionSubmissionIsSuppressed(t *testing.T) {
	dir := t.TempDir()
	wal, err := OpenWAL(dir)
	if err != nil {
		t.Fatalf("open WAL: %v", err)
	}
	defer wal.Close()

	swapper := &fakeSwapper{sig: "sig-1"}
	coord := NewCoordinator(
		fakeQuoter{q: Quote{ImpliedPrice: 1.0, RouteRef: "route"}},
		swapper, nil, instantConfirmer{}, wal, nil, nil,
		config.MEVProtectionConfig{},
		config.SolanaConfig{Commitment: "confirmed"},
		config.AggregatorConfig{TxTimeoutSeconds: 5},
	)

	decision := domain.Decision{ID: "dec-3", SignalRef: domain.Signal{Symbol: "TKN1", Action: domain.ActionBuy}, SizedQuantity: 100}
	portfolio := &domain.Portfolio{CashBalance: 10_000, AvailableCash: 10_000}

	// simulate an in-flight duplicate by claiming the decision id before Submit runs.
	wal.MarkSubmitting(Order{DecisionID: decision.ID, CreatedAt: time.Now()})

	coord.Submit(context.Background(), decision, domain.AggregatedView{ConsensusPrice: 1.0}, "USDC", "TKN1", portfolio)

	if swapper.calls != 0 {
		t.Fatalf("expected duplicate submission to be suppressed, got %d calls", swapper.calls)
	}
}

func TestWALRecoversInFlightDecisions(t *testing.T) {
	dir := t.TempDir()
	wal, err := OpenWAL(dir)
	if err != nil {
		t.Fatalf("open WAL: %v", err)
	}
	wal.MarkSubmitting(Order{DecisionID: "dec-4", CreatedAt: time.Now()})
	wal.Close()

	reopened, err := OpenWAL(dir)
	if err != nil {
		t.Fatalf("reopen WAL: %v", err)
	}
	defer reopened.Close()

	pending, err := reopened.Recover()
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if len(pending) != 1 || pending[0].DecisionID != "dec-4" {
		t.Fatalf("expected dec-4 to be recovered pending, got %+v", pending)
	}
}
