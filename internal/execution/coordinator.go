package execution

import (
	"context"
	"log"
	"math"
	"time"

	"trading-core/internal/apperr"
	"trading-core/internal/config"
	"trading-core/internal/domain"
	"trading-core/internal/eventbus"
)

// ReservationReleaser lets the coordinator release a risk-manager cash
// reservation on terminal failure without importing the risk package.
type ReservationReleaser interface {
	ReleaseReservation(portfolio *domain.Portfolio, decisionID string)
	ConfirmReservation(decisionID string)
}

// Coordinator drives one decision through quote -> route -> submit ->
// confirm, generalizing the donor's Executor/AsyncExecutor split
// (internal/order/executor.go, async_executor.go) into the Solana swap
// domain with WAL-backed idempotency (wal.go, grounded on persistent_queue.go).
type Coordinator struct {
	quoter    Quoter
	swapper   Swapper
	relay     BundleRelay
	confirmer Confirmer
	wal       *WAL
	bus       *eventbus.Bus
	reserver  ReservationReleaser

	mev        config.MEVProtectionConfig
	solana     config.SolanaConfig
	agg        config.AggregatorConfig
	tips       *TipRotation
}

// NewCoordinator wires a coordinator from loaded config sections.
func NewCoordinator(quoter Quoter, swapper Swapper, relay BundleRelay, confirmer Confirmer, wal *WAL, bus *eventbus.Bus, reserver ReservationReleaser, mev config.MEVProtectionConfig, solana config.SolanaConfig, agg config.AggregatorConfig) *Coordinator {
	return &Coordinator{
		quoter: quoter, swapper: swapper, relay: relay, confirmer: confirmer,
		wal: wal, bus: bus, reserver: reserver,
		mev: mev, solana: solana, agg: agg,
		tips: NewTipRotation(mev.TipAccounts),
	}
}

// Submit runs decision through the full execution pipeline. portfolio is
// mutated (reservation release) on terminal failure.
func (c *Coordinator) Submit(ctx context.Context, decision domain.Decision, view domain.AggregatedView, inputToken, outputToken string, portfolio *domain.Portfolio) {
	order := Order{
		DecisionID:  decision.ID,
		Symbol:      decision.SignalRef.Symbol,
		Side:        string(decision.SignalRef.Action),
		InputToken:  inputToken,
		OutputToken: outputToken,
		Amount:      decision.SizedQuantity,
		SlippageBps: c.agg.MaxSlippageBps,
		State:       StatePendingQuote,
		CreatedAt:   time.Now(),
	}

	if !c.wal.MarkSubmitting(order) {
		log.Printf("[EXEC] decision %s already in flight, suppressing duplicate submission", decision.ID)
		return
	}

	quote, err := c.quoter.Quote(ctx, inputToken, outputToken, order.Amount, order.SlippageBps)
	if err != nil {
		c.fail(portfolio, decision.ID, apperr.CodeNoRoute, err.Error())
		return
	}
	order.State = StateQuoted
	order.QuotedPrice = quote.ImpliedPrice

	maxSlipBps := c.agg.MaxSlippageBps
	if maxSlipBps > 0 && view.ConsensusPrice > 0 {
		deviationBps := math.Abs(quote.ImpliedPrice-view.ConsensusPrice) / view.ConsensusPrice * 10_000
		if deviationBps > float64(maxSlipBps) {
			c.fail(portfolio, decision.ID, apperr.CodeSlippageExceeded, "quote price deviates beyond max_slippage_bps")
			return
		}
	}

	order.State = StateSubmitting
	notional := order.Amount * quote.ImpliedPrice
	var txSig string
	if c.mev.Enabled && notional >= c.mev.MevThresholdUSD && c.relay != nil {
		txSig, err = c.submitViaBundle(ctx, quote)
	} else {
		txSig, err = c.swapper.Submit(ctx, quote.RouteRef)
	}
	if err != nil {
		code := apperr.CodeTxFailed
		if ae, ok := err.(*apperr.Error); ok {
			code = ae.Code
		}
		c.fail(portfolio, decision.ID, code, err.Error())
		return
	}
	order.TxSignature = txSig
	order.State = StateSubmitted

	txTimeout := time.Duration(c.agg.TxTimeoutSeconds) * time.Second
	if txTimeout <= 0 {
		txTimeout = 30 * time.Second
	}
	var fillPrice, fillQty float64
	commitErr := pollUntilTerminal(ctx, txTimeout, 500*time.Millisecond, func(ctx context.Context) (bool, error) {
		status, price, qty, err := c.confirmer.Status(ctx, txSig, c.solana.Commitment)
		if err != nil {
			return false, nil // transient poll error, keep trying until timeout
		}
		switch status {
		case TxCommitted:
			fillPrice, fillQty = price, qty
			return true, nil
		case TxFailed:
			return false, apperr.New(apperr.CodeTxFailed, "transaction failed on-chain")
		default:
			return false, nil
		}
	})
	if commitErr != nil {
		code := apperr.CodeTxFailed
		if commitErr == context.DeadlineExceeded {
			code = apperr.CodeTimeout
		}
		c.fail(portfolio, decision.ID, code, commitErr.Error())
		return
	}

	order.State = StateFilled
	c.wal.MarkComplete(decision.ID)
	if c.reserver != nil {
		c.reserver.ConfirmReservation(decision.ID)
	}
	fill := Fill{DecisionID: decision.ID, Price: fillPrice, Quantity: fillQty, TxSignature: txSig, FilledAt: time.Now()}
	if c.bus != nil {
		c.bus.Publish(eventbus.TopicFill, fill)
	}
}

// submitViaBundle attaches a round-robin tip transfer and submits through
// the relay, polling for terminal status or bundle_timeout_seconds, falling
// through to direct submission on timeout if mev_fallback is set
// (spec.md §4.5, §8 scenario 5).
func (c *Coordinator) submitViaBundle(ctx context.Context, quote Quote) (string, error) {
	tip := c.tips.Next()
	bundleID, err := c.relay.SubmitBundle(ctx, quote.RouteRef, tip, c.mev.MaxTipLamports)
	if err != nil {
		if c.mev.FallbackDirectOnTimeo {
			return c.swapper.Submit(ctx, quote.RouteRef)
		}
		return "", err
	}

	timeout := time.Duration(c.mev.BundleTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var txSig string
	var landed bool
	pollErr := pollUntilTerminal(ctx, timeout, 500*time.Millisecond, func(ctx context.Context) (bool, error) {
		status, sig, err := c.relay.PollStatus(ctx, bundleID)
		if err != nil {
			return false, nil
		}
		switch status {
		case BundleLanded:
			txSig, landed = sig, true
			return true, nil
		case BundleFailed:
			return false, apperr.New(apperr.CodeTxFailed, "bundle failed at relay")
		default:
			return false, nil
		}
	})

	if pollErr == context.DeadlineExceeded {
		if c.mev.FallbackDirectOnTimeo {
			log.Printf("[EXEC] bundle %s timed out, falling through to direct submission", bundleID)
			return c.swapper.Submit(ctx, quote.RouteRef)
		}
		return "", apperr.New(apperr.CodeBundleTimeout, "bundle did not land within bundle_timeout_seconds")
	}
	if pollErr != nil {
		return "", pollErr
	}
	if !landed {
		return "", apperr.New(apperr.CodeTxFailed, "bundle polling ended without landing")
	}
	return txSig, nil
}

func (c *Coordinator) fail(portfolio *domain.Portfolio, decisionID string, code apperr.Code, detail string) {
	c.wal.MarkComplete(decisionID)
	if c.reserver != nil {
		c.reserver.ReleaseReservation(portfolio, decisionID)
	}
	log.Printf("[EXEC] decision %s failed: %s: %s", decisionID, code, detail)
	if c.bus != nil {
		c.bus.Publish(eventbus.TopicOrderUpdate, Failed{DecisionID: decisionID, Reason: string(code), DetailMsg: detail, FailedAt: time.Now()})
	}
}
