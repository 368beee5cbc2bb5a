// Package strategy implements the pluggable strategy framework and the two
// reference strategies from spec.md §4.3, generalizing the donor's
// ID/Name/OnTick/GetState/SetState interface into the richer
// StrategyContext/Analyze/OnFill/OnClose shape the spec requires, and
// replacing the donor's map[string]interface{} parameter bag with typed
// per-strategy parameters (spec.md §9 design note: "no global mutable maps").
package strategy

import (
	"time"

	"trading-core/internal/domain"
)

// Fill is passed to Strategy.OnFill when an order for the strategy's signal fills.
type Fill struct {
	DecisionID string
	Symbol     string
	Price      float64
	Quantity   float64
	Fee        float64
	Timestamp  time.Time
}

// Close is passed to Strategy.OnClose when a position closes.
type Close struct {
	PositionID  string
	Symbol      string
	Reason      string
	RealizedPnL float64
	Timestamp   time.Time
}

// Strategy is the interface every trading strategy implements (spec.md §4.3).
type Strategy interface {
	ID() string
	RequiredSources() []domain.SourceClass
	Analyze(ctx domain.StrategyContext) (*domain.Signal, error)
	OnFill(f Fill)
	OnClose(c Close)
	State() domain.StrategyState
	SetState(s domain.StrategyState)
	MinConfidence() float64
}

// LifecycleState mirrors the idle/armed/firing/cooling state machine from
// spec.md §4.3.3. It's informational for logging/metrics — the actual gate
// runs off domain.StrategyState.CooldownUntil.
type LifecycleState string

const (
	StateIdle    LifecycleState = "idle"
	StateArmed   LifecycleState = "armed"
	StateFiring  LifecycleState = "firing"
	StateCooling LifecycleState = "cooling"
)

// EligibilityGate implements the gate spec.md §4.3 requires of every
// strategy before its specific Analyze logic runs.
func EligibilityGate(ctx domain.StrategyContext, state domain.StrategyState, minConfidence float64, now time.Time, hasOpenPosition bool) (eligible bool, reason string) {
	if ctx.View.Confidence < minConfidence {
		return false, "confidence_below_threshold"
	}
	if now.Before(state.CooldownUntil) {
		return false, "cooling_down"
	}
	if hasOpenPosition {
		return false, "already_has_open_position"
	}
	if ctx.PortfolioSnap.Halted {
		return false, "portfolio_halted"
	}
	return true, ""
}
