package risk

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"trading-core/internal/apperr"
	"trading-core/internal/config"
	"trading-core/internal/domain"
)

// CooldownSink lets the risk manager force a strategy into cooldown on a
// consecutive-loss rejection without importing the strategy package.
type CooldownSink interface {
	CoolOff(strategyID string, until time.Time)
}

// LossCounter reports a strategy's current losing streak for the
// consecutive-loss check (spec.md §4.4 step 4).
type LossCounter interface {
	LossesInRow(strategyID string) int
}

// Manager is the single entry point for turning a Signal into a Decision,
// implementing spec.md §4.4's ten sequential checks.
type Manager struct {
	mu           sync.Mutex
	cfg          config.RiskManagementConfig
	strategies   map[string]config.StrategyConfig
	reservations map[string]reservation
	cooldown     CooldownSink
	losses       LossCounter
}

// NewManager builds a risk manager from the loaded risk_management config
// section and per-strategy overrides.
func NewManager(cfg config.RiskManagementConfig, strategies map[string]config.StrategyConfig, cooldown CooldownSink, losses LossCounter) *Manager {
	return &Manager{
		cfg:          cfg,
		strategies:   strategies,
		reservations: make(map[string]reservation),
		cooldown:     cooldown,
		losses:       losses,
	}
}

// Evaluate runs the sequential check pipeline against signal, mutating
// portfolio in place (reserving cash on accept) per spec.md §4.4.
// aiRiskScore is the enrichment-sourced additive risk term from spec.md §9,
// clamped to [0,1] and weighted by cfg.AIRiskWeight.
func (m *Manager) Evaluate(ctx domain.StrategyContext, portfolio *domain.Portfolio, signal domain.Signal, aiRiskScore float64, now time.Time) domain.Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	reject := func(code apperr.Code) domain.Decision {
		return domain.Decision{
			ID:           uuid.NewString(),
			SignalRef:    signal,
			Verdict:      domain.VerdictReject,
			RejectReason: string(code),
			CreatedAt:    now,
		}
	}

	// 1. Halt check.
	if portfolio.Halted {
		return reject(apperr.CodeEngineHalted)
	}

	// 2. Daily loss check.
	if m.cfg.MaxDailyLoss > 0 && portfolio.DailyPnL <= -m.cfg.MaxDailyLoss {
		portfolio.Halted = true
		log.Printf("[RISK] halting engine: daily_pnl=%.2f breached max_daily_loss=%.2f", portfolio.DailyPnL, m.cfg.MaxDailyLoss)
		return reject(apperr.CodeDailyLossExceeded)
	}

	// 3. Drawdown check.
	if m.cfg.MaxDrawdown > 0 && portfolio.CurrentDrawdown >= m.cfg.MaxDrawdown {
		portfolio.Halted = true
		log.Printf("[RISK] halting engine: drawdown=%.4f breached max_drawdown=%.4f", portfolio.CurrentDrawdown, m.cfg.MaxDrawdown)
		return reject(apperr.CodeMaxDrawdown)
	}

	// 4. Consecutive loss check.
	limit := m.cfg.ConsecutiveLossLimit
	if limit <= 0 {
		limit = 5
	}
	if m.losses != nil && m.losses.LossesInRow(signal.StrategyID) >= limit {
		coolMinutes := m.cfg.CoolingOffMinutes
		if coolMinutes <= 0 {
			coolMinutes = 30
		}
		until := now.Add(time.Duration(coolMinutes) * time.Minute)
		if m.cooldown != nil {
			m.cooldown.CoolOff(signal.StrategyID, until)
		}
		return reject(apperr.CodeStrategyCooling)
	}

	// 5. Position count check.
	if m.cfg.MaxPositions > 0 && portfolio.OpenPositionCount() >= m.cfg.MaxPositions {
		return reject(apperr.CodeTooManyPositions)
	}

	equity := portfolio.Equity()
	proposedNotional := signal.SuggestedSize

	// 6. Per-token exposure.
	if m.cfg.MaxExposurePerTokenPct > 0 {
		existing := portfolio.OpenNotionalFor(signal.Symbol)
		if existing+proposedNotional > m.cfg.MaxExposurePerTokenPct*equity {
			return reject(apperr.CodeOverExposure)
		}
	}

	// 7. Global exposure.
	if m.cfg.GlobalMaxExposure > 0 {
		if portfolio.OpenNotional()+proposedNotional > m.cfg.GlobalMaxExposure {
			return reject(apperr.CodeOverExposure)
		}
	}

	// 8. Liquidity sanity.
	maxImpact := m.cfg.MaxPriceImpactPct
	if maxImpact <= 0 {
		maxImpact = 0.03
	}
	if ctx.View.LiquidityDepth > 0 && proposedNotional > maxImpact*ctx.View.LiquidityDepth {
		return reject(apperr.CodeLiquidityShallow)
	}

	// 9. Sizing.
	size := m.computeSize(signal, equity, ctx.MarketConditions)

	// AI-contributed risk score: additive term clamped to [0,1], weighted by
	// ai_risk_weight, shrinking size proportionally (spec.md §9 Open Question).
	aiWeight := m.cfg.AIRiskWeight
	if aiWeight > 0 {
		combined := clamp01(aiRiskScore)
		size *= 1 - aiWeight*combined
	}

	if m.cfg.MinPositionSize > 0 && size < m.cfg.MinPositionSize {
		size = m.cfg.MinPositionSize
	}
	if m.cfg.MaxPositionSize > 0 && size > m.cfg.MaxPositionSize {
		size = m.cfg.MaxPositionSize
	}

	// 10. Stop / take, with strategy-specific overrides.
	stopPct, takePct := m.stopTakePct(signal.StrategyID)
	entry := ctx.View.ConsensusPrice
	if graduationImminent, _ := signal.Metadata["graduation_imminent"].(bool); graduationImminent {
		// tighten take-profit on graduation per spec.md §9 design note.
		takePct *= 0.5
	}

	decisionID := uuid.NewString()
	stopPrice := entry * (1 - stopPct)
	takePrice := entry * (1 + takePct)

	portfolio.AvailableCash -= size
	m.reservations[decisionID] = reservation{
		decisionID: decisionID,
		amount:     size,
		symbol:     signal.Symbol,
		createdAt:  now,
	}

	return domain.Decision{
		ID:            decisionID,
		SignalRef:     signal,
		Verdict:       domain.VerdictAccept,
		SizedQuantity: size,
		StopPrice:     stopPrice,
		TakePrice:     takePrice,
		CreatedAt:     now,
	}
}

// ConfirmReservation is called by execution on a fill; the reservation is
// consumed and dropped (portfolio cash was already decremented at Evaluate
// time, so confirmation is a no-op on cash — it exists purely to make the
// idempotent release explicit for restart reconciliation).
func (m *Manager) ConfirmReservation(decisionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reservations, decisionID)
}

// ReleaseReservation returns reserved cash to the portfolio on execution
// failure. Idempotent: a decision id with no outstanding reservation is a
// no-op, satisfying spec.md §4.4's idempotent-by-decision-id requirement.
func (m *Manager) ReleaseReservation(portfolio *domain.Portfolio, decisionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[decisionID]
	if !ok {
		return
	}
	portfolio.AvailableCash += r.amount
	delete(m.reservations, decisionID)
}

func (m *Manager) computeSize(signal domain.Signal, equity float64, mc domain.MarketConditions) float64 {
	switch m.cfg.SizingMethod {
	case "fixed":
		return m.cfg.FixedSize
	case "volatility_adjusted":
		observed := mc.VolatilityWindow
		if observed <= 0 {
			observed = m.cfg.TargetVol
		}
		ratio := 1.0
		if observed > 0 && m.cfg.TargetVol > 0 {
			ratio = clamp(0.25, 1.0, m.cfg.TargetVol/observed)
		}
		return m.cfg.SizingPct * equity * ratio
	case "percentage":
		fallthrough
	default:
		pct := m.cfg.SizingPct
		if pct <= 0 {
			pct = 0.02
		}
		return pct * equity
	}
}

func (m *Manager) stopTakePct(strategyID string) (stop, take float64) {
	stop, take = m.cfg.DefaultStopPct, m.cfg.DefaultTakePct
	if stop <= 0 {
		stop = 0.10
	}
	if take <= 0 {
		take = 0.25
	}
	if sc, ok := m.strategies[strategyID]; ok {
		if sc.StopLossPercentage > 0 {
			stop = sc.StopLossPercentage
		}
		if sc.TakeProfitPercentage > 0 {
			take = sc.TakeProfitPercentage
		}
	}
	return stop, take
}

func clamp(lo, hi, v float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clamp01(v float64) float64 { return clamp(0, 1, v) }
