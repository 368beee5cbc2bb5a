package strategy

import (
	"sync"
	"time"

	"trading-core/internal/domain"
)

// PoolSniperParams is the typed parameter set for the new-pool sniping
// strategy (spec.md §4.3.2).
type PoolSniperParams struct {
	MinPoolAgeSeconds    float64
	MaxPoolAgeSeconds    float64
	MinInitialLiquidity  float64
	MaxInitialLiquidity  float64
	MinAPR               float64 // e.g. 0.50 = 50%
	MinVolumeLiquidity   float64 // volume_24h / liquidity ratio
	PreferredQuoteTokens map[string]bool
	MaxPriceImpactPct    float64
	FeeBps               float64
	ConfidenceThreshold  float64
	MinConfidence        float64
	CooldownSeconds      int
	SuggestedSizeBase    float64
}

// DefaultPoolSniperParams returns the spec.md §4.3.2 defaults.
func DefaultPoolSniperParams() PoolSniperParams {
	return PoolSniperParams{
		MinPoolAgeSeconds:   5 * 60,
		MaxPoolAgeSeconds:   12 * 3600,
		MinInitialLiquidity: 5_000,
		MaxInitialLiquidity: 100_000,
		MinAPR:              0.50,
		MinVolumeLiquidity:  0.10,
		MaxPriceImpactPct:   0.03,
		FeeBps:              30,
		ConfidenceThreshold: 0.5,
		MinConfidence:       0.4,
		CooldownSeconds:     300,
		SuggestedSizeBase:   100,
	}
}

// PoolSniper targets newly created AMM liquidity pools.
type PoolSniper struct {
	mu         sync.Mutex
	id         string
	params     PoolSniperParams
	state      domain.StrategyState
	priceHist  map[string][2]float64
	volumeHist map[string][2]float64
}

// NewPoolSniper constructs the strategy with an instance id and params.
func NewPoolSniper(id string, params PoolSniperParams) *PoolSniper {
	return &PoolSniper{
		id:         id,
		params:     params,
		state:      domain.StrategyState{Enabled: true},
		priceHist:  make(map[string][2]float64),
		volumeHist: make(map[string][2]float64),
	}
}

func (s *PoolSniper) ID() string { return s.id }

func (s *PoolSniper) RequiredSources() []domain.SourceClass {
	return []domain.SourceClass{domain.SourceClassEstablishedAMM}
}

func (s *PoolSniper) MinConfidence() float64 { return s.params.MinConfidence }

func (s *PoolSniper) Cooldown() time.Duration {
	return time.Duration(s.params.CooldownSeconds) * time.Second
}

func (s *PoolSniper) State() domain.StrategyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *PoolSniper) SetState(st domain.StrategyState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

func (s *PoolSniper) OnFill(f Fill)   {}
func (s *PoolSniper) OnClose(c Close) {}

// Analyze implements spec.md §4.3.2's eligibility and scoring.
func (s *PoolSniper) Analyze(ctx domain.StrategyContext) (*domain.Signal, error) {
	md := ctx.Metadata
	if md.AgeSeconds == nil {
		return nil, nil
	}
	p := s.params

	age := *md.AgeSeconds
	if age < p.MinPoolAgeSeconds || age > p.MaxPoolAgeSeconds {
		return nil, nil
	}
	liquidity := ctx.View.LiquidityDepth
	if liquidity < p.MinInitialLiquidity || liquidity > p.MaxInitialLiquidity {
		return nil, nil
	}
	if liquidity <= 0 {
		return nil, nil
	}

	dailyFees := ctx.View.Volume * (p.FeeBps / 10_000)
	apr := (dailyFees / liquidity) * 365
	if apr < p.MinAPR {
		return nil, nil
	}

	volLiqRatio := ctx.View.Volume / liquidity
	if volLiqRatio < p.MinVolumeLiquidity {
		return nil, nil
	}

	priceImpact := p.SuggestedSizeBase / liquidity
	if priceImpact > p.MaxPriceImpactPct {
		return nil, nil
	}

	preferred := len(p.PreferredQuoteTokens) == 0 || p.PreferredQuoteTokens[ctx.View.Symbol]

	s.mu.Lock()
	prevPrice, havePrice := s.priceHist[ctx.View.Symbol]
	prevVol, haveVol := s.volumeHist[ctx.View.Symbol]
	s.priceHist[ctx.View.Symbol] = [2]float64{prevPrice[1], ctx.View.ConsensusPrice}
	s.volumeHist[ctx.View.Symbol] = [2]float64{prevVol[1], ctx.View.Volume}
	s.mu.Unlock()

	var volMomentum float64
	if haveVol && prevVol[1] > 0 {
		volMomentum = clamp01((ctx.View.Volume/prevVol[1] - 1) / 0.5)
	}
	var priceMomentum float64
	if havePrice && prevPrice[1] > 0 {
		priceMomentum = clamp01((ctx.View.ConsensusPrice/prevPrice[1] - 1) / 0.1)
	}
	aprScore := clamp01(apr / (p.MinAPR * 3)) // saturates at 3x the floor
	preferredBonus := 0.0
	if preferred {
		preferredBonus = 1.0
	}

	strength := clamp01(
		0.25*volMomentum +
			0.20*priceMomentum +
			0.20*aprScore +
			0.15*clamp01(volLiqRatio/0.5) +
			0.10*ctx.View.Confidence +
			0.10*preferredBonus,
	)

	if strength < p.ConfidenceThreshold {
		return nil, nil
	}

	return &domain.Signal{
		StrategyID:    s.id,
		Symbol:        ctx.View.Symbol,
		Action:        domain.ActionBuy,
		Strength:      strength,
		SuggestedSize: p.SuggestedSizeBase,
		Rationale:     "new-pool APR/volume composite",
		Metadata:      map[string]any{"apr": apr, "price_impact_pct": priceImpact},
		CreatedAt:     time.Now(),
	}, nil
}
