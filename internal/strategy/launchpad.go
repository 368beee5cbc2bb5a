package strategy

import (
	"math"
	"sync"
	"time"

	"trading-core/internal/domain"
)

// LaunchpadParams is the typed parameter set for the early-token sniping
// strategy (spec.md §4.3.1), replacing the donor's map[string]interface{}
// parameter bag per spec.md §9's design note.
type LaunchpadParams struct {
	MinMcap              float64
	MaxMcap              float64
	MaxAgeSeconds        float64
	MinVolume24h         float64
	MinHolders           int
	CreatorBlacklist     map[string]bool
	GraduationThreshold  float64 // default 0.8
	ConfidenceThreshold  float64
	MinConfidence        float64
	CooldownSeconds      int
	SuggestedSizeBase    float64
}

// DefaultLaunchpadParams returns the spec.md §4.3.1 defaults.
func DefaultLaunchpadParams() LaunchpadParams {
	return LaunchpadParams{
		MinMcap:             10_000,
		MaxMcap:             1_000_000,
		MaxAgeSeconds:       24 * 3600,
		MinVolume24h:        5_000,
		MinHolders:          10,
		CreatorBlacklist:    map[string]bool{},
		GraduationThreshold: 0.8,
		ConfidenceThreshold: 0.5,
		MinConfidence:       0.4,
		CooldownSeconds:     300,
		SuggestedSizeBase:   100,
	}
}

// LaunchpadSniper targets tokens still on a bonding curve before graduation.
type LaunchpadSniper struct {
	mu          sync.Mutex
	id          string
	params      LaunchpadParams
	state       domain.StrategyState
	priceHist   map[string][2]float64 // symbol -> [prev, now]
	volumeHist  map[string][2]float64
}

// NewLaunchpadSniper constructs the strategy with an instance id and params.
func NewLaunchpadSniper(id string, params LaunchpadParams) *LaunchpadSniper {
	return &LaunchpadSniper{
		id:         id,
		params:     params,
		state:      domain.StrategyState{Enabled: true},
		priceHist:  make(map[string][2]float64),
		volumeHist: make(map[string][2]float64),
	}
}

func (s *LaunchpadSniper) ID() string { return s.id }

func (s *LaunchpadSniper) RequiredSources() []domain.SourceClass {
	return []domain.SourceClass{domain.SourceClassBondingLaunchpad}
}

func (s *LaunchpadSniper) MinConfidence() float64 { return s.params.MinConfidence }

func (s *LaunchpadSniper) Cooldown() time.Duration {
	return time.Duration(s.params.CooldownSeconds) * time.Second
}

func (s *LaunchpadSniper) State() domain.StrategyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *LaunchpadSniper) SetState(st domain.StrategyState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

func (s *LaunchpadSniper) OnFill(f Fill)   {}
func (s *LaunchpadSniper) OnClose(c Close) {}

// Analyze implements spec.md §4.3.1's eligibility and scoring.
func (s *LaunchpadSniper) Analyze(ctx domain.StrategyContext) (*domain.Signal, error) {
	md := ctx.Metadata
	if md.MarketCap == nil || md.AgeSeconds == nil || md.HolderCount == nil ||
		md.BondingCurveProgress == nil {
		return nil, nil // metadata not yet available; wait for next tick
	}

	p := s.params
	if *md.MarketCap < p.MinMcap || *md.MarketCap > p.MaxMcap {
		return nil, nil
	}
	if *md.AgeSeconds > p.MaxAgeSeconds {
		return nil, nil
	}
	if ctx.View.Volume < p.MinVolume24h {
		return nil, nil
	}
	if *md.BondingCurveProgress < 0.10 || *md.BondingCurveProgress > 0.90 {
		return nil, nil
	}
	if *md.HolderCount < p.MinHolders {
		return nil, nil
	}
	if md.CreatorID != nil && p.CreatorBlacklist[*md.CreatorID] {
		return nil, nil
	}
	if rsi, ok := ctx.Indicators["rsi"]; ok && rsi > 75 {
		return nil, nil // overbought on the short window, skip the chase
	}

	s.mu.Lock()
	prevPrice, havePrice := s.priceHist[ctx.View.Symbol]
	prevVol, haveVol := s.volumeHist[ctx.View.Symbol]
	s.priceHist[ctx.View.Symbol] = [2]float64{prevPrice[1], ctx.View.ConsensusPrice}
	s.volumeHist[ctx.View.Symbol] = [2]float64{prevVol[1], ctx.View.Volume}
	s.mu.Unlock()

	if !havePrice || !haveVol || prevPrice[1] == 0 || prevVol[1] == 0 {
		return nil, nil // need at least one prior tick for momentum terms
	}

	volMomentum := clamp01((ctx.View.Volume/prevVol[1] - 1) / 0.5)
	priceMomentum := clamp01((ctx.View.ConsensusPrice/prevPrice[1] - 1) / 0.1)
	mcapPosition := triangularPeak(*md.MarketCap, p.MinMcap, p.MaxMcap)
	newnessBonus := clamp01(1 - *md.AgeSeconds/p.MaxAgeSeconds)

	strength := clamp01(
		0.30*volMomentum +
			0.25*priceMomentum +
			0.20*ctx.View.Confidence +
			0.15*mcapPosition +
			0.10*newnessBonus,
	)

	if strength < p.ConfidenceThreshold {
		return nil, nil
	}

	metadata := map[string]any{}
	graduationImminent := *md.BondingCurveProgress >= p.GraduationThreshold
	if graduationImminent {
		metadata["graduation_imminent"] = true
	}

	return &domain.Signal{
		StrategyID:    s.id,
		Symbol:        ctx.View.Symbol,
		Action:        domain.ActionBuy,
		Strength:      strength,
		SuggestedSize: p.SuggestedSizeBase,
		Rationale:     "launchpad momentum + confidence composite",
		Metadata:      metadata,
		CreatedAt:     time.Now(),
	}, nil
}

// triangularPeak scores x's position between lo and hi with a peak at
// sqrt(lo*hi), the "sweet spot" from spec.md §4.3.1's mcap position sub-score.
func triangularPeak(x, lo, hi float64) float64 {
	if x <= lo || x >= hi {
		return 0
	}
	peak := math.Sqrt(lo * hi)
	if x <= peak {
		return (x - lo) / (peak - lo)
	}
	return (hi - x) / (hi - peak)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
