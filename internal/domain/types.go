// Package domain holds the data model shared across every engine subsystem:
// Quote, AggregatedView, TokenMetadata, Portfolio, Position, Signal, Decision,
// OpportunityRecord and StrategyState, as specified in spec.md §3.
package domain

import "time"

// SourceClass ranks a venue's trustworthiness for fusion weighting (§4.2).
type SourceClass string

const (
	SourceClassCEXReference      SourceClass = "cex_reference"
	SourceClassEstablishedAMM    SourceClass = "established_amm"
	SourceClassDEXAggregator     SourceClass = "dex_aggregator"
	SourceClassEnhancedRPC       SourceClass = "enhanced_rpc"
	SourceClassBondingLaunchpad  SourceClass = "bonding_curve_launchpad"
)

// DefaultSourceWeight returns the spec.md §4.2 default priority weight for a
// source class. Configurable overrides live in config.VenueConfig.Weight.
func DefaultSourceWeight(c SourceClass) float64 {
	switch c {
	case SourceClassCEXReference:
		return 1.0
	case SourceClassEstablishedAMM:
		return 0.9
	case SourceClassDEXAggregator:
		return 0.85
	case SourceClassEnhancedRPC:
		return 0.8
	case SourceClassBondingLaunchpad:
		return 0.6
	default:
		return 0.5
	}
}

// Quote is one source's observation of one symbol. Immutable once produced;
// discarded by the aggregator once older than the freshness window.
type Quote struct {
	Symbol     string
	Price      float64
	Volume24h  float64
	Bid        *float64
	Ask        *float64
	Liquidity  *float64
	Timestamp  time.Time
	SourceID   string
	SourceCls  SourceClass
	Weight     float64
	LatencyMs  int64
}

// Age returns how stale the quote is relative to now.
func (q Quote) Age(now time.Time) time.Duration { return now.Sub(q.Timestamp) }

// AggregatedView is the fused per-symbol state produced by the aggregator.
type AggregatedView struct {
	Symbol         string
	ConsensusPrice float64
	Volume         float64
	LiquidityDepth float64
	SourceCount    int
	Confidence     float64 // ∈ [0,1]
	PrimarySourceID string
	UpdatedAt      time.Time
}

// TokenMetadataFlags carries boolean facts about a token's lifecycle.
type TokenMetadataFlags struct {
	IsNewPool bool
	Graduated bool
}

// TokenMetadata is best-effort metadata populated from venue clients.
type TokenMetadata struct {
	Address               string
	Symbol                string
	MarketCap             *float64
	AgeSeconds            *float64
	HolderCount           *int
	CreatorID             *string
	BondingCurveProgress  *float64 // ∈ [0,1]
	Flags                 TokenMetadataFlags
}

// Side is a position or order direction.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
	SideBuy   Side = "buy"
	SideSell  Side = "sell"
)

// PositionStatus is the Position lifecycle state.
type PositionStatus string

const (
	PositionOpen    PositionStatus = "open"
	PositionClosing PositionStatus = "closing"
	PositionClosed  PositionStatus = "closed"
)

// Position is an open or recently-closed trading position.
type Position struct {
	ID           string
	Symbol       string
	Side         Side
	Size         float64
	EntryPrice   float64
	CurrentPrice float64
	OpenedAt     time.Time
	StopPrice    *float64
	TakePrice    *float64
	RiskScore    float64 // ∈ [0,1]
	StrategyID   string
	Status       PositionStatus
	TrailingStop bool
	TrailingPct  float64
	HighWaterMark float64
	ClosedAt     *time.Time
	CloseReason  string
	RealizedPnL  float64
}

// Notional returns the position's current notional value.
func (p Position) Notional() float64 { return p.Size * p.CurrentPrice }

// UnrealizedPnL returns the position's mark-to-market PnL.
func (p Position) UnrealizedPnL() float64 {
	switch p.Side {
	case SideShort:
		return (p.EntryPrice - p.CurrentPrice) * p.Size
	default:
		return (p.CurrentPrice - p.EntryPrice) * p.Size
	}
}

// Portfolio is the single owner of positions and cash/PnL accounting.
// Mutated only by the Risk Manager and Position Manager; every other
// component holds a read-only snapshot (spec.md §5, §9).
type Portfolio struct {
	CashBalance     float64
	AvailableCash   float64
	Positions       map[string]Position // keyed by position id
	RealizedPnL     float64
	UnrealizedPnL   float64
	DailyPnL        float64
	PeakEquity      float64
	CurrentDrawdown float64
	Halted          bool
}

// Equity is cash plus the mark-to-market value of all open positions.
func (p Portfolio) Equity() float64 {
	eq := p.CashBalance
	for _, pos := range p.Positions {
		if pos.Status != PositionClosed {
			eq += pos.Notional()
		}
	}
	return eq
}

// OpenNotional sums notional of all open (non-closed) positions.
func (p Portfolio) OpenNotional() float64 {
	var sum float64
	for _, pos := range p.Positions {
		if pos.Status != PositionClosed {
			sum += pos.Notional()
		}
	}
	return sum
}

// OpenNotionalFor sums open notional for a single symbol.
func (p Portfolio) OpenNotionalFor(symbol string) float64 {
	var sum float64
	for _, pos := range p.Positions {
		if pos.Symbol == symbol && pos.Status != PositionClosed {
			sum += pos.Notional()
		}
	}
	return sum
}

// OpenPositionCount counts non-closed positions.
func (p Portfolio) OpenPositionCount() int {
	n := 0
	for _, pos := range p.Positions {
		if pos.Status != PositionClosed {
			n++
		}
	}
	return n
}

// Snapshot returns a deep-enough copy safe for concurrent readers
// (copy-on-read per spec.md §5).
func (p Portfolio) Snapshot() Portfolio {
	cp := p
	cp.Positions = make(map[string]Position, len(p.Positions))
	for k, v := range p.Positions {
		cp.Positions[k] = v
	}
	return cp
}

// Action is a signal's proposed direction.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Signal is an ephemeral strategy output, consumed once by risk.
type Signal struct {
	StrategyID    string
	Symbol        string
	Action        Action
	Strength      float64 // ∈ [0,1]
	SuggestedSize float64
	Rationale     string
	Metadata      map[string]any
	CreatedAt     time.Time
}

// Verdict is the risk manager's accept/reject outcome for a Signal.
type Verdict string

const (
	VerdictAccept Verdict = "accept"
	VerdictReject Verdict = "reject"
)

// Decision is the risk manager's output for a Signal.
type Decision struct {
	ID            string // stable decision id; used for idempotent submission
	SignalRef     Signal
	Verdict       Verdict
	SizedQuantity float64
	StopPrice     float64
	TakePrice     float64
	RejectReason  string
	CreatedAt     time.Time
}

// OpportunityStatus tracks the lifecycle of a Hub-persisted candidate.
type OpportunityStatus string

const (
	OpportunityRaw      OpportunityStatus = "raw"
	OpportunityEnriched OpportunityStatus = "enriched"
	OpportunityDecided  OpportunityStatus = "decided"
	OpportunityTraded   OpportunityStatus = "traded"
	OpportunityClosed   OpportunityStatus = "closed"
	OpportunityExpired  OpportunityStatus = "expired"
)

// OpportunityCandidate is the discovered-token payload of an OpportunityRecord.
type OpportunityCandidate struct {
	Address      string  `json:"address"`
	LiquidityUSD float64 `json:"liquidity_usd"`
	Symbol       string  `json:"symbol,omitempty"`
	SourceID     string  `json:"source_id,omitempty"`
}

// OpportunityRecord is the Hub-persisted candidate record, idempotently
// inserted keyed by address (spec.md §3, §8 "idempotent opportunity insert").
type OpportunityRecord struct {
	Candidate    OpportunityCandidate `json:"candidate"`
	DiscoveredAt time.Time            `json:"discovered_at"`
	Status       OpportunityStatus    `json:"status"`
	LastEventAt  time.Time            `json:"last_event_at"`
}

// StrategyState is the per-strategy mutable state, persisted across restarts.
type StrategyState struct {
	Enabled          bool
	LastSignalAt     time.Time
	SignalsGenerated int
	Wins             int
	Losses           int
	LossesInRow      int
	RealizedPnL      float64
	CooldownUntil    time.Time
}

// EventType enumerates lifecycle events produced by the core (spec.md §6).
type EventType string

const (
	EventSignalGenerated EventType = "SignalGenerated"
	EventDecisionMade    EventType = "DecisionMade"
	EventOrderSubmitted  EventType = "OrderSubmitted"
	EventFill            EventType = "Fill"
	EventPositionOpened  EventType = "PositionOpened"
	EventPositionUpdated EventType = "PositionUpdated"
	EventPositionClosed  EventType = "PositionClosed"
	EventEngineHalted    EventType = "EngineHalted"
	EventEngineResumed   EventType = "EngineResumed"
)

// Severity classifies an event for downstream filtering/alerting.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// EngineStateEvent marks a start/stop control-verb transition on the
// lifecycle topic.
type EngineStateEvent struct {
	Type EventType
}

// LifecycleEvent is the wire shape the core emits for the host to consume.
type LifecycleEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Component string    `json:"component"`
	Severity  Severity  `json:"severity"`
	Payload   any       `json:"payload"`
}

// SentimentSummary is the opaque enrichment payload from the external
// sentiment process (spec.md §9 EnrichmentProvider).
type SentimentSummary struct {
	Score      float64 `json:"score"` // ∈ [-1,1]
	Confidence float64 `json:"confidence"`
	Summary    string  `json:"summary,omitempty"`
}

// MarketConditions summarizes short-window market context for strategies.
type MarketConditions struct {
	VolatilityWindow float64
	VolumeTrend      float64
	LiquidityDepth   float64
}

// StrategyContext is the read-only bundle passed to Strategy.Analyze.
type StrategyContext struct {
	View             AggregatedView
	Metadata         TokenMetadata
	PortfolioSnap    Portfolio
	MarketConditions MarketConditions
	Enrichment       *SentimentSummary
	// Indicators holds technical indicator values (e.g. "sma_short",
	// "sma_long", "rsi") computed from the consensus price series. Optional —
	// strategies that don't need them leave it unread.
	Indicators map[string]float64
}
