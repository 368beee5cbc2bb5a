package strategy

import (
	"log"
	"sync"
	"time"

	"trading-core/internal/domain"
	"trading-core/internal/eventbus"
)

// Manager holds registered strategies, builds each a StrategyContext per
// tick, and asks every enabled one for a signal, generalizing the donor's
// internal/strategy/engine.go Engine (strategies/paused/bus loop).
type Manager struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	paused     map[string]bool
	bus        *eventbus.Bus

	// hasOpenPosition reports whether symbol already has an open position
	// from strategyID, satisfying the eligibility gate without the
	// strategy manager depending on the position package directly.
	hasOpenPosition func(strategyID, symbol string) bool
}

// NewManager creates a strategy manager publishing signals onto bus.
func NewManager(bus *eventbus.Bus, hasOpenPosition func(strategyID, symbol string) bool) *Manager {
	return &Manager{
		strategies:      make(map[string]Strategy),
		paused:          make(map[string]bool),
		bus:             bus,
		hasOpenPosition: hasOpenPosition,
	}
}

// Register adds a strategy to the manager.
func (m *Manager) Register(s Strategy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategies[s.ID()] = s
}

// Pause implements the toggle_strategy(id) control verb (spec.md §6).
func (m *Manager) Pause(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused[id] = true
}

// Resume un-pauses a strategy.
func (m *Manager) Resume(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.paused, id)
}

// ResetAll implements reset_strategies: clears pause flags and re-enables
// every strategy's internal state to Enabled=true with no cooldown.
func (m *Manager) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.strategies {
		delete(m.paused, id)
		st := s.State()
		st.Enabled = true
		st.CooldownUntil = time.Time{}
		s.SetState(st)
	}
}

// Analyze runs every enabled, eligible strategy against ctx for symbol and
// publishes any produced Signal onto the event bus. Per symbol, per
// strategy, calls are serialized by the caller holding a single tick loop
// per symbol (spec.md §5 ordering guarantees) — Manager itself does not
// fan tick processing out across goroutines.
func (m *Manager) Analyze(ctx domain.StrategyContext, symbol string, now time.Time) []domain.Signal {
	m.mu.RLock()
	strategies := make([]Strategy, 0, len(m.strategies))
	for id, s := range m.strategies {
		if m.paused[id] {
			continue
		}
		strategies = append(strategies, s)
	}
	m.mu.RUnlock()

	var signals []domain.Signal
	for _, s := range strategies {
		state := s.State()
		if !state.Enabled {
			continue
		}
		open := m.hasOpenPosition != nil && m.hasOpenPosition(s.ID(), symbol)
		if eligible, reason := EligibilityGate(ctx, state, s.MinConfidence(), now, open); !eligible {
			_ = reason
			continue
		}

		sig, err := s.Analyze(ctx)
		if err != nil {
			log.Printf("[STRAT] %s analyze error: %v", s.ID(), err)
			continue
		}
		if sig == nil {
			continue
		}

		// firing -> cooling is unconditional on emission (spec.md §4.3.3).
		state.LastSignalAt = now
		state.SignalsGenerated++
		cooldown := cooldownFor(s)
		state.CooldownUntil = now.Add(cooldown)
		s.SetState(state)

		signals = append(signals, *sig)
		if m.bus != nil {
			m.bus.Publish(eventbus.TopicSignal, *sig)
		}
	}
	return signals
}

// cooldownInterface lets a strategy report its configured cooldown without
// widening the core Strategy interface for every caller.
type cooldownInterface interface {
	Cooldown() time.Duration
}

func cooldownFor(s Strategy) time.Duration {
	if c, ok := s.(cooldownInterface); ok {
		return c.Cooldown()
	}
	return 5 * time.Minute
}

// RecordFill and RecordClose fan out lifecycle callbacks to the owning strategy.
func (m *Manager) RecordFill(f Fill) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.strategies {
		s.OnFill(f)
	}
}

func (m *Manager) RecordClose(c Close) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.strategies {
		s.OnClose(c)
	}
}

// RecordLoss increments losses_in_row for a strategy, used by the risk
// manager's consecutive-loss check (spec.md §4.4 step 4).
func (m *Manager) RecordLoss(strategyID string) {
	m.mu.RLock()
	s, ok := m.strategies[strategyID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	st := s.State()
	st.Losses++
	st.LossesInRow++
	s.SetState(st)
}

// LossesInRow reports a strategy's current losing streak, satisfying
// risk.LossCounter for the consecutive-loss check (spec.md §4.4 step 4).
func (m *Manager) LossesInRow(strategyID string) int {
	m.mu.RLock()
	s, ok := m.strategies[strategyID]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	return s.State().LossesInRow
}

// RecordWin resets losses_in_row on a winning close.
func (m *Manager) RecordWin(strategyID string) {
	m.mu.RLock()
	s, ok := m.strategies[strategyID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	st := s.State()
	st.Wins++
	st.LossesInRow = 0
	s.SetState(st)
}

// CoolOff forces a strategy into cooldown until the given time, used by the risk manager's
// StrategyCoolingOff rejection (spec.md §4.4 step 4).
func (m *Manager) CoolOff(strategyID string, until time.Time) {
	m.mu.RLock()
	s, ok := m.strategies[strategyID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	st := s.State()
	st.CooldownUntil = until
	s.SetState(st)
}

// States returns a snapshot of every strategy's current state, for
// persistence (strategy_states table) and the dashboard stats surface.
func (m *Manager) States() map[string]domain.StrategyState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]domain.StrategyState, len(m.strategies))
	for id, s := range m.strategies {
		out[id] = s.State()
	}
	return out
}
