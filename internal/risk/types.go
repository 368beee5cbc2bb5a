// Package risk implements the sequential signal-evaluation pipeline from
// spec.md §4.4, generalizing the donor's DB-backed RiskConfig/Manager split
// in internal/risk/manager.go to the Solana opportunity domain.
package risk

import "time"

// reservation tracks cash set aside for an accepted Decision until execution
// confirms (fill) or releases (failure), keyed by decision id for idempotency
// per spec.md §4.4's "Portfolio mutation ordering" note.
type reservation struct {
	decisionID string
	amount     float64
	symbol     string
	createdAt  time.Time
}
