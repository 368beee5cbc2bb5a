// Package store is the local durable ledger complementing the Hub: orders,
// decisions, and strategy state survive a restart even if the Hub is
// unreachable. Grounded on pkg/db's Database wrapper and schema-migration
// pattern (modernc.org/sqlite, single-writer SQLite with PRAGMA WAL).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"trading-core/internal/persistence"
)

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    strategy_id TEXT NOT NULL,
    symbol TEXT NOT NULL,
    verdict TEXT NOT NULL,
    sized_quantity REAL,
    stop_price REAL,
    take_price REAL,
    reject_reason TEXT,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
    decision_id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    side TEXT NOT NULL,
    state TEXT NOT NULL,
    tx_signature TEXT,
    failure_reason TEXT,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS strategy_states (
    strategy_id TEXT PRIMARY KEY,
    enabled INTEGER NOT NULL,
    signals_generated INTEGER NOT NULL DEFAULT 0,
    wins INTEGER NOT NULL DEFAULT 0,
    losses INTEGER NOT NULL DEFAULT 0,
    losses_in_row INTEGER NOT NULL DEFAULT 0,
    realized_pnl REAL NOT NULL DEFAULT 0,
    cooldown_until DATETIME,
    updated_at DATETIME NOT NULL
);
`

// Store wraps the SQLite handle used for the local ledger.
type Store struct {
	DB    *sql.DB
	batch *persistence.BatchWriter
}

// EnableBatching routes decision writes (the highest-frequency write path —
// one per strategy firing, vs. one order write per accepted decision)
// through a batched writer instead of one transaction per insert.
func (s *Store) EnableBatching(maxSize int, interval time.Duration) {
	s.batch = persistence.NewBatchWriter(s.DB, maxSize, interval)
}

// Open creates (if needed) and migrates the SQLite database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	if s.batch != nil {
		_ = s.batch.Close()
	}
	return s.DB.Close()
}

// DecisionRecord is the persisted shape of a risk decision.
type DecisionRecord struct {
	ID            string
	StrategyID    string
	Symbol        string
	Verdict       string
	SizedQuantity float64
	StopPrice     float64
	TakePrice     float64
	RejectReason  string
	CreatedAt     time.Time
}

const upsertDecisionQuery = `
	INSERT INTO decisions (id, strategy_id, symbol, verdict, sized_quantity, stop_price, take_price, reject_reason, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET verdict=excluded.verdict, reject_reason=excluded.reject_reason
`

// SaveDecision upserts a decision row. If EnableBatching was called, the
// write is buffered and flushed on the batch writer's schedule instead of
// committing immediately, since decisions are produced once per strategy
// firing and don't need per-row durability the way orders do.
func (s *Store) SaveDecision(ctx context.Context, d DecisionRecord) error {
	args := []any{d.ID, d.StrategyID, d.Symbol, d.Verdict, d.SizedQuantity, d.StopPrice, d.TakePrice, d.RejectReason, d.CreatedAt}
	if s.batch != nil {
		s.batch.WriteQuery(upsertDecisionQuery, args...)
		return nil
	}
	_, err := s.DB.ExecContext(ctx, upsertDecisionQuery, args...)
	return err
}

// OrderRecord is the persisted shape of an execution order.
type OrderRecord struct {
	DecisionID    string
	Symbol        string
	Side          string
	State         string
	TxSignature   string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SaveOrder upserts an order row, keyed by decision id (the same id the
// execution WAL tracks), letting reconciliation on restart cross-reference
// in-flight WAL entries against their last known persisted state.
func (s *Store) SaveOrder(ctx context.Context, o OrderRecord) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO orders (decision_id, symbol, side, state, tx_signature, failure_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(decision_id) DO UPDATE SET
			state=excluded.state, tx_signature=excluded.tx_signature,
			failure_reason=excluded.failure_reason, updated_at=excluded.updated_at
	`, o.DecisionID, o.Symbol, o.Side, o.State, o.TxSignature, o.FailureReason, o.CreatedAt, o.UpdatedAt)
	return err
}

// SubmittedOrders returns orders still in a non-terminal state, for restart
// reconciliation against chain RPC (spec.md §9A "reconciliation on restart").
func (s *Store) SubmittedOrders(ctx context.Context) ([]OrderRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT decision_id, symbol, side, state, tx_signature, failure_reason, created_at, updated_at
		FROM orders WHERE state IN ('submitting', 'submitted')
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderRecord
	for rows.Next() {
		var o OrderRecord
		var txSig, failReason sql.NullString
		if err := rows.Scan(&o.DecisionID, &o.Symbol, &o.Side, &o.State, &txSig, &failReason, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.TxSignature = txSig.String
		o.FailureReason = failReason.String
		out = append(out, o)
	}
	return out, rows.Err()
}

// StrategyStateRecord is the persisted shape of one strategy's mutable state.
type StrategyStateRecord struct {
	StrategyID       string
	Enabled          bool
	SignalsGenerated int
	Wins             int
	Losses           int
	LossesInRow      int
	RealizedPnL      float64
	CooldownUntil    *time.Time
	UpdatedAt        time.Time
}

// SaveStrategyState upserts a strategy_states row.
func (s *Store) SaveStrategyState(ctx context.Context, r StrategyStateRecord) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO strategy_states (strategy_id, enabled, signals_generated, wins, losses, losses_in_row, realized_pnl, cooldown_until, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(strategy_id) DO UPDATE SET
			enabled=excluded.enabled, signals_generated=excluded.signals_generated,
			wins=excluded.wins, losses=excluded.losses, losses_in_row=excluded.losses_in_row,
			realized_pnl=excluded.realized_pnl, cooldown_until=excluded.cooldown_until,
			updated_at=excluded.updated_at
	`, r.StrategyID, r.Enabled, r.SignalsGenerated, r.Wins, r.Losses, r.LossesInRow, r.RealizedPnL, r.CooldownUntil, r.UpdatedAt)
	return err
}

// LoadStrategyStates returns every persisted strategy state, for startup restore.
func (s *Store) LoadStrategyStates(ctx context.Context) ([]StrategyStateRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT strategy_id, enabled, signals_generated, wins, losses, losses_in_row, realized_pnl, cooldown_until, updated_at
		FROM strategy_states
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StrategyStateRecord
	for rows.Next() {
		var r StrategyStateRecord
		var cooldown sql.NullTime
		if err := rows.Scan(&r.StrategyID, &r.Enabled, &r.SignalsGenerated, &r.Wins, &r.Losses, &r.LossesInRow, &r.RealizedPnL, &cooldown, &r.UpdatedAt); err != nil {
			return nil, err
		}
		if cooldown.Valid {
			t := cooldown.Time
			r.CooldownUntil = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
