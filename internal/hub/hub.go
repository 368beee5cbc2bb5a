// Package hub implements the KV coordination store from spec.md §4.7,
// backed by Redis/DragonflyDB exactly as original_source/ uses a redis
// client against DRAGONFLY_URL. Key shapes are pinned in SPEC_FULL.md §4.7A.
// Connection handling and TxPipeline usage are grounded on the reference
// pack's internal/cache/redis/{client.go,orderbook_cache.go}.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trading-core/internal/domain"
)

const (
	keyBotStatus        = "bot:status"
	keyDashboardStats   = "dashboard:stats"
	keyRealtimeMetrics  = "realtime:metrics"
	keyEventsLog        = "events:log"
	keyAllRawOpps       = "all_raw_opportunities"
	opportunityKeyFmt   = "opportunity:%s"
	positionsOpenKey    = "positions:open"
	positionKeyFmt      = "position:%s"

	eventsLogCap = 500
)

// BotStatus mirrors original_source/'s bot:status value shape.
type BotStatus struct {
	State        string    `json:"state"` // running|halted|stopped
	Mode         string    `json:"mode"`  // live|dry_run|paper
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	ConfigHash   string    `json:"config_hash"`
	Version      string    `json:"version"`
	Health       struct {
		Status string `json:"status"`
	} `json:"health"`
}

// DashboardStats mirrors original_source/'s dashboard:stats value shape.
type DashboardStats struct {
	TotalOpportunities  int       `json:"total_opportunities"`
	ActiveOpportunities int       `json:"active_opportunities"`
	TotalTrades         int       `json:"total_trades"`
	ActivePositions     int       `json:"active_positions"`
	TotalPnLUSD         float64   `json:"total_pnl_usd"`
	SuccessRate         float64   `json:"success_rate"`
	UptimeSeconds       float64   `json:"uptime_seconds"`
	LastUpdated         time.Time `json:"last_updated"`
	BotStatus           string    `json:"bot_status"`
	ProcessingSpeed     float64   `json:"processing_speed"`
}

// RealtimeMetrics mirrors original_source/'s realtime:metrics value shape.
type RealtimeMetrics struct {
	CycleNumber            int64     `json:"cycle_number"`
	CycleDurationMs        float64   `json:"cycle_duration_ms"`
	OpportunitiesProcessed int       `json:"opportunities_processed"`
	DecisionsMade          int       `json:"decisions_made"`
	Timestamp              time.Time `json:"timestamp"`
	MemoryUsageMB          float64   `json:"memory_usage_mb"`
	CPUUsagePercent        float64   `json:"cpu_usage_percent"`
	DBConnected            bool      `json:"db_connected"`
}

// Hub is the Redis-backed coordination store.
type Hub struct {
	rdb *redis.Client
}

// New dials url (a redis:// or rediss:// URL) and verifies connectivity.
func New(ctx context.Context, url string) (*Hub, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("hub: parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("hub: ping: %w", err)
	}
	return &Hub{rdb: rdb}, nil
}

func (h *Hub) Close() error { return h.rdb.Close() }

// SetBotStatus writes bot:status as a JSON blob.
func (h *Hub) SetBotStatus(ctx context.Context, s BotStatus) error {
	return h.setJSON(ctx, keyBotStatus, s)
}

// SetDashboardStats writes dashboard:stats.
func (h *Hub) SetDashboardStats(ctx context.Context, s DashboardStats) error {
	return h.setJSON(ctx, keyDashboardStats, s)
}

// SetRealtimeMetrics writes realtime:metrics.
func (h *Hub) SetRealtimeMetrics(ctx context.Context, m RealtimeMetrics) error {
	return h.setJSON(ctx, keyRealtimeMetrics, m)
}

// PushEvent appends a lifecycle event to events:log, capping it to the
// newest eventsLogCap entries via LPUSH+LTRIM, mirroring original_source/'s
// dashboard:activity_feed list pattern.
func (h *Hub) PushEvent(ctx context.Context, ev domain.LifecycleEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("hub: marshal event: %w", err)
	}
	pipe := h.rdb.TxPipeline()
	pipe.LPush(ctx, keyEventsLog, data)
	pipe.LTrim(ctx, keyEventsLog, 0, eventsLogCap-1)
	_, err = pipe.Exec(ctx)
	return err
}

// UpsertOpportunity idempotently inserts or refreshes an opportunity record,
// keyed by candidate address, satisfying spec.md §8's "idempotent opportunity
// insert" property: inserting the same address twice leaves exactly one
// record, the later insert refreshing last_event_at.
func (h *Hub) UpsertOpportunity(ctx context.Context, rec domain.OpportunityRecord) error {
	key := fmt.Sprintf(opportunityKeyFmt, rec.Candidate.Address)
	rec.LastEventAt = time.Now()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("hub: marshal opportunity: %w", err)
	}

	created, err := h.rdb.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return fmt.Errorf("hub: insert opportunity: %w", err)
	}
	if created {
		return h.rdb.RPush(ctx, keyAllRawOpps, rec.Candidate.Address).Err()
	}
	return h.rdb.Set(ctx, key, data, 0).Err()
}

// GetOpportunity resolves one opportunity by address.
func (h *Hub) GetOpportunity(ctx context.Context, address string) (domain.OpportunityRecord, error) {
	var rec domain.OpportunityRecord
	data, err := h.rdb.Get(ctx, fmt.Sprintf(opportunityKeyFmt, address)).Bytes()
	if err != nil {
		return rec, err
	}
	err = json.Unmarshal(data, &rec)
	return rec, err
}

// ListOpportunities resolves all_raw_opportunities through a pipeline of
// opportunity:<address> GETs, mirroring original_source/'s list-of-keys +
// pipeline-GET pattern.
func (h *Hub) ListOpportunities(ctx context.Context) ([]domain.OpportunityRecord, error) {
	addresses, err := h.rdb.LRange(ctx, keyAllRawOpps, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("hub: list opportunity addresses: %w", err)
	}
	if len(addresses) == 0 {
		return nil, nil
	}

	pipe := h.rdb.Pipeline()
	cmds := make([]*redis.StringCmd, len(addresses))
	for i, addr := range addresses {
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(opportunityKeyFmt, addr))
	}
	_, _ = pipe.Exec(ctx) // individual GET errors (e.g. expired keys) are checked per-cmd below

	out := make([]domain.OpportunityRecord, 0, len(addresses))
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			continue // expired/missing entries are skipped, not fatal
		}
		var rec domain.OpportunityRecord
		if err := json.Unmarshal(data, &rec); err == nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

// SetPosition persists one open position and tracks its id in positions:open.
func (h *Hub) SetPosition(ctx context.Context, p domain.Position) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("hub: marshal position: %w", err)
	}
	pipe := h.rdb.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(positionKeyFmt, p.ID), data, 0)
	if p.Status == domain.PositionClosed {
		pipe.SRem(ctx, positionsOpenKey, p.ID)
	} else {
		pipe.SAdd(ctx, positionsOpenKey, p.ID)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// ListOpenPositions resolves positions:open through a pipeline of
// position:<id> GETs.
func (h *Hub) ListOpenPositions(ctx context.Context) ([]domain.Position, error) {
	ids, err := h.rdb.SMembers(ctx, positionsOpenKey).Result()
	if err != nil {
		return nil, fmt.Errorf("hub: list open position ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	pipe := h.rdb.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(positionKeyFmt, id))
	}
	_, _ = pipe.Exec(ctx)

	out := make([]domain.Position, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			continue
		}
		var p domain.Position
		if err := json.Unmarshal(data, &p); err == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (h *Hub) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("hub: marshal %s: %w", key, err)
	}
	return h.rdb.Set(ctx, key, data, 0).Err()
}
