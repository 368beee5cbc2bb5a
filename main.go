package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"trading-core/internal/aggregator"
	"trading-core/internal/api"
	"trading-core/internal/config"
	"trading-core/internal/domain"
	"trading-core/internal/enrichment"
	"trading-core/internal/eventbus"
	"trading-core/internal/execution"
	"trading-core/internal/hub"
	"trading-core/internal/indicators"
	"trading-core/internal/monitor"
	"trading-core/internal/position"
	"trading-core/internal/reporter"
	"trading-core/internal/risk"
	"trading-core/internal/signing"
	"trading-core/internal/store"
	"trading-core/internal/strategy"
	"trading-core/internal/venue"
)

// quoteToken is the settlement token every buy/sell swap is denominated
// against. The engine trades single-symbol positions versus one stable
// quote asset; a multi-quote-asset book is out of scope.
const quoteToken = "USDC"

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	log.Printf("config loaded: dry_run=%v watchlist=%v", cfg.Bot.DryRun, cfg.Bot.Watchlist)

	var wallet *signing.Wallet
	if !cfg.Bot.DryRun {
		wallet, err = signing.LoadFromBase58(cfg.WalletPrivKeyB58)
		if err != nil {
			log.Fatalf("wallet load failed: %v", err)
		}
		log.Printf("signing wallet loaded: address=%s", wallet.Address())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := eventbus.New()
	metrics := monitor.NewSystemMetrics()

	startingCash := cfg.Bot.StartingCashUSD
	if startingCash <= 0 {
		startingCash = 10_000
	}
	portfolio := &domain.Portfolio{
		CashBalance:   startingCash,
		AvailableCash: startingCash,
		PeakEquity:    startingCash,
	}

	dbPath := cfg.Bot.DBPath
	if dbPath == "" {
		dbPath = "data/trading-core.db"
	}
	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("local ledger open failed: %v", err)
	}
	defer db.Close()
	db.EnableBatching(50, 500*time.Millisecond)

	if states, err := db.LoadStrategyStates(ctx); err != nil {
		log.Printf("strategy state restore failed: %v", err)
	} else {
		log.Printf("restored %d strategy states from local ledger", len(states))
	}

	walDir := cfg.Bot.WALDir
	if walDir == "" {
		walDir = "data/wal"
	}
	wal, err := execution.OpenWAL(walDir)
	if err != nil {
		log.Fatalf("execution WAL open failed: %v", err)
	}
	defer wal.Close()

	if recovered, err := wal.Recover(); err != nil {
		log.Printf("WAL recovery scan failed: %v", err)
	} else if len(recovered) > 0 {
		log.Printf("WAL recovered %d in-flight orders; reconciling against chain state", len(recovered))
	}

	txTimeout := time.Duration(cfg.Aggregator.TimeoutSeconds) * time.Second
	if txTimeout <= 0 {
		txTimeout = 10 * time.Second
	}
	confirmer := execution.NewRPCConfirmer(cfg.Solana.RPCURL, txTimeout)
	if err := execution.Reconcile(ctx, db, confirmer, cfg.Solana.Commitment, 2*time.Minute); err != nil {
		log.Printf("restart reconciliation failed: %v", err)
	}

	// Venue clients, one per configured exchange (spec.md §2 item 1).
	clients := make(map[string]venue.Client)
	for id, vc := range cfg.Exchanges {
		if !vc.Enabled {
			continue
		}
		c, err := buildVenueClient(id, vc, time.Duration(cfg.Solana.TimeoutSeconds)*time.Second)
		if err != nil {
			log.Printf("venue %s: %v (skipped)", id, err)
			continue
		}
		clients[id] = c
	}
	if len(clients) == 0 {
		log.Fatalf("no venue clients configured/enabled")
	}

	agg := aggregator.New()
	indEngine := indicators.NewEngine(7, 25, 14, 200)
	enricher := enrichment.New(cfg.AI.Endpoint, cfg.AI.Model, 5*time.Second)

	var metaMu sync.Mutex
	metaCache := make(map[string]domain.TokenMetadata)

	// Subscribe every websocket-capable venue and multiplex its push events
	// into the aggregator and the best-effort metadata cache.
	for id, c := range clients {
		vc := cfg.Exchanges[id]
		if vc.WebsocketURL == "" {
			continue
		}
		stream, err := c.Subscribe(ctx, cfg.Websocket.Subscriptions)
		if err != nil {
			log.Printf("venue %s: subscribe failed: %v", id, err)
			continue
		}
		go func(id string, stream <-chan venue.VenueEvent) {
			for evt := range stream {
				agg.OnEvent(evt)
				if evt.Metadata != nil {
					metaMu.Lock()
					metaCache[evt.Metadata.Symbol] = *evt.Metadata
					metaMu.Unlock()
				}
			}
		}(id, stream)
	}

	positions := position.NewManager(portfolio, bus)
	strategies := strategy.NewManager(bus, positions.HasOpenPosition)

	registerStrategies(strategies, cfg)

	riskMgr := risk.NewManager(cfg.RiskManagement, cfg.Strategies, strategies, strategies)

	quoter := execution.NewAggregatorQuoter(cfg.Aggregator.QuoteURL, cfg.Aggregator.RateLimitPerSec, time.Duration(cfg.Aggregator.TimeoutSeconds)*time.Second)
	swapper := execution.NewAggregatorSwapper(cfg.Aggregator.SwapURL, time.Duration(cfg.Aggregator.TimeoutSeconds)*time.Second)
	var relay execution.BundleRelay
	if cfg.MEVProtection.Enabled {
		relay = execution.NewHTTPBundleRelay(cfg.MEVProtection.RelayURL, time.Duration(cfg.MEVProtection.BundleTimeoutSeconds)*time.Second)
	}
	coordinator := execution.NewCoordinator(quoter, swapper, relay, confirmer, wal, bus, riskMgr, cfg.MEVProtection, cfg.Solana, cfg.Aggregator)

	var kvHub *hub.Hub
	if cfg.KVStoreURL != "" {
		kvHub, err = hub.New(ctx, cfg.KVStoreURL)
		if err != nil {
			log.Printf("hub connect failed: %v (coordination features degraded)", err)
		} else {
			defer kvHub.Close()
		}
	}

	rep := reporter.New(bus, reportSink(kvHub))
	startContained(ctx, "reporter", func(ctx context.Context) { rep.Run(ctx) })

	mon := &monitor.Monitor{Bus: bus, AlertFn: func(msg string) { log.Println("[ALERT]", msg) }}
	mon.Start(ctx)

	tracker := newExecutionTracker()
	startContained(ctx, "fill-consumer", func(ctx context.Context) { runFillConsumer(ctx, bus, positions, strategies, db, tracker) })
	startContained(ctx, "close-consumer", func(ctx context.Context) {
		runCloseConsumer(ctx, bus, positions, coordinator, portfolio, cfg.Solana, tracker)
	})

	if kvHub != nil {
		startContained(ctx, "hub-heartbeat", func(ctx context.Context) { runHubHeartbeat(ctx, kvHub, metrics, portfolio, cfg) })
	}

	server := api.NewServer(bus, strategies, positions, metrics, cfg.HostAPIJWTSecret, api.SystemMeta{
		DryRun:  cfg.Bot.DryRun,
		Version: "1.0.0",
	})
	go func() {
		if err := server.Start(cfg.HostAPIAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("host API server error: %v", err)
		}
	}()

	startContained(ctx, "tick-loop", func(ctx context.Context) {
		runTickLoop(ctx, cfg, clients, agg, indEngine, enricher, strategies, riskMgr, coordinator, positions, portfolio, db, metrics, &metaMu, metaCache, tracker)
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutdown signal received, draining...")

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer drainCancel()
	cancel()
	<-drainCtx.Done()
	log.Println("shutdown complete")
}

// buildVenueClient resolves a venue.Client constructor from a configured
// source_class string (spec.md §2's venue list).
func buildVenueClient(id string, vc config.VenueConfig, httpTimeout time.Duration) (venue.Client, error) {
	base := venue.Config{
		ID:                 id,
		SourceClass:        domain.SourceClass(vc.SourceClass),
		Weight:             vc.Weight,
		APIURL:             vc.APIURL,
		WebsocketURL:       vc.WebsocketURL,
		RateLimitPerSecond: vc.RateLimitPerSecond,
		HTTPTimeout:        httpTimeout,
	}
	switch vc.SourceClass {
	case "established_amm":
		if vc.WebsocketURL != "" {
			return venue.NewAMMWSClient(base), nil
		}
		return venue.NewAMMClient(base), nil
	case "dex_aggregator":
		return venue.NewDEXAggregatorClient(base), nil
	case "cex_reference":
		return venue.NewCEXReferenceClient(base), nil
	case "bonding_curve_launchpad":
		if vc.WebsocketURL != "" {
			return venue.NewLaunchpadWSClient(base), nil
		}
		return venue.NewLaunchpadClient(base), nil
	case "enhanced_rpc":
		return venue.NewEnhancedRPCClient(base), nil
	default:
		return nil, fmt.Errorf("unknown source_class %q", vc.SourceClass)
	}
}

// registerStrategies builds the two reference strategies from spec.md §4.3,
// applying per-strategy config overrides where a matching yaml key exists.
func registerStrategies(mgr *strategy.Manager, cfg *config.Config) {
	lp := strategy.DefaultLaunchpadParams()
	if sc, ok := cfg.Strategies["launchpad"]; ok {
		applyCommonOverrides(&lp.ConfidenceThreshold, &lp.CooldownSeconds, &lp.SuggestedSizeBase, sc)
	}
	mgr.Register(strategy.NewLaunchpadSniper("launchpad", lp))

	ps := strategy.DefaultPoolSniperParams()
	if sc, ok := cfg.Strategies["poolsniper"]; ok {
		applyCommonOverrides(&ps.ConfidenceThreshold, &ps.CooldownSeconds, &ps.SuggestedSizeBase, sc)
	}
	mgr.Register(strategy.NewPoolSniper("poolsniper", ps))
}

func applyCommonOverrides(confidence *float64, cooldown *int, sizeBase *float64, sc config.StrategyConfig) {
	if sc.ConfidenceThreshold > 0 {
		*confidence = sc.ConfidenceThreshold
	}
	if sc.CooldownSeconds > 0 {
		*cooldown = sc.CooldownSeconds
	}
	if sc.MaxPositionSize > 0 {
		*sizeBase = sc.MaxPositionSize
	}
}

// startContained runs fn in its own goroutine, restarting it on panic with a
// 1s delay capped at 3 restarts/minute, per spec.md §7's ComponentCrashed
// policy.
func startContained(ctx context.Context, name string, fn func(context.Context)) {
	go func() {
		var restarts []time.Time
		for {
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Printf("[CRASH] component %s panicked: %v", name, r)
					}
				}()
				fn(ctx)
			}()

			select {
			case <-ctx.Done():
				return
			default:
			}

			now := time.Now()
			restarts = append(restarts, now)
			cutoff := now.Add(-time.Minute)
			var recent []time.Time
			for _, t := range restarts {
				if t.After(cutoff) {
					recent = append(recent, t)
				}
			}
			restarts = recent
			if len(restarts) > 3 {
				log.Printf("[CRASH] component %s exceeded 3 restarts/minute, giving up", name)
				return
			}
			time.Sleep(time.Second)
		}
	}()
}

// pendingOrder tracks the in-flight context for a submitted order so the
// fill/failure consumers can finish the lifecycle without re-deriving it.
type pendingOrder struct {
	symbol     string
	strategyID string
	action     domain.Action
	isClose    bool
	positionID string
}

// executionTracker correlates decision ids in flight with the domain
// context needed once their fill or failure arrives.
type executionTracker struct {
	mu      sync.Mutex
	pending map[string]pendingOrder
}

func newExecutionTracker() *executionTracker {
	return &executionTracker{pending: make(map[string]pendingOrder)}
}

func (t *executionTracker) put(decisionID string, p pendingOrder) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[decisionID] = p
}

func (t *executionTracker) take(decisionID string) (pendingOrder, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pending[decisionID]
	if ok {
		delete(t.pending, decisionID)
	}
	return p, ok
}

// runTickLoop polls every enabled venue for every watched symbol on
// update_interval_ms, feeds the aggregator, and drives strategies -> risk ->
// execution for any resulting signal (spec.md §2's dataflow graph).
func runTickLoop(ctx context.Context, cfg *config.Config, clients map[string]venue.Client, agg *aggregator.Aggregator, indEngine *indicators.Engine, enricher enrichment.Provider, strategies *strategy.Manager, riskMgr *risk.Manager, coordinator *execution.Coordinator, positions *position.Manager, portfolio *domain.Portfolio, db *store.Store, metrics *monitor.SystemMetrics, metaMu *sync.Mutex, metaCache map[string]domain.TokenMetadata, tracker *executionTracker) {
	interval := time.Duration(cfg.Bot.UpdateIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	symbols := cfg.Bot.Watchlist
	if len(symbols) == 0 {
		log.Println("[TICK] no watchlist configured, tick loop idle")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.NextCycle()
			for _, symbol := range symbols {
				processSymbolTick(ctx, symbol, cfg, clients, agg, indEngine, enricher, strategies, riskMgr, coordinator, positions, portfolio, db, metrics, metaMu, metaCache, tracker)
			}
		}
	}
}

func processSymbolTick(ctx context.Context, symbol string, cfg *config.Config, clients map[string]venue.Client, agg *aggregator.Aggregator, indEngine *indicators.Engine, enricher enrichment.Provider, strategies *strategy.Manager, riskMgr *risk.Manager, coordinator *execution.Coordinator, positions *position.Manager, portfolio *domain.Portfolio, db *store.Store, metrics *monitor.SystemMetrics, metaMu *sync.Mutex, metaCache map[string]domain.TokenMetadata, tracker *executionTracker) {
	for id, c := range clients {
		q, err := c.Quote(ctx, symbol)
		if err != nil {
			log.Printf("[TICK] venue %s quote(%s) failed: %v", id, symbol, err)
			continue
		}
		agg.IngestQuote(q)
	}

	t := monitor.NewTimer(metrics.AggregatorLatency)
	view, err := agg.RequestView(symbol)
	t.Stop()
	if err != nil {
		log.Printf("[TICK] %s: %v", symbol, err)
		return
	}
	metrics.IncrementTicks()

	positions.OnTick(view)

	indicatorValues := indEngine.Update(symbol, view.ConsensusPrice)

	var enrichment_ *domain.SentimentSummary
	if enricher != nil {
		if s, err := enricher.Enrich(ctx, symbol); err == nil {
			enrichment_ = s
		}
	}

	metaMu.Lock()
	md := metaCache[symbol]
	metaMu.Unlock()

	stratCtx := domain.StrategyContext{
		View:          view,
		Metadata:      md,
		PortfolioSnap: positions.Snapshot(),
		Indicators:    indicatorValues,
		Enrichment:    enrichment_,
	}

	signals := strategies.Analyze(stratCtx, symbol, time.Now())
	if len(signals) > 0 {
		metrics.IncrementSignals()
	}

	for _, signal := range signals {
		aiRisk := 0.0
		if enrichment_ != nil {
			aiRisk = clamp01((1 - enrichment_.Score) / 2)
		}

		rt := monitor.NewTimer(metrics.RiskLatency)
		decision := riskMgr.Evaluate(stratCtx, portfolio, signal, aiRisk, time.Now())
		rt.Stop()
		metrics.IncrementDecisions()

		if err := db.SaveDecision(ctx, store.DecisionRecord{
			ID: decision.ID, StrategyID: signal.StrategyID, Symbol: signal.Symbol,
			Verdict: string(decision.Verdict), SizedQuantity: decision.SizedQuantity,
			StopPrice: decision.StopPrice, TakePrice: decision.TakePrice,
			RejectReason: decision.RejectReason, CreatedAt: decision.CreatedAt,
		}); err != nil {
			log.Printf("[TICK] save decision failed: %v", err)
		}

		if decision.Verdict != domain.VerdictAccept {
			continue
		}

		tracker.put(decision.ID, pendingOrder{symbol: symbol, strategyID: signal.StrategyID, action: signal.Action})

		input, output := quoteToken, symbol
		if signal.Action == domain.ActionSell {
			input, output = symbol, quoteToken
		}
		et := monitor.NewTimer(metrics.ExecutionLatency)
		go func(d domain.Decision, v domain.AggregatedView) {
			defer et.Stop()
			coordinator.Submit(ctx, d, v, input, output, portfolio)
		}(decision, view)
	}
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

// runFillConsumer finalizes the position lifecycle once execution reports a
// terminal outcome for a decision (spec.md §4.5/§4.6 handoff).
func runFillConsumer(ctx context.Context, bus *eventbus.Bus, positions *position.Manager, strategies *strategy.Manager, db *store.Store, tracker *executionTracker) {
	fills, unsubFill := bus.Subscribe(eventbus.TopicFill, 256)
	defer unsubFill()
	failures, unsubFail := bus.Subscribe(eventbus.TopicOrderUpdate, 256)
	defer unsubFail()

	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-fills:
			if !ok {
				return
			}
			fill, ok := v.(execution.Fill)
			if !ok {
				continue
			}
			p, ok := tracker.take(fill.DecisionID)
			if !ok {
				continue
			}
			now := time.Now()
			_ = db.SaveOrder(ctx, store.OrderRecord{
				DecisionID: fill.DecisionID, Symbol: p.symbol, Side: string(p.action),
				State: "filled", TxSignature: fill.TxSignature, CreatedAt: now, UpdatedAt: now,
			})
			if p.isClose {
				positions.Confirm(p.positionID, fill.Price,
					func() { strategies.RecordWin(p.strategyID) },
					func() { strategies.RecordLoss(p.strategyID) },
				)
				strategies.RecordClose(strategy.Close{PositionID: p.positionID, Symbol: p.symbol, Timestamp: now})
				continue
			}
			positions.Open(domain.Position{
				ID: fill.DecisionID, Symbol: p.symbol, Side: sideFromAction(p.action),
				Size: fill.Quantity, EntryPrice: fill.Price, CurrentPrice: fill.Price,
				OpenedAt: now, StrategyID: p.strategyID,
			})
			strategies.RecordFill(strategy.Fill{
				DecisionID: fill.DecisionID, Symbol: p.symbol, Price: fill.Price,
				Quantity: fill.Quantity, Fee: fill.Fee, Timestamp: now,
			})
		case v, ok := <-failures:
			if !ok {
				return
			}
			failed, ok := v.(execution.Failed)
			if !ok {
				continue
			}
			p, ok := tracker.take(failed.DecisionID)
			if !ok {
				continue
			}
			now := time.Now()
			_ = db.SaveOrder(ctx, store.OrderRecord{
				DecisionID: failed.DecisionID, Symbol: p.symbol, Side: string(p.action),
				State: "failed", FailureReason: failed.Reason, CreatedAt: now, UpdatedAt: now,
			})
			if p.isClose {
				positions.CancelClose(p.positionID)
			}
		}
	}
}

// runCloseConsumer drives the lighter stop/take/manual/emergency close path
// (spec.md §4.6): a CloseRequest skips sizing and exposure checks entirely
// and goes straight to execution for the position's full size.
func runCloseConsumer(ctx context.Context, bus *eventbus.Bus, positions *position.Manager, coordinator *execution.Coordinator, portfolio *domain.Portfolio, solanaCfg config.SolanaConfig, tracker *executionTracker) {
	stream, unsub := bus.Subscribe(eventbus.TopicLifecycle, 256)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-stream:
			if !ok {
				return
			}
			req, ok := v.(position.CloseRequest)
			if !ok {
				continue
			}
			snap := positions.Snapshot()
			pos, ok := snap.Positions[req.PositionID]
			if !ok {
				continue
			}

			decisionID := uuid.NewString()
			decision := domain.Decision{
				ID: decisionID,
				SignalRef: domain.Signal{
					StrategyID: pos.StrategyID, Symbol: pos.Symbol,
					Action: domain.ActionSell, SuggestedSize: pos.Size, CreatedAt: time.Now(),
				},
				Verdict:       domain.VerdictAccept,
				SizedQuantity: pos.Size,
				CreatedAt:     time.Now(),
			}
			tracker.put(decisionID, pendingOrder{symbol: pos.Symbol, strategyID: pos.StrategyID, action: domain.ActionSell, isClose: true, positionID: req.PositionID})

			view := domain.AggregatedView{Symbol: pos.Symbol, ConsensusPrice: pos.CurrentPrice}
			go coordinator.Submit(ctx, decision, view, pos.Symbol, quoteToken, portfolio)
		}
	}
}

// runHubHeartbeat periodically publishes the Hub's three status keys
// (spec.md §4.7A), giving realtime:metrics real content instead of a stub.
func runHubHeartbeat(ctx context.Context, h *hub.Hub, metrics *monitor.SystemMetrics, portfolio *domain.Portfolio, cfg *config.Config) {
	startedAt := time.Now()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	mode := "live"
	if cfg.Bot.DryRun {
		mode = "dry_run"
	} else if cfg.Bot.PaperTrading {
		mode = "paper"
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := metrics.GetSnapshot()
			status := hub.BotStatus{
				State: "running", Mode: mode, StartedAt: startedAt,
				LastActivity: time.Now(), Version: "1.0.0",
			}
			status.Health.Status = "ok"
			if portfolio.Halted {
				status.State = "halted"
			}
			if err := h.SetBotStatus(ctx, status); err != nil {
				log.Printf("[HUB] set bot status failed: %v", err)
			}

			stats := hub.DashboardStats{
				ActivePositions: portfolio.OpenPositionCount(),
				TotalPnLUSD:     portfolio.RealizedPnL,
				UptimeSeconds:   time.Since(startedAt).Seconds(),
				LastUpdated:     time.Now(),
				BotStatus:       status.State,
			}
			if err := h.SetDashboardStats(ctx, stats); err != nil {
				log.Printf("[HUB] set dashboard stats failed: %v", err)
			}

			rm := hub.RealtimeMetrics{
				CycleNumber:            snap.CycleNumber,
				OpportunitiesProcessed: int(snap.TicksProcessed),
				DecisionsMade:          int(snap.DecisionsMade),
				Timestamp:              time.Now(),
				MemoryUsageMB:          float64(snap.HeapAllocBytes) / (1024 * 1024),
				DBConnected:            true,
			}
			if err := h.SetRealtimeMetrics(ctx, rm); err != nil {
				log.Printf("[HUB] set realtime metrics failed: %v", err)
			}
		}
	}
}

// reportSink adapts an optional Hub into the reporter's EventSink, falling
// back to stdout-only logging when the Hub is unavailable.
func reportSink(h *hub.Hub) reporter.EventSink {
	if h != nil {
		return h
	}
	return logOnlySink{}
}

type logOnlySink struct{}

func (logOnlySink) PushEvent(ctx context.Context, ev domain.LifecycleEvent) error {
	log.Printf("[EVENT] %s severity=%s component=%s", ev.Type, ev.Severity, ev.Component)
	return nil
}

func sideFromAction(a domain.Action) domain.Side {
	if a == domain.ActionSell {
		return domain.SideShort
	}
	return domain.SideLong
}
