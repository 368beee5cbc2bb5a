// Package config loads the structured YAML configuration and applies
// environment variable overrides: YAML for the structured sections, the
// environment for secrets, endpoints and the dry-run/paper-trading toggles.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"trading-core/internal/apperr"
)

// BotConfig controls top-level engine behavior.
type BotConfig struct {
	DryRun             bool     `yaml:"dry_run"`
	PaperTrading       bool     `yaml:"paper_trading"`
	UpdateIntervalMs   int      `yaml:"update_interval_ms"`
	MaxConcurrentOrder int      `yaml:"max_concurrent_orders"`
	Watchlist          []string `yaml:"watchlist"` // symbols the tick loop polls each cycle
	StartingCashUSD    float64  `yaml:"starting_cash_usd"`
	DBPath             string   `yaml:"db_path"`
	WALDir             string   `yaml:"wal_dir"`
}

// SolanaConfig configures RPC access.
type SolanaConfig struct {
	RPCURL         string `yaml:"rpc_url"`
	Commitment     string `yaml:"commitment"` // processed|confirmed|finalized
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// AggregatorConfig configures the DEX aggregator's quote/swap endpoints.
type AggregatorConfig struct {
	QuoteURL        string  `yaml:"quote_url"`
	SwapURL         string  `yaml:"swap_url"`
	MaxRetries      int     `yaml:"max_retries"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_second"`
	MaxSlippageBps  int     `yaml:"max_slippage_bps"`
	TxTimeoutSeconds int    `yaml:"tx_timeout_seconds"`
}

// MEVProtectionConfig configures bundle submission to a private relay.
type MEVProtectionConfig struct {
	Enabled               bool     `yaml:"enabled"`
	RelayURL              string   `yaml:"relay_url"`
	TipAccounts           []string `yaml:"tip_accounts"`
	BundleTimeoutSeconds  int      `yaml:"bundle_timeout_seconds"`
	MaxTipLamports        uint64   `yaml:"max_tip_lamports"`
	MevThresholdUSD       float64  `yaml:"mev_threshold_usd"`
	FallbackDirectOnTimeo bool     `yaml:"mev_fallback"`
}

// VenueConfig configures one venue client.
type VenueConfig struct {
	Enabled            bool    `yaml:"enabled"`
	APIURL             string  `yaml:"api_url"`
	WebsocketURL       string  `yaml:"websocket_url"`
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	ProgramID          string  `yaml:"program_id,omitempty"`
	SourceClass        string  `yaml:"source_class"`
	Weight             float64 `yaml:"weight"`
}

// RiskManagementConfig mirrors spec.md §4.4's limits.
type RiskManagementConfig struct {
	MaxPositions            int     `yaml:"max_positions"`
	MaxExposurePerTokenPct  float64 `yaml:"max_exposure_per_token_pct"`
	GlobalMaxExposure       float64 `yaml:"global_max_exposure"`
	MaxPriceImpactPct       float64 `yaml:"max_price_impact_pct"`
	MaxDailyLoss            float64 `yaml:"max_daily_loss"`
	MaxDrawdown             float64 `yaml:"max_drawdown"`
	ConsecutiveLossLimit    int     `yaml:"consecutive_loss_limit"`
	CoolingOffMinutes       int     `yaml:"cooling_off_minutes"`
	SizingMethod            string  `yaml:"sizing_method"` // fixed|percentage|volatility_adjusted
	FixedSize               float64 `yaml:"fixed_size"`
	SizingPct               float64 `yaml:"sizing_pct"`
	TargetVol               float64 `yaml:"target_vol"`
	MinPositionSize         float64 `yaml:"min_position_size"`
	MaxPositionSize         float64 `yaml:"max_position_size"`
	DefaultStopPct          float64 `yaml:"default_stop_pct"`
	DefaultTakePct          float64 `yaml:"default_take_pct"`
	AIRiskWeight            float64 `yaml:"ai_risk_weight"`
}

// StrategyConfig configures one registered strategy instance.
type StrategyConfig struct {
	Enabled             bool                   `yaml:"enabled"`
	ConfidenceThreshold float64                `yaml:"confidence_threshold"`
	MaxPositionSize     float64                `yaml:"max_position_size"`
	StopLossPercentage  float64                `yaml:"stop_loss_percentage"`
	TakeProfitPercentage float64               `yaml:"take_profit_percentage"`
	CooldownSeconds     int                    `yaml:"cooldown_seconds"`
	Params              map[string]interface{} `yaml:"params"`
}

// WebsocketConfig configures venue subscription behavior.
type WebsocketConfig struct {
	ReconnectTimeoutSeconds int      `yaml:"reconnect_timeout_seconds"`
	MaxRetries              int      `yaml:"max_retries"`
	PingIntervalSeconds     int      `yaml:"ping_interval_seconds"`
	Subscriptions           []string `yaml:"subscriptions"`
}

// AIConfig configures the optional sentiment enrichment process.
type AIConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
}

// Config is the full merged configuration.
type Config struct {
	Bot            BotConfig                  `yaml:"bot"`
	Solana         SolanaConfig               `yaml:"solana"`
	Aggregator     AggregatorConfig           `yaml:"aggregator"`
	MEVProtection  MEVProtectionConfig        `yaml:"mev_protection"`
	Exchanges      map[string]VenueConfig     `yaml:"exchanges"`
	RiskManagement RiskManagementConfig       `yaml:"risk_management"`
	Strategies     map[string]StrategyConfig  `yaml:"strategies"`
	Websocket      WebsocketConfig            `yaml:"websocket"`
	AI             AIConfig                   `yaml:"ai"`

	// Populated from environment, never from YAML.
	HeliusAPIKey     string
	WalletPrivKeyB58 string
	KVStoreURL       string
	HostAPIAddr      string
	HostAPIJWTSecret string
}

// Load reads the YAML file at path, then overlays environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	// .env support for local development, mirroring the donor's godotenv use.
	_ = godotenv.Load()

	cfg.HeliusAPIKey = os.Getenv("HELIUS_API_KEY")
	cfg.WalletPrivKeyB58 = os.Getenv("WALLET_PRIVATE_KEY")
	cfg.KVStoreURL = getEnv("KV_STORE_URL", "redis://localhost:6379/0")
	cfg.HostAPIAddr = getEnv("HOST_API_ADDR", ":8090")
	cfg.HostAPIJWTSecret = os.Getenv("HOST_API_JWT_SECRET")

	if v := os.Getenv("DRY_RUN"); v != "" {
		cfg.Bot.DryRun = parseBool(v, cfg.Bot.DryRun)
	}
	if v := os.Getenv("PAPER_TRADING"); v != "" {
		cfg.Bot.PaperTrading = parseBool(v, cfg.Bot.PaperTrading)
	}

	for id, ex := range cfg.Exchanges {
		keyEnv := fmt.Sprintf("%s_API_KEY", strings.ToUpper(id))
		if key := os.Getenv(keyEnv); key != "" {
			ex.APIURL = overrideIfSet(ex.APIURL, os.Getenv(fmt.Sprintf("%s_API_URL", strings.ToUpper(id))))
			cfg.Exchanges[id] = ex
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.CodeConfigInvalid, "config invalid", err)
	}

	return &cfg, nil
}

// Validate checks the merged config; Load wraps any failure in the
// ConfigInvalid fatal error class from spec.md §7.
func (c *Config) Validate() error {
	if c.Solana.RPCURL == "" {
		return fmt.Errorf("solana.rpc_url is required")
	}
	switch c.Solana.Commitment {
	case "processed", "confirmed", "finalized", "":
	default:
		return fmt.Errorf("solana.commitment must be processed|confirmed|finalized, got %q", c.Solana.Commitment)
	}
	if c.RiskManagement.GlobalMaxExposure <= 0 {
		return fmt.Errorf("risk_management.global_max_exposure must be positive")
	}
	if !c.Bot.DryRun && c.WalletPrivKeyB58 == "" {
		return fmt.Errorf("WALLET_PRIVATE_KEY is required when dry_run is false")
	}
	if c.HostAPIJWTSecret == "" {
		return fmt.Errorf("HOST_API_JWT_SECRET is required to authenticate the control-verb surface")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func overrideIfSet(current, override string) string {
	if override != "" {
		return override
	}
	return current
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
