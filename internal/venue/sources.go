package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"trading-core/internal/domain"
)

// genericQuoteResponse is the common JSON shape returned by the AMM, DEX
// aggregator and CEX reference HTTP quote endpoints used in this deployment.
// Venues that diverge (the bonding-curve launchpad, enhanced-RPC) parse their
// own response shape below.
type genericQuoteResponse struct {
	Price     float64  `json:"price"`
	Volume24h float64  `json:"volume_24h"`
	Bid       *float64 `json:"bid,omitempty"`
	Ask       *float64 `json:"ask,omitempty"`
	Liquidity *float64 `json:"liquidity,omitempty"`
}

func doJSONGet(ctx context.Context, httpClient *http.Client, url string, out any) (time.Duration, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrParseError, err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return 0, ErrRateLimited
	}
	if resp.StatusCode >= 500 {
		return 0, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("%w: status %d", ErrParseError, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrParseError, err)
	}
	return time.Since(start), nil
}

func genericFetcher(endpointFmt string) HTTPFetcher {
	return func(ctx context.Context, httpClient *http.Client, apiURL, symbol string) (domain.Quote, error) {
		var resp genericQuoteResponse
		latency, err := doJSONGet(ctx, httpClient, fmt.Sprintf(endpointFmt, apiURL, symbol), &resp)
		if err != nil {
			return domain.Quote{}, err
		}
		return domain.Quote{
			Symbol:    symbol,
			Price:     resp.Price,
			Volume24h: resp.Volume24h,
			Bid:       resp.Bid,
			Ask:       resp.Ask,
			Liquidity: resp.Liquidity,
			LatencyMs: latency.Milliseconds(),
		}, nil
	}
}

// NewAMMClient builds a client for an established constant-product AMM venue
// (AMM A or AMM B in spec.md §2's venue list — both use this constructor,
// distinguished only by cfg.ID/cfg.APIURL).
func NewAMMClient(cfg Config) Client {
	cfg.SourceClass = domain.SourceClassEstablishedAMM
	return NewBaseClient(cfg, genericFetcher("%s/v1/quote?symbol=%s"))
}

// NewDEXAggregatorClient builds a client for the DEX aggregator venue, which
// doubles as the quote/swap route the Execution Coordinator calls (§4.5).
func NewDEXAggregatorClient(cfg Config) Client {
	cfg.SourceClass = domain.SourceClassDEXAggregator
	return NewBaseClient(cfg, genericFetcher("%s/v1/price?symbol=%s"))
}

// NewCEXReferenceClient builds a client for the centralized-exchange
// reference price feed, the highest-trust source class.
func NewCEXReferenceClient(cfg Config) Client {
	cfg.SourceClass = domain.SourceClassCEXReference
	return NewBaseClient(cfg, genericFetcher("%s/api/v3/ticker/price?symbol=%s"))
}

// launchpadQuoteResponse is the bonding-curve launchpad's own response
// shape: price is derived from the curve's virtual reserves rather than an
// order book, so it carries bonding-curve-specific fields the generic shape
// doesn't.
type launchpadQuoteResponse struct {
	Price               float64  `json:"price"`
	Volume24h           float64  `json:"volume_24h"`
	BondingProgress     float64  `json:"bonding_curve_progress"`
	MarketCap           float64  `json:"market_cap"`
	HolderCount         int      `json:"holder_count"`
	AgeSeconds          float64  `json:"age_seconds"`
	CreatorID           string   `json:"creator_id"`
}

// NewLaunchpadClient builds a client for the bonding-curve launchpad venue.
// It is the lowest-trust source class (spec.md §4.2) and the primary feed
// for the early-token sniping strategy's TokenMetadata.
func NewLaunchpadClient(cfg Config) Client {
	cfg.SourceClass = domain.SourceClassBondingLaunchpad
	fetch := func(ctx context.Context, httpClient *http.Client, apiURL, symbol string) (domain.Quote, error) {
		var resp launchpadQuoteResponse
		latency, err := doJSONGet(ctx, httpClient, fmt.Sprintf("%s/curve/%s", apiURL, symbol), &resp)
		if err != nil {
			return domain.Quote{}, err
		}
		return domain.Quote{
			Symbol:    symbol,
			Price:     resp.Price,
			Volume24h: resp.Volume24h,
			LatencyMs: latency.Milliseconds(),
		}, nil
	}
	return NewBaseClient(cfg, fetch)
}

// LaunchpadMetadata fetches TokenMetadata from the launchpad's curve
// endpoint. Separate from Quote because TokenMetadata is best-effort and not
// every venue can populate it (spec.md §3).
func LaunchpadMetadata(ctx context.Context, httpClient *http.Client, apiURL, address string) (domain.TokenMetadata, error) {
	var resp launchpadQuoteResponse
	if _, err := doJSONGet(ctx, httpClient, fmt.Sprintf("%s/curve/%s", apiURL, address), &resp); err != nil {
		return domain.TokenMetadata{}, err
	}
	progress := resp.BondingProgress
	mcap := resp.MarketCap
	holders := resp.HolderCount
	age := resp.AgeSeconds
	creator := resp.CreatorID
	return domain.TokenMetadata{
		Address:              address,
		MarketCap:            &mcap,
		AgeSeconds:           &age,
		HolderCount:          &holders,
		CreatorID:            &creator,
		BondingCurveProgress: &progress,
		Flags:                domain.TokenMetadataFlags{IsNewPool: progress < 1.0},
	}, nil
}

// enhancedRPCResponse models the JSON-RPC-shaped response from the
// enhanced-RPC provider used for both quotes (via on-chain pool state) and
// transaction confirmation polling (see execution package).
type enhancedRPCResponse struct {
	Result struct {
		Price     float64 `json:"price"`
		Volume24h float64 `json:"volume24h"`
		Liquidity float64 `json:"liquidity"`
	} `json:"result"`
}

// NewEnhancedRPCClient builds a client for the enhanced-RPC venue, which
// reads quotes directly from on-chain pool state rather than a venue API.
func NewEnhancedRPCClient(cfg Config) Client {
	cfg.SourceClass = domain.SourceClassEnhancedRPC
	fetch := func(ctx context.Context, httpClient *http.Client, apiURL, symbol string) (domain.Quote, error) {
		var resp enhancedRPCResponse
		latency, err := doJSONGet(ctx, httpClient, fmt.Sprintf("%s/pool-state?symbol=%s", apiURL, symbol), &resp)
		if err != nil {
			return domain.Quote{}, err
		}
		liq := resp.Result.Liquidity
		return domain.Quote{
			Symbol:    symbol,
			Price:     resp.Result.Price,
			Volume24h: resp.Result.Volume24h,
			Liquidity: &liq,
			LatencyMs: latency.Milliseconds(),
		}, nil
	}
	return NewBaseClient(cfg, fetch)
}
