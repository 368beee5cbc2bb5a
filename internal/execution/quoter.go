package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"trading-core/internal/apperr"
)

// Quoter fetches a DEX-aggregator quote, grounded on the quote-routing
// pattern of internal/order/executor.go's gateway resolution, adapted from
// a CEX order-submission gateway to a Solana swap-quote endpoint.
type Quoter interface {
	Quote(ctx context.Context, inputToken, outputToken string, amount float64, slippageBps int) (Quote, error)
}

// AggregatorQuoter calls a configured JSON quote endpoint with a token-bucket
// rate limiter, matching the donor's pkg/exchanges/common/ratelimit.go usage
// pattern but backed by golang.org/x/time/rate instead of a hand-rolled
// weight tracker.
type AggregatorQuoter struct {
	quoteURL string
	client   *http.Client
	limiter  *rate.Limiter
	maxRetries int
}

// NewAggregatorQuoter builds a quoter against quoteURL with per-second rate limiting.
func NewAggregatorQuoter(quoteURL string, ratePerSecond float64, timeout time.Duration) *AggregatorQuoter {
	if ratePerSecond <= 0 {
		ratePerSecond = 5
	}
	return &AggregatorQuoter{
		quoteURL:   quoteURL,
		client:     &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		maxRetries: 3,
	}
}

type aggregatorQuoteResponse struct {
	InAmount     float64 `json:"in_amount"`
	OutAmount    float64 `json:"out_amount"`
	ImpliedPrice float64 `json:"implied_price"`
	RouteRef     string  `json:"route_ref"`
}

// Quote retries idempotently up to 3x with exponential backoff on transport
// errors per spec.md §4.5's quote step, returning NoRoute on exhaustion.
func (q *AggregatorQuoter) Quote(ctx context.Context, inputToken, outputToken string, amount float64, slippageBps int) (Quote, error) {
	var lastErr error
	backoff := 200 * time.Millisecond
	for attempt := 0; attempt <= q.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Quote{}, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if err := q.limiter.Wait(ctx); err != nil {
			return Quote{}, err
		}

		url := fmt.Sprintf("%s?input=%s&output=%s&amount=%f&slippage_bps=%d", q.quoteURL, inputToken, outputToken, amount, slippageBps)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return Quote{}, apperr.Wrap(apperr.CodeNoRoute, "build quote request", err)
		}
		resp, err := q.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("quote endpoint returned %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return Quote{}, apperr.New(apperr.CodeNoRoute, fmt.Sprintf("quote endpoint returned %d", resp.StatusCode))
		}

		var body aggregatorQuoteResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if decodeErr != nil {
			return Quote{}, apperr.Wrap(apperr.CodeParseError, "decode quote response", decodeErr)
		}

		return Quote{
			InputToken:   inputToken,
			OutputToken:  outputToken,
			InAmount:     body.InAmount,
			OutAmount:    body.OutAmount,
			ImpliedPrice: body.ImpliedPrice,
			RouteRef:     body.RouteRef,
		}, nil
	}
	return Quote{}, apperr.Wrap(apperr.CodeNoRoute, "quote retries exhausted", lastErr)
}

// Swapper submits a previously quoted route for execution, either directly
// or as part of an MEV bundle.
type Swapper interface {
	Submit(ctx context.Context, routeRef string) (txSignature string, err error)
}

// AggregatorSwapper posts a route reference to the aggregator's swap endpoint.
type AggregatorSwapper struct {
	swapURL string
	client  *http.Client
}

func NewAggregatorSwapper(swapURL string, timeout time.Duration) *AggregatorSwapper {
	return &AggregatorSwapper{swapURL: swapURL, client: &http.Client{Timeout: timeout}}
}

type swapResponse struct {
	TxSignature string `json:"tx_signature"`
}

func (s *AggregatorSwapper) Submit(ctx context.Context, routeRef string) (string, error) {
	body, _ := json.Marshal(map[string]string{"route_ref": routeRef})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.swapURL, jsonReader(body))
	if err != nil {
		return "", apperr.Wrap(apperr.CodeNoRoute, "build swap request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeTxFailed, "swap submission transport error", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apperr.New(apperr.CodeTxFailed, fmt.Sprintf("swap endpoint returned %d", resp.StatusCode))
	}
	var out swapResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperr.Wrap(apperr.CodeParseError, "decode swap response", err)
	}
	return out.TxSignature, nil
}
