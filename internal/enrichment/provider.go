// Package enrichment calls the external sentiment-analysis process over a
// narrow JSON request/response, per spec.md §9's EnrichmentProvider design
// note. The donor's python_bridge.go forwarded requests to an external
// process via gRPC with generated proto stubs; those stubs are not part of
// this module (see DESIGN.md), so the same forward-and-translate shape is
// kept but the transport is JSON over HTTP instead.
package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"trading-core/internal/domain"
)

// Provider is the pluggable interface strategies consume through
// domain.StrategyContext.Enrichment (spec.md §9).
type Provider interface {
	Enrich(ctx context.Context, symbol string) (*domain.SentimentSummary, error)
}

// HTTPProvider forwards a symbol to an external sentiment service and
// translates its response into domain.SentimentSummary.
type HTTPProvider struct {
	endpoint string
	model    string
	client   *http.Client
}

// New builds a provider against endpoint. If endpoint is empty, Enrich
// always returns (nil, nil) — enrichment is optional per spec.md §9.
func New(endpoint, model string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{endpoint: endpoint, model: model, client: &http.Client{Timeout: timeout}}
}

type enrichRequest struct {
	Symbol string `json:"symbol"`
	Model  string `json:"model,omitempty"`
}

type enrichResponse struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Summary    string  `json:"summary,omitempty"`
}

func (p *HTTPProvider) Enrich(ctx context.Context, symbol string) (*domain.SentimentSummary, error) {
	if p.endpoint == "" {
		return nil, nil
	}

	payload, err := json.Marshal(enrichRequest{Symbol: symbol, Model: p.model})
	if err != nil {
		return nil, fmt.Errorf("enrichment: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("enrichment: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("enrichment: transport error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("enrichment: endpoint returned %d", resp.StatusCode)
	}

	var out enrichResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("enrichment: decode response: %w", err)
	}
	return &domain.SentimentSummary{Score: out.Score, Confidence: out.Confidence, Summary: out.Summary}, nil
}
