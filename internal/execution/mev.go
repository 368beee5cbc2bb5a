package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"trading-core/internal/apperr"
)

// BundleStatus is the terminal or in-progress state of a submitted MEV bundle.
type BundleStatus string

const (
	BundlePending  BundleStatus = "pending"
	BundleLanded   BundleStatus = "landed"
	BundleFailed   BundleStatus = "failed"
)

// BundleRelay submits a tip-attached bundle to a private relay and polls for
// a terminal status, per spec.md §4.5's MEV routing branch.
type BundleRelay interface {
	SubmitBundle(ctx context.Context, routeRef, tipAccount string, tipLamports uint64) (bundleID string, err error)
	PollStatus(ctx context.Context, bundleID string) (BundleStatus, string, error) // status, txSignature, error
}

// HTTPBundleRelay implements BundleRelay against a JSON relay endpoint.
type HTTPBundleRelay struct {
	relayURL string
	client   *http.Client
}

func NewHTTPBundleRelay(relayURL string, timeout time.Duration) *HTTPBundleRelay {
	return &HTTPBundleRelay{relayURL: relayURL, client: &http.Client{Timeout: timeout}}
}

type submitBundleResponse struct {
	BundleID string `json:"bundle_id"`
}

func (r *HTTPBundleRelay) SubmitBundle(ctx context.Context, routeRef, tipAccount string, tipLamports uint64) (string, error) {
	payload, _ := json.Marshal(map[string]any{
		"route_ref":    routeRef,
		"tip_account":  tipAccount,
		"tip_lamports": tipLamports,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.relayURL+"/bundles", jsonReader(payload))
	if err != nil {
		return "", apperr.Wrap(apperr.CodeNoRoute, "build bundle request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeBundleTimeout, "bundle submission transport error", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", apperr.New(apperr.CodeBundleTimeout, fmt.Sprintf("relay returned %d", resp.StatusCode))
	}
	var out submitBundleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperr.Wrap(apperr.CodeParseError, "decode bundle response", err)
	}
	return out.BundleID, nil
}

type bundleStatusResponse struct {
	Status      string `json:"status"` // pending|landed|failed
	TxSignature string `json:"tx_signature,omitempty"`
}

func (r *HTTPBundleRelay) PollStatus(ctx context.Context, bundleID string) (BundleStatus, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/bundles/%s", r.relayURL, bundleID), nil)
	if err != nil {
		return BundlePending, "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return BundlePending, "", err
	}
	defer resp.Body.Close()
	var out bundleStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return BundlePending, "", err
	}
	switch out.Status {
	case string(BundleLanded):
		return BundleLanded, out.TxSignature, nil
	case string(BundleFailed):
		return BundleFailed, "", nil
	default:
		return BundlePending, "", nil
	}
}

// TipRotation hands out tip accounts round-robin per spec.md §4.5.
type TipRotation struct {
	accounts []string
	next     uint64
}

func NewTipRotation(accounts []string) *TipRotation {
	return &TipRotation{accounts: accounts}
}

func (t *TipRotation) Next() string {
	if len(t.accounts) == 0 {
		return ""
	}
	i := atomic.AddUint64(&t.next, 1) - 1
	return t.accounts[i%uint64(len(t.accounts))]
}
