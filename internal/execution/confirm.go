package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"trading-core/internal/apperr"
)

// TxStatus is the commitment status of a submitted transaction.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxCommitted TxStatus = "committed"
	TxFailed    TxStatus = "failed"
)

// Confirmer polls transaction status via the enhanced-RPC client until the
// configured commitment level or tx_timeout_seconds expires (spec.md §4.5
// fill confirmation step).
type Confirmer interface {
	Status(ctx context.Context, txSignature, commitment string) (TxStatus, float64, float64, error) // status, fillPrice, fillQty
}

// RPCConfirmer implements Confirmer against an enhanced-RPC HTTP endpoint.
type RPCConfirmer struct {
	rpcURL string
	client *http.Client
}

func NewRPCConfirmer(rpcURL string, timeout time.Duration) *RPCConfirmer {
	return &RPCConfirmer{rpcURL: rpcURL, client: &http.Client{Timeout: timeout}}
}

type txStatusResponse struct {
	Status    string  `json:"status"`
	FillPrice float64 `json:"fill_price,omitempty"`
	FillQty   float64 `json:"fill_qty,omitempty"`
}

func (c *RPCConfirmer) Status(ctx context.Context, txSignature, commitment string) (TxStatus, float64, float64, error) {
	url := fmt.Sprintf("%s/tx/%s?commitment=%s", c.rpcURL, txSignature, commitment)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return TxPending, 0, 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return TxPending, 0, 0, apperr.Wrap(apperr.CodeTimeout, "tx status transport error", err)
	}
	defer resp.Body.Close()
	var out txStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return TxPending, 0, 0, apperr.Wrap(apperr.CodeParseError, "decode tx status", err)
	}
	switch out.Status {
	case string(TxCommitted):
		return TxCommitted, out.FillPrice, out.FillQty, nil
	case string(TxFailed):
		return TxFailed, 0, 0, nil
	default:
		return TxPending, 0, 0, nil
	}
}

// PollUntilTerminal polls fn every interval until it returns a terminal
// status or timeout elapses.
func pollUntilTerminal(ctx context.Context, timeout, interval time.Duration, fn func(context.Context) (bool, error)) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if time.Now().After(deadline) {
			return context.DeadlineExceeded
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
