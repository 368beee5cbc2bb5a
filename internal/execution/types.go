// Package execution implements the order lifecycle from spec.md §4.5: quote,
// route (direct or MEV bundle), submit, confirm, with WAL-backed idempotent
// submission adapted from the donor's internal/order/persistent_queue.go.
package execution

import "time"

// OrderState is one stage of the spec.md §4.5 lifecycle.
type OrderState string

const (
	StatePendingQuote OrderState = "pending_quote"
	StateQuoted       OrderState = "quoted"
	StateSubmitting   OrderState = "submitting"
	StateSubmitted    OrderState = "submitted"
	StateFilled       OrderState = "filled"
	StateFailed       OrderState = "failed"
	StateExpired      OrderState = "expired"
)

// Order tracks one decision's progress through the execution pipeline.
type Order struct {
	DecisionID    string
	Symbol        string
	Side          string // buy|sell
	InputToken    string
	OutputToken   string
	Amount        float64
	SlippageBps   int
	State         OrderState
	QuotedPrice   float64
	TxSignature   string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Fill is emitted on successful confirmation.
type Fill struct {
	DecisionID string
	Price      float64
	Quantity   float64
	Fee        float64
	TxSignature string
	FilledAt   time.Time
}

// Failed is emitted on terminal failure; reservation must be released.
type Failed struct {
	DecisionID string
	Reason     string // apperr.Code
	DetailMsg  string
	FailedAt   time.Time
}

// Quote is the DEX-aggregator's response for a prospective swap.
type Quote struct {
	InputToken   string
	OutputToken  string
	InAmount     float64
	OutAmount    float64
	ImpliedPrice float64
	RouteRef     string // opaque routing payload the swap endpoint needs
}
