package execution

import (
	"context"
	"log"
	"time"

	"trading-core/internal/store"
)

// OrderStore is the subset of *store.Store reconciliation needs.
type OrderStore interface {
	SubmittedOrders(ctx context.Context) ([]store.OrderRecord, error)
	SaveOrder(ctx context.Context, o store.OrderRecord) error
}

// Reconcile scans the local ledger for orders left in a non-terminal state
// by an unclean shutdown and resolves each against chain RPC before the
// coordinator accepts new work, generalizing the donor's periodic
// reconciliation loop into a one-shot restart-time pass (spec.md §9's
// at-most-once submission design note; SPEC_FULL.md §9A).
func Reconcile(ctx context.Context, db OrderStore, confirmer Confirmer, commitment string, staleAfter time.Duration) error {
	pending, err := db.SubmittedOrders(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, o := range pending {
		if now.Sub(o.UpdatedAt) < staleAfter {
			continue // still within its normal confirmation window
		}
		if o.TxSignature == "" {
			o.State = "failed"
			o.FailureReason = "no tx signature recorded before restart"
			o.UpdatedAt = now
			_ = db.SaveOrder(ctx, o)
			continue
		}

		status, _, _, err := confirmer.Status(ctx, o.TxSignature, commitment)
		if err != nil {
			log.Printf("[RECONCILE] %s: status check failed: %v", o.DecisionID, err)
			continue
		}
		switch status {
		case TxCommitted:
			o.State = "filled"
		case TxFailed:
			o.State = "failed"
			o.FailureReason = "reconciled as failed on restart"
		default:
			continue // still pending on-chain, leave as-is
		}
		o.UpdatedAt = now
		if err := db.SaveOrder(ctx, o); err != nil {
			log.Printf("[RECONCILE] %s: save failed: %v", o.DecisionID, err)
		}
	}
	return nil
}
