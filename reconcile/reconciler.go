/*
reconciler.go - Applying and undoing reconciliations

PURPOSE:
  The Reconciler is the only writer of bank transaction reconciliation
  state. Apply links a bank transaction to a document and records a
  ReconciliationRecord; Undo removes the record and clears the flags on the
  transaction. The cycle Unmatched -> Matched -> Unmatched is repeatable
  indefinitely; there is no terminal state.

IDEMPOTENCY:
  Re-applying an already-applied match is a no-op, not an error (stale UI
  retries are expected). Undoing a pairing that does not exist reports
  ErrNoSuchReconciliation, a non-fatal condition surfaced to the user.

SEE ALSO:
  - matcher.go: Produces the Match proposals Apply consumes
*/
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/atlas/compta-engine/compta"
)

// Reconciler mutates reconciliation state through the DocumentStore.
type Reconciler struct {
	store compta.DocumentStore
	now   func() time.Time
}

func NewReconciler(store compta.DocumentStore) *Reconciler {
	return &Reconciler{store: store, now: time.Now}
}

// Apply links the match's bank transaction to its document. Manual marks a
// forced pairing accepted from the UI rather than an AutoMatch proposal.
func (r *Reconciler) Apply(ctx context.Context, match Match, manual bool) error {
	bt, err := r.store.GetBankTransaction(ctx, match.BankID)
	if err != nil {
		return err
	}
	if bt.Reconciled {
		if bt.MatchDocID == match.DocID {
			return nil // already applied
		}
		return fmt.Errorf("bank transaction %s linked to %s: %w", bt.ID, bt.MatchDocID, compta.ErrAlreadyMatched)
	}
	if _, err := r.store.GetDocument(ctx, match.DocID); err != nil {
		return err
	}

	// Record first, then flag. If the flag write fails the record is rolled
	// back, so the pair never diverges.
	if err := r.store.AddReconciliation(ctx, compta.ReconciliationRecord{
		BankID:    match.BankID,
		DocID:     match.DocID,
		Score:     match.Score,
		AppliedAt: r.now().UTC(),
		Manual:    manual,
	}); err != nil {
		return err
	}
	patch := compta.BankTransactionPatch{Reconciled: true, MatchDocID: match.DocID}
	if err := r.store.UpdateBankTransaction(ctx, match.BankID, patch); err != nil {
		r.store.RemoveReconciliation(ctx, match.BankID, match.DocID)
		return err
	}
	return nil
}

// ApplyAll applies a batch of AutoMatch proposals, stopping at the first
// failure.
func (r *Reconciler) ApplyAll(ctx context.Context, matches []Match) error {
	for _, m := range matches {
		if err := r.Apply(ctx, m, false); err != nil {
			return err
		}
	}
	return nil
}

// Undo removes the pairing: the record goes away and the bank transaction
// returns to {Reconciled: false, MatchDocID: ""}.
func (r *Reconciler) Undo(ctx context.Context, bankID, docID string) error {
	removed, err := r.store.RemoveReconciliation(ctx, bankID, docID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("bank %s / doc %s: %w", bankID, docID, compta.ErrNoSuchReconciliation)
	}
	return r.store.UpdateBankTransaction(ctx, bankID, compta.BankTransactionPatch{})
}
