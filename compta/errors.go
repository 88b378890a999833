/*
errors.go - Centralized error types for the accounting core

PURPOSE:
  All sentinel and structured errors in one place. The taxonomy follows the
  split between state errors (caller sequencing bugs, stale UI state) and
  import errors (bad input batches). Validation findings are NOT errors:
  the balance validator returns them as structured data (posting.Issue).

USAGE:
  Callers match with errors.Is / errors.As:

    if errors.Is(err, compta.ErrAlreadyPosted) { ... }

    var rowErr *compta.RowError
    if errors.As(err, &rowErr) { report(rowErr.Index) }

SEE ALSO:
  - posting/validator.go: Validation issues as data
  - bankfeed/import.go: RowError usage
*/
package compta

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDocumentNotFound is returned when a referenced document doesn't exist.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrAccountNotFound is returned when a referenced account doesn't exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrBankTransactionNotFound is returned when a referenced bank
	// transaction doesn't exist.
	ErrBankTransactionNotFound = errors.New("bank transaction not found")

	// ErrAlreadyPosted is returned when posting a document that has already
	// produced ledger lines. Not retryable without a state refresh.
	ErrAlreadyPosted = errors.New("document already posted")

	// ErrNotConfirmed is returned when posting a document that has not been
	// confirmed yet. The state machine is Draft -> Confirmed -> Posted.
	ErrNotConfirmed = errors.New("document not confirmed")

	// ErrNoSuchReconciliation is returned by Undo when the bank transaction
	// and document are not currently linked. Non-fatal: surfaced to the
	// user, no retry.
	ErrNoSuchReconciliation = errors.New("no such reconciliation")

	// ErrAlreadyMatched is returned when applying a match to a bank
	// transaction that is already linked to a different document. Stale UI
	// state; the pairing must be undone first.
	ErrAlreadyMatched = errors.New("bank transaction already matched")

	// ErrInvalidImportRow is returned when a bank import batch contains a
	// row missing required fields. The whole batch is rejected.
	ErrInvalidImportRow = errors.New("invalid import row")

	// ErrEntryRejected is returned when the balance validator refuses a
	// candidate piece. The validation issues travel alongside.
	ErrEntryRejected = errors.New("entry rejected by validator")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RowError reports which import row made the batch unacceptable.
type RowError struct {
	Index int
	Field string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("import row %d: missing or invalid %q", e.Index, e.Field)
}

func (e *RowError) Unwrap() error { return ErrInvalidImportRow }

// IsStateError reports whether the error indicates a caller-sequencing
// problem rather than bad data.
func IsStateError(err error) bool {
	return errors.Is(err, ErrAlreadyPosted) ||
		errors.Is(err, ErrNotConfirmed) ||
		errors.Is(err, ErrNoSuchReconciliation) ||
		errors.Is(err, ErrAlreadyMatched)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrBankTransactionNotFound)
}
