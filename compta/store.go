/*
store.go - Persistence interface for the accounting core

PURPOSE:
  Defines the boundary between the core engines and storage. The poster,
  matcher and aggregator are stateless transformers: the DocumentStore is
  the single source of truth and the only shared mutable resource. Derived
  values (totals, outstanding balances) are recomputed from current data on
  every call, never cached across calls.

APPEND-ONLY CONTRACT:
  AppendLedgerLines is the only way ledger lines enter the store, and the
  interface offers no way to edit or delete them. Corrections are new
  offsetting pieces.

IMPLEMENTATIONS:
  - store/memory.go: In-memory, for tests and development
  - store/sqlite/sqlite.go: SQLite-backed

SEE ALSO:
  - posting/poster.go: Writes pieces through this interface
  - reconcile/reconciler.go: Mutates bank transactions through this interface
*/
package compta

import (
	"context"
	"time"
)

// DocumentStore owns all persistent entities. Last-write-wins per record;
// no cross-record transactional guarantees are required by the core.
type DocumentStore interface {
	// Accounts
	SaveAccount(ctx context.Context, a Account) error
	GetAccount(ctx context.Context, id string) (*Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)

	// Commercial documents
	SaveDocument(ctx context.Context, d Document) error
	GetDocument(ctx context.Context, id string) (*Document, error)
	ListDocuments(ctx context.Context) ([]Document, error)
	// ListOutstanding returns documents with DueLeft > Tolerance, optionally
	// filtered by type ("" means all types).
	ListOutstanding(ctx context.Context, docType DocumentType) ([]Document, error)

	// Ledger (append-only)
	AppendLedgerLines(ctx context.Context, lines []LedgerLine) ([]LedgerLine, error)
	LedgerLinesByPiece(ctx context.Context, pieceID string) ([]LedgerLine, error)
	LedgerLinesInRange(ctx context.Context, from, to time.Time) ([]LedgerLine, error)

	// Bank transactions
	AddBankTransactions(ctx context.Context, txns []BankTransaction) error
	GetBankTransaction(ctx context.Context, id string) (*BankTransaction, error)
	UpdateBankTransaction(ctx context.Context, id string, patch BankTransactionPatch) error
	ListUnreconciledBankTransactions(ctx context.Context) ([]BankTransaction, error)
	ListBankTransactions(ctx context.Context) ([]BankTransaction, error)

	// Reconciliation records (append/remove only)
	AddReconciliation(ctx context.Context, rec ReconciliationRecord) error
	// RemoveReconciliation deletes the record for (bankID, docID) and
	// reports whether it existed.
	RemoveReconciliation(ctx context.Context, bankID, docID string) (bool, error)
	ListReconciliations(ctx context.Context) ([]ReconciliationRecord, error)
}
