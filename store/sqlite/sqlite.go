/*
Package sqlite provides a SQLite-backed implementation of the DocumentStore.

PURPOSE:
  Persists accounts, commercial documents, ledger lines, bank transactions
  and reconciliation records. The same patterns apply to PostgreSQL with
  minor SQL dialect changes.

APPEND-ONLY ENFORCEMENT:
  The ledger_lines table has no UPDATE or DELETE path; corrections are new
  offsetting pieces, matching the DocumentStore contract.

KEY TABLES:
  accounts:               CGNC chart of accounts
  documents:              Invoices/credit notes/purchases; lines and
                          payments stored as JSON columns
  ledger_lines:           Append-only general ledger
  bank_transactions:      Imported statement rows and reconciliation flags
  reconciliation_records: Applied pairings

AMOUNTS & DATES:
  Monetary amounts are stored as TEXT via decimal.Decimal.String to avoid
  REAL precision loss. Dates are RFC3339 TEXT.

WAL MODE:
  Opened with WAL so readers do not block the single writer. A sync.RWMutex
  serializes access on top, the same as the other store implementation.

USAGE:
  st, err := sqlite.New("./data/compta.db")    // ":memory:" for tests
  defer st.Close()

SEE ALSO:
  - compta/store.go: Interface definition
  - store/memory.go: In-memory implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/atlas/compta-engine/compta"
)

// Store implements compta.DocumentStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (and migrates) a SQLite store. Use ":memory:" for an in-memory
// database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL,
		label TEXT NOT NULL,
		class INTEGER NOT NULL,
		type TEXT NOT NULL,
		is_detail BOOLEAN NOT NULL DEFAULT TRUE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		doc_type TEXT NOT NULL,
		party_id TEXT NOT NULL,
		issue_date TEXT NOT NULL,
		due_date TEXT NOT NULL,
		lines_json TEXT NOT NULL,
		payments_json TEXT NOT NULL,
		status TEXT NOT NULL,
		created_by TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(doc_type);
	CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

	-- Append-only general ledger. No UPDATE, no DELETE.
	CREATE TABLE IF NOT EXISTS ledger_lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		piece_id TEXT NOT NULL,
		date TEXT NOT NULL,
		journal TEXT NOT NULL,
		account_id TEXT NOT NULL,
		label TEXT,
		debit TEXT NOT NULL,
		credit TEXT NOT NULL,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_piece ON ledger_lines(piece_id);
	CREATE INDEX IF NOT EXISTS idx_ledger_date ON ledger_lines(date);
	CREATE INDEX IF NOT EXISTS idx_ledger_account ON ledger_lines(account_id, date);

	CREATE TABLE IF NOT EXISTS bank_transactions (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		amount TEXT NOT NULL,
		label TEXT NOT NULL,
		reference TEXT,
		reconciled BOOLEAN NOT NULL DEFAULT FALSE,
		match_doc_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_bank_reconciled ON bank_transactions(reconciled);

	CREATE TABLE IF NOT EXISTS reconciliation_records (
		bank_id TEXT NOT NULL,
		doc_id TEXT NOT NULL,
		score REAL NOT NULL,
		applied_at TEXT NOT NULL,
		manual BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (bank_id, doc_id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SeedChart inserts the default chart of accounts if the table is empty.
func (s *Store) SeedChart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, a := range compta.DefaultChart() {
		if err := s.saveAccount(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *Store) SaveAccount(ctx context.Context, a compta.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveAccount(ctx, a)
}

func (s *Store) saveAccount(ctx context.Context, a compta.Account) error {
	query := `
		INSERT INTO accounts (id, number, label, class, type, is_detail, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			number = excluded.number,
			label = excluded.label,
			class = excluded.class,
			type = excluded.type,
			is_detail = excluded.is_detail,
			is_active = excluded.is_active
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.Number, a.Label, a.Class, a.Type, a.IsDetailAccount, a.IsActive)
	return err
}

func (s *Store) GetAccount(ctx context.Context, id string) (*compta.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var a compta.Account
	err := s.db.QueryRowContext(ctx,
		"SELECT id, number, label, class, type, is_detail, is_active FROM accounts WHERE id = ?", id,
	).Scan(&a.ID, &a.Number, &a.Label, &a.Class, &a.Type, &a.IsDetailAccount, &a.IsActive)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account %s: %w", id, compta.ErrAccountNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]compta.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, number, label, class, type, is_detail, is_active FROM accounts ORDER BY number")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []compta.Account
	for rows.Next() {
		var a compta.Account
		if err := rows.Scan(&a.ID, &a.Number, &a.Label, &a.Class, &a.Type, &a.IsDetailAccount, &a.IsActive); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// documentLineJSON / paymentJSON are the storage shapes; decimals travel as
// strings so nothing is lost in REAL conversion.
type documentLineJSON struct {
	Description string `json:"description,omitempty"`
	Qty         string `json:"qty"`
	UnitPrice   string `json:"unitPrice"`
	VATRate     string `json:"vatRate"`
	DiscountPct string `json:"discountPct,omitempty"`
}

type paymentJSON struct {
	Date   string `json:"date"`
	Amount string `json:"amount"`
	Mode   string `json:"mode"`
}

func (s *Store) SaveDocument(ctx context.Context, d compta.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	linesJSON, err := marshalLines(d.Lines)
	if err != nil {
		return err
	}
	paymentsJSON, err := marshalPayments(d.Payments)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (id, doc_type, party_id, issue_date, due_date, lines_json, payments_json, status, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			party_id = excluded.party_id,
			issue_date = excluded.issue_date,
			due_date = excluded.due_date,
			lines_json = excluded.lines_json,
			payments_json = excluded.payments_json,
			status = excluded.status
	`
	_, err = s.db.ExecContext(ctx, query,
		d.ID, d.Type, d.PartyID,
		d.IssueDate.UTC().Format(time.RFC3339),
		d.DueDate.UTC().Format(time.RFC3339),
		linesJSON, paymentsJSON, d.Status, d.CreatedBy)
	return err
}

const documentColumns = "id, doc_type, party_id, issue_date, due_date, lines_json, payments_json, status, created_by"

func (s *Store) GetDocument(ctx context.Context, id string) (*compta.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	d, err := scanDocument(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s: %w", id, compta.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) ListDocuments(ctx context.Context) ([]compta.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryDocuments(ctx, "SELECT "+documentColumns+" FROM documents ORDER BY id")
}

func (s *Store) ListOutstanding(ctx context.Context, docType compta.DocumentType) ([]compta.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// DueLeft is derived, so the filter happens in Go after a status cut.
	query := "SELECT " + documentColumns + " FROM documents WHERE status != 'draft'"
	args := []any{}
	if docType != "" {
		query += " AND doc_type = ?"
		args = append(args, docType)
	}
	query += " ORDER BY id"

	docs, err := s.queryDocuments(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := docs[:0]
	for _, d := range docs {
		if d.Outstanding().Abs().Cmp(compta.Tolerance) > 0 {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) queryDocuments(ctx context.Context, query string, args ...any) ([]compta.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []compta.Document
	for rows.Next() {
		d, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func scanDocument(scan func(dest ...any) error) (compta.Document, error) {
	var (
		d                  compta.Document
		issueDate, dueDate string
		linesJSON, payJSON string
		createdBy          sql.NullString
	)
	err := scan(&d.ID, &d.Type, &d.PartyID, &issueDate, &dueDate, &linesJSON, &payJSON, &d.Status, &createdBy)
	if err != nil {
		return d, err
	}
	d.IssueDate, _ = time.Parse(time.RFC3339, issueDate)
	d.DueDate, _ = time.Parse(time.RFC3339, dueDate)
	d.CreatedBy = createdBy.String
	if d.Lines, err = unmarshalLines(linesJSON); err != nil {
		return d, err
	}
	if d.Payments, err = unmarshalPayments(payJSON); err != nil {
		return d, err
	}
	return d, nil
}

// =============================================================================
// LEDGER (append-only)
// =============================================================================

func (s *Store) AppendLedgerLines(ctx context.Context, lines []compta.LedgerLine) ([]compta.LedgerLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	out := make([]compta.LedgerLine, 0, len(lines))
	for _, line := range lines {
		res, err := sqlTx.ExecContext(ctx, `
			INSERT INTO ledger_lines (piece_id, date, journal, account_id, label, debit, credit, created_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			line.PieceID,
			line.Date.UTC().Format(time.RFC3339),
			line.Journal,
			line.AccountID,
			line.Label,
			line.Debit.String(),
			line.Credit.String(),
			line.CreatedBy,
			now,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to append ledger line: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		line.ID = fmt.Sprintf("lg-%06d", id)
		out = append(out, line)
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

const ledgerColumns = "id, piece_id, date, journal, account_id, label, debit, credit, created_by"

func (s *Store) LedgerLinesByPiece(ctx context.Context, pieceID string) ([]compta.LedgerLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryLedger(ctx,
		"SELECT "+ledgerColumns+" FROM ledger_lines WHERE piece_id = ? ORDER BY id", pieceID)
}

func (s *Store) LedgerLinesInRange(ctx context.Context, from, to time.Time) ([]compta.LedgerLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryLedger(ctx,
		"SELECT "+ledgerColumns+" FROM ledger_lines WHERE date >= ? AND date <= ? ORDER BY date, id",
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
}

func (s *Store) queryLedger(ctx context.Context, query string, args ...any) ([]compta.LedgerLine, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []compta.LedgerLine
	for rows.Next() {
		var (
			line             compta.LedgerLine
			id               int64
			date             string
			debit, credit    string
			label, createdBy sql.NullString
		)
		if err := rows.Scan(&id, &line.PieceID, &date, &line.Journal, &line.AccountID,
			&label, &debit, &credit, &createdBy); err != nil {
			return nil, err
		}
		line.ID = fmt.Sprintf("lg-%06d", id)
		line.Date, _ = time.Parse(time.RFC3339, date)
		line.Label = label.String
		line.CreatedBy = createdBy.String
		line.Debit = mustDecimal(debit)
		line.Credit = mustDecimal(credit)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// =============================================================================
// BANK TRANSACTIONS
// =============================================================================

func (s *Store) AddBankTransactions(ctx context.Context, txns []compta.BankTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, bt := range txns {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO bank_transactions (id, date, amount, label, reference, reconciled, match_doc_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			bt.ID,
			bt.Date.UTC().Format(time.RFC3339),
			bt.Amount.String(),
			bt.Label,
			bt.Reference,
			bt.Reconciled,
			nullString(bt.MatchDocID),
		)
		if err != nil {
			return fmt.Errorf("failed to insert bank transaction: %w", err)
		}
	}
	return sqlTx.Commit()
}

const bankColumns = "id, date, amount, label, reference, reconciled, match_doc_id"

func (s *Store) GetBankTransaction(ctx context.Context, id string) (*compta.BankTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txns, err := s.queryBankTxns(ctx,
		"SELECT "+bankColumns+" FROM bank_transactions WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(txns) == 0 {
		return nil, fmt.Errorf("bank transaction %s: %w", id, compta.ErrBankTransactionNotFound)
	}
	return &txns[0], nil
}

func (s *Store) UpdateBankTransaction(ctx context.Context, id string, patch compta.BankTransactionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE bank_transactions SET reconciled = ?, match_doc_id = ? WHERE id = ?",
		patch.Reconciled, nullString(patch.MatchDocID), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("bank transaction %s: %w", id, compta.ErrBankTransactionNotFound)
	}
	return nil
}

func (s *Store) ListUnreconciledBankTransactions(ctx context.Context) ([]compta.BankTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryBankTxns(ctx,
		"SELECT "+bankColumns+" FROM bank_transactions WHERE reconciled = FALSE ORDER BY date, id")
}

func (s *Store) ListBankTransactions(ctx context.Context) ([]compta.BankTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryBankTxns(ctx,
		"SELECT "+bankColumns+" FROM bank_transactions ORDER BY date, id")
}

func (s *Store) queryBankTxns(ctx context.Context, query string, args ...any) ([]compta.BankTransaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []compta.BankTransaction
	for rows.Next() {
		var (
			bt                  compta.BankTransaction
			date, amount        string
			reference, matchDoc sql.NullString
		)
		if err := rows.Scan(&bt.ID, &date, &amount, &bt.Label, &reference, &bt.Reconciled, &matchDoc); err != nil {
			return nil, err
		}
		bt.Date, _ = time.Parse(time.RFC3339, date)
		bt.Amount = mustDecimal(amount)
		bt.Reference = reference.String
		bt.MatchDocID = matchDoc.String
		txns = append(txns, bt)
	}
	return txns, rows.Err()
}

// =============================================================================
// RECONCILIATION RECORDS
// =============================================================================

func (s *Store) AddReconciliation(ctx context.Context, rec compta.ReconciliationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_records (bank_id, doc_id, score, applied_at, manual)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(bank_id, doc_id) DO UPDATE SET
			score = excluded.score,
			applied_at = excluded.applied_at,
			manual = excluded.manual`,
		rec.BankID, rec.DocID, rec.Score,
		rec.AppliedAt.UTC().Format(time.RFC3339), rec.Manual)
	return err
}

func (s *Store) RemoveReconciliation(ctx context.Context, bankID, docID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM reconciliation_records WHERE bank_id = ? AND doc_id = ?", bankID, docID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) ListReconciliations(ctx context.Context) ([]compta.ReconciliationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT bank_id, doc_id, score, applied_at, manual FROM reconciliation_records ORDER BY applied_at, bank_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []compta.ReconciliationRecord
	for rows.Next() {
		var rec compta.ReconciliationRecord
		var appliedAt string
		if err := rows.Scan(&rec.BankID, &rec.DocID, &rec.Score, &appliedAt, &rec.Manual); err != nil {
			return nil, err
		}
		rec.AppliedAt, _ = time.Parse(time.RFC3339, appliedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func marshalLines(lines []compta.DocumentLine) (string, error) {
	out := make([]documentLineJSON, len(lines))
	for i, l := range lines {
		out[i] = documentLineJSON{
			Description: l.Description,
			Qty:         l.Qty.String(),
			UnitPrice:   l.UnitPrice.String(),
			VATRate:     l.VATRate.String(),
			DiscountPct: l.DiscountPct.String(),
		}
	}
	b, err := json.Marshal(out)
	return string(b), err
}

func unmarshalLines(raw string) ([]compta.DocumentLine, error) {
	var in []documentLineJSON
	if raw == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, err
	}
	lines := make([]compta.DocumentLine, len(in))
	for i, l := range in {
		lines[i] = compta.DocumentLine{
			Description: l.Description,
			Qty:         mustDecimal(l.Qty),
			UnitPrice:   mustDecimal(l.UnitPrice),
			VATRate:     mustDecimal(l.VATRate),
			DiscountPct: mustDecimal(l.DiscountPct),
		}
	}
	return lines, nil
}

func marshalPayments(payments []compta.Payment) (string, error) {
	out := make([]paymentJSON, len(payments))
	for i, p := range payments {
		out[i] = paymentJSON{
			Date:   p.Date.UTC().Format(time.RFC3339),
			Amount: p.Amount.String(),
			Mode:   string(p.Mode),
		}
	}
	b, err := json.Marshal(out)
	return string(b), err
}

func unmarshalPayments(raw string) ([]compta.Payment, error) {
	var in []paymentJSON
	if raw == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, err
	}
	payments := make([]compta.Payment, len(in))
	for i, p := range in {
		date, _ := time.Parse(time.RFC3339, p.Date)
		payments[i] = compta.Payment{
			Date:   date,
			Amount: mustDecimal(p.Amount),
			Mode:   compta.PaymentMode(p.Mode),
		}
	}
	return payments, nil
}
