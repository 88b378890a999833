// Package store provides DocumentStore implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/atlas/compta-engine/compta"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu              sync.RWMutex
	accounts        map[string]compta.Account
	documents       map[string]compta.Document
	ledger          []compta.LedgerLine
	bankTxns        map[string]compta.BankTransaction
	reconciliations []compta.ReconciliationRecord
	nextLineID      int
}

func NewMemory() *Memory {
	return &Memory{
		accounts:  make(map[string]compta.Account),
		documents: make(map[string]compta.Document),
		bankTxns:  make(map[string]compta.BankTransaction),
	}
}

// Seeded returns a memory store preloaded with the default chart.
func Seeded() *Memory {
	m := NewMemory()
	for _, a := range compta.DefaultChart() {
		m.accounts[a.ID] = a
	}
	return m
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (m *Memory) SaveAccount(_ context.Context, a compta.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	return nil
}

func (m *Memory) GetAccount(_ context.Context, id string) (*compta.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, compta.ErrAccountNotFound)
	}
	return &a, nil
}

func (m *Memory) ListAccounts(_ context.Context) ([]compta.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]compta.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func (m *Memory) SaveDocument(_ context.Context, d compta.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[d.ID] = copyDocument(d)
	return nil
}

func (m *Memory) GetDocument(_ context.Context, id string) (*compta.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, compta.ErrDocumentNotFound)
	}
	out := copyDocument(d)
	return &out, nil
}

func (m *Memory) ListDocuments(_ context.Context) ([]compta.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]compta.Document, 0, len(m.documents))
	for _, d := range m.documents {
		out = append(out, copyDocument(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListOutstanding(_ context.Context, docType compta.DocumentType) ([]compta.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []compta.Document
	for _, d := range m.documents {
		if docType != "" && d.Type != docType {
			continue
		}
		if d.Status == compta.StatusDraft {
			continue
		}
		if d.Outstanding().Abs().Cmp(compta.Tolerance) > 0 {
			out = append(out, copyDocument(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// LEDGER (append-only)
// =============================================================================

func (m *Memory) AppendLedgerLines(_ context.Context, lines []compta.LedgerLine) ([]compta.LedgerLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]compta.LedgerLine, 0, len(lines))
	for _, line := range lines {
		m.nextLineID++
		line.ID = fmt.Sprintf("lg-%06d", m.nextLineID)
		m.ledger = append(m.ledger, line)
		out = append(out, line)
	}
	return out, nil
}

func (m *Memory) LedgerLinesByPiece(_ context.Context, pieceID string) ([]compta.LedgerLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []compta.LedgerLine
	for _, line := range m.ledger {
		if line.PieceID == pieceID {
			out = append(out, line)
		}
	}
	return out, nil
}

func (m *Memory) LedgerLinesInRange(_ context.Context, from, to time.Time) ([]compta.LedgerLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []compta.LedgerLine
	for _, line := range m.ledger {
		if !line.Date.Before(from) && !line.Date.After(to) {
			out = append(out, line)
		}
	}
	return out, nil
}

// =============================================================================
// BANK TRANSACTIONS
// =============================================================================

func (m *Memory) AddBankTransactions(_ context.Context, txns []compta.BankTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, bt := range txns {
		m.bankTxns[bt.ID] = bt
	}
	return nil
}

func (m *Memory) GetBankTransaction(_ context.Context, id string) (*compta.BankTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bt, ok := m.bankTxns[id]
	if !ok {
		return nil, fmt.Errorf("bank transaction %s: %w", id, compta.ErrBankTransactionNotFound)
	}
	return &bt, nil
}

func (m *Memory) UpdateBankTransaction(_ context.Context, id string, patch compta.BankTransactionPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bt, ok := m.bankTxns[id]
	if !ok {
		return fmt.Errorf("bank transaction %s: %w", id, compta.ErrBankTransactionNotFound)
	}
	bt.Reconciled = patch.Reconciled
	bt.MatchDocID = patch.MatchDocID
	m.bankTxns[id] = bt
	return nil
}

func (m *Memory) ListUnreconciledBankTransactions(_ context.Context) ([]compta.BankTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []compta.BankTransaction
	for _, bt := range m.bankTxns {
		if !bt.Reconciled {
			out = append(out, bt)
		}
	}
	sortBankTxns(out)
	return out, nil
}

func (m *Memory) ListBankTransactions(_ context.Context) ([]compta.BankTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]compta.BankTransaction, 0, len(m.bankTxns))
	for _, bt := range m.bankTxns {
		out = append(out, bt)
	}
	sortBankTxns(out)
	return out, nil
}

// =============================================================================
// RECONCILIATION RECORDS
// =============================================================================

func (m *Memory) AddReconciliation(_ context.Context, rec compta.ReconciliationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconciliations = append(m.reconciliations, rec)
	return nil
}

func (m *Memory) RemoveReconciliation(_ context.Context, bankID, docID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rec := range m.reconciliations {
		if rec.BankID == bankID && rec.DocID == docID {
			m.reconciliations = append(m.reconciliations[:i], m.reconciliations[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) ListReconciliations(_ context.Context) ([]compta.ReconciliationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]compta.ReconciliationRecord, len(m.reconciliations))
	copy(out, m.reconciliations)
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// copyDocument deep-copies slices so callers cannot mutate stored state.
func copyDocument(d compta.Document) compta.Document {
	out := d
	out.Lines = append([]compta.DocumentLine(nil), d.Lines...)
	out.Payments = append([]compta.Payment(nil), d.Payments...)
	return out
}

func sortBankTxns(txns []compta.BankTransaction) {
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.Before(txns[j].Date)
		}
		return txns[i].ID < txns[j].ID
	})
}
