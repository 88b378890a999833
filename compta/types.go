/*
Package compta provides the core domain model for CGNC double-entry bookkeeping.

PURPOSE:
  This package contains the shared types and invariants used by the posting,
  reconciliation and reporting engines: accounts, commercial documents,
  ledger lines, bank transactions and reconciliation records.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: A CGNC chart-of-accounts entry (class 1-8)
  - Document: An invoice, credit note or purchase with lines and payments
  - Totals: Derived HT/VAT/TTC/DueLeft amounts, always recomputed
  - LedgerLine: One debit-or-credit row of a balanced piece
  - BankTransaction / ReconciliationRecord: Bank statement rows and their
    pairings with documents

DESIGN PRINCIPLES:
  1. Precision: All money is decimal.Decimal, rounded to 2 places
  2. Immutability: Ledger lines are append-only; corrections are new pieces
  3. Derived state: Totals and outstanding balances are never stored,
     always recomputed from lines and payments
  4. Type safety: Tagged document types with a closed field set

SEE ALSO:
  - chart.go: CGNC account numbers and the default chart
  - store.go: DocumentStore persistence interface
  - errors.go: Sentinel and structured errors
*/
package compta

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tolerance is the maximum absolute debit/credit difference accepted on a
// balanced piece, and the minimum outstanding amount considered unpaid.
var Tolerance = decimal.RequireFromString("0.01")

// Round2 rounds a monetary amount to 2 decimal places, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// =============================================================================
// ACCOUNT - CGNC chart-of-accounts entry
// =============================================================================

type AccountType string

const (
	AccountAsset     AccountType = "asset"
	AccountLiability AccountType = "liability"
	AccountEquity    AccountType = "equity"
	AccountExpense   AccountType = "expense"
	AccountRevenue   AccountType = "revenue"
	AccountTreasury  AccountType = "treasury"
)

type Account struct {
	ID              string
	Number          string
	Label           string
	Class           int // CGNC class 1-8, first digit of Number
	Type            AccountType
	IsDetailAccount bool
	IsActive        bool
}

// Postable reports whether ledger lines may reference this account.
func (a Account) Postable() bool { return a.IsDetailAccount && a.IsActive }

// =============================================================================
// DOCUMENT - Invoice, credit note or purchase
// =============================================================================

type DocumentType string

const (
	DocInvoice    DocumentType = "invoice"
	DocCreditNote DocumentType = "credit_note"
	DocPurchase   DocumentType = "purchase"
)

// DocumentStatus is an explicit state machine: Draft -> Confirmed -> Posted.
// The poster refuses transitions that skip states.
type DocumentStatus string

const (
	StatusDraft     DocumentStatus = "draft"
	StatusConfirmed DocumentStatus = "confirmed"
	StatusPosted    DocumentStatus = "posted"
)

type DocumentLine struct {
	Description string
	Qty         decimal.Decimal
	UnitPrice   decimal.Decimal
	VATRate     decimal.Decimal // percentage: 20 means 20%
	DiscountPct decimal.Decimal
}

type PaymentMode string

const (
	PayTransfer PaymentMode = "transfer"
	PayCheck    PaymentMode = "check"
	PayCard     PaymentMode = "card"
	PayCash     PaymentMode = "cash"
)

type Payment struct {
	Date   time.Time
	Amount decimal.Decimal
	Mode   PaymentMode
}

type Document struct {
	ID        string
	Type      DocumentType
	PartyID   string // customer for invoice/credit note, supplier for purchase
	IssueDate time.Time
	DueDate   time.Time
	Lines     []DocumentLine
	Payments  []Payment
	Status    DocumentStatus
	CreatedBy string
}

// Totals are derived amounts. They are computed on demand from lines and
// payments and never stored, so they cannot go stale.
type Totals struct {
	HT      decimal.Decimal
	VAT     decimal.Decimal
	TTC     decimal.Decimal
	DueLeft decimal.Decimal
}

// ComputeTotals derives HT/VAT/TTC/DueLeft from the document lines and
// payments. Each line is rounded to 2 places before summation. Credit note
// amounts are stored as signed negatives; totals keep that sign.
func (d Document) ComputeTotals() Totals {
	var t Totals
	hundred := decimal.NewFromInt(100)
	for _, l := range d.Lines {
		ht := l.Qty.Mul(l.UnitPrice)
		if !l.DiscountPct.IsZero() {
			ht = ht.Mul(hundred.Sub(l.DiscountPct)).Div(hundred)
		}
		ht = Round2(ht)
		vat := Round2(ht.Mul(l.VATRate).Div(hundred))
		t.HT = t.HT.Add(ht)
		t.VAT = t.VAT.Add(vat)
	}
	t.TTC = t.HT.Add(t.VAT)

	paid := decimal.Zero
	for _, p := range d.Payments {
		paid = paid.Add(p.Amount)
	}
	t.DueLeft = t.TTC.Sub(paid)
	return t
}

// Outstanding returns the unsettled amount. Recomputed on every call.
func (d Document) Outstanding() decimal.Decimal {
	return d.ComputeTotals().DueLeft
}

// InflowSign is +1 for documents settled by money coming in (customer
// invoices) and -1 for documents settled by money going out (purchases,
// credit note refunds). Used by the reconciliation sign-consistency filter.
func (d Document) InflowSign() int {
	switch d.Type {
	case DocInvoice:
		return 1
	default:
		return -1
	}
}

// =============================================================================
// LEDGER LINE - One debit-or-credit row of a piece
// =============================================================================

// Journal codes follow the usual Moroccan practice.
type Journal string

const (
	JournalSales     Journal = "VT" // ventes
	JournalPurchases Journal = "AC" // achats
	JournalBank      Journal = "BQ" // banque
	JournalCash      Journal = "CS" // caisse
	JournalMisc      Journal = "OD" // opérations diverses
)

// LedgerLine is one row of the general ledger. Exactly one of Debit/Credit
// is nonzero and both are >= 0. All lines sharing a PieceID balance to zero
// within Tolerance. Lines are append-only; a mistake is corrected by posting
// an offsetting piece, never by editing.
type LedgerLine struct {
	ID        string
	PieceID   string
	Date      time.Time
	Journal   Journal
	AccountID string
	Label     string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	CreatedBy string
}

// =============================================================================
// BANK TRANSACTION & RECONCILIATION RECORD
// =============================================================================

// BankTransaction is an imported bank statement row. Amount is signed:
// positive for inflows, negative for outflows.
//
// Invariant: Reconciled == (MatchDocID != "").
type BankTransaction struct {
	ID         string
	Date       time.Time
	Amount     decimal.Decimal
	Label      string
	Reference  string
	Reconciled bool
	MatchDocID string
}

// BankTransactionPatch carries the only mutation the matcher performs.
type BankTransactionPatch struct {
	Reconciled bool
	MatchDocID string
}

// ReconciliationRecord links a bank transaction to a document. Records are
// append/remove only; removing one clears the reconciled flags on both sides.
type ReconciliationRecord struct {
	BankID    string
	DocID     string
	Score     float64
	AppliedAt time.Time
	Manual    bool
}
