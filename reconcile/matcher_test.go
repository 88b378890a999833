package reconcile_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas/compta-engine/compta"
	"github.com/atlas/compta-engine/reconcile"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var due = time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// outstandingInvoice builds an unpaid posted invoice with the given TTC.
// One line at 0% VAT keeps the arithmetic transparent.
func outstandingInvoice(id, ttc string) compta.Document {
	return compta.Document{
		ID:        id,
		Type:      compta.DocInvoice,
		IssueDate: due.AddDate(0, -1, 0),
		DueDate:   due,
		Status:    compta.StatusPosted,
		Lines: []compta.DocumentLine{
			{Description: "ligne", Qty: dec("1"), UnitPrice: dec(ttc), VATRate: decimal.Zero},
		},
	}
}

func bankTxn(id, amount, reference string, date time.Time) compta.BankTransaction {
	return compta.BankTransaction{
		ID:        id,
		Date:      date,
		Amount:    dec(amount),
		Label:     "VIR",
		Reference: reference,
	}
}

// =============================================================================
// AUTO MATCH TESTS
// =============================================================================

func TestAutoMatch_ExactAmountAndReference_Matches(t *testing.T) {
	// GIVEN: One inflow exactly matching an invoice, reference carrying its id
	m := reconcile.NewMatcher(reconcile.DefaultParams())
	txns := []compta.BankTransaction{bankTxn("bnk-1", "1200", "FAC INV-42", due)}
	docs := []compta.Document{outstandingInvoice("INV-42", "1200")}

	// WHEN: Matching
	matches := m.AutoMatch(txns, docs)

	// THEN: One proposal at full score (0.6 + 0.3 + 0.1)
	require.Len(t, matches, 1)
	assert.Equal(t, "bnk-1", matches[0].BankID)
	assert.Equal(t, "INV-42", matches[0].DocID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestAutoMatch_AmountAndReference_LatePayment_StillMatches(t *testing.T) {
	// GIVEN: Exact amount and a reference hit, but payment 60 days after
	// the due date, so only two of the three signals fire
	m := reconcile.NewMatcher(reconcile.DefaultParams())
	txns := []compta.BankTransaction{bankTxn("bnk-1", "1200", "FAC INV-42", due.AddDate(0, 2, 0))}
	docs := []compta.Document{outstandingInvoice("INV-42", "1200")}

	// WHEN: Matching
	matches := m.AutoMatch(txns, docs)

	// THEN: 0.6 + 0.3 clears the 0.9 threshold despite float accumulation
	require.Len(t, matches, 1)
	assert.Equal(t, "INV-42", matches[0].DocID)
	assert.InDelta(t, 0.9, matches[0].Score, 1e-9)
}

func TestAutoMatch_ExactAmountOnly_BelowThreshold(t *testing.T) {
	// GIVEN: Amount matches but no reference and the date is far off
	m := reconcile.NewMatcher(reconcile.DefaultParams())
	txns := []compta.BankTransaction{bankTxn("bnk-1", "1200", "", due.AddDate(0, 2, 0))}
	docs := []compta.Document{outstandingInvoice("INV-42", "1200")}

	// WHEN: Matching
	matches := m.AutoMatch(txns, docs)

	// THEN: 0.6 alone does not clear the 0.9 threshold
	assert.Empty(t, matches)
}

func TestAutoMatch_AmountPlusDate_Matches(t *testing.T) {
	// GIVEN: Exact amount, payment 3 days after due date, no reference
	params := reconcile.DefaultParams()
	params.Threshold = 0.7
	m := reconcile.NewMatcher(params)
	txns := []compta.BankTransaction{bankTxn("bnk-1", "1200", "", due.AddDate(0, 0, 3))}
	docs := []compta.Document{outstandingInvoice("INV-42", "1200")}

	matches := m.AutoMatch(txns, docs)

	require.Len(t, matches, 1)
	assert.InDelta(t, 0.7, matches[0].Score, 1e-9)
}

func TestAutoMatch_SignMismatch_Skipped(t *testing.T) {
	// GIVEN: An outflow against a customer invoice
	m := reconcile.NewMatcher(reconcile.DefaultParams())
	txns := []compta.BankTransaction{bankTxn("bnk-1", "-1200", "FAC INV-42", due)}
	docs := []compta.Document{outstandingInvoice("INV-42", "1200")}

	matches := m.AutoMatch(txns, docs)

	assert.Empty(t, matches)
}

func TestAutoMatch_ReconciledTransaction_Skipped(t *testing.T) {
	m := reconcile.NewMatcher(reconcile.DefaultParams())
	txn := bankTxn("bnk-1", "1200", "FAC INV-42", due)
	txn.Reconciled = true
	txn.MatchDocID = "INV-7"

	matches := m.AutoMatch([]compta.BankTransaction{txn}, []compta.Document{outstandingInvoice("INV-42", "1200")})

	assert.Empty(t, matches)
}

func TestAutoMatch_SettledDocument_Skipped(t *testing.T) {
	// GIVEN: An invoice already fully paid
	m := reconcile.NewMatcher(reconcile.DefaultParams())
	doc := outstandingInvoice("INV-42", "1200")
	doc.Payments = []compta.Payment{{Date: due, Amount: dec("1200"), Mode: compta.PayTransfer}}

	matches := m.AutoMatch([]compta.BankTransaction{bankTxn("bnk-1", "1200", "FAC INV-42", due)}, []compta.Document{doc})

	assert.Empty(t, matches)
}

func TestAutoMatch_TwoEqualInvoices_ConsumesEachOnce(t *testing.T) {
	// GIVEN: One inflow that fits two identical outstanding invoices
	m := reconcile.NewMatcher(reconcile.DefaultParams())
	txns := []compta.BankTransaction{bankTxn("bnk-1", "1200", "paiement", due)}
	docs := []compta.Document{
		outstandingInvoice("INV-41", "1200"),
		outstandingInvoice("INV-42", "1200"),
	}
	params := reconcile.DefaultParams()
	params.Threshold = 0.7 // amount + date only
	m = reconcile.NewMatcher(params)

	// WHEN: Matching
	matches := m.AutoMatch(txns, docs)

	// THEN: At most one proposal; ties break to the lower document id
	require.Len(t, matches, 1)
	assert.Equal(t, "INV-41", matches[0].DocID)
}

func TestAutoMatch_Deterministic(t *testing.T) {
	// GIVEN: Several transactions and invoices with overlapping candidates
	params := reconcile.DefaultParams()
	params.Threshold = 0.7
	m := reconcile.NewMatcher(params)
	txns := []compta.BankTransaction{
		bankTxn("bnk-1", "500", "", due),
		bankTxn("bnk-2", "500", "", due.AddDate(0, 0, 1)),
		bankTxn("bnk-3", "800", "FAC INV-3", due),
	}
	docs := []compta.Document{
		outstandingInvoice("INV-1", "500"),
		outstandingInvoice("INV-2", "500"),
		outstandingInvoice("INV-3", "800"),
	}

	// WHEN: Matching repeatedly
	first := m.AutoMatch(txns, docs)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, m.AutoMatch(txns, docs))
	}
}

func TestAutoMatch_Purchase_OutflowMatches(t *testing.T) {
	// GIVEN: An outflow and an outstanding purchase of the same magnitude
	params := reconcile.DefaultParams()
	params.Threshold = 0.7
	m := reconcile.NewMatcher(params)
	doc := outstandingInvoice("PUR-9", "750")
	doc.Type = compta.DocPurchase
	txns := []compta.BankTransaction{bankTxn("bnk-1", "-750", "", due)}

	matches := m.AutoMatch(txns, []compta.Document{doc})

	require.Len(t, matches, 1)
	assert.Equal(t, "PUR-9", matches[0].DocID)
}
