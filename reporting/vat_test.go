package reporting_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas/compta-engine/compta"
	"github.com/atlas/compta-engine/reporting"
	"github.com/atlas/compta-engine/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	periodFrom = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	periodTo   = time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func doc(id string, docType compta.DocumentType, issue time.Time, lines ...compta.DocumentLine) compta.Document {
	return compta.Document{
		ID:        id,
		Type:      docType,
		IssueDate: issue,
		DueDate:   issue.AddDate(0, 1, 0),
		Status:    compta.StatusPosted,
		Lines:     lines,
	}
}

func lineAt(ht, rate string) compta.DocumentLine {
	return compta.DocumentLine{Description: "ligne", Qty: dec("1"), UnitPrice: dec(ht), VATRate: dec(rate)}
}

// =============================================================================
// VAT SUMMARY TESTS - ACCRUAL REGIME
// =============================================================================

func TestVATSummary_Accrual_BucketsByRate(t *testing.T) {
	// GIVEN: Two invoices (20% and 7%) and a purchase (20%) in the period
	mem := store.Seeded()
	ctx := context.Background()
	require.NoError(t, mem.SaveDocument(ctx, doc("INV-1", compta.DocInvoice, periodFrom.AddDate(0, 0, 5), lineAt("1000", "20"))))
	require.NoError(t, mem.SaveDocument(ctx, doc("INV-2", compta.DocInvoice, periodFrom.AddDate(0, 0, 6), lineAt("200", "7"))))
	require.NoError(t, mem.SaveDocument(ctx, doc("PUR-1", compta.DocPurchase, periodFrom.AddDate(0, 0, 7), lineAt("500", "20"))))

	ag := reporting.NewAggregator(mem, compta.RegimeAccrual)

	// WHEN: Summarized over the period
	s, err := ag.VATSummary(ctx, periodFrom, periodTo)
	require.NoError(t, err)

	// THEN: Collected has a 7% and a 20% bucket, sorted ascending by rate
	require.Len(t, s.Collected, 2)
	assert.True(t, s.Collected[0].Rate.Equal(dec("7")))
	assert.True(t, s.Collected[0].Base.Equal(dec("200")))
	assert.True(t, s.Collected[0].VAT.Equal(dec("14")))
	assert.True(t, s.Collected[1].Rate.Equal(dec("20")))
	assert.True(t, s.Collected[1].Base.Equal(dec("1000")))
	assert.True(t, s.Collected[1].VAT.Equal(dec("200")))

	require.Len(t, s.Deductible, 1)
	assert.True(t, s.Deductible[0].VAT.Equal(dec("100")))

	assert.True(t, s.TotalCollected.Equal(dec("214")))
	assert.True(t, s.TotalDeductible.Equal(dec("100")))
	assert.True(t, s.NetDue.Equal(dec("114")))
}

func TestVATSummary_Accrual_IgnoresDraftsAndOutOfPeriod(t *testing.T) {
	mem := store.Seeded()
	ctx := context.Background()

	draft := doc("INV-D", compta.DocInvoice, periodFrom.AddDate(0, 0, 5), lineAt("1000", "20"))
	draft.Status = compta.StatusDraft
	require.NoError(t, mem.SaveDocument(ctx, draft))
	require.NoError(t, mem.SaveDocument(ctx, doc("INV-OLD", compta.DocInvoice, periodFrom.AddDate(0, -2, 0), lineAt("1000", "20"))))

	ag := reporting.NewAggregator(mem, compta.RegimeAccrual)
	s, err := ag.VATSummary(ctx, periodFrom, periodTo)
	require.NoError(t, err)

	assert.Empty(t, s.Collected)
	assert.True(t, s.NetDue.IsZero())
}

func TestVATSummary_EmptyPeriod_ZeroTotalsNoError(t *testing.T) {
	ag := reporting.NewAggregator(store.Seeded(), compta.RegimeAccrual)

	s, err := ag.VATSummary(context.Background(), periodFrom, periodTo)

	require.NoError(t, err)
	assert.Empty(t, s.Collected)
	assert.Empty(t, s.Deductible)
	assert.True(t, s.TotalCollected.IsZero())
	assert.True(t, s.TotalDeductible.IsZero())
	assert.True(t, s.NetDue.IsZero())
}

// =============================================================================
// VAT SUMMARY TESTS - CASH BASIS REGIME
// =============================================================================

func TestVATSummary_CashBasis_ProRataOnPayments(t *testing.T) {
	// GIVEN: A 1200 TTC invoice issued before the period, half paid in it
	mem := store.Seeded()
	ctx := context.Background()
	d := doc("INV-1", compta.DocInvoice, periodFrom.AddDate(0, -1, 0), lineAt("1000", "20"))
	d.Payments = []compta.Payment{
		{Date: periodFrom.AddDate(0, 0, 10), Amount: dec("600"), Mode: compta.PayTransfer},
	}
	require.NoError(t, mem.SaveDocument(ctx, d))

	ag := reporting.NewAggregator(mem, compta.RegimeCashBasis)

	// WHEN: Summarized over the period
	s, err := ag.VATSummary(ctx, periodFrom, periodTo)
	require.NoError(t, err)

	// THEN: Half the base and VAT count: 600/1200 of (1000, 200)
	require.Len(t, s.Collected, 1)
	assert.True(t, s.Collected[0].Base.Equal(dec("500")), "base = %s", s.Collected[0].Base)
	assert.True(t, s.Collected[0].VAT.Equal(dec("100")), "vat = %s", s.Collected[0].VAT)
}

func TestVATSummary_CashBasis_UnpaidInvoice_NotCounted(t *testing.T) {
	mem := store.Seeded()
	ctx := context.Background()
	require.NoError(t, mem.SaveDocument(ctx, doc("INV-1", compta.DocInvoice, periodFrom.AddDate(0, 0, 5), lineAt("1000", "20"))))

	ag := reporting.NewAggregator(mem, compta.RegimeCashBasis)
	s, err := ag.VATSummary(ctx, periodFrom, periodTo)
	require.NoError(t, err)

	assert.Empty(t, s.Collected)
}
