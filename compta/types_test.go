package compta_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/atlas/compta-engine/compta"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// TOTALS TESTS
// =============================================================================

func TestComputeTotals_PerLineRounding(t *testing.T) {
	// GIVEN: Two lines whose VAT each rounds at 2 places
	doc := compta.Document{
		Type: compta.DocInvoice,
		Lines: []compta.DocumentLine{
			{Qty: dec("1"), UnitPrice: dec("33.33"), VATRate: dec("20")},
			{Qty: dec("1"), UnitPrice: dec("33.33"), VATRate: dec("20")},
		},
	}

	// WHEN: Totals are computed
	totals := doc.ComputeTotals()

	// THEN: Each line rounds independently: 2 x 6.67, not round(13.332)
	assert.True(t, totals.HT.Equal(dec("66.66")))
	assert.True(t, totals.VAT.Equal(dec("13.34")), "vat = %s", totals.VAT)
	assert.True(t, totals.TTC.Equal(dec("80")))
}

func TestComputeTotals_DiscountAppliedBeforeVAT(t *testing.T) {
	doc := compta.Document{
		Type: compta.DocInvoice,
		Lines: []compta.DocumentLine{
			{Qty: dec("10"), UnitPrice: dec("100"), VATRate: dec("20"), DiscountPct: dec("10")},
		},
	}

	totals := doc.ComputeTotals()

	// 1000 - 10% = 900 HT, VAT on the discounted base
	assert.True(t, totals.HT.Equal(dec("900")))
	assert.True(t, totals.VAT.Equal(dec("180")))
	assert.True(t, totals.TTC.Equal(dec("1080")))
}

func TestComputeTotals_DueLeftTracksPayments(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	doc := compta.Document{
		Type: compta.DocInvoice,
		Lines: []compta.DocumentLine{
			{Qty: dec("10"), UnitPrice: dec("100"), VATRate: dec("20")},
		},
		Payments: []compta.Payment{
			{Date: day, Amount: dec("500"), Mode: compta.PayTransfer},
			{Date: day.AddDate(0, 0, 5), Amount: dec("200"), Mode: compta.PayCheck},
		},
	}

	totals := doc.ComputeTotals()

	assert.True(t, totals.TTC.Equal(dec("1200")))
	assert.True(t, totals.DueLeft.Equal(dec("500")))
	assert.True(t, doc.Outstanding().Equal(dec("500")))
}

func TestComputeTotals_CreditNote_KeepsNegativeSign(t *testing.T) {
	doc := compta.Document{
		Type: compta.DocCreditNote,
		Lines: []compta.DocumentLine{
			{Qty: dec("-1"), UnitPrice: dec("100"), VATRate: dec("20")},
		},
	}

	totals := doc.ComputeTotals()

	assert.True(t, totals.HT.Equal(dec("-100")))
	assert.True(t, totals.TTC.Equal(dec("-120")))
}

// =============================================================================
// SIGN & ACCOUNT TESTS
// =============================================================================

func TestInflowSign(t *testing.T) {
	assert.Equal(t, 1, compta.Document{Type: compta.DocInvoice}.InflowSign())
	assert.Equal(t, -1, compta.Document{Type: compta.DocPurchase}.InflowSign())
	assert.Equal(t, -1, compta.Document{Type: compta.DocCreditNote}.InflowSign())
}

func TestAccount_Postable(t *testing.T) {
	a := compta.Account{IsDetailAccount: true, IsActive: true}
	assert.True(t, a.Postable())

	a.IsActive = false
	assert.False(t, a.Postable())

	a = compta.Account{IsDetailAccount: false, IsActive: true}
	assert.False(t, a.Postable())
}

func TestTreasuryAccount(t *testing.T) {
	assert.Equal(t, compta.AcctCash, compta.TreasuryAccount(compta.PayCash))
	assert.Equal(t, compta.AcctBank, compta.TreasuryAccount(compta.PayTransfer))
	assert.Equal(t, compta.AcctBank, compta.TreasuryAccount(compta.PayCheck))
	assert.Equal(t, compta.AcctBank, compta.TreasuryAccount(compta.PayCard))
}
