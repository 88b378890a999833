package bankfeed_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas/compta-engine/bankfeed"
	"github.com/atlas/compta-engine/compta"
)

// =============================================================================
// JSON IMPORT TESTS
// =============================================================================

func TestParseJSON_ValidBatch(t *testing.T) {
	input := `[
		{"date": "2025-03-10", "amount": 1200.5, "label": "VIR CLIENT", "reference": "FAC INV-42"},
		{"date": "2025-03-11T00:00:00Z", "amount": -300, "label": "PRLV FOURNISSEUR"}
	]`

	txns, err := bankfeed.ParseJSON(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, txns, 2)
	assert.True(t, txns[0].Amount.Equal(decimal.RequireFromString("1200.5")))
	assert.Equal(t, "VIR CLIENT", txns[0].Label)
	assert.Equal(t, "FAC INV-42", txns[0].Reference)
	assert.True(t, txns[1].Amount.IsNegative())
	assert.Empty(t, txns[1].Reference)
	assert.False(t, txns[0].Reconciled)
	assert.NotEqual(t, txns[0].ID, txns[1].ID)
}

func TestParseJSON_MissingAmount_RejectsWholeBatchWithIndex(t *testing.T) {
	// GIVEN: Row 1 of 3 has no amount
	input := `[
		{"date": "2025-03-10", "amount": 100, "label": "ok"},
		{"date": "2025-03-11", "label": "no amount"},
		{"date": "2025-03-12", "amount": 50, "label": "ok too"}
	]`

	// WHEN: Parsed
	txns, err := bankfeed.ParseJSON(strings.NewReader(input))

	// THEN: Nothing imported, the offending index is reported
	assert.Nil(t, txns)
	var rowErr *compta.RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 1, rowErr.Index)
	assert.Equal(t, "amount", rowErr.Field)
	assert.ErrorIs(t, err, compta.ErrInvalidImportRow)
}

func TestParseJSON_ZeroAmount_Accepted(t *testing.T) {
	// An explicit zero is not a missing amount.
	input := `[{"date": "2025-03-10", "amount": 0, "label": "frais"}]`

	txns, err := bankfeed.ParseJSON(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.True(t, txns[0].Amount.IsZero())
}

func TestParseJSON_BadDate_Rejected(t *testing.T) {
	input := `[{"date": "10/03/2025", "amount": 100, "label": "x"}]`

	_, err := bankfeed.ParseJSON(strings.NewReader(input))

	var rowErr *compta.RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, "date", rowErr.Field)
}

func TestParseJSON_BlankLabel_Rejected(t *testing.T) {
	input := `[{"date": "2025-03-10", "amount": 100, "label": "   "}]`

	_, err := bankfeed.ParseJSON(strings.NewReader(input))

	var rowErr *compta.RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, "label", rowErr.Field)
}

// =============================================================================
// CSV IMPORT TESTS
// =============================================================================

func TestParseCSV_SemicolonWithBOM(t *testing.T) {
	// GIVEN: A statement as banking portals export it: BOM, semicolons,
	// comma decimal separator
	input := "\xEF\xBB\xBFdate;amount;label;reference\n" +
		"2025-03-10;1200,50;VIR CLIENT;FAC INV-42\n" +
		"2025-03-11;-300;PRLV FOURNISSEUR;\n"

	txns, err := bankfeed.ParseCSV(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, txns, 2)
	assert.True(t, txns[0].Amount.Equal(decimal.RequireFromString("1200.5")))
	assert.Equal(t, "FAC INV-42", txns[0].Reference)
	assert.True(t, txns[1].Amount.Equal(decimal.RequireFromString("-300")))
}

func TestParseCSV_LargeAmount_KeepsExactValue(t *testing.T) {
	// GIVEN: An amount beyond float64's 53-bit mantissa; any float
	// round-trip would corrupt the cents
	input := "date;amount;label\n2025-03-10;12345678901234567,89;VIR GROUPE\n"

	// WHEN: Parsed
	txns, err := bankfeed.ParseCSV(strings.NewReader(input))
	require.NoError(t, err)

	// THEN: The decimal survives digit for digit
	require.Len(t, txns, 1)
	assert.Equal(t, "12345678901234567.89", txns[0].Amount.String())
}

func TestParseCSV_ReorderedColumns(t *testing.T) {
	input := "label;reference;date;amount\n" +
		"VIR CLIENT;FAC INV-42;2025-03-10;1200.50\n"

	txns, err := bankfeed.ParseCSV(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, txns, 1)
	assert.Equal(t, "VIR CLIENT", txns[0].Label)
	assert.True(t, txns[0].Amount.Equal(decimal.RequireFromString("1200.50")))
}

func TestParseCSV_MissingReferenceColumn_OK(t *testing.T) {
	input := "date;amount;label\n2025-03-10;100;VIR\n"

	txns, err := bankfeed.ParseCSV(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, txns, 1)
	assert.Empty(t, txns[0].Reference)
}

func TestParseCSV_MissingAmountValue_RejectedWithIndex(t *testing.T) {
	input := "date;amount;label\n" +
		"2025-03-10;100;ok\n" +
		"2025-03-11;;broken\n"

	_, err := bankfeed.ParseCSV(strings.NewReader(input))

	var rowErr *compta.RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 1, rowErr.Index)
	assert.Equal(t, "amount", rowErr.Field)
}

func TestParseCSV_HeaderOnly_EmptyBatch(t *testing.T) {
	txns, err := bankfeed.ParseCSV(strings.NewReader("date;amount;label\n"))

	require.NoError(t, err)
	assert.Empty(t, txns)
}
