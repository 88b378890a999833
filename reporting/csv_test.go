package reporting_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas/compta-engine/compta"
	"github.com/atlas/compta-engine/reporting"
)

// =============================================================================
// CSV EXPORT TESTS
// =============================================================================

func TestWriteReconciliationCSV_BOMAndSemicolons(t *testing.T) {
	records := []compta.ReconciliationRecord{
		{
			BankID:    "bnk-1",
			DocID:     "INV-42",
			Score:     0.9,
			AppliedAt: time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC),
			Manual:    false,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, reporting.WriteReconciliationCSV(&buf, records))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\xEF\xBB\xBF"), "missing UTF-8 BOM")
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(out, "\xEF\xBB\xBF")), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "bank_id;doc_id;score;applied_at;manual", lines[0])
	assert.Equal(t, "bnk-1;INV-42;0.90;2025-03-20T10:00:00Z;false", lines[1])
}

func TestWriteVATCSV_RoundTripThroughSummary(t *testing.T) {
	s := reporting.VATSummary{
		Regime: compta.RegimeAccrual,
		Collected: []reporting.RateBucket{
			{Rate: dec("20"), Base: dec("1000"), VAT: dec("200")},
		},
		Deductible: []reporting.RateBucket{
			{Rate: dec("20"), Base: dec("500"), VAT: dec("100")},
		},
		TotalCollected:  dec("200"),
		TotalDeductible: dec("100"),
		NetDue:          dec("100"),
	}

	var buf bytes.Buffer
	require.NoError(t, reporting.WriteVATCSV(&buf, s))

	out := strings.TrimPrefix(buf.String(), "\xEF\xBB\xBF")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "section;rate;base;vat", lines[0])
	assert.Equal(t, "collected;20;1000.00;200.00", lines[1])
	assert.Equal(t, "deductible;20;500.00;100.00", lines[2])
	assert.Equal(t, "net_due;;;100.00", lines[5])
}
