/*
csv.go - CSV export for reconciliation and VAT reports

Exports are semicolon-delimited, UTF-8 with BOM, which is what spreadsheet
tools on the receiving end expect from Moroccan accounting software.
*/
package reporting

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/atlas/compta-engine/compta"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func newExportWriter(w io.Writer) (*csv.Writer, error) {
	if _, err := w.Write(utf8BOM); err != nil {
		return nil, err
	}
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	return cw, nil
}

// WriteReconciliationCSV exports applied reconciliation records.
func WriteReconciliationCSV(w io.Writer, records []compta.ReconciliationRecord) error {
	cw, err := newExportWriter(w)
	if err != nil {
		return err
	}
	if err := cw.Write([]string{"bank_id", "doc_id", "score", "applied_at", "manual"}); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.BankID,
			rec.DocID,
			strconv.FormatFloat(rec.Score, 'f', 2, 64),
			rec.AppliedAt.Format(time.RFC3339),
			strconv.FormatBool(rec.Manual),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteVATCSV exports a VAT summary, one row per rate bucket plus totals.
func WriteVATCSV(w io.Writer, s VATSummary) error {
	cw, err := newExportWriter(w)
	if err != nil {
		return err
	}
	if err := cw.Write([]string{"section", "rate", "base", "vat"}); err != nil {
		return err
	}
	for _, b := range s.Collected {
		if err := cw.Write([]string{"collected", b.Rate.String(), b.Base.StringFixed(2), b.VAT.StringFixed(2)}); err != nil {
			return err
		}
	}
	for _, b := range s.Deductible {
		if err := cw.Write([]string{"deductible", b.Rate.String(), b.Base.StringFixed(2), b.VAT.StringFixed(2)}); err != nil {
			return err
		}
	}
	rows := [][]string{
		{"total_collected", "", "", s.TotalCollected.StringFixed(2)},
		{"total_deductible", "", "", s.TotalDeductible.StringFixed(2)},
		{"net_due", "", "", s.NetDue.StringFixed(2)},
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
