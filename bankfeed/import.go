/*
Package bankfeed parses imported bank statements into BankTransactions.

IMPORT CONTRACT:
  A batch is an array of rows {date, amount, label, reference?}. Unknown
  fields are ignored. A row missing a required field rejects the WHOLE
  batch with the offending index (compta.RowError): partial imports would
  silently drop transactions and surface later as unexplained
  reconciliation gaps.

FORMATS:
  - JSON: array of objects, dates ISO-8601
  - CSV: semicolon-delimited with a date;amount;label;reference header,
    an optional UTF-8 BOM, dates ISO-8601 or yyyy-mm-dd

Parsing is pure with respect to the store: callers persist the returned
slice in one call, which is what makes the batch atomic.
*/
package bankfeed

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas/compta-engine/compta"
)

// Row is one statement line as imported. Amount is a pointer so a missing
// field is distinguishable from an explicit zero; it stays a decimal all
// the way through so nothing is lost to float conversion.
type Row struct {
	Date      string           `json:"date"`
	Amount    *decimal.Decimal `json:"amount"`
	Label     string           `json:"label"`
	Reference string           `json:"reference,omitempty"`
}

// ParseJSON decodes and validates a JSON batch.
func ParseJSON(r io.Reader) ([]compta.BankTransaction, error) {
	var rows []Row
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode bank import: %w", err)
	}
	return Convert(rows)
}

// ParseCSV decodes and validates a semicolon-delimited batch. The first
// record is the header.
func ParseCSV(r io.Reader) ([]compta.BankTransaction, error) {
	cr := csv.NewReader(stripBOM(r))
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode bank import: %w", err)
	}
	if len(records) == 0 {
		return Convert(nil)
	}

	cols := headerIndex(records[0])
	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := Row{
			Date:      field(rec, cols.at("date")),
			Label:     field(rec, cols.at("label")),
			Reference: field(rec, cols.at("reference")),
		}
		if raw := field(rec, cols.at("amount")); raw != "" {
			if amt, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ".")); err == nil {
				row.Amount = &amt
			}
		}
		rows = append(rows, row)
	}
	return Convert(rows)
}

// Convert validates every row, then materializes the batch. All-or-nothing:
// the first invalid row aborts with its index and nothing is returned.
func Convert(rows []Row) ([]compta.BankTransaction, error) {
	now := time.Now().UnixNano()
	txns := make([]compta.BankTransaction, 0, len(rows))
	for i, row := range rows {
		date, err := parseDate(row.Date)
		if err != nil {
			return nil, &compta.RowError{Index: i, Field: "date"}
		}
		if row.Amount == nil {
			return nil, &compta.RowError{Index: i, Field: "amount"}
		}
		if strings.TrimSpace(row.Label) == "" {
			return nil, &compta.RowError{Index: i, Field: "label"}
		}
		txns = append(txns, compta.BankTransaction{
			ID:        fmt.Sprintf("bnk-%d-%d", now, i),
			Date:      date,
			Amount:    compta.Round2(*row.Amount),
			Label:     strings.TrimSpace(row.Label),
			Reference: strings.TrimSpace(row.Reference),
		})
	}
	return txns, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

type columns map[string]int

func headerIndex(header []string) columns {
	cols := make(columns, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func (c columns) at(name string) int {
	if i, ok := c[name]; ok {
		return i
	}
	return -1
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// stripBOM skips a leading UTF-8 byte order mark, which our own exports and
// most banking portals emit.
func stripBOM(r io.Reader) io.Reader {
	br := &bomReader{r: r}
	return br
}

type bomReader struct {
	r       io.Reader
	checked bool
	buf     []byte
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head := make([]byte, 3)
		n, err := io.ReadFull(b.r, head)
		if n > 0 {
			head = head[:n]
			if !(n == 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF) {
				b.buf = head
			}
		}
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return 0, err
		}
	}
	if len(b.buf) > 0 {
		n := copy(p, b.buf)
		b.buf = b.buf[n:]
		return n, nil
	}
	return b.r.Read(p)
}
