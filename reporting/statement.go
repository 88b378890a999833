/*
statement.go - CGNC statement rubrics

PURPOSE:
  Folds ledger lines into the CGNC statement rubrics (CPC income statement
  and balance-sheet treasury/receivable/payable groups) via a static
  account-prefix lookup table. Grouping and summation only; no data in the
  period yields zero totals.
*/
package reporting

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RubricSide is the normal balance side of a rubric: a credit-normal
// rubric reports credit minus debit, a debit-normal one the opposite.
type RubricSide string

const (
	SideDebit  RubricSide = "debit"
	SideCredit RubricSide = "credit"
)

// Rubric is one row of the statement lookup table.
type Rubric struct {
	Code     string
	Label    string
	Prefixes []string
	Side     RubricSide
}

// DefaultRubrics is the static account-prefix table for the CPC and the
// treasury section. First matching prefix wins; unmatched accounts are
// reported under OTHER.
func DefaultRubrics() []Rubric {
	return []Rubric{
		{Code: "CPC-711", Label: "Ventes de marchandises", Prefixes: []string{"711"}, Side: SideCredit},
		{Code: "CPC-611", Label: "Achats revendus de marchandises", Prefixes: []string{"611"}, Side: SideDebit},
		{Code: "BIL-342", Label: "Clients et comptes rattachés", Prefixes: []string{"342"}, Side: SideDebit},
		{Code: "BIL-441", Label: "Fournisseurs et comptes rattachés", Prefixes: []string{"441"}, Side: SideCredit},
		{Code: "BIL-345", Label: "État, TVA récupérable", Prefixes: []string{"345"}, Side: SideDebit},
		{Code: "BIL-445", Label: "État, TVA facturée", Prefixes: []string{"445"}, Side: SideCredit},
		{Code: "TRE-514", Label: "Banques", Prefixes: []string{"514"}, Side: SideDebit},
		{Code: "TRE-516", Label: "Caisses", Prefixes: []string{"516"}, Side: SideDebit},
	}
}

// RubricTotal is one statement row.
type RubricTotal struct {
	Code   string          `json:"code"`
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// Statement sums ledger lines over [from, to] into rubric buckets. Rubrics
// with no activity are included at zero so statement layouts stay stable.
func (ag *Aggregator) Statement(ctx context.Context, from, to time.Time) ([]RubricTotal, error) {
	rubrics := DefaultRubrics()
	totals := make([]RubricTotal, len(rubrics), len(rubrics)+1)
	for i, r := range rubrics {
		totals[i] = RubricTotal{Code: r.Code, Label: r.Label}
	}
	other := RubricTotal{Code: "OTHER", Label: "Autres comptes"}

	lines, err := ag.store.LedgerLinesInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	for _, line := range lines {
		idx := -1
		for i, r := range rubrics {
			if matchesPrefix(line.AccountID, r.Prefixes) {
				idx = i
				break
			}
		}
		if idx < 0 {
			other.Amount = other.Amount.Add(line.Debit.Sub(line.Credit))
			continue
		}
		if rubrics[idx].Side == SideCredit {
			totals[idx].Amount = totals[idx].Amount.Add(line.Credit.Sub(line.Debit))
		} else {
			totals[idx].Amount = totals[idx].Amount.Add(line.Debit.Sub(line.Credit))
		}
	}

	if !other.Amount.IsZero() {
		totals = append(totals, other)
	}
	return totals, nil
}

func matchesPrefix(accountID string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(accountID, p) {
			return true
		}
	}
	return false
}
