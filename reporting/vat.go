/*
Package reporting folds ledger lines and document totals into tax-period
and financial-statement buckets.

This file (vat.go) builds the VAT declaration summary: per-rate bases and
VAT amounts, collected (sales side) and deductible (purchase side), and the
net amount due. Pure aggregation: no data in the period simply yields zero
totals, never an error.

REGIMES:
  - accrual: a document counts in the period of its issue date
  - cash basis: a document counts pro-rata to the payments received in the
    period (paid / TTC scaling of its per-rate buckets)

SEE ALSO:
  - statement.go: CGNC rubric statement
  - csv.go: Export writers
*/
package reporting

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas/compta-engine/compta"
)

// RateBucket sums HT base and VAT for one rate.
type RateBucket struct {
	Rate decimal.Decimal `json:"rate"`
	Base decimal.Decimal `json:"base"`
	VAT  decimal.Decimal `json:"vat"`
}

// VATSummary is the declaration content for one period.
type VATSummary struct {
	From            time.Time        `json:"from"`
	To              time.Time        `json:"to"`
	Regime          compta.VATRegime `json:"regime"`
	Collected       []RateBucket     `json:"collected"`
	Deductible      []RateBucket     `json:"deductible"`
	TotalCollected  decimal.Decimal  `json:"totalCollected"`
	TotalDeductible decimal.Decimal  `json:"totalDeductible"`
	// NetDue = collected - deductible; negative means a VAT credit.
	NetDue decimal.Decimal `json:"netDue"`
}

// Aggregator reads the store and produces report structures. Stateless.
type Aggregator struct {
	store  compta.DocumentStore
	regime compta.VATRegime
}

func NewAggregator(store compta.DocumentStore, regime compta.VATRegime) *Aggregator {
	return &Aggregator{store: store, regime: regime}
}

// VATSummary buckets documents by rate over [from, to].
func (ag *Aggregator) VATSummary(ctx context.Context, from, to time.Time) (VATSummary, error) {
	summary := VATSummary{From: from, To: to, Regime: ag.regime}

	docs, err := ag.store.ListDocuments(ctx)
	if err != nil {
		return summary, err
	}

	collected := map[string]*RateBucket{}
	deductible := map[string]*RateBucket{}

	for _, doc := range docs {
		if doc.Status == compta.StatusDraft {
			continue
		}
		factor := ag.periodFactor(doc, from, to)
		if factor.IsZero() {
			continue
		}

		buckets := collected
		if doc.Type == compta.DocPurchase {
			buckets = deductible
		}
		for _, rb := range perRate(doc) {
			key := rb.Rate.String()
			b, ok := buckets[key]
			if !ok {
				b = &RateBucket{Rate: rb.Rate}
				buckets[key] = b
			}
			b.Base = b.Base.Add(compta.Round2(rb.Base.Mul(factor)))
			b.VAT = b.VAT.Add(compta.Round2(rb.VAT.Mul(factor)))
		}
	}

	summary.Collected = sortBuckets(collected)
	summary.Deductible = sortBuckets(deductible)
	for _, b := range summary.Collected {
		summary.TotalCollected = summary.TotalCollected.Add(b.VAT)
	}
	for _, b := range summary.Deductible {
		summary.TotalDeductible = summary.TotalDeductible.Add(b.VAT)
	}
	summary.NetDue = summary.TotalCollected.Sub(summary.TotalDeductible)
	return summary, nil
}

// periodFactor is the share of the document counted in the period: 1 or 0
// under accrual, paid-in-period / TTC under cash basis.
func (ag *Aggregator) periodFactor(doc compta.Document, from, to time.Time) decimal.Decimal {
	if ag.regime == compta.RegimeAccrual {
		if inRange(doc.IssueDate, from, to) {
			return decimal.NewFromInt(1)
		}
		return decimal.Zero
	}

	t := doc.ComputeTotals()
	if t.TTC.IsZero() {
		return decimal.Zero
	}
	paid := decimal.Zero
	for _, p := range doc.Payments {
		if inRange(p.Date, from, to) {
			paid = paid.Add(p.Amount)
		}
	}
	return paid.Div(t.TTC)
}

// perRate splits a document's lines into per-rate (base, vat) pairs, each
// line rounded the same way ComputeTotals rounds.
func perRate(doc compta.Document) []RateBucket {
	hundred := decimal.NewFromInt(100)
	byRate := map[string]*RateBucket{}
	for _, l := range doc.Lines {
		ht := l.Qty.Mul(l.UnitPrice)
		if !l.DiscountPct.IsZero() {
			ht = ht.Mul(hundred.Sub(l.DiscountPct)).Div(hundred)
		}
		ht = compta.Round2(ht)
		vat := compta.Round2(ht.Mul(l.VATRate).Div(hundred))

		key := l.VATRate.String()
		b, ok := byRate[key]
		if !ok {
			b = &RateBucket{Rate: l.VATRate}
			byRate[key] = b
		}
		b.Base = b.Base.Add(ht)
		b.VAT = b.VAT.Add(vat)
	}
	return sortBuckets(byRate)
}

func sortBuckets(m map[string]*RateBucket) []RateBucket {
	out := make([]RateBucket, 0, len(m))
	for _, b := range m {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rate.LessThan(out[j].Rate) })
	return out
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
