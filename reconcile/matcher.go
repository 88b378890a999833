/*
Package reconcile matches imported bank transactions against outstanding
documents (lettrage).

This file (matcher.go) holds the pure automatic matcher. It never mutates
state: it returns a proposal list the caller applies via the Reconciler.

MATCHING ALGORITHM (greedy, deterministic):
  1. Filter pairs: unreconciled bank transaction, document with an
     outstanding balance, and the sign of the bank amount consistent with
     the document type (inflow <-> customer invoice, outflow <-> purchase
     or credit note refund).
  2. Score: +0.6 exact amount match, +0.3 reference contains the document
     id, +0.1 date within 5 days of the due date. Pairs below 0.9 are
     discarded, so the exact-amount signal plus at least one corroborating
     signal is required.
  3. Sort by score descending, then smallest date difference, then document
     id ascending.
  4. Greedily assign, consuming each bank transaction and document at most
     once.

The threshold favors precision over recall: a false-positive reconciliation
corrupts financial records, so ambiguous pairs are left for manual
resolution. The weights are empirical; Params keeps them adjustable.

SEE ALSO:
  - reconciler.go: Apply/Undo via the DocumentStore
*/
package reconcile

import (
	"math"
	"sort"
	"strings"

	"github.com/atlas/compta-engine/compta"
)

// =============================================================================
// PARAMETERS
// =============================================================================

// Params are the matcher scoring constants. The defaults reproduce the
// production tuning; they are parameters rather than hard invariants.
type Params struct {
	ExactAmountWeight float64
	ReferenceWeight   float64
	DateWeight        float64
	Threshold         float64
	DateWindowDays    int
}

func DefaultParams() Params {
	return Params{
		ExactAmountWeight: 0.6,
		ReferenceWeight:   0.3,
		DateWeight:        0.1,
		Threshold:         0.9,
		DateWindowDays:    5,
	}
}

// Match pairs a bank transaction with a document. Proposals carry the
// score; applied records keep it for audit.
type Match struct {
	BankID string  `json:"bankId"`
	DocID  string  `json:"docId"`
	Score  float64 `json:"score"`
}

// scoreEpsilon absorbs float accumulation error in the threshold cut:
// 0.6 + 0.3 lands just under 0.9 in float64.
const scoreEpsilon = 1e-9

// Matcher proposes pairings. Stateless; safe for reuse.
type Matcher struct {
	params Params
}

func NewMatcher(params Params) *Matcher {
	return &Matcher{params: params}
}

// =============================================================================
// AUTO MATCH - Pure, does not mutate
// =============================================================================

type candidate struct {
	bank     compta.BankTransaction
	doc      compta.Document
	score    float64
	dateDiff float64 // days between bank date and due date
}

// AutoMatch scores every sign-consistent pair and greedily keeps the best
// non-overlapping ones. O(n*m); inputs are expected in the hundreds to low
// thousands for an SME.
func (m *Matcher) AutoMatch(bankTxns []compta.BankTransaction, outstanding []compta.Document) []Match {
	var candidates []candidate
	for _, bt := range bankTxns {
		if bt.Reconciled {
			continue
		}
		for _, doc := range outstanding {
			due := doc.Outstanding().Abs()
			if due.Cmp(compta.Tolerance) <= 0 {
				continue
			}
			if sign(bt.Amount.Sign()) != doc.InflowSign() {
				continue
			}

			dateDiff := math.Abs(bt.Date.Sub(doc.DueDate).Hours() / 24)

			score := 0.0
			if bt.Amount.Abs().Sub(due).Abs().Cmp(compta.Tolerance) < 0 {
				score += m.params.ExactAmountWeight
			}
			if containsFold(bt.Reference, doc.ID) {
				score += m.params.ReferenceWeight
			}
			if dateDiff <= float64(m.params.DateWindowDays) {
				score += m.params.DateWeight
			}
			if score < m.params.Threshold-scoreEpsilon {
				continue
			}

			candidates = append(candidates, candidate{bank: bt, doc: doc, score: score, dateDiff: dateDiff})
		}
	}

	// Deterministic order: best score first, then closest date, then doc id.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].dateDiff != candidates[j].dateDiff {
			return candidates[i].dateDiff < candidates[j].dateDiff
		}
		return candidates[i].doc.ID < candidates[j].doc.ID
	})

	usedBank := make(map[string]bool)
	usedDoc := make(map[string]bool)
	var matches []Match
	for _, c := range candidates {
		if usedBank[c.bank.ID] || usedDoc[c.doc.ID] {
			continue
		}
		usedBank[c.bank.ID] = true
		usedDoc[c.doc.ID] = true
		matches = append(matches, Match{BankID: c.bank.ID, DocID: c.doc.ID, Score: c.score})
	}
	return matches
}

func sign(s int) int {
	if s < 0 {
		return -1
	}
	return 1
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
