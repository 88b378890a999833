/*
Package posting turns commercial documents into balanced ledger pieces.

This file (validator.go) holds the balance validator: a pure function that
gates every candidate piece before it is persisted, whether it comes from
the poster or from a manual-entry surface.

CHECKS (each with a distinct code, all collected, never short-circuited):
  1. Every line references an existing account      -> UnknownAccount
  2. The account is an active detail account        -> NotPostable
  3. Exactly one of debit/credit nonzero, both >= 0 -> MalformedLine
  4. |sum(debit) - sum(credit)| < 0.01              -> Unbalanced
  5. At least one line present                      -> EmptyEntry

NUMERIC SEMANTICS:
  Amounts are rounded to 2 decimal places (half away from zero) before
  summation so that floating accumulation across many lines cannot push a
  balanced piece over the tolerance.

SEE ALSO:
  - poster.go: Builds pieces and calls Validate before persisting
*/
package posting

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/atlas/compta-engine/compta"
)

// =============================================================================
// ISSUES - Validation findings as data, never thrown
// =============================================================================

type IssueCode string

const (
	IssueUnknownAccount IssueCode = "UnknownAccount"
	IssueNotPostable    IssueCode = "NotPostable"
	IssueMalformedLine  IssueCode = "MalformedLine"
	IssueUnbalanced     IssueCode = "Unbalanced"
	IssueEmptyEntry     IssueCode = "EmptyEntry"
)

// Issue is one violated rule. LineIndex is -1 for piece-level issues
// (Unbalanced, EmptyEntry).
type Issue struct {
	Code      IssueCode `json:"code"`
	LineIndex int       `json:"lineIndex"`
	AccountID string    `json:"accountId,omitempty"`
	// Difference is the signed debit-minus-credit gap, set on Unbalanced.
	Difference decimal.Decimal `json:"difference"`
	Message    string          `json:"message"`
}

// Result collects every violated rule so the caller can list them all,
// not just the first.
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues,omitempty"`
}

// =============================================================================
// VALIDATE - Pure function, no side effects
// =============================================================================

// Validate checks a candidate piece against the double-entry invariants.
func Validate(lines []compta.LedgerLine, accounts []compta.Account) Result {
	byID := make(map[string]compta.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	var issues []Issue
	sumDebit, sumCredit := decimal.Zero, decimal.Zero

	for i, line := range lines {
		acct, ok := byID[line.AccountID]
		if !ok {
			issues = append(issues, Issue{
				Code:      IssueUnknownAccount,
				LineIndex: i,
				AccountID: line.AccountID,
				Message:   fmt.Sprintf("line %d references unknown account %q", i, line.AccountID),
			})
		} else if !acct.Postable() {
			issues = append(issues, Issue{
				Code:      IssueNotPostable,
				LineIndex: i,
				AccountID: line.AccountID,
				Message:   fmt.Sprintf("account %s (%s) is not an active detail account", acct.Number, acct.Label),
			})
		}

		debit := compta.Round2(line.Debit)
		credit := compta.Round2(line.Credit)

		if debit.IsNegative() || credit.IsNegative() || debit.IsZero() == credit.IsZero() {
			issues = append(issues, Issue{
				Code:      IssueMalformedLine,
				LineIndex: i,
				AccountID: line.AccountID,
				Message:   fmt.Sprintf("line %d must carry exactly one nonnegative side (debit=%s credit=%s)", i, debit, credit),
			})
		}

		sumDebit = sumDebit.Add(debit)
		sumCredit = sumCredit.Add(credit)
	}

	if diff := sumDebit.Sub(sumCredit); diff.Abs().Cmp(compta.Tolerance) >= 0 {
		issues = append(issues, Issue{
			Code:       IssueUnbalanced,
			LineIndex:  -1,
			Difference: diff,
			Message:    fmt.Sprintf("piece is unbalanced: debit %s, credit %s, difference %s", sumDebit, sumCredit, diff),
		})
	}

	if len(lines) == 0 {
		issues = append(issues, Issue{
			Code:      IssueEmptyEntry,
			LineIndex: -1,
			Message:   "piece has no lines",
		})
	}

	return Result{Valid: len(issues) == 0, Issues: issues}
}
