/*
dto.go - Request/response data structures

Decimal amounts travel as JSON strings (shopspring default marshalling) so
no precision is lost at the HTTP boundary. Dates are yyyy-mm-dd on
documents and RFC3339 on timestamps, matching what the dashboard sends.
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas/compta-engine/compta"
	"github.com/atlas/compta-engine/posting"
)

const dateLayout = "2006-01-02"

// =============================================================================
// ACCOUNTS
// =============================================================================

type AccountDTO struct {
	ID              string `json:"id"`
	Number          string `json:"number"`
	Label           string `json:"label"`
	Class           int    `json:"class"`
	Type            string `json:"type"`
	IsDetailAccount bool   `json:"isDetailAccount"`
	IsActive        bool   `json:"isActive"`
}

func toAccountDTO(a compta.Account) AccountDTO {
	return AccountDTO{
		ID:              a.ID,
		Number:          a.Number,
		Label:           a.Label,
		Class:           a.Class,
		Type:            string(a.Type),
		IsDetailAccount: a.IsDetailAccount,
		IsActive:        a.IsActive,
	}
}

// =============================================================================
// DOCUMENTS
// =============================================================================

type DocumentLineDTO struct {
	Description string          `json:"description,omitempty"`
	Qty         decimal.Decimal `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	VATRate     decimal.Decimal `json:"vatRate"`
	DiscountPct decimal.Decimal `json:"discountPct"`
}

type CreateDocumentRequest struct {
	ID        string            `json:"id,omitempty"`
	Type      string            `json:"type"`
	PartyID   string            `json:"partyId"`
	IssueDate string            `json:"issueDate"`
	DueDate   string            `json:"dueDate"`
	Lines     []DocumentLineDTO `json:"lines"`
	CreatedBy string            `json:"createdBy,omitempty"`
}

type TotalsDTO struct {
	HT      decimal.Decimal `json:"ht"`
	VAT     decimal.Decimal `json:"vat"`
	TTC     decimal.Decimal `json:"ttc"`
	DueLeft decimal.Decimal `json:"dueLeft"`
}

type DocumentDTO struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	PartyID   string            `json:"partyId"`
	IssueDate string            `json:"issueDate"`
	DueDate   string            `json:"dueDate"`
	Status    string            `json:"status"`
	Lines     []DocumentLineDTO `json:"lines"`
	Payments  []PaymentDTO      `json:"payments"`
	Totals    TotalsDTO         `json:"totals"`
}

type PaymentDTO struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Mode   string          `json:"mode"`
}

type RecordPaymentRequest struct {
	Date      string          `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Mode      string          `json:"mode"`
	CreatedBy string          `json:"createdBy,omitempty"`
}

func toDocumentDTO(d compta.Document) DocumentDTO {
	t := d.ComputeTotals()
	dto := DocumentDTO{
		ID:        d.ID,
		Type:      string(d.Type),
		PartyID:   d.PartyID,
		IssueDate: d.IssueDate.Format(dateLayout),
		DueDate:   d.DueDate.Format(dateLayout),
		Status:    string(d.Status),
		Lines:     make([]DocumentLineDTO, len(d.Lines)),
		Payments:  make([]PaymentDTO, len(d.Payments)),
		Totals:    TotalsDTO{HT: t.HT, VAT: t.VAT, TTC: t.TTC, DueLeft: t.DueLeft},
	}
	for i, l := range d.Lines {
		dto.Lines[i] = DocumentLineDTO{
			Description: l.Description,
			Qty:         l.Qty,
			UnitPrice:   l.UnitPrice,
			VATRate:     l.VATRate,
			DiscountPct: l.DiscountPct,
		}
	}
	for i, p := range d.Payments {
		dto.Payments[i] = PaymentDTO{
			Date:   p.Date.Format(dateLayout),
			Amount: p.Amount,
			Mode:   string(p.Mode),
		}
	}
	return dto
}

// =============================================================================
// LEDGER
// =============================================================================

type LedgerLineDTO struct {
	ID        string          `json:"id,omitempty"`
	PieceID   string          `json:"pieceId"`
	Date      string          `json:"date"`
	Journal   string          `json:"journal"`
	AccountID string          `json:"accountId"`
	Label     string          `json:"label,omitempty"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

func toLedgerLineDTO(l compta.LedgerLine) LedgerLineDTO {
	return LedgerLineDTO{
		ID:        l.ID,
		PieceID:   l.PieceID,
		Date:      l.Date.Format(dateLayout),
		Journal:   string(l.Journal),
		AccountID: l.AccountID,
		Label:     l.Label,
		Debit:     l.Debit,
		Credit:    l.Credit,
	}
}

func toLedgerLineDTOs(lines []compta.LedgerLine) []LedgerLineDTO {
	out := make([]LedgerLineDTO, len(lines))
	for i, l := range lines {
		out[i] = toLedgerLineDTO(l)
	}
	return out
}

// ValidateRequest carries a candidate piece from a manual-entry surface.
type ValidateRequest struct {
	Lines []LedgerLineDTO `json:"lines"`
}

func (r ValidateRequest) toLines() []compta.LedgerLine {
	lines := make([]compta.LedgerLine, len(r.Lines))
	for i, l := range r.Lines {
		date, _ := time.Parse(dateLayout, l.Date)
		lines[i] = compta.LedgerLine{
			PieceID:   l.PieceID,
			Date:      date,
			Journal:   compta.Journal(l.Journal),
			AccountID: l.AccountID,
			Label:     l.Label,
			Debit:     l.Debit,
			Credit:    l.Credit,
		}
	}
	return lines
}

// =============================================================================
// BANK & RECONCILIATION
// =============================================================================

type BankTransactionDTO struct {
	ID         string          `json:"id"`
	Date       string          `json:"date"`
	Amount     decimal.Decimal `json:"amount"`
	Label      string          `json:"label"`
	Reference  string          `json:"reference,omitempty"`
	Reconciled bool            `json:"reconciled"`
	MatchDocID string          `json:"matchDocId,omitempty"`
}

func toBankTransactionDTO(bt compta.BankTransaction) BankTransactionDTO {
	return BankTransactionDTO{
		ID:         bt.ID,
		Date:       bt.Date.Format(dateLayout),
		Amount:     bt.Amount,
		Label:      bt.Label,
		Reference:  bt.Reference,
		Reconciled: bt.Reconciled,
		MatchDocID: bt.MatchDocID,
	}
}

type ApplyMatchRequest struct {
	BankID string  `json:"bankId"`
	DocID  string  `json:"docId"`
	Score  float64 `json:"score"`
	Manual bool    `json:"manual"`
}

type UndoMatchRequest struct {
	BankID string `json:"bankId"`
	DocID  string `json:"docId"`
}

type ReconciliationRecordDTO struct {
	BankID    string  `json:"bankId"`
	DocID     string  `json:"docId"`
	Score     float64 `json:"score"`
	AppliedAt string  `json:"appliedAt"`
	Manual    bool    `json:"manual"`
}

// =============================================================================
// ERRORS
// =============================================================================

type errorResponse struct {
	Error  string          `json:"error"`
	Detail string          `json:"detail,omitempty"`
	Issues []posting.Issue `json:"issues,omitempty"`
	Row    *int            `json:"row,omitempty"`
}
