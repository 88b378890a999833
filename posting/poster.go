/*
poster.go - Ledger poster: commercial documents to balanced pieces

PURPOSE:
  Translates confirmed documents (invoice, credit note, purchase) and
  recorded payments into balanced double-entry pieces under the fixed CGNC
  mapping from compta/chart.go. The poster is a stateless transformer: it
  reads and writes through the DocumentStore and holds nothing between
  calls.

BALANCE GUARANTEE:
  Every piece balances exactly, not just within tolerance: the VAT line is
  computed as the residual (total minus the other lines) instead of being
  re-derived from the rate, so rounding drift across three or more lines is
  impossible by construction.

STATE MACHINE:
  Draft -> Confirmed -> Posted. PostDocument refuses drafts (ErrNotConfirmed)
  and refuses to run twice (ErrAlreadyPosted). Payments are only accepted
  against posted documents, since they settle the receivable/payable the
  posting created.

SEE ALSO:
  - validator.go: Gates every piece before it is persisted
  - compta/chart.go: Account mapping and VAT regimes
*/
package posting

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/atlas/compta-engine/compta"
)

// RejectedError carries the validator findings when a built piece fails
// validation. This indicates a mapping bug, not bad user data.
type RejectedError struct {
	PieceID string
	Issues  []Issue
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("piece %s rejected: %d validation issue(s)", e.PieceID, len(e.Issues))
}

func (e *RejectedError) Unwrap() error { return compta.ErrEntryRejected }

// Poster emits balanced ledger pieces for document and payment events.
type Poster struct {
	store  compta.DocumentStore
	regime compta.VATRegime
}

func NewPoster(store compta.DocumentStore, regime compta.VATRegime) *Poster {
	return &Poster{store: store, regime: regime}
}

// =============================================================================
// DOCUMENT POSTING
// =============================================================================

// PostDocument emits the piece for a confirmed document and advances it to
// Posted. Calling it twice for the same document returns ErrAlreadyPosted
// and appends nothing.
func (p *Poster) PostDocument(ctx context.Context, docID, actor string) ([]compta.LedgerLine, error) {
	doc, err := p.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	switch doc.Status {
	case compta.StatusPosted:
		return nil, fmt.Errorf("document %s: %w", docID, compta.ErrAlreadyPosted)
	case compta.StatusConfirmed:
		// proceed
	default:
		return nil, fmt.Errorf("document %s is %s: %w", docID, doc.Status, compta.ErrNotConfirmed)
	}

	lines := p.buildDocumentPiece(*doc, actor)
	if err := p.appendValidated(ctx, doc.ID, lines); err != nil {
		return nil, err
	}

	doc.Status = compta.StatusPosted
	if err := p.store.SaveDocument(ctx, *doc); err != nil {
		return nil, err
	}
	return lines, nil
}

// buildDocumentPiece maps a document to its lines. The VAT line is always
// the residual TTC-HT.
func (p *Poster) buildDocumentPiece(doc compta.Document, actor string) []compta.LedgerLine {
	t := doc.ComputeTotals()

	vatCollected := compta.AcctVATCollected
	if p.regime == compta.RegimeCashBasis {
		vatCollected = compta.AcctVATDeferred
	}

	mk := func(journal compta.Journal, accountID, label string, debit, credit decimal.Decimal) compta.LedgerLine {
		return compta.LedgerLine{
			PieceID:   doc.ID,
			Date:      doc.IssueDate,
			Journal:   journal,
			AccountID: accountID,
			Label:     label,
			Debit:     debit,
			Credit:    credit,
			CreatedBy: actor,
		}
	}

	switch doc.Type {
	case compta.DocInvoice:
		vat := t.TTC.Sub(t.HT) // residual
		lines := []compta.LedgerLine{
			mk(compta.JournalSales, compta.AcctCustomers, "Facture "+doc.ID, t.TTC, decimal.Zero),
			mk(compta.JournalSales, compta.AcctSales, "Facture "+doc.ID, decimal.Zero, t.HT),
		}
		if !vat.IsZero() {
			lines = append(lines, mk(compta.JournalSales, vatCollected, "TVA facture "+doc.ID, decimal.Zero, vat))
		}
		return lines

	case compta.DocCreditNote:
		// Credit note amounts are stored as signed negatives; the piece is
		// the mirror image of an invoice on absolute values.
		ht, ttc := t.HT.Abs(), t.TTC.Abs()
		vat := ttc.Sub(ht) // residual
		lines := []compta.LedgerLine{
			mk(compta.JournalSales, compta.AcctSales, "Avoir "+doc.ID, ht, decimal.Zero),
		}
		if !vat.IsZero() {
			lines = append(lines, mk(compta.JournalSales, vatCollected, "TVA avoir "+doc.ID, vat, decimal.Zero))
		}
		return append(lines, mk(compta.JournalSales, compta.AcctCustomers, "Avoir "+doc.ID, decimal.Zero, ttc))

	case compta.DocPurchase:
		vat := t.TTC.Sub(t.HT) // residual
		lines := []compta.LedgerLine{
			mk(compta.JournalPurchases, compta.AcctPurchases, "Facture fournisseur "+doc.ID, t.HT, decimal.Zero),
		}
		if !vat.IsZero() {
			lines = append(lines, mk(compta.JournalPurchases, compta.AcctVATDeductible, "TVA achat "+doc.ID, vat, decimal.Zero))
		}
		return append(lines, mk(compta.JournalPurchases, compta.AcctSuppliers, "Facture fournisseur "+doc.ID, decimal.Zero, t.TTC))
	}
	return nil
}

// =============================================================================
// PAYMENT POSTING
// =============================================================================

// PostPayment records a payment on a posted document and emits the
// settlement piece: treasury against the receivable/payable. Under the
// cash-basis VAT regime an invoice payment also emits the VAT recognition
// pair for the pro-rata VAT share of the paid amount.
func (p *Poster) PostPayment(ctx context.Context, docID string, payment compta.Payment, actor string) ([]compta.LedgerLine, error) {
	doc, err := p.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.Status != compta.StatusPosted {
		return nil, fmt.Errorf("document %s is %s: %w", docID, doc.Status, compta.ErrNotConfirmed)
	}

	// Totals before recording, for the cash-basis pro-rata.
	t := doc.ComputeTotals()

	doc.Payments = append(doc.Payments, payment)
	pieceID := fmt.Sprintf("%s-p%d", doc.ID, len(doc.Payments))

	journal := compta.JournalBank
	if payment.Mode == compta.PayCash {
		journal = compta.JournalCash
	}
	treasury := compta.TreasuryAccount(payment.Mode)
	amount := compta.Round2(payment.Amount)

	mk := func(accountID, label string, debit, credit decimal.Decimal) compta.LedgerLine {
		return compta.LedgerLine{
			PieceID:   pieceID,
			Date:      payment.Date,
			Journal:   journal,
			AccountID: accountID,
			Label:     label,
			Debit:     debit,
			Credit:    credit,
			CreatedBy: actor,
		}
	}

	var lines []compta.LedgerLine
	switch doc.Type {
	case compta.DocInvoice:
		lines = []compta.LedgerLine{
			mk(treasury, "Règlement "+doc.ID, amount, decimal.Zero),
			mk(compta.AcctCustomers, "Règlement "+doc.ID, decimal.Zero, amount),
		}
		if p.regime == compta.RegimeCashBasis {
			if share := vatShare(amount, t); share.IsPositive() {
				lines = append(lines,
					mk(compta.AcctVATDeferred, "TVA exigible "+doc.ID, share, decimal.Zero),
					mk(compta.AcctVATCollected, "TVA exigible "+doc.ID, decimal.Zero, share),
				)
			}
		}
	case compta.DocPurchase:
		lines = []compta.LedgerLine{
			mk(compta.AcctSuppliers, "Règlement fournisseur "+doc.ID, amount, decimal.Zero),
			mk(treasury, "Règlement fournisseur "+doc.ID, decimal.Zero, amount),
		}
	case compta.DocCreditNote:
		// Refund to the customer: money out, receivable restored.
		lines = []compta.LedgerLine{
			mk(compta.AcctCustomers, "Remboursement avoir "+doc.ID, amount, decimal.Zero),
			mk(treasury, "Remboursement avoir "+doc.ID, decimal.Zero, amount),
		}
	}

	if err := p.appendValidated(ctx, pieceID, lines); err != nil {
		return nil, err
	}
	if err := p.store.SaveDocument(ctx, *doc); err != nil {
		return nil, err
	}
	return lines, nil
}

// vatShare is the pro-rata VAT recognized on a partial payment:
// amount * vat / ttc, rounded to 2 places.
func vatShare(amount decimal.Decimal, t compta.Totals) decimal.Decimal {
	if t.TTC.IsZero() || t.VAT.IsZero() {
		return decimal.Zero
	}
	return compta.Round2(amount.Mul(t.VAT).Div(t.TTC))
}

// appendValidated gates the piece through the validator, then persists it.
func (p *Poster) appendValidated(ctx context.Context, pieceID string, lines []compta.LedgerLine) error {
	accounts, err := p.store.ListAccounts(ctx)
	if err != nil {
		return err
	}
	if res := Validate(lines, accounts); !res.Valid {
		return &RejectedError{PieceID: pieceID, Issues: res.Issues}
	}
	_, err = p.store.AppendLedgerLines(ctx, lines)
	return err
}
