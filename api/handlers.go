/*
handlers.go - HTTP handlers for the accounting core

PURPOSE:
  Exposes the posting, reconciliation and reporting engines over REST.
  Handlers parse HTTP, delegate to the core, and translate errors; the
  domain logic lives entirely in the posting/reconcile/reporting packages.

ERROR MAPPING:
  - 400: bad request bodies, import batches with invalid rows (row index
         reported)
  - 404: unknown document/account/bank transaction
  - 409: state errors (AlreadyPosted, NotConfirmed, NoSuchReconciliation)
  - 422: pieces rejected by the balance validator (issue list reported)
  - 500: storage failures

SEE ALSO:
  - dto.go: Request/response shapes
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atlas/compta-engine/bankfeed"
	"github.com/atlas/compta-engine/compta"
	"github.com/atlas/compta-engine/posting"
	"github.com/atlas/compta-engine/reconcile"
	"github.com/atlas/compta-engine/reporting"
)

// Handler holds all dependencies for the HTTP layer.
type Handler struct {
	Store      compta.DocumentStore
	Poster     *posting.Poster
	Matcher    *reconcile.Matcher
	Reconciler *reconcile.Reconciler
	Aggregator *reporting.Aggregator
	Log        *zap.Logger
}

// NewHandler wires the core engines around a store.
func NewHandler(store compta.DocumentStore, regime compta.VATRegime, params reconcile.Params, log *zap.Logger) *Handler {
	return &Handler{
		Store:      store,
		Poster:     posting.NewPoster(store, regime),
		Matcher:    reconcile.NewMatcher(params),
		Reconciler: reconcile.NewReconciler(store),
		Aggregator: reporting.NewAggregator(store, regime),
		Log:        log,
	}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.ListAccounts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var dto AccountDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if dto.Number == "" || dto.Label == "" {
		writeBadRequest(w, "number and label are required")
		return
	}
	if dto.ID == "" {
		dto.ID = dto.Number
	}
	acct := compta.Account{
		ID:              dto.ID,
		Number:          dto.Number,
		Label:           dto.Label,
		Class:           int(dto.Number[0] - '0'),
		Type:            compta.AccountType(dto.Type),
		IsDetailAccount: dto.IsDetailAccount,
		IsActive:        dto.IsActive,
	}
	if err := h.Store.SaveAccount(r.Context(), acct); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(acct))
}

// =============================================================================
// DOCUMENT HANDLERS
// =============================================================================

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	var (
		docs []compta.Document
		err  error
	)
	if r.URL.Query().Get("outstanding") == "true" {
		docs, err = h.Store.ListOutstanding(r.Context(), compta.DocumentType(r.URL.Query().Get("type")))
	} else {
		docs, err = h.Store.ListDocuments(r.Context())
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]DocumentDTO, len(docs))
	for i, d := range docs {
		dtos[i] = toDocumentDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Store.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(*doc))
}

// CreateDocument stores a new draft.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	docType := compta.DocumentType(req.Type)
	switch docType {
	case compta.DocInvoice, compta.DocCreditNote, compta.DocPurchase:
	default:
		writeBadRequest(w, fmt.Sprintf("unknown document type %q", req.Type))
		return
	}
	issueDate, err := time.Parse(dateLayout, req.IssueDate)
	if err != nil {
		writeBadRequest(w, "issueDate must be yyyy-mm-dd")
		return
	}
	dueDate, err := time.Parse(dateLayout, req.DueDate)
	if err != nil {
		writeBadRequest(w, "dueDate must be yyyy-mm-dd")
		return
	}
	if len(req.Lines) == 0 {
		writeBadRequest(w, "document needs at least one line")
		return
	}

	doc := compta.Document{
		ID:        req.ID,
		Type:      docType,
		PartyID:   req.PartyID,
		IssueDate: issueDate,
		DueDate:   dueDate,
		Status:    compta.StatusDraft,
		CreatedBy: req.CreatedBy,
		Lines:     make([]compta.DocumentLine, len(req.Lines)),
	}
	if doc.ID == "" {
		doc.ID = fmt.Sprintf("doc-%d", time.Now().UnixNano())
	}
	for i, l := range req.Lines {
		doc.Lines[i] = compta.DocumentLine{
			Description: l.Description,
			Qty:         l.Qty,
			UnitPrice:   l.UnitPrice,
			VATRate:     l.VATRate,
			DiscountPct: l.DiscountPct,
		}
	}

	if err := h.Store.SaveDocument(r.Context(), doc); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocumentDTO(doc))
}

// ConfirmDocument advances a draft to Confirmed and immediately posts it.
// Confirmation is the transition that triggers posting; the two are one
// user action.
func (h *Handler) ConfirmDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	doc, err := h.Store.GetDocument(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if doc.Status == compta.StatusDraft {
		doc.Status = compta.StatusConfirmed
		if err := h.Store.SaveDocument(ctx, *doc); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	actor := r.URL.Query().Get("actor")
	lines, err := h.Poster.PostDocument(ctx, id, actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.Log.Info("document posted",
		zap.String("docId", id),
		zap.Int("lines", len(lines)))
	writeJSON(w, http.StatusOK, map[string]any{
		"status": string(compta.StatusPosted),
		"lines":  toLedgerLineDTOs(lines),
	})
}

// RecordPayment records a payment and posts its settlement piece.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeBadRequest(w, "date must be yyyy-mm-dd")
		return
	}
	if !req.Amount.IsPositive() {
		writeBadRequest(w, "amount must be positive")
		return
	}

	payment := compta.Payment{Date: date, Amount: req.Amount, Mode: compta.PaymentMode(req.Mode)}
	lines, err := h.Poster.PostPayment(r.Context(), chi.URLParam(r, "id"), payment, req.CreatedBy)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	doc, err := h.Store.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document": toDocumentDTO(*doc),
		"lines":    toLedgerLineDTOs(lines),
	})
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

func (h *Handler) GetPieceLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.Store.LedgerLinesByPiece(r.Context(), chi.URLParam(r, "pieceId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerLineDTOs(lines))
}

func (h *Handler) ListLedgerLines(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	lines, err := h.Store.LedgerLinesInRange(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerLineDTOs(lines))
}

// ValidateEntry runs the balance validator on a candidate piece without
// persisting anything. The manual-entry UI calls this on every edit.
func (h *Handler) ValidateEntry(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	accounts, err := h.Store.ListAccounts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posting.Validate(req.toLines(), accounts))
}

// =============================================================================
// BANK HANDLERS
// =============================================================================

// ImportBankTransactions accepts a JSON batch. All-or-nothing: one bad row
// rejects the whole request.
func (h *Handler) ImportBankTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := bankfeed.ParseJSON(r.Body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Store.AddBankTransactions(r.Context(), txns); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.Log.Info("bank transactions imported", zap.Int("count", len(txns)))
	writeJSON(w, http.StatusCreated, map[string]any{"imported": len(txns)})
}

func (h *Handler) ListBankTransactions(w http.ResponseWriter, r *http.Request) {
	var (
		txns []compta.BankTransaction
		err  error
	)
	if r.URL.Query().Get("unreconciled") == "true" {
		txns, err = h.Store.ListUnreconciledBankTransactions(r.Context())
	} else {
		txns, err = h.Store.ListBankTransactions(r.Context())
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]BankTransactionDTO, len(txns))
	for i, bt := range txns {
		dtos[i] = toBankTransactionDTO(bt)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RECONCILIATION HANDLERS
// =============================================================================

// SuggestMatches runs the automatic matcher and returns proposals without
// mutating anything.
func (h *Handler) SuggestMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txns, err := h.Store.ListUnreconciledBankTransactions(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	docs, err := h.Store.ListOutstanding(ctx, "")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	matches := h.Matcher.AutoMatch(txns, docs)
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

func (h *Handler) ApplyMatch(w http.ResponseWriter, r *http.Request) {
	var req ApplyMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	match := reconcile.Match{BankID: req.BankID, DocID: req.DocID, Score: req.Score}
	if err := h.Reconciler.Apply(r.Context(), match, req.Manual); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "applied"})
}

func (h *Handler) UndoMatch(w http.ResponseWriter, r *http.Request) {
	var req UndoMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := h.Reconciler.Undo(r.Context(), req.BankID, req.DocID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "undone"})
}

func (h *Handler) ListReconciliations(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListReconciliations(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]ReconciliationRecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = ReconciliationRecordDTO{
			BankID:    rec.BankID,
			DocID:     rec.DocID,
			Score:     rec.Score,
			AppliedAt: rec.AppliedAt.Format(time.RFC3339),
			Manual:    rec.Manual,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

func (h *Handler) VATReport(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	summary, err := h.Aggregator.VATSummary(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) VATReportCSV(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	summary, err := h.Aggregator.VATSummary(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="tva.csv"`)
	if err := reporting.WriteVATCSV(w, summary); err != nil {
		h.Log.Error("vat csv export failed", zap.Error(err))
	}
}

func (h *Handler) StatementReport(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	totals, err := h.Aggregator.Statement(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rubrics": totals})
}

func (h *Handler) ReconciliationCSV(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListReconciliations(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="lettrage.csv"`)
	if err := reporting.WriteReconciliationCSV(w, records); err != nil {
		h.Log.Error("reconciliation csv export failed", zap.Error(err))
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func parseRange(r *http.Request) (time.Time, time.Time, error) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	from, err := time.Parse(dateLayout, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("from must be yyyy-mm-dd")
	}
	to, err := time.Parse(dateLayout, toStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("to must be yyyy-mm-dd")
	}
	// Inclusive end of day.
	return from, to.Add(24*time.Hour - time.Nanosecond), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Detail: detail})
}

// writeError translates core errors into HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rejected *posting.RejectedError
	if errors.As(err, &rejected) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  "entry_rejected",
			Detail: rejected.Error(),
			Issues: rejected.Issues,
		})
		return
	}

	var rowErr *compta.RowError
	if errors.As(err, &rowErr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "invalid_import_row",
			Detail: rowErr.Error(),
			Row:    &rowErr.Index,
		})
		return
	}

	switch {
	case compta.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Detail: err.Error()})
	case compta.IsStateError(err):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "state_conflict", Detail: err.Error()})
	default:
		h.Log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal", Detail: err.Error()})
	}
}
