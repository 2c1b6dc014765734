package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/internal/shared/apperr"
	"github.com/ledgerlink/ledgerlink/pkg/money"
)

var postingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ledgerlink_postings_total",
	Help: "Posting outcomes: created, replayed, rejected or failed",
}, []string{"result"})

// PostingServiceInterface defines the transaction write path.
type PostingServiceInterface interface {
	PostTransaction(ctx context.Context, in ledger.PostingInput) (*ledger.PostingResult, error)
}

// TransactionReaderInterface defines the transactions listing.
type TransactionReaderInterface interface {
	ListTransactions(ctx context.Context, tenantID uuid.UUID, q ledger.ListQuery) (*ledger.TransactionPage, error)
}

// TransactionHandler handles transaction-related HTTP requests
type TransactionHandler struct {
	postingService PostingServiceInterface
	readService    TransactionReaderInterface
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(postingService PostingServiceInterface, readService TransactionReaderInterface) *TransactionHandler {
	return &TransactionHandler{
		postingService: postingService,
		readService:    readService,
	}
}

// PostEntryRequest is one leg of a posting request.
type PostEntryRequest struct {
	AccountID   string      `json:"account_id"`
	Direction   string      `json:"direction"`
	AmountMinor money.Minor `json:"amount_minor"`
	Currency    string      `json:"currency"`
}

// PostTransactionRequest represents the transaction posting request
type PostTransactionRequest struct {
	LedgerID  string             `json:"ledger_id"`
	Reference string             `json:"reference"`
	Currency  string             `json:"currency"`
	Entries   []PostEntryRequest `json:"entries"`
}

// PostTransactionResponse reports the posting outcome. Created false means
// the reference was already committed and nothing changed.
type PostTransactionResponse struct {
	TransactionID string `json:"transaction_id"`
	Created       bool   `json:"created"`
}

// TransactionResponse represents a transaction response
type TransactionResponse struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	LedgerID  string `json:"ledger_id"`
	Reference string `json:"reference"`
	Currency  string `json:"currency"`
	CreatedAt string `json:"created_at"`
}

// TransactionPageResponse is one page of the transactions listing.
type TransactionPageResponse struct {
	Data       []TransactionResponse `json:"data"`
	NextCursor *string               `json:"next_cursor"`
}

// Post handles POST /v1/transactions. A fresh posting answers 201; a replay
// of an already committed reference answers 200 with the original ID.
func (h *TransactionHandler) Post(w http.ResponseWriter, r *http.Request) {
	auth, ok := callerAuth(r)
	if !ok {
		respondError(w, apperr.Unauthorized("API key is required"))
		return
	}

	var req PostTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		postingsTotal.WithLabelValues("rejected").Inc()
		respondInvalidInput(w, err.Error())
		return
	}

	in, err := toPostingInput(auth.TenantID, &req)
	if err != nil {
		postingsTotal.WithLabelValues("rejected").Inc()
		respondInvalidInput(w, err.Error())
		return
	}

	result, err := h.postingService.PostTransaction(r.Context(), in)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeInvariantViolation) {
			postingsTotal.WithLabelValues("rejected").Inc()
		} else {
			postingsTotal.WithLabelValues("failed").Inc()
		}
		respondError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Created {
		postingsTotal.WithLabelValues("created").Inc()
	} else {
		postingsTotal.WithLabelValues("replayed").Inc()
		status = http.StatusOK
	}

	respondJSON(w, PostTransactionResponse{
		TransactionID: result.TransactionID.String(),
		Created:       result.Created,
	}, status)
}

// toPostingInput converts the wire request, validating UUID fields at the
// edge. Everything else is the posting service's business.
func toPostingInput(tenantID uuid.UUID, req *PostTransactionRequest) (ledger.PostingInput, error) {
	ledgerID, err := uuid.Parse(req.LedgerID)
	if err != nil {
		return ledger.PostingInput{}, apperr.InvariantViolation("invalid ledger_id: not a UUID")
	}

	in := ledger.PostingInput{
		TenantID:  tenantID,
		LedgerID:  ledgerID,
		Reference: req.Reference,
		Currency:  req.Currency,
		Entries:   make([]ledger.PostingEntry, 0, len(req.Entries)),
	}

	for _, e := range req.Entries {
		accountID, err := uuid.Parse(e.AccountID)
		if err != nil {
			return ledger.PostingInput{}, apperr.InvariantViolation("invalid account_id: not a UUID")
		}
		in.Entries = append(in.Entries, ledger.PostingEntry{
			AccountID:   accountID,
			Direction:   ledger.Direction(e.Direction),
			AmountMinor: e.AmountMinor,
			Currency:    e.Currency,
		})
	}

	return in, nil
}

// List handles GET /v1/transactions
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	auth, ok := callerAuth(r)
	if !ok {
		respondError(w, apperr.Unauthorized("API key is required"))
		return
	}

	q, err := listQuery(r)
	if err != nil {
		respondInvalidInput(w, err.Error())
		return
	}

	page, err := h.readService.ListTransactions(r.Context(), auth.TenantID, q)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := TransactionPageResponse{
		Data:       make([]TransactionResponse, 0, len(page.Data)),
		NextCursor: nullableCursor(page.NextCursor),
	}
	for i := range page.Data {
		t := &page.Data[i]
		resp.Data = append(resp.Data, TransactionResponse{
			ID:        t.ID.String(),
			TenantID:  t.TenantID.String(),
			LedgerID:  t.LedgerID.String(),
			Reference: t.Reference,
			Currency:  t.Currency,
			CreatedAt: fmtTime(t.CreatedAt),
		})
	}

	respondJSON(w, resp, http.StatusOK)
}
