package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/internal/shared/apperr"
)

// EntryReaderInterface defines the entries listing.
type EntryReaderInterface interface {
	ListEntries(ctx context.Context, tenantID uuid.UUID, q ledger.ListQuery) (*ledger.EntryPage, error)
}

// EntryHandler handles entry-related HTTP requests
type EntryHandler struct {
	readService EntryReaderInterface
}

// NewEntryHandler creates a new entry handler
func NewEntryHandler(readService EntryReaderInterface) *EntryHandler {
	return &EntryHandler{readService: readService}
}

// EntryResponse represents an entry response
type EntryResponse struct {
	ID            string `json:"id"`
	TenantID      string `json:"tenant_id"`
	TransactionID string `json:"transaction_id"`
	AccountID     string `json:"account_id"`
	Direction     string `json:"direction"`
	AmountMinor   string `json:"amount_minor"`
	Currency      string `json:"currency"`
	CreatedAt     string `json:"created_at"`
}

// EntryPageResponse is one page of the entries listing.
type EntryPageResponse struct {
	Data       []EntryResponse `json:"data"`
	NextCursor *string         `json:"next_cursor"`
}

// List handles GET /v1/entries
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
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

	page, err := h.readService.ListEntries(r.Context(), auth.TenantID, q)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := EntryPageResponse{
		Data:       make([]EntryResponse, 0, len(page.Data)),
		NextCursor: nullableCursor(page.NextCursor),
	}
	for i := range page.Data {
		e := &page.Data[i]
		resp.Data = append(resp.Data, EntryResponse{
			ID:            e.ID.String(),
			TenantID:      e.TenantID.String(),
			TransactionID: e.TransactionID.String(),
			AccountID:     e.AccountID.String(),
			Direction:     string(e.Direction),
			AmountMinor:   e.AmountMinor.String(),
			Currency:      e.Currency,
			CreatedAt:     fmtTime(e.CreatedAt),
		})
	}

	respondJSON(w, resp, http.StatusOK)
}
