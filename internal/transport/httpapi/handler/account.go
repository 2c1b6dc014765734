package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/internal/shared/apperr"
)

// AccountServiceInterface defines the account operations the handler needs.
type AccountServiceInterface interface {
	CreateAccount(ctx context.Context, tenantID, ledgerID uuid.UUID, name, currency string) (*ledger.Account, error)
}

// AccountReaderInterface defines the accounts listing.
type AccountReaderInterface interface {
	ListAccounts(ctx context.Context, tenantID uuid.UUID, q ledger.ListQuery) (*ledger.AccountPage, error)
}

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	accountService AccountServiceInterface
	readService    AccountReaderInterface
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountService AccountServiceInterface, readService AccountReaderInterface) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		readService:    readService,
	}
}

// CreateAccountRequest represents the account creation request
type CreateAccountRequest struct {
	LedgerID string `json:"ledger_id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// AccountResponse represents an account response
type AccountResponse struct {
	ID           string `json:"id"`
	TenantID     string `json:"tenant_id"`
	LedgerID     string `json:"ledger_id"`
	Name         string `json:"name"`
	Currency     string `json:"currency"`
	BalanceMinor string `json:"balance_minor"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// AccountPageResponse is one page of the accounts listing.
type AccountPageResponse struct {
	Data       []AccountResponse `json:"data"`
	NextCursor *string           `json:"next_cursor"`
}

func toAccountResponse(a *ledger.Account) AccountResponse {
	return AccountResponse{
		ID:           a.ID.String(),
		TenantID:     a.TenantID.String(),
		LedgerID:     a.LedgerID.String(),
		Name:         a.Name,
		Currency:     a.Currency,
		BalanceMinor: a.BalanceMinor.String(),
		CreatedAt:    fmtTime(a.CreatedAt),
		UpdatedAt:    fmtTime(a.UpdatedAt),
	}
}

// Create handles POST /v1/accounts
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	auth, ok := callerAuth(r)
	if !ok {
		respondError(w, apperr.Unauthorized("API key is required"))
		return
	}

	var req CreateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondInvalidInput(w, err.Error())
		return
	}

	ledgerID, err := uuid.Parse(req.LedgerID)
	if err != nil {
		respondInvalidInput(w, "invalid ledger_id: not a UUID")
		return
	}

	a, err := h.accountService.CreateAccount(r.Context(), auth.TenantID, ledgerID, req.Name, req.Currency)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, toAccountResponse(a), http.StatusCreated)
}

// List handles GET /v1/accounts
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
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

	page, err := h.readService.ListAccounts(r.Context(), auth.TenantID, q)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := AccountPageResponse{
		Data:       make([]AccountResponse, 0, len(page.Data)),
		NextCursor: nullableCursor(page.NextCursor),
	}
	for i := range page.Data {
		resp.Data = append(resp.Data, toAccountResponse(&page.Data[i]))
	}

	respondJSON(w, resp, http.StatusOK)
}

// nullableCursor turns the service's empty-means-none cursor into the
// wire's explicit null.
func nullableCursor(cursor string) *string {
	if cursor == "" {
		return nil
	}
	return &cursor
}
