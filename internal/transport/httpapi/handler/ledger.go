package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/internal/shared/apperr"
)

// LedgerServiceInterface defines the ledger operations the handler needs.
type LedgerServiceInterface interface {
	CreateLedger(ctx context.Context, tenantID uuid.UUID, name string) (*ledger.Ledger, error)
	GetLedger(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Ledger, error)
	ListLedgers(ctx context.Context, tenantID uuid.UUID) ([]ledger.Ledger, error)
}

// TrialBalanceServiceInterface defines the trial balance report operation.
type TrialBalanceServiceInterface interface {
	TrialBalance(ctx context.Context, tenantID, ledgerID uuid.UUID) (*ledger.TrialBalance, error)
}

// LedgerHandler handles ledger-related HTTP requests
type LedgerHandler struct {
	ledgerService LedgerServiceInterface
	reportService TrialBalanceServiceInterface
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(ledgerService LedgerServiceInterface, reportService TrialBalanceServiceInterface) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
		reportService: reportService,
	}
}

// CreateLedgerRequest represents the ledger creation request
type CreateLedgerRequest struct {
	Name string `json:"name"`
}

// LedgerResponse represents a ledger response
type LedgerResponse struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toLedgerResponse(l *ledger.Ledger) LedgerResponse {
	return LedgerResponse{
		ID:        l.ID.String(),
		TenantID:  l.TenantID.String(),
		Name:      l.Name,
		CreatedAt: fmtTime(l.CreatedAt),
		UpdatedAt: fmtTime(l.UpdatedAt),
	}
}

// Create handles POST /v1/ledgers
func (h *LedgerHandler) Create(w http.ResponseWriter, r *http.Request) {
	auth, ok := callerAuth(r)
	if !ok {
		respondError(w, apperr.Unauthorized("API key is required"))
		return
	}

	var req CreateLedgerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondInvalidInput(w, err.Error())
		return
	}

	l, err := h.ledgerService.CreateLedger(r.Context(), auth.TenantID, req.Name)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, toLedgerResponse(l), http.StatusCreated)
}

// List handles GET /v1/ledgers
func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	auth, ok := callerAuth(r)
	if !ok {
		respondError(w, apperr.Unauthorized("API key is required"))
		return
	}

	ledgers, err := h.ledgerService.ListLedgers(r.Context(), auth.TenantID)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := make([]LedgerResponse, 0, len(ledgers))
	for i := range ledgers {
		resp = append(resp, toLedgerResponse(&ledgers[i]))
	}
	respondJSON(w, resp, http.StatusOK)
}

// Get handles GET /v1/ledgers/{id}
func (h *LedgerHandler) Get(w http.ResponseWriter, r *http.Request) {
	auth, ok := callerAuth(r)
	if !ok {
		respondError(w, apperr.Unauthorized("API key is required"))
		return
	}

	id, err := uuidParam(r, "id")
	if err != nil {
		respondInvalidInput(w, err.Error())
		return
	}

	l, err := h.ledgerService.GetLedger(r.Context(), auth.TenantID, id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, toLedgerResponse(l), http.StatusOK)
}

// TrialBalanceAccountResponse is one account line of a trial balance.
type TrialBalanceAccountResponse struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Currency     string `json:"currency"`
	BalanceMinor string `json:"balance_minor"`
	NormalSide   string `json:"normal_side"`
}

// TrialBalanceResponse represents a trial balance report
type TrialBalanceResponse struct {
	LedgerID          string                        `json:"ledger_id"`
	Accounts          []TrialBalanceAccountResponse `json:"accounts"`
	TotalDebitsMinor  string                        `json:"total_debits_minor"`
	TotalCreditsMinor string                        `json:"total_credits_minor"`
}

// TrialBalance handles GET /v1/ledgers/{ledger_id}/trial-balance
func (h *LedgerHandler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	auth, ok := callerAuth(r)
	if !ok {
		respondError(w, apperr.Unauthorized("API key is required"))
		return
	}

	ledgerID, err := uuidParam(r, "ledger_id")
	if err != nil {
		respondInvalidInput(w, err.Error())
		return
	}

	tb, err := h.reportService.TrialBalance(r.Context(), auth.TenantID, ledgerID)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := TrialBalanceResponse{
		LedgerID:          tb.LedgerID.String(),
		Accounts:          make([]TrialBalanceAccountResponse, 0, len(tb.Accounts)),
		TotalDebitsMinor:  tb.TotalDebitsMinor.String(),
		TotalCreditsMinor: tb.TotalCreditsMinor.String(),
	}
	for _, row := range tb.Accounts {
		resp.Accounts = append(resp.Accounts, TrialBalanceAccountResponse{
			Code:         row.Code,
			Name:         row.Name,
			Currency:     row.Currency,
			BalanceMinor: row.BalanceMinor.String(),
			NormalSide:   string(row.NormalSide),
		})
	}

	respondJSON(w, resp, http.StatusOK)
}
