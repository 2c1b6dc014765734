package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/internal/apikey"
	"github.com/ledgerlink/ledgerlink/internal/shared/apperr"
)

// APIKeyServiceInterface defines the admin key management operations.
type APIKeyServiceInterface interface {
	CreateKey(ctx context.Context, actor *apikey.AuthContext, input apikey.CreateKeyInput) (*apikey.Key, string, error)
	ListKeys(ctx context.Context, actor *apikey.AuthContext) ([]*apikey.Key, error)
	RevokeKey(ctx context.Context, actor *apikey.AuthContext, keyID uuid.UUID) error
}

// APIKeyHandler handles the admin API key endpoints.
type APIKeyHandler struct {
	service APIKeyServiceInterface
}

// NewAPIKeyHandler creates a new API key handler
func NewAPIKeyHandler(service APIKeyServiceInterface) *APIKeyHandler {
	return &APIKeyHandler{service: service}
}

// CreateAPIKeyRequest represents the key creation request
type CreateAPIKeyRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// APIKeyResponse represents a stored API key. The key hash and the raw key
// are never part of it.
type APIKeyResponse struct {
	ID        string  `json:"id"`
	TenantID  string  `json:"tenant_id"`
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	CreatedAt string  `json:"created_at"`
	RevokedAt *string `json:"revoked_at"`
}

// CreateAPIKeyResponse carries the raw key exactly once, alongside the
// stored representation.
type CreateAPIKeyResponse struct {
	APIKey string         `json:"api_key"`
	Key    APIKeyResponse `json:"key"`
}

func toAPIKeyResponse(k *apikey.Key) APIKeyResponse {
	return APIKeyResponse{
		ID:        k.ID.String(),
		TenantID:  k.TenantID.String(),
		Name:      k.Name,
		Role:      string(k.Role),
		CreatedAt: fmtTime(k.CreatedAt),
		RevokedAt: fmtTimePtr(k.RevokedAt),
	}
}

// Create handles POST /v1/admin/api-keys
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	auth, ok := callerAuth(r)
	if !ok {
		respondError(w, apperr.Unauthorized("API key is required"))
		return
	}

	var req CreateAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondInvalidInput(w, err.Error())
		return
	}

	key, rawKey, err := h.service.CreateKey(r.Context(), auth, apikey.CreateKeyInput{
		Name: req.Name,
		Role: apikey.Role(req.Role),
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, CreateAPIKeyResponse{
		APIKey: rawKey,
		Key:    toAPIKeyResponse(key),
	}, http.StatusCreated)
}

// List handles GET /v1/admin/api-keys
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	auth, ok := callerAuth(r)
	if !ok {
		respondError(w, apperr.Unauthorized("API key is required"))
		return
	}

	keys, err := h.service.ListKeys(r.Context(), auth)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := make([]APIKeyResponse, 0, len(keys))
	for _, k := range keys {
		resp = append(resp, toAPIKeyResponse(k))
	}
	respondJSON(w, resp, http.StatusOK)
}

// Revoke handles POST /v1/admin/api-keys/{id}/revoke
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
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

	if err := h.service.RevokeKey(r.Context(), auth, id); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
