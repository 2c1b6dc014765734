package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ledgerlink/ledgerlink/internal/shared/apperr"
)

// ErrorResponse is the wire shape of every error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError maps a service error onto its HTTP status and wire code.
// Repository failures and unknown errors collapse to a generic 500 body; the
// underlying cause stays in logs and never reaches the client.
func respondError(w http.ResponseWriter, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		respondJSON(w, ErrorResponse{Error: "INTERNAL_ERROR", Message: "Internal server error"}, http.StatusInternalServerError)
		return
	}

	switch appErr.Code {
	case apperr.CodeLedgerNotFound:
		respondJSON(w, ErrorResponse{Error: appErr.Code, Message: appErr.Message}, http.StatusNotFound)
	case apperr.CodeInvariantViolation:
		respondJSON(w, ErrorResponse{Error: appErr.Code, Message: appErr.Message}, http.StatusBadRequest)
	case apperr.CodeUnauthorized:
		respondJSON(w, ErrorResponse{Error: appErr.Code, Message: appErr.Message}, http.StatusUnauthorized)
	case apperr.CodeForbidden:
		respondJSON(w, ErrorResponse{Error: appErr.Code, Message: appErr.Message}, http.StatusForbidden)
	default:
		respondJSON(w, ErrorResponse{Error: "INTERNAL_ERROR", Message: "Internal server error"}, http.StatusInternalServerError)
	}
}

// respondInvalidInput reports a schema-level validation failure at the edge:
// malformed JSON, bad UUIDs, non-numeric limits.
func respondInvalidInput(w http.ResponseWriter, message string) {
	respondJSON(w, ErrorResponse{Error: "INVALID_INPUT", Message: message}, http.StatusBadRequest)
}

// fmtTime renders a timestamp for response bodies.
func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// fmtTimePtr renders an optional timestamp, keeping nil as nil.
func fmtTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := fmtTime(*t)
	return &s
}
