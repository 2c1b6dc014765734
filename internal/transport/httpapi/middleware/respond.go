package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError emits the API error body from middleware, which cannot import
// the handler package without a cycle.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
