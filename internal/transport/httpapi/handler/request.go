package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/internal/apikey"
	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/internal/transport/httpapi/middleware"
)

// decodeJSON decodes a request body strictly: unknown fields and trailing
// garbage are schema errors.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("invalid request body: unexpected trailing data")
	}
	return nil
}

// uuidParam parses a UUID path parameter.
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %q is not a UUID", name, raw)
	}
	return id, nil
}

// listQuery reads the shared limit/cursor query parameters. A missing limit
// falls back to the default page size; a non-integer limit is a schema error.
// Range checking belongs to the service.
func listQuery(r *http.Request) (ledger.ListQuery, error) {
	q := ledger.ListQuery{
		Limit:  ledger.DefaultListLimit,
		Cursor: r.URL.Query().Get("cursor"),
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return ledger.ListQuery{}, fmt.Errorf("invalid limit: %q is not an integer", raw)
		}
		q.Limit = limit
	}

	return q, nil
}

// callerAuth pulls the authenticated caller installed by the auth middleware.
func callerAuth(r *http.Request) (*apikey.AuthContext, bool) {
	return middleware.AuthFromContext(r.Context())
}
