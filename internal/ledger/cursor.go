package ledger

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/internal/shared/apperr"
)

// Cursor is the keyset position of a listing page. Listings are ordered by
// (createdAt ASC, id ASC); a cursor names the last row the caller has seen.
// On the wire it is base64url of {"created_at": RFC3339-UTC, "id": UUID},
// opaque to clients.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

type cursorPayload struct {
	CreatedAt *time.Time `json:"created_at"`
	ID        *uuid.UUID `json:"id"`
}

// Encode serializes the cursor into its opaque wire form.
func (c Cursor) Encode() string {
	created := c.CreatedAt.UTC()
	id := c.ID
	data, _ := json.Marshal(cursorPayload{CreatedAt: &created, ID: &id})
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses an opaque cursor string. Any malformed input (bad
// base64, bad JSON, missing fields, unparseable date or UUID) is an
// INVARIANT_VIOLATION.
func DecodeCursor(raw string) (*Cursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(raw, "="))
	if err != nil {
		return nil, apperr.WrapInvariantViolation(err, "invalid cursor")
	}

	var payload cursorPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, apperr.WrapInvariantViolation(err, "invalid cursor")
	}
	if payload.CreatedAt == nil || payload.ID == nil {
		return nil, apperr.InvariantViolation("invalid cursor")
	}

	return &Cursor{
		CreatedAt: payload.CreatedAt.UTC(),
		ID:        *payload.ID,
	}, nil
}
