package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is the authorization level of an API key.
type Role string

const (
	// RoleAdmin may manage API keys in addition to everything RoleService can.
	RoleAdmin Role = "ADMIN"
	// RoleService may use the ledger API but not the admin subtree.
	RoleService Role = "SERVICE"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleService
}

// KeyPrefix starts every raw API key.
const KeyPrefix = "llk_"

// Key is a stored API key. Only the SHA-256 hex digest of the raw key is
// persisted; the raw value is shown exactly once at creation. RevokedAt nil
// means the key is active.
type Key struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Role      Role
	KeyHash   string
	CreatedAt time.Time
	RevokedAt *time.Time
}

// Revoked reports whether the key has been revoked.
func (k *Key) Revoked() bool {
	return k.RevokedAt != nil
}

// AuthContext identifies an authenticated caller: which key, which tenant,
// which role. It is attached to every request that passes authentication.
type AuthContext struct {
	APIKeyID uuid.UUID `json:"api_key_id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Role     Role      `json:"role"`
}

// GenerateRawKey creates a new raw API key: the fixed prefix followed by
// 64 hex characters from 32 random bytes.
func GenerateRawKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return KeyPrefix + hex.EncodeToString(buf), nil
}

// HashKey returns the SHA-256 hex digest of a raw key. This is the only form
// in which keys are stored or looked up.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
