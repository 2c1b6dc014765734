package apikey

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
)

// Repository persists API keys and tenants. API keys authenticate tenants, so
// the implementation must not itself depend on tenant-scoped row filtering.
type Repository interface {
	// GetByHash returns the key with the given hash, or (nil, nil) when no
	// such key exists.
	GetByHash(ctx context.Context, keyHash string) (*Key, error)

	// Create stores a new key.
	Create(ctx context.Context, key *Key) error

	// ListByTenant returns all keys of a tenant, newest first.
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Key, error)

	// Revoke marks the key as revoked and returns its hash so cached auth
	// state can be invalidated. Revoking an already revoked or unknown key
	// returns an invariant violation.
	Revoke(ctx context.Context, tenantID, keyID uuid.UUID, at time.Time) (string, error)

	// CreateTenant stores a new tenant.
	CreateTenant(ctx context.Context, tenant *ledger.Tenant) error

	// BootstrapAdmin creates the tenant and key atomically if and only if no
	// API keys exist yet. It reports whether the bootstrap ran.
	BootstrapAdmin(ctx context.Context, tenant *ledger.Tenant, key *Key) (bool, error)
}

// AuthCache is an optional read-through cache for authentication lookups.
// Implementations signal a miss with (nil, nil); callers treat cache errors
// as misses and fall back to the repository.
type AuthCache interface {
	Get(ctx context.Context, keyHash string) (*AuthContext, error)
	Set(ctx context.Context, keyHash string, auth *AuthContext) error
	Delete(ctx context.Context, keyHash string) error
}
