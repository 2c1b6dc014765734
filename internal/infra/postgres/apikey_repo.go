package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ledgerlink/ledgerlink/internal/apikey"
	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/internal/shared/apperr"
)

// API key and tenant operations. These tables sit outside row-level security:
// key lookups happen before any tenant is known, so they run directly on the
// pool without a tenant-bound transaction.

const getKeyByHashSQL = `
	SELECT id, tenant_id, name, role, key_hash, created_at, revoked_at
	FROM api_keys
	WHERE key_hash = $1
`

// GetByHash returns the key with the given hash, or (nil, nil) when none
// exists. Revoked keys are returned too; the caller decides what a revoked
// key means.
func (r *Repository) GetByHash(ctx context.Context, keyHash string) (*apikey.Key, error) {
	var k apikey.Key
	var role string
	err := r.pool.QueryRow(ctx, getKeyByHashSQL, keyHash).Scan(
		&k.ID,
		&k.TenantID,
		&k.Name,
		&role,
		&k.KeyHash,
		&k.CreatedAt,
		&k.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translateError(fmt.Errorf("failed to get api key: %w", err))
	}
	k.Role = apikey.Role(role)
	return &k, nil
}

const insertKeySQL = `
	INSERT INTO api_keys (id, tenant_id, name, role, key_hash, created_at, revoked_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// Create stores a new API key.
func (r *Repository) Create(ctx context.Context, key *apikey.Key) error {
	_, err := r.pool.Exec(ctx, insertKeySQL,
		key.ID,
		key.TenantID,
		key.Name,
		string(key.Role),
		key.KeyHash,
		key.CreatedAt,
		key.RevokedAt,
	)
	if err != nil {
		return translateError(fmt.Errorf("failed to create api key: %w", err))
	}
	return nil
}

const listKeysByTenantSQL = `
	SELECT id, tenant_id, name, role, key_hash, created_at, revoked_at
	FROM api_keys
	WHERE tenant_id = $1
	ORDER BY created_at DESC, id DESC
`

// ListByTenant returns all keys of a tenant, newest first.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*apikey.Key, error) {
	rows, err := r.pool.Query(ctx, listKeysByTenantSQL, tenantID)
	if err != nil {
		return nil, translateError(fmt.Errorf("failed to query api keys: %w", err))
	}
	defer rows.Close()

	var keys []*apikey.Key
	for rows.Next() {
		var k apikey.Key
		var role string
		if err := rows.Scan(&k.ID, &k.TenantID, &k.Name, &role, &k.KeyHash, &k.CreatedAt, &k.RevokedAt); err != nil {
			return nil, translateError(fmt.Errorf("failed to scan api key: %w", err))
		}
		k.Role = apikey.Role(role)
		keys = append(keys, &k)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(fmt.Errorf("error iterating api keys: %w", err))
	}

	return keys, nil
}

const revokeKeySQL = `
	UPDATE api_keys
	SET revoked_at = $3
	WHERE id = $2 AND tenant_id = $1 AND revoked_at IS NULL
	RETURNING key_hash
`

// Revoke marks a key revoked and returns its hash for cache invalidation.
// A key that is unknown, another tenant's, or already revoked does not match.
func (r *Repository) Revoke(ctx context.Context, tenantID, keyID uuid.UUID, at time.Time) (string, error) {
	var keyHash string
	err := r.pool.QueryRow(ctx, revokeKeySQL, tenantID, keyID, at).Scan(&keyHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.InvariantViolationf("api key not found or already revoked: %s", keyID)
		}
		return "", translateError(fmt.Errorf("failed to revoke api key: %w", err))
	}
	return keyHash, nil
}

const insertTenantSQL = `
	INSERT INTO tenants (id, name, created_at)
	VALUES ($1, $2, $3)
`

// CreateTenant stores a new tenant.
func (r *Repository) CreateTenant(ctx context.Context, tenant *ledger.Tenant) error {
	_, err := r.pool.Exec(ctx, insertTenantSQL, tenant.ID, tenant.Name, tenant.CreatedAt)
	if err != nil {
		return translateError(fmt.Errorf("failed to create tenant: %w", err))
	}
	return nil
}

// bootstrapLockKey serializes concurrent bootstrap attempts across instances.
const bootstrapLockKey = 740031

const countKeysSQL = `SELECT COUNT(*) FROM api_keys`

// BootstrapAdmin creates the tenant and its admin key in one transaction if
// and only if the key table is still empty. An advisory lock makes the
// emptiness check and the inserts atomic across racing instances.
func (r *Repository) BootstrapAdmin(ctx context.Context, tenant *ledger.Tenant, key *apikey.Key) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, translateError(fmt.Errorf("failed to begin bootstrap transaction: %w", err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockKey); err != nil {
		return false, translateError(fmt.Errorf("failed to take bootstrap lock: %w", err))
	}

	var count int64
	if err := tx.QueryRow(ctx, countKeysSQL).Scan(&count); err != nil {
		return false, translateError(fmt.Errorf("failed to count api keys: %w", err))
	}
	if count > 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, insertTenantSQL, tenant.ID, tenant.Name, tenant.CreatedAt); err != nil {
		return false, translateError(fmt.Errorf("failed to create bootstrap tenant: %w", err))
	}
	if _, err := tx.Exec(ctx, insertKeySQL,
		key.ID,
		key.TenantID,
		key.Name,
		string(key.Role),
		key.KeyHash,
		key.CreatedAt,
		key.RevokedAt,
	); err != nil {
		return false, translateError(fmt.Errorf("failed to create bootstrap api key: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return false, translateError(fmt.Errorf("failed to commit bootstrap transaction: %w", err))
	}
	committed = true

	return true, nil
}
