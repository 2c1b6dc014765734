package apikey

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/internal/shared/apperr"
	"github.com/ledgerlink/ledgerlink/pkg/logger"
)

// Service authenticates API keys and manages their lifecycle.
type Service struct {
	repo  Repository
	cache AuthCache
	log   *logger.Logger
}

// NewService creates an API key service. cache may be nil, in which case
// every authentication goes to the repository.
func NewService(repo Repository, cache AuthCache, log *logger.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log.WithField("component", "apikey"),
	}
}

// Authenticate resolves a raw API key to an AuthContext. A missing key and an
// unknown or revoked key are both rejected as unauthorized; the two cases get
// distinct messages so clients can tell a missing header from a bad key.
func (s *Service) Authenticate(ctx context.Context, rawKey string) (*AuthContext, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return nil, apperr.Unauthorized("API key is required")
	}

	keyHash := HashKey(rawKey)

	if s.cache != nil {
		auth, err := s.cache.Get(ctx, keyHash)
		if err != nil {
			s.log.WithContext(ctx).Warn("auth cache read failed", "error", err)
		} else if auth != nil {
			return auth, nil
		}
	}

	key, err := s.repo.GetByHash(ctx, keyHash)
	if err != nil {
		return nil, err
	}
	if key == nil || key.Revoked() {
		return nil, apperr.Unauthorized("Invalid API key")
	}

	auth := &AuthContext{
		APIKeyID: key.ID,
		TenantID: key.TenantID,
		Role:     key.Role,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, keyHash, auth); err != nil {
			s.log.WithContext(ctx).Warn("auth cache write failed", "error", err)
		}
	}

	return auth, nil
}

// CreateKeyInput carries the caller-supplied fields of a new API key.
type CreateKeyInput struct {
	Name string
	Role Role
}

// CreateKey issues a new API key for the actor's tenant. Only admins may
// create keys. The raw key is returned once and never stored.
func (s *Service) CreateKey(ctx context.Context, actor *AuthContext, input CreateKeyInput) (*Key, string, error) {
	if actor == nil || actor.Role != RoleAdmin {
		return nil, "", apperr.Forbidden("Admin role required")
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, "", apperr.InvariantViolation("key name is required")
	}
	if !input.Role.Valid() {
		return nil, "", apperr.InvariantViolation("key role must be ADMIN or SERVICE")
	}

	rawKey, err := GenerateRawKey()
	if err != nil {
		return nil, "", apperr.RepositoryError(err)
	}

	key := &Key{
		ID:        uuid.New(),
		TenantID:  actor.TenantID,
		Name:      input.Name,
		Role:      input.Role,
		KeyHash:   HashKey(rawKey),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	if err := s.repo.Create(ctx, key); err != nil {
		return nil, "", err
	}

	s.log.WithContext(ctx).Info("api key created",
		"api_key_id", key.ID,
		"tenant_id", key.TenantID,
		"role", key.Role,
	)

	return key, rawKey, nil
}

// ListKeys returns the actor tenant's keys, newest first. Admin only.
func (s *Service) ListKeys(ctx context.Context, actor *AuthContext) ([]*Key, error) {
	if actor == nil || actor.Role != RoleAdmin {
		return nil, apperr.Forbidden("Admin role required")
	}
	return s.repo.ListByTenant(ctx, actor.TenantID)
}

// RevokeKey revokes one of the actor tenant's keys and drops any cached
// authentication for it. Admin only. Revoking is permanent.
func (s *Service) RevokeKey(ctx context.Context, actor *AuthContext, keyID uuid.UUID) error {
	if actor == nil || actor.Role != RoleAdmin {
		return apperr.Forbidden("Admin role required")
	}
	if keyID == uuid.Nil {
		return apperr.InvariantViolation("key id is required")
	}

	keyHash, err := s.repo.Revoke(ctx, actor.TenantID, keyID, time.Now().UTC().Truncate(time.Microsecond))
	if err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, keyHash); err != nil {
			s.log.WithContext(ctx).Warn("auth cache invalidation failed", "api_key_id", keyID, "error", err)
		}
	}

	s.log.WithContext(ctx).Info("api key revoked", "api_key_id", keyID, "tenant_id", actor.TenantID)
	return nil
}

// BootstrapInitialAdmin creates a first tenant with an ADMIN key when the
// store holds no keys at all. The raw key comes from configuration so the
// operator already knows it; it is stored hashed like any other key. The call
// is idempotent: once any key exists it does nothing and reports false.
func (s *Service) BootstrapInitialAdmin(ctx context.Context, tenantName, keyName, rawKey string) (bool, error) {
	tenantName = strings.TrimSpace(tenantName)
	keyName = strings.TrimSpace(keyName)
	rawKey = strings.TrimSpace(rawKey)

	if tenantName == "" || keyName == "" || rawKey == "" {
		return false, apperr.InvariantViolation("bootstrap tenant name, key name and key are required")
	}
	if !strings.HasPrefix(rawKey, KeyPrefix) {
		return false, apperr.InvariantViolation("bootstrap key must start with " + KeyPrefix)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	tenant := &ledger.Tenant{
		ID:        uuid.New(),
		Name:      tenantName,
		CreatedAt: now,
	}
	key := &Key{
		ID:        uuid.New(),
		TenantID:  tenant.ID,
		Name:      keyName,
		Role:      RoleAdmin,
		KeyHash:   HashKey(rawKey),
		CreatedAt: now,
	}

	created, err := s.repo.BootstrapAdmin(ctx, tenant, key)
	if err != nil {
		return false, err
	}
	if created {
		s.log.Info("bootstrapped initial admin key", "tenant_id", tenant.ID, "api_key_id", key.ID)
	}
	return created, nil
}
