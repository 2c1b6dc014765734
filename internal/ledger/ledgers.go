package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/internal/shared/apperr"
	"github.com/ledgerlink/ledgerlink/pkg/logger"
)

// LedgerService owns the tenant-scoped ledger and account lifecycle.
type LedgerService struct {
	repo Repository
	log  *logger.Logger
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(repo Repository, log *logger.Logger) *LedgerService {
	return &LedgerService{
		repo: repo,
		log:  log.WithField("component", "ledgers"),
	}
}

// CreateLedger creates a new ledger for the tenant.
func (s *LedgerService) CreateLedger(ctx context.Context, tenantID uuid.UUID, name string) (*Ledger, error) {
	if tenantID == uuid.Nil {
		return nil, apperr.InvariantViolation("tenant id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.InvariantViolation("ledger name is required")
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	l := &Ledger{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateLedger(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}

	s.log.WithContext(ctx).Info("ledger created", "ledger_id", l.ID, "name", l.Name)
	return l, nil
}

// GetLedger returns the tenant's ledger with the given ID, or
// LEDGER_NOT_FOUND.
func (s *LedgerService) GetLedger(ctx context.Context, tenantID, id uuid.UUID) (*Ledger, error) {
	if tenantID == uuid.Nil {
		return nil, apperr.InvariantViolation("tenant id is required")
	}
	return s.repo.GetLedgerByID(ctx, tenantID, id)
}

// ListLedgers returns all of the tenant's ledgers ordered by (createdAt, id).
func (s *LedgerService) ListLedgers(ctx context.Context, tenantID uuid.UUID) ([]Ledger, error) {
	if tenantID == uuid.Nil {
		return nil, apperr.InvariantViolation("tenant id is required")
	}
	return s.repo.ListLedgers(ctx, tenantID)
}

// CreateAccount creates a zero-balance account in one of the tenant's
// ledgers. The ledger must exist for the tenant.
func (s *LedgerService) CreateAccount(ctx context.Context, tenantID, ledgerID uuid.UUID, name, currency string) (*Account, error) {
	if tenantID == uuid.Nil {
		return nil, apperr.InvariantViolation("tenant id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.InvariantViolation("account name is required")
	}
	currency = strings.TrimSpace(currency)
	if currency == "" {
		return nil, apperr.InvariantViolation("account currency is required")
	}

	if _, err := s.repo.GetLedgerByID(ctx, tenantID, ledgerID); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	a := &Account{
		ID:           uuid.New(),
		TenantID:     tenantID,
		LedgerID:     ledgerID,
		Name:         name,
		Currency:     currency,
		BalanceMinor: 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateAccount(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.log.WithContext(ctx).Info("account created",
		"account_id", a.ID,
		"ledger_id", ledgerID,
		"currency", currency,
	)
	return a, nil
}
