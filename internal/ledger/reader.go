package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/internal/shared/apperr"
	"github.com/ledgerlink/ledgerlink/pkg/logger"
)

const (
	// MaxListLimit is the largest page size a listing accepts.
	MaxListLimit = 200
	// DefaultListLimit is the page size used when the caller names none.
	DefaultListLimit = 50
)

// ListQuery is the common input of the three listings.
type ListQuery struct {
	Limit  int
	Cursor string
}

// AccountPage is one page of the accounts listing. NextCursor is empty when
// no further page exists.
type AccountPage struct {
	Data       []Account
	NextCursor string
}

// TransactionPage is one page of the transactions listing.
type TransactionPage struct {
	Data       []Transaction
	NextCursor string
}

// EntryPage is one page of the entries listing.
type EntryPage struct {
	Data       []Entry
	NextCursor string
}

// ReadService validates list queries and delegates to the read repository.
// All results are ordered by (createdAt ASC, id ASC) and strictly confined to
// the caller's tenant.
type ReadService struct {
	repo ReadRepository
	log  *logger.Logger
}

// NewReadService creates a new read service.
func NewReadService(repo ReadRepository, log *logger.Logger) *ReadService {
	return &ReadService{
		repo: repo,
		log:  log.WithField("component", "reader"),
	}
}

// ListAccounts returns one page of the tenant's accounts.
func (s *ReadService) ListAccounts(ctx context.Context, tenantID uuid.UUID, q ListQuery) (*AccountPage, error) {
	pq, err := buildPageQuery(tenantID, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListAccounts(ctx, tenantID, pq)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	page := &AccountPage{Data: rows}
	if len(rows) > q.Limit {
		last := rows[q.Limit-1]
		page.Data = rows[:q.Limit]
		page.NextCursor = Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return page, nil
}

// ListTransactions returns one page of the tenant's transactions.
func (s *ReadService) ListTransactions(ctx context.Context, tenantID uuid.UUID, q ListQuery) (*TransactionPage, error) {
	pq, err := buildPageQuery(tenantID, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListTransactions(ctx, tenantID, pq)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	page := &TransactionPage{Data: rows}
	if len(rows) > q.Limit {
		last := rows[q.Limit-1]
		page.Data = rows[:q.Limit]
		page.NextCursor = Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return page, nil
}

// ListEntries returns one page of the tenant's entries.
func (s *ReadService) ListEntries(ctx context.Context, tenantID uuid.UUID, q ListQuery) (*EntryPage, error) {
	pq, err := buildPageQuery(tenantID, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListEntries(ctx, tenantID, pq)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	page := &EntryPage{Data: rows}
	if len(rows) > q.Limit {
		last := rows[q.Limit-1]
		page.Data = rows[:q.Limit]
		page.NextCursor = Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return page, nil
}

// buildPageQuery validates the query and turns it into a repository page
// request probing one row past the requested limit.
func buildPageQuery(tenantID uuid.UUID, q ListQuery) (PageQuery, error) {
	if tenantID == uuid.Nil {
		return PageQuery{}, apperr.InvariantViolation("tenant id is required")
	}
	if q.Limit < 1 || q.Limit > MaxListLimit {
		return PageQuery{}, apperr.InvariantViolationf("limit must be between 1 and %d", MaxListLimit)
	}

	pq := PageQuery{Limit: q.Limit + 1}
	if q.Cursor != "" {
		cursor, err := DecodeCursor(q.Cursor)
		if err != nil {
			return PageQuery{}, err
		}
		pq.After = cursor
	}
	return pq, nil
}
