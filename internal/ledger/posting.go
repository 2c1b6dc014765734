package ledger

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/internal/shared/apperr"
	"github.com/ledgerlink/ledgerlink/pkg/logger"
	"github.com/ledgerlink/ledgerlink/pkg/money"
)

// PostingInput is a request to post one balanced transaction.
type PostingInput struct {
	TenantID  uuid.UUID
	LedgerID  uuid.UUID
	Reference string
	Currency  string
	Entries   []PostingEntry
}

// PostingEntry is one leg of a posting request.
type PostingEntry struct {
	AccountID   uuid.UUID
	Direction   Direction
	AmountMinor money.Minor
	Currency    string
}

// PostingResult reports the outcome of PostTransaction. Created is false when
// an identical (tenantID, reference) was already committed; the returned
// TransactionID is then the original one and nothing was written.
type PostingResult struct {
	TransactionID uuid.UUID
	Created       bool
}

// PostingService implements the atomic write path of the ledger.
type PostingService struct {
	repo Repository
	log  *logger.Logger
}

// NewPostingService creates a new posting service.
func NewPostingService(repo Repository, log *logger.Logger) *PostingService {
	return &PostingService{
		repo: repo,
		log:  log.WithField("component", "posting"),
	}
}

// PostTransaction atomically persists a balanced transaction, its entries,
// and the resulting account-balance updates.
//
// Steps:
//  1. Validate the input in process (entry count, amounts, currencies,
//     debit/credit equality).
//  2. Open a tenant-bound database transaction.
//  3. Insert the transaction row idempotently on (tenantID, reference); on
//     conflict return the already-committed transaction with Created=false.
//  4. Insert all entry rows.
//  5. Apply per-account balance deltas in ascending account-ID order.
//  6. Commit.
//
// Any failure after step 2 rolls the database transaction back; no partial
// state is ever visible.
func (s *PostingService) PostTransaction(ctx context.Context, in PostingInput) (*PostingResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	txCtx, err := s.repo.BeginTx(ctx, in.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = s.repo.RollbackTx(txCtx)
		}
	}()

	now := time.Now().UTC().Truncate(time.Microsecond)
	txn := &Transaction{
		ID:        uuid.New(),
		TenantID:  in.TenantID,
		LedgerID:  in.LedgerID,
		Reference: in.Reference,
		Currency:  in.Currency,
		CreatedAt: now,
	}

	inserted, err := s.repo.InsertTransaction(txCtx, txn)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	if !inserted {
		existing, err := s.repo.GetTransactionByReference(txCtx, in.TenantID, in.Reference)
		if err != nil {
			return nil, fmt.Errorf("failed to load existing transaction: %w", err)
		}
		if err := s.repo.CommitTx(txCtx); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		committed = true

		s.log.WithContext(ctx).Info("posting replayed",
			"transaction_id", existing.ID,
			"reference", in.Reference,
		)
		return &PostingResult{TransactionID: existing.ID, Created: false}, nil
	}

	entries := make([]Entry, 0, len(in.Entries))
	for _, e := range in.Entries {
		entries = append(entries, Entry{
			ID:            uuid.New(),
			TenantID:      in.TenantID,
			TransactionID: txn.ID,
			AccountID:     e.AccountID,
			Direction:     e.Direction,
			AmountMinor:   e.AmountMinor,
			Currency:      e.Currency,
			CreatedAt:     now,
		})
	}
	if err := s.repo.InsertEntries(txCtx, entries); err != nil {
		return nil, fmt.Errorf("failed to insert entries: %w", err)
	}

	if err := s.updateBalances(txCtx, txn, entries); err != nil {
		return nil, err
	}

	if err := s.repo.CommitTx(txCtx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	s.log.WithContext(ctx).Info("posting committed",
		"transaction_id", txn.ID,
		"reference", in.Reference,
		"entries", len(entries),
	)
	return &PostingResult{TransactionID: txn.ID, Created: true}, nil
}

// updateBalances aggregates the entries into one delta per account and applies
// the deltas in ascending account-ID order. The ordering imposes a global row
// lock order: concurrent postings over overlapping account sets cannot
// deadlock. Accounts whose delta nets to zero are still updated so their
// ledger and currency assignment is checked.
//
// Deltas are summed in big.Int, like validate: several same-account entries
// can exceed the int64 range even when each amount alone fits, and an
// aggregate that wraps around would commit a corrupted balance.
func (s *PostingService) updateBalances(ctx context.Context, txn *Transaction, entries []Entry) error {
	deltas := make(map[uuid.UUID]*big.Int)
	for _, e := range entries {
		d, ok := deltas[e.AccountID]
		if !ok {
			d = big.NewInt(0)
			deltas[e.AccountID] = d
		}
		d.Add(d, big.NewInt(e.SignedAmount().Int64()))
	}

	accountIDs := make([]uuid.UUID, 0, len(deltas))
	for id := range deltas {
		accountIDs = append(accountIDs, id)
	}
	sort.Slice(accountIDs, func(i, j int) bool {
		return bytes.Compare(accountIDs[i][:], accountIDs[j][:]) < 0
	})

	for _, id := range accountIDs {
		d := deltas[id]
		if !d.IsInt64() {
			return apperr.RepositoryError(
				fmt.Errorf("aggregated balance delta %s for account %s exceeds the representable range", d.String(), id))
		}
		if _, err := s.repo.ApplyBalanceDelta(ctx, id, txn.TenantID, txn.LedgerID, txn.Currency, money.FromInt64(d.Int64())); err != nil {
			return fmt.Errorf("failed to update balance for account %s: %w", id, err)
		}
	}

	return nil
}

func (in PostingInput) validate() error {
	if in.TenantID == uuid.Nil {
		return apperr.InvariantViolation("tenant id is required")
	}
	if in.LedgerID == uuid.Nil {
		return apperr.InvariantViolation("ledger id is required")
	}
	if in.Reference == "" {
		return apperr.InvariantViolation("transaction reference is required")
	}
	if in.Currency == "" {
		return apperr.InvariantViolation("transaction currency is required")
	}
	if len(in.Entries) < 2 {
		return apperr.InvariantViolation("transaction must have at least 2 entries")
	}

	debitSum := big.NewInt(0)
	creditSum := big.NewInt(0)

	for i, e := range in.Entries {
		if e.AccountID == uuid.Nil {
			return apperr.InvariantViolationf("entry %d: account id is required", i)
		}
		if !e.Direction.Valid() {
			return apperr.InvariantViolationf("entry %d: invalid direction %q", i, e.Direction)
		}
		if !e.AmountMinor.IsPositive() {
			return apperr.InvariantViolationf("entry %d: amount must be positive", i)
		}
		if e.Currency != in.Currency {
			return apperr.InvariantViolationf(
				"entry %d: currency %s does not match transaction currency %s", i, e.Currency, in.Currency)
		}

		amount := big.NewInt(e.AmountMinor.Int64())
		if e.Direction == DirectionDebit {
			debitSum.Add(debitSum, amount)
		} else {
			creditSum.Add(creditSum, amount)
		}
	}

	if debitSum.Cmp(creditSum) != 0 {
		return apperr.InvariantViolationf(
			"transaction not balanced: debit=%s, credit=%s", debitSum.String(), creditSum.String())
	}

	return nil
}
