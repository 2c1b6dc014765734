package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/internal/shared/apperr"
	"github.com/ledgerlink/ledgerlink/pkg/money"
)

// TrialBalanceRow is one account in a trial balance. BalanceMinor is the
// absolute value of the account balance; NormalSide says which column it
// belongs to. Code is the account ID: the data model has no
// chart-of-accounts codes.
type TrialBalanceRow struct {
	Code         string
	Name         string
	Currency     string
	BalanceMinor money.Minor
	NormalSide   Direction
}

// TrialBalance is the per-ledger report of all account balances split into
// debit-normal and credit-normal columns. The two totals are equal on any
// consistent ledger.
type TrialBalance struct {
	LedgerID          uuid.UUID
	Accounts          []TrialBalanceRow
	TotalDebitsMinor  money.Minor
	TotalCreditsMinor money.Minor
}

// TrialBalance builds the trial balance of one ledger. The ledger must exist
// for the tenant. Diverging totals mean the stored balances no longer match
// the entry log and are reported as a repository error.
func (s *ReadService) TrialBalance(ctx context.Context, tenantID, ledgerID uuid.UUID) (*TrialBalance, error) {
	if tenantID == uuid.Nil {
		return nil, apperr.InvariantViolation("tenant id is required")
	}

	if _, err := s.repo.GetLedgerByID(ctx, tenantID, ledgerID); err != nil {
		return nil, err
	}

	accounts, err := s.repo.ListAccountsByLedger(ctx, tenantID, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts: %w", err)
	}

	tb := &TrialBalance{
		LedgerID: ledgerID,
		Accounts: make([]TrialBalanceRow, 0, len(accounts)),
	}

	for _, a := range accounts {
		// A balance <= 0 is debit-normal by convention; zero counts as debit.
		side := DirectionCredit
		if a.BalanceMinor <= 0 {
			side = DirectionDebit
		}
		abs := a.BalanceMinor.Abs()

		if side == DirectionDebit {
			tb.TotalDebitsMinor += abs
		} else {
			tb.TotalCreditsMinor += abs
		}

		tb.Accounts = append(tb.Accounts, TrialBalanceRow{
			Code:         a.ID.String(),
			Name:         a.Name,
			Currency:     a.Currency,
			BalanceMinor: abs,
			NormalSide:   side,
		})
	}

	if tb.TotalDebitsMinor != tb.TotalCreditsMinor {
		return nil, apperr.RepositoryError(fmt.Errorf(
			"trial balance totals diverge for ledger %s: debit=%d, credit=%d",
			ledgerID, tb.TotalDebitsMinor, tb.TotalCreditsMinor))
	}

	return tb, nil
}
