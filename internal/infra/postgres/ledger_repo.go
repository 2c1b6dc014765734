package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/internal/shared/apperr"
	"github.com/ledgerlink/ledgerlink/pkg/money"
)

// Transaction operations

const insertTransactionSQL = `
	INSERT INTO transactions (id, tenant_id, ledger_id, reference, currency, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (tenant_id, reference) DO NOTHING
`

// InsertTransaction attempts the idempotent insert of a transaction row. It
// reports false without error when (tenant_id, reference) already exists.
func (r *Repository) InsertTransaction(ctx context.Context, txn *ledger.Transaction) (bool, error) {
	q := r.getQueryer(ctx)
	tag, err := q.Exec(ctx, insertTransactionSQL,
		txn.ID,
		txn.TenantID,
		txn.LedgerID,
		txn.Reference,
		txn.Currency,
		txn.CreatedAt,
	)
	if err != nil {
		return false, translateError(fmt.Errorf("failed to insert transaction: %w", err))
	}
	return tag.RowsAffected() == 1, nil
}

const getTransactionByReferenceSQL = `
	SELECT id, tenant_id, ledger_id, reference, currency, created_at
	FROM transactions
	WHERE tenant_id = $1 AND reference = $2
`

// GetTransactionByReference looks up the committed transaction behind an
// idempotency key. The caller only asks after an insert conflict, so a miss
// means the conflicting row vanished mid-transaction and is a repository
// failure, not a not-found.
func (r *Repository) GetTransactionByReference(ctx context.Context, tenantID uuid.UUID, reference string) (*ledger.Transaction, error) {
	q := r.getQueryer(ctx)

	var txn ledger.Transaction
	err := q.QueryRow(ctx, getTransactionByReferenceSQL, tenantID, reference).Scan(
		&txn.ID,
		&txn.TenantID,
		&txn.LedgerID,
		&txn.Reference,
		&txn.Currency,
		&txn.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.RepositoryError(fmt.Errorf("transaction missing after idempotent insert conflict: %w", err))
		}
		return nil, translateError(fmt.Errorf("failed to get transaction by reference: %w", err))
	}

	return &txn, nil
}

const insertEntrySQL = `
	INSERT INTO entries (id, tenant_id, transaction_id, account_id, direction, amount_minor, currency, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// InsertEntries inserts all entry rows of one transaction in a single batch
// round trip.
func (r *Repository) InsertEntries(ctx context.Context, entries []ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range entries {
		e := &entries[i]
		batch.Queue(insertEntrySQL,
			e.ID,
			e.TenantID,
			e.TransactionID,
			e.AccountID,
			string(e.Direction),
			int64(e.AmountMinor),
			e.Currency,
			e.CreatedAt,
		)
	}

	q := r.getQueryer(ctx)
	br := q.SendBatch(ctx, batch)
	defer br.Close()

	for range entries {
		if _, err := br.Exec(); err != nil {
			return translateError(fmt.Errorf("failed to insert entry: %w", err))
		}
	}

	return nil
}

// Balance operations

const applyBalanceDeltaSQL = `
	UPDATE accounts
	SET balance_minor = balance_minor + $5, updated_at = now()
	WHERE id = $1 AND tenant_id = $2 AND ledger_id = $3 AND currency = $4
	RETURNING balance_minor
`

// ApplyBalanceDelta adds delta to one account's balance, matching the account
// on id, tenant, ledger and currency at once, and returns the new balance.
// The UPDATE takes the row lock that serializes concurrent postings; callers
// apply deltas in ascending account ID order so lock acquisition is globally
// ordered. A bigint overflow aborts the surrounding transaction and surfaces
// as a repository error.
func (r *Repository) ApplyBalanceDelta(ctx context.Context, accountID, tenantID, ledgerID uuid.UUID, currency string, delta money.Minor) (money.Minor, error) {
	q := r.getQueryer(ctx)

	var balance int64
	err := q.QueryRow(ctx, applyBalanceDeltaSQL,
		accountID,
		tenantID,
		ledgerID,
		currency,
		int64(delta),
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperr.InvariantViolationf("account ledger/currency mismatch: %s", accountID)
		}
		return 0, apperr.RepositoryError(fmt.Errorf("failed to apply balance delta: %w", err))
	}

	return money.Minor(balance), nil
}

// Ledger operations

const insertLedgerSQL = `
	INSERT INTO ledgers (id, tenant_id, name, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5)
`

// CreateLedger stores a new ledger.
func (r *Repository) CreateLedger(ctx context.Context, l *ledger.Ledger) error {
	return r.withTenantTx(ctx, l.TenantID, func(ctx context.Context) error {
		q := r.getQueryer(ctx)
		_, err := q.Exec(ctx, insertLedgerSQL,
			l.ID,
			l.TenantID,
			l.Name,
			l.CreatedAt,
			l.UpdatedAt,
		)
		if err != nil {
			return translateError(fmt.Errorf("failed to create ledger: %w", err))
		}
		return nil
	})
}

const getLedgerByIDSQL = `
	SELECT id, tenant_id, name, created_at, updated_at
	FROM ledgers
	WHERE id = $1 AND tenant_id = $2
`

// GetLedgerByID retrieves one of the tenant's ledgers by ID.
func (r *Repository) GetLedgerByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Ledger, error) {
	var l ledger.Ledger
	err := r.withTenantTx(ctx, tenantID, func(ctx context.Context) error {
		q := r.getQueryer(ctx)
		err := q.QueryRow(ctx, getLedgerByIDSQL, id, tenantID).Scan(
			&l.ID,
			&l.TenantID,
			&l.Name,
			&l.CreatedAt,
			&l.UpdatedAt,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.LedgerNotFound(id)
			}
			return translateError(fmt.Errorf("failed to get ledger: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

const listLedgersSQL = `
	SELECT id, tenant_id, name, created_at, updated_at
	FROM ledgers
	WHERE tenant_id = $1
	ORDER BY created_at ASC, id ASC
`

// ListLedgers returns all ledgers of a tenant in creation order.
func (r *Repository) ListLedgers(ctx context.Context, tenantID uuid.UUID) ([]ledger.Ledger, error) {
	var ledgers []ledger.Ledger
	err := r.withTenantTx(ctx, tenantID, func(ctx context.Context) error {
		q := r.getQueryer(ctx)
		rows, err := q.Query(ctx, listLedgersSQL, tenantID)
		if err != nil {
			return translateError(fmt.Errorf("failed to query ledgers: %w", err))
		}
		defer rows.Close()

		for rows.Next() {
			var l ledger.Ledger
			if err := rows.Scan(&l.ID, &l.TenantID, &l.Name, &l.CreatedAt, &l.UpdatedAt); err != nil {
				return translateError(fmt.Errorf("failed to scan ledger: %w", err))
			}
			ledgers = append(ledgers, l)
		}
		if err := rows.Err(); err != nil {
			return translateError(fmt.Errorf("error iterating ledgers: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ledgers, nil
}

// Account operations

const insertAccountSQL = `
	INSERT INTO accounts (id, tenant_id, ledger_id, name, currency, balance_minor, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// CreateAccount stores a new account with its opening balance.
func (r *Repository) CreateAccount(ctx context.Context, a *ledger.Account) error {
	return r.withTenantTx(ctx, a.TenantID, func(ctx context.Context) error {
		q := r.getQueryer(ctx)
		_, err := q.Exec(ctx, insertAccountSQL,
			a.ID,
			a.TenantID,
			a.LedgerID,
			a.Name,
			a.Currency,
			int64(a.BalanceMinor),
			a.CreatedAt,
			a.UpdatedAt,
		)
		if err != nil {
			return translateError(fmt.Errorf("failed to create account: %w", err))
		}
		return nil
	})
}
