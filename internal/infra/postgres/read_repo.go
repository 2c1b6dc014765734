package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/pkg/money"
)

// queryPage runs the cursorless or the after-cursor form of a listing query
// depending on whether the page query carries a cursor.
func (r *Repository) queryPage(ctx context.Context, plainSQL, afterSQL string, tenantID uuid.UUID, q ledger.PageQuery) (pgx.Rows, error) {
	qr := r.getQueryer(ctx)
	if q.After == nil {
		return qr.Query(ctx, plainSQL, tenantID, q.Limit)
	}
	return qr.Query(ctx, afterSQL, tenantID, q.After.CreatedAt, q.After.ID, q.Limit)
}

// Listing queries. Each comes in two forms, without and with a keyset cursor.
// The ordering (created_at ASC, id ASC) matches the cursor protocol exactly;
// the cursor predicate selects rows strictly after the cursor position.

const (
	listAccountsSQL = `
		SELECT id, tenant_id, ledger_id, name, currency, balance_minor, created_at, updated_at
		FROM accounts
		WHERE tenant_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`
	listAccountsAfterSQL = `
		SELECT id, tenant_id, ledger_id, name, currency, balance_minor, created_at, updated_at
		FROM accounts
		WHERE tenant_id = $1 AND (created_at > $2 OR (created_at = $2 AND id > $3))
		ORDER BY created_at ASC, id ASC
		LIMIT $4
	`

	listTransactionsSQL = `
		SELECT id, tenant_id, ledger_id, reference, currency, created_at
		FROM transactions
		WHERE tenant_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`
	listTransactionsAfterSQL = `
		SELECT id, tenant_id, ledger_id, reference, currency, created_at
		FROM transactions
		WHERE tenant_id = $1 AND (created_at > $2 OR (created_at = $2 AND id > $3))
		ORDER BY created_at ASC, id ASC
		LIMIT $4
	`

	listEntriesSQL = `
		SELECT id, tenant_id, transaction_id, account_id, direction, amount_minor, currency, created_at
		FROM entries
		WHERE tenant_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`
	listEntriesAfterSQL = `
		SELECT id, tenant_id, transaction_id, account_id, direction, amount_minor, currency, created_at
		FROM entries
		WHERE tenant_id = $1 AND (created_at > $2 OR (created_at = $2 AND id > $3))
		ORDER BY created_at ASC, id ASC
		LIMIT $4
	`
)

// ListAccounts returns up to q.Limit accounts of the tenant ordered by
// (created_at, id), starting strictly after the cursor when one is set.
func (r *Repository) ListAccounts(ctx context.Context, tenantID uuid.UUID, q ledger.PageQuery) ([]ledger.Account, error) {
	var accounts []ledger.Account
	err := r.withTenantTx(ctx, tenantID, func(ctx context.Context) error {
		rows, err := r.queryPage(ctx, listAccountsSQL, listAccountsAfterSQL, tenantID, q)
		if err != nil {
			return translateError(fmt.Errorf("failed to query accounts: %w", err))
		}
		defer rows.Close()

		for rows.Next() {
			var a ledger.Account
			var balance int64
			if err := rows.Scan(&a.ID, &a.TenantID, &a.LedgerID, &a.Name, &a.Currency, &balance, &a.CreatedAt, &a.UpdatedAt); err != nil {
				return translateError(fmt.Errorf("failed to scan account: %w", err))
			}
			a.BalanceMinor = money.Minor(balance)
			accounts = append(accounts, a)
		}
		if err := rows.Err(); err != nil {
			return translateError(fmt.Errorf("error iterating accounts: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// ListTransactions returns up to q.Limit transactions of the tenant ordered
// by (created_at, id), starting strictly after the cursor when one is set.
func (r *Repository) ListTransactions(ctx context.Context, tenantID uuid.UUID, q ledger.PageQuery) ([]ledger.Transaction, error) {
	var txns []ledger.Transaction
	err := r.withTenantTx(ctx, tenantID, func(ctx context.Context) error {
		rows, err := r.queryPage(ctx, listTransactionsSQL, listTransactionsAfterSQL, tenantID, q)
		if err != nil {
			return translateError(fmt.Errorf("failed to query transactions: %w", err))
		}
		defer rows.Close()

		for rows.Next() {
			var t ledger.Transaction
			if err := rows.Scan(&t.ID, &t.TenantID, &t.LedgerID, &t.Reference, &t.Currency, &t.CreatedAt); err != nil {
				return translateError(fmt.Errorf("failed to scan transaction: %w", err))
			}
			txns = append(txns, t)
		}
		if err := rows.Err(); err != nil {
			return translateError(fmt.Errorf("error iterating transactions: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txns, nil
}

// ListEntries returns up to q.Limit entries of the tenant ordered by
// (created_at, id), starting strictly after the cursor when one is set. The
// filter uses the entry's own denormalized tenant column so the query stays
// single-table.
func (r *Repository) ListEntries(ctx context.Context, tenantID uuid.UUID, q ledger.PageQuery) ([]ledger.Entry, error) {
	var entries []ledger.Entry
	err := r.withTenantTx(ctx, tenantID, func(ctx context.Context) error {
		rows, err := r.queryPage(ctx, listEntriesSQL, listEntriesAfterSQL, tenantID, q)
		if err != nil {
			return translateError(fmt.Errorf("failed to query entries: %w", err))
		}
		defer rows.Close()

		for rows.Next() {
			var e ledger.Entry
			var direction string
			var amount int64
			if err := rows.Scan(&e.ID, &e.TenantID, &e.TransactionID, &e.AccountID, &direction, &amount, &e.Currency, &e.CreatedAt); err != nil {
				return translateError(fmt.Errorf("failed to scan entry: %w", err))
			}
			e.Direction = ledger.Direction(direction)
			e.AmountMinor = money.Minor(amount)
			entries = append(entries, e)
		}
		if err := rows.Err(); err != nil {
			return translateError(fmt.Errorf("error iterating entries: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

const listAccountsByLedgerSQL = `
	SELECT id, tenant_id, ledger_id, name, currency, balance_minor, created_at, updated_at
	FROM accounts
	WHERE tenant_id = $1 AND ledger_id = $2
	ORDER BY created_at ASC, id ASC
`

// ListAccountsByLedger returns every account of one ledger in creation order.
// The trial balance reads whole ledgers, so this listing is not paginated.
func (r *Repository) ListAccountsByLedger(ctx context.Context, tenantID, ledgerID uuid.UUID) ([]ledger.Account, error) {
	var accounts []ledger.Account
	err := r.withTenantTx(ctx, tenantID, func(ctx context.Context) error {
		q := r.getQueryer(ctx)
		rows, err := q.Query(ctx, listAccountsByLedgerSQL, tenantID, ledgerID)
		if err != nil {
			return translateError(fmt.Errorf("failed to query ledger accounts: %w", err))
		}
		defer rows.Close()

		for rows.Next() {
			var a ledger.Account
			var balance int64
			if err := rows.Scan(&a.ID, &a.TenantID, &a.LedgerID, &a.Name, &a.Currency, &balance, &a.CreatedAt, &a.UpdatedAt); err != nil {
				return translateError(fmt.Errorf("failed to scan account: %w", err))
			}
			a.BalanceMinor = money.Minor(balance)
			accounts = append(accounts, a)
		}
		if err := rows.Err(); err != nil {
			return translateError(fmt.Errorf("error iterating ledger accounts: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}
