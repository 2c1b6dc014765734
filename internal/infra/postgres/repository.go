package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements the ledger write and read ports plus the API key
// store against PostgreSQL. Tenant-scoped methods run inside a database
// transaction whose session variable app.tenant_id keys the row-level
// security policies; the transaction travels in the context.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL repository on top of an existing pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// txKey is the context key for storing database transactions
type ctxKey string

const txContextKey ctxKey = "ledger_tx"

// BeginTx starts a database transaction, binds the tenant ID to the
// app.tenant_id session variable for the transaction's lifetime, and stores
// the transaction in the returned context. The binding is the first statement
// of the transaction so every later statement sees the tenant's rows only.
func (r *Repository) BeginTx(ctx context.Context, tenantID uuid.UUID) (context.Context, error) {
	if tx := r.getTxFromContext(ctx); tx != nil {
		return ctx, fmt.Errorf("transaction already in progress")
	}
	if tenantID == uuid.Nil {
		return ctx, fmt.Errorf("tenant ID is required to begin a transaction")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return ctx, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(ctx, `SELECT set_config('app.tenant_id', $1, true)`, tenantID.String()); err != nil {
		_ = tx.Rollback(ctx)
		return ctx, fmt.Errorf("failed to bind tenant to transaction: %w", err)
	}

	return context.WithValue(ctx, txContextKey, tx), nil
}

// CommitTx commits the database transaction from the context
func (r *Repository) CommitTx(ctx context.Context) error {
	tx := r.getTxFromContext(ctx)
	if tx == nil {
		return fmt.Errorf("no transaction in context")
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// RollbackTx rolls back the database transaction from the context
func (r *Repository) RollbackTx(ctx context.Context) error {
	tx := r.getTxFromContext(ctx)
	if tx == nil {
		return fmt.Errorf("no transaction in context")
	}

	if err := tx.Rollback(ctx); err != nil {
		// Ignore already rolled back or committed errors
		if err == pgx.ErrTxClosed {
			return nil
		}
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

// withTenantTx runs fn inside a tenant-bound transaction. When the context
// already carries one, fn joins it and the outer owner commits or rolls back.
func (r *Repository) withTenantTx(ctx context.Context, tenantID uuid.UUID, fn func(ctx context.Context) error) error {
	if tx := r.getTxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	txCtx, err := r.BeginTx(ctx, tenantID)
	if err != nil {
		return translateError(err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = r.RollbackTx(txCtx)
		}
	}()

	if err := fn(txCtx); err != nil {
		return err
	}

	if err := r.CommitTx(txCtx); err != nil {
		return translateError(err)
	}
	committed = true

	return nil
}

// getTxFromContext retrieves the transaction from context if one exists
func (r *Repository) getTxFromContext(ctx context.Context) pgx.Tx {
	if tx, ok := ctx.Value(txContextKey).(pgx.Tx); ok {
		return tx
	}
	return nil
}

// getQueryer returns the transaction if one exists in context, otherwise
// returns the pool. This allows repository methods to work both inside and
// outside transactions.
func (r *Repository) getQueryer(ctx context.Context) interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
} {
	if tx := r.getTxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}
