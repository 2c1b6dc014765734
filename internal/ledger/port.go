package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/pkg/money"
)

// PageQuery asks a listing repository for rows after a keyset position.
// Limit is the exact number of rows to fetch; callers probing for a next
// page pass their page size plus one.
type PageQuery struct {
	Limit int
	After *Cursor
}

// Repository is the write-side persistence port. Every mutating call runs
// inside a database transaction bound to a tenant: multi-statement flows are
// bracketed by BeginTx/CommitTx/RollbackTx with the transaction carried in
// the context, and single-statement operations open their own.
type Repository interface {
	// Transaction management. BeginTx opens a database transaction and binds
	// the tenant ID into the session variable row-level security keys on; the
	// binding dies with the transaction.
	BeginTx(ctx context.Context, tenantID uuid.UUID) (context.Context, error)
	CommitTx(ctx context.Context) error
	RollbackTx(ctx context.Context) error

	// Posting operations.
	// InsertTransaction reports false when (tenantID, reference) already
	// exists; it inserts nothing in that case.
	InsertTransaction(ctx context.Context, txn *Transaction) (bool, error)
	GetTransactionByReference(ctx context.Context, tenantID uuid.UUID, reference string) (*Transaction, error)
	InsertEntries(ctx context.Context, entries []Entry) error
	// ApplyBalanceDelta adds delta to the account balance, matching on
	// (id, tenantID, ledgerID, currency) simultaneously, and returns the new
	// balance. No matching row is an INVARIANT_VIOLATION.
	ApplyBalanceDelta(ctx context.Context, accountID, tenantID, ledgerID uuid.UUID, currency string, delta money.Minor) (money.Minor, error)

	// Ledger and account operations.
	CreateLedger(ctx context.Context, l *Ledger) error
	GetLedgerByID(ctx context.Context, tenantID, id uuid.UUID) (*Ledger, error)
	ListLedgers(ctx context.Context, tenantID uuid.UUID) ([]Ledger, error)
	CreateAccount(ctx context.Context, a *Account) error
}

// ReadRepository is the read-side persistence port for listings and the
// trial-balance scan. List methods return rows ordered by (createdAt, id)
// strictly after the cursor, at most PageQuery.Limit of them.
type ReadRepository interface {
	GetLedgerByID(ctx context.Context, tenantID, id uuid.UUID) (*Ledger, error)
	ListAccounts(ctx context.Context, tenantID uuid.UUID, q PageQuery) ([]Account, error)
	ListTransactions(ctx context.Context, tenantID uuid.UUID, q PageQuery) ([]Transaction, error)
	ListEntries(ctx context.Context, tenantID uuid.UUID, q PageQuery) ([]Entry, error)
	ListAccountsByLedger(ctx context.Context, tenantID, ledgerID uuid.UUID) ([]Account, error)
}
