package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/pkg/money"
)

// Direction is the side of a double-entry posting.
type Direction string

const (
	DirectionDebit  Direction = "DEBIT"
	DirectionCredit Direction = "CREDIT"
)

// Valid reports whether the direction is one of the two known sides.
func (d Direction) Valid() bool {
	return d == DirectionDebit || d == DirectionCredit
}

// Tenant is the root of isolation. Every other entity belongs to exactly one.
type Tenant struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Ledger groups accounts within a tenant.
type Ledger struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Account is a balance-bearing entity within a ledger and a single currency.
// BalanceMinor is the algebraic sum of all committed entry contributions:
// CREDIT entries add, DEBIT entries subtract.
type Account struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	LedgerID     uuid.UUID
	Name         string
	Currency     string
	BalanceMinor money.Minor
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Transaction is an atomic set of entries sharing a reference and currency
// within one ledger. (TenantID, Reference) is unique: it is the idempotency
// key for PostTransaction.
type Transaction struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	LedgerID  uuid.UUID
	Reference string
	Currency  string
	CreatedAt time.Time
}

// Entry is one directional contribution against one account. The tenant ID is
// denormalized onto every entry so listings stay single-table and row-level
// security covers them directly.
type Entry struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	TransactionID uuid.UUID
	AccountID     uuid.UUID
	Direction     Direction
	AmountMinor   money.Minor
	Currency      string
	CreatedAt     time.Time
}

// SignedAmount returns the entry's contribution to its account balance:
// positive for CREDIT, negative for DEBIT.
func (e *Entry) SignedAmount() money.Minor {
	if e.Direction == DirectionDebit {
		return -e.AmountMinor
	}
	return e.AmountMinor
}
