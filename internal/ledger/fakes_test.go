package ledger_test

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/internal/shared/apperr"
	"github.com/ledgerlink/ledgerlink/pkg/money"
)

type fakeTxKey struct{}

// fakeState is the committed (or staged) data of the fake store.
type fakeState struct {
	ledgers      []ledger.Ledger
	accounts     []ledger.Account
	transactions []ledger.Transaction
	entries      []ledger.Entry
}

func (s *fakeState) clone() *fakeState {
	c := &fakeState{}
	c.ledgers = append(c.ledgers, s.ledgers...)
	c.accounts = append(c.accounts, s.accounts...)
	c.transactions = append(c.transactions, s.transactions...)
	c.entries = append(c.entries, s.entries...)
	return c
}

// fakeStore is an in-memory implementation of both ledger repository ports.
// BeginTx snapshots the state; RollbackTx restores the snapshot, so failed
// postings leave no partial writes, mirroring the database transaction.
type fakeStore struct {
	mu       sync.Mutex
	state    *fakeState
	snapshot *fakeState

	// Failure injection
	insertEntriesErr error
	applyDeltaErr    error

	// appliedDeltaOrder records the account IDs ApplyBalanceDelta was called
	// with, in call order.
	appliedDeltaOrder []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: &fakeState{}}
}

func (f *fakeStore) BeginTx(ctx context.Context, tenantID uuid.UUID) (context.Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tenantID == uuid.Nil {
		return ctx, fmt.Errorf("tenant ID is required to begin a transaction")
	}
	if f.snapshot != nil {
		return ctx, fmt.Errorf("transaction already in progress")
	}
	f.snapshot = f.state.clone()
	return context.WithValue(ctx, fakeTxKey{}, tenantID), nil
}

func (f *fakeStore) CommitTx(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshot == nil {
		return fmt.Errorf("no transaction in context")
	}
	f.snapshot = nil
	return nil
}

func (f *fakeStore) RollbackTx(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshot == nil {
		return fmt.Errorf("no transaction in context")
	}
	f.state = f.snapshot
	f.snapshot = nil
	return nil
}

func (f *fakeStore) InsertTransaction(ctx context.Context, txn *ledger.Transaction) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.state.transactions {
		if t.TenantID == txn.TenantID && t.Reference == txn.Reference {
			return false, nil
		}
	}
	f.state.transactions = append(f.state.transactions, *txn)
	return true, nil
}

func (f *fakeStore) GetTransactionByReference(ctx context.Context, tenantID uuid.UUID, reference string) (*ledger.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.state.transactions {
		t := f.state.transactions[i]
		if t.TenantID == tenantID && t.Reference == reference {
			return &t, nil
		}
	}
	return nil, apperr.RepositoryError(fmt.Errorf("transaction missing after idempotent insert conflict"))
}

func (f *fakeStore) InsertEntries(ctx context.Context, entries []ledger.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertEntriesErr != nil {
		return f.insertEntriesErr
	}
	f.state.entries = append(f.state.entries, entries...)
	return nil
}

func (f *fakeStore) ApplyBalanceDelta(ctx context.Context, accountID, tenantID, ledgerID uuid.UUID, currency string, delta money.Minor) (money.Minor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appliedDeltaOrder = append(f.appliedDeltaOrder, accountID)

	if f.applyDeltaErr != nil {
		return 0, f.applyDeltaErr
	}

	for i := range f.state.accounts {
		a := &f.state.accounts[i]
		if a.ID != accountID || a.TenantID != tenantID || a.LedgerID != ledgerID || a.Currency != currency {
			continue
		}
		// Same failure the database raises on a bigint overflow.
		if wouldOverflow(int64(a.BalanceMinor), int64(delta)) {
			return 0, apperr.RepositoryError(fmt.Errorf("bigint out of range"))
		}
		a.BalanceMinor += delta
		return a.BalanceMinor, nil
	}
	return 0, apperr.InvariantViolationf("account ledger/currency mismatch: %s", accountID)
}

func wouldOverflow(balance, delta int64) bool {
	if delta > 0 {
		return balance > math.MaxInt64-delta
	}
	return balance < math.MinInt64-delta
}

func (f *fakeStore) CreateLedger(ctx context.Context, l *ledger.Ledger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.ledgers = append(f.state.ledgers, *l)
	return nil
}

func (f *fakeStore) GetLedgerByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Ledger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.state.ledgers {
		l := f.state.ledgers[i]
		if l.ID == id && l.TenantID == tenantID {
			return &l, nil
		}
	}
	return nil, apperr.LedgerNotFound(id)
}

func (f *fakeStore) ListLedgers(ctx context.Context, tenantID uuid.UUID) ([]ledger.Ledger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ledger.Ledger
	for _, l := range f.state.ledgers {
		if l.TenantID == tenantID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return keysetLess(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out, nil
}

func (f *fakeStore) CreateAccount(ctx context.Context, a *ledger.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.accounts = append(f.state.accounts, *a)
	return nil
}

// Read side

func (f *fakeStore) ListAccounts(ctx context.Context, tenantID uuid.UUID, q ledger.PageQuery) ([]ledger.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ledger.Account
	for _, a := range f.state.accounts {
		if a.TenantID == tenantID && afterCursor(a.CreatedAt, a.ID, q.After) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return keysetLess(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return clipPage(out, q.Limit), nil
}

func (f *fakeStore) ListTransactions(ctx context.Context, tenantID uuid.UUID, q ledger.PageQuery) ([]ledger.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ledger.Transaction
	for _, t := range f.state.transactions {
		if t.TenantID == tenantID && afterCursor(t.CreatedAt, t.ID, q.After) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return keysetLess(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return clipPage(out, q.Limit), nil
}

func (f *fakeStore) ListEntries(ctx context.Context, tenantID uuid.UUID, q ledger.PageQuery) ([]ledger.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ledger.Entry
	for _, e := range f.state.entries {
		if e.TenantID == tenantID && afterCursor(e.CreatedAt, e.ID, q.After) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return keysetLess(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return clipPage(out, q.Limit), nil
}

func (f *fakeStore) ListAccountsByLedger(ctx context.Context, tenantID, ledgerID uuid.UUID) ([]ledger.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ledger.Account
	for _, a := range f.state.accounts {
		if a.TenantID == tenantID && a.LedgerID == ledgerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return keysetLess(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out, nil
}

// Test-side helpers

func (f *fakeStore) accountByID(id uuid.UUID) *ledger.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.state.accounts {
		if f.state.accounts[i].ID == id {
			a := f.state.accounts[i]
			return &a
		}
	}
	return nil
}

func (f *fakeStore) transactionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.state.transactions)
}

func (f *fakeStore) entryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.state.entries)
}

// keysetLess orders rows by (createdAt, id), the same ordering the SQL
// listings use.
func keysetLess(t1 time.Time, id1 uuid.UUID, t2 time.Time, id2 uuid.UUID) bool {
	if !t1.Equal(t2) {
		return t1.Before(t2)
	}
	return bytes.Compare(id1[:], id2[:]) < 0
}

// afterCursor reports whether a row at (createdAt, id) lies strictly after
// the cursor position. A nil cursor admits everything.
func afterCursor(t time.Time, id uuid.UUID, c *ledger.Cursor) bool {
	if c == nil {
		return true
	}
	return keysetLess(c.CreatedAt, c.ID, t, id)
}

func clipPage[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
