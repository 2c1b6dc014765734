//go:build integration

package postgres

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/internal/shared/apperr"
	"github.com/ledgerlink/ledgerlink/pkg/logger"
	"github.com/ledgerlink/ledgerlink/pkg/money"
)

// Full-stack posting tests: the real services on the real repository, so the
// database transaction, the idempotent insert and the row locks are all
// exercised for real.

type postingEnv struct {
	repo     *Repository
	postings *ledger.PostingService
	ledgers  *ledger.LedgerService
	reads    *ledger.ReadService
	tenantID uuid.UUID
	ledgerID uuid.UUID
}

func setupPostingTest(t *testing.T) (*postingEnv, context.Context) {
	t.Helper()
	repo, ctx := setupTest(t)
	log := logger.NewDefault("test")

	env := &postingEnv{
		repo:     repo,
		postings: ledger.NewPostingService(repo, log),
		ledgers:  ledger.NewLedgerService(repo, log),
		reads:    ledger.NewReadService(repo, log),
		tenantID: createTestTenant(t, ctx, repo),
	}
	env.ledgerID = createTestLedger(t, ctx, repo, env.tenantID).ID
	return env, ctx
}

func (env *postingEnv) newAccount(t *testing.T, ctx context.Context, currency string) uuid.UUID {
	t.Helper()
	return createTestAccount(t, ctx, env.repo, env.tenantID, env.ledgerID, currency).ID
}

func (env *postingEnv) balance(t *testing.T, ctx context.Context, accountID uuid.UUID) money.Minor {
	t.Helper()
	accounts, err := env.repo.ListAccountsByLedger(ctx, env.tenantID, env.ledgerID)
	require.NoError(t, err)
	for _, a := range accounts {
		if a.ID == accountID {
			return a.BalanceMinor
		}
	}
	t.Fatalf("account %s not found", accountID)
	return 0
}

func (env *postingEnv) transfer(reference string, from, to uuid.UUID, amount money.Minor) ledger.PostingInput {
	return ledger.PostingInput{
		TenantID:  env.tenantID,
		LedgerID:  env.ledgerID,
		Reference: reference,
		Currency:  "USD",
		Entries: []ledger.PostingEntry{
			{AccountID: from, Direction: ledger.DirectionDebit, AmountMinor: amount, Currency: "USD"},
			{AccountID: to, Direction: ledger.DirectionCredit, AmountMinor: amount, Currency: "USD"},
		},
	}
}

func TestPosting_CommitsBalancesAndEntries(t *testing.T) {
	env, ctx := setupPostingTest(t)
	cash := env.newAccount(t, ctx, "USD")
	revenue := env.newAccount(t, ctx, "USD")

	result, err := env.postings.PostTransaction(ctx, env.transfer("inv-1", cash, revenue, 100))
	require.NoError(t, err)
	assert.True(t, result.Created)

	assert.Equal(t, money.Minor(-100), env.balance(t, ctx, cash))
	assert.Equal(t, money.Minor(100), env.balance(t, ctx, revenue))

	entries, err := env.repo.ListEntries(ctx, env.tenantID, ledger.PageQuery{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestPosting_ReplayReturnsOriginal(t *testing.T) {
	env, ctx := setupPostingTest(t)
	cash := env.newAccount(t, ctx, "USD")
	revenue := env.newAccount(t, ctx, "USD")

	first, err := env.postings.PostTransaction(ctx, env.transfer("inv-1", cash, revenue, 100))
	require.NoError(t, err)

	second, err := env.postings.PostTransaction(ctx, env.transfer("inv-1", cash, revenue, 100))
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.TransactionID, second.TransactionID)

	// The replay wrote nothing: balances and entry count are unchanged.
	assert.Equal(t, money.Minor(-100), env.balance(t, ctx, cash))
	entries, err := env.repo.ListEntries(ctx, env.tenantID, ledger.PageQuery{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestPosting_RollbackLeavesNoTrace(t *testing.T) {
	env, ctx := setupPostingTest(t)
	cash := env.newAccount(t, ctx, "USD")
	euros := env.newAccount(t, ctx, "EUR")

	// The EUR account fails the currency match inside the database
	// transaction, after the transaction row and entries were written.
	in := env.transfer("bad-1", cash, euros, 100)
	_, err := env.postings.PostTransaction(ctx, in)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvariantViolation))

	assert.Equal(t, money.Minor(0), env.balance(t, ctx, cash))
	txns, err := env.repo.ListTransactions(ctx, env.tenantID, ledger.PageQuery{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, txns, "the rolled-back transaction row is gone")
	entries, err := env.repo.ListEntries(ctx, env.tenantID, ledger.PageQuery{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, entries)

	// The reference is free again after the rollback.
	good := env.newAccount(t, ctx, "USD")
	result, err := env.postings.PostTransaction(ctx, env.transfer("bad-1", cash, good, 100))
	require.NoError(t, err)
	assert.True(t, result.Created)
}

func TestPosting_BalanceOverflowAtCeilingRollsBack(t *testing.T) {
	env, ctx := setupPostingTest(t)
	sink := env.newAccount(t, ctx, "USD")
	vault := env.newAccount(t, ctx, "USD")

	// Park the vault at the BIGINT ceiling with a legitimate posting.
	_, err := env.postings.PostTransaction(ctx, env.transfer("fill-1", sink, vault, money.Minor(math.MaxInt64)))
	require.NoError(t, err)
	require.Equal(t, money.Minor(math.MaxInt64), env.balance(t, ctx, vault))

	// One more credited cent overflows the column; Postgres raises a
	// numeric-range error and the whole posting rolls back.
	_, err = env.postings.PostTransaction(ctx, env.transfer("fill-2", sink, vault, 1))
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeRepositoryError))

	assert.Equal(t, money.Minor(math.MaxInt64), env.balance(t, ctx, vault))
	assert.Equal(t, money.Minor(math.MinInt64+1), env.balance(t, ctx, sink))
	txns, err := env.repo.ListTransactions(ctx, env.tenantID, ledger.PageQuery{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, txns, 1, "only the fill posting survives")
	entries, err := env.repo.ListEntries(ctx, env.tenantID, ledger.PageQuery{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestPosting_ConcurrentSameReference(t *testing.T) {
	env, ctx := setupPostingTest(t)
	cash := env.newAccount(t, ctx, "USD")
	revenue := env.newAccount(t, ctx, "USD")

	const workers = 8
	results := make([]*ledger.PostingResult, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.postings.PostTransaction(ctx, env.transfer("race-1", cash, revenue, 100))
		}(i)
	}
	wg.Wait()

	var createdCount int
	var txnID uuid.UUID
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i], "worker %d", i)
		if results[i].Created {
			createdCount++
			txnID = results[i].TransactionID
		}
	}
	assert.Equal(t, 1, createdCount, "exactly one racer wins the insert")
	for i := 0; i < workers; i++ {
		assert.Equal(t, txnID, results[i].TransactionID, "every racer sees the winner's ID")
	}

	// One transaction's worth of balance movement, no more.
	assert.Equal(t, money.Minor(-100), env.balance(t, ctx, cash))
	assert.Equal(t, money.Minor(100), env.balance(t, ctx, revenue))
}

func TestPosting_ConcurrentOppositeTransfers(t *testing.T) {
	env, ctx := setupPostingTest(t)
	a := env.newAccount(t, ctx, "USD")
	b := env.newAccount(t, ctx, "USD")

	// Transfers in both directions between the same two accounts. The sorted
	// lock order inside the posting service keeps them from deadlocking.
	const rounds = 20
	var wg sync.WaitGroup
	errs := make(chan error, rounds*2)
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := env.postings.PostTransaction(ctx, env.transfer(fmt.Sprintf("ab-%d", i), a, b, 10))
			errs <- err
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := env.postings.PostTransaction(ctx, env.transfer(fmt.Sprintf("ba-%d", i), b, a, 10))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// Equal traffic both ways nets to zero.
	assert.Equal(t, money.Minor(0), env.balance(t, ctx, a))
	assert.Equal(t, money.Minor(0), env.balance(t, ctx, b))
}

func TestPosting_MultiLegSplit(t *testing.T) {
	env, ctx := setupPostingTest(t)
	cash := env.newAccount(t, ctx, "USD")
	revenue := env.newAccount(t, ctx, "USD")
	tax := env.newAccount(t, ctx, "USD")

	in := ledger.PostingInput{
		TenantID:  env.tenantID,
		LedgerID:  env.ledgerID,
		Reference: "sale-1",
		Currency:  "USD",
		Entries: []ledger.PostingEntry{
			{AccountID: cash, Direction: ledger.DirectionDebit, AmountMinor: 110, Currency: "USD"},
			{AccountID: revenue, Direction: ledger.DirectionCredit, AmountMinor: 100, Currency: "USD"},
			{AccountID: tax, Direction: ledger.DirectionCredit, AmountMinor: 10, Currency: "USD"},
		},
	}
	_, err := env.postings.PostTransaction(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, money.Minor(-110), env.balance(t, ctx, cash))
	assert.Equal(t, money.Minor(100), env.balance(t, ctx, revenue))
	assert.Equal(t, money.Minor(10), env.balance(t, ctx, tax))
}

func TestPosting_TrialBalanceAfterPostings(t *testing.T) {
	env, ctx := setupPostingTest(t)
	cash := env.newAccount(t, ctx, "USD")
	revenue := env.newAccount(t, ctx, "USD")

	_, err := env.postings.PostTransaction(ctx, env.transfer("tb-1", cash, revenue, 300))
	require.NoError(t, err)

	tb, err := env.reads.TrialBalance(ctx, env.tenantID, env.ledgerID)
	require.NoError(t, err)
	assert.Equal(t, money.Minor(300), tb.TotalDebitsMinor)
	assert.Equal(t, money.Minor(300), tb.TotalCreditsMinor)
	require.Len(t, tb.Accounts, 2)

	sides := make(map[string]ledger.Direction)
	for _, row := range tb.Accounts {
		sides[row.Code] = row.NormalSide
	}
	assert.Equal(t, ledger.DirectionDebit, sides[cash.String()])
	assert.Equal(t, ledger.DirectionCredit, sides[revenue.String()])
}

func TestPosting_CrossTenantAccountInvisible(t *testing.T) {
	env, ctx := setupPostingTest(t)
	cash := env.newAccount(t, ctx, "USD")

	// An account of another tenant is unreachable from this tenant's posting:
	// the row-level security policy hides it from the balance update.
	otherTenant := createTestTenant(t, ctx, env.repo)
	otherLedger := createTestLedger(t, ctx, env.repo, otherTenant)
	foreign := createTestAccount(t, ctx, env.repo, otherTenant, otherLedger.ID, "USD")

	in := ledger.PostingInput{
		TenantID:  env.tenantID,
		LedgerID:  env.ledgerID,
		Reference: "steal-1",
		Currency:  "USD",
		Entries: []ledger.PostingEntry{
			{AccountID: cash, Direction: ledger.DirectionDebit, AmountMinor: 100, Currency: "USD"},
			{AccountID: foreign.ID, Direction: ledger.DirectionCredit, AmountMinor: 100, Currency: "USD"},
		},
	}
	_, err := env.postings.PostTransaction(ctx, in)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvariantViolation))

	// Nothing moved on either side.
	assert.Equal(t, money.Minor(0), env.balance(t, ctx, cash))
	assert.Equal(t, money.Minor(0), createTestAccountBalance(t, ctx, env.repo, otherTenant, otherLedger.ID, foreign.ID))
}

// createTestAccountBalance reads one account balance through another tenant's
// own scope.
func createTestAccountBalance(t *testing.T, ctx context.Context, repo *Repository, tenantID, ledgerID, accountID uuid.UUID) money.Minor {
	t.Helper()
	accounts, err := repo.ListAccountsByLedger(ctx, tenantID, ledgerID)
	require.NoError(t, err)
	for _, a := range accounts {
		if a.ID == accountID {
			return a.BalanceMinor
		}
	}
	t.Fatalf("account %s not found", accountID)
	return 0
}
