package ledger_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/custodial-ledger/internal/domain"
	"github.com/josh-kwaku/custodial-ledger/internal/events"
	"github.com/josh-kwaku/custodial-ledger/internal/repository"
	"github.com/josh-kwaku/custodial-ledger/internal/service/ledger"
	"github.com/josh-kwaku/custodial-ledger/internal/testutil"
)

func setupLedger(t *testing.T, db *sql.DB) *ledger.Service {
	t.Helper()
	return ledger.NewService(
		repository.NewAccountRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewUserRepository(db),
		events.Noop{},
		db,
	)
}

func TestDeposit_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)
	ctx := context.Background()

	user, acct := testutil.SeedUser(t, db, "alice", 5000)

	rec, balance, err := svc.Deposit(ctx, user.ID, 1000)
	require.NoError(t, err)

	assert.Equal(t, int64(6000), balance)
	assert.Equal(t, domain.TransactionKindDeposit, rec.Kind)
	assert.Nil(t, rec.SourceAccount)
	require.NotNil(t, rec.DestAccount)
	assert.Equal(t, acct.ID, *rec.DestAccount)
	assert.Equal(t, int64(1000), rec.Amount)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Positive(t, rec.Seq)

	assert.Equal(t, int64(6000), testutil.GetAccountBalance(t, db, acct.ID))
	assert.Equal(t, 1, testutil.CountTransactions(t, db, acct.ID))
}

func TestDeposit_InvalidAmount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)
	ctx := context.Background()

	user, acct := testutil.SeedUser(t, db, "alice", 5000)

	for _, amount := range []int64{0, -100} {
		_, _, err := svc.Deposit(ctx, user.ID, amount)
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
	}

	assert.Equal(t, int64(5000), testutil.GetAccountBalance(t, db, acct.ID))
	assert.Equal(t, 0, testutil.CountTransactions(t, db, acct.ID))
}

func TestWithdraw_InsufficientFunds(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)
	ctx := context.Background()

	user, acct := testutil.SeedUser(t, db, "alice", 1000)

	_, _, err := svc.Withdraw(ctx, user.ID, 5000)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// failed operation leaves no trace
	assert.Equal(t, int64(1000), testutil.GetAccountBalance(t, db, acct.ID))
	assert.Equal(t, 0, testutil.CountTransactions(t, db, acct.ID))
}

func TestTransfer_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)
	ctx := context.Background()

	alice, aliceAcct := testutil.SeedUser(t, db, "alice", 10000)
	_, bobAcct := testutil.SeedUser(t, db, "bob", 5000)

	rec, err := svc.Transfer(ctx, alice.ID, "bob", 3000)
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionKindTransfer, rec.Kind)
	require.NotNil(t, rec.SourceAccount)
	require.NotNil(t, rec.DestAccount)
	assert.Equal(t, aliceAcct.ID, *rec.SourceAccount)
	assert.Equal(t, bobAcct.ID, *rec.DestAccount)

	assert.Equal(t, int64(7000), testutil.GetAccountBalance(t, db, aliceAcct.ID))
	assert.Equal(t, int64(8000), testutil.GetAccountBalance(t, db, bobAcct.ID))

	// one record visible from both sides
	assert.Equal(t, 1, testutil.CountTransactions(t, db, aliceAcct.ID))
	assert.Equal(t, 1, testutil.CountTransactions(t, db, bobAcct.ID))
}

func TestTransfer_RecipientNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)
	ctx := context.Background()

	alice, aliceAcct := testutil.SeedUser(t, db, "alice", 10000)

	_, err := svc.Transfer(ctx, alice.ID, "nobody", 1000)
	require.ErrorIs(t, err, domain.ErrRecipientNotFound)

	assert.Equal(t, int64(10000), testutil.GetAccountBalance(t, db, aliceAcct.ID))
}

func TestTransfer_SelfTransfer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)
	ctx := context.Background()

	alice, aliceAcct := testutil.SeedUser(t, db, "alice", 10000)

	_, err := svc.Transfer(ctx, alice.ID, "alice", 1000)
	require.ErrorIs(t, err, domain.ErrSelfTransfer)

	assert.Equal(t, int64(10000), testutil.GetAccountBalance(t, db, aliceAcct.ID))
	assert.Equal(t, 0, testutil.CountTransactions(t, db, aliceAcct.ID))
}

// The documented walk-through: deposit, failed withdrawal, transfer of the
// whole balance, then a transfer with nothing left.
func TestLedgerScenario(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)
	ctx := context.Background()

	alice, aliceAcct := testutil.SeedUser(t, db, "alice", 5000)
	_, bobAcct := testutil.SeedUser(t, db, "bob", 5000)

	_, balance, err := svc.Deposit(ctx, alice.ID, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), balance)

	_, _, err = svc.Withdraw(ctx, alice.ID, 7000)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, int64(6000), testutil.GetAccountBalance(t, db, aliceAcct.ID))

	_, err = svc.Transfer(ctx, alice.ID, "bob", 6000)
	require.NoError(t, err)
	assert.Equal(t, int64(0), testutil.GetAccountBalance(t, db, aliceAcct.ID))
	assert.Equal(t, int64(11000), testutil.GetAccountBalance(t, db, bobAcct.ID))

	_, err = svc.Transfer(ctx, alice.ID, "bob", 1)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	records, err := svc.Transactions(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.TransactionKindDeposit, records[0].Kind)
	assert.Equal(t, domain.TransactionKindTransfer, records[1].Kind)
}

// N concurrent transfers of amount a from one account with balance B where
// N*a > B: exactly floor(B/a) must succeed, the rest fail with insufficient
// funds, and no partial application is ever visible.
func TestTransfer_ConcurrentOverdraft(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)
	ctx := context.Background()

	const (
		startingBalance = int64(10000)
		amount          = int64(3000)
		workers         = 10
	)

	alice, aliceAcct := testutil.SeedUser(t, db, "alice", startingBalance)

	recipients := make([]string, workers)
	for i := range workers {
		recipients[i] = fmt.Sprintf("recipient%d", i)
		testutil.SeedUser(t, db, recipients[i], 0)
	}

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Transfer(ctx, alice.ID, recipients[i], amount)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, domain.ErrInsufficientFunds)
		}
	}

	wantSucceeded := int(startingBalance / amount)
	assert.Equal(t, wantSucceeded, succeeded)
	assert.Equal(t, startingBalance-int64(wantSucceeded)*amount,
		testutil.GetAccountBalance(t, db, aliceAcct.ID))
}

// Opposite-direction transfers (alice→bob racing bob→alice) lock the same
// two rows. The sorted lock order must keep every pair free of deadlock, so
// all rounds complete and equal amounts cancel out.
func TestTransfer_ConcurrentOppositeDirections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)
	ctx := context.Background()

	const (
		startingBalance = int64(100000)
		amount          = int64(10)
		rounds          = 25
	)

	alice, aliceAcct := testutil.SeedUser(t, db, "alice", startingBalance)
	bob, bobAcct := testutil.SeedUser(t, db, "bob", startingBalance)

	var wg sync.WaitGroup
	aliceErrs := make([]error, rounds)
	bobErrs := make([]error, rounds)
	for i := range rounds {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, aliceErrs[i] = svc.Transfer(ctx, alice.ID, "bob", amount)
		}()
		go func() {
			defer wg.Done()
			_, bobErrs[i] = svc.Transfer(ctx, bob.ID, "alice", amount)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(60 * time.Second):
		t.Fatal("transfers did not complete; likely deadlocked")
	}

	for i := range rounds {
		require.NoError(t, aliceErrs[i])
		require.NoError(t, bobErrs[i])
	}

	assert.Equal(t, startingBalance, testutil.GetAccountBalance(t, db, aliceAcct.ID))
	assert.Equal(t, startingBalance, testutil.GetAccountBalance(t, db, bobAcct.ID))
	assert.Equal(t, 2*rounds, testutil.CountTransactions(t, db, aliceAcct.ID))
}

// Transfers move value without creating or destroying it: the sum of all
// balances changes only by deposits and withdrawals.
func TestConservation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)
	ctx := context.Background()

	alice, _ := testutil.SeedUser(t, db, "alice", 5000)
	bob, _ := testutil.SeedUser(t, db, "bob", 5000)
	carol, _ := testutil.SeedUser(t, db, "carol", 5000)

	initialSum := testutil.SumBalances(t, db)

	var totalDeposits, totalWithdrawals int64

	deposit := func(u *domain.User, amount int64) {
		_, _, err := svc.Deposit(ctx, u.ID, amount)
		require.NoError(t, err)
		totalDeposits += amount
	}
	withdraw := func(u *domain.User, amount int64) {
		_, _, err := svc.Withdraw(ctx, u.ID, amount)
		require.NoError(t, err)
		totalWithdrawals += amount
	}
	transfer := func(u *domain.User, to string, amount int64) {
		_, err := svc.Transfer(ctx, u.ID, to, amount)
		require.NoError(t, err)
	}

	deposit(alice, 2500)
	transfer(alice, "bob", 4000)
	withdraw(bob, 1500)
	transfer(bob, "carol", 2000)
	deposit(carol, 700)
	transfer(carol, "alice", 6000)
	withdraw(alice, 300)

	assert.Equal(t, initialSum+totalDeposits-totalWithdrawals, testutil.SumBalances(t, db))
}

// Every balance must be reconstructible from the transaction log alone.
func TestRecordBalanceConsistency(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)
	ctx := context.Background()

	alice, aliceAcct := testutil.SeedUser(t, db, "alice", 5000)
	bob, bobAcct := testutil.SeedUser(t, db, "bob", 5000)

	_, _, err := svc.Deposit(ctx, alice.ID, 3000)
	require.NoError(t, err)
	_, err = svc.Transfer(ctx, alice.ID, "bob", 2500)
	require.NoError(t, err)
	_, _, err = svc.Withdraw(ctx, bob.ID, 1000)
	require.NoError(t, err)
	_, err = svc.Transfer(ctx, bob.ID, "alice", 500)
	require.NoError(t, err)

	replay := func(u *domain.User, acct *domain.Account, startingBalance int64) int64 {
		records, err := svc.Transactions(ctx, u.ID)
		require.NoError(t, err)

		balance := startingBalance
		for _, rec := range records {
			if rec.DestAccount != nil && *rec.DestAccount == acct.ID {
				balance += rec.Amount
			}
			if rec.SourceAccount != nil && *rec.SourceAccount == acct.ID {
				balance -= rec.Amount
			}
		}
		return balance
	}

	assert.Equal(t, testutil.GetAccountBalance(t, db, aliceAcct.ID), replay(alice, aliceAcct, 5000))
	assert.Equal(t, testutil.GetAccountBalance(t, db, bobAcct.ID), replay(bob, bobAcct, 5000))
}

func TestReads_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)
	ctx := context.Background()

	alice, _ := testutil.SeedUser(t, db, "alice", 5000)
	_, _ = testutil.SeedUser(t, db, "bob", 5000)

	_, _, err := svc.Deposit(ctx, alice.ID, 1000)
	require.NoError(t, err)
	_, err = svc.Transfer(ctx, alice.ID, "bob", 2000)
	require.NoError(t, err)

	balance1, err := svc.Balance(ctx, alice.ID)
	require.NoError(t, err)
	balance2, err := svc.Balance(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, balance1, balance2)

	records1, err := svc.Transactions(ctx, alice.ID)
	require.NoError(t, err)
	records2, err := svc.Transactions(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, records1, records2)
}

func TestTransactions_AscendingOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)
	ctx := context.Background()

	alice, _ := testutil.SeedUser(t, db, "alice", 5000)

	for range 5 {
		_, _, err := svc.Deposit(ctx, alice.ID, 100)
		require.NoError(t, err)
	}

	records, err := svc.Transactions(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, records, 5)

	for i := 1; i < len(records); i++ {
		assert.Greater(t, records[i].Seq, records[i-1].Seq)
		assert.False(t, records[i].CreatedAt.Before(records[i-1].CreatedAt))
	}
}

func TestBalance_UnknownUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)
	ctx := context.Background()

	_, err := svc.Balance(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)
}
