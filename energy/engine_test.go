package energy_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparelink/gig-engine/energy"
	"github.com/sparelink/gig-engine/energy/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T) *energy.Engine {
	t.Helper()
	return energy.NewEngine(store.NewMemory(), nil)
}

// fundedWallet creates a wallet for userID holding the given balance.
func fundedWallet(t *testing.T, eng *energy.Engine, userID string, balance int64) *energy.Wallet {
	t.Helper()
	ctx := context.Background()

	w, err := eng.WalletFor(ctx, userID)
	require.NoError(t, err)
	if balance > 0 {
		_, err = eng.Purchase(ctx, w.ID, balance, "")
		require.NoError(t, err)
	}
	return w
}

func currentBalance(t *testing.T, eng *energy.Engine, userID string) int64 {
	t.Helper()
	snap, err := eng.Snapshot(context.Background(), userID)
	require.NoError(t, err)
	return snap.Wallet.Balance
}

// =============================================================================
// WALLET TESTS
// =============================================================================

func TestEngine_WalletCreatedLazily(t *testing.T) {
	// GIVEN: A user with no wallet
	// WHEN: Their wallet is first accessed
	// THEN: An empty wallet exists, and later accesses return the same one

	eng := newTestEngine(t)
	ctx := context.Background()

	w, err := eng.WalletFor(ctx, "spare-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), w.Balance)
	assert.Equal(t, "spare-1", w.UserID)

	again, err := eng.WalletFor(ctx, "spare-1")
	require.NoError(t, err)
	assert.Equal(t, w.ID, again.ID)
}

// =============================================================================
// PURCHASE TESTS
// =============================================================================

func TestEngine_Purchase_AddsBalance(t *testing.T) {
	// GIVEN: An empty wallet
	// WHEN: Purchasing 100 credits
	// THEN: Balance is 100 and the ledger holds one available entry

	eng := newTestEngine(t)
	ctx := context.Background()
	w := fundedWallet(t, eng, "spare-1", 0)

	tx, err := eng.Purchase(ctx, w.ID, 100, "")
	require.NoError(t, err)
	assert.Equal(t, energy.StateAvailable, tx.State)
	assert.Equal(t, int64(100), tx.Amount)

	assert.Equal(t, int64(100), currentBalance(t, eng, "spare-1"))
}

func TestEngine_Purchase_RejectsNonPositiveAmount(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	w := fundedWallet(t, eng, "spare-1", 0)

	_, err := eng.Purchase(ctx, w.ID, 0, "")
	assert.ErrorIs(t, err, energy.ErrInvalidAmount)

	_, err = eng.Purchase(ctx, w.ID, -5, "")
	assert.ErrorIs(t, err, energy.ErrInvalidAmount)
}

func TestEngine_Purchase_IdempotencyKeyRejectsReplay(t *testing.T) {
	// GIVEN: A purchase recorded under key "order-1"
	// WHEN: The same key is submitted again
	// THEN: The replay is rejected and the balance credited only once

	eng := newTestEngine(t)
	ctx := context.Background()
	w := fundedWallet(t, eng, "spare-1", 0)

	_, err := eng.Purchase(ctx, w.ID, 50, "order-1")
	require.NoError(t, err)

	_, err = eng.Purchase(ctx, w.ID, 50, "order-1")
	assert.ErrorIs(t, err, energy.ErrDuplicateIdempotencyKey)

	assert.Equal(t, int64(50), currentBalance(t, eng, "spare-1"))
}

// =============================================================================
// LOCK TESTS
// =============================================================================

func TestEngine_Lock_ReducesBalance(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	w := fundedWallet(t, eng, "spare-1", 100)

	tx, err := eng.Lock(ctx, w.ID, "job-1", 30)
	require.NoError(t, err)
	assert.Equal(t, energy.StateLocked, tx.State)
	assert.Equal(t, "job-1", tx.JobID)

	assert.Equal(t, int64(70), currentBalance(t, eng, "spare-1"))
}

func TestEngine_Lock_InsufficientBalance(t *testing.T) {
	// GIVEN: A wallet holding 20 credits
	// WHEN: Locking 30
	// THEN: The lock fails with wallet and amount details, nothing changes

	eng := newTestEngine(t)
	ctx := context.Background()
	w := fundedWallet(t, eng, "spare-1", 20)

	_, err := eng.Lock(ctx, w.ID, "job-1", 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, energy.ErrInsufficientBalance)

	var insuffErr *energy.InsufficientBalanceError
	require.ErrorAs(t, err, &insuffErr)
	assert.Equal(t, int64(20), insuffErr.Available)
	assert.Equal(t, int64(30), insuffErr.Requested)

	assert.Equal(t, int64(20), currentBalance(t, eng, "spare-1"))
	_, err = eng.Return(ctx, w.ID, "job-1", 30)
	assert.ErrorIs(t, err, energy.ErrNoActiveLock, "failed lock should leave no ledger trace")
}

func TestEngine_Lock_DuplicateActiveLockRejected(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	w := fundedWallet(t, eng, "spare-1", 100)

	_, err := eng.Lock(ctx, w.ID, "job-1", 30)
	require.NoError(t, err)

	_, err = eng.Lock(ctx, w.ID, "job-1", 30)
	assert.ErrorIs(t, err, energy.ErrDuplicateLock)
	assert.Equal(t, int64(70), currentBalance(t, eng, "spare-1"))
}

func TestEngine_Lock_AllowedAgainAfterResolution(t *testing.T) {
	// GIVEN: A lock on job-1 that was returned
	// WHEN: Locking job-1 again
	// THEN: The new lock succeeds (only active locks are unique)

	eng := newTestEngine(t)
	ctx := context.Background()
	w := fundedWallet(t, eng, "spare-1", 100)

	_, err := eng.Lock(ctx, w.ID, "job-1", 30)
	require.NoError(t, err)
	_, err = eng.Return(ctx, w.ID, "job-1", 30)
	require.NoError(t, err)

	_, err = eng.Lock(ctx, w.ID, "job-1", 30)
	assert.NoError(t, err)
	assert.Equal(t, int64(70), currentBalance(t, eng, "spare-1"))
}

func TestEngine_Lock_ConcurrentLocksNeverOverdraw(t *testing.T) {
	// GIVEN: A wallet holding 100 credits
	// WHEN: Two locks of 60 race for different jobs
	// THEN: Exactly one succeeds and the balance never goes negative

	eng := newTestEngine(t)
	w := fundedWallet(t, eng, "spare-1", 100)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, jobID := range []string{"job-a", "job-b"} {
		wg.Add(1)
		go func(i int, jobID string) {
			defer wg.Done()
			_, errs[i] = eng.Lock(context.Background(), w.ID, jobID, 60)
		}(i, jobID)
	}
	wg.Wait()

	var succeeded, failed int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, energy.ErrInsufficientBalance)
			failed++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)
	assert.Equal(t, int64(40), currentBalance(t, eng, "spare-1"))
}

// =============================================================================
// RETURN / FORFEIT TESTS
// =============================================================================

func TestEngine_Return_RestoresBalance(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	w := fundedWallet(t, eng, "spare-1", 100)

	lockTx, err := eng.Lock(ctx, w.ID, "job-1", 30)
	require.NoError(t, err)

	tx, err := eng.Return(ctx, w.ID, "job-1", 30)
	require.NoError(t, err)
	assert.Equal(t, energy.StateReturned, tx.State)
	assert.Equal(t, lockTx.ID, tx.LockID, "resolution should reference the lock")

	assert.Equal(t, int64(100), currentBalance(t, eng, "spare-1"))
}

func TestEngine_Forfeit_ConsumesLockPermanently(t *testing.T) {
	// GIVEN: 100 credits with 30 locked for job-1
	// WHEN: The lock is forfeited
	// THEN: Balance stays at 70 and one no-show is recorded

	eng := newTestEngine(t)
	ctx := context.Background()
	w := fundedWallet(t, eng, "spare-1", 100)

	lockTx, err := eng.Lock(ctx, w.ID, "job-1", 30)
	require.NoError(t, err)

	tx, err := eng.Forfeit(ctx, w.ID, "job-1", 30)
	require.NoError(t, err)
	assert.Equal(t, energy.StateForfeited, tx.State)
	assert.Equal(t, lockTx.ID, tx.LockID)

	snap, err := eng.Snapshot(ctx, "spare-1")
	require.NoError(t, err)
	assert.Equal(t, int64(70), snap.Wallet.Balance)
	require.Len(t, snap.NoShows, 1)
	assert.Equal(t, "job-1", snap.NoShows[0].JobID)
}

func TestEngine_Settle_NoActiveLock(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	w := fundedWallet(t, eng, "spare-1", 100)

	_, err := eng.Return(ctx, w.ID, "job-1", 30)
	assert.ErrorIs(t, err, energy.ErrNoActiveLock)

	_, err = eng.Forfeit(ctx, w.ID, "job-1", 30)
	assert.ErrorIs(t, err, energy.ErrNoActiveLock)
}

func TestEngine_Settle_ReplayRejected(t *testing.T) {
	// GIVEN: A lock on job-1 already returned
	// WHEN: Return or forfeit is replayed for job-1
	// THEN: The replay fails as already settled and the balance is unchanged

	eng := newTestEngine(t)
	ctx := context.Background()
	w := fundedWallet(t, eng, "spare-1", 100)

	_, err := eng.Lock(ctx, w.ID, "job-1", 30)
	require.NoError(t, err)
	_, err = eng.Return(ctx, w.ID, "job-1", 30)
	require.NoError(t, err)

	_, err = eng.Return(ctx, w.ID, "job-1", 30)
	assert.ErrorIs(t, err, energy.ErrAlreadySettled)

	_, err = eng.Forfeit(ctx, w.ID, "job-1", 30)
	assert.ErrorIs(t, err, energy.ErrAlreadySettled)

	assert.Equal(t, int64(100), currentBalance(t, eng, "spare-1"))
}

func TestEngine_Settle_AmountMismatchRejected(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	w := fundedWallet(t, eng, "spare-1", 100)

	_, err := eng.Lock(ctx, w.ID, "job-1", 30)
	require.NoError(t, err)

	_, err = eng.Return(ctx, w.ID, "job-1", 25)
	assert.ErrorIs(t, err, energy.ErrLockAmountMismatch)
	assert.Equal(t, int64(70), currentBalance(t, eng, "spare-1"), "lock must stay active")
}

// =============================================================================
// SNAPSHOT / HISTORY TESTS
// =============================================================================

func TestEngine_Snapshot_ListsNewestFirst(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	w := fundedWallet(t, eng, "spare-1", 0)

	_, err := eng.Purchase(ctx, w.ID, 100, "")
	require.NoError(t, err)
	_, err = eng.Lock(ctx, w.ID, "job-1", 40)
	require.NoError(t, err)
	_, err = eng.Forfeit(ctx, w.ID, "job-1", 40)
	require.NoError(t, err)

	snap, err := eng.Snapshot(ctx, "spare-1")
	require.NoError(t, err)
	require.Len(t, snap.Transactions, 3)
	assert.Equal(t, energy.StateForfeited, snap.Transactions[0].State)
	assert.Equal(t, energy.StateLocked, snap.Transactions[1].State)
	assert.Equal(t, energy.StateAvailable, snap.Transactions[2].State)
}

func TestEngine_Transactions_ClampsLimit(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	w := fundedWallet(t, eng, "spare-1", 0)

	for i := 0; i < 5; i++ {
		_, err := eng.Purchase(ctx, w.ID, 10, "")
		require.NoError(t, err)
	}

	txs, err := eng.Transactions(ctx, w.ID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	txs, err = eng.Transactions(ctx, w.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 5, "zero limit should fall back to the default page size")
}

// TestEngine_BalanceInvariant walks a mixed history and checks the balance
// equals purchases minus active locks at every step.
func TestEngine_BalanceInvariant(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	w := fundedWallet(t, eng, "spare-1", 0)

	steps := []struct {
		run  func() error
		want int64
	}{
		{func() error { _, err := eng.Purchase(ctx, w.ID, 100, ""); return err }, 100},
		{func() error { _, err := eng.Lock(ctx, w.ID, "job-1", 30); return err }, 70},
		{func() error { _, err := eng.Lock(ctx, w.ID, "job-2", 50); return err }, 20},
		{func() error { _, err := eng.Return(ctx, w.ID, "job-1", 30); return err }, 50},
		{func() error { _, err := eng.Forfeit(ctx, w.ID, "job-2", 50); return err }, 50},
		{func() error { _, err := eng.Purchase(ctx, w.ID, 25, ""); return err }, 75},
	}
	for i, step := range steps {
		require.NoError(t, step.run(), "step %d", i)
		assert.Equal(t, step.want, currentBalance(t, eng, "spare-1"), "step %d", i)
	}
}
