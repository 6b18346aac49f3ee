/*
store.go - Persistence interfaces for wallets, the ledger and no-show history

PURPOSE:
  Defines the contract between the engine and the database. The ledger is
  APPEND-ONLY: there is no Update or Delete for transactions. A lock's
  lifecycle is expressed by later entries referencing it through LockID.

ATOMICITY:
  Every engine operation pairs a ledger append with a balance adjustment.
  TxStore.WithTx runs both inside a single storage transaction; a failed
  balance guard rolls the append back.

SERIALIZATION:
  AdjustBalance with a negative delta is a guarded, conditional decrement
  (balance must stay non-negative). Implementations must serialize the
  check-and-decrement so two concurrent locks cannot both pass against a
  stale balance.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store
  - energy/store: in-memory store for tests
*/
package energy

import "context"

// Store handles persistence for the energy core. Ledger writes are
// append-only; wallet rows mutate only through AdjustBalance.
type Store interface {
	// GetOrCreateWallet returns the user's wallet, creating an empty one on
	// first access. Idempotent; concurrent calls for a new user must yield a
	// single row (unique constraint on the user reference).
	GetOrCreateWallet(ctx context.Context, userID string) (*Wallet, error)

	// GetWallet returns a wallet by its ID, or ErrWalletNotFound.
	GetWallet(ctx context.Context, walletID string) (*Wallet, error)

	// AdjustBalance atomically applies delta to the wallet balance. A negative
	// delta that would take the balance below zero fails with
	// ErrInsufficientBalance and leaves the balance untouched.
	AdjustBalance(ctx context.Context, walletID string, delta int64) error

	// Append inserts a ledger entry. Fails with ErrDuplicateIdempotencyKey if
	// the entry carries a key that already exists, and with ErrAlreadySettled
	// if the entry resolves a lock that already has a resolution.
	Append(ctx context.Context, tx Transaction) error

	// FindActiveLock returns the locked entry for (wallet, job) that no later
	// entry has resolved, or nil when there is none.
	FindActiveLock(ctx context.Context, walletID, jobID string) (*Transaction, error)

	// HasSettledLock reports whether any lock for (wallet, job) was already
	// returned or forfeited. Used to tell a replay from a never-locked pair.
	HasSettledLock(ctx context.Context, walletID, jobID string) (bool, error)

	// Transactions returns entries for a wallet, newest first.
	Transactions(ctx context.Context, walletID string, limit, offset int) ([]Transaction, error)

	// AppendNoShow inserts a forfeiture audit record. Append-only.
	AppendNoShow(ctx context.Context, rec NoShowRecord) error

	// NoShows returns recent no-show records for a wallet, newest first.
	NoShows(ctx context.Context, walletID string, limit int) ([]NoShowRecord, error)
}

// TxStore wraps Store with transaction support. The engine performs every
// mutating operation inside WithTx.
type TxStore interface {
	Store

	// WithTx executes fn within a storage transaction. If fn returns an error
	// the transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
