/*
engine.go - The energy engine: purchase, lock, return, forfeit

PURPOSE:
  Implements the wallet state machine. Each operation appends a ledger entry
  and adjusts the wallet balance inside one storage transaction, so the
  invariant

    balance == sum(purchases) - sum(active locked amounts)

  holds at every commit point.

OPERATION SEMANTICS:
  Purchase  +amount  appends an "available" entry
  Lock      -amount  appends a "locked" entry; guarded so the balance can
                     never go negative; at most one active lock per
                     (wallet, job)
  Return    +amount  resolves the active lock with a "returned" entry
  Forfeit    ±0      resolves the active lock with a "forfeited" entry and
                     writes exactly one no-show record

  Return and Forfeit are settlement operations: replaying one against an
  already-resolved lock is a conflict (ErrAlreadySettled), never a second
  credit or a second no-show.
*/
package energy

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	snapshotTxLimit     = 50
	snapshotNoShowLimit = 10
	maxHistoryLimit     = 200
)

// Engine enforces the wallet invariants. All operations are synchronous and
// complete within the caller's request lifetime.
type Engine struct {
	store TxStore
	log   *logrus.Entry
}

// NewEngine creates an engine over the given store.
func NewEngine(store TxStore, log *logrus.Entry) *Engine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{store: store, log: log}
}

// WalletFor returns the user's wallet, creating it lazily on first access.
func (e *Engine) WalletFor(ctx context.Context, userID string) (*Wallet, error) {
	return e.store.GetOrCreateWallet(ctx, userID)
}

// Purchase adds amount points to the wallet. idemKey is optional; a replayed
// key fails with ErrDuplicateIdempotencyKey instead of double-crediting.
func (e *Engine) Purchase(ctx context.Context, walletID string, amount int64, idemKey string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var out Transaction
	err := e.store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetWallet(ctx, walletID); err != nil {
			return err
		}

		out = Transaction{
			ID:             uuid.NewString(),
			WalletID:       walletID,
			Amount:         amount,
			State:          StateAvailable,
			Timestamp:      time.Now().UTC(),
			IdempotencyKey: idemKey,
		}
		if err := s.Append(ctx, out); err != nil {
			return err
		}
		return s.AdjustBalance(ctx, walletID, amount)
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{"wallet": walletID, "amount": amount}).Info("energy purchased")
	return &out, nil
}

// Lock provisionally removes amount points pending the outcome of a job.
// Fails with ErrInsufficientBalance when the balance cannot cover it and with
// ErrDuplicateLock when an unresolved lock for the same job exists. The
// balance check and decrement happen as one serialized step, so concurrent
// locks cannot overdraw the wallet.
func (e *Engine) Lock(ctx context.Context, walletID, jobID string, amount int64) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if jobID == "" {
		return nil, ErrMissingJob
	}

	var out Transaction
	err := e.store.WithTx(ctx, func(s Store) error {
		wallet, err := s.GetWallet(ctx, walletID)
		if err != nil {
			return err
		}

		active, err := s.FindActiveLock(ctx, walletID, jobID)
		if err != nil {
			return err
		}
		if active != nil {
			return ErrDuplicateLock
		}

		if err := s.AdjustBalance(ctx, walletID, -amount); err != nil {
			if errors.Is(err, ErrInsufficientBalance) {
				return &InsufficientBalanceError{
					WalletID:  walletID,
					Available: wallet.Balance,
					Requested: amount,
				}
			}
			return err
		}

		out = Transaction{
			ID:        uuid.NewString(),
			WalletID:  walletID,
			JobID:     jobID,
			Amount:    amount,
			State:     StateLocked,
			Timestamp: time.Now().UTC(),
		}
		return s.Append(ctx, out)
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{"wallet": walletID, "job": jobID, "amount": amount}).Info("energy locked")
	return &out, nil
}

// Return resolves the active lock for (wallet, job) and credits the locked
// amount back. Calling it twice for the same job is ErrAlreadySettled; calling
// it without a prior lock is ErrNoActiveLock.
func (e *Engine) Return(ctx context.Context, walletID, jobID string, amount int64) (*Transaction, error) {
	tx, err := e.settle(ctx, walletID, jobID, amount, StateReturned)
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{"wallet": walletID, "job": jobID, "amount": amount}).Info("energy returned")
	return tx, nil
}

// Forfeit resolves the active lock after a no-show. The locked amount stays
// removed (it already left the balance at lock time) and exactly one no-show
// record is written.
func (e *Engine) Forfeit(ctx context.Context, walletID, jobID string, amount int64) (*Transaction, error) {
	tx, err := e.settle(ctx, walletID, jobID, amount, StateForfeited)
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{"wallet": walletID, "job": jobID, "amount": amount}).Warn("energy forfeited")
	return tx, nil
}

func (e *Engine) settle(ctx context.Context, walletID, jobID string, amount int64, state TxState) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if jobID == "" {
		return nil, ErrMissingJob
	}

	var out Transaction
	err := e.store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetWallet(ctx, walletID); err != nil {
			return err
		}

		lock, err := s.FindActiveLock(ctx, walletID, jobID)
		if err != nil {
			return err
		}
		if lock == nil {
			settled, err := s.HasSettledLock(ctx, walletID, jobID)
			if err != nil {
				return err
			}
			if settled {
				return ErrAlreadySettled
			}
			return ErrNoActiveLock
		}
		if lock.Amount != amount {
			return ErrLockAmountMismatch
		}

		out = Transaction{
			ID:        uuid.NewString(),
			WalletID:  walletID,
			JobID:     jobID,
			LockID:    lock.ID,
			Amount:    amount,
			State:     state,
			Timestamp: time.Now().UTC(),
		}
		if err := s.Append(ctx, out); err != nil {
			return err
		}

		if state == StateReturned {
			if err := s.AdjustBalance(ctx, walletID, amount); err != nil {
				return err
			}
		}
		if state == StateForfeited {
			rec := NoShowRecord{
				ID:        uuid.NewString(),
				WalletID:  walletID,
				JobID:     jobID,
				CreatedAt: time.Now().UTC(),
			}
			if err := s.AppendNoShow(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Snapshot returns the composite wallet view for a user: balance, recent
// transactions and recent no-show history. Creates the wallet if absent.
func (e *Engine) Snapshot(ctx context.Context, userID string) (*Snapshot, error) {
	wallet, err := e.store.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	txs, err := e.store.Transactions(ctx, wallet.ID, snapshotTxLimit, 0)
	if err != nil {
		return nil, err
	}
	noShows, err := e.store.NoShows(ctx, wallet.ID, snapshotNoShowLimit)
	if err != nil {
		return nil, err
	}

	return &Snapshot{Wallet: *wallet, Transactions: txs, NoShows: noShows}, nil
}

// Transactions returns a page of a wallet's history, newest first.
func (e *Engine) Transactions(ctx context.Context, walletID string, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = snapshotTxLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	if _, err := e.store.GetWallet(ctx, walletID); err != nil {
		return nil, err
	}
	return e.store.Transactions(ctx, walletID, limit, offset)
}
