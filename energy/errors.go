/*
errors.go - Centralized error types for the energy engine

PURPOSE:
  All error values in one place. Callers classify with errors.Is / errors.As;
  the HTTP layer maps classes to status codes (conflict vs not-found vs
  internal).

ERROR CATEGORIES:
  1. Not found  - missing wallet
  2. Conflict   - insufficient balance, duplicate lock, settled lock replay
  3. Validation - non-positive amounts, missing job reference
*/
package energy

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrWalletNotFound is returned when a wallet ID does not resolve.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrMissingJob is returned when a lock/return/forfeit lacks a job reference.
	ErrMissingJob = errors.New("job reference required")

	// ErrInsufficientBalance is returned when a lock exceeds the balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrDuplicateLock is returned when an active lock already exists for the
	// same wallet and job. Re-locking is allowed only after the prior lock was
	// returned or forfeited.
	ErrDuplicateLock = errors.New("active lock already exists for job")

	// ErrNoActiveLock is returned when a return/forfeit finds no lock to
	// resolve and none was ever settled for the pair.
	ErrNoActiveLock = errors.New("no active lock for job")

	// ErrAlreadySettled is returned when a return/forfeit replays against a
	// lock that was already resolved. The first settlement stands; nothing is
	// double-applied.
	ErrAlreadySettled = errors.New("lock already settled")

	// ErrLockAmountMismatch is returned when a settlement names an amount other
	// than the one locked.
	ErrLockAmountMismatch = errors.New("settlement amount does not match lock")

	// ErrDuplicateIdempotencyKey is returned when a purchase replays a known
	// idempotency key. Expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports how short the wallet is.
type InsufficientBalanceError struct {
	WalletID  string
	Available int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: requested %d, available %d", e.Requested, e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConflict reports whether the error is a business-rule conflict the caller
// caused (HTTP 409 class).
func IsConflict(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrDuplicateLock) ||
		errors.Is(err, ErrNoActiveLock) ||
		errors.Is(err, ErrAlreadySettled) ||
		errors.Is(err, ErrLockAmountMismatch) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}

// IsNotFound reports whether the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWalletNotFound)
}

// IsValidation reports whether the error is invalid client input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) || errors.Is(err, ErrMissingJob)
}
