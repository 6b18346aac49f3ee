/*
Package energy provides the core credit ledger for the gig marketplace.

PURPOSE:
  Every spare (worker) holds a wallet of energy points. Applying to a job
  locks points; showing up and checking in returns them; a no-show forfeits
  them permanently. This package contains the wallet/transaction model and
  the engine that keeps balances and the ledger consistent.

KEY CONCEPTS IN THIS FILE (types.go):
  - Wallet: per-user balance record, created lazily on first access
  - Transaction: an immutable ledger entry; a lock's lifecycle is modeled
    by later entries referencing it, never by mutating the lock row
  - NoShowRecord: audit record written once per forfeiture

DESIGN PRINCIPLES:
  1. Append-only ledger: returned/forfeited entries point at the lock they
     resolve via LockID; history is never rewritten
  2. Integer points: energy is counted, not measured; no fractional units
  3. Single-wallet scope: every mutation touches exactly one wallet and at
     most one job

SEE ALSO:
  - engine.go: purchase/lock/return/forfeit operations
  - store.go: persistence interfaces
  - errors.go: error taxonomy
*/
package energy

import "time"

// =============================================================================
// WALLET - Per-user balance record
// =============================================================================

// Wallet holds a user's current energy balance. The balance is denormalized
// for fast reads; the ledger remains the source of truth and the engine keeps
// the two in sync within a single storage transaction.
type Wallet struct {
	ID        string
	UserID    string
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// TRANSACTION - Ledger entry
// =============================================================================

// TxState tags what a ledger entry represents.
type TxState string

const (
	// StateAvailable records a purchase: points added to the balance.
	StateAvailable TxState = "available"
	// StateLocked records points provisionally removed for a job application.
	StateLocked TxState = "locked"
	// StateReturned resolves a lock after a successful check-in; points are
	// credited back.
	StateReturned TxState = "returned"
	// StateForfeited resolves a lock after a no-show; points stay removed.
	StateForfeited TxState = "forfeited"
)

// Transaction is one ledger entry. Amount is always the magnitude moved; the
// direction is implied by State. LockID is set only on returned/forfeited
// entries and names the locked entry being resolved. At most one entry may
// resolve a given lock.
type Transaction struct {
	ID             string
	WalletID       string
	JobID          string // empty for purchases
	LockID         string // set on returned/forfeited entries
	Amount         int64
	State          TxState
	Timestamp      time.Time
	IdempotencyKey string // optional, dedups client retries of purchases
}

// Resolves reports whether the entry resolves a prior lock.
func (t Transaction) Resolves() bool {
	return t.State == StateReturned || t.State == StateForfeited
}

// =============================================================================
// NO-SHOW RECORD - Forfeiture audit trail
// =============================================================================

// NoShowRecord is written exactly once per forfeiture. Append-only, never
// mutated.
type NoShowRecord struct {
	ID        string
	WalletID  string
	JobID     string
	CreatedAt time.Time
}

// =============================================================================
// SNAPSHOT - Composite read view
// =============================================================================

// Snapshot is the read-only wallet view returned to clients: the wallet plus
// recent activity.
type Snapshot struct {
	Wallet       Wallet
	Transactions []Transaction
	NoShows      []NoShowRecord
}
