/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces for the energy, job and schedule services.

PURPOSE:
  Implements energy.TxStore plus the job and schedule repositories. Each
  service binary opens its own database file; the schema is auto-migrated
  on New().

APPEND-ONLY ENFORCEMENT:
  There are no UPDATE or DELETE statements against energy_transactions or
  no_show_history. A lock is resolved by inserting a returned/forfeited row
  that references it; the partial unique index idx_energy_tx_lock_once
  guarantees at most one resolution per lock.

BALANCE GUARD:
  AdjustBalance is a single conditional UPDATE with a "balance stays
  non-negative" predicate. Combined with the single-writer connection this
  makes the lock's check-and-decrement one serialized step: two concurrent
  locks can never both pass against a stale balance.

CONCURRENCY:
  The pool is capped at one open connection and guarded by a mutex, so a
  WithTx callback owns the connection for its whole transaction. SQLite is
  opened in WAL mode.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - energy/store.go: Interface definitions
  - energy/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sparelink/gig-engine/energy"
)

// querier is satisfied by both *sql.DB and *sql.Tx so every store method can
// run against whichever executor owns the connection.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	q  querier
	mu *sync.Mutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database (useful for tests).
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer connection: keeps ":memory:" coherent and serializes the
	// balance guard.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, q: db, mu: &sync.Mutex{}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Wallets (one per user, created lazily)
	CREATE TABLE IF NOT EXISTS wallets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		balance INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Energy ledger (append-only)
	CREATE TABLE IF NOT EXISTS energy_transactions (
		id TEXT PRIMARY KEY,
		wallet_id TEXT NOT NULL REFERENCES wallets(id) ON DELETE CASCADE,
		job_id TEXT,
		lock_id TEXT REFERENCES energy_transactions(id),
		amount INTEGER NOT NULL,
		state TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		idempotency_key TEXT UNIQUE
	);

	CREATE INDEX IF NOT EXISTS idx_energy_tx_wallet
		ON energy_transactions(wallet_id, timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_energy_tx_wallet_job_state
		ON energy_transactions(wallet_id, job_id, state);

	-- CRITICAL: at most one returned/forfeited row may resolve a lock
	CREATE UNIQUE INDEX IF NOT EXISTS idx_energy_tx_lock_once
		ON energy_transactions(lock_id) WHERE lock_id IS NOT NULL;

	-- No-show audit trail (append-only)
	CREATE TABLE IF NOT EXISTS no_show_history (
		id TEXT PRIMARY KEY,
		wallet_id TEXT NOT NULL REFERENCES wallets(id) ON DELETE CASCADE,
		job_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_no_show_wallet
		ON no_show_history(wallet_id, created_at DESC);

	-- Job postings
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		shop_id TEXT NOT NULL,
		title TEXT NOT NULL,
		date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		pay TEXT NOT NULL,
		energy INTEGER NOT NULL DEFAULT 0,
		required_count INTEGER NOT NULL DEFAULT 1,
		status TEXT NOT NULL DEFAULT 'published',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_shop ON jobs(shop_id, created_at DESC);

	-- Applications (one per spare per job)
	CREATE TABLE IF NOT EXISTS applications (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
		spare_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		energy_locked INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(job_id, spare_id)
	);

	CREATE INDEX IF NOT EXISTS idx_applications_spare
		ON applications(spare_id, created_at DESC);

	-- Schedules (energy_cost copied from the job at creation)
	CREATE TABLE IF NOT EXISTS schedules (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL,
		spare_id TEXT NOT NULL,
		shop_id TEXT NOT NULL,
		date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT,
		energy_cost INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'scheduled',
		check_in_time TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_schedules_spare ON schedules(spare_id, date DESC);
	CREATE INDEX IF NOT EXISTS idx_schedules_shop ON schedules(shop_id, date DESC);
	CREATE INDEX IF NOT EXISTS idx_schedules_status ON schedules(status, date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// lock is nil-safe: the child store used inside WithTx shares the transaction
// and carries no mutex, since the parent already holds it.
func (s *Store) lock() func() {
	if s.mu == nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// =============================================================================
// WALLET STORE (energy.Store interface)
// =============================================================================

// GetOrCreateWallet returns the user's wallet, inserting an empty one on first
// access. The unique constraint on user_id makes concurrent creation converge
// on a single row.
func (s *Store) GetOrCreateWallet(ctx context.Context, userID string) (*energy.Wallet, error) {
	defer s.lock()()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, balance, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?)
		ON CONFLICT(user_id) DO NOTHING`,
		uuid.NewString(), userID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	return scanWallet(s.q.QueryRowContext(ctx,
		`SELECT id, user_id, balance, created_at, updated_at FROM wallets WHERE user_id = ?`,
		userID,
	))
}

// GetWallet returns a wallet by ID.
func (s *Store) GetWallet(ctx context.Context, walletID string) (*energy.Wallet, error) {
	defer s.lock()()

	return scanWallet(s.q.QueryRowContext(ctx,
		`SELECT id, user_id, balance, created_at, updated_at FROM wallets WHERE id = ?`,
		walletID,
	))
}

func scanWallet(row *sql.Row) (*energy.Wallet, error) {
	var (
		w                    energy.Wallet
		createdAt, updatedAt string
	)
	err := row.Scan(&w.ID, &w.UserID, &w.Balance, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, energy.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}
	w.CreatedAt = parseTime(createdAt)
	w.UpdatedAt = parseTime(updatedAt)
	return &w, nil
}

// AdjustBalance applies delta atomically. The WHERE predicate is the balance
// guard: a decrement that would go negative updates zero rows.
func (s *Store) AdjustBalance(ctx context.Context, walletID string, delta int64) error {
	defer s.lock()()

	res, err := s.q.ExecContext(ctx, `
		UPDATE wallets SET balance = balance + ?, updated_at = ?
		WHERE id = ? AND balance + ? >= 0`,
		delta, time.Now().UTC().Format(time.RFC3339Nano), walletID, delta,
	)
	if err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "no wallet" from "guard fired".
		var one int
		err := s.q.QueryRowContext(ctx, `SELECT 1 FROM wallets WHERE id = ?`, walletID).Scan(&one)
		if err == sql.ErrNoRows {
			return energy.ErrWalletNotFound
		}
		if err != nil {
			return err
		}
		return energy.ErrInsufficientBalance
	}
	return nil
}

// =============================================================================
// LEDGER STORE (energy.Store interface)
// =============================================================================

// Append inserts a ledger entry. This is the only write path into the ledger.
func (s *Store) Append(ctx context.Context, tx energy.Transaction) error {
	defer s.lock()()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO energy_transactions
		(id, wallet_id, job_id, lock_id, amount, state, timestamp, idempotency_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.WalletID,
		nullString(tx.JobID),
		nullString(tx.LockID),
		tx.Amount,
		string(tx.State),
		tx.Timestamp.UTC().Format(time.RFC3339Nano),
		nullString(tx.IdempotencyKey),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			if strings.Contains(err.Error(), "lock_id") {
				return energy.ErrAlreadySettled
			}
			return energy.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// FindActiveLock returns the unresolved locked entry for (wallet, job), or nil
// when every lock has been resolved.
func (s *Store) FindActiveLock(ctx context.Context, walletID, jobID string) (*energy.Transaction, error) {
	defer s.lock()()

	rows, err := s.q.QueryContext(ctx, `
		SELECT t.id, t.wallet_id, t.job_id, t.lock_id, t.amount, t.state, t.timestamp, t.idempotency_key
		FROM energy_transactions t
		WHERE t.wallet_id = ? AND t.job_id = ? AND t.state = 'locked'
		  AND NOT EXISTS (
			SELECT 1 FROM energy_transactions r WHERE r.lock_id = t.id
		  )
		ORDER BY t.timestamp DESC
		LIMIT 1`,
		walletID, jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find active lock: %w", err)
	}
	defer rows.Close()

	txs, err := scanTransactions(rows)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, nil
	}
	return &txs[0], nil
}

// HasSettledLock reports whether any lock for (wallet, job) was resolved.
func (s *Store) HasSettledLock(ctx context.Context, walletID, jobID string) (bool, error) {
	defer s.lock()()

	var count int
	err := s.q.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM energy_transactions t
		JOIN energy_transactions r ON r.lock_id = t.id
		WHERE t.wallet_id = ? AND t.job_id = ? AND t.state = 'locked'`,
		walletID, jobID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check settled lock: %w", err)
	}
	return count > 0, nil
}

// Transactions returns a wallet's ledger entries, newest first.
func (s *Store) Transactions(ctx context.Context, walletID string, limit, offset int) ([]energy.Transaction, error) {
	defer s.lock()()

	rows, err := s.q.QueryContext(ctx, `
		SELECT id, wallet_id, job_id, lock_id, amount, state, timestamp, idempotency_key
		FROM energy_transactions
		WHERE wallet_id = ?
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?`,
		walletID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]energy.Transaction, error) {
	var txs []energy.Transaction
	for rows.Next() {
		var (
			tx                     energy.Transaction
			jobID, lockID, idemKey sql.NullString
			timestamp              string
		)
		if err := rows.Scan(&tx.ID, &tx.WalletID, &jobID, &lockID, &tx.Amount, &tx.State, &timestamp, &idemKey); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.JobID = jobID.String
		tx.LockID = lockID.String
		tx.IdempotencyKey = idemKey.String
		tx.Timestamp = parseTime(timestamp)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// =============================================================================
// NO-SHOW STORE (energy.Store interface)
// =============================================================================

// AppendNoShow inserts a forfeiture audit record.
func (s *Store) AppendNoShow(ctx context.Context, rec energy.NoShowRecord) error {
	defer s.lock()()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO no_show_history (id, wallet_id, job_id, created_at)
		VALUES (?, ?, ?, ?)`,
		rec.ID, rec.WalletID, rec.JobID, rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append no-show record: %w", err)
	}
	return nil
}

// NoShows returns recent no-show records for a wallet, newest first.
func (s *Store) NoShows(ctx context.Context, walletID string, limit int) ([]energy.NoShowRecord, error) {
	defer s.lock()()

	rows, err := s.q.QueryContext(ctx, `
		SELECT id, wallet_id, job_id, created_at
		FROM no_show_history
		WHERE wallet_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		walletID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query no-show history: %w", err)
	}
	defer rows.Close()

	var recs []energy.NoShowRecord
	for rows.Next() {
		var (
			rec       energy.NoShowRecord
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.WalletID, &rec.JobID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan no-show record: %w", err)
		}
		rec.CreatedAt = parseTime(createdAt)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (energy.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. The child store runs every
// statement on the transaction's connection; the parent's mutex is held for
// the duration so the single pooled connection is never contended.
func (s *Store) WithTx(ctx context.Context, fn func(energy.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	child := &Store{db: s.db, q: sqlTx}
	if err := fn(child); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
