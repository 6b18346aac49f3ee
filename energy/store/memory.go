// Package store provides an in-memory energy.TxStore for tests and dev.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sparelink/gig-engine/energy"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements energy.TxStore with plain maps. WithTx serializes whole
// operations under one mutex and restores a snapshot on error, which gives the
// same all-or-nothing and serialized-lock semantics as the SQLite store.
type Memory struct {
	mu    *sync.Mutex
	state *memState
}

type memState struct {
	wallets      map[string]energy.Wallet // by wallet ID
	userToWallet map[string]string
	txs          map[string][]energy.Transaction // by wallet ID, append order
	resolved     map[string]string               // lock ID -> resolving tx ID
	noShows      map[string][]energy.NoShowRecord
	idempotency  map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		mu: &sync.Mutex{},
		state: &memState{
			wallets:      make(map[string]energy.Wallet),
			userToWallet: make(map[string]string),
			txs:          make(map[string][]energy.Transaction),
			resolved:     make(map[string]string),
			noShows:      make(map[string][]energy.NoShowRecord),
			idempotency:  make(map[string]bool),
		},
	}
}

// lock is nil-safe: the child store handed to WithTx callbacks shares state
// with the parent but carries no mutex, since the parent already holds it.
func (m *Memory) lock() func() {
	if m.mu == nil {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Memory) GetOrCreateWallet(_ context.Context, userID string) (*energy.Wallet, error) {
	defer m.lock()()

	if id, ok := m.state.userToWallet[userID]; ok {
		w := m.state.wallets[id]
		return &w, nil
	}

	now := time.Now().UTC()
	w := energy.Wallet{
		ID:        uuid.NewString(),
		UserID:    userID,
		Balance:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.state.wallets[w.ID] = w
	m.state.userToWallet[userID] = w.ID
	return &w, nil
}

func (m *Memory) GetWallet(_ context.Context, walletID string) (*energy.Wallet, error) {
	defer m.lock()()

	w, ok := m.state.wallets[walletID]
	if !ok {
		return nil, energy.ErrWalletNotFound
	}
	return &w, nil
}

func (m *Memory) AdjustBalance(_ context.Context, walletID string, delta int64) error {
	defer m.lock()()

	w, ok := m.state.wallets[walletID]
	if !ok {
		return energy.ErrWalletNotFound
	}
	if w.Balance+delta < 0 {
		return energy.ErrInsufficientBalance
	}
	w.Balance += delta
	w.UpdatedAt = time.Now().UTC()
	m.state.wallets[walletID] = w
	return nil
}

func (m *Memory) Append(_ context.Context, tx energy.Transaction) error {
	defer m.lock()()

	if tx.IdempotencyKey != "" && m.state.idempotency[tx.IdempotencyKey] {
		return energy.ErrDuplicateIdempotencyKey
	}
	if tx.LockID != "" {
		if _, taken := m.state.resolved[tx.LockID]; taken {
			return energy.ErrAlreadySettled
		}
		m.state.resolved[tx.LockID] = tx.ID
	}

	m.state.txs[tx.WalletID] = append(m.state.txs[tx.WalletID], tx)
	if tx.IdempotencyKey != "" {
		m.state.idempotency[tx.IdempotencyKey] = true
	}
	return nil
}

func (m *Memory) FindActiveLock(_ context.Context, walletID, jobID string) (*energy.Transaction, error) {
	defer m.lock()()

	txs := m.state.txs[walletID]
	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		if tx.State != energy.StateLocked || tx.JobID != jobID {
			continue
		}
		if _, settled := m.state.resolved[tx.ID]; settled {
			continue
		}
		return &tx, nil
	}
	return nil, nil
}

func (m *Memory) HasSettledLock(_ context.Context, walletID, jobID string) (bool, error) {
	defer m.lock()()

	for _, tx := range m.state.txs[walletID] {
		if tx.State == energy.StateLocked && tx.JobID == jobID {
			if _, settled := m.state.resolved[tx.ID]; settled {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *Memory) Transactions(_ context.Context, walletID string, limit, offset int) ([]energy.Transaction, error) {
	defer m.lock()()

	txs := m.state.txs[walletID]
	// Newest first.
	out := make([]energy.Transaction, 0, limit)
	for i := len(txs) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, txs[i])
	}
	return out, nil
}

func (m *Memory) AppendNoShow(_ context.Context, rec energy.NoShowRecord) error {
	defer m.lock()()

	m.state.noShows[rec.WalletID] = append(m.state.noShows[rec.WalletID], rec)
	return nil
}

func (m *Memory) NoShows(_ context.Context, walletID string, limit int) ([]energy.NoShowRecord, error) {
	defer m.lock()()

	recs := m.state.noShows[walletID]
	out := make([]energy.NoShowRecord, 0, limit)
	for i := len(recs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, recs[i])
	}
	return out, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// WithTx serializes the whole callback and rolls the state back if fn fails.
func (m *Memory) WithTx(_ context.Context, fn func(energy.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	child := &Memory{state: m.state}
	if err := fn(child); err != nil {
		*m.state = *snapshot
		return err
	}
	return nil
}

func (s *memState) clone() *memState {
	c := &memState{
		wallets:      make(map[string]energy.Wallet, len(s.wallets)),
		userToWallet: make(map[string]string, len(s.userToWallet)),
		txs:          make(map[string][]energy.Transaction, len(s.txs)),
		resolved:     make(map[string]string, len(s.resolved)),
		noShows:      make(map[string][]energy.NoShowRecord, len(s.noShows)),
		idempotency:  make(map[string]bool, len(s.idempotency)),
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.userToWallet {
		c.userToWallet[k] = v
	}
	for k, v := range s.txs {
		c.txs[k] = append([]energy.Transaction(nil), v...)
	}
	for k, v := range s.resolved {
		c.resolved[k] = v
	}
	for k, v := range s.noShows {
		c.noShows[k] = append([]energy.NoShowRecord(nil), v...)
	}
	for k, v := range s.idempotency {
		c.idempotency[k] = v
	}
	return c
}
