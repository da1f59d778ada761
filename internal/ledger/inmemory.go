package ledger

import (
	"context"
	"sync"
)

type inMemoryStore struct {
	mu       sync.RWMutex
	balances map[AccountID]Balance
	issuance *Balance
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit
// tests and development. Operations are serialized by a single lock.
func NewInMemory() Store {
	return &inMemoryStore{
		balances: make(map[AccountID]Balance),
	}
}

func (s *inMemoryStore) Update(_ context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newTx(memorySnapshot{s}, false)
	if err := fn(tx); err != nil {
		return err
	}

	changes := tx.changes()
	for account, amount := range changes.balances {
		s.balances[account] = amount
	}
	if changes.issuance != nil {
		issuance := *changes.issuance
		s.issuance = &issuance
	}
	return nil
}

func (s *inMemoryStore) View(_ context.Context, fn func(tx *Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(newTx(memorySnapshot{s}, true))
}

// memorySnapshot reads the maps directly; the caller holds s.mu.
type memorySnapshot struct {
	s *inMemoryStore
}

func (m memorySnapshot) loadBalance(account AccountID) (Balance, bool, error) {
	amount, ok := m.s.balances[account]
	return amount, ok, nil
}

func (m memorySnapshot) loadIssuance() (Balance, bool, error) {
	if m.s.issuance == nil {
		return Balance{}, false, nil
	}
	return *m.s.issuance, true, nil
}

func (m memorySnapshot) loadTotal() (Balance, error) {
	var total Balance
	for _, amount := range m.s.balances {
		sum, ok := total.CheckedAdd(amount)
		if !ok {
			return Balance{}, ErrArithmeticOverflow
		}
		total = sum
	}
	return total, nil
}
