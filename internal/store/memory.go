package store

import (
	"context"
	"sync"

	"github.com/scratchbank/ledgerd/internal/domain"
)

// Memory is a mutex-guarded in-memory Store. It backs the engine and handler
// tests and doubles as a broker-free development mode.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
}

func NewMemory() *Memory {
	return &Memory{accounts: make(map[string]domain.Account)}
}

func (m *Memory) Exists(_ context.Context, accountID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.accounts[accountID]
	return ok, nil
}

func (m *Memory) Get(_ context.Context, accountID string) (*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acct, ok := m.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &acct, nil
}

func (m *Memory) Create(_ context.Context, acct domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[acct.AccountID]; ok {
		return ErrAccountExists
	}
	m.accounts[acct.AccountID] = acct
	return nil
}

func (m *Memory) UpdateBalance(_ context.Context, accountID string, balanceCents int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	acct.BalanceCents = balanceCents
	m.accounts[accountID] = acct
	return nil
}

func (m *Memory) SetFrozen(_ context.Context, accountID string, frozen bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	acct.Frozen = frozen
	m.accounts[accountID] = acct
	return nil
}

func (m *Memory) Lookup(_ context.Context, accountIDs []string) ([]domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []domain.Account
	for _, id := range accountIDs {
		if acct, ok := m.accounts[id]; ok {
			accounts = append(accounts, acct)
		}
	}
	return accounts, nil
}
