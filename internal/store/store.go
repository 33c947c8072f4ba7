package store

import (
	"context"
	"errors"

	"github.com/scratchbank/ledgerd/internal/domain"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
)

// Store is the narrow persistence boundary the transaction engine depends on.
// No business rules live here; implementations only move account records.
type Store interface {
	Exists(ctx context.Context, accountID string) (bool, error)
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	Create(ctx context.Context, acct domain.Account) error
	UpdateBalance(ctx context.Context, accountID string, balanceCents int64) error
	SetFrozen(ctx context.Context, accountID string, frozen bool) error
	// Lookup returns the accounts matching the given ids, silently omitting
	// ids that do not exist.
	Lookup(ctx context.Context, accountIDs []string) ([]domain.Account, error)
}
