package repositories

import (
	"context"

	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
)

// AccountReader defines lock-free read operations for account data.
// Reads may observe slightly stale state but always a committed one.
type AccountReader interface {
	// FindAccountByNumber retrieves an account by its account number.
	FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)

	// ListAccounts retrieves every account ordered by account number.
	ListAccounts(ctx context.Context) ([]domain.Account, error)

	// FindAccountsByHolder retrieves the accounts of a holder ordered by creation time.
	FindAccountsByHolder(ctx context.Context, holderName string) ([]domain.Account, error)
}

// AccountStore is the account view bound to one atomic unit of work.
type AccountStore interface {
	// GetAccount reads the account and its version token.
	GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error)

	// GetAccountForUpdate reads the account signalling intent to mutate it.
	// Backends with row locks hold the lock until the unit commits or aborts.
	GetAccountForUpdate(ctx context.Context, accountNumber string) (*domain.Account, error)

	// CompareAndSwap persists next if the stored version still equals expectedVersion.
	// It returns the new version, domain.ErrVersionConflict or apperrors.ErrNotFound.
	CompareAndSwap(ctx context.Context, accountNumber string, expectedVersion int64, next domain.Account) (int64, error)

	// CreateAccount inserts a new account. Duplicate numbers yield apperrors.ErrDuplicate.
	CreateAccount(ctx context.Context, account domain.Account) error
}
