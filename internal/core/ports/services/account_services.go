package services

import (
	"context"

	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
	"github.com/mar0580/teste-sistema-bancario/internal/dto"
)

// AccountReaderSvc defines read operations for account data
type AccountReaderSvc interface {
	// GetAccount retrieves an account by its account number.
	GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error)

	// ListAccounts returns a point-in-time snapshot of all accounts ordered by account number.
	ListAccounts(ctx context.Context) ([]domain.Account, error)

	// AccountByHolder returns the single account owned by holderName.
	AccountByHolder(ctx context.Context, holderName string) (*domain.Account, error)

	// VerifyOwnership reports whether the account belongs to holderName.
	VerifyOwnership(ctx context.Context, accountNumber string, holderName string) (bool, error)
}

// AccountWriterSvc defines write operations for account data
type AccountWriterSvc interface {
	// CreateAccount provisions an account. A positive initial balance is
	// credited atomically with the creation; otherwise the balance is zero.
	CreateAccount(ctx context.Context, req dto.CreateAccountRequest) (*domain.Account, error)
}

// AccountSvcFacade combines all account-related service interfaces
// This is a facade for clients that need access to all operations
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountWriterSvc
}
