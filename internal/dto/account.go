package dto

import (
	"time"

	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest defines the data needed to create a new account.
// A positive InitialBalance is booked as a CREDIT in the same unit as the account.
type CreateAccountRequest struct {
	AccountNumber  string           `json:"accountNumber" binding:"required,accountnumber"`
	HolderName     string           `json:"holderName" binding:"required,max=120"`
	InitialBalance *decimal.Decimal `json:"initialBalance,omitempty" swaggertype:"string"`
}

// AccountResponse defines the data returned for an account.
// The version token is deliberately absent.
type AccountResponse struct {
	AccountNumber string          `json:"accountNumber"`
	HolderName    string          `json:"holderName"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// ListAccountsResponse wraps the account snapshot.
type ListAccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountNumber: acc.AccountNumber,
		HolderName:    acc.HolderName,
		Balance:       acc.Balance,
		CreatedAt:     acc.CreatedAt,
		UpdatedAt:     acc.UpdatedAt,
	}
}

// ToListAccountResponse converts a slice of domain.Account to a ListAccountsResponse
func ToListAccountResponse(accounts []domain.Account) ListAccountsResponse {
	res := make([]AccountResponse, len(accounts))
	for i := range accounts {
		res[i] = ToAccountResponse(&accounts[i])
	}
	return ListAccountsResponse{Accounts: res}
}
