package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mar0580/teste-sistema-bancario/internal/apperrors"
	"github.com/shopspring/decimal"
)

const maxHolderNameLength = 120

// AmountScale is the number of decimal places a balance or amount may carry.
// The SQL schemas declare balance and amount as NUMERIC(19, AmountScale).
const AmountScale = 4

var accountNumberPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]{0,33}$`)

// Account represents a ledger account within the core domain.
// Accounts are values: balance changes produce a new Account that is persisted
// through the store's compare-and-swap.
type Account struct {
	AccountNumber string          `json:"accountNumber"` // Unique, immutable
	HolderName    string          `json:"holderName"`    // Display name of the owner, not unique
	Balance       decimal.Decimal `json:"balance"`       // Never negative once committed
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Version       int64           `json:"-"` // Optimistic concurrency token
}

// TransferResult holds both sides of a committed transfer.
type TransferResult struct {
	Origin      Account `json:"origin"`
	Destination Account `json:"destination"`
}

// ValidAccountNumber reports whether s is a well-formed account number.
func ValidAccountNumber(s string) bool {
	return accountNumberPattern.MatchString(s)
}

// NewAccount builds a zero-balance account at version 0.
func NewAccount(accountNumber, holderName string, now time.Time) (Account, error) {
	holderName = strings.TrimSpace(holderName)
	if !ValidAccountNumber(accountNumber) {
		return Account{}, fmt.Errorf("%w: invalid account number %q", apperrors.ErrValidation, accountNumber)
	}
	if holderName == "" || len(holderName) > maxHolderNameLength {
		return Account{}, fmt.Errorf("%w: holder name must be between 1 and %d characters", apperrors.ErrValidation, maxHolderNameLength)
	}
	return Account{
		AccountNumber: accountNumber,
		HolderName:    holderName,
		Balance:       decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       0,
	}, nil
}

// ValidateAmount rejects zero and negative amounts, and amounts finer than AmountScale.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return fmt.Errorf("%w: at most %d decimal places, got %s", ErrInvalidAmount, AmountScale, amount.String())
	}
	return nil
}

// Credit returns the account with amount added to its balance.
func (a Account) Credit(amount decimal.Decimal, now time.Time) (Account, error) {
	if err := ValidateAmount(amount); err != nil {
		return a, err
	}
	a.Balance = a.Balance.Add(amount)
	a.UpdatedAt = now
	return a, nil
}

// Debit returns the account with amount removed from its balance.
// The check runs against the balance held by a, so callers must pass freshly read state.
func (a Account) Debit(amount decimal.Decimal, now time.Time) (Account, error) {
	if err := ValidateAmount(amount); err != nil {
		return a, err
	}
	if a.Balance.LessThan(amount) {
		return a, fmt.Errorf("%w: account %s has %s, requested %s", ErrInsufficientFunds, a.AccountNumber, a.Balance.String(), amount.String())
	}
	a.Balance = a.Balance.Sub(amount)
	a.UpdatedAt = now
	return a, nil
}
