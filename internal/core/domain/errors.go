package domain

import (
	"errors"
	"fmt"

	"github.com/mar0580/teste-sistema-bancario/internal/apperrors"
)

// Caller mistakes. Never retried.
var (
	ErrInvalidAmount          = fmt.Errorf("%w: amount must be greater than zero", apperrors.ErrValidation)
	ErrSameAccountTransfer    = fmt.Errorf("%w: origin and destination accounts must differ", apperrors.ErrValidation)
	ErrAccountNotFound        = fmt.Errorf("%w: account not found", apperrors.ErrNotFound)
	ErrDuplicateAccountNumber = fmt.Errorf("%w: account number already in use", apperrors.ErrDuplicate)
)

// ErrInsufficientFunds is a business-rule rejection: the amount exceeds the freshly read balance.
var ErrInsufficientFunds = fmt.Errorf("%w: insufficient funds", apperrors.ErrBusinessRule)

// ErrConcurrencyConflict is returned once the conflict retry budget is spent.
var ErrConcurrencyConflict = fmt.Errorf("%w: account was modified concurrently", apperrors.ErrConflict)

// ErrAmbiguousHolder is returned by holder lookups that match more than one account.
var ErrAmbiguousHolder = fmt.Errorf("%w: more than one account belongs to this holder", apperrors.ErrConflict)

// ErrVersionConflict is reported by stores when a compare-and-swap sees a newer version.
// It stays inside the core: the conflict coordinator turns it into a retry or ErrConcurrencyConflict.
var ErrVersionConflict = errors.New("version conflict")
