package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mar0580/teste-sistema-bancario/internal/apperrors"
	"github.com/shopspring/decimal"
)

// TransactionKind is the closed set of monetary movements the ledger records.
type TransactionKind uint8

const (
	KindCredit TransactionKind = iota + 1
	KindDebit
	KindTransfer
)

// String returns the persisted name of the kind.
func (k TransactionKind) String() string {
	switch k {
	case KindCredit:
		return "CREDIT"
	case KindDebit:
		return "DEBIT"
	case KindTransfer:
		return "TRANSFER"
	}
	return fmt.Sprintf("TransactionKind(%d)", uint8(k))
}

// Valid reports whether k is one of the declared kinds.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindCredit, KindDebit, KindTransfer:
		return true
	}
	return false
}

// ParseTransactionKind maps a persisted name back to its kind.
func ParseTransactionKind(s string) (TransactionKind, error) {
	switch s {
	case "CREDIT":
		return KindCredit, nil
	case "DEBIT":
		return KindDebit, nil
	case "TRANSFER":
		return KindTransfer, nil
	}
	return 0, fmt.Errorf("%w: unknown transaction kind %q", apperrors.ErrValidation, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k TransactionKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", k.String())
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *TransactionKind) UnmarshalText(text []byte) error {
	parsed, err := ParseTransactionKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Transaction is one immutable entry of the append-only log.
type Transaction struct {
	TransactionID      string          `json:"transactionID"`
	Sequence           int64           `json:"sequence"` // Assigned by the log at commit
	Kind               TransactionKind `json:"kind"`
	Amount             decimal.Decimal `json:"amount"`
	OccurredAt         time.Time       `json:"occurredAt"`
	OriginAccount      string          `json:"originAccount"`
	DestinationAccount string          `json:"destinationAccount,omitempty"` // TRANSFER only
}

// NewCredit builds the log entry for a credit.
func NewCredit(accountNumber string, amount decimal.Decimal, now time.Time) Transaction {
	return newTransaction(KindCredit, accountNumber, "", amount, now)
}

// NewDebit builds the log entry for a debit.
func NewDebit(accountNumber string, amount decimal.Decimal, now time.Time) Transaction {
	return newTransaction(KindDebit, accountNumber, "", amount, now)
}

// NewTransfer builds the single log entry recorded for a transfer.
func NewTransfer(origin, destination string, amount decimal.Decimal, now time.Time) Transaction {
	return newTransaction(KindTransfer, origin, destination, amount, now)
}

func newTransaction(kind TransactionKind, origin, destination string, amount decimal.Decimal, now time.Time) Transaction {
	return Transaction{
		TransactionID:      uuid.NewString(),
		Kind:               kind,
		Amount:             amount,
		OccurredAt:         now,
		OriginAccount:      origin,
		DestinationAccount: destination,
	}
}

// Involves reports whether the account is the origin or the destination of t.
func (t Transaction) Involves(accountNumber string) bool {
	return t.OriginAccount == accountNumber || t.DestinationAccount == accountNumber
}

// Validate checks the shape each kind requires.
func (t Transaction) Validate() error {
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if t.OriginAccount == "" {
		return fmt.Errorf("%w: transaction %s has no origin account", apperrors.ErrValidation, t.TransactionID)
	}
	switch t.Kind {
	case KindCredit, KindDebit:
		if t.DestinationAccount != "" {
			return fmt.Errorf("%w: %s transaction cannot have a destination", apperrors.ErrValidation, t.Kind)
		}
	case KindTransfer:
		if t.DestinationAccount == "" {
			return fmt.Errorf("%w: transfer requires a destination", apperrors.ErrValidation)
		}
		if t.DestinationAccount == t.OriginAccount {
			return ErrSameAccountTransfer
		}
	default:
		return fmt.Errorf("%w: unknown transaction kind %s", apperrors.ErrValidation, t.Kind)
	}
	return nil
}
