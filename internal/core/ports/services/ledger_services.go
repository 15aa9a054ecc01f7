package services

import (
	"context"

	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
	"github.com/mar0580/teste-sistema-bancario/internal/dto"
	"github.com/shopspring/decimal"
)

// LedgerWriterSvc defines the balance-moving operations.
type LedgerWriterSvc interface {
	// Credit adds amount to the account and records one CREDIT entry.
	Credit(ctx context.Context, accountNumber string, amount decimal.Decimal) (*domain.Account, error)

	// Debit removes amount from the account and records one DEBIT entry.
	Debit(ctx context.Context, accountNumber string, amount decimal.Decimal) (*domain.Account, error)

	// Transfer moves amount between two accounts and records one TRANSFER entry.
	Transfer(ctx context.Context, originAccount string, destinationAccount string, amount decimal.Decimal) (*domain.TransferResult, error)
}

// LedgerReaderSvc defines read operations over the transaction log.
type LedgerReaderSvc interface {
	// ListTransactions returns a page of the account's history, newest first.
	ListTransactions(ctx context.Context, accountNumber string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error)
}

// LedgerSvcFacade is everything the presentation layer calls into.
type LedgerSvcFacade interface {
	AccountSvcFacade
	LedgerWriterSvc
	LedgerReaderSvc
}
