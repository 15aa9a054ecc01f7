package repositories

import (
	"context"

	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
)

// TransactionReader defines read operations over the transaction log.
type TransactionReader interface {
	// ListTransactionsByAccount returns entries where the account is origin or destination,
	// newest first. A beforeSequence of 0 starts from the newest entry.
	ListTransactionsByAccount(ctx context.Context, accountNumber string, limit int, beforeSequence int64) ([]domain.Transaction, error)
}

// TransactionLog is the append-only log bound to one atomic unit of work.
type TransactionLog interface {
	// AppendTransaction records txn. It becomes visible only when the unit commits.
	AppendTransaction(ctx context.Context, txn domain.Transaction) error
}
