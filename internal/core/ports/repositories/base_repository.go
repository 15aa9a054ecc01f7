package repositories

import (
	"context"
)

// LedgerTx exposes the stores bound to a single atomic unit.
type LedgerTx interface {
	Accounts() AccountStore
	Transactions() TransactionLog
}

// UnitOfWork runs ledger mutations atomically.
type UnitOfWork interface {
	// RunInTx calls fn with stores bound to one unit. The unit commits only if fn
	// returns nil and ctx is still live; otherwise no write from fn survives.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}
