package pgsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
	portsrepo "github.com/mar0580/teste-sistema-bancario/internal/core/ports/repositories"
	"github.com/mar0580/teste-sistema-bancario/internal/models"
	"github.com/mar0580/teste-sistema-bancario/internal/utils/mapping"
)

// PgxTransactionRepository reads the committed transaction log.
type PgxTransactionRepository struct {
	pool dbPool
}

func newPgxTransactionRepository(pool dbPool) *PgxTransactionRepository {
	return &PgxTransactionRepository{pool: pool}
}

var _ portsrepo.TransactionReader = (*PgxTransactionRepository)(nil)

// ListTransactionsByAccount returns the account's entries newest first.
func (r *PgxTransactionRepository) ListTransactionsByAccount(ctx context.Context, accountNumber string, limit int, beforeSequence int64) ([]domain.Transaction, error) {
	query := `
		SELECT sequence, transaction_id, kind, amount, occurred_at, origin_account, destination_account
		FROM transactions
		WHERE (origin_account = $1 OR destination_account = $1)
		  AND ($3::bigint = 0 OR sequence < $3)
		ORDER BY sequence DESC
		LIMIT $2;
	`
	rows, err := r.pool.Query(ctx, query, accountNumber, limit, beforeSequence)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions for account %s: %w", accountNumber, translatePgError(err))
	}
	ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Transaction])
	if err != nil {
		return nil, fmt.Errorf("failed to scan transactions: %w", err)
	}
	return mapping.ToDomainTransactionSlice(ms)
}

// pgxTransactionLog appends to the log inside one database transaction.
type pgxTransactionLog struct {
	tx pgx.Tx
}

var _ portsrepo.TransactionLog = (*pgxTransactionLog)(nil)

func (l *pgxTransactionLog) AppendTransaction(ctx context.Context, txn domain.Transaction) error {
	if err := txn.Validate(); err != nil {
		return err
	}
	m := mapping.ToModelTransaction(txn)
	query := `
		INSERT INTO transactions (transaction_id, kind, amount, occurred_at, origin_account, destination_account)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := l.tx.Exec(ctx, query, m.TransactionID, m.Kind, m.Amount, m.OccurredAt, m.OriginAccount, m.DestinationAccount)
	if err != nil {
		return fmt.Errorf("failed to append transaction %s: %w", m.TransactionID, translatePgError(err))
	}
	return nil
}
