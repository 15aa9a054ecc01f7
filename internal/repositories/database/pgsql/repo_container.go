package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"
	portsrepo "github.com/mar0580/teste-sistema-bancario/internal/core/ports/repositories"
)

// NewRepositoryProvider wires the Postgres-backed ledger stores.
func NewRepositoryProvider(pool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo:     newPgxAccountRepository(pool),
		TransactionRepo: newPgxTransactionRepository(pool),
		UnitOfWork:      newPgxUnitOfWork(pool),
	}
}
