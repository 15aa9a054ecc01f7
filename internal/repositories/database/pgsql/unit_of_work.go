package pgsql

import (
	"context"
	"log/slog"

	portsrepo "github.com/mar0580/teste-sistema-bancario/internal/core/ports/repositories"
)

// PgxUnitOfWork maps one ledger unit onto one READ COMMITTED transaction.
// Lost updates are prevented by the version predicate in CompareAndSwap,
// not by the isolation level.
type PgxUnitOfWork struct {
	BaseRepository
}

func newPgxUnitOfWork(pool dbPool) *PgxUnitOfWork {
	return &PgxUnitOfWork{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.UnitOfWork = (*PgxUnitOfWork)(nil)

type pgxLedgerTx struct {
	accounts *pgxAccountStore
	log      *pgxTransactionLog
}

func (t pgxLedgerTx) Accounts() portsrepo.AccountStore { return t.accounts }
func (t pgxLedgerTx) Transactions() portsrepo.TransactionLog { return t.log }

// RunInTx implements portsrepo.UnitOfWork.
func (u *PgxUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	tx, err := u.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		// The caller's context may already be cancelled; the rollback must still reach the server.
		if rbErr := u.Rollback(context.WithoutCancel(ctx), tx); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", slog.String("error", rbErr.Error()))
		}
	}()

	if err := fn(ctx, pgxLedgerTx{accounts: &pgxAccountStore{tx: tx}, log: &pgxTransactionLog{tx: tx}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return u.Commit(ctx, tx)
}
