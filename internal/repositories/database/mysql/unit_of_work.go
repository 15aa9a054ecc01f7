package mysql

import (
	"context"

	portsrepo "github.com/mar0580/teste-sistema-bancario/internal/core/ports/repositories"
	"gorm.io/gorm"
)

// GormUnitOfWork maps one ledger unit onto one gorm transaction.
type GormUnitOfWork struct {
	db *gorm.DB
}

var _ portsrepo.UnitOfWork = (*GormUnitOfWork)(nil)

type gormLedgerTx struct {
	accounts *gormAccountStore
	log      *gormTransactionLog
}

func (t gormLedgerTx) Accounts() portsrepo.AccountStore { return t.accounts }
func (t gormLedgerTx) Transactions() portsrepo.TransactionLog { return t.log }

// RunInTx commits only when fn succeeds and ctx is still live.
func (u *GormUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(ctx, gormLedgerTx{accounts: &gormAccountStore{tx: tx}, log: &gormTransactionLog{tx: tx}}); err != nil {
			return err
		}
		return ctx.Err()
	})
	return translateGormError(err)
}
