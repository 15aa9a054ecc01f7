package memory

import (
	"context"
	"fmt"

	"github.com/mar0580/teste-sistema-bancario/internal/apperrors"
	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
	portsrepo "github.com/mar0580/teste-sistema-bancario/internal/core/ports/repositories"
)

type stagedWrite struct {
	baseVersion int64 // committed version the unit first read
	account     domain.Account
}

// unit is the write set of one RunInTx call. It is confined to the goroutine running fn.
type unit struct {
	store    *Store
	created  map[string]domain.Account
	writes   map[string]stagedWrite
	appended []domain.Transaction
}

func newUnit(s *Store) *unit {
	return &unit{
		store:   s,
		created: make(map[string]domain.Account),
		writes:  make(map[string]stagedWrite),
	}
}

func (u *unit) Accounts() portsrepo.AccountStore { return unitAccounts{u} }
func (u *unit) Transactions() portsrepo.TransactionLog { return unitLog{u} }

// view returns the account as this unit currently sees it.
func (u *unit) view(accountNumber string) (domain.Account, bool) {
	if w, ok := u.writes[accountNumber]; ok {
		return w.account, true
	}
	if acc, ok := u.created[accountNumber]; ok {
		return acc, true
	}
	return u.store.committed(accountNumber)
}

type unitAccounts struct{ u *unit }

func (a unitAccounts) GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	acc, ok := a.u.view(accountNumber)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &acc, nil
}

// GetAccountForUpdate has no row lock to take here; exclusive access comes
// from the keyed-lock table when the pessimistic strategy is configured.
func (a unitAccounts) GetAccountForUpdate(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return a.GetAccount(ctx, accountNumber)
}

func (a unitAccounts) CompareAndSwap(ctx context.Context, accountNumber string, expectedVersion int64, next domain.Account) (int64, error) {
	current, ok := a.u.view(accountNumber)
	if !ok {
		return 0, apperrors.ErrNotFound
	}
	if current.Version != expectedVersion {
		return 0, fmt.Errorf("%w: account %s at version %d, expected %d", domain.ErrVersionConflict, accountNumber, current.Version, expectedVersion)
	}
	if next.Balance.IsNegative() {
		return 0, fmt.Errorf("%w: account %s would go negative", domain.ErrInsufficientFunds, accountNumber)
	}

	next.AccountNumber = accountNumber
	next.Version = expectedVersion + 1

	if _, isNew := a.u.created[accountNumber]; isNew {
		a.u.created[accountNumber] = next
		return next.Version, nil
	}
	base := current.Version
	if w, ok := a.u.writes[accountNumber]; ok {
		base = w.baseVersion
	}
	a.u.writes[accountNumber] = stagedWrite{baseVersion: base, account: next}
	return next.Version, nil
}

func (a unitAccounts) CreateAccount(ctx context.Context, account domain.Account) error {
	if _, ok := a.u.view(account.AccountNumber); ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrDuplicate, account.AccountNumber)
	}
	a.u.created[account.AccountNumber] = account
	return nil
}

type unitLog struct{ u *unit }

func (l unitLog) AppendTransaction(ctx context.Context, txn domain.Transaction) error {
	if err := txn.Validate(); err != nil {
		return err
	}
	l.u.appended = append(l.u.appended, txn)
	return nil
}
