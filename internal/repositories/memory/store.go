package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mar0580/teste-sistema-bancario/internal/apperrors"
	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
	portsrepo "github.com/mar0580/teste-sistema-bancario/internal/core/ports/repositories"
)

// Store keeps accounts and the transaction log in process memory.
// Units of work stage their writes and apply them in one short critical
// section after re-checking every version they read.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]domain.Account
	transactions []domain.Transaction
	lastSequence int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]domain.Account),
	}
}

// Ensure Store implements the repository ports
var (
	_ portsrepo.AccountReader     = (*Store)(nil)
	_ portsrepo.TransactionReader = (*Store)(nil)
	_ portsrepo.UnitOfWork        = (*Store)(nil)
)

// FindAccountByNumber retrieves a committed account.
func (s *Store) FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[accountNumber]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &acc, nil
}

// ListAccounts returns a snapshot ordered by account number.
func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	accounts := make([]domain.Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		accounts = append(accounts, acc)
	}
	s.mu.RUnlock()

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].AccountNumber < accounts[j].AccountNumber
	})
	return accounts, nil
}

// FindAccountsByHolder returns the holder's accounts ordered by creation time.
func (s *Store) FindAccountsByHolder(ctx context.Context, holderName string) ([]domain.Account, error) {
	s.mu.RLock()
	var accounts []domain.Account
	for _, acc := range s.accounts {
		if acc.HolderName == holderName {
			accounts = append(accounts, acc)
		}
	}
	s.mu.RUnlock()

	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].AccountNumber < accounts[j].AccountNumber
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

// ListTransactionsByAccount returns the account's entries newest first.
func (s *Store) ListTransactionsByAccount(ctx context.Context, accountNumber string, limit int, beforeSequence int64) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, 0, limit)
	for i := len(s.transactions) - 1; i >= 0 && len(result) < limit; i-- {
		txn := s.transactions[i]
		if beforeSequence > 0 && txn.Sequence >= beforeSequence {
			continue
		}
		if txn.Involves(accountNumber) {
			result = append(result, txn)
		}
	}
	return result, nil
}

// RunInTx stages fn's writes and commits them atomically.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := newUnit(s)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return s.commit(ctx, tx)
}

// commit re-validates the unit against committed state and applies it.
// Nothing is applied unless every check passes.
func (s *Store) commit(ctx context.Context, u *unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	for number := range u.created {
		if _, exists := s.accounts[number]; exists {
			return fmt.Errorf("%w: account %s", apperrors.ErrDuplicate, number)
		}
	}
	for number, w := range u.writes {
		if _, isNew := u.created[number]; isNew {
			continue
		}
		current, ok := s.accounts[number]
		if !ok {
			return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, number)
		}
		if current.Version != w.baseVersion {
			return fmt.Errorf("%w: account %s at version %d, unit read %d", domain.ErrVersionConflict, number, current.Version, w.baseVersion)
		}
	}

	for number, acc := range u.created {
		s.accounts[number] = acc
	}
	for number, w := range u.writes {
		s.accounts[number] = w.account
	}
	for _, txn := range u.appended {
		s.lastSequence++
		txn.Sequence = s.lastSequence
		s.transactions = append(s.transactions, txn)
	}
	return nil
}

// committed reads one account under the read lock.
func (s *Store) committed(accountNumber string) (domain.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[accountNumber]
	return acc, ok
}
