package pgsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mar0580/teste-sistema-bancario/internal/apperrors"
	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
	portsrepo "github.com/mar0580/teste-sistema-bancario/internal/core/ports/repositories"
	"github.com/mar0580/teste-sistema-bancario/internal/models"
	"github.com/mar0580/teste-sistema-bancario/internal/utils/mapping"
)

const accountColumns = `account_number, holder_name, balance, created_at, updated_at, version`

// PgxAccountRepository serves lock-free account reads straight from the pool.
type PgxAccountRepository struct {
	pool dbPool
}

// newPgxAccountRepository creates a new repository for account data.
func newPgxAccountRepository(pool dbPool) *PgxAccountRepository {
	return &PgxAccountRepository{pool: pool}
}

var _ portsrepo.AccountReader = (*PgxAccountRepository)(nil)

// FindAccountByNumber retrieves a committed account.
func (r *PgxAccountRepository) FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return findAccount(ctx, r.pool, `SELECT `+accountColumns+` FROM accounts WHERE account_number = $1`, accountNumber)
}

// ListAccounts retrieves every account ordered by account number.
func (r *PgxAccountRepository) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return collectAccounts(ctx, r.pool, `SELECT `+accountColumns+` FROM accounts ORDER BY account_number`)
}

// FindAccountsByHolder retrieves the holder's accounts ordered by creation time.
func (r *PgxAccountRepository) FindAccountsByHolder(ctx context.Context, holderName string) ([]domain.Account, error) {
	return collectAccounts(ctx, r.pool,
		`SELECT `+accountColumns+` FROM accounts WHERE holder_name = $1 ORDER BY created_at, account_number`,
		holderName)
}

// pgxAccountStore is the account view bound to one database transaction.
type pgxAccountStore struct {
	tx pgx.Tx
}

var _ portsrepo.AccountStore = (*pgxAccountStore)(nil)

func (s *pgxAccountStore) GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return findAccount(ctx, s.tx, `SELECT `+accountColumns+` FROM accounts WHERE account_number = $1`, accountNumber)
}

// GetAccountForUpdate holds the row lock until the transaction ends.
func (s *pgxAccountStore) GetAccountForUpdate(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return findAccount(ctx, s.tx, `SELECT `+accountColumns+` FROM accounts WHERE account_number = $1 FOR UPDATE`, accountNumber)
}

func (s *pgxAccountStore) CompareAndSwap(ctx context.Context, accountNumber string, expectedVersion int64, next domain.Account) (int64, error) {
	query := `
		UPDATE accounts
		SET balance = $3, updated_at = $4, version = version + 1
		WHERE account_number = $1 AND version = $2;
	`
	tag, err := s.tx.Exec(ctx, query, accountNumber, expectedVersion, next.Balance, next.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to update account %s: %w", accountNumber, translatePgError(err))
	}
	if tag.RowsAffected() == 1 {
		return expectedVersion + 1, nil
	}

	// Nothing matched: either the row is gone or someone bumped the version.
	var exists bool
	if err := s.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE account_number = $1)`, accountNumber).Scan(&exists); err != nil {
		return 0, fmt.Errorf("failed to check account %s: %w", accountNumber, translatePgError(err))
	}
	if !exists {
		return 0, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountNumber)
	}
	return 0, fmt.Errorf("%w: account %s is no longer at version %d", domain.ErrVersionConflict, accountNumber, expectedVersion)
}

func (s *pgxAccountStore) CreateAccount(ctx context.Context, account domain.Account) error {
	m := mapping.ToModelAccount(account)
	query := `
		INSERT INTO accounts (account_number, holder_name, balance, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := s.tx.Exec(ctx, query, m.AccountNumber, m.HolderName, m.Balance, m.CreatedAt, m.UpdatedAt, m.Version)
	if err != nil {
		return fmt.Errorf("failed to save account %s: %w", m.AccountNumber, translatePgError(err))
	}
	return nil
}

func findAccount(ctx context.Context, q querier, query string, args ...any) (*domain.Account, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", translatePgError(err))
	}
	m, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.Account])
	if err != nil {
		return nil, translatePgError(err)
	}
	acc := mapping.ToDomainAccount(m)
	return &acc, nil
}

func collectAccounts(ctx context.Context, q querier, query string, args ...any) ([]domain.Account, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", translatePgError(err))
	}
	ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Account])
	if err != nil {
		return nil, fmt.Errorf("failed to scan accounts: %w", err)
	}
	return mapping.ToDomainAccountSlice(ms), nil
}
