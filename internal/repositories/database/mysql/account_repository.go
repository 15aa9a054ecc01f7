package mysql

import (
	"context"
	"fmt"

	"github.com/mar0580/teste-sistema-bancario/internal/apperrors"
	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
	portsrepo "github.com/mar0580/teste-sistema-bancario/internal/core/ports/repositories"
	"github.com/mar0580/teste-sistema-bancario/internal/models"
	"github.com/mar0580/teste-sistema-bancario/internal/utils/mapping"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAccountRepository serves lock-free account reads.
type GormAccountRepository struct {
	db *gorm.DB
}

var _ portsrepo.AccountReader = (*GormAccountRepository)(nil)

func (r *GormAccountRepository) FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return firstAccount(r.db.WithContext(ctx), accountNumber)
}

func (r *GormAccountRepository) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	var ms []models.Account
	if err := r.db.WithContext(ctx).Order("account_number").Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", translateGormError(err))
	}
	return mapping.ToDomainAccountSlice(ms), nil
}

func (r *GormAccountRepository) FindAccountsByHolder(ctx context.Context, holderName string) ([]domain.Account, error) {
	var ms []models.Account
	err := r.db.WithContext(ctx).
		Where("holder_name = ?", holderName).
		Order("created_at").Order("account_number").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find accounts by holder: %w", translateGormError(err))
	}
	return mapping.ToDomainAccountSlice(ms), nil
}

// gormAccountStore is the account view bound to one gorm transaction.
type gormAccountStore struct {
	tx *gorm.DB
}

var _ portsrepo.AccountStore = (*gormAccountStore)(nil)

func (s *gormAccountStore) GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return firstAccount(s.tx.WithContext(ctx), accountNumber)
}

// GetAccountForUpdate issues SELECT ... FOR UPDATE; the row lock is held until the transaction ends.
func (s *gormAccountStore) GetAccountForUpdate(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return firstAccount(s.tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), accountNumber)
}

func (s *gormAccountStore) CompareAndSwap(ctx context.Context, accountNumber string, expectedVersion int64, next domain.Account) (int64, error) {
	res := s.tx.WithContext(ctx).
		Model(&models.Account{}).
		Where("account_number = ? AND version = ?", accountNumber, expectedVersion).
		Updates(map[string]any{
			"balance":    next.Balance,
			"updated_at": next.UpdatedAt,
			"version":    gorm.Expr("version + ?", 1),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update account %s: %w", accountNumber, translateGormError(res.Error))
	}
	if res.RowsAffected == 1 {
		return expectedVersion + 1, nil
	}

	var count int64
	if err := s.tx.WithContext(ctx).Model(&models.Account{}).Where("account_number = ?", accountNumber).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to check account %s: %w", accountNumber, translateGormError(err))
	}
	if count == 0 {
		return 0, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountNumber)
	}
	return 0, fmt.Errorf("%w: account %s is no longer at version %d", domain.ErrVersionConflict, accountNumber, expectedVersion)
}

func (s *gormAccountStore) CreateAccount(ctx context.Context, account domain.Account) error {
	m := mapping.ToModelAccount(account)
	if err := s.tx.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("failed to save account %s: %w", m.AccountNumber, translateGormError(err))
	}
	return nil
}

func firstAccount(db *gorm.DB, accountNumber string) (*domain.Account, error) {
	var m models.Account
	if err := db.Where("account_number = ?", accountNumber).First(&m).Error; err != nil {
		return nil, translateGormError(err)
	}
	acc := mapping.ToDomainAccount(m)
	return &acc, nil
}
