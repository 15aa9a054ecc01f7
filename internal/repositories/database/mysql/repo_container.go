// Package mysql implements the ledger stores on MySQL through gorm.
package mysql

import (
	"context"
	"fmt"

	portsrepo "github.com/mar0580/teste-sistema-bancario/internal/core/ports/repositories"
	"github.com/mar0580/teste-sistema-bancario/internal/models"
	"gorm.io/gorm"
)

// NewRepositoryProvider wires the MySQL-backed ledger stores.
func NewRepositoryProvider(db *gorm.DB) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo:     &GormAccountRepository{db: db},
		TransactionRepo: &GormTransactionRepository{db: db},
		UnitOfWork:      &GormUnitOfWork{db: db},
	}
}

// AutoMigrate creates or updates the ledger tables.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&models.Account{}, &models.Transaction{}); err != nil {
		return fmt.Errorf("failed to migrate ledger tables: %w", err)
	}
	return nil
}
