package mysql

import (
	"context"
	"fmt"

	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
	portsrepo "github.com/mar0580/teste-sistema-bancario/internal/core/ports/repositories"
	"github.com/mar0580/teste-sistema-bancario/internal/models"
	"github.com/mar0580/teste-sistema-bancario/internal/utils/mapping"
	"gorm.io/gorm"
)

// GormTransactionRepository reads the committed transaction log.
type GormTransactionRepository struct {
	db *gorm.DB
}

var _ portsrepo.TransactionReader = (*GormTransactionRepository)(nil)

func (r *GormTransactionRepository) ListTransactionsByAccount(ctx context.Context, accountNumber string, limit int, beforeSequence int64) ([]domain.Transaction, error) {
	q := r.db.WithContext(ctx).
		Where("(origin_account = ? OR destination_account = ?)", accountNumber, accountNumber)
	if beforeSequence > 0 {
		q = q.Where("sequence < ?", beforeSequence)
	}

	var ms []models.Transaction
	if err := q.Order("sequence DESC").Limit(limit).Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("failed to query transactions for account %s: %w", accountNumber, translateGormError(err))
	}
	return mapping.ToDomainTransactionSlice(ms)
}

type gormTransactionLog struct {
	tx *gorm.DB
}

var _ portsrepo.TransactionLog = (*gormTransactionLog)(nil)

func (l *gormTransactionLog) AppendTransaction(ctx context.Context, txn domain.Transaction) error {
	if err := txn.Validate(); err != nil {
		return err
	}
	m := mapping.ToModelTransaction(txn)
	m.Sequence = 0 // assigned by AUTO_INCREMENT
	if err := l.tx.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("failed to append transaction %s: %w", m.TransactionID, translateGormError(err))
	}
	return nil
}
