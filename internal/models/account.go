package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the persisted shape of a ledger account.
type Account struct {
	AccountNumber string          `db:"account_number" gorm:"column:account_number;primaryKey;size:34"`
	HolderName    string          `db:"holder_name" gorm:"column:holder_name;size:120;not null;index"`
	Balance       decimal.Decimal `db:"balance" gorm:"column:balance;type:decimal(19,4);not null;check:chk_accounts_balance_non_negative,balance >= 0"`
	CreatedAt     time.Time       `db:"created_at" gorm:"column:created_at;not null"`
	UpdatedAt     time.Time       `db:"updated_at" gorm:"column:updated_at;not null"`
	Version       int64           `db:"version" gorm:"column:version;not null;default:0"`
}

// TableName pins the table name for gorm.
func (Account) TableName() string {
	return "accounts"
}
