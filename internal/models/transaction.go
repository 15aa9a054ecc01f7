package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the persisted shape of a transaction log entry.
type Transaction struct {
	Sequence           int64           `db:"sequence" gorm:"column:sequence;primaryKey;autoIncrement"`
	TransactionID      string          `db:"transaction_id" gorm:"column:transaction_id;size:36;uniqueIndex;not null"`
	Kind               string          `db:"kind" gorm:"column:kind;size:16;not null"`
	Amount             decimal.Decimal `db:"amount" gorm:"column:amount;type:decimal(19,4);not null"`
	OccurredAt         time.Time       `db:"occurred_at" gorm:"column:occurred_at;not null"`
	OriginAccount      string          `db:"origin_account" gorm:"column:origin_account;size:34;not null;index"`
	DestinationAccount sql.NullString  `db:"destination_account" gorm:"column:destination_account;size:34;index"`
}

// TableName pins the table name for gorm.
func (Transaction) TableName() string {
	return "transactions"
}
