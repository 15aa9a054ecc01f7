package mapping

import (
	"database/sql"
	"fmt"

	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
	"github.com/mar0580/teste-sistema-bancario/internal/models"
)

// ToModelTransaction converts a domain Transaction to a model Transaction
func ToModelTransaction(d domain.Transaction) models.Transaction {
	m := models.Transaction{
		Sequence:      d.Sequence,
		TransactionID: d.TransactionID,
		Kind:          d.Kind.String(),
		Amount:        d.Amount,
		OccurredAt:    d.OccurredAt,
		OriginAccount: d.OriginAccount,
	}
	if d.DestinationAccount != "" {
		m.DestinationAccount = sql.NullString{String: d.DestinationAccount, Valid: true}
	}
	return m
}

// ToDomainTransaction converts a model Transaction to a domain Transaction
func ToDomainTransaction(m models.Transaction) (domain.Transaction, error) {
	kind, err := domain.ParseTransactionKind(m.Kind)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: %w", m.TransactionID, err)
	}
	return domain.Transaction{
		TransactionID:      m.TransactionID,
		Sequence:           m.Sequence,
		Kind:               kind,
		Amount:             m.Amount,
		OccurredAt:         m.OccurredAt,
		OriginAccount:      m.OriginAccount,
		DestinationAccount: m.DestinationAccount.String,
	}, nil
}

// ToDomainTransactionSlice converts a slice of model Transactions
func ToDomainTransactionSlice(ms []models.Transaction) ([]domain.Transaction, error) {
	ds := make([]domain.Transaction, 0, len(ms))
	for _, m := range ms {
		d, err := ToDomainTransaction(m)
		if err != nil {
			return nil, err
		}
		ds = append(ds, d)
	}
	return ds, nil
}
