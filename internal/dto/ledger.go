package dto

import (
	"time"

	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
	"github.com/shopspring/decimal"
)

// AmountRequest is the body of credit and debit calls.
// Positivity is checked by the ledger, which reports InvalidAmount.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// TransferRequest is the body of a transfer call.
type TransferRequest struct {
	OriginAccountNumber      string          `json:"originAccountNumber" binding:"required,accountnumber"`
	DestinationAccountNumber string          `json:"destinationAccountNumber" binding:"required,accountnumber"`
	Amount                   decimal.Decimal `json:"amount"`
}

// BalanceResponse is returned by credit and debit.
type BalanceResponse struct {
	AccountNumber string          `json:"accountNumber"`
	Balance       decimal.Decimal `json:"balance"`
}

// TransferResponse carries both updated balances.
type TransferResponse struct {
	Origin      BalanceResponse `json:"origin"`
	Destination BalanceResponse `json:"destination"`
}

// ListTransactionsParams defines query parameters for listing an account's history.
type ListTransactionsParams struct {
	Limit     int    `form:"limit,default=20" binding:"min=1,max=100"`
	NextToken string `form:"nextToken"`
}

// TransactionResponse mirrors domain.Transaction.
type TransactionResponse struct {
	TransactionID      string          `json:"transactionID"`
	Kind               string          `json:"kind"`
	Amount             decimal.Decimal `json:"amount"`
	SignedAmount       decimal.Decimal `json:"signedAmount"` // Effect on the listed account
	OccurredAt         time.Time       `json:"occurredAt"`
	OriginAccount      string          `json:"originAccount"`
	DestinationAccount string          `json:"destinationAccount,omitempty"`
}

// ListTransactionsResponse is one page of history.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    string                `json:"nextToken,omitempty"`
}

// ErrorResponse is the body of every failed call.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Hint  string `json:"hint,omitempty"` // What the caller can do next
}

// ToBalanceResponse converts a domain.Account to BalanceResponse
func ToBalanceResponse(acc *domain.Account) BalanceResponse {
	return BalanceResponse{AccountNumber: acc.AccountNumber, Balance: acc.Balance}
}

// ToTransferResponse converts a domain.TransferResult to TransferResponse
func ToTransferResponse(res *domain.TransferResult) TransferResponse {
	return TransferResponse{
		Origin:      ToBalanceResponse(&res.Origin),
		Destination: ToBalanceResponse(&res.Destination),
	}
}

// ToTransactionResponse converts a domain.Transaction to TransactionResponse
func ToTransactionResponse(t domain.Transaction, signedAmount decimal.Decimal) TransactionResponse {
	return TransactionResponse{
		TransactionID:      t.TransactionID,
		Kind:               t.Kind.String(),
		Amount:             t.Amount,
		SignedAmount:       signedAmount,
		OccurredAt:         t.OccurredAt,
		OriginAccount:      t.OriginAccount,
		DestinationAccount: t.DestinationAccount,
	}
}
