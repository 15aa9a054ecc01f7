package accounting

import (
	"fmt"

	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SignedAmount returns the effect txn had on the given account's balance:
// positive for money in, negative for money out.
func SignedAmount(txn domain.Transaction, accountNumber string) (decimal.Decimal, error) {
	if !txn.Involves(accountNumber) {
		return decimal.Zero, fmt.Errorf("transaction %s does not involve account %s", txn.TransactionID, accountNumber)
	}
	switch txn.Kind {
	case domain.KindCredit:
		return txn.Amount, nil
	case domain.KindDebit:
		return txn.Amount.Neg(), nil
	case domain.KindTransfer:
		if txn.OriginAccount == accountNumber {
			return txn.Amount.Neg(), nil
		}
		return txn.Amount, nil
	default:
		panic(fmt.Sprintf("accounting: unhandled transaction kind %s", txn.Kind))
	}
}

// NetChange sums the signed effect of every transaction on the account.
func NetChange(transactions []domain.Transaction, accountNumber string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, txn := range transactions {
		signed, err := SignedAmount(txn, accountNumber)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(signed)
	}
	return total, nil
}

// TotalBalance sums the balances of the given accounts.
func TotalBalance(accounts []domain.Account) decimal.Decimal {
	total := decimal.Zero
	for _, acc := range accounts {
		total = total.Add(acc.Balance)
	}
	return total
}
