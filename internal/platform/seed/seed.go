// Package seed provisions accounts from a YAML file at boot.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mar0580/teste-sistema-bancario/internal/apperrors"
	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
	portssvc "github.com/mar0580/teste-sistema-bancario/internal/core/ports/services"
	"github.com/mar0580/teste-sistema-bancario/internal/dto"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// File is the on-disk seed layout:
//
//	accounts:
//	  - accountNumber: "0001-1"
//	    holderName: Maria Silva
//	    initialBalance: "150.00"
type File struct {
	Accounts []Account `yaml:"accounts"`
}

// Account is one account to provision. InitialBalance is optional; it is
// booked as a CREDIT together with the account, so both land or neither does.
type Account struct {
	AccountNumber  string `yaml:"accountNumber"`
	HolderName     string `yaml:"holderName"`
	InitialBalance string `yaml:"initialBalance"`
}

// Result summarizes an Apply run.
type Result struct {
	Created int
	Skipped int
}

// Load reads and parses a seed file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes seed YAML and validates balances.
func Parse(raw []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: invalid seed yaml: %v", apperrors.ErrValidation, err)
	}
	for i, acc := range f.Accounts {
		if acc.InitialBalance == "" {
			continue
		}
		amount, err := decimal.NewFromString(acc.InitialBalance)
		if err == nil && !amount.IsZero() {
			err = domain.ValidateAmount(amount)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: accounts[%d] has invalid initialBalance %q", apperrors.ErrValidation, i, acc.InitialBalance)
		}
	}
	return &f, nil
}

// Apply creates every account that does not exist yet. Existing account
// numbers are skipped, so running the same file twice is harmless.
func Apply(ctx context.Context, ledger portssvc.LedgerSvcFacade, f *File, logger *slog.Logger) (Result, error) {
	var res Result
	for _, acc := range f.Accounts {
		req := dto.CreateAccountRequest{
			AccountNumber: acc.AccountNumber,
			HolderName:    acc.HolderName,
		}
		if acc.InitialBalance != "" {
			amount := decimal.RequireFromString(acc.InitialBalance)
			req.InitialBalance = &amount
		}

		_, err := ledger.CreateAccount(ctx, req)
		if errors.Is(err, apperrors.ErrDuplicate) {
			logger.Info("Seed account already exists, skipping", slog.String("account_number", acc.AccountNumber))
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("seed account %s: %w", acc.AccountNumber, err)
		}
		res.Created++
	}

	logger.Info("Seed applied", slog.Int("created", res.Created), slog.Int("skipped", res.Skipped))
	return res, nil
}
