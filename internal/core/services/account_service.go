package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mar0580/teste-sistema-bancario/internal/apperrors"
	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
	portsrepo "github.com/mar0580/teste-sistema-bancario/internal/core/ports/repositories"
	"github.com/mar0580/teste-sistema-bancario/internal/dto"
	"github.com/shopspring/decimal"
)

func (s *ledgerService) CreateAccount(ctx context.Context, req dto.CreateAccountRequest) (*domain.Account, error) {
	now := s.now()
	account, err := domain.NewAccount(req.AccountNumber, req.HolderName, now)
	if err != nil {
		return nil, err
	}
	var initial decimal.Decimal
	if req.InitialBalance != nil && !req.InitialBalance.IsZero() {
		initial = *req.InitialBalance
		if err := domain.ValidateAmount(initial); err != nil {
			return nil, err
		}
	}

	opened := account
	err = s.uow.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		if err := tx.Accounts().CreateAccount(ctx, account); err != nil {
			return err
		}
		if initial.IsZero() {
			return nil
		}
		funded, err := account.Credit(initial, now)
		if err != nil {
			return err
		}
		if funded, err = s.swap(ctx, tx.Accounts(), account.Version, funded); err != nil {
			return err
		}
		if err := tx.Transactions().AppendTransaction(ctx, domain.NewCredit(account.AccountNumber, initial, now)); err != nil {
			return fmt.Errorf("failed to record initial balance: %w", err)
		}
		opened = funded
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			s.LogWarn(ctx, err, "Account number already in use", slog.String("account_number", account.AccountNumber))
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateAccountNumber, account.AccountNumber)
		}
		s.LogError(ctx, err, "Failed to create account", slog.String("account_number", account.AccountNumber))
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.LogInfo(ctx, "Account created",
		slog.String("account_number", opened.AccountNumber),
		slog.String("holder_name", opened.HolderName),
		slog.String("balance", opened.Balance.String()))
	return &opened, nil
}

func (s *ledgerService) GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	acc, err := s.accountRepo.FindAccountByNumber(ctx, accountNumber)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, notFoundAsAccount(err, accountNumber)
		}
		s.LogError(ctx, err, "Failed to find account", slog.String("account_number", accountNumber))
		return nil, fmt.Errorf("failed to find account %s: %w", accountNumber, err)
	}
	return acc, nil
}

func (s *ledgerService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.accountRepo.ListAccounts(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to list accounts")
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (s *ledgerService) AccountByHolder(ctx context.Context, holderName string) (*domain.Account, error) {
	holderName = strings.TrimSpace(holderName)
	if holderName == "" {
		return nil, fmt.Errorf("%w: holder name is required", apperrors.ErrValidation)
	}

	accounts, err := s.accountRepo.FindAccountsByHolder(ctx, holderName)
	if err != nil {
		s.LogError(ctx, err, "Failed to find accounts by holder", slog.String("holder_name", holderName))
		return nil, fmt.Errorf("failed to find accounts for holder: %w", err)
	}

	switch len(accounts) {
	case 0:
		return nil, fmt.Errorf("%w: no account for holder %q", domain.ErrAccountNotFound, holderName)
	case 1:
		return &accounts[0], nil
	default:
		return nil, fmt.Errorf("%w: %q has %d accounts", domain.ErrAmbiguousHolder, holderName, len(accounts))
	}
}

func (s *ledgerService) VerifyOwnership(ctx context.Context, accountNumber string, holderName string) (bool, error) {
	acc, err := s.GetAccount(ctx, accountNumber)
	if err != nil {
		return false, err
	}
	return acc.HolderName == strings.TrimSpace(holderName), nil
}
