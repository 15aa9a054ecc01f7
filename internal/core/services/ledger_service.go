package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mar0580/teste-sistema-bancario/internal/apperrors"
	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
	portsrepo "github.com/mar0580/teste-sistema-bancario/internal/core/ports/repositories"
	portssvc "github.com/mar0580/teste-sistema-bancario/internal/core/ports/services"
	"github.com/mar0580/teste-sistema-bancario/internal/dto"
	"github.com/mar0580/teste-sistema-bancario/internal/platform/locker"
	"github.com/mar0580/teste-sistema-bancario/internal/utils/accounting"
	"github.com/mar0580/teste-sistema-bancario/internal/utils/pagination"
	"github.com/shopspring/decimal"
)

// LockStrategy selects how concurrent mutations of one account are serialized.
type LockStrategy string

const (
	// LockOptimistic reads without locks and relies on compare-and-swap plus retry.
	LockOptimistic LockStrategy = "optimistic"
	// LockPessimistic takes the accounts' keyed locks before reading them.
	LockPessimistic LockStrategy = "pessimistic"
)

// ParseLockStrategy validates a configured strategy name.
func ParseLockStrategy(s string) (LockStrategy, error) {
	switch LockStrategy(s) {
	case LockOptimistic, LockPessimistic:
		return LockStrategy(s), nil
	default:
		return "", fmt.Errorf("%w: unknown lock strategy %q", apperrors.ErrValidation, s)
	}
}

const defaultHistoryLimit = 20

// ledgerService implements the LedgerSvcFacade interface
type ledgerService struct {
	BaseService
	uow         portsrepo.UnitOfWork
	accountRepo portsrepo.AccountReader
	txnRepo     portsrepo.TransactionReader
	coordinator *ConflictCoordinator
	locker      locker.Locker
	strategy    LockStrategy
	now         func() time.Time
}

// LedgerOption is a functional option for configuring the ledger service
type LedgerOption func(*ledgerService)

// WithConflictCoordinator replaces the default retry policy.
func WithConflictCoordinator(c *ConflictCoordinator) LedgerOption {
	return func(s *ledgerService) {
		s.coordinator = c
	}
}

// WithPessimisticLocking makes every mutation hold the accounts' keyed locks.
// A nil locker falls back to an in-process lock table.
func WithPessimisticLocking(l locker.Locker) LedgerOption {
	return func(s *ledgerService) {
		if l == nil {
			l = locker.NewKeyedMutex()
		}
		s.strategy = LockPessimistic
		s.locker = l
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) LedgerOption {
	return func(s *ledgerService) {
		s.now = now
	}
}

// NewLedgerService creates the ledger engine over the given repositories.
func NewLedgerService(repos portsrepo.RepositoryProvider, options ...LedgerOption) portssvc.LedgerSvcFacade {
	svc := &ledgerService{
		uow:         repos.UnitOfWork,
		accountRepo: repos.AccountRepo,
		txnRepo:     repos.TransactionRepo,
		coordinator: NewConflictCoordinator(3, 5*time.Millisecond),
		strategy:    LockOptimistic,
		now:         func() time.Time { return time.Now().UTC() },
	}

	for _, option := range options {
		option(svc)
	}

	return svc
}

// Ensure ledgerService implements the LedgerSvcFacade interface
var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

func (s *ledgerService) Credit(ctx context.Context, accountNumber string, amount decimal.Decimal) (*domain.Account, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	var updated domain.Account
	err := s.mutate(ctx, "credit", []string{accountNumber}, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		now := s.now()
		acc, err := s.load(ctx, tx.Accounts(), accountNumber)
		if err != nil {
			return err
		}
		next, err := acc.Credit(amount, now)
		if err != nil {
			return err
		}
		if next, err = s.swap(ctx, tx.Accounts(), acc.Version, next); err != nil {
			return err
		}
		if err := tx.Transactions().AppendTransaction(ctx, domain.NewCredit(accountNumber, amount, now)); err != nil {
			return fmt.Errorf("failed to record credit: %w", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		s.logFailure(ctx, err, "Credit failed", slog.String("account_number", accountNumber), slog.String("amount", amount.String()))
		return nil, err
	}

	s.LogInfo(ctx, "Account credited",
		slog.String("account_number", accountNumber),
		slog.String("amount", amount.String()),
		slog.String("balance", updated.Balance.String()))
	return &updated, nil
}

func (s *ledgerService) Debit(ctx context.Context, accountNumber string, amount decimal.Decimal) (*domain.Account, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	var updated domain.Account
	err := s.mutate(ctx, "debit", []string{accountNumber}, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		now := s.now()
		acc, err := s.load(ctx, tx.Accounts(), accountNumber)
		if err != nil {
			return err
		}
		next, err := acc.Debit(amount, now)
		if err != nil {
			return err
		}
		if next, err = s.swap(ctx, tx.Accounts(), acc.Version, next); err != nil {
			return err
		}
		if err := tx.Transactions().AppendTransaction(ctx, domain.NewDebit(accountNumber, amount, now)); err != nil {
			return fmt.Errorf("failed to record debit: %w", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		s.logFailure(ctx, err, "Debit failed", slog.String("account_number", accountNumber), slog.String("amount", amount.String()))
		return nil, err
	}

	s.LogInfo(ctx, "Account debited",
		slog.String("account_number", accountNumber),
		slog.String("amount", amount.String()),
		slog.String("balance", updated.Balance.String()))
	return &updated, nil
}

func (s *ledgerService) Transfer(ctx context.Context, originAccount string, destinationAccount string, amount decimal.Decimal) (*domain.TransferResult, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if originAccount == destinationAccount {
		return nil, domain.ErrSameAccountTransfer
	}

	order := domain.LockOrder(originAccount, destinationAccount)
	var result domain.TransferResult
	err := s.mutate(ctx, "transfer", order, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		now := s.now()
		store := tx.Accounts()

		read := make(map[string]*domain.Account, len(order))
		for _, number := range order {
			acc, err := s.load(ctx, store, number)
			if err != nil {
				return err
			}
			read[number] = acc
		}

		origin, err := read[originAccount].Debit(amount, now)
		if err != nil {
			return err
		}
		destination, err := read[destinationAccount].Credit(amount, now)
		if err != nil {
			return err
		}

		next := map[string]domain.Account{originAccount: origin, destinationAccount: destination}
		for _, number := range order {
			swapped, err := s.swap(ctx, store, read[number].Version, next[number])
			if err != nil {
				return err
			}
			next[number] = swapped
		}

		if err := tx.Transactions().AppendTransaction(ctx, domain.NewTransfer(originAccount, destinationAccount, amount, now)); err != nil {
			return fmt.Errorf("failed to record transfer: %w", err)
		}
		result = domain.TransferResult{Origin: next[originAccount], Destination: next[destinationAccount]}
		return nil
	})
	if err != nil {
		s.logFailure(ctx, err, "Transfer failed",
			slog.String("origin_account", originAccount),
			slog.String("destination_account", destinationAccount),
			slog.String("amount", amount.String()))
		return nil, err
	}

	s.LogInfo(ctx, "Transfer completed",
		slog.String("origin_account", originAccount),
		slog.String("destination_account", destinationAccount),
		slog.String("amount", amount.String()))
	return &result, nil
}

func (s *ledgerService) ListTransactions(ctx context.Context, accountNumber string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error) {
	if _, err := s.GetAccount(ctx, accountNumber); err != nil {
		return nil, err
	}

	before, err := pagination.DecodeSequenceToken(params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	txns, err := s.txnRepo.ListTransactionsByAccount(ctx, accountNumber, limit, before)
	if err != nil {
		s.LogError(ctx, err, "Failed to list transactions", slog.String("account_number", accountNumber))
		return nil, fmt.Errorf("failed to retrieve transactions: %w", err)
	}

	resp := &dto.ListTransactionsResponse{Transactions: make([]dto.TransactionResponse, 0, len(txns))}
	for _, txn := range txns {
		signed, err := accounting.SignedAmount(txn, accountNumber)
		if err != nil {
			return nil, err
		}
		resp.Transactions = append(resp.Transactions, dto.ToTransactionResponse(txn, signed))
	}
	if len(txns) == limit {
		resp.NextToken = pagination.EncodeSequenceToken(txns[len(txns)-1].Sequence)
	}
	return resp, nil
}

// mutate runs apply as one atomic unit under the configured lock strategy,
// re-running it on version conflicts.
func (s *ledgerService) mutate(ctx context.Context, operation string, keys []string, apply func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	return s.coordinator.Execute(ctx, operation, func(ctx context.Context) error {
		if s.strategy == LockPessimistic {
			release, err := s.locker.Acquire(ctx, keys...)
			if err != nil {
				if errors.Is(err, locker.ErrNotAcquired) {
					return fmt.Errorf("%w: %v", domain.ErrVersionConflict, err)
				}
				return err
			}
			defer release()
		}
		return s.uow.RunInTx(ctx, apply)
	})
}

// load reads an account for mutation, holding its row lock when the strategy asks for one.
func (s *ledgerService) load(ctx context.Context, store portsrepo.AccountStore, accountNumber string) (*domain.Account, error) {
	var (
		acc *domain.Account
		err error
	)
	if s.strategy == LockPessimistic {
		acc, err = store.GetAccountForUpdate(ctx, accountNumber)
	} else {
		acc, err = store.GetAccount(ctx, accountNumber)
	}
	if err != nil {
		return nil, notFoundAsAccount(err, accountNumber)
	}
	return acc, nil
}

func (s *ledgerService) swap(ctx context.Context, store portsrepo.AccountStore, expectedVersion int64, next domain.Account) (domain.Account, error) {
	version, err := store.CompareAndSwap(ctx, next.AccountNumber, expectedVersion, next)
	if err != nil {
		return domain.Account{}, notFoundAsAccount(err, next.AccountNumber)
	}
	next.Version = version
	return next, nil
}

// logFailure logs expected rejections at warn level and everything else as an error.
func (s *ledgerService) logFailure(ctx context.Context, err error, msg string, keyvals ...any) {
	switch {
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrBusinessRule),
		errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		s.LogWarn(ctx, err, msg, keyvals...)
	default:
		s.LogError(ctx, err, msg, keyvals...)
	}
}

func notFoundAsAccount(err error, accountNumber string) error {
	if errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, domain.ErrAccountNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountNumber)
	}
	return err
}
