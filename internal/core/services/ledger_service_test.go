package services_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/mar0580/teste-sistema-bancario/internal/apperrors"
	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
	portsrepo "github.com/mar0580/teste-sistema-bancario/internal/core/ports/repositories"
	portssvc "github.com/mar0580/teste-sistema-bancario/internal/core/ports/services"
	"github.com/mar0580/teste-sistema-bancario/internal/core/services"
	"github.com/mar0580/teste-sistema-bancario/internal/dto"
	"github.com/mar0580/teste-sistema-bancario/internal/platform/locker"
	"github.com/mar0580/teste-sistema-bancario/internal/repositories/memory"
	"github.com/mar0580/teste-sistema-bancario/internal/utils/accounting"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

var errInjected = errors.New("injected store fault")

// faultyUnitOfWork fails every compare-and-swap on one account number.
type faultyUnitOfWork struct {
	inner  portsrepo.UnitOfWork
	failOn string
}

func (f *faultyUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	return f.inner.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		return fn(ctx, faultyTx{LedgerTx: tx, failOn: f.failOn})
	})
}

type faultyTx struct {
	portsrepo.LedgerTx
	failOn string
}

func (t faultyTx) Accounts() portsrepo.AccountStore {
	return faultyAccounts{AccountStore: t.LedgerTx.Accounts(), failOn: t.failOn}
}

type faultyAccounts struct {
	portsrepo.AccountStore
	failOn string
}

func (a faultyAccounts) CompareAndSwap(ctx context.Context, accountNumber string, expectedVersion int64, next domain.Account) (int64, error) {
	if accountNumber == a.failOn {
		return 0, errInjected
	}
	return a.AccountStore.CompareAndSwap(ctx, accountNumber, expectedVersion, next)
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// LedgerServiceTestSuite exercises the engine against the memory store
// under one lock strategy.
type LedgerServiceTestSuite struct {
	suite.Suite
	strategy services.LockStrategy
	ctx      context.Context
	store    *memory.Store
	service  portssvc.LedgerSvcFacade
	now      time.Time
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = memory.NewStore()
	suite.now = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)
	suite.service = suite.newService(suite.repos())
}

func (suite *LedgerServiceTestSuite) repos() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo:     suite.store,
		TransactionRepo: suite.store,
		UnitOfWork:      suite.store,
	}
}

func (suite *LedgerServiceTestSuite) newService(repos portsrepo.RepositoryProvider) portssvc.LedgerSvcFacade {
	opts := []services.LedgerOption{
		// Generous budget so that contention tests rarely exhaust it.
		services.WithConflictCoordinator(services.NewConflictCoordinator(50, 100*time.Microsecond)),
		services.WithClock(func() time.Time { return suite.now }),
	}
	if suite.strategy == services.LockPessimistic {
		opts = append(opts, services.WithPessimisticLocking(locker.NewKeyedMutex()))
	}
	return services.NewLedgerService(repos, opts...)
}

func (suite *LedgerServiceTestSuite) open(number, holder string, initial int64) {
	_, err := suite.service.CreateAccount(suite.ctx, dto.CreateAccountRequest{AccountNumber: number, HolderName: holder})
	suite.Require().NoError(err)
	if initial > 0 {
		_, err = suite.service.Credit(suite.ctx, number, d(initial))
		suite.Require().NoError(err)
	}
}

func (suite *LedgerServiceTestSuite) balance(number string) decimal.Decimal {
	acc, err := suite.service.GetAccount(suite.ctx, number)
	suite.Require().NoError(err)
	return acc.Balance
}

func (suite *LedgerServiceTestSuite) history(number string) []domain.Transaction {
	txns, err := suite.store.ListTransactionsByAccount(suite.ctx, number, 100000, 0)
	suite.Require().NoError(err)
	return txns
}

func (suite *LedgerServiceTestSuite) assertBalance(number string, want int64) {
	got := suite.balance(number)
	suite.True(d(want).Equal(got), "account %s: want %d, got %s", number, want, got)
}

// assertBalanceMatchesLog checks that the balance is exactly the net effect of the log.
func (suite *LedgerServiceTestSuite) assertBalanceMatchesLog(number string) {
	net, err := accounting.NetChange(suite.history(number), number)
	suite.Require().NoError(err)
	suite.True(net.Equal(suite.balance(number)), "account %s: balance %s, log says %s", number, suite.balance(number), net)
}

// --- Account operations ---

func (suite *LedgerServiceTestSuite) TestCreateAccount() {
	acc, err := suite.service.CreateAccount(suite.ctx, dto.CreateAccountRequest{AccountNumber: "0001-1", HolderName: "  Maria Silva "})
	suite.Require().NoError(err)
	suite.Equal("0001-1", acc.AccountNumber)
	suite.Equal("Maria Silva", acc.HolderName)
	suite.True(acc.Balance.IsZero())
	suite.Equal(suite.now, acc.CreatedAt)

	_, err = suite.service.CreateAccount(suite.ctx, dto.CreateAccountRequest{AccountNumber: "0001-1", HolderName: "Other"})
	suite.ErrorIs(err, domain.ErrDuplicateAccountNumber)
	suite.ErrorIs(err, apperrors.ErrDuplicate)

	_, err = suite.service.CreateAccount(suite.ctx, dto.CreateAccountRequest{AccountNumber: "bad number!", HolderName: "X"})
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *LedgerServiceTestSuite) TestCreateAccount_InitialBalance() {
	initial := decimal.RequireFromString("150.50")
	acc, err := suite.service.CreateAccount(suite.ctx, dto.CreateAccountRequest{
		AccountNumber:  "0001-1",
		HolderName:     "Maria Silva",
		InitialBalance: &initial,
	})
	suite.Require().NoError(err)
	suite.True(initial.Equal(acc.Balance))
	suite.Equal(int64(1), acc.Version)

	txns := suite.history("0001-1")
	suite.Require().Len(txns, 1)
	suite.Equal(domain.KindCredit, txns[0].Kind)
	suite.True(initial.Equal(txns[0].Amount))
	suite.assertBalanceMatchesLog("0001-1")
}

func (suite *LedgerServiceTestSuite) TestCreateAccount_InvalidInitialBalance() {
	for _, raw := range []string{"-1", "0.00005"} {
		amount := decimal.RequireFromString(raw)
		_, err := suite.service.CreateAccount(suite.ctx, dto.CreateAccountRequest{
			AccountNumber:  "0001-1",
			HolderName:     "Maria Silva",
			InitialBalance: &amount,
		})
		suite.ErrorIs(err, domain.ErrInvalidAmount, raw)
	}

	_, err := suite.service.GetAccount(suite.ctx, "0001-1")
	suite.ErrorIs(err, domain.ErrAccountNotFound)
}

func (suite *LedgerServiceTestSuite) TestGetAccount_NotFound() {
	_, err := suite.service.GetAccount(suite.ctx, "nope")
	suite.ErrorIs(err, domain.ErrAccountNotFound)
}

func (suite *LedgerServiceTestSuite) TestListAccounts_Idempotent() {
	suite.open("B", "Bia", 10)
	suite.open("A", "Ana", 5)

	first, err := suite.service.ListAccounts(suite.ctx)
	suite.Require().NoError(err)
	second, err := suite.service.ListAccounts(suite.ctx)
	suite.Require().NoError(err)

	suite.Equal(first, second)
	suite.Require().Len(first, 2)
	suite.Equal("A", first[0].AccountNumber)
}

func (suite *LedgerServiceTestSuite) TestAccountByHolder() {
	suite.open("A", "Ana", 0)
	suite.open("B", "Bruno", 0)
	suite.open("C", "Bruno", 0)

	acc, err := suite.service.AccountByHolder(suite.ctx, "Ana")
	suite.Require().NoError(err)
	suite.Equal("A", acc.AccountNumber)

	_, err = suite.service.AccountByHolder(suite.ctx, "Bruno")
	suite.ErrorIs(err, domain.ErrAmbiguousHolder)

	_, err = suite.service.AccountByHolder(suite.ctx, "Nobody")
	suite.ErrorIs(err, domain.ErrAccountNotFound)

	_, err = suite.service.AccountByHolder(suite.ctx, "  ")
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *LedgerServiceTestSuite) TestVerifyOwnership() {
	suite.open("A", "Ana", 0)

	owned, err := suite.service.VerifyOwnership(suite.ctx, "A", "Ana")
	suite.Require().NoError(err)
	suite.True(owned)

	owned, err = suite.service.VerifyOwnership(suite.ctx, "A", "Bruno")
	suite.Require().NoError(err)
	suite.False(owned)

	_, err = suite.service.VerifyOwnership(suite.ctx, "Z", "Ana")
	suite.ErrorIs(err, domain.ErrAccountNotFound)
}

// --- Ledger operations ---

func (suite *LedgerServiceTestSuite) TestCredit() {
	suite.open("A", "Ana", 0)

	acc, err := suite.service.Credit(suite.ctx, "A", decimal.RequireFromString("10.25"))
	suite.Require().NoError(err)
	suite.True(decimal.RequireFromString("10.25").Equal(acc.Balance))
	suite.Equal(int64(1), acc.Version)

	txns := suite.history("A")
	suite.Require().Len(txns, 1)
	suite.Equal(domain.KindCredit, txns[0].Kind)
	suite.Equal(suite.now, txns[0].OccurredAt)
}

func (suite *LedgerServiceTestSuite) TestInvalidAmounts() {
	suite.open("A", "Ana", 10)
	suite.open("B", "Bia", 0)

	for _, amount := range []decimal.Decimal{decimal.Zero, d(-5)} {
		_, err := suite.service.Credit(suite.ctx, "A", amount)
		suite.ErrorIs(err, domain.ErrInvalidAmount)
		_, err = suite.service.Debit(suite.ctx, "A", amount)
		suite.ErrorIs(err, domain.ErrInvalidAmount)
		_, err = suite.service.Transfer(suite.ctx, "A", "B", amount)
		suite.ErrorIs(err, domain.ErrInvalidAmount)
	}

	suite.assertBalance("A", 10)
	suite.Len(suite.history("A"), 1)
}

func (suite *LedgerServiceTestSuite) TestAmountsFinerThanStorageScale() {
	suite.open("A", "Ana", 1)
	suite.open("B", "Bia", 0)

	tiny := decimal.RequireFromString("0.00005")
	_, err := suite.service.Transfer(suite.ctx, "A", "B", tiny)
	suite.ErrorIs(err, domain.ErrInvalidAmount)
	_, err = suite.service.Debit(suite.ctx, "A", tiny)
	suite.ErrorIs(err, domain.ErrInvalidAmount)
	_, err = suite.service.Credit(suite.ctx, "B", tiny)
	suite.ErrorIs(err, domain.ErrInvalidAmount)

	suite.assertBalance("A", 1)
	suite.assertBalance("B", 0)
	suite.Len(suite.history("A"), 1)
	suite.Empty(suite.history("B"))

	smallest := decimal.New(1, -domain.AmountScale)
	_, err = suite.service.Transfer(suite.ctx, "A", "B", smallest)
	suite.Require().NoError(err)
	suite.True(suite.balance("A").Add(suite.balance("B")).Equal(d(1)))
}

func (suite *LedgerServiceTestSuite) TestUnknownAccount() {
	suite.open("A", "Ana", 10)

	_, err := suite.service.Credit(suite.ctx, "Z", d(1))
	suite.ErrorIs(err, domain.ErrAccountNotFound)
	_, err = suite.service.Debit(suite.ctx, "Z", d(1))
	suite.ErrorIs(err, domain.ErrAccountNotFound)
	_, err = suite.service.Transfer(suite.ctx, "A", "Z", d(1))
	suite.ErrorIs(err, domain.ErrAccountNotFound)
	_, err = suite.service.Transfer(suite.ctx, "Z", "A", d(1))
	suite.ErrorIs(err, domain.ErrAccountNotFound)

	suite.assertBalance("A", 10)
}

func (suite *LedgerServiceTestSuite) TestTransfer_SameAccount() {
	suite.open("A", "Ana", 10)

	_, err := suite.service.Transfer(suite.ctx, "A", "A", d(1))
	suite.ErrorIs(err, domain.ErrSameAccountTransfer)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *LedgerServiceTestSuite) TestScenario_OverdraftRejected() {
	suite.open("A", "Ana", 0)

	_, err := suite.service.Credit(suite.ctx, "A", d(100))
	suite.Require().NoError(err)

	_, err = suite.service.Debit(suite.ctx, "A", d(150))
	suite.ErrorIs(err, domain.ErrInsufficientFunds)
	suite.ErrorIs(err, apperrors.ErrBusinessRule)

	suite.assertBalance("A", 100)
	suite.Len(suite.history("A"), 1)
}

func (suite *LedgerServiceTestSuite) TestScenario_Transfer() {
	suite.open("A", "Ana", 100)
	suite.open("B", "Bia", 200)

	res, err := suite.service.Transfer(suite.ctx, "A", "B", d(50))
	suite.Require().NoError(err)
	suite.True(d(50).Equal(res.Origin.Balance))
	suite.True(d(250).Equal(res.Destination.Balance))

	suite.assertBalance("A", 50)
	suite.assertBalance("B", 250)

	txns := suite.history("A")
	suite.Require().Len(txns, 2)
	suite.Equal(domain.KindTransfer, txns[0].Kind)
	suite.Equal("A", txns[0].OriginAccount)
	suite.Equal("B", txns[0].DestinationAccount)
	suite.Equal(txns[0], suite.history("B")[0], "one record seen from both sides")
}

func (suite *LedgerServiceTestSuite) TestTransfer_InsufficientFundsLeavesBothUntouched() {
	suite.open("A", "Ana", 10)
	suite.open("B", "Bia", 0)

	_, err := suite.service.Transfer(suite.ctx, "A", "B", d(11))
	suite.ErrorIs(err, domain.ErrInsufficientFunds)

	suite.assertBalance("A", 10)
	suite.assertBalance("B", 0)
	suite.Empty(suite.history("B"))
}

func (suite *LedgerServiceTestSuite) TestTransfer_AtomicOnStoreFault() {
	suite.open("A", "Ana", 100)
	suite.open("B", "Bia", 100)

	repos := suite.repos()
	// B is swapped after A, so A's write is already staged when the fault hits.
	repos.UnitOfWork = &faultyUnitOfWork{inner: suite.store, failOn: "B"}
	faulty := suite.newService(repos)

	_, err := faulty.Transfer(suite.ctx, "A", "B", d(30))
	suite.ErrorIs(err, errInjected)

	suite.assertBalance("A", 100)
	suite.assertBalance("B", 100)
	suite.Len(suite.history("A"), 1)
	suite.Len(suite.history("B"), 1)
}

func (suite *LedgerServiceTestSuite) TestListTransactions_Pages() {
	suite.open("A", "Ana", 100)
	suite.open("B", "Bia", 0)
	_, err := suite.service.Transfer(suite.ctx, "A", "B", d(30))
	suite.Require().NoError(err)
	_, err = suite.service.Debit(suite.ctx, "A", d(5))
	suite.Require().NoError(err)

	page, err := suite.service.ListTransactions(suite.ctx, "A", dto.ListTransactionsParams{Limit: 2})
	suite.Require().NoError(err)
	suite.Require().Len(page.Transactions, 2)
	suite.Equal("DEBIT", page.Transactions[0].Kind)
	suite.True(d(-5).Equal(page.Transactions[0].SignedAmount))
	suite.Equal("TRANSFER", page.Transactions[1].Kind)
	suite.True(d(-30).Equal(page.Transactions[1].SignedAmount))
	suite.NotEmpty(page.NextToken)

	rest, err := suite.service.ListTransactions(suite.ctx, "A", dto.ListTransactionsParams{Limit: 2, NextToken: page.NextToken})
	suite.Require().NoError(err)
	suite.Require().Len(rest.Transactions, 1)
	suite.Equal("CREDIT", rest.Transactions[0].Kind)
	suite.Empty(rest.NextToken)

	incoming, err := suite.service.ListTransactions(suite.ctx, "B", dto.ListTransactionsParams{})
	suite.Require().NoError(err)
	suite.Require().Len(incoming.Transactions, 1)
	suite.True(d(30).Equal(incoming.Transactions[0].SignedAmount))
}

func (suite *LedgerServiceTestSuite) TestListTransactions_Errors() {
	suite.open("A", "Ana", 0)

	_, err := suite.service.ListTransactions(suite.ctx, "Z", dto.ListTransactionsParams{})
	suite.ErrorIs(err, domain.ErrAccountNotFound)

	_, err = suite.service.ListTransactions(suite.ctx, "A", dto.ListTransactionsParams{NextToken: "%%%"})
	suite.ErrorIs(err, apperrors.ErrValidation)
}

// --- Concurrency properties ---

func (suite *LedgerServiceTestSuite) TestConcurrentDebits_ExactlyOneWins() {
	suite.open("A", "Ana", 100)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = suite.service.Debit(suite.ctx, "A", d(60))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		suite.ErrorIs(err, domain.ErrInsufficientFunds)
	}
	suite.Equal(1, succeeded)
	suite.assertBalance("A", 40)
	suite.assertBalanceMatchesLog("A")
}

func (suite *LedgerServiceTestSuite) TestConcurrentDebits_NeverNegative() {
	suite.open("A", "Ana", 500)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := suite.service.Debit(suite.ctx, "A", d(25))
			if err != nil && !errors.Is(err, domain.ErrInsufficientFunds) && !errors.Is(err, domain.ErrConcurrencyConflict) {
				suite.Failf("unexpected error", "%v", err)
			}
		}()
	}
	wg.Wait()

	bal := suite.balance("A")
	suite.False(bal.IsNegative(), "balance went negative: %s", bal)
	suite.assertBalanceMatchesLog("A")
}

func (suite *LedgerServiceTestSuite) TestConcurrentTransfers_ConserveMoney() {
	numbers := []string{"A", "B", "C", "D"}
	for _, n := range numbers {
		suite.open(n, "Holder "+n, 1000)
	}

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			r := rand.New(rand.NewPCG(seed, seed*31+7))
			from := numbers[r.IntN(len(numbers))]
			to := numbers[r.IntN(len(numbers))]
			if from == to {
				return
			}
			_, err := suite.service.Transfer(suite.ctx, from, to, d(int64(1+r.IntN(50))))
			if err != nil && !errors.Is(err, domain.ErrInsufficientFunds) && !errors.Is(err, domain.ErrConcurrencyConflict) {
				suite.Failf("unexpected error", "%v", err)
			}
		}(uint64(i))
	}
	wg.Wait()

	accounts, err := suite.service.ListAccounts(suite.ctx)
	suite.Require().NoError(err)
	suite.True(d(4000).Equal(accounting.TotalBalance(accounts)), "money was created or destroyed")
	for _, n := range numbers {
		suite.False(suite.balance(n).IsNegative())
		suite.assertBalanceMatchesLog(n)
	}
}

func (suite *LedgerServiceTestSuite) TestOppositeTransfers_NoDeadlock() {
	suite.open("A", "Ana", 1000)
	suite.open("B", "Bia", 1000)

	ctx, cancel := context.WithTimeout(suite.ctx, 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := suite.service.Transfer(ctx, "A", "B", d(3))
			suite.NotErrorIs(err, context.DeadlineExceeded)
		}()
		go func() {
			defer wg.Done()
			_, err := suite.service.Transfer(ctx, "B", "A", d(2))
			suite.NotErrorIs(err, context.DeadlineExceeded)
		}()
	}
	wg.Wait()

	accounts, err := suite.service.ListAccounts(suite.ctx)
	suite.Require().NoError(err)
	suite.True(d(2000).Equal(accounting.TotalBalance(accounts)))
}

func (suite *LedgerServiceTestSuite) TestCancelledContext() {
	suite.open("A", "Ana", 10)
	ctx, cancel := context.WithCancel(suite.ctx)
	cancel()

	_, err := suite.service.Credit(ctx, "A", d(1))
	suite.ErrorIs(err, context.Canceled)
	suite.assertBalance("A", 10)
}

func TestLedgerService_Optimistic(t *testing.T) {
	suite.Run(t, &LedgerServiceTestSuite{strategy: services.LockOptimistic})
}

func TestLedgerService_Pessimistic(t *testing.T) {
	suite.Run(t, &LedgerServiceTestSuite{strategy: services.LockPessimistic})
}

func TestParseLockStrategy(t *testing.T) {
	for _, s := range []string{"optimistic", "pessimistic"} {
		got, err := services.ParseLockStrategy(s)
		if err != nil || string(got) != s {
			t.Fatalf("ParseLockStrategy(%q) = %q, %v", s, got, err)
		}
	}
	if _, err := services.ParseLockStrategy("mutex"); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func ExampleNewLedgerService() {
	store := memory.NewStore()
	svc := services.NewLedgerService(portsrepo.RepositoryProvider{
		AccountRepo:     store,
		TransactionRepo: store,
		UnitOfWork:      store,
	})
	ctx := context.Background()

	_, _ = svc.CreateAccount(ctx, dto.CreateAccountRequest{AccountNumber: "A", HolderName: "Ana"})
	_, _ = svc.CreateAccount(ctx, dto.CreateAccountRequest{AccountNumber: "B", HolderName: "Bia"})
	_, _ = svc.Credit(ctx, "A", decimal.NewFromInt(100))
	res, _ := svc.Transfer(ctx, "A", "B", decimal.NewFromInt(40))

	fmt.Println(res.Origin.Balance, res.Destination.Balance)
	// Output: 60 40
}
