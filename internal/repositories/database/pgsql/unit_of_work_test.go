package pgsql

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mar0580/teste-sistema-bancario/internal/apperrors"
	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
	portsrepo "github.com/mar0580/teste-sistema-bancario/internal/core/ports/repositories"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	updateAccountSQL = regexp.QuoteMeta("UPDATE accounts")
	accountExistsSQL = regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM accounts WHERE account_number = $1)")
)

func newMockUnitOfWork(t *testing.T) (*PgxUnitOfWork, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return newPgxUnitOfWork(mock), mock
}

func casInTx(uow *PgxUnitOfWork, expectedVersion int64) (int64, error) {
	next := domain.Account{
		AccountNumber: "A",
		HolderName:    "Alice",
		Balance:       decimal.RequireFromString("90"),
		UpdatedAt:     time.Now().UTC(),
	}
	var version int64
	err := uow.RunInTx(context.Background(), func(ctx context.Context, tx portsrepo.LedgerTx) error {
		v, err := tx.Accounts().CompareAndSwap(ctx, "A", expectedVersion, next)
		version = v
		return err
	})
	return version, err
}

func TestCompareAndSwap_Applied(t *testing.T) {
	uow, mock := newMockUnitOfWork(t)
	mock.ExpectBegin()
	mock.ExpectExec(updateAccountSQL).
		WithArgs("A", int64(3), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	// The deferred rollback after a commit is a no-op.
	mock.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

	version, err := casInTx(uow, 3)

	require.NoError(t, err)
	assert.Equal(t, int64(4), version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompareAndSwap_StaleVersion(t *testing.T) {
	uow, mock := newMockUnitOfWork(t)
	mock.ExpectBegin()
	mock.ExpectExec(updateAccountSQL).
		WithArgs("A", int64(3), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(accountExistsSQL).
		WithArgs("A").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := casInTx(uow, 3)

	assert.ErrorIs(t, err, domain.ErrVersionConflict)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompareAndSwap_MissingAccount(t *testing.T) {
	uow, mock := newMockUnitOfWork(t)
	mock.ExpectBegin()
	mock.ExpectExec(updateAccountSQL).
		WithArgs("A", int64(3), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(accountExistsSQL).
		WithArgs("A").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := casInTx(uow, 3)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompareAndSwap_BalanceConstraint(t *testing.T) {
	uow, mock := newMockUnitOfWork(t)
	mock.ExpectBegin()
	mock.ExpectExec(updateAccountSQL).
		WithArgs("A", int64(3), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgCheckViolation, ConstraintName: balanceConstraint})
	mock.ExpectRollback()

	_, err := casInTx(uow, 3)

	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_FailureRollsBackWithoutCommit(t *testing.T) {
	uow, mock := newMockUnitOfWork(t)
	boom := errors.New("append failed")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := uow.RunInTx(context.Background(), func(ctx context.Context, tx portsrepo.LedgerTx) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	// A Commit call would not match the rollback expectation and leave it unmet.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_CancelledContextRollsBack(t *testing.T) {
	uow, mock := newMockUnitOfWork(t)
	ctx, cancel := context.WithCancel(context.Background())
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := uow.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		cancel()
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_BeginFailure(t *testing.T) {
	uow, mock := newMockUnitOfWork(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))
	called := false

	err := uow.RunInTx(context.Background(), func(ctx context.Context, tx portsrepo.LedgerTx) error {
		called = true
		return nil
	})

	var appErr *apperrors.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}
