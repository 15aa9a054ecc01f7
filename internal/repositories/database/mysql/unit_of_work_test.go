package mysql

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/mar0580/teste-sistema-bancario/internal/apperrors"
	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
	portsrepo "github.com/mar0580/teste-sistema-bancario/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var (
	updateAccountSQL = regexp.QuoteMeta("UPDATE `accounts` SET")
	countAccountSQL  = regexp.QuoteMeta("SELECT count(*) FROM `accounts`")
)

func newMockUnitOfWork(t *testing.T) (*GormUnitOfWork, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return &GormUnitOfWork{db: db}, mock
}

func nextAccount(balance string) domain.Account {
	return domain.Account{
		AccountNumber: "A",
		HolderName:    "Alice",
		Balance:       decimal.RequireFromString(balance),
		UpdatedAt:     time.Now().UTC(),
	}
}

func casInTx(uow *GormUnitOfWork, expectedVersion int64) (int64, error) {
	var version int64
	err := uow.RunInTx(context.Background(), func(ctx context.Context, tx portsrepo.LedgerTx) error {
		v, err := tx.Accounts().CompareAndSwap(ctx, "A", expectedVersion, nextAccount("90"))
		version = v
		return err
	})
	return version, err
}

func TestCompareAndSwap_Applied(t *testing.T) {
	uow, mock := newMockUnitOfWork(t)
	mock.ExpectBegin()
	mock.ExpectExec(updateAccountSQL).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	version, err := casInTx(uow, 3)

	require.NoError(t, err)
	assert.Equal(t, int64(4), version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompareAndSwap_StaleVersion(t *testing.T) {
	uow, mock := newMockUnitOfWork(t)
	mock.ExpectBegin()
	mock.ExpectExec(updateAccountSQL).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(countAccountSQL).
		WithArgs("A").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))
	mock.ExpectRollback()

	_, err := casInTx(uow, 3)

	assert.ErrorIs(t, err, domain.ErrVersionConflict)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompareAndSwap_MissingAccount(t *testing.T) {
	uow, mock := newMockUnitOfWork(t)
	mock.ExpectBegin()
	mock.ExpectExec(updateAccountSQL).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(countAccountSQL).
		WithArgs("A").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
	mock.ExpectRollback()

	_, err := casInTx(uow, 3)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrVersionConflict)
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
	// An unexpected Commit would leave ExpectRollback unmet.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompareAndSwap_DeadlockIsVersionConflict(t *testing.T) {
	uow, mock := newMockUnitOfWork(t)
	mock.ExpectBegin()
	mock.ExpectExec(updateAccountSQL).WillReturnError(&gomysql.MySQLError{Number: mysqlDeadlock, Message: "Deadlock found"})
	mock.ExpectRollback()

	_, err := casInTx(uow, 3)

	assert.ErrorIs(t, err, domain.ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
