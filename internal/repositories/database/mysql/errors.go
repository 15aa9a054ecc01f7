package mysql

import (
	"errors"
	"fmt"
	"strings"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/mar0580/teste-sistema-bancario/internal/apperrors"
	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
	"gorm.io/gorm"
)

// MySQL server error numbers the ledger reacts to.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
	mysqlCheckViolation  = 3819

	balanceConstraint = "chk_accounts_balance_non_negative"
)

// translateGormError maps gorm and driver errors onto the application's error categories.
// Unrecognized errors are returned unchanged.
func translateGormError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", apperrors.ErrDuplicate, err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		// gorm's translated form drops the constraint name.
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return fmt.Errorf("%w: %s", apperrors.ErrDuplicate, myErr.Message)
		case mysqlDeadlock, mysqlLockWaitTimeout:
			return fmt.Errorf("%w: %s", domain.ErrVersionConflict, myErr.Message)
		case mysqlCheckViolation:
			if strings.Contains(myErr.Message, balanceConstraint) {
				return fmt.Errorf("%w: %s", domain.ErrInsufficientFunds, myErr.Message)
			}
			return fmt.Errorf("%w: %s", apperrors.ErrValidation, myErr.Message)
		}
	}
	return err
}
