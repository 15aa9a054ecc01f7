package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mar0580/teste-sistema-bancario/internal/apperrors"
	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
	"github.com/mar0580/teste-sistema-bancario/internal/dto"
	"github.com/mar0580/teste-sistema-bancario/internal/middleware"
)

// errorMapping ties an error to its HTTP status and machine-readable code.
// Order matters: specific ledger errors precede the categories they wrap.
var errorMapping = []struct {
	target error
	status int
	code   string
	hint   string
}{
	{domain.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT", ""},
	{domain.ErrSameAccountTransfer, http.StatusBadRequest, "SAME_ACCOUNT_TRANSFER", ""},
	{domain.ErrAccountNotFound, http.StatusNotFound, "ACCOUNT_NOT_FOUND", ""},
	{domain.ErrDuplicateAccountNumber, http.StatusConflict, "DUPLICATE_ACCOUNT_NUMBER", ""},
	{domain.ErrInsufficientFunds, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "retry with a smaller amount"},
	{domain.ErrConcurrencyConflict, http.StatusConflict, "CONCURRENCY_CONFLICT", "retry the same request"},
	{domain.ErrAmbiguousHolder, http.StatusConflict, "AMBIGUOUS_HOLDER", ""},
	{apperrors.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperrors.ErrNotFound, http.StatusNotFound, "NOT_FOUND", ""},
	{apperrors.ErrDuplicate, http.StatusConflict, "DUPLICATE", ""},
	{apperrors.ErrConflict, http.StatusConflict, "CONFLICT", ""},
	{apperrors.ErrBusinessRule, http.StatusUnprocessableEntity, "BUSINESS_RULE", ""},
	{apperrors.ErrForbidden, http.StatusForbidden, "FORBIDDEN", ""},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT", ""},
}

// respondError writes the error response for err and logs it at a level
// matching its category.
func respondError(c *gin.Context, err error, fallbackMsg string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	for _, m := range errorMapping {
		if errors.Is(err, m.target) {
			if m.status >= http.StatusInternalServerError {
				logger.Error(fallbackMsg, slog.String("error", err.Error()))
				c.JSON(m.status, dto.ErrorResponse{Error: fallbackMsg, Code: m.code})
				return
			}
			logger.Warn(fallbackMsg, slog.String("error", err.Error()), slog.String("code", m.code))
			c.JSON(m.status, dto.ErrorResponse{Error: err.Error(), Code: m.code, Hint: m.hint})
			return
		}
	}

	logger.Error(fallbackMsg, slog.String("error", err.Error()))
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: fallbackMsg, Code: "INTERNAL"})
}

func respondBindError(c *gin.Context, err error, msg string) {
	middleware.GetLoggerFromCtx(c.Request.Context()).Warn(msg, slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: msg + ": " + err.Error(), Code: "VALIDATION_ERROR"})
}
