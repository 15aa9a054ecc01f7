package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	portssvc "github.com/mar0580/teste-sistema-bancario/internal/core/ports/services"
	"github.com/mar0580/teste-sistema-bancario/internal/dto"
	"github.com/mar0580/teste-sistema-bancario/internal/middleware"
)

type ledgerHandler struct {
	ledgerService portssvc.LedgerSvcFacade
	timeout       time.Duration
}

func newLedgerHandler(ls portssvc.LedgerSvcFacade, timeout time.Duration) *ledgerHandler {
	return &ledgerHandler{ledgerService: ls, timeout: timeout}
}

// registerLedgerRoutes registers the balance-moving and history routes.
func registerLedgerRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade, timeout time.Duration) {
	h := newLedgerHandler(ledgerService, timeout)

	accounts := rg.Group("/accounts/:accountNumber")
	{
		accounts.POST("/credit", h.credit)
		accounts.POST("/debit", h.debit)
		accounts.GET("/transactions", h.listTransactions)
	}
	rg.POST("/transfers", h.transfer)
}

// credit godoc
// @Summary Credit an account
// @Description Adds a positive amount to the account balance and records a CREDIT entry
// @Tags ledger
// @Accept  json
// @Produce  json
// @Param   accountNumber path string true "Account number"
// @Param   body body dto.AmountRequest true "Amount"
// @Success 200 {object} dto.BalanceResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid amount"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Failure 409 {object} dto.ErrorResponse "Concurrent modification, retry later"
// @Security BearerAuth
// @Router /accounts/{accountNumber}/credit [post]
func (h *ledgerHandler) credit(c *gin.Context) {
	h.applyAmount(c, "credit")
}

// debit godoc
// @Summary Debit an account
// @Description Removes a positive amount from the account balance and records a DEBIT entry
// @Tags ledger
// @Accept  json
// @Produce  json
// @Param   accountNumber path string true "Account number"
// @Param   body body dto.AmountRequest true "Amount"
// @Success 200 {object} dto.BalanceResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid amount"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Failure 409 {object} dto.ErrorResponse "Concurrent modification, retry later"
// @Failure 422 {object} dto.ErrorResponse "Insufficient funds"
// @Security BearerAuth
// @Router /accounts/{accountNumber}/debit [post]
func (h *ledgerHandler) debit(c *gin.Context) {
	h.applyAmount(c, "debit")
}

func (h *ledgerHandler) applyAmount(c *gin.Context, operation string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountNumber := c.Param("accountNumber")

	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid request format")
		return
	}

	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()

	if !authorizeAccount(ctx, c, h.ledgerService, accountNumber) {
		return
	}

	apply := h.ledgerService.Credit
	if operation == "debit" {
		apply = h.ledgerService.Debit
	}
	account, err := apply(ctx, accountNumber, req.Amount)
	if err != nil {
		respondError(c, err, "Failed to "+operation+" account")
		return
	}

	logger.Info("Balance updated",
		slog.String("operation", operation),
		slog.String("account_number", accountNumber),
		slog.String("amount", req.Amount.String()))
	c.JSON(http.StatusOK, dto.ToBalanceResponse(account))
}

// transfer godoc
// @Summary Transfer between accounts
// @Description Atomically debits the origin and credits the destination, recording one TRANSFER entry
// @Tags ledger
// @Accept  json
// @Produce  json
// @Param   body body dto.TransferRequest true "Transfer details"
// @Success 200 {object} dto.TransferResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid amount or same account"
// @Failure 403 {object} dto.ErrorResponse "Origin belongs to another holder"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Failure 409 {object} dto.ErrorResponse "Concurrent modification, retry later"
// @Failure 422 {object} dto.ErrorResponse "Insufficient funds"
// @Security BearerAuth
// @Router /transfers [post]
func (h *ledgerHandler) transfer(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid request format")
		return
	}

	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()

	if !authorizeAccount(ctx, c, h.ledgerService, req.OriginAccountNumber) {
		return
	}

	result, err := h.ledgerService.Transfer(ctx, req.OriginAccountNumber, req.DestinationAccountNumber, req.Amount)
	if err != nil {
		respondError(c, err, "Failed to transfer")
		return
	}

	logger.Info("Transfer completed",
		slog.String("origin", req.OriginAccountNumber),
		slog.String("destination", req.DestinationAccountNumber),
		slog.String("amount", req.Amount.String()))
	c.JSON(http.StatusOK, dto.ToTransferResponse(result))
}

// listTransactions godoc
// @Summary List an account's transactions
// @Description Returns the account's history newest first, paginated with an opaque token
// @Tags ledger
// @Produce  json
// @Param   accountNumber path string true "Account number"
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid query parameters"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Security BearerAuth
// @Router /accounts/{accountNumber}/transactions [get]
func (h *ledgerHandler) listTransactions(c *gin.Context) {
	accountNumber := c.Param("accountNumber")

	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err, "Invalid query parameters")
		return
	}

	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()

	if !authorizeAccount(ctx, c, h.ledgerService, accountNumber) {
		return
	}

	resp, err := h.ledgerService.ListTransactions(ctx, accountNumber, params)
	if err != nil {
		respondError(c, err, "Failed to list transactions")
		return
	}
	c.JSON(http.StatusOK, resp)
}
