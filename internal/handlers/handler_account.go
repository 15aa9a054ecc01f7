package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mar0580/teste-sistema-bancario/internal/apperrors"
	portssvc "github.com/mar0580/teste-sistema-bancario/internal/core/ports/services"
	"github.com/mar0580/teste-sistema-bancario/internal/dto"
	"github.com/mar0580/teste-sistema-bancario/internal/middleware"
	"github.com/mar0580/teste-sistema-bancario/internal/utils"
)

// accountHandler handles HTTP requests related to accounts.
type accountHandler struct {
	accountService portssvc.AccountSvcFacade
	timeout        time.Duration
}

// newAccountHandler creates a new accountHandler.
func newAccountHandler(as portssvc.AccountSvcFacade, timeout time.Duration) *accountHandler {
	return &accountHandler{
		accountService: as,
		timeout:        timeout,
	}
}

// registerAccountRoutes registers routes related to accounts.
func registerAccountRoutes(rg *gin.RouterGroup, accountService portssvc.AccountSvcFacade, timeout time.Duration) {
	h := newAccountHandler(accountService, timeout)

	accounts := rg.Group("/accounts")
	{
		accounts.POST("", middleware.RequireRole(utils.RoleAdmin), h.createAccount)
		accounts.GET("", middleware.RequireRole(utils.RoleAdmin), h.listAccounts)
		accounts.GET("/me", h.getMyAccount)
		accounts.GET("/holder/:holderName", middleware.RequireRole(utils.RoleAdmin), h.getAccountByHolder)
		accounts.GET("/:accountNumber", h.getAccount)
	}
}

// withTimeout bounds one request's ledger call.
func withTimeout(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

// authorizeAccount lets admins through and checks that customers own accountNumber.
// It writes the error response itself and reports whether the handler may continue.
func authorizeAccount(ctx context.Context, c *gin.Context, svc portssvc.AccountReaderSvc, accountNumber string) bool {
	principal, ok := middleware.GetPrincipalFromContext(c)
	if !ok {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("Principal not found in context")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized", Code: "UNAUTHORIZED"})
		return false
	}
	if principal.IsAdmin() {
		return true
	}

	owned, err := svc.VerifyOwnership(ctx, accountNumber, principal.HolderName)
	if err != nil {
		respondError(c, err, "Failed to verify account ownership")
		return false
	}
	if !owned {
		respondError(c, apperrors.ErrForbidden, "Account belongs to another holder")
		return false
	}
	return true
}

// createAccount godoc
// @Summary Create a new account
// @Description Provisions an account for a holder, optionally funded with an initial CREDIT
// @Tags accounts
// @Accept  json
// @Produce  json
// @Param   account body dto.CreateAccountRequest true "Account details"
// @Success 201 {object} dto.AccountResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input format, validation error or invalid initial balance"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Admin role required"
// @Failure 409 {object} dto.ErrorResponse "Account number already in use"
// @Failure 500 {object} dto.ErrorResponse "Failed to create account"
// @Security BearerAuth
// @Router /accounts [post]
func (h *accountHandler) createAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid request format")
		return
	}

	logger.Info("Received request to create account", slog.String("account_number", req.AccountNumber))

	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()

	newAccount, err := h.accountService.CreateAccount(ctx, req)
	if err != nil {
		respondError(c, err, "Failed to create account")
		return
	}

	logger.Info("Account created successfully", slog.String("account_number", newAccount.AccountNumber))
	c.JSON(http.StatusCreated, dto.ToAccountResponse(newAccount))
}

// getAccount godoc
// @Summary Get an account by number
// @Description Retrieves details and balance for a specific account
// @Tags accounts
// @Produce  json
// @Param   accountNumber path string true "Account number"
// @Success 200 {object} dto.AccountResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Forbidden (accessing another holder's account)"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Failure 500 {object} dto.ErrorResponse "Failed to retrieve account"
// @Security BearerAuth
// @Router /accounts/{accountNumber} [get]
func (h *accountHandler) getAccount(c *gin.Context) {
	accountNumber := c.Param("accountNumber")
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()

	if !authorizeAccount(ctx, c, h.accountService, accountNumber) {
		return
	}

	account, err := h.accountService.GetAccount(ctx, accountNumber)
	if err != nil {
		respondError(c, err, "Failed to retrieve account")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// getMyAccount godoc
// @Summary Get the caller's account
// @Description Resolves the single account owned by the authenticated holder
// @Tags accounts
// @Produce  json
// @Success 200 {object} dto.AccountResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Holder has no account"
// @Failure 409 {object} dto.ErrorResponse "Holder owns more than one account"
// @Security BearerAuth
// @Router /accounts/me [get]
func (h *accountHandler) getMyAccount(c *gin.Context) {
	principal, ok := middleware.GetPrincipalFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized", Code: "UNAUTHORIZED"})
		return
	}

	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()

	account, err := h.accountService.AccountByHolder(ctx, principal.HolderName)
	if err != nil {
		respondError(c, err, "Failed to resolve account")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// getAccountByHolder godoc
// @Summary Find an account by holder name
// @Tags accounts
// @Produce  json
// @Param   holderName path string true "Holder name"
// @Success 200 {object} dto.AccountResponse
// @Failure 404 {object} dto.ErrorResponse "Holder has no account"
// @Failure 409 {object} dto.ErrorResponse "Holder owns more than one account"
// @Security BearerAuth
// @Router /accounts/holder/{holderName} [get]
func (h *accountHandler) getAccountByHolder(c *gin.Context) {
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()

	account, err := h.accountService.AccountByHolder(ctx, c.Param("holderName"))
	if err != nil {
		respondError(c, err, "Failed to resolve account")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// listAccounts godoc
// @Summary List all accounts
// @Description Returns a point-in-time snapshot of every account ordered by number
// @Tags accounts
// @Produce  json
// @Success 200 {object} dto.ListAccountsResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Admin role required"
// @Failure 500 {object} dto.ErrorResponse "Failed to list accounts"
// @Security BearerAuth
// @Router /accounts [get]
func (h *accountHandler) listAccounts(c *gin.Context) {
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()

	accounts, err := h.accountService.ListAccounts(ctx)
	if err != nil {
		respondError(c, err, "Failed to list accounts")
		return
	}

	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Accounts listed successfully", slog.Int("count", len(accounts)))
	c.JSON(http.StatusOK, dto.ToListAccountResponse(accounts))
}
