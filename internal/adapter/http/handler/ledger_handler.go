package handler

import (
	"token-ledger/internal/adapter/http/dto"
	"token-ledger/internal/adapter/http/middleware"
	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"
	"token-ledger/pkg/apperror"
	"token-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

const maxIdempotencyKeyLen = 128

// LedgerHandler serves balance, token, transfer and mint endpoints.
type LedgerHandler struct {
	ledgerSvc ports.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerSvc ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

// RequireInitialized rejects requests with LEDGER_001 until the ledger has an owner.
func (h *LedgerHandler) RequireInitialized(c *gin.Context) {
	if _, ok := h.ledgerSvc.Owner(c.Request.Context()); !ok {
		response.Abort(c, apperror.ErrLedgerNotInitialized())
		return
	}
	c.Next()
}

// BalanceOf handles GET /api/v1/accounts/:account/balance.
func (h *LedgerHandler) BalanceOf(c *gin.Context) {
	account, err := domain.ParseAccountID(c.Param("account"))
	if err != nil {
		response.Error(c, apperror.ErrInvalidAccountID(err))
		return
	}

	response.OK(c, dto.BalanceResponse{
		Account: account.String(),
		Balance: h.ledgerSvc.BalanceOf(c.Request.Context(), account),
	})
}

// TokenInfo handles GET /api/v1/token.
func (h *LedgerHandler) TokenInfo(c *gin.Context) {
	info := h.ledgerSvc.TokenInfo(c.Request.Context())
	response.OK(c, dto.TokenInfoResponse{
		Name:        info.Name,
		Symbol:      info.Symbol,
		Decimals:    info.Decimals,
		TotalSupply: info.TotalSupply,
	})
}

// Transfer handles POST /api/v1/transfers. A declined transfer is a 200
// with success=false.
func (h *LedgerHandler) Transfer(c *gin.Context) {
	caller, ok := middleware.Caller(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TransferRequest
	if appErr := bindJSON(c, &req); appErr != nil {
		response.Error(c, appErr)
		return
	}
	to, idemKey, appErr := parseOperation(c, req.To)
	if appErr != nil {
		response.Error(c, appErr)
		return
	}

	success, err := h.ledgerSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		Caller:         caller,
		To:             to,
		Amount:         *req.Amount,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.OperationResponse{Success: success})
}

// Mint handles POST /api/v1/mint. Non-owners get success=false.
func (h *LedgerHandler) Mint(c *gin.Context) {
	caller, ok := middleware.Caller(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.MintRequest
	if appErr := bindJSON(c, &req); appErr != nil {
		response.Error(c, appErr)
		return
	}
	to, idemKey, appErr := parseOperation(c, req.To)
	if appErr != nil {
		response.Error(c, appErr)
		return
	}

	success, err := h.ledgerSvc.Mint(c.Request.Context(), ports.MintRequest{
		Caller:         caller,
		To:             to,
		Amount:         *req.Amount,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.OperationResponse{Success: success})
}

// Me handles GET /api/v1/accounts/me.
func (h *LedgerHandler) Me(c *gin.Context) {
	caller, ok := middleware.Caller(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	ctx := c.Request.Context()
	owner, initialized := h.ledgerSvc.Owner(ctx)
	response.OK(c, dto.AccountResponse{
		AccountID: caller.String(),
		Username:  c.GetString(middleware.CtxUsername),
		Balance:   h.ledgerSvc.BalanceOf(ctx, caller),
		IsOwner:   initialized && owner == caller,
	})
}

// parseOperation decodes the recipient and reads the optional Idempotency-Key.
func parseOperation(c *gin.Context, rawTo string) (domain.AccountID, string, *apperror.AppError) {
	to, err := domain.ParseAccountID(rawTo)
	if err != nil {
		return domain.AccountID{}, "", apperror.ErrInvalidAccountID(err)
	}

	key := c.GetHeader(middleware.HeaderIdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		return domain.AccountID{}, "", apperror.Validation("Idempotency-Key too long")
	}
	return to, key, nil
}
