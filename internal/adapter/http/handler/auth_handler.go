package handler

import (
	"token-ledger/internal/adapter/http/dto"
	"token-ledger/internal/adapter/http/middleware"
	"token-ledger/internal/core/ports"
	"token-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authSvc ports.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc ports.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Register handles POST /api/v1/auth/register. The new account starts
// with a zero balance.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if appErr := bindJSON(c, &req); appErr != nil {
		response.Error(c, appErr)
		return
	}

	result, err := h.authSvc.Register(c.Request.Context(), ports.RegisterRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCaller(c, result.AccountID)

	response.Created(c, dto.RegisterResponse{
		PrincipalID: result.PrincipalID.String(),
		AccountID:   result.AccountID.String(),
	})
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if appErr := bindJSON(c, &req); appErr != nil {
		response.Error(c, appErr)
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCaller(c, result.AccountID)

	response.OK(c, dto.LoginResponse{
		Token:     result.Token,
		Expiry:    result.ExpiresAt.Unix(),
		AccountID: result.AccountID.String(),
	})
}
