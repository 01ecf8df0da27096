package dto

// RegisterRequest is the request body for principal registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password string `json:"password" binding:"required,min=8,max=128" sanitize:"-"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required" sanitize:"-"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	PrincipalID string `json:"principal_id"`
	AccountID   string `json:"account_id"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token     string `json:"token"`
	Expiry    int64  `json:"expiry"` // Unix timestamp
	AccountID string `json:"account_id"`
}

// TransferRequest is the request body for POST /api/v1/transfers. The
// sender is always the authenticated caller. Amount is a pointer so that an
// explicit 0 passes the required check.
type TransferRequest struct {
	To     string  `json:"to" binding:"required,account_id"`
	Amount *uint64 `json:"amount" binding:"required"`
}

// MintRequest is the request body for POST /api/v1/mint.
type MintRequest struct {
	To     string  `json:"to" binding:"required,account_id"`
	Amount *uint64 `json:"amount" binding:"required"`
}

// OperationResponse reports whether a transfer or mint was applied.
// Declines carry no reason.
type OperationResponse struct {
	Success bool `json:"success"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
}

// TokenInfoResponse describes the token.
type TokenInfoResponse struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	TotalSupply uint64 `json:"total_supply"`
}

// AccountResponse is returned by GET /api/v1/accounts/me.
type AccountResponse struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	Balance   uint64 `json:"balance"`
	IsOwner   bool   `json:"is_owner"`
}
