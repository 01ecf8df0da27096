package ports

import (
	"context"
	"time"

	"token-ledger/internal/core/domain"

	"github.com/google/uuid"
)

//go:generate mockgen -source=services.go -destination=mocks/services_mock.go -package=mocks

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations. The subject of every token is
// the caller's account id.
type TokenService interface {
	Generate(accountID domain.AccountID, username string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	AccountID domain.AccountID
	Username  string
}

// IdempotencyCache stores the outcome of a mutating ledger call so a retried
// request replays it instead of applying it twice.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached value or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RateLimitStore counts requests per key in fixed windows.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// LedgerMetrics receives ledger operation outcomes.
type LedgerMetrics interface {
	ObserveOperation(operation string, accepted bool)
	SetTotalSupply(supply uint64)
}

// --- Service Ports (Business Logic) ---

// LedgerService is the serialized entry point to the token ledger.
// Declined operations return false with a nil error.
type LedgerService interface {
	Initialize(ctx context.Context, owner domain.AccountID) error
	BalanceOf(ctx context.Context, account domain.AccountID) uint64
	TokenInfo(ctx context.Context) domain.TokenInfo
	Owner(ctx context.Context) (domain.AccountID, bool)
	Transfer(ctx context.Context, req TransferRequest) (bool, error)
	Mint(ctx context.Context, req MintRequest) (bool, error)
}

// TransferRequest moves Amount from Caller to To.
type TransferRequest struct {
	Caller         domain.AccountID
	To             domain.AccountID
	Amount         uint64
	IdempotencyKey string // optional
}

// MintRequest credits Amount of new supply to To; Caller must be the owner.
type MintRequest struct {
	Caller         domain.AccountID
	To             domain.AccountID
	Amount         uint64
	IdempotencyKey string // optional
}

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, username, password string) (*LoginResponse, error)
}

// RegisterRequest holds input for principal registration.
type RegisterRequest struct {
	Username string
	Password string
	// AccountID binds the principal to an existing account, e.g. the
	// configured owner. Set only by operator tooling, never from HTTP.
	AccountID *domain.AccountID
}

// RegisterResponse holds the registration result.
type RegisterResponse struct {
	PrincipalID uuid.UUID
	AccountID   domain.AccountID
}

// LoginResponse holds an issued token and the account it authenticates.
type LoginResponse struct {
	Token     string
	ExpiresAt time.Time
	AccountID domain.AccountID
}

// AuditService records audit trail entries.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
