package ports

import (
	"context"

	"token-ledger/internal/core/domain"
)

//go:generate mockgen -source=repositories.go -destination=mocks/repositories_mock.go -package=mocks

// PrincipalRepository defines persistence operations for login principals.
// Lookups return nil, nil when nothing matches.
type PrincipalRepository interface {
	Create(ctx context.Context, principal *domain.Principal) error
	GetByUsername(ctx context.Context, username string) (*domain.Principal, error)
	GetByAccountID(ctx context.Context, accountID domain.AccountID) (*domain.Principal, error)
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}
