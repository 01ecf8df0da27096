package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"
	"token-ledger/pkg/apperror"

	"github.com/google/uuid"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	principalRepo ports.PrincipalRepository
	hashSvc       ports.HashService
	tokenSvc      ports.TokenService
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	principalRepo ports.PrincipalRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		principalRepo: principalRepo,
		hashSvc:       hashSvc,
		tokenSvc:      tokenSvc,
	}
}

// Register creates a principal bound to a fresh random account id, or to
// req.AccountID when set. The account holds no balance until someone
// transfers or mints to it.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*ports.RegisterResponse, error) {
	existing, err := s.principalRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("check username: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrUsernameExists()
	}

	accountID, err := s.accountFor(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	// Hash password with Argon2id
	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	principal := &domain.Principal{
		ID:           uuid.New(),
		Username:     req.Username,
		PasswordHash: passwordHash,
		AccountID:    accountID,
		CreatedAt:    time.Now().UTC(),
	}

	// The lookups above race with concurrent registrations; the store's
	// unique constraints decide.
	if err := s.principalRepo.Create(ctx, principal); err != nil {
		switch {
		case errors.Is(err, domain.ErrUsernameTaken):
			return nil, apperror.ErrUsernameExists()
		case errors.Is(err, domain.ErrAccountBound):
			return nil, apperror.ErrAccountAlreadyBound()
		}
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create principal: %w", err))
	}

	return &ports.RegisterResponse{
		PrincipalID: principal.ID,
		AccountID:   principal.AccountID,
	}, nil
}

// accountFor returns requested if no principal is bound to it yet, or a new
// random id when requested is nil.
func (s *AuthServiceImpl) accountFor(ctx context.Context, requested *domain.AccountID) (domain.AccountID, error) {
	if requested == nil {
		id, err := domain.NewAccountID()
		if err != nil {
			return domain.AccountID{}, apperror.InternalError(fmt.Errorf("generate account id: %w", err))
		}
		return id, nil
	}

	bound, err := s.principalRepo.GetByAccountID(ctx, *requested)
	if err != nil {
		return domain.AccountID{}, apperror.ErrDatabaseError(fmt.Errorf("check account: %w", err))
	}
	if bound != nil {
		return domain.AccountID{}, apperror.ErrAccountAlreadyBound()
	}
	return *requested, nil
}

// Login validates credentials and returns a JWT whose subject is the
// principal's account id.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (*ports.LoginResponse, error) {
	principal, err := s.principalRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("find principal: %w", err))
	}
	if principal == nil {
		return nil, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, principal.PasswordHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return nil, apperror.ErrInvalidCredentials()
	}

	token, expiry, err := s.tokenSvc.Generate(principal.AccountID, principal.Username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return &ports.LoginResponse{
		Token:     token,
		ExpiresAt: expiry,
		AccountID: principal.AccountID,
	}, nil
}
