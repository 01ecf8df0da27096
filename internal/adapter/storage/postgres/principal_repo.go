package postgres

import (
	"context"
	"errors"
	"fmt"

	"token-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation = "23505"

	usernameConstraint  = "principals_username_key"
	accountIDConstraint = "principals_account_id_key"
)

const principalColumns = `id, username, password_hash, account_id, created_at`

// PrincipalRepo implements ports.PrincipalRepository.
type PrincipalRepo struct {
	pool Pool
}

// NewPrincipalRepo creates a new PrincipalRepo.
func NewPrincipalRepo(pool Pool) *PrincipalRepo {
	return &PrincipalRepo{pool: pool}
}

// Create inserts a new principal.
func (r *PrincipalRepo) Create(ctx context.Context, p *domain.Principal) error {
	query := `INSERT INTO principals (` + principalColumns + `) VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Username, p.PasswordHash, p.AccountID[:], p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert principal: %w", uniqueErr(err))
	}
	return nil
}

// uniqueErr maps unique violations on principals to the domain sentinels.
func uniqueErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case usernameConstraint:
		return domain.ErrUsernameTaken
	case accountIDConstraint:
		return domain.ErrAccountBound
	}
	return err
}

// GetByUsername fetches a principal by username.
func (r *PrincipalRepo) GetByUsername(ctx context.Context, username string) (*domain.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE username = $1`

	p, err := scanPrincipal(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		return nil, fmt.Errorf("get principal by username: %w", err)
	}
	return p, nil
}

// GetByAccountID fetches the principal bound to accountID.
func (r *PrincipalRepo) GetByAccountID(ctx context.Context, accountID domain.AccountID) (*domain.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE account_id = $1`

	p, err := scanPrincipal(r.pool.QueryRow(ctx, query, accountID[:]))
	if err != nil {
		return nil, fmt.Errorf("get principal by account_id: %w", err)
	}
	return p, nil
}

// scanPrincipal returns nil, nil on pgx.ErrNoRows.
func scanPrincipal(row pgx.Row) (*domain.Principal, error) {
	p := &domain.Principal{}
	var accountID []byte
	err := row.Scan(&p.ID, &p.Username, &p.PasswordHash, &accountID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	p.AccountID, err = domain.AccountIDFromBytes(accountID)
	if err != nil {
		return nil, err
	}
	return p, nil
}
