package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Returned by principal stores when a unique column is already taken.
var (
	ErrUsernameTaken = errors.New("username already taken")
	ErrAccountBound  = errors.New("account already bound to a principal")
)

// Principal is a registered login bound to exactly one ledger account.
type Principal struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose
	AccountID    AccountID `json:"account_id"`
	CreatedAt    time.Time `json:"created_at"`
}
