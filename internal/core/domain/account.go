package domain

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// AccountIDLen is the fixed byte length of an account identifier.
const AccountIDLen = 32

// ErrInvalidAccountID is returned when an account identifier cannot be decoded.
var ErrInvalidAccountID = errors.New("invalid account id")

// AccountID identifies a balance holder. It is opaque to the ledger and is
// only ever compared and hashed. The text form is lowercase hex.
type AccountID [AccountIDLen]byte

// NewAccountID returns a random account identifier.
func NewAccountID() (AccountID, error) {
	var id AccountID
	if _, err := rand.Read(id[:]); err != nil {
		return AccountID{}, fmt.Errorf("generating account id: %w", err)
	}
	return id, nil
}

// ParseAccountID decodes the hex text form of an account identifier.
func ParseAccountID(s string) (AccountID, error) {
	if len(s) != hex.EncodedLen(AccountIDLen) {
		return AccountID{}, fmt.Errorf("%w: expected %d hex chars, got %d", ErrInvalidAccountID, hex.EncodedLen(AccountIDLen), len(s))
	}
	var id AccountID
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return AccountID{}, fmt.Errorf("%w: %v", ErrInvalidAccountID, err)
	}
	return id, nil
}

// AccountIDFromBytes copies a raw identifier, e.g. a BYTEA column value.
func AccountIDFromBytes(b []byte) (AccountID, error) {
	if len(b) != AccountIDLen {
		return AccountID{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAccountID, AccountIDLen, len(b))
	}
	var id AccountID
	copy(id[:], b)
	return id, nil
}

func (a AccountID) String() string {
	return hex.EncodeToString(a[:])
}

// IsZero reports whether a is the all-zero identifier.
func (a AccountID) IsZero() bool {
	return a == AccountID{}
}

// MarshalText implements encoding.TextMarshaler.
func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AccountID) UnmarshalText(text []byte) error {
	id, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*a = id
	return nil
}
