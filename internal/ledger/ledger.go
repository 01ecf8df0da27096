// Package ledger implements the token ledger state machine: balances, total
// supply, immutable token metadata and the owner-gated mint.
//
// A Ledger does no locking. Callers that share one between goroutines must
// serialize every call, see service.LedgerServiceImpl.
package ledger

import (
	"errors"

	"token-ledger/internal/core/domain"

	smath "github.com/ava-labs/avalanchego/utils/math"
)

// DefaultInitialSupply is credited to the owner by Initialize.
const DefaultInitialSupply uint64 = 1_000_000_000

// ErrAlreadyInitialized is returned by a second call to Initialize.
var ErrAlreadyInitialized = errors.New("ledger already initialized")

// Metadata is the immutable description of the token.
type Metadata struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// DefaultMetadata describes the reference test token.
func DefaultMetadata() Metadata {
	return Metadata{
		Name:     "ICP Test Token",
		Symbol:   "ICPT",
		Decimals: 8,
	}
}

// Ledger holds per-account balances and the total supply.
//
// Invariants after every exported call: totalSupply equals the sum of
// balances, no arithmetic wraps, owner and meta never change once set.
type Ledger struct {
	meta          Metadata
	initialSupply uint64

	initialized bool
	owner       domain.AccountID
	balances    map[domain.AccountID]uint64
	totalSupply uint64
}

// New constructs an uninitialized ledger.
func New(meta Metadata, initialSupply uint64) *Ledger {
	return &Ledger{
		meta:          meta,
		initialSupply: initialSupply,
		balances:      make(map[domain.AccountID]uint64),
	}
}

// Initialize makes caller the owner and credits it the initial supply.
func (l *Ledger) Initialize(caller domain.AccountID) error {
	if l.initialized {
		return ErrAlreadyInitialized
	}
	l.owner = caller
	l.totalSupply = l.initialSupply
	l.setBalance(caller, l.initialSupply)
	l.initialized = true
	return nil
}

// Initialized reports whether Initialize has run.
func (l *Ledger) Initialized() bool {
	return l.initialized
}

// Owner returns the minting authority, false before initialization.
func (l *Ledger) Owner() (domain.AccountID, bool) {
	return l.owner, l.initialized
}

// BalanceOf returns the balance of account, zero if it has none.
func (l *Ledger) BalanceOf(account domain.AccountID) uint64 {
	return l.balances[account]
}

// TokenInfo returns the token metadata and the current total supply.
func (l *Ledger) TokenInfo() domain.TokenInfo {
	return domain.TokenInfo{
		Name:        l.meta.Name,
		Symbol:      l.meta.Symbol,
		Decimals:    l.meta.Decimals,
		TotalSupply: l.totalSupply,
	}
}

// Transfer moves amount from caller to to. It returns false, and changes
// nothing, if caller holds less than amount or if crediting to would
// overflow.
func (l *Ledger) Transfer(caller, to domain.AccountID, amount uint64) bool {
	if !l.initialized {
		return false
	}
	from := l.balances[caller]
	if from < amount {
		return false
	}
	if caller == to {
		return true
	}
	credited, err := smath.Add(l.balances[to], amount)
	if err != nil {
		return false
	}
	l.setBalance(caller, from-amount)
	l.setBalance(to, credited)
	return true
}

// Mint credits amount to to and grows the total supply. Only the owner may
// mint. Both sums are checked before either is stored.
func (l *Ledger) Mint(caller, to domain.AccountID, amount uint64) bool {
	if !l.initialized || caller != l.owner {
		return false
	}
	supply, err := smath.Add(l.totalSupply, amount)
	if err != nil {
		return false
	}
	credited, err := smath.Add(l.balances[to], amount)
	if err != nil {
		return false
	}
	l.totalSupply = supply
	l.setBalance(to, credited)
	return true
}

// setBalance keeps the map free of zero entries.
func (l *Ledger) setBalance(account domain.AccountID, amount uint64) {
	if amount == 0 {
		delete(l.balances, account)
		return
	}
	l.balances[account] = amount
}
