package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"
	"token-ledger/internal/ledger"
	"token-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	idempotencyTTL = 24 * time.Hour

	// defaultCacheTimeout bounds each idempotency cache call made under mu.
	defaultCacheTimeout = 250 * time.Millisecond
)

// cachedOutcome is the idempotency cache payload.
type cachedOutcome struct {
	Success bool `json:"success"`
}

// LedgerServiceImpl implements ports.LedgerService. It owns the ledger and
// holds mu for the whole of every call, so concurrent HTTP requests observe
// each operation as a single step.
type LedgerServiceImpl struct {
	mu      sync.Mutex
	ledger  *ledger.Ledger
	cache   ports.IdempotencyCache // nil = idempotency keys are ignored
	metrics ports.LedgerMetrics    // nil = no metrics
	log     zerolog.Logger

	cacheTimeout time.Duration
}

// NewLedgerService wraps l. The service must be the only user of l.
func NewLedgerService(
	l *ledger.Ledger,
	cache ports.IdempotencyCache,
	metrics ports.LedgerMetrics,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		ledger:  l,
		cache:   cache,
		metrics: metrics,
		log:     log,

		cacheTimeout: defaultCacheTimeout,
	}
}

// Initialize performs the one-time ledger setup with owner as minting authority.
func (s *LedgerServiceImpl) Initialize(ctx context.Context, owner domain.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.Initialize(owner); err != nil {
		return apperror.ErrLedgerAlreadyInitialized(err)
	}

	info := s.ledger.TokenInfo()
	if s.metrics != nil {
		s.metrics.SetTotalSupply(info.TotalSupply)
	}

	s.log.Info().
		Str("owner", owner.String()).
		Str("symbol", info.Symbol).
		Uint64("total_supply", info.TotalSupply).
		Msg("ledger initialized")
	return nil
}

// BalanceOf returns the balance of account.
func (s *LedgerServiceImpl) BalanceOf(_ context.Context, account domain.AccountID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.BalanceOf(account)
}

// TokenInfo returns token metadata with the current total supply.
func (s *LedgerServiceImpl) TokenInfo(_ context.Context) domain.TokenInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.TokenInfo()
}

// Owner returns the minting authority, false before initialization.
func (s *LedgerServiceImpl) Owner(_ context.Context) (domain.AccountID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Owner()
}

// Transfer moves req.Amount from req.Caller to req.To.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (bool, error) {
	ok, replayed, err := s.apply(ctx, domain.OperationTransfer, req.Caller, req.IdempotencyKey, func() bool {
		return s.ledger.Transfer(req.Caller, req.To, req.Amount)
	})
	if err != nil {
		return false, err
	}

	s.logOutcome(domain.OperationTransfer, req.Caller, req.To, req.Amount, ok, replayed)
	return ok, nil
}

// Mint credits req.Amount of new supply to req.To if req.Caller is the owner.
func (s *LedgerServiceImpl) Mint(ctx context.Context, req ports.MintRequest) (bool, error) {
	ok, replayed, err := s.apply(ctx, domain.OperationMint, req.Caller, req.IdempotencyKey, func() bool {
		return s.ledger.Mint(req.Caller, req.To, req.Amount)
	})
	if err != nil {
		return false, err
	}

	s.logOutcome(domain.OperationMint, req.Caller, req.To, req.Amount, ok, replayed)
	return ok, nil
}

// apply runs op under the lock. With an idempotency key the cached outcome,
// if any, is returned instead and op is not run. The cache lookup happens
// under the lock too so two retries of the same key cannot both apply.
func (s *LedgerServiceImpl) apply(
	ctx context.Context,
	operation string,
	caller domain.AccountID,
	idempotencyKey string,
	op func() bool,
) (ok bool, replayed bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, false, apperror.Canceled(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var key string
	if idempotencyKey != "" && s.cache != nil {
		key = domain.BuildIdempotencyKey(caller, operation, idempotencyKey)
		getCtx, cancel := context.WithTimeout(ctx, s.cacheTimeout)
		cached, err := s.cache.Get(getCtx, key)
		cancel()
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("idempotency lookup failed, applying operation")
		}
		if cached != nil {
			var out cachedOutcome
			if err := json.Unmarshal(cached, &out); err != nil {
				return false, false, apperror.InternalError(fmt.Errorf("unmarshal cached outcome: %w", err))
			}
			return out.Success, true, nil
		}
	}

	ok = op()

	if s.metrics != nil {
		s.metrics.ObserveOperation(operation, ok)
		if ok && operation == domain.OperationMint {
			s.metrics.SetTotalSupply(s.ledger.TokenInfo().TotalSupply)
		}
	}

	if key != "" {
		payload, err := json.Marshal(cachedOutcome{Success: ok})
		if err != nil {
			return ok, false, apperror.InternalError(fmt.Errorf("marshal outcome: %w", err))
		}
		// Best-effort: a lost entry only means a retry is applied again. The
		// operation already happened, so a client hang-up must not skip it.
		setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cacheTimeout)
		defer cancel()
		if err := s.cache.Set(setCtx, key, payload, idempotencyTTL); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency outcome")
		}
	}

	return ok, false, nil
}

func (s *LedgerServiceImpl) logOutcome(operation string, caller, to domain.AccountID, amount uint64, ok, replayed bool) {
	event := s.log.Info()
	msg := operation + " applied"
	switch {
	case replayed:
		event = s.log.Debug()
		msg = operation + " replayed from idempotency cache"
	case !ok:
		msg = operation + " declined"
	}

	event.
		Str("op", operation).
		Str("caller", caller.String()).
		Str("to", to.String()).
		Uint64("amount", amount).
		Bool("success", ok).
		Msg(msg)
}
