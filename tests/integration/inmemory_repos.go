package integration

import (
	"context"
	"sync"

	"token-ledger/internal/core/domain"
)

// --- In-Memory Principal Repo ---

type inMemoryPrincipalRepo struct {
	mu         sync.RWMutex
	principals map[string]*domain.Principal // by username
}

func newInMemoryPrincipalRepo() *inMemoryPrincipalRepo {
	return &inMemoryPrincipalRepo{principals: make(map[string]*domain.Principal)}
}

func (r *inMemoryPrincipalRepo) Create(_ context.Context, p *domain.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.principals[p.Username]; ok {
		return domain.ErrUsernameTaken
	}
	for _, existing := range r.principals {
		if existing.AccountID == p.AccountID {
			return domain.ErrAccountBound
		}
	}
	r.principals[p.Username] = p
	return nil
}

func (r *inMemoryPrincipalRepo) GetByUsername(_ context.Context, username string) (*domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.principals[username], nil
}

func (r *inMemoryPrincipalRepo) GetByAccountID(_ context.Context, accountID domain.AccountID) (*domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.principals {
		if p.AccountID == accountID {
			return p, nil
		}
	}
	return nil, nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func (r *inMemoryAuditRepo) Create(_ context.Context, log *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *log)
	return nil
}

func (r *inMemoryAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, string(e.Action))
	}
	return out
}

// callers returns the caller recorded on each entry of action, nil for none.
func (r *inMemoryAuditRepo) callers(action domain.AuditAction) []*domain.AccountID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AccountID
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e.CallerID)
		}
	}
	return out
}
