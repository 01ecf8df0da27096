package service

import (
	"context"
	"sync"
	"time"

	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

const (
	auditQueueSize      = 256
	auditPersistTimeout = 5 * time.Second
)

// AuditService writes audit entries from a single background worker so a
// slow database never holds up a request. Entries arriving while the queue
// is full are logged and dropped.
type AuditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	entries chan *domain.AuditLog
	done    chan struct{}
}

// NewAuditService starts the audit worker. A nil repo keeps the log line
// and skips persistence. Call Close to drain the queue on shutdown.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) *AuditService {
	return newAuditService(repo, log, auditQueueSize)
}

func newAuditService(repo ports.AuditRepository, log zerolog.Logger, queueSize int) *AuditService {
	s := &AuditService{
		repo:    repo,
		log:     log.With().Str("component", "audit").Logger(),
		entries: make(chan *domain.AuditLog, queueSize),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Log queues entry without blocking.
func (s *AuditService) Log(_ context.Context, entry *domain.AuditLog) {
	event := s.log.Info().
		Str("action", string(entry.Action)).
		Str("resource_type", entry.ResourceType).
		Str("ip", entry.IPAddress)
	if entry.CallerID != nil {
		event = event.Str("caller", entry.CallerID.String())
	}
	event.Msg("audit")

	if s.repo == nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.entries <- entry:
	default:
		s.log.Warn().Str("action", string(entry.Action)).Msg("audit queue full, entry not persisted")
	}
}

// Close stops accepting entries and waits for queued ones to be written,
// or for ctx to end.
func (s *AuditService) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.entries)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AuditService) run() {
	defer close(s.done)
	for entry := range s.entries {
		s.persist(entry)
	}
}

func (s *AuditService) persist(entry *domain.AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), auditPersistTimeout)
	defer cancel()
	if err := s.repo.Create(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("action", string(entry.Action)).Msg("failed to persist audit log")
	}
}
