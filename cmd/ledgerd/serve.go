package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"token-ledger/config"
	httpHandler "token-ledger/internal/adapter/http/handler"
	"token-ledger/internal/adapter/http/middleware"
	"token-ledger/internal/adapter/metrics"
	"token-ledger/internal/adapter/storage/memory"
	pgStorage "token-ledger/internal/adapter/storage/postgres"
	redisStorage "token-ledger/internal/adapter/storage/redis"
	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"
	"token-ledger/internal/ledger"
	"token-ledger/internal/service"
	"token-ledger/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var openAPIPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ledger HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			log, closer := logger.FromConfig(cfg.Log)
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, openAPIPath, log)
		},
	}
	config.RegisterFlags(cmd.Flags())
	cmd.Flags().StringVar(&openAPIPath, "openapi", "docs/api/openapi.yaml", "OpenAPI document served at /swagger/spec")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, openAPIPath string, log zerolog.Logger) error {
	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("version", version).
		Msg("Starting token ledger")

	// PostgreSQL holds principals and the audit trail, never balances.
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	defer pool.Close()
	if err := pgStorage.EnsureSchema(ctx, pool); err != nil {
		return err
	}

	principalRepo := pgStorage.NewPrincipalRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	healthCheckers := []ports.HealthChecker{pgStorage.NewHealthCheck(pool)}

	var (
		cache     ports.IdempotencyCache
		rateStore ports.RateLimitStore
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("connecting to Redis: %w", err)
		}
		defer rdb.Close()
		cache = redisStorage.NewIdempotencyCache(rdb)
		rateStore = redisStorage.NewRateLimitStore(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	} else {
		log.Warn().Msg("Redis disabled: rate limiting is per process and Idempotency-Key is ignored")
		rateStore = memory.NewRateLimitStore()
	}

	var (
		ledgerMetrics  ports.LedgerMetrics
		httpObserver   middleware.HTTPObserver
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		m, err := metrics.New()
		if err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}
		ledgerMetrics, httpObserver, metricsHandler = m, m, m.Handler()
	}

	ledgerSvc, err := initLedger(ctx, cfg, cache, ledgerMetrics, log)
	if err != nil {
		return err
	}

	hashSvc := service.NewArgon2HashService(hashParams(cfg.Hash))
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	authSvc := service.NewAuthService(principalRepo, hashSvc, tokenSvc)
	auditSvc := service.NewAuditService(auditRepo, log)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := auditSvc.Close(drainCtx); err != nil {
			log.Warn().Err(err).Msg("audit queue not fully drained")
		}
	}()

	if specBytes, err := os.ReadFile(openAPIPath); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI document loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI document not found, Swagger UI will be unavailable")
	}

	metricsPath := ""
	if metricsHandler != nil {
		metricsPath = cfg.Metrics.Path
	}
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		AuthSvc:        authSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateStore,
		HealthCheckers: healthCheckers,
		AuditSvc:       auditSvc,
		HTTPMetrics:    httpObserver,
		MetricsPath:    metricsPath,
		MetricsHandler: metricsHandler,
		TrustedProxies: cfg.Server.TrustedProxies,
		Mode:           cfg.Server.Mode,
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server exited")
	return nil
}

func hashParams(cfg config.HashConfig) service.Argon2Params {
	return service.Argon2Params{
		MemoryKB:   cfg.MemoryKB,
		Iterations: cfg.Iterations,
		Threads:    cfg.Threads,
	}
}

// initLedger builds the in-memory ledger from cfg.Token and runs the one-time
// initialization with cfg.Ledger.Owner as minting authority.
func initLedger(
	ctx context.Context,
	cfg *config.Config,
	cache ports.IdempotencyCache,
	m ports.LedgerMetrics,
	log zerolog.Logger,
) (*service.LedgerServiceImpl, error) {
	owner, err := domain.ParseAccountID(cfg.Ledger.Owner)
	if err != nil {
		return nil, fmt.Errorf("ledger.owner: %w", err)
	}

	l := ledger.New(ledger.Metadata{
		Name:     cfg.Token.Name,
		Symbol:   cfg.Token.Symbol,
		Decimals: cfg.Token.Decimals,
	}, cfg.Token.InitialSupply)

	svc := service.NewLedgerService(l, cache, m, log)
	if err := svc.Initialize(ctx, owner); err != nil {
		return nil, err
	}
	return svc, nil
}
