package handler

import (
	"net/http"

	"token-ledger/internal/adapter/http/middleware"
	"token-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	AuthSvc        ports.AuthService
	TokenSvc       ports.TokenService
	RateLimitStore ports.RateLimitStore                // nil = rate limiting disabled
	RateLimitRules map[string]middleware.RateLimitRule // nil = defaults
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService      // nil = audit logging disabled
	HTTPMetrics    middleware.HTTPObserver // nil = no request metrics
	MetricsPath    string                  // "" = no metrics endpoint
	MetricsHandler http.Handler
	TrustedProxies []string // nil = client IP is the TCP peer
	Mode           string   // gin mode, defaults to release
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	mode := deps.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	r := gin.New()
	// Rate limit keys and audit rows use ClientIP, so forwarded headers
	// count only when they come from a configured proxy.
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		deps.Logger.Error().Err(err).Msg("Invalid trusted proxies, trusting none")
		_ = r.SetTrustedProxies(nil)
	}

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit
	if deps.HTTPMetrics != nil {
		r.Use(middleware.HTTPMetrics(deps.HTTPMetrics))
	}

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.MetricsPath != "" && deps.MetricsHandler != nil {
		r.GET(deps.MetricsPath, gin.WrapH(deps.MetricsHandler))
	}

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	limits := middleware.NewRateLimits(deps.RateLimitStore, deps.RateLimitRules, deps.Logger)

	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", limits.For(middleware.GroupAuthRegister), authHandler.Register)
		auth.POST("/login", limits.For(middleware.GroupAuthLogin), authHandler.Login)
	}

	ledgerHandler := NewLedgerHandler(deps.LedgerSvc)
	v1.GET("/token", limits.For(middleware.GroupReads), ledgerHandler.TokenInfo)
	v1.GET("/accounts/:account/balance", limits.For(middleware.GroupReads), ledgerHandler.BalanceOf)

	// --- JWT-authenticated routes: the caller is the token subject ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	authed := v1.Group("", jwtAuth, ledgerHandler.RequireInitialized)
	{
		authed.GET("/accounts/me", limits.For(middleware.GroupReads), ledgerHandler.Me)
		authed.POST("/transfers", limits.For(middleware.GroupTransfers), ledgerHandler.Transfer)
		authed.POST("/mint", limits.For(middleware.GroupMint), ledgerHandler.Mint)
	}

	return r
}
