package handler

import (
	"custodial-wallet-engine/config"
	"custodial-wallet-engine/internal/adapter/http/middleware"
	redisStore "custodial-wallet-engine/internal/adapter/storage/redis"
	"custodial-wallet-engine/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	IdentityRepo ports.IdentityRepository
	WalletSvc    ports.WalletService
	PaymentSvc   ports.PaymentService
	LedgerSvc    ports.LedgerService
	TokenSvc     ports.TokenService
	ChainCfg     config.ChainConfig

	GatewayKey     string                     // empty = session endpoint disabled
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	AuditSvc       ports.AuditService         // nil = audit trail disabled
	Metrics        *middleware.Metrics        // nil = metrics disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Audit trail (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditTrail(deps.AuditSvc))
	}

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Session bootstrap (gateway-key authenticated) ---
	if deps.GatewayKey != "" {
		sessionHandler := NewSessionHandler(deps.IdentityRepo, deps.WalletSvc, deps.TokenSvc, deps.Logger)
		gatewayAuth := middleware.GatewayAuth(deps.GatewayKey, deps.Logger)
		v1.POST("/session", gatewayAuth, rl("session"), sessionHandler.Create)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.WalletSvc, deps.ChainCfg)
	paymentHandler := NewPaymentHandler(deps.PaymentSvc, deps.Metrics)
	ledgerHandler := NewLedgerHandler(deps.LedgerSvc)

	wallets := v1.Group("/wallets", jwtAuth)
	{
		wallets.POST("", rl("wallets"), walletHandler.Create)
		wallets.POST("/claim", rl("wallets"), walletHandler.Claim)
		wallets.GET("", rl("wallets"), walletHandler.Get)
		wallets.GET("/export-key", rl("wallets_export"), walletHandler.ExportKey)
		wallets.GET("/balance", rl("wallets"), walletHandler.Balance)
	}

	payments := v1.Group("/payments", jwtAuth)
	{
		payments.POST("/quote", rl("payments_quote"), paymentHandler.Quote)
		payments.POST("/:id/confirm", rl("payments_confirm"), paymentHandler.Confirm)
		payments.POST("/:id/cancel", rl("payments_quote"), paymentHandler.Cancel)
		payments.GET("/:id", rl("payments_quote"), paymentHandler.Get)
	}

	ledger := v1.Group("/ledger", jwtAuth)
	{
		ledger.GET("", rl("ledger"), ledgerHandler.History)
		ledger.GET("/stats", rl("ledger"), ledgerHandler.Stats)
	}

	return r
}
