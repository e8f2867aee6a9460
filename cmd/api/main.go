package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"custodial-wallet-engine/config"
	"custodial-wallet-engine/internal/adapter/chain"
	httpHandler "custodial-wallet-engine/internal/adapter/http/handler"
	"custodial-wallet-engine/internal/adapter/http/middleware"
	"custodial-wallet-engine/internal/adapter/queue/rabbitmq"
	pgStorage "custodial-wallet-engine/internal/adapter/storage/postgres"
	redisStorage "custodial-wallet-engine/internal/adapter/storage/redis"
	"custodial-wallet-engine/internal/core/ports"
	"custodial-wallet-engine/internal/service"
	"custodial-wallet-engine/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Custodial Wallet Engine")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	identityRepo := pgStorage.NewIdentityRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	pendingRepo := pgStorage.NewPendingWalletRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	notificationRepo := pgStorage.NewNotificationRepo(pool)
	auditRepo := pgStorage.NewAuditRepository(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	intentStore := redisStorage.NewIntentStore(rdb)
	executionGuard := redisStorage.NewExecutionGuard(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Chain RPC client serves as both balance oracle and submitter
	rpcClient := chain.NewRPCClient(cfg.Chain, log)

	// Optional AMQP delivery channel for notifications
	var deliverer ports.Deliverer
	if cfg.AMQP.Enabled {
		publisher, err := rabbitmq.NewPublisher(cfg.AMQP, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to AMQP broker")
		}
		defer publisher.Close()
		deliverer = publisher
		log.Info().Str("queue", cfg.AMQP.Queue).Msg("AMQP delivery channel connected")
	} else {
		log.Info().Msg("AMQP disabled, notifications queue without push delivery")
	}

	// Initialize core services
	cipherSvc, err := service.NewKeyVaultCipherService(cfg.KeyVault)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize key vault cipher")
	}
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize business services
	notificationSvc := service.NewNotificationService(notificationRepo, deliverer, log)
	ledgerSvc := service.NewLedgerService(ledgerRepo, identityRepo, walletRepo, transactor, log)
	walletSvc := service.NewWalletService(identityRepo, walletRepo, pendingRepo, cipherSvc, rpcClient, notificationSvc, ledgerSvc, log)
	feeEstimator := service.NewFeeEstimator(cfg.Chain)
	balanceValidator := service.NewBalanceValidator(rpcClient, cfg.Chain, log)
	transferExecutor := service.NewTransferExecutor(identityRepo, walletRepo, pendingRepo, walletSvc, cipherSvc, rpcClient, cfg.Chain, log)
	paymentSvc := service.NewPaymentService(
		identityRepo,
		walletSvc,
		transferExecutor,
		feeEstimator,
		balanceValidator,
		intentStore,
		executionGuard,
		ledgerSvc,
		notificationSvc,
		cfg.Chain,
		log,
	)
	auditSvc := service.NewAuditService(auditRepo, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Prometheus metrics
	metrics := middleware.NewMetrics(prometheus.DefaultRegisterer)

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	if cfg.Server.GatewayKey == "" {
		log.Warn().Msg("No gateway key configured, session endpoint disabled")
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		IdentityRepo:   identityRepo,
		WalletSvc:      walletSvc,
		PaymentSvc:     paymentSvc,
		LedgerSvc:      ledgerSvc,
		TokenSvc:       tokenSvc,
		ChainCfg:       cfg.Chain,
		GatewayKey:     cfg.Server.GatewayKey,
		RateLimitStore: rateLimitStore,
		AuditSvc:       auditSvc,
		Metrics:        metrics,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
