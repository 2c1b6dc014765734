package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ledgerlink/ledgerlink/internal/apikey"
	"github.com/ledgerlink/ledgerlink/internal/infra/postgres"
	infraredis "github.com/ledgerlink/ledgerlink/internal/infra/redis"
	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/internal/transport/httpapi"
	"github.com/ledgerlink/ledgerlink/internal/transport/httpapi/handler"
	"github.com/ledgerlink/ledgerlink/internal/transport/httpapi/middleware"
	"github.com/ledgerlink/ledgerlink/pkg/config"
	"github.com/ledgerlink/ledgerlink/pkg/logger"
)

func main() {
	// Create context that listens for termination signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewDefault(cfg.Env)
	log.Info("Starting ledgerlink API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Initialize database connection pool
	db, err := postgres.NewPool(ctx, postgres.Config{
		URL:             cfg.DatabaseURL,
		MaxConns:        int32(cfg.DBMaxConns),
		MinConns:        int32(cfg.DBMinConns),
		MaxConnLifetime: cfg.DBMaxConnLifetime,
		MaxConnIdleTime: cfg.DBMaxConnIdleTime,
	})
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("Database connection established")

	// Initialize the optional Redis-backed auth cache. A missing or
	// unreachable Redis degrades to repository-only authentication.
	var authCache apikey.AuthCache
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("Redis unreachable, auth cache disabled", "error", err)
			_ = redisClient.Close()
			redisClient = nil
		} else {
			authCache = infraredis.NewAuthCacheWithTTL(redisClient, cfg.AuthCacheTTL, log)
			log.Info("Redis connection established")
		}
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Repository and services
	repo := postgres.NewRepository(db.Pool)
	postingSvc := ledger.NewPostingService(repo, log)
	ledgerSvc := ledger.NewLedgerService(repo, log)
	readSvc := ledger.NewReadService(repo, log)
	apiKeySvc := apikey.NewService(repo, authCache, log)

	// Zero-state provisioning of the first tenant and admin key
	if cfg.BootstrapEnabled() {
		created, err := apiKeySvc.BootstrapInitialAdmin(ctx,
			cfg.BootstrapTenantName, cfg.BootstrapKeyName, cfg.BootstrapAPIKey)
		if err != nil {
			log.Error("Bootstrap of initial admin key failed", "error", err)
			os.Exit(1)
		}
		if !created {
			log.Info("Bootstrap skipped, API keys already exist")
		}
	}

	// HTTP surface
	router := httpapi.NewRouter(httpapi.Config{
		Logger:             log,
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
		ReadyHandler:       handler.NewReadyHandler(db),
		LedgerHandler:      handler.NewLedgerHandler(ledgerSvc, readSvc),
		AccountHandler:     handler.NewAccountHandler(ledgerSvc, readSvc),
		TransactionHandler: handler.NewTransactionHandler(postingSvc, readSvc),
		EntryHandler:       handler.NewEntryHandler(readSvc),
		APIKeyHandler:      handler.NewAPIKeyHandler(apiKeySvc),
		AuthMiddleware:     middleware.APIKeyAuth(apiKeySvc),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for termination signal
	<-ctx.Done()
	log.Info("Shutdown signal received")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped gracefully")
}
