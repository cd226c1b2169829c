package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/playerbank/internal/adapter/http"
	"github.com/iho/playerbank/internal/adapter/http/handler"
	"github.com/iho/playerbank/internal/adapter/http/middleware"
	fileRepo "github.com/iho/playerbank/internal/adapter/repository/file"
	redisRepo "github.com/iho/playerbank/internal/adapter/repository/redis"
	"github.com/iho/playerbank/internal/infrastructure/config"
	"github.com/iho/playerbank/internal/infrastructure/lockmap"
	"github.com/iho/playerbank/internal/infrastructure/logger"
	"github.com/iho/playerbank/internal/infrastructure/metrics"
	"github.com/iho/playerbank/internal/infrastructure/redis"
	"github.com/iho/playerbank/internal/session"
	"github.com/iho/playerbank/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	log.Logger = appLogger

	ctx := context.Background()

	// Metrics
	m := metrics.New()

	// File-backed record store
	retrier := fileRepo.NewRetrier(logger.Component(appLogger, "retrier")).
		WithMaxRetries(cfg.SaveMaxRetries)
	store, err := fileRepo.NewRecordRepository(
		cfg.DataDir,
		fileRepo.Defaults{StartingBankBalance: cfg.StartingBank()},
		retrier,
		logger.Component(appLogger, "coldstore"),
		m,
	)
	if err != nil {
		appLogger.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("failed to open record store")
	}
	store.WithSaveTimeout(cfg.SaveTimeout)
	appLogger.Info().Str("dir", cfg.DataDir).Msg("record store ready")

	// One lock map serializes session attach/detach and ledger mutations
	// of the same identity.
	locks := lockmap.New()

	// Session registry pins live records in memory
	registry := session.NewRegistry(store, locks, logger.Component(appLogger, "session"), m)

	// Background autosave of pinned records through the worker pool
	runCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	dispatcher := session.NewDispatcher(runCtx, cfg.WorkerCount, cfg.QueueSize, logger.Component(appLogger, "dispatcher"))
	defer dispatcher.Stop()

	if cfg.AutosaveInterval > 0 {
		autosaver := session.NewAutosaver(registry, store, dispatcher, cfg.AutosaveInterval, logger.Component(appLogger, "autosave"))
		go autosaver.Run(runCtx)
	}

	// Use cases
	ledgerUC := usecase.NewLedgerUseCase(store, registry, locks, cfg.RoundingPlaces, logger.Component(appLogger, "ledger"), m)
	transferUC := usecase.NewTransferUseCase(ledgerUC, fileRepo.NewULIDGenerator(), logger.Component(appLogger, "transfer"), m)

	// Optional redis-backed idempotency for mutating API requests
	var idempotencyStore usecase.IdempotencyStore
	var healthHandler *handler.HealthHandler
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			appLogger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		appLogger.Info().Msg("connected to redis")

		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
		healthHandler = handler.NewHealthHandler(cfg.DataDir, redisClient)
	} else {
		healthHandler = handler.NewHealthHandler(cfg.DataDir, nil)
	}

	// Router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		LedgerHandler:    handler.NewLedgerHandler(ledgerUC),
		TransferHandler:  handler.NewTransferHandler(transferUC),
		SessionHandler:   handler.NewSessionHandler(registry),
		HealthHandler:    healthHandler,
		Logger:           logger.Component(appLogger, "http"),
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	go func() {
		appLogger.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("server forced to shutdown")
	}

	// Every pinned record gets a final persist before exit.
	if err := registry.DetachAll(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("final persist failed for at least one session")
		os.Exit(1)
	}

	appLogger.Info().Msg("server stopped")
}
