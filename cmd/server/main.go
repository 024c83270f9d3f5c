package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/squarewire/squarewire/internal/api"
	"github.com/squarewire/squarewire/internal/config"
	"github.com/squarewire/squarewire/internal/handlers"
	"github.com/squarewire/squarewire/internal/platform"
	"github.com/squarewire/squarewire/internal/session"
	"github.com/squarewire/squarewire/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Bridge to the protocol sidecar
	bridge := platform.NewBridge(cfg.BridgeURL)
	if err := bridge.Ping(ctx); err != nil {
		logger.Warn().Err(err).Str("url", cfg.BridgeURL).Msg("bridge not reachable yet")
	} else {
		logger.Info().Str("url", cfg.BridgeURL).Msg("connected to bridge")
	}

	// Session store
	sessions := session.NewStore(bridge, logger)
	defer sessions.Close()

	// Audit store: PostgreSQL when configured, SQLite when a path is given
	var audit store.AuditStore
	switch {
	case cfg.DatabaseURL != "":
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		audit = pg
		logger.Info().Msg("audit log: PostgreSQL")
	case cfg.AuditDBPath != "":
		sq, err := store.NewSQLiteStore(ctx, cfg.AuditDBPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		audit = sq
		logger.Info().Str("path", cfg.AuditDBPath).Msg("audit log: SQLite")
	default:
		logger.Info().Msg("audit log disabled")
	}
	if audit != nil {
		defer audit.Close()
	}

	// Redis for rate limiting
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisClient.Close()
		logger.Info().Msg("connected to Redis")
	}

	// Create router
	h := handlers.NewHandler(sessions, audit, bridge, logger)
	router := api.NewRouter(logger, h, redisClient, cfg)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // attachment inlining can be slow
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting SquareWire gateway")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
