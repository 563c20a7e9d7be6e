package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nekogravitycat/space-reservation-backend/internal/app"
	"github.com/nekogravitycat/space-reservation-backend/internal/config"
	"github.com/nekogravitycat/space-reservation-backend/internal/db"
	"github.com/nekogravitycat/space-reservation-backend/internal/lock"
	"github.com/nekogravitycat/space-reservation-backend/internal/logging"
	"github.com/nekogravitycat/space-reservation-backend/internal/notify"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.IsProduction)
	ctx = logger.WithContext(ctx)

	containerCfg := app.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		JWTSecret:      cfg.JWTSecret,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}

	// Connect DB
	if cfg.StorageBackend == config.StoragePostgres {
		pool, err := db.NewPool(ctx, cfg.DBDSN, cfg.DBMaxConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to db")
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate db")
		}
		containerCfg.DBPool = pool
	} else {
		logger.Warn().Msg("using in-memory storage; data is lost on restart")
	}

	// Per-resource lock
	if cfg.LockBackend == config.LockRedis {
		client := lock.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer client.Close()

		if err := lock.Ping(ctx, client); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect to redis")
		}
		containerCfg.Locker = lock.NewRedisLocker(client, cfg.LockTTL)
		containerCfg.HealthCheck = func(ctx context.Context) error { return lock.Ping(ctx, client) }
	}

	// Event publishing
	if cfg.RabbitMQURL != "" {
		publisher := notify.NewRabbitPublisher(cfg.RabbitMQURL)
		if err := publisher.Connect(); err != nil {
			// Publishing reconnects lazily; the API stays up without the broker.
			logger.Error().Err(err).Msg("failed to connect to rabbitmq")
		}
		defer publisher.Close()
		containerCfg.Publisher = publisher
	}

	container := app.NewContainer(containerCfg)

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in separate goroutine
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("storage", cfg.StorageBackend).Str("lock", cfg.LockBackend).Msg("server running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited gracefully")
}
