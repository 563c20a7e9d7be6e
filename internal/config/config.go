package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const PROD_STRING = "prod"

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	LockMemory = "memory"
	LockRedis  = "redis"
)

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	HTTPAddr     string

	StorageBackend string
	DBDSN          string
	DBMaxConns     int32

	JWTSecret string

	LockBackend   string
	LockTTL       time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitMQURL string

	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel  string
	LogFormat string
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg := &Config{}

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	cfg.IsProduction = getEnv("APP_ENV", "dev") == PROD_STRING

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Storage backend (default: postgres)
	cfg.StorageBackend = strings.ToLower(getEnv("STORAGE_BACKEND", StoragePostgres))
	switch cfg.StorageBackend {
	case StoragePostgres:
		// Database DSN is required for the postgres backend
		cfg.DBDSN = os.Getenv("DB_DSN")
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required")
		}
		maxConns, err := getEnvAsInt("DB_MAX_CONNS", 0)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
		}
		cfg.DBMaxConns = int32(maxConns)
	case StorageMemory:
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	// JWT secret is required for verifying tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	// Per-resource write lock (default: in-process)
	cfg.LockBackend = strings.ToLower(getEnv("LOCK_BACKEND", LockMemory))
	if cfg.LockBackend != LockMemory && cfg.LockBackend != LockRedis {
		return nil, fmt.Errorf("invalid LOCK_BACKEND %q", cfg.LockBackend)
	}

	ttl, err := time.ParseDuration(getEnv("LOCK_TTL", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOCK_TTL: %w", err)
	}
	cfg.LockTTL = ttl

	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB, err = getEnvAsInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	// Event publishing is disabled when empty
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", "")

	cfg.RateLimitRPS, err = getEnvAsFloat("RATE_LIMIT_RPS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	cfg.RateLimitBurst, err = getEnvAsInt("RATE_LIMIT_BURST", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid number: %w", key, valStr, err)
	}

	return val, nil
}
