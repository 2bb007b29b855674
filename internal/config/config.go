// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/aristath/tickerdash/internal/utils"
)

// Session store backends
const (
	SessionBackendSQLite = "sqlite"
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	LogLevel string
	LogFile  string
	Port     int
	DevMode  bool

	// AllowedOrigins are host patterns allowed to open session websockets
	// from another origin.
	AllowedOrigins []string

	Session  SessionConfig
	Redis    RedisConfig
	Gateway  GatewayConfig
	Market   MarketConfig
	Schedule ScheduleConfig
}

// SessionConfig controls where dashboard sessions live and for how long.
type SessionConfig struct {
	Backend string
	TTL     time.Duration
}

// RedisConfig is only consulted when the session backend is redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GatewayConfig points the request gateway at an aggregation endpoint.
type GatewayConfig struct {
	URL     string
	Timeout time.Duration
}

// MarketConfig tunes the market data service.
type MarketConfig struct {
	Benchmark       string // Benchmark ticker for market averages and beta
	DefaultPeriod   string
	DefaultInterval string
	UpstreamTimeout time.Duration
	RiskFreeRate    float64 // Annual rate used by Sharpe and Sortino
}

// ScheduleConfig holds cron expressions (with seconds) for background jobs.
type ScheduleConfig struct {
	ClientDataCleanup string
	SessionSweep      string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("TICKERDASH_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("GO_PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		AllowedOrigins: utils.SplitList(getEnv("ALLOWED_ORIGINS", "")),
		Session: SessionConfig{
			Backend: getEnv("SESSION_BACKEND", SessionBackendSQLite),
			TTL:     getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Gateway: GatewayConfig{
			URL:     getEnv("GATEWAY_URL", "http://localhost:8001"),
			Timeout: getEnvAsDuration("GATEWAY_TIMEOUT", 30*time.Second),
		},
		Market: MarketConfig{
			Benchmark:       getEnv("BENCHMARK_TICKER", "SPY"),
			DefaultPeriod:   getEnv("MARKET_PERIOD", "1y"),
			DefaultInterval: getEnv("MARKET_INTERVAL", "1d"),
			UpstreamTimeout: getEnvAsDuration("UPSTREAM_TIMEOUT", 30*time.Second),
			RiskFreeRate:    getEnvAsFloat("RISK_FREE_RATE", 0.02),
		},
		Schedule: ScheduleConfig{
			ClientDataCleanup: getEnv("CLEANUP_SCHEDULE", "0 0 3 * * *"),
			SessionSweep:      getEnv("SESSION_SWEEP_SCHEDULE", "0 */10 * * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case SessionBackendSQLite, SessionBackendMemory:
	case SessionBackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when SESSION_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.Session.TTL)
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive, got %s", c.Gateway.Timeout)
	}
	if _, err := url.ParseRequestURI(c.Gateway.URL); err != nil {
		return fmt.Errorf("invalid GATEWAY_URL: %w", err)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid GO_PORT %d", c.Port)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
