// Package config loads the server configuration from the environment and an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const defaultAPIToken = "dev-token"

// Config holds every setting the server needs
type Config struct {
	DBConnStr string
	GRPCPort  string
	APIToken  string
	LogLevel  string

	MarketDataBaseURL string
	MarketDataTimeout time.Duration

	CoverageThreshold  float64
	CoverageBatchSize  int
	CoverageBatchDelay time.Duration

	StatsCacheCapacity int
	StatsCacheTTL      time.Duration

	SeedLookbackDays int
	SeedOnStartup    bool
}

// Load reads .env (if present) and then the process environment.
// Missing or malformed values fall back to defaults with a warning.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded, relying on environment variables", "error", err)
	}

	cfg := &Config{
		DBConnStr: dbConnectionString(),
		GRPCPort:  getEnv("GRPC_PORT", "8080"),
		APIToken:  getEnv("API_TOKEN", defaultAPIToken),
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		MarketDataBaseURL: getEnv("MARKET_DATA_BASE_URL", "https://query2.finance.yahoo.com"),
		MarketDataTimeout: getEnvAsDuration("MARKET_DATA_TIMEOUT", 20*time.Second),

		CoverageThreshold:  getEnvAsFloat("COVERAGE_THRESHOLD", 80),
		CoverageBatchSize:  getEnvAsInt("COVERAGE_BATCH_SIZE", 5),
		CoverageBatchDelay: getEnvAsDuration("COVERAGE_BATCH_DELAY", 250*time.Millisecond),

		StatsCacheCapacity: getEnvAsInt("STATS_CACHE_CAPACITY", 1000),
		StatsCacheTTL:      getEnvAsDuration("STATS_CACHE_TTL", 15*time.Minute),

		SeedLookbackDays: getEnvAsInt("SEED_LOOKBACK_DAYS", 365),
		SeedOnStartup:    getEnvAsBool("SEED_ON_STARTUP", true),
	}

	if cfg.APIToken == defaultAPIToken {
		slog.Warn("using default API_TOKEN, set API_TOKEN for production")
	}

	return cfg
}

// GRPCAddress returns the listen address for the gRPC server
func (c *Config) GRPCAddress() string {
	return ":" + c.GRPCPort
}

// dbConnectionString prefers DB_CONN_STR and otherwise builds one from the DB_* variables
func dbConnectionString() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "wealthwise"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil && value > 0 {
		return value
	}
	slog.Warn("invalid integer value, using default", "key", key, "value", valueStr, "default", fallback)
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil && value >= 0 {
		return value
	}
	slog.Warn("invalid number value, using default", "key", key, "value", valueStr, "default", fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil && value >= 0 {
		return value
	}
	slog.Warn("invalid duration value, using default", "key", key, "value", valueStr, "default", fallback.String())
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	slog.Warn("invalid boolean value, using default", "key", key, "value", valueStr, "default", fallback)
	return fallback
}
