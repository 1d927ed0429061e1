package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Store backend selection values for Config.StoreMode.
const (
	StoreModeREST     = "rest"
	StoreModePostgres = "postgres"
	StoreModeMemory   = "memory"
)

// Config holds all configuration for the front desk service.
type Config struct {
	// StoreMode selects the record store backend: rest, postgres or memory.
	StoreMode string
	// StoreURL and StoreAPIKey configure the REST store backend.
	StoreURL    string
	StoreAPIKey string
	// DatabaseURL configures the postgres store backend.
	DatabaseURL string

	Port        string
	MetricsPort string
	LogLevel    string

	// ExpiryWarnDays is the window, in days, within which a membership is
	// reported as Expiring Soon.
	ExpiryWarnDays int
}

// Load reads configuration from the environment. A .env file is loaded
// first if present; real environment variables win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		StoreMode:   getEnvOrDefault("STORE_MODE", StoreModeREST),
		StoreURL:    os.Getenv("STORE_URL"),
		StoreAPIKey: os.Getenv("STORE_API_KEY"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Port:        getEnvOrDefault("PORT", "8080"),
		MetricsPort: getEnvOrDefault("METRICS_PORT", "9090"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
	}

	warnDays := getEnvOrDefault("EXPIRY_WARN_DAYS", "7")
	n, err := strconv.Atoi(warnDays)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("EXPIRY_WARN_DAYS must be a non-negative integer, got %q", warnDays)
	}
	cfg.ExpiryWarnDays = n

	switch cfg.StoreMode {
	case StoreModeREST:
		if cfg.StoreURL == "" {
			return nil, fmt.Errorf("STORE_URL environment variable is required when STORE_MODE=rest")
		}
	case StoreModePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required when STORE_MODE=postgres")
		}
	case StoreModeMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_MODE %q", cfg.StoreMode)
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
