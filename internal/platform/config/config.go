package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends accepted by LEDGER_STORE.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMySQL    = "mysql"
)

// Config holds application configuration.
type Config struct {
	Port         string
	IsProduction bool

	// Persistence
	LedgerStore   string
	DatabaseURL   string
	MySQLDSN      string
	MySQLLogLevel string
	RedisURL      string

	// Concurrency
	LockStrategy     string
	MaxRetries       int
	RetryBaseDelay   time.Duration
	LockTTL          time.Duration
	OperationTimeout time.Duration

	SeedFile string

	// Identity
	JWTSecret string
	JWTIssuer string

	RateLimit          string
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("LEDGER_STORE", StoreMemory)
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("MYSQL_DSN", "")
	v.SetDefault("MYSQL_LOG_LEVEL", "error")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("LEDGER_LOCK_STRATEGY", "optimistic")
	v.SetDefault("LEDGER_MAX_RETRIES", 3)
	v.SetDefault("LEDGER_RETRY_BASE_DELAY", "5ms")
	v.SetDefault("LEDGER_LOCK_TTL", "10s")
	v.SetDefault("LEDGER_OPERATION_TIMEOUT", "5s")
	v.SetDefault("LEDGER_SEED_FILE", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("RATE_LIMIT", "100-M")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")

	v.AutomaticEnv()

	cfg := &Config{
		Port:          v.GetString("PORT"),
		IsProduction:  v.GetBool("IS_PRODUCTION"),
		LedgerStore:   strings.ToLower(v.GetString("LEDGER_STORE")),
		DatabaseURL:   v.GetString("PGSQL_URL"),
		MySQLDSN:      v.GetString("MYSQL_DSN"),
		MySQLLogLevel: v.GetString("MYSQL_LOG_LEVEL"),
		RedisURL:      v.GetString("REDIS_URL"),
		LockStrategy:  strings.ToLower(v.GetString("LEDGER_LOCK_STRATEGY")),
		MaxRetries:    v.GetInt("LEDGER_MAX_RETRIES"),
		SeedFile:      v.GetString("LEDGER_SEED_FILE"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		JWTIssuer:     v.GetString("JWT_ISSUER"),
		RateLimit:     v.GetString("RATE_LIMIT"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	cfg.RetryBaseDelay = parseDuration(v, "LEDGER_RETRY_BASE_DELAY", 5*time.Millisecond)
	cfg.LockTTL = parseDuration(v, "LEDGER_LOCK_TTL", 10*time.Second)
	cfg.OperationTimeout = parseDuration(v, "LEDGER_OPERATION_TIMEOUT", 5*time.Second)

	for _, origin := range strings.Split(v.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	if cfg.JWTSecret == "" {
		log.Println("Warning: JWT_SECRET environment variable not set. Every authenticated route will reject requests.")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.LedgerStore {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("LEDGER_STORE=%s requires PGSQL_URL", c.LedgerStore)
		}
	case StoreMySQL:
		if c.MySQLDSN == "" {
			return fmt.Errorf("LEDGER_STORE=%s requires MYSQL_DSN", c.LedgerStore)
		}
	default:
		return fmt.Errorf("unknown LEDGER_STORE %q", c.LedgerStore)
	}

	switch c.LockStrategy {
	case "optimistic", "pessimistic":
	default:
		return fmt.Errorf("unknown LEDGER_LOCK_STRATEGY %q", c.LockStrategy)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("LEDGER_MAX_RETRIES must not be negative, got %d", c.MaxRetries)
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("LEDGER_OPERATION_TIMEOUT must be positive")
	}
	return nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback)
		return fallback
	}
	return d
}
