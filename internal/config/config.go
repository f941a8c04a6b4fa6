package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverNone     = "none"
)

const defaultJWTSecret = "your_jwt_secret_minimum_32_chars_here_change_this"

type Config struct {
	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Security
	JWTSecret string

	// Application
	AppEnv      string
	LogLevel    string
	MetricsAddr string

	// Islands
	IslandWorld           string
	StarterSize           int
	IslandSpacing         int
	SpawnY                int
	DeleteCooldownHours   int
	InviteTTLMinutes      int
	WorkerPoolSize        int
	CacheStatsIntervalSec int

	// Rate Limiting
	RateLimitPerPlayer int
	RateLimitWindowSec int
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		DBDriver:   getEnv("DB_DRIVER", DriverPostgres),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "islands"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "islands_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "islands.sqlite"),

		JWTSecret: getEnv("JWT_SECRET_KEY", ""),

		AppEnv:      getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		IslandWorld:           getEnv("ISLAND_WORLD", "islands"),
		StarterSize:           getEnvInt("ISLAND_STARTER_SIZE", 100),
		IslandSpacing:         getEnvInt("ISLAND_SPACING", 1000),
		SpawnY:                getEnvInt("ISLAND_SPAWN_Y", 64),
		DeleteCooldownHours:   getEnvInt("ISLAND_DELETE_COOLDOWN_HOURS", 168),
		InviteTTLMinutes:      getEnvInt("ISLAND_INVITE_TTL_MINUTES", 60),
		WorkerPoolSize:        getEnvInt("WORKER_POOL_SIZE", 8),
		CacheStatsIntervalSec: getEnvInt("CACHE_STATS_INTERVAL_SECONDS", 300),

		RateLimitPerPlayer: getEnvInt("RATE_LIMIT_PER_PLAYER", 10),
		RateLimitWindowSec: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case DriverNone:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET_KEY must be at least 32 characters")
	}
	if c.StarterSize <= 0 {
		return fmt.Errorf("ISLAND_STARTER_SIZE must be positive")
	}
	if c.IslandSpacing < c.StarterSize {
		return fmt.Errorf("ISLAND_SPACING must not be smaller than ISLAND_STARTER_SIZE")
	}
	if c.DeleteCooldownHours <= 0 {
		return fmt.Errorf("ISLAND_DELETE_COOLDOWN_HOURS must be positive")
	}
	if c.WorkerPoolSize <= 0 {
		return fmt.Errorf("WORKER_POOL_SIZE must be positive")
	}
	if c.RateLimitPerPlayer <= 0 || c.RateLimitWindowSec <= 0 {
		return fmt.Errorf("rate limit settings must be positive")
	}
	return nil
}

func (c *Config) ValidateProductionSecurity() error {
	if c.AppEnv != "production" {
		return nil
	}

	if c.DBDriver == DriverNone {
		return fmt.Errorf("DB_DRIVER must not be 'none' in production")
	}
	if c.DBDriver == DriverPostgres && c.DBSSLMode != "require" {
		return fmt.Errorf("DB_SSLMODE must be 'require' in production")
	}
	if c.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET_KEY must be changed from default in production")
	}

	return nil
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) DeleteCooldown() time.Duration {
	return time.Duration(c.DeleteCooldownHours) * time.Hour
}

func (c *Config) InviteTTL() time.Duration {
	return time.Duration(c.InviteTTLMinutes) * time.Minute
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSec) * time.Second
}

func (c *Config) CacheStatsInterval() time.Duration {
	return time.Duration(c.CacheStatsIntervalSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
