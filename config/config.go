// Package config loads engine configuration from the environment, with an
// optional .env file for development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Backend selects the persistence backend.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendRedis    Backend = "redis"
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
)

// Config holds all engine configuration.
type Config struct {
	// Application
	App AppConfig

	// Storage backend selection and settings
	Storage StorageConfig

	// Engine behavior
	Engine EngineConfig

	// Feature Flags
	Features *FeatureFlags

	// Observability
	Observability ObservabilityConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string
	Environment Environment
	Debug       bool
	Version     string

	// Timezone used to derive day keys for streaks and daily counters.
	// Day boundaries follow the user's wall clock, not UTC.
	Timezone string
	Location *time.Location
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// Backend picks the store implementation.
	Backend Backend

	// SQLitePath is the database file for the sqlite backend.
	// ":memory:" gives an ephemeral database.
	SQLitePath string

	// Postgres settings. URL wins over individual fields when set.
	PostgresURL   string
	PostgresHost  string
	PostgresPort  int
	PostgresDB    string
	PostgresUser  string
	PostgresPass  string
	PostgresSSL   string
	PostgresTable string

	// Redis settings.
	RedisHost      string
	RedisPort      int
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string
	RedisPoolSize  int
}

// EngineConfig holds engine behavior settings.
type EngineConfig struct {
	// RolloverCheckInterval is how often the engine polls for a day change
	// to reset ephemeral daily counters. Zero disables the poller.
	RolloverCheckInterval time.Duration

	// NotificationBuffer bounds the pending-notification queue.
	NotificationBuffer int
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// Load loads configuration from the environment. A .env file in the working
// directory is merged in first when present; missing files are fine.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App:           loadAppConfig(),
		Storage:       loadStorageConfig(),
		Engine:        loadEngineConfig(),
		Features:      LoadFeatureFlags(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func loadAppConfig() AppConfig {
	env := Environment(getEnv("APP_ENV", "development"))
	timezone := getEnv("APP_TIMEZONE", "Local")

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.Local
	}

	return AppConfig{
		Name:        getEnv("APP_NAME", "extflex-engine"),
		Environment: env,
		Debug:       env == EnvDevelopment || getEnvBool("APP_DEBUG", false),
		Version:     getEnv("APP_VERSION", "0.1.0"),
		Timezone:    timezone,
		Location:    loc,
	}
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Backend:    Backend(getEnv("STORAGE_BACKEND", string(BackendMemory))),
		SQLitePath: getEnv("SQLITE_PATH", "extflex.db"),

		PostgresURL:   getEnv("DATABASE_URL", ""),
		PostgresHost:  getEnv("DB_HOST", "localhost"),
		PostgresPort:  getEnvInt("DB_PORT", 5432),
		PostgresDB:    getEnv("DB_NAME", "extflex"),
		PostgresUser:  getEnv("DB_USER", "postgres"),
		PostgresPass:  getEnv("DB_PASSWORD", ""),
		PostgresSSL:   getEnv("DB_SSLMODE", "disable"),
		PostgresTable: getEnv("DB_TABLE", "extflex_documents"),

		RedisHost:      getEnv("REDIS_HOST", "localhost"),
		RedisPort:      getEnvInt("REDIS_PORT", 6379),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "extflex:"),
		RedisPoolSize:  getEnvInt("REDIS_POOL_SIZE", 10),
	}
}

func loadEngineConfig() EngineConfig {
	return EngineConfig{
		RolloverCheckInterval: getEnvDuration("ENGINE_ROLLOVER_INTERVAL", time.Minute),
		NotificationBuffer:    getEnvInt("ENGINE_NOTIFICATION_BUFFER", 64),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	switch c.Storage.Backend {
	case BackendMemory, BackendRedis, BackendPostgres, BackendSQLite:
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_BACKEND %q is not one of memory, redis, postgres, sqlite", c.Storage.Backend))
	}

	if c.Storage.Backend == BackendPostgres && c.App.Environment == EnvProduction {
		if c.Storage.PostgresURL == "" && c.Storage.PostgresPass == "" {
			errs = append(errs, "DATABASE_URL or DB_PASSWORD is required for postgres in production")
		}
	}

	if c.Engine.NotificationBuffer < 1 {
		errs = append(errs, "ENGINE_NOTIFICATION_BUFFER must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// --- Helper functions for environment variable parsing ---

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
