package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"predictions/database"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// HTTP API configuration
	HTTPAddr  string
	JWTSecret string

	// Settlement configuration
	DefaultFeeRate  decimal.Decimal // Fee rate applied to events created without an explicit rate
	StaleLockGrace  time.Duration   // How long an event may sit in LOCKED before it is flagged
	SweepSchedule   string          // Cron spec (with seconds) for the lifecycle sweep
	SweepLockTTL    time.Duration   // TTL of the cross-instance sweep lock
	StartingPoints  int64

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated), empty disables publishing

	// Redis configuration
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	LeaderboardCacheTTL time.Duration

	// Discord webhook used for admin notifications
	DiscordWebhookURL string

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	LogLevel string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// load loads configuration from environment variables
func load() (*Config, error) {
	// .env is optional; real environment variables always win
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		HTTPAddr:  getEnvWithDefault("HTTP_ADDR", ":8080"),
		JWTSecret: os.Getenv("JWT_SECRET"),

		DefaultFeeRate: decimal.RequireFromString("0.05"),
		StaleLockGrace: 24 * time.Hour,
		SweepSchedule:  getEnvWithDefault("SWEEP_SCHEDULE", "0 * * * * *"),
		SweepLockTTL:   50 * time.Second,
		StartingPoints: 1000,

		NATSServers: os.Getenv("NATS_SERVERS"),

		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		LeaderboardCacheTTL: 15 * time.Second,

		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),

		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "predictions"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_OTLP_ENDPOINT", "otel-collector:4317"),
		OTelExportIntervalMillis: 30000,

		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if rate := os.Getenv("DEFAULT_FEE_RATE"); rate != "" {
		parsed, err := decimal.NewFromString(rate)
		if err != nil {
			return nil, fmt.Errorf("invalid DEFAULT_FEE_RATE %q: %w", rate, err)
		}
		config.DefaultFeeRate = parsed
	}
	if grace := os.Getenv("STALE_LOCK_GRACE"); grace != "" {
		if parsed, err := time.ParseDuration(grace); err == nil {
			config.StaleLockGrace = parsed
		}
	}
	if ttl := os.Getenv("LEADERBOARD_CACHE_TTL"); ttl != "" {
		if parsed, err := time.ParseDuration(ttl); err == nil {
			config.LeaderboardCacheTTL = parsed
		}
	}
	if points := os.Getenv("STARTING_POINTS"); points != "" {
		if parsed, err := strconv.ParseInt(points, 10, 64); err == nil {
			config.StartingPoints = parsed
		}
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if parsed, err := strconv.Atoi(db); err == nil {
			config.RedisDB = parsed
		}
	}
	if interval := os.Getenv("OTEL_EXPORT_INTERVAL_MS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.OTelExportIntervalMillis = parsed
		}
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.DefaultFeeRate.IsNegative() || config.DefaultFeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("DEFAULT_FEE_RATE must be in [0, 1), got %s", config.DefaultFeeRate)
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if strings.TrimSpace(config.JWTSecret) == "" {
			return nil, fmt.Errorf("JWT_SECRET is required")
		}
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:         "test",
		HTTPAddr:            ":0",
		JWTSecret:           "test-secret",
		DefaultFeeRate:      decimal.RequireFromString("0.05"),
		StaleLockGrace:      24 * time.Hour,
		SweepSchedule:       "0 * * * * *",
		SweepLockTTL:        50 * time.Second,
		StartingPoints:      1000,
		LeaderboardCacheTTL: 15 * time.Second,
		OTelServiceName:     "predictions-test",
		OTelExporterType:    "none",
		LogLevel:            "debug",
	}
}
