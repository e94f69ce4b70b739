package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Supported chat platforms
const (
	PlatformTelegram = "telegram"
	PlatformDiscord  = "discord"
)

// Config holds all application configuration
type Config struct {
	// Chat platform configuration
	Platform string `env:"PLATFORM" envDefault:"telegram"`
	BotToken string `env:"BOT_TOKEN"`
	OwnerID  int64  `env:"OWNER_ID"`

	// Optional audit journal; empty disables it
	DatabaseURL string `env:"DATABASE_URL"`

	// Optional NATS event publisher; empty disables it
	NATSURL string `env:"NATS_URL"`

	// Health endpoints
	Port     int `env:"PORT" envDefault:"10000"`
	GRPCPort int `env:"GRPC_PORT" envDefault:"0"`

	// Wager configuration
	WagerTimeout time.Duration `env:"WAGER_TIMEOUT" envDefault:"120s"`
	SettleDelay  time.Duration `env:"SETTLE_DELAY" envDefault:"1s"`

	DisplayTimezone string `env:"DISPLAY_TIMEZONE" envDefault:"Asia/Tehran"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development", "production" or "test"

	// OpenTelemetry metrics
	OTelEnabled              bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelExporterType         string `env:"OTEL_EXPORTER_TYPE" envDefault:"console"`
	OTelOTLPEndpoint         string `env:"OTEL_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelServiceName          string `env:"OTEL_SERVICE_NAME" envDefault:"betbot"`
	OTelExportIntervalMillis int    `env:"OTEL_EXPORT_INTERVAL_MS" envDefault:"10000"`
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

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			// In test environment, use a default test config instead of panicking
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// load reads an optional .env file and then the process environment
func load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("Failed to read .env file, using process environment")
	}
	return Parse()
}

// Parse builds a Config from the process environment and validates it
func Parse() (*Config, error) {
	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if config.Environment != "test" {
		if err := config.Validate(); err != nil {
			return nil, err
		}
	}
	return config, nil
}

// Validate checks the required keys and value ranges
func (c *Config) Validate() error {
	if c.Platform != PlatformTelegram && c.Platform != PlatformDiscord {
		return fmt.Errorf("PLATFORM must be %q or %q, got %q", PlatformTelegram, PlatformDiscord, c.Platform)
	}
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if c.OwnerID == 0 {
		return fmt.Errorf("OWNER_ID is required")
	}
	if c.WagerTimeout <= 0 {
		return fmt.Errorf("WAGER_TIMEOUT must be positive")
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("SETTLE_DELAY cannot be negative")
	}
	if _, err := time.LoadLocation(c.DisplayTimezone); err != nil {
		return fmt.Errorf("DISPLAY_TIMEZONE %q: %w", c.DisplayTimezone, err)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// Location returns the display time zone, falling back to UTC when the
// zone database is unavailable
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsProduction reports whether the bot runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Platform:        PlatformTelegram,
		BotToken:        "test-token",
		OwnerID:         1,
		Port:            10000,
		WagerTimeout:    120 * time.Second,
		SettleDelay:     0,
		DisplayTimezone: "UTC",
		LogLevel:        "info",
		Environment:     "test",
	}
}
