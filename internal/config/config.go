package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cmlabs-hris/hris-payments-go/internal/pkg/validator"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Database  DatabaseConfig
	JWT       JWTConfig
	App       AppConfig
	Redis     RedisConfig
	SMTP      SMTPConfig
	Payment   PaymentConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME" envDefault:"cmlabs_hris"`
	SSLMode  string `env:"DB_SSL_MODE" envDefault:"disable"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string        `env:"JWT_SECRET_KEY"`
	AccessExpiration time.Duration `env:"JWT_ACCESS_EXPIRATION_TIME" envDefault:"1h"`
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int    `env:"APP_PORT" envDefault:"8080"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// SMTPConfig holds outgoing mail settings. An empty Host disables sending.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"no-reply@cmlabs.co"`
	FromName string `env:"SMTP_FROM_NAME" envDefault:"HRIS Payroll"`
}

// PaymentConfig holds payment calculation bounds and scheduler settings
type PaymentConfig struct {
	MaxTotalEarnings  decimal.Decimal `env:"PAYMENT_MAX_TOTAL_EARNINGS" envDefault:"999999.99"`
	MaxTotalHours     decimal.Decimal `env:"PAYMENT_MAX_TOTAL_HOURS" envDefault:"744"`
	MaxShiftsCount    int             `env:"PAYMENT_MAX_SHIFTS" envDefault:"500"`
	MaxShiftHours     decimal.Decimal `env:"PAYMENT_MAX_SHIFT_HOURS" envDefault:"24"`
	CheckInterval     time.Duration   `env:"PAYMENT_CHECK_INTERVAL" envDefault:"1h"`
	LockTTL           time.Duration   `env:"PAYMENT_LOCK_TTL" envDefault:"10m"`
	SystemInitiatorID int64           `env:"PAYMENT_SYSTEM_INITIATOR_ID" envDefault:"0"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

type RateLimitConfig struct {
	// requests per minute per user on the calculate endpoint
	Calculate int `env:"CALCULATE_RATE_LIMIT" envDefault:"10"`
}

// Load reads an optional .env file, then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
		slog.Debug("No .env file found, using process environment")
	}

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Parse builds a Config from environment variables only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(decimal.Decimal{}): func(v string) (any, error) {
				return decimal.NewFromString(v)
			},
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.JWT.AccessExpiration <= 0 {
		return fmt.Errorf("JWT_ACCESS_EXPIRATION_TIME must be positive")
	}
	if !c.Payment.MaxTotalEarnings.IsPositive() {
		return fmt.Errorf("PAYMENT_MAX_TOTAL_EARNINGS must be positive")
	}
	if !c.Payment.MaxTotalHours.IsPositive() {
		return fmt.Errorf("PAYMENT_MAX_TOTAL_HOURS must be positive")
	}
	if c.Payment.MaxShiftsCount <= 0 {
		return fmt.Errorf("PAYMENT_MAX_SHIFTS must be positive")
	}
	if !c.Payment.MaxShiftHours.IsPositive() {
		return fmt.Errorf("PAYMENT_MAX_SHIFT_HOURS must be positive")
	}
	if c.Payment.CheckInterval <= 0 {
		return fmt.Errorf("PAYMENT_CHECK_INTERVAL must be positive")
	}
	if c.Payment.LockTTL <= 0 {
		return fmt.Errorf("PAYMENT_LOCK_TTL must be positive")
	}
	if c.Payment.SystemInitiatorID < 0 {
		return fmt.Errorf("PAYMENT_SYSTEM_INITIATOR_ID must not be negative")
	}
	if c.RateLimit.Calculate <= 0 {
		return fmt.Errorf("CALCULATE_RATE_LIMIT must be positive")
	}
	if !validator.IsValidEmail(c.SMTP.From) {
		return fmt.Errorf("SMTP_FROM must be a valid email address")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// IsProduction reports whether the service runs with production hardening.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
