// Package config loads application configuration from the environment
// (and optionally from .env / config.env files) through viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config groups the application configuration.
type Config struct {
	App         AppConfig
	HTTP        HTTPConfig
	DB          DBConfig
	JWT         JWTConfig
	Derivation  DerivationConfig
	Audit       AuditConfig
	Idempotency IdempotencyConfig
	Outbox      OutboxConfig
}

// AppConfig holds general settings.
type AppConfig struct {
	Env      string // development, staging, production
	LogLevel string
}

// IsDevelopment reports whether pretty logging should be enabled.
func (c AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// DBConfig holds PostgreSQL settings.
type DBConfig struct {
	URL      string
	MaxConns int32
	MinConns int32
	// StatementTimeout bounds every statement inside a transaction.
	StatementTimeout time.Duration
}

// JWTConfig holds bearer token settings.
type JWTConfig struct {
	Secret string
	Issuer string
}

// DerivationConfig tunes the document derivation pipelines.
type DerivationConfig struct {
	// InvoiceTaxPercent is applied to every derived sales invoice line.
	InvoiceTaxPercent string
	// NumberMaxAttempts bounds the collision counter of document numbers.
	NumberMaxAttempts int
	// AutoCreateRule is a CEL expression deciding whether unresolved
	// catalog items may be created.
	AutoCreateRule string
}

// AuditConfig controls the audit trail.
type AuditConfig struct {
	// CompressThreshold is the payload size (bytes) above which changes are zstd-compressed.
	CompressThreshold int
}

// IdempotencyConfig controls replay protection of mutating requests.
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

// OutboxConfig tunes the worker that relays derivation events.
type OutboxConfig struct {
	BatchSize       int
	PollInterval    time.Duration
	CleanupInterval time.Duration
}

// Load reads configuration. Environment variables take precedence over files.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.MergeInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("APP_ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		HTTP: HTTPConfig{
			Port:            v.GetString("HTTP_PORT"),
			ShutdownTimeout: v.GetDuration("HTTP_SHUTDOWN_TIMEOUT"),
		},
		DB: DBConfig{
			URL:              v.GetString("DATABASE_URL"),
			MaxConns:         v.GetInt32("DB_MAX_CONNS"),
			MinConns:         v.GetInt32("DB_MIN_CONNS"),
			StatementTimeout: v.GetDuration("DB_STATEMENT_TIMEOUT"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			Issuer: v.GetString("JWT_ISSUER"),
		},
		Derivation: DerivationConfig{
			InvoiceTaxPercent: v.GetString("INVOICE_TAX_PERCENT"),
			NumberMaxAttempts: v.GetInt("NUMBER_MAX_ATTEMPTS"),
			AutoCreateRule:    v.GetString("CATALOG_AUTO_CREATE_RULE"),
		},
		Audit: AuditConfig{
			CompressThreshold: v.GetInt("AUDIT_COMPRESS_THRESHOLD"),
		},
		Idempotency: IdempotencyConfig{
			Enabled: v.GetBool("IDEMPOTENCY_ENABLED"),
			TTL:     v.GetDuration("IDEMPOTENCY_TTL"),
		},
		Outbox: OutboxConfig{
			BatchSize:       v.GetInt("OUTBOX_BATCH_SIZE"),
			PollInterval:    v.GetDuration("OUTBOX_POLL_INTERVAL"),
			CleanupInterval: v.GetDuration("CLEANUP_INTERVAL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be positive")
	}
	if c.DB.MinConns > c.DB.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DB.MinConns, c.DB.MaxConns)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("HTTP_SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_STATEMENT_TIMEOUT", "30s")
	v.SetDefault("JWT_ISSUER", "tradeflow")
	v.SetDefault("INVOICE_TAX_PERCENT", "10")
	v.SetDefault("NUMBER_MAX_ATTEMPTS", 999)
	v.SetDefault("CATALOG_AUTO_CREATE_RULE", "true")
	v.SetDefault("AUDIT_COMPRESS_THRESHOLD", 10*1024)
	v.SetDefault("IDEMPOTENCY_ENABLED", true)
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("OUTBOX_BATCH_SIZE", 100)
	v.SetDefault("OUTBOX_POLL_INTERVAL", "500ms")
	v.SetDefault("CLEANUP_INTERVAL", "1h")
}
