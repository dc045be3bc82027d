// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // billing timezones on hosts without zoneinfo

	"github.com/artpar/installpay/domain/settings"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "INSTALLPAY_"

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Payment  PaymentConfig  `yaml:"payment"`
	Billing  BillingConfig  `yaml:"billing"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	OpenAPI  OpenAPIConfig  `yaml:"openapi"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RemoteConfig configures a remote service endpoint.
type RemoteConfig struct {
	URL     string            `yaml:"url"`
	APIKey  string            `yaml:"api_key,omitempty"`
	Timeout time.Duration     `yaml:"timeout,omitempty"`
	Retries int               `yaml:"retries,omitempty"` // extra attempts for reads
	Headers map[string]string `yaml:"headers,omitempty"`
}

// DatabaseConfig selects where invoices, profiles and settings live.
type DatabaseConfig struct {
	Driver string       `yaml:"driver"` // "sqlite", "postgres", "remote" or "memory"
	DSN    string       `yaml:"dsn"`
	Remote RemoteConfig `yaml:"remote,omitempty"`
}

// RedisConfig configures the flow session store. An empty URL keeps flows
// in memory.
type RedisConfig struct {
	URL     string        `yaml:"url"`
	FlowTTL time.Duration `yaml:"flow_ttl"`
}

// KafkaConfig configures payment event publishing. No brokers disables it.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// PaymentConfig seeds the payment settings. Values already stored in the
// settings table take precedence.
type PaymentConfig struct {
	Provider string       `yaml:"provider"` // "none", "stripe", "remote", "dummy"
	Stripe   StripeConfig `yaml:"stripe,omitempty"`
	Remote   RemoteConfig `yaml:"remote,omitempty"`
}

// StripeConfig holds Stripe credentials.
type StripeConfig struct {
	SecretKey     string `yaml:"secret_key,omitempty"`
	WebhookSecret string `yaml:"webhook_secret,omitempty"`
}

// BillingConfig configures the billing view.
type BillingConfig struct {
	Timezone string `yaml:"timezone"` // IANA name used to derive "today"
	GroupBy  string `yaml:"group_by"` // "explicit" or "legacy"
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// OpenAPIConfig configures Swagger documentation.
type OpenAPIConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Seed returns the payment settings carried by the configuration.
func (p PaymentConfig) Seed() settings.Settings {
	s := settings.Settings{}
	put := func(key, value string) {
		if value != "" {
			s[key] = value
		}
	}
	put(settings.KeyPaymentProvider, p.Provider)
	put(settings.KeyPaymentStripeSecretKey, p.Stripe.SecretKey)
	put(settings.KeyPaymentStripeWebhookSecret, p.Stripe.WebhookSecret)
	put(settings.KeyPaymentRemoteURL, p.Remote.URL)
	put(settings.KeyPaymentRemoteAPIKey, p.Remote.APIKey)
	return s
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references and
// applying environment overrides and defaults.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	INSTALLPAY_SERVER_HOST        - Server host (default: 0.0.0.0)
//	INSTALLPAY_SERVER_PORT        - Server port (default: 8080)
//	INSTALLPAY_DATABASE_DRIVER    - sqlite, postgres, remote or memory (default: sqlite)
//	INSTALLPAY_DATABASE_DSN       - Database DSN (default: installpay.db)
//	INSTALLPAY_DATABASE_REMOTE_URL - Remote store URL
//	INSTALLPAY_REDIS_URL          - Flow store, e.g. redis://localhost:6379/0
//	INSTALLPAY_KAFKA_BROKERS      - Comma separated broker list
//	INSTALLPAY_KAFKA_TOPIC        - Event topic (default: installpay.payments)
//	INSTALLPAY_PAYMENT_PROVIDER   - none, stripe, remote or dummy
//	INSTALLPAY_STRIPE_SECRET_KEY  - Stripe secret key
//	INSTALLPAY_STRIPE_WEBHOOK_SECRET - Stripe webhook signing secret
//	INSTALLPAY_BILLING_TIMEZONE   - Timezone for "today" (default: America/Sao_Paulo)
//	INSTALLPAY_LOG_LEVEL          - debug, info, warn, error (default: info)
//	INSTALLPAY_LOG_FORMAT         - json or console (default: json)
//	INSTALLPAY_METRICS_ENABLED    - Enable /metrics (default: true)
//	INSTALLPAY_OPENAPI_ENABLED    - Enable /swagger (default: true)
func LoadFromEnv() (*Config, error) {
	cfg := Config{
		Metrics: MetricsConfig{Enabled: true},
		OpenAPI: OpenAPIConfig{Enabled: true},
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadWithFallback loads path when it exists, otherwise the environment.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

func env(name string) string {
	return os.Getenv(EnvPrefix + name)
}

// applyEnvOverrides applies INSTALLPAY_* variables. They always win over the
// file.
func applyEnvOverrides(cfg *Config) {
	if v := env("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := env("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := env("SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := env("SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if v := env("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := env("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := env("DATABASE_REMOTE_URL"); v != "" {
		cfg.Database.Remote.URL = v
	}
	if v := env("DATABASE_REMOTE_API_KEY"); v != "" {
		cfg.Database.Remote.APIKey = v
	}

	if v := env("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := env("REDIS_FLOW_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Redis.FlowTTL = d
		}
	}

	if v := env("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	if v := env("KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}

	if v := env("PAYMENT_PROVIDER"); v != "" {
		cfg.Payment.Provider = v
	}
	if v := env("STRIPE_SECRET_KEY"); v != "" {
		cfg.Payment.Stripe.SecretKey = v
	}
	if v := env("STRIPE_WEBHOOK_SECRET"); v != "" {
		cfg.Payment.Stripe.WebhookSecret = v
	}
	if v := env("PAYMENT_REMOTE_URL"); v != "" {
		cfg.Payment.Remote.URL = v
	}
	if v := env("PAYMENT_REMOTE_API_KEY"); v != "" {
		cfg.Payment.Remote.APIKey = v
	}

	if v := env("BILLING_TIMEZONE"); v != "" {
		cfg.Billing.Timezone = v
	}
	if v := env("BILLING_GROUP_BY"); v != "" {
		cfg.Billing.GroupBy = v
	}

	if v := env("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := env("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := env("METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := env("OPENAPI_ENABLED"); v != "" {
		cfg.OpenAPI.Enabled = parseBool(v)
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "installpay.db"
	}

	if cfg.Redis.FlowTTL == 0 {
		cfg.Redis.FlowTTL = 30 * time.Minute
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "installpay.payments"
	}

	if cfg.Billing.Timezone == "" {
		cfg.Billing.Timezone = "America/Sao_Paulo"
	}
	if cfg.Billing.GroupBy == "" {
		cfg.Billing.GroupBy = "explicit"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	switch cfg.Database.Driver {
	case "sqlite", "memory":
	case "postgres":
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required when database.driver is 'postgres'")
		}
	case "remote":
		if cfg.Database.Remote.URL == "" {
			return fmt.Errorf("database.remote.url is required when database.driver is 'remote'")
		}
	default:
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, remote, memory; got %q", cfg.Database.Driver)
	}

	validProviders := map[string]bool{"": true, "none": true, "stripe": true, "remote": true, "dummy": true}
	if !validProviders[cfg.Payment.Provider] {
		return fmt.Errorf("payment.provider must be one of: none, stripe, remote, dummy")
	}
	if cfg.Payment.Provider == "remote" && cfg.Payment.Remote.URL == "" {
		return fmt.Errorf("payment.remote.url is required when payment.provider is 'remote'")
	}

	if cfg.Billing.GroupBy != "explicit" && cfg.Billing.GroupBy != "legacy" {
		return fmt.Errorf("billing.group_by must be 'explicit' or 'legacy', got %q", cfg.Billing.GroupBy)
	}
	if _, err := time.LoadLocation(cfg.Billing.Timezone); err != nil {
		return fmt.Errorf("billing.timezone: %w", err)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	return nil
}
