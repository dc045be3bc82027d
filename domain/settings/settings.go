// Package settings provides value types for runtime settings.
// Settings are stored in the database and loaded at runtime.
package settings

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Setting represents a single stored setting (immutable value type).
type Setting struct {
	Key       string
	Value     string
	Encrypted bool
	UpdatedAt time.Time
}

// Settings is a collection of settings with helper methods.
type Settings map[string]string

// Get returns a setting value or empty string if not found.
func (s Settings) Get(key string) string {
	return s[key]
}

// GetOrDefault returns a setting value or the default if not found.
func (s Settings) GetOrDefault(key, defaultValue string) string {
	if v, ok := s[key]; ok && v != "" {
		return v
	}
	return defaultValue
}

// GetBool returns a setting as bool (true if "true", "1", "yes", "on").
func (s Settings) GetBool(key string) bool {
	v := s[key]
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

// GetInt returns a setting as int or default if not found/invalid.
func (s Settings) GetInt(key string, defaultValue int) int {
	v := s[key]
	if v == "" {
		return defaultValue
	}
	var i int
	if err := json.Unmarshal([]byte(v), &i); err != nil {
		return defaultValue
	}
	return i
}

// GetDuration returns a setting as duration or default if not found/invalid.
func (s Settings) GetDuration(key string, defaultValue time.Duration) time.Duration {
	v := s[key]
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

// GetDecimal returns a setting as decimal or default if not found/invalid.
// A comma decimal separator is accepted.
func (s Settings) GetDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	v := strings.TrimSpace(s[key])
	if v == "" {
		return defaultValue
	}
	d, err := decimal.NewFromString(strings.Replace(v, ",", ".", 1))
	if err != nil {
		return defaultValue
	}
	return d
}

// Known setting keys.
const (
	// Billing
	KeyNegotiationInterest = "negotiation_interest" // percentage at 7 installments

	// Server settings
	KeyServerHost = "server.host"
	KeyServerPort = "server.port"

	// Payment settings
	KeyPaymentProvider            = "payment.provider" // stripe, remote, dummy, none
	KeyPaymentStripeSecretKey     = "payment.stripe.secret_key"
	KeyPaymentStripeWebhookSecret = "payment.stripe.webhook_secret"
	KeyPaymentRemoteURL           = "payment.remote.url"
	KeyPaymentRemoteAPIKey        = "payment.remote.api_key"
	KeyPaymentPixExpiry           = "payment.pix.expiry"
	KeyPaymentBoletoExpiryDays    = "payment.boleto.expiry_days"
	KeyPaymentCardMaxInstallments = "payment.card.max_installments"
)

// SensitiveKeys returns keys that contain secrets.
func SensitiveKeys() []string {
	return []string{
		KeyPaymentStripeSecretKey,
		KeyPaymentStripeWebhookSecret,
		KeyPaymentRemoteAPIKey,
	}
}

// IsSensitive returns true if the key contains sensitive data.
func IsSensitive(key string) bool {
	for _, k := range SensitiveKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// Mask hides the value of sensitive keys for display.
func Mask(key, value string) string {
	if !IsSensitive(key) || value == "" {
		return value
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

// Defaults returns default values for settings.
func Defaults() Settings {
	return Settings{
		KeyNegotiationInterest:        "15",
		KeyServerHost:                 "0.0.0.0",
		KeyServerPort:                 "8080",
		KeyPaymentProvider:            "none",
		KeyPaymentPixExpiry:           "30m",
		KeyPaymentBoletoExpiryDays:    "3",
		KeyPaymentCardMaxInstallments: "12",
	}
}

// Merge merges defaults with loaded settings, preferring loaded values.
func Merge(loaded Settings) Settings {
	result := Defaults()
	for k, v := range loaded {
		result[k] = v
	}
	return result
}
