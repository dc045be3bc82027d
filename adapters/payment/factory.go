package payment

import (
	"fmt"
	"time"

	"github.com/artpar/installpay/adapters/remote"
	"github.com/artpar/installpay/domain/settings"
	"github.com/artpar/installpay/ports"
)

// NewGateway creates a payment gateway from settings.
// Returns NoopGateway if no provider is configured.
func NewGateway(s settings.Settings) (ports.PaymentGateway, error) {
	provider := s.Get(settings.KeyPaymentProvider)

	switch provider {
	case "stripe":
		secretKey := s.Get(settings.KeyPaymentStripeSecretKey)
		if secretKey == "" {
			return nil, fmt.Errorf("stripe secret key not configured")
		}
		return NewStripeGateway(StripeConfig{
			SecretKey:        secretKey,
			WebhookSecret:    s.Get(settings.KeyPaymentStripeWebhookSecret),
			PixExpiry:        s.GetDuration(settings.KeyPaymentPixExpiry, 30*time.Minute),
			BoletoExpiryDays: int64(s.GetInt(settings.KeyPaymentBoletoExpiryDays, 3)),
		}), nil

	case "remote":
		baseURL := s.Get(settings.KeyPaymentRemoteURL)
		if baseURL == "" {
			return nil, fmt.Errorf("remote payment url not configured")
		}
		return remote.NewGateway(remote.ClientConfig{
			BaseURL: baseURL,
			APIKey:  s.Get(settings.KeyPaymentRemoteAPIKey),
		}), nil

	case "dummy", "test":
		baseURL := fmt.Sprintf("http://%s:%s",
			s.GetOrDefault(settings.KeyServerHost, "localhost"),
			s.GetOrDefault(settings.KeyServerPort, "8080"))
		return NewDummyGateway(baseURL, s.GetDuration(settings.KeyPaymentPixExpiry, 30*time.Minute)), nil

	case "none", "":
		return NoopGateway{}, nil

	default:
		return nil, fmt.Errorf("unknown payment provider: %s", provider)
	}
}
