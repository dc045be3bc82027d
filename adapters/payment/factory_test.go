package payment

import (
	"testing"

	"github.com/artpar/installpay/domain/settings"
)

func TestNewGateway(t *testing.T) {
	tests := []struct {
		name     string
		settings settings.Settings
		wantName string
		wantErr  bool
	}{
		{"empty settings", settings.Settings{}, "none", false},
		{"none explicit", settings.Settings{settings.KeyPaymentProvider: "none"}, "none", false},
		{"dummy", settings.Settings{settings.KeyPaymentProvider: "dummy"}, "dummy", false},
		{"test alias", settings.Settings{settings.KeyPaymentProvider: "test"}, "dummy", false},
		{"stripe", settings.Settings{
			settings.KeyPaymentProvider:        "stripe",
			settings.KeyPaymentStripeSecretKey: "sk_test_123",
		}, "stripe", false},
		{"stripe without key", settings.Settings{settings.KeyPaymentProvider: "stripe"}, "", true},
		{"remote", settings.Settings{
			settings.KeyPaymentProvider:  "remote",
			settings.KeyPaymentRemoteURL: "http://payments.internal",
		}, "remote", false},
		{"remote without url", settings.Settings{settings.KeyPaymentProvider: "remote"}, "", true},
		{"unknown", settings.Settings{settings.KeyPaymentProvider: "paypal"}, "", true},
		{"case sensitive", settings.Settings{settings.KeyPaymentProvider: "Stripe"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGateway(tt.settings)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got gateway %v", g)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewGateway() error = %v", err)
			}
			if g.Name() != tt.wantName {
				t.Errorf("Name() = %s, want %s", g.Name(), tt.wantName)
			}
		})
	}
}

func TestNewGateway_NilSettings(t *testing.T) {
	g, err := NewGateway(nil)
	if err != nil {
		t.Fatalf("NewGateway(nil) error = %v", err)
	}
	if g.Name() != "none" {
		t.Errorf("Name() = %s", g.Name())
	}
}
