package payment

import (
	"context"

	"github.com/artpar/installpay/domain/payflow"
	"github.com/artpar/installpay/ports"
)

// NoopGateway is used when payments are disabled. Every charge fails with
// ErrPaymentsDisabled; invoices and quotes still work.
type NoopGateway struct{}

// Name returns the provider name.
func (NoopGateway) Name() string {
	return "none"
}

func (NoopGateway) CreatePix(ctx context.Context, req ports.PixRequest) (payflow.PixCharge, error) {
	return payflow.PixCharge{}, ErrPaymentsDisabled
}

func (NoopGateway) CreateBoleto(ctx context.Context, req ports.BoletoRequest) (payflow.Slip, error) {
	return payflow.Slip{}, ErrPaymentsDisabled
}

func (NoopGateway) ProcessCard(ctx context.Context, req ports.CardRequest) (ports.CardResult, error) {
	return ports.CardResult{}, ErrPaymentsDisabled
}

func (NoopGateway) GetPayment(ctx context.Context, providerID string) (ports.PaymentStatus, error) {
	return ports.PaymentStatus{}, ErrPaymentsDisabled
}

func (NoopGateway) ParseWebhook(payload []byte, signature string) (ports.PaymentEvent, error) {
	return ports.PaymentEvent{}, ErrPaymentsDisabled
}

// Ensure interface compliance.
var _ ports.PaymentGateway = NoopGateway{}
