package payment

import (
	"context"
	"time"

	"github.com/artpar/installpay/domain/payflow"
	"github.com/artpar/installpay/ports"
)

// GatewayObserver records provider call latency and failures.
type GatewayObserver interface {
	ObserveGateway(provider, operation string, err error, d time.Duration)
}

// Instrumented wraps a gateway and reports every provider call.
type Instrumented struct {
	next ports.PaymentGateway
	obs  GatewayObserver
}

// Instrument decorates g. A nil observer returns g unchanged.
func Instrument(g ports.PaymentGateway, obs GatewayObserver) ports.PaymentGateway {
	if obs == nil {
		return g
	}
	return &Instrumented{next: g, obs: obs}
}

func (i *Instrumented) observe(op string, start time.Time, err error) {
	i.obs.ObserveGateway(i.next.Name(), op, err, time.Since(start))
}

// Name returns the wrapped provider name.
func (i *Instrumented) Name() string { return i.next.Name() }

func (i *Instrumented) CreatePix(ctx context.Context, req ports.PixRequest) (payflow.PixCharge, error) {
	start := time.Now()
	charge, err := i.next.CreatePix(ctx, req)
	i.observe("create_pix", start, err)
	return charge, err
}

func (i *Instrumented) CreateBoleto(ctx context.Context, req ports.BoletoRequest) (payflow.Slip, error) {
	start := time.Now()
	slip, err := i.next.CreateBoleto(ctx, req)
	i.observe("create_boleto", start, err)
	return slip, err
}

func (i *Instrumented) ProcessCard(ctx context.Context, req ports.CardRequest) (ports.CardResult, error) {
	start := time.Now()
	res, err := i.next.ProcessCard(ctx, req)
	i.observe("process_card", start, err)
	return res, err
}

func (i *Instrumented) GetPayment(ctx context.Context, providerID string) (ports.PaymentStatus, error) {
	start := time.Now()
	st, err := i.next.GetPayment(ctx, providerID)
	i.observe("get_payment", start, err)
	return st, err
}

func (i *Instrumented) ParseWebhook(payload []byte, signature string) (ports.PaymentEvent, error) {
	start := time.Now()
	event, err := i.next.ParseWebhook(payload, signature)
	i.observe("parse_webhook", start, err)
	return event, err
}

// Ensure interface compliance.
var _ ports.PaymentGateway = (*Instrumented)(nil)
