package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/artpar/installpay/domain/payflow"
	"github.com/artpar/installpay/ports"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeConfig holds Stripe configuration.
type StripeConfig struct {
	SecretKey        string
	WebhookSecret    string
	PixExpiry        time.Duration
	BoletoExpiryDays int64

	// APIURL overrides the Stripe endpoint (for testing).
	APIURL     string
	HTTPClient *http.Client
}

// StripeGateway implements ports.PaymentGateway with Stripe PaymentIntents.
// PIX and boleto intents are confirmed immediately so the next action
// carries the QR code or voucher.
type StripeGateway struct {
	config StripeConfig
	api    *client.API
}

// NewStripeGateway creates a new Stripe payment gateway.
func NewStripeGateway(config StripeConfig) *StripeGateway {
	backendConfig := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
	}
	if config.APIURL != "" {
		backendConfig.URL = stripe.String(config.APIURL)
	}
	if config.HTTPClient != nil {
		backendConfig.HTTPClient = config.HTTPClient
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig),
	}
	return &StripeGateway{config: config, api: client.New(config.SecretKey, backends)}
}

// Name returns the provider name.
func (g *StripeGateway) Name() string {
	return "stripe"
}

func (g *StripeGateway) intentParams(ctx context.Context, method string, amount int64, description string, ref ports.PaymentReference) *stripe.PaymentIntentParams {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(string(stripe.CurrencyBRL)),
		Description:        stripe.String(description),
		PaymentMethodTypes: stripe.StringSlice([]string{method}),
		Confirm:            stripe.Bool(true),
	}
	params.Context = ctx
	for k, v := range referenceMetadata(ref) {
		params.AddMetadata(k, v)
	}
	return params
}

// CreatePix creates a PIX PaymentIntent and returns its QR code.
func (g *StripeGateway) CreatePix(ctx context.Context, req ports.PixRequest) (payflow.PixCharge, error) {
	params := g.intentParams(ctx, "pix", toCents(req.Amount), req.Description, req.Reference)
	params.PaymentMethodData = &stripe.PaymentIntentPaymentMethodDataParams{
		Type: stripe.String("pix"),
		BillingDetails: &stripe.PaymentIntentPaymentMethodDataBillingDetailsParams{
			Email: stripe.String(req.PayerEmail),
		},
	}
	if req.PayerEmail != "" {
		params.ReceiptEmail = stripe.String(req.PayerEmail)
	}
	if g.config.PixExpiry > 0 {
		params.PaymentMethodOptions = &stripe.PaymentIntentPaymentMethodOptionsParams{
			Pix: &stripe.PaymentIntentPaymentMethodOptionsPixParams{
				ExpiresAfterSeconds: stripe.Int64(int64(g.config.PixExpiry / time.Second)),
			},
		}
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return payflow.PixCharge{}, fmt.Errorf("stripe pix: %w", err)
	}
	if pi.NextAction == nil || pi.NextAction.PixDisplayQRCode == nil {
		return payflow.PixCharge{}, fmt.Errorf("stripe pix: intent %s has no QR code", pi.ID)
	}

	qr := pi.NextAction.PixDisplayQRCode
	return payflow.PixCharge{
		QRImage:    qr.ImageURLPNG,
		CopyPaste:  qr.Data,
		ExpiresAt:  time.Unix(qr.ExpiresAt, 0).UTC(),
		ProviderID: pi.ID,
	}, nil
}

// CreateBoleto creates a boleto PaymentIntent and returns its voucher.
func (g *StripeGateway) CreateBoleto(ctx context.Context, req ports.BoletoRequest) (payflow.Slip, error) {
	params := g.intentParams(ctx, "boleto", toCents(req.Amount), req.Description, req.Reference)
	params.PaymentMethodData = &stripe.PaymentIntentPaymentMethodDataParams{
		Type: stripe.String("boleto"),
		BillingDetails: &stripe.PaymentIntentPaymentMethodDataBillingDetailsParams{
			Name:  stripe.String(req.Payer.Name),
			Email: stripe.String(req.Payer.Email),
			Address: &stripe.AddressParams{
				Line1:      stripe.String(req.Payer.Address.Street + ", " + req.Payer.Address.Number),
				Line2:      stripe.String(req.Payer.Address.District),
				City:       stripe.String(req.Payer.Address.City),
				State:      stripe.String(req.Payer.Address.State),
				PostalCode: stripe.String(req.Payer.Address.PostalCode),
				Country:    stripe.String("BR"),
			},
		},
		Boleto: &stripe.PaymentMethodBoletoParams{
			TaxID: stripe.String(req.Payer.TaxID),
		},
	}
	if g.config.BoletoExpiryDays > 0 {
		params.PaymentMethodOptions = &stripe.PaymentIntentPaymentMethodOptionsParams{
			Boleto: &stripe.PaymentIntentPaymentMethodOptionsBoletoParams{
				ExpiresAfterDays: stripe.Int64(g.config.BoletoExpiryDays),
			},
		}
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return payflow.Slip{}, fmt.Errorf("stripe boleto: %w", err)
	}
	if pi.NextAction == nil || pi.NextAction.BoletoDisplayDetails == nil {
		return payflow.Slip{}, fmt.Errorf("stripe boleto: intent %s has no voucher", pi.ID)
	}

	details := pi.NextAction.BoletoDisplayDetails
	return payflow.Slip{
		URL:        details.HostedVoucherURL,
		Barcode:    details.Number,
		ProviderID: pi.ID,
	}, nil
}

// ProcessCard confirms a card PaymentIntent with a Stripe.js payment method.
// Card declines are returned as unapproved results.
func (g *StripeGateway) ProcessCard(ctx context.Context, req ports.CardRequest) (ports.CardResult, error) {
	params := g.intentParams(ctx, "card", toCents(req.Amount), req.Description, req.Reference)
	params.PaymentMethod = stripe.String(req.Token)
	params.AddMetadata("installments", fmt.Sprint(req.Installments))
	if req.Payer.Email != "" {
		params.ReceiptEmail = stripe.String(req.Payer.Email)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.Type == stripe.ErrorTypeCard {
			id := ""
			if serr.PaymentIntent != nil {
				id = serr.PaymentIntent.ID
			}
			return ports.CardResult{Approved: false, ProviderID: id, Message: serr.Msg}, nil
		}
		return ports.CardResult{}, fmt.Errorf("stripe card: %w", err)
	}

	result := ports.CardResult{
		Approved:   pi.Status == stripe.PaymentIntentStatusSucceeded,
		ProviderID: pi.ID,
	}
	if !result.Approved {
		result.Message = string(pi.Status)
		if pi.LastPaymentError != nil {
			result.Message = pi.LastPaymentError.Msg
		}
	}
	return result, nil
}

// GetPayment retrieves a PaymentIntent. Only the succeeded status counts as
// paid; processing and requires_action intents are still pending.
func (g *StripeGateway) GetPayment(ctx context.Context, providerID string) (ports.PaymentStatus, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Get(providerID, params)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.HTTPStatusCode == http.StatusNotFound {
			return ports.PaymentStatus{}, fmt.Errorf("stripe payment %s: %w", providerID, ports.ErrNotFound)
		}
		return ports.PaymentStatus{}, fmt.Errorf("stripe payment %s: %w", providerID, err)
	}

	st := ports.PaymentStatus{
		ProviderID: pi.ID,
		Succeeded:  pi.Status == stripe.PaymentIntentStatusSucceeded,
		Amount:     decimal.New(pi.AmountReceived, -2),
		Reference:  referenceFromMetadata(pi.Metadata),
	}
	if !st.Succeeded {
		st.Amount = decimal.New(pi.Amount, -2)
	}
	if pi.LatestCharge != nil && pi.LatestCharge.Created > 0 {
		st.PaidAt = time.Unix(pi.LatestCharge.Created, 0).UTC()
	}
	return st, nil
}

// ParseWebhook verifies and decodes a Stripe PaymentIntent event.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (ports.PaymentEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.config.WebhookSecret)
	if err != nil {
		return ports.PaymentEvent{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := ports.PaymentEvent{Type: ports.PaymentIgnored, At: time.Unix(event.Created, 0).UTC()}
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		out.Type = ports.PaymentSucceeded
	case stripe.EventTypePaymentIntentPaymentFailed:
		out.Type = ports.PaymentFailed
	default:
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return ports.PaymentEvent{}, fmt.Errorf("decode payment intent: %w", err)
	}
	out.ProviderID = pi.ID
	out.Reference = referenceFromMetadata(pi.Metadata)
	if pi.LastPaymentError != nil {
		out.Message = pi.LastPaymentError.Msg
	}
	return out, nil
}

// Ensure interface compliance.
var _ ports.PaymentGateway = (*StripeGateway)(nil)
