package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/artpar/installpay/domain/invoice"
	"github.com/artpar/installpay/domain/payflow"
	"github.com/artpar/installpay/ports"
	"github.com/shopspring/decimal"
)

// ErrInvalidSignature is returned for webhooks that fail verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Gateway implements ports.PaymentGateway by delegating to a payment service.
//
// API Contract:
//
//	POST /payments/pix
//	  Request:  {"amount": "142.50", "description": "...", "payer_email": "...", "reference": {...}}
//	  Response: {"id": "...", "qr_code_base64": "...", "qr_code": "...", "expires_at": "RFC3339"}
//
//	POST /payments/boleto
//	  Request:  {"amount": "...", "description": "...", "due_date": "YYYY-MM-DD", "payer": {...}, "reference": {...}}
//	  Response: {"id": "...", "url": "...", "barcode": "..."}
//
//	POST /payments/card
//	  Request:  {"token": "...", "installments": 3, "amount": "...", "description": "...", "payer": {...}, "reference": {...}}
//	  Response: {"id": "...", "status": "approved|rejected", "message": "..."}
//
//	GET /payments/{id}
//	  Response: {"id": "...", "status": "paid|pending|failed", "amount": "...", "paid_at": "RFC3339", "reference": {...}}
//
//	Webhook (service -> us), header X-Signature: hex HMAC-SHA256 of the body keyed with the API key
//	  {"type": "payment.succeeded|payment.failed", "id": "...", "reference": {...}, "message": "...", "at": "RFC3339"}
//
// reference is {"flow_id": "...", "user_id": "...", "kind": "...", "invoice_ids": [...]}.
type Gateway struct {
	client *Client
	secret string
}

// NewGateway creates a new remote payment gateway.
func NewGateway(cfg ClientConfig) *Gateway {
	return &Gateway{
		client: NewClient(cfg),
		secret: cfg.APIKey,
	}
}

// Name returns the provider name.
func (g *Gateway) Name() string {
	return "remote"
}

type referenceDTO struct {
	FlowID     string   `json:"flow_id"`
	UserID     string   `json:"user_id"`
	Kind       string   `json:"kind"`
	InvoiceIDs []string `json:"invoice_ids"`
}

func toReferenceDTO(r ports.PaymentReference) referenceDTO {
	return referenceDTO{FlowID: r.FlowID, UserID: r.UserID, Kind: string(r.Kind), InvoiceIDs: r.InvoiceIDs}
}

func (r referenceDTO) toPorts() ports.PaymentReference {
	return ports.PaymentReference{FlowID: r.FlowID, UserID: r.UserID, Kind: payflow.Kind(r.Kind), InvoiceIDs: r.InvoiceIDs}
}

type addressDTO struct {
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

type payerDTO struct {
	Name    string     `json:"name"`
	Email   string     `json:"email"`
	TaxID   string     `json:"tax_id"`
	Phone   string     `json:"phone,omitempty"`
	Address addressDTO `json:"address"`
}

func toPayerDTO(p ports.Profile) payerDTO {
	return payerDTO{
		Name:    p.Name,
		Email:   p.Email,
		TaxID:   p.TaxID,
		Phone:   p.Phone,
		Address: addressDTO(p.Address),
	}
}

type pixRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	PayerEmail  string          `json:"payer_email,omitempty"`
	Reference   referenceDTO    `json:"reference"`
}

type pixResponse struct {
	ID           string    `json:"id"`
	QRCodeBase64 string    `json:"qr_code_base64"`
	QRCode       string    `json:"qr_code"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// CreatePix creates a PIX charge.
func (g *Gateway) CreatePix(ctx context.Context, req ports.PixRequest) (payflow.PixCharge, error) {
	var resp pixResponse
	err := g.client.Request(ctx, http.MethodPost, "/payments/pix", pixRequest{
		Amount:      req.Amount.Round(2),
		Description: req.Description,
		PayerEmail:  req.PayerEmail,
		Reference:   toReferenceDTO(req.Reference),
	}, &resp)
	if err != nil {
		return payflow.PixCharge{}, fmt.Errorf("remote pix: %w", err)
	}
	if resp.QRCode == "" {
		return payflow.PixCharge{}, fmt.Errorf("remote pix: charge %s has no code", resp.ID)
	}
	return payflow.PixCharge{
		QRImage:    resp.QRCodeBase64,
		CopyPaste:  resp.QRCode,
		ExpiresAt:  resp.ExpiresAt,
		ProviderID: resp.ID,
	}, nil
}

type boletoRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	DueDate     string          `json:"due_date"`
	Payer       payerDTO        `json:"payer"`
	Reference   referenceDTO    `json:"reference"`
}

type boletoResponse struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Barcode string `json:"barcode"`
}

// CreateBoleto issues a bank slip.
func (g *Gateway) CreateBoleto(ctx context.Context, req ports.BoletoRequest) (payflow.Slip, error) {
	var resp boletoResponse
	err := g.client.Request(ctx, http.MethodPost, "/payments/boleto", boletoRequest{
		Amount:      req.Amount.Round(2),
		Description: req.Description,
		DueDate:     invoice.FormatDate(req.DueDate),
		Payer:       toPayerDTO(req.Payer),
		Reference:   toReferenceDTO(req.Reference),
	}, &resp)
	if err != nil {
		return payflow.Slip{}, fmt.Errorf("remote boleto: %w", err)
	}
	if resp.URL == "" {
		return payflow.Slip{}, fmt.Errorf("remote boleto: slip %s has no url", resp.ID)
	}
	return payflow.Slip{URL: resp.URL, Barcode: resp.Barcode, ProviderID: resp.ID}, nil
}

type cardRequest struct {
	Token        string          `json:"token"`
	Installments int             `json:"installments"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	Payer        payerDTO        `json:"payer"`
	Reference    referenceDTO    `json:"reference"`
}

type cardResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ProcessCard charges a tokenized card.
func (g *Gateway) ProcessCard(ctx context.Context, req ports.CardRequest) (ports.CardResult, error) {
	var resp cardResponse
	err := g.client.Request(ctx, http.MethodPost, "/payments/card", cardRequest{
		Token:        req.Token,
		Installments: req.Installments,
		Amount:       req.Amount.Round(2),
		Description:  req.Description,
		Payer:        toPayerDTO(req.Payer),
		Reference:    toReferenceDTO(req.Reference),
	}, &resp)
	if err != nil {
		return ports.CardResult{}, fmt.Errorf("remote card: %w", err)
	}
	return ports.CardResult{
		Approved:   resp.Status == "approved",
		ProviderID: resp.ID,
		Message:    resp.Message,
	}, nil
}

type paymentResponse struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    *time.Time      `json:"paid_at"`
	Reference referenceDTO    `json:"reference"`
}

// GetPayment asks the payment service for the state of a charge.
func (g *Gateway) GetPayment(ctx context.Context, providerID string) (ports.PaymentStatus, error) {
	var resp paymentResponse
	err := g.client.Request(ctx, http.MethodGet, "/payments/"+url.PathEscape(providerID), nil, &resp)
	if err != nil {
		if IsNotFound(err) {
			return ports.PaymentStatus{}, fmt.Errorf("remote payment %s: %w", providerID, ports.ErrNotFound)
		}
		return ports.PaymentStatus{}, fmt.Errorf("remote payment %s: %w", providerID, err)
	}

	st := ports.PaymentStatus{
		ProviderID: resp.ID,
		Succeeded:  resp.Status == "paid",
		Amount:     resp.Amount,
		Reference:  resp.Reference.toPorts(),
	}
	if resp.PaidAt != nil {
		st.PaidAt = resp.PaidAt.UTC()
	}
	return st, nil
}

type webhookPayload struct {
	Type      string       `json:"type"`
	ID        string       `json:"id"`
	Reference referenceDTO `json:"reference"`
	Message   string       `json:"message"`
	At        time.Time    `json:"at"`
}

// ParseWebhook verifies and decodes a payment service notification.
func (g *Gateway) ParseWebhook(payload []byte, signature string) (ports.PaymentEvent, error) {
	if g.secret != "" && !Verify(payload, signature, g.secret) {
		return ports.PaymentEvent{}, ErrInvalidSignature
	}

	var hook webhookPayload
	if err := json.Unmarshal(payload, &hook); err != nil {
		return ports.PaymentEvent{}, fmt.Errorf("decode webhook: %w", err)
	}

	eventType := ports.PaymentEventType(hook.Type)
	switch eventType {
	case ports.PaymentSucceeded, ports.PaymentFailed:
	default:
		return ports.PaymentEvent{Type: ports.PaymentIgnored}, nil
	}

	return ports.PaymentEvent{
		Type:       eventType,
		ProviderID: hook.ID,
		Reference:  hook.Reference.toPorts(),
		Message:    hook.Message,
		At:         hook.At,
	}, nil
}

// Ensure interface compliance.
var _ ports.PaymentGateway = (*Gateway)(nil)
