package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/artpar/installpay/domain/payflow"
	"github.com/artpar/installpay/ports"
	"github.com/google/uuid"
)

// DeclineToken makes the dummy gateway decline a card charge.
const DeclineToken = "tok_decline"

// DummyGateway is a local gateway for development and tests.
// Charges are created instantly and cards are approved unless the token is
// DeclineToken. A PIX charge counts as paid once it is created. Webhooks are
// plain JSON and carry no signature.
type DummyGateway struct {
	baseURL   string
	pixExpiry time.Duration
	now       func() time.Time

	mu      sync.Mutex
	charges map[string]ports.PaymentStatus
}

// NewDummyGateway creates a dummy gateway. baseURL is used to build slip URLs.
func NewDummyGateway(baseURL string, pixExpiry time.Duration) *DummyGateway {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if pixExpiry <= 0 {
		pixExpiry = 30 * time.Minute
	}
	return &DummyGateway{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		pixExpiry: pixExpiry,
		now:       time.Now,
		charges:   make(map[string]ports.PaymentStatus),
	}
}

func (g *DummyGateway) record(st ports.PaymentStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges[st.ProviderID] = st
}

// Name returns the provider name.
func (g *DummyGateway) Name() string {
	return "dummy"
}

// CreatePix returns a fake PIX charge.
func (g *DummyGateway) CreatePix(ctx context.Context, req ports.PixRequest) (payflow.PixCharge, error) {
	id := "pix_" + uuid.NewString()
	code := fmt.Sprintf("00020126580014BR.GOV.BCB.PIX0136%s5204000053039865406%s5802BR", id, req.Amount.StringFixed(2))
	g.record(ports.PaymentStatus{
		ProviderID: id,
		Succeeded:  true,
		Amount:     req.Amount,
		Reference:  req.Reference,
		PaidAt:     g.now().UTC(),
	})
	return payflow.PixCharge{
		QRImage:    g.baseURL + "/dummy/pix/" + id + ".png",
		CopyPaste:  code,
		ExpiresAt:  g.now().Add(g.pixExpiry).UTC(),
		ProviderID: id,
	}, nil
}

// CreateBoleto returns a fake slip.
func (g *DummyGateway) CreateBoleto(ctx context.Context, req ports.BoletoRequest) (payflow.Slip, error) {
	id := "bol_" + uuid.NewString()
	cents := fmt.Sprintf("%010d", toCents(req.Amount))
	g.record(ports.PaymentStatus{ProviderID: id, Amount: req.Amount, Reference: req.Reference})
	return payflow.Slip{
		URL:        g.baseURL + "/dummy/boleto/" + id,
		Barcode:    "23793.38128 60000.000003 00000.000400 1 " + req.DueDate.Format("0601") + cents,
		ProviderID: id,
	}, nil
}

// ProcessCard approves every charge except DeclineToken.
func (g *DummyGateway) ProcessCard(ctx context.Context, req ports.CardRequest) (ports.CardResult, error) {
	id := "card_" + uuid.NewString()
	approved := req.Token != DeclineToken
	st := ports.PaymentStatus{ProviderID: id, Succeeded: approved, Amount: req.Amount, Reference: req.Reference}
	if approved {
		st.PaidAt = g.now().UTC()
	}
	g.record(st)
	if !approved {
		return ports.CardResult{Approved: false, ProviderID: id, Message: "card declined"}, nil
	}
	return ports.CardResult{Approved: true, ProviderID: id}, nil
}

// GetPayment reports a charge created by this gateway instance.
func (g *DummyGateway) GetPayment(ctx context.Context, providerID string) (ports.PaymentStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.charges[providerID]
	if !ok {
		return ports.PaymentStatus{}, fmt.Errorf("dummy payment %s: %w", providerID, ports.ErrNotFound)
	}
	return st, nil
}

// DummyWebhook is the payload accepted by DummyGateway.ParseWebhook.
type DummyWebhook struct {
	Type       ports.PaymentEventType `json:"type"`
	ProviderID string                 `json:"provider_id"`
	FlowID     string                 `json:"flow_id"`
	UserID     string                 `json:"user_id"`
	Kind       payflow.Kind           `json:"kind"`
	InvoiceIDs []string               `json:"invoice_ids"`
	Message    string                 `json:"message,omitempty"`
}

// ParseWebhook decodes a DummyWebhook.
func (g *DummyGateway) ParseWebhook(payload []byte, signature string) (ports.PaymentEvent, error) {
	var hook DummyWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return ports.PaymentEvent{}, fmt.Errorf("decode webhook: %w", err)
	}
	switch hook.Type {
	case ports.PaymentSucceeded, ports.PaymentFailed:
	default:
		return ports.PaymentEvent{Type: ports.PaymentIgnored}, nil
	}
	return ports.PaymentEvent{
		Type:       hook.Type,
		ProviderID: hook.ProviderID,
		Reference: ports.PaymentReference{
			FlowID:     hook.FlowID,
			UserID:     hook.UserID,
			Kind:       hook.Kind,
			InvoiceIDs: hook.InvoiceIDs,
		},
		Message: hook.Message,
		At:      g.now().UTC(),
	}, nil
}

// Ensure interface compliance.
var _ ports.PaymentGateway = (*DummyGateway)(nil)
