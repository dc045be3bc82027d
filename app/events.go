package app

import (
	"context"
	"time"

	"github.com/artpar/installpay/domain/payflow"
	"github.com/artpar/installpay/ports"
)

// InvoicesPaid is published after a payment settled every targeted invoice.
type InvoicesPaid struct {
	FlowID     string       `json:"flow_id,omitempty"`
	UserID     string       `json:"user_id"`
	Kind       payflow.Kind `json:"kind,omitempty"`
	PaymentID  string       `json:"payment_id"`
	InvoiceIDs []string     `json:"invoice_ids"`
	PaidAt     time.Time    `json:"paid_at"`
}

// SlipIssued is published after a bank slip was attached to invoices.
type SlipIssued struct {
	FlowID     string       `json:"flow_id"`
	UserID     string       `json:"user_id"`
	Kind       payflow.Kind `json:"kind"`
	InvoiceIDs []string     `json:"invoice_ids"`
	URL        string       `json:"url"`
	Barcode    string       `json:"barcode"`
}

// PartialSettlement is published when a payment landed on only some of the
// invoices it was meant to settle.
type PartialSettlement struct {
	UserID    string   `json:"user_id"`
	PaymentID string   `json:"payment_id"`
	Confirmed []string `json:"confirmed"`
	Missing   []string `json:"missing"`
}

// PaymentFailed is published for declines and provider errors.
type PaymentFailed struct {
	FlowID string         `json:"flow_id,omitempty"`
	UserID string         `json:"user_id"`
	Method payflow.Method `json:"method,omitempty"`
	Reason string         `json:"reason"`
}

func (s *PaymentService) publish(ctx context.Context, typ, key string, payload any) {
	if s.events == nil {
		return
	}
	e := ports.Event{Type: typ, Key: key, At: s.clock.Now(), Payload: payload}
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Warn().Err(err).Str("event", typ).Str("user_id", key).Msg("publish event failed")
	}
}
