// Package payment provides payment gateway adapters.
package payment

import (
	"errors"
	"strings"

	"github.com/artpar/installpay/domain/payflow"
	"github.com/artpar/installpay/ports"
	"github.com/shopspring/decimal"
)

var (
	// ErrPaymentsDisabled is returned when payments are not configured.
	ErrPaymentsDisabled = errors.New("payments are not configured")
	// ErrInvalidSignature is returned for webhooks that fail verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

var hundred = decimal.NewFromInt(100)

// toCents converts a BRL amount to integer centavos.
func toCents(amount decimal.Decimal) int64 {
	return amount.Round(2).Mul(hundred).IntPart()
}

// Metadata keys carried on provider payments.
const (
	metaFlowID     = "flow_id"
	metaUserID     = "user_id"
	metaKind       = "kind"
	metaInvoiceIDs = "invoice_ids"
)

func referenceMetadata(ref ports.PaymentReference) map[string]string {
	return map[string]string{
		metaFlowID:     ref.FlowID,
		metaUserID:     ref.UserID,
		metaKind:       string(ref.Kind),
		metaInvoiceIDs: strings.Join(ref.InvoiceIDs, ","),
	}
}

func referenceFromMetadata(md map[string]string) ports.PaymentReference {
	ref := ports.PaymentReference{
		FlowID: md[metaFlowID],
		UserID: md[metaUserID],
	}
	ref.Kind = payflow.Kind(md[metaKind])
	if ids := md[metaInvoiceIDs]; ids != "" {
		ref.InvoiceIDs = strings.Split(ids, ",")
	}
	return ref
}
