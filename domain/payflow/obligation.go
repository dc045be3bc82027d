package payflow

import (
	"errors"
	"time"

	"github.com/artpar/installpay/domain/anticipation"
	"github.com/artpar/installpay/domain/invoice"
	"github.com/artpar/installpay/domain/renegotiation"
	"github.com/shopspring/decimal"
)

// Kind identifies what a payment target settles.
type Kind string

const (
	KindInvoice       Kind = "invoice"
	KindRenegotiation Kind = "renegotiation"
	KindAnticipation  Kind = "anticipation"
)

// ErrInvoicePaid is returned when building a target from a settled invoice.
var ErrInvoicePaid = errors.New("invoice is already paid")

// Obligation is the payable target of a flow. It may be a stored invoice or
// a synthesized one; only InvoiceIDs refer to persistent records.
type Obligation struct {
	Kind           Kind            `json:"kind"`
	UserID         string          `json:"user_id"`
	InvoiceIDs     []string        `json:"invoice_ids"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	DueDate        time.Time       `json:"due_date"`
	Installments   int             `json:"installments,omitempty"`
	AllowedMethods []Method        `json:"allowed_methods,omitempty"` // empty allows all
}

// IsZero reports whether no target is set.
func (o Obligation) IsZero() bool {
	return o.Kind == "" && len(o.InvoiceIDs) == 0
}

// Allows reports whether the obligation may be paid with m.
func (o Obligation) Allows(m Method) bool {
	if len(o.AllowedMethods) == 0 {
		return true
	}
	for _, allowed := range o.AllowedMethods {
		if allowed == m {
			return true
		}
	}
	return false
}

// ForInvoice targets a single stored invoice.
func ForInvoice(inv invoice.Invoice) (Obligation, error) {
	if inv.IsPaid() {
		return Obligation{}, ErrInvoicePaid
	}
	return Obligation{
		Kind:        KindInvoice,
		UserID:      inv.UserID,
		InvoiceIDs:  []string{inv.ID},
		Amount:      inv.Amount,
		Description: inv.Month,
		DueDate:     inv.DueDate,
	}, nil
}

// ForRenegotiation targets a priced deal. Deals are settled by bank slip only.
func ForRenegotiation(d renegotiation.Deal, today time.Time) Obligation {
	inv := d.Obligation(today)
	return Obligation{
		Kind:           KindRenegotiation,
		UserID:         inv.UserID,
		InvoiceIDs:     invoice.IDs(d.Invoices),
		Amount:         inv.Amount,
		Description:    inv.Notes,
		DueDate:        inv.DueDate,
		Installments:   d.Installments,
		AllowedMethods: []Method{MethodBoleto},
	}
}

// ForAnticipation targets a bulk anticipation.
func ForAnticipation(a anticipation.Obligation) Obligation {
	inv := a.Invoice()
	return Obligation{
		Kind:        KindAnticipation,
		UserID:      inv.UserID,
		InvoiceIDs:  a.InvoiceIDs(),
		Amount:      inv.Amount,
		Description: a.Label(),
		DueDate:     inv.DueDate,
	}
}
