// Package anticipation prices early payment of several future installments.
//
// A flat discount applies to the sum of the selected invoices:
//
//	discountValue = round(sum * 0.05, 2)
//	finalAmount   = sum - discountValue
package anticipation

import (
	"errors"
	"fmt"
	"time"

	"github.com/artpar/installpay/domain/invoice"
	"github.com/shopspring/decimal"
)

// DiscountRate is the fraction taken off the selected total.
var DiscountRate = decimal.RequireFromString("0.05")

var (
	ErrEmptySelection = errors.New("anticipation requires at least one invoice")
	ErrAlreadyPaid    = errors.New("invoice is already paid")
	ErrOverdue        = errors.New("invoice is overdue and cannot be anticipated")
	ErrUnknownInvoice = errors.New("invoice not found")
	ErrDuplicate      = errors.New("invoice selected twice")
)

// InvoiceError ties a validation failure to an invoice id.
type InvoiceError struct {
	ID  string
	Err error
}

func (e *InvoiceError) Error() string {
	return fmt.Sprintf("invoice %s: %v", e.ID, e.Err)
}

func (e *InvoiceError) Unwrap() error { return e.Err }

// Obligation is a priced bulk anticipation of future installments.
type Obligation struct {
	Invoices      []invoice.Invoice
	Total         decimal.Decimal
	DiscountValue decimal.Decimal
	FinalAmount   decimal.Decimal
}

// Label describes the obligation for display and payment descriptions.
func (o Obligation) Label() string {
	return fmt.Sprintf("Antecipação de %d parcelas", len(o.Invoices))
}

// InvoiceIDs returns the member ids in selection order.
func (o Obligation) InvoiceIDs() []string {
	return invoice.IDs(o.Invoices)
}

// Discount computes the discount and final amount for a total.
func Discount(total decimal.Decimal) (discount, final decimal.Decimal) {
	discount = total.Mul(DiscountRate).Round(2)
	return discount, total.Sub(discount)
}

// Validate checks that every selected invoice is unpaid and not yet due.
func Validate(selected []invoice.Invoice, today time.Time) error {
	if len(selected) == 0 {
		return ErrEmptySelection
	}
	seen := make(map[string]bool, len(selected))
	for _, inv := range selected {
		switch {
		case inv.IsPaid():
			return &InvoiceError{ID: inv.ID, Err: ErrAlreadyPaid}
		case inv.IsLate(today):
			return &InvoiceError{ID: inv.ID, Err: ErrOverdue}
		case inv.ID != "" && seen[inv.ID]:
			return &InvoiceError{ID: inv.ID, Err: ErrDuplicate}
		}
		seen[inv.ID] = true
	}
	return nil
}

// Compute prices the anticipation of the selected invoices.
func Compute(selected []invoice.Invoice, today time.Time) (Obligation, error) {
	if err := Validate(selected, today); err != nil {
		return Obligation{}, err
	}

	total := invoice.Sum(selected)
	discount, final := Discount(total)

	members := make([]invoice.Invoice, len(selected))
	copy(members, selected)

	return Obligation{
		Invoices:      members,
		Total:         total,
		DiscountValue: discount,
		FinalAmount:   final,
	}, nil
}

// Invoice synthesizes the transient invoice that carries the obligation
// through the payment flow. Payer and due date come from the first member.
func (o Obligation) Invoice() invoice.Invoice {
	var first invoice.Invoice
	if len(o.Invoices) > 0 {
		first = o.Invoices[0]
	}
	return invoice.Invoice{
		UserID:          first.UserID,
		Month:           o.Label(),
		DueDate:         first.DueDate,
		Amount:          o.FinalAmount,
		Status:          invoice.StatusOpen,
		Notes:           fmt.Sprintf("%s: R$ %s com desconto de R$ %s", o.Label(), o.FinalAmount.StringFixed(2), o.DiscountValue.StringFixed(2)),
		PurchaseGroupID: first.PurchaseGroupID,
	}
}
