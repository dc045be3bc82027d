// Package invoice provides the installment invoice value type and pure helpers.
package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the payment state of an invoice.
// Values are the labels used by the backing store.
type Status string

const (
	StatusOpen              Status = "Em aberto"
	StatusSlipIssued        Status = "Boleto Gerado"
	StatusPaid              Status = "Paga"
	StatusAwaitingSignature Status = "Aguardando Assinatura"
)

// Valid reports whether s is a known status label.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusSlipIssued, StatusPaid, StatusAwaitingSignature:
		return true
	}
	return false
}

// Invoice is a single billable installment (value type).
type Invoice struct {
	ID              string
	UserID          string
	Month           string // free-text label, may end in " (k/n)"
	DueDate         time.Time
	Amount          decimal.Decimal
	Status          Status
	PaymentDate     *time.Time
	PaymentID       string
	Notes           string
	BoletoURL       string
	BoletoBarcode   string
	PurchaseGroupID string // explicit group key; empty for legacy rows
}

// IsPaid returns true if the invoice has been settled.
func (inv Invoice) IsPaid() bool {
	return inv.Status == StatusPaid
}

// IsLate returns true if the invoice is unpaid and its due date is strictly
// before today. A slip-issued invoice is still unpaid.
func (inv Invoice) IsLate(today time.Time) bool {
	if inv.IsPaid() {
		return false
	}
	return Before(inv.DueDate, today)
}

// IsFuture returns true if the invoice is unpaid and not yet overdue.
func (inv Invoice) IsFuture(today time.Time) bool {
	return !inv.IsPaid() && !inv.IsLate(today)
}

// Sum returns the total amount of the given invoices.
func Sum(invoices []Invoice) decimal.Decimal {
	total := decimal.Zero
	for _, inv := range invoices {
		total = total.Add(inv.Amount)
	}
	return total
}

// IDs returns the ids of the given invoices in order.
func IDs(invoices []Invoice) []string {
	ids := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
	}
	return ids
}

// Late filters invoices that are late on today.
func Late(invoices []Invoice, today time.Time) []Invoice {
	var out []Invoice
	for _, inv := range invoices {
		if inv.IsLate(today) {
			out = append(out, inv)
		}
	}
	return out
}

// MarkPaid returns a copy of inv settled with the given payment.
func (inv Invoice) MarkPaid(paymentID string, at time.Time) Invoice {
	inv.Status = StatusPaid
	inv.PaymentID = paymentID
	paid := at
	inv.PaymentDate = &paid
	inv.BoletoURL = ""
	inv.BoletoBarcode = ""
	return inv
}

// MarkSlipIssued returns a copy of inv with a pending bank slip attached.
func (inv Invoice) MarkSlipIssued(url, barcode string) Invoice {
	inv.Status = StatusSlipIssued
	inv.BoletoURL = url
	inv.BoletoBarcode = barcode
	return inv
}
