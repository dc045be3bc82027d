package invoice_test

import (
	"testing"
	"time"

	"github.com/artpar/installpay/domain/invoice"
	"github.com/shopspring/decimal"
)

func day(s string) time.Time {
	t, err := invoice.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestStatus_Valid(t *testing.T) {
	tests := []struct {
		status invoice.Status
		want   bool
	}{
		{invoice.StatusOpen, true},
		{invoice.StatusSlipIssued, true},
		{invoice.StatusPaid, true},
		{invoice.StatusAwaitingSignature, true},
		{invoice.Status("paid"), false},
		{invoice.Status(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInvoice_IsLate(t *testing.T) {
	today := time.Date(2024, 2, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		inv  invoice.Invoice
		want bool
	}{
		{"open before today", invoice.Invoice{Status: invoice.StatusOpen, DueDate: day("2024-02-09")}, true},
		{"open due today", invoice.Invoice{Status: invoice.StatusOpen, DueDate: day("2024-02-10")}, false},
		{"open after today", invoice.Invoice{Status: invoice.StatusOpen, DueDate: day("2024-02-11")}, false},
		{"slip issued overdue", invoice.Invoice{Status: invoice.StatusSlipIssued, DueDate: day("2024-01-01")}, true},
		{"awaiting signature overdue", invoice.Invoice{Status: invoice.StatusAwaitingSignature, DueDate: day("2024-01-01")}, true},
		{"paid overdue", invoice.Invoice{Status: invoice.StatusPaid, DueDate: day("2024-01-01")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.inv.IsLate(today); got != tt.want {
				t.Errorf("IsLate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInvoice_IsFuture(t *testing.T) {
	today := day("2024-02-10")

	if !(invoice.Invoice{Status: invoice.StatusOpen, DueDate: day("2024-02-10")}).IsFuture(today) {
		t.Error("invoice due today should be future")
	}
	if (invoice.Invoice{Status: invoice.StatusPaid, DueDate: day("2024-03-10")}).IsFuture(today) {
		t.Error("paid invoice should not be future")
	}
	if (invoice.Invoice{Status: invoice.StatusOpen, DueDate: day("2024-02-09")}).IsFuture(today) {
		t.Error("late invoice should not be future")
	}
}

func TestBefore_IgnoresTimeOfDay(t *testing.T) {
	a := time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC)
	b := time.Date(2024, 5, 1, 0, 1, 0, 0, time.UTC)

	if invoice.Before(a, b) || invoice.Before(b, a) {
		t.Error("same calendar date should not compare as before")
	}
	if !invoice.Before(a, b.AddDate(0, 0, 1)) {
		t.Error("expected earlier date to be before")
	}
}

func TestSumAndIDs(t *testing.T) {
	invoices := []invoice.Invoice{
		{ID: "a", Amount: decimal.RequireFromString("100.10")},
		{ID: "b", Amount: decimal.RequireFromString("50.05")},
	}

	if got := invoice.Sum(invoices); !got.Equal(decimal.RequireFromString("150.15")) {
		t.Errorf("Sum() = %s, want 150.15", got)
	}
	if got := invoice.Sum(nil); !got.IsZero() {
		t.Errorf("Sum(nil) = %s, want 0", got)
	}

	ids := invoice.IDs(invoices)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("IDs() = %v", ids)
	}
}

func TestInvoice_MarkPaid(t *testing.T) {
	inv := invoice.Invoice{
		ID:            "inv-1",
		Status:        invoice.StatusSlipIssued,
		BoletoURL:     "https://slip",
		BoletoBarcode: "123",
	}
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	paid := inv.MarkPaid("pay-1", at)

	if paid.Status != invoice.StatusPaid {
		t.Errorf("Status = %s, want Paga", paid.Status)
	}
	if paid.PaymentID != "pay-1" {
		t.Errorf("PaymentID = %s", paid.PaymentID)
	}
	if paid.PaymentDate == nil || !paid.PaymentDate.Equal(at) {
		t.Error("PaymentDate mismatch")
	}
	if paid.BoletoURL != "" || paid.BoletoBarcode != "" {
		t.Error("slip fields should be cleared once paid")
	}
	if inv.Status != invoice.StatusSlipIssued {
		t.Error("original invoice should be unchanged")
	}
}

func TestInvoice_MarkSlipIssued(t *testing.T) {
	inv := invoice.Invoice{Status: invoice.StatusOpen}
	got := inv.MarkSlipIssued("https://slip/1", "34191.79001")

	if got.Status != invoice.StatusSlipIssued {
		t.Errorf("Status = %s", got.Status)
	}
	if got.BoletoURL != "https://slip/1" || got.BoletoBarcode != "34191.79001" {
		t.Error("slip fields mismatch")
	}
}
