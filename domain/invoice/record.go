package invoice

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Record is the wire shape of an invoice as exchanged with the store.
type Record struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Month           string          `json:"month"`
	DueDate         string          `json:"due_date"`
	Amount          decimal.Decimal `json:"amount"`
	Status          string          `json:"status"`
	PaymentDate     *time.Time      `json:"payment_date,omitempty"`
	PaymentID       string          `json:"payment_id,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	BoletoURL       string          `json:"boleto_url,omitempty"`
	BoletoBarcode   string          `json:"boleto_barcode,omitempty"`
	PurchaseGroupID string          `json:"purchase_group_id,omitempty"`
}

// FromRecord converts a wire record into an Invoice, validating the fields
// the engine depends on.
func FromRecord(r Record) (Invoice, error) {
	status := Status(r.Status)
	if !status.Valid() {
		return Invoice{}, fmt.Errorf("invoice %s: unknown status %q", r.ID, r.Status)
	}
	if r.Amount.IsNegative() {
		return Invoice{}, fmt.Errorf("invoice %s: negative amount", r.ID)
	}
	due, err := ParseDate(r.DueDate)
	if err != nil {
		return Invoice{}, fmt.Errorf("invoice %s: %w", r.ID, err)
	}

	return Invoice{
		ID:              r.ID,
		UserID:          r.UserID,
		Month:           r.Month,
		DueDate:         due,
		Amount:          r.Amount,
		Status:          status,
		PaymentDate:     r.PaymentDate,
		PaymentID:       r.PaymentID,
		Notes:           r.Notes,
		BoletoURL:       r.BoletoURL,
		BoletoBarcode:   r.BoletoBarcode,
		PurchaseGroupID: r.PurchaseGroupID,
	}, nil
}

// ToRecord converts an Invoice to its wire shape.
func ToRecord(inv Invoice) Record {
	return Record{
		ID:              inv.ID,
		UserID:          inv.UserID,
		Month:           inv.Month,
		DueDate:         FormatDate(inv.DueDate),
		Amount:          inv.Amount,
		Status:          string(inv.Status),
		PaymentDate:     inv.PaymentDate,
		PaymentID:       inv.PaymentID,
		Notes:           inv.Notes,
		BoletoURL:       inv.BoletoURL,
		BoletoBarcode:   inv.BoletoBarcode,
		PurchaseGroupID: inv.PurchaseGroupID,
	}
}

// DecodeRecords parses a JSON array of invoice records.
func DecodeRecords(data []byte) ([]Invoice, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode invoices: %w", err)
	}

	invoices := make([]Invoice, 0, len(records))
	for _, r := range records {
		inv, err := FromRecord(r)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}
