package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/installpay/domain/invoice"
	"github.com/artpar/installpay/ports"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type invoiceModel struct {
	ID              string          `gorm:"column:id;primaryKey"`
	UserID          string          `gorm:"column:user_id;not null;index:idx_invoices_user_due,priority:1"`
	Month           string          `gorm:"column:month;not null"`
	DueDate         string          `gorm:"column:due_date;type:varchar(10);not null;index:idx_invoices_user_due,priority:2"`
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	Status          string          `gorm:"column:status;not null;default:'Em aberto'"`
	PaymentDate     *time.Time      `gorm:"column:payment_date"`
	PaymentID       *string         `gorm:"column:payment_id;index"`
	Notes           *string         `gorm:"column:notes"`
	BoletoURL       *string         `gorm:"column:boleto_url"`
	BoletoBarcode   *string         `gorm:"column:boleto_barcode"`
	PurchaseGroupID *string         `gorm:"column:purchase_group_id;index"`
	CreatedAt       time.Time       `gorm:"column:created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at"`
}

func (invoiceModel) TableName() string { return "invoices" }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toInvoiceModel(inv invoice.Invoice) invoiceModel {
	return invoiceModel{
		ID:              inv.ID,
		UserID:          inv.UserID,
		Month:           inv.Month,
		DueDate:         invoice.FormatDate(inv.DueDate),
		Amount:          inv.Amount,
		Status:          string(inv.Status),
		PaymentDate:     inv.PaymentDate,
		PaymentID:       optional(inv.PaymentID),
		Notes:           optional(inv.Notes),
		BoletoURL:       optional(inv.BoletoURL),
		BoletoBarcode:   optional(inv.BoletoBarcode),
		PurchaseGroupID: optional(inv.PurchaseGroupID),
	}
}

func (m invoiceModel) toDomain() (invoice.Invoice, error) {
	due, err := invoice.ParseDate(m.DueDate)
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("invoice %s: %w", m.ID, err)
	}
	return invoice.Invoice{
		ID:              m.ID,
		UserID:          m.UserID,
		Month:           m.Month,
		DueDate:         due,
		Amount:          m.Amount,
		Status:          invoice.Status(m.Status),
		PaymentDate:     m.PaymentDate,
		PaymentID:       deref(m.PaymentID),
		Notes:           deref(m.Notes),
		BoletoURL:       deref(m.BoletoURL),
		BoletoBarcode:   deref(m.BoletoBarcode),
		PurchaseGroupID: deref(m.PurchaseGroupID),
	}, nil
}

func toInvoices(models []invoiceModel) ([]invoice.Invoice, error) {
	out := make([]invoice.Invoice, 0, len(models))
	for _, m := range models {
		inv, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}

// InvoiceStore implements ports.InvoiceStore using GORM.
type InvoiceStore struct {
	db *gorm.DB
}

// NewInvoiceStore creates a new invoice store.
func NewInvoiceStore(db *gorm.DB) *InvoiceStore {
	return &InvoiceStore{db: db}
}

// ListByUser returns every invoice of a user ordered by due date.
func (s *InvoiceStore) ListByUser(ctx context.Context, userID string) ([]invoice.Invoice, error) {
	var models []invoiceModel
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("due_date").Order("id").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toInvoices(models)
}

// Get retrieves an invoice by ID.
func (s *InvoiceStore) Get(ctx context.Context, id string) (invoice.Invoice, error) {
	var m invoiceModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return invoice.Invoice{}, ports.ErrNotFound
	}
	if err != nil {
		return invoice.Invoice{}, err
	}
	return m.toDomain()
}

// GetMany retrieves the invoices with the given ids.
func (s *InvoiceStore) GetMany(ctx context.Context, ids []string) ([]invoice.Invoice, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []invoiceModel
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("due_date").Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	return toInvoices(models)
}

// Upsert creates or replaces invoices in one statement.
func (s *InvoiceStore) Upsert(ctx context.Context, invoices []invoice.Invoice) (int, error) {
	if len(invoices) == 0 {
		return 0, nil
	}
	models := make([]invoiceModel, len(invoices))
	for i, inv := range invoices {
		if inv.ID == "" {
			return 0, errors.New("invoice id is required")
		}
		models[i] = toInvoiceModel(inv)
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "month", "due_date", "amount", "status", "payment_date",
			"payment_id", "notes", "boleto_url", "boleto_barcode", "purchase_group_id", "updated_at",
		}),
	}).Create(&models).Error
	if err != nil {
		return 0, err
	}
	return len(models), nil
}

// MarkPaid settles all ids in a single UPDATE. Invoices already paid by a
// different payment are left untouched.
func (s *InvoiceStore) MarkPaid(ctx context.Context, ids []string, paymentID string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	at = at.UTC()
	return s.db.WithContext(ctx).Model(&invoiceModel{}).
		Where("id IN ?", ids).
		Where("(status <> ? OR payment_id = ?)", string(invoice.StatusPaid), paymentID).
		Updates(map[string]any{
			"status":         string(invoice.StatusPaid),
			"payment_id":     paymentID,
			"payment_date":   at,
			"boleto_url":     nil,
			"boleto_barcode": nil,
			"updated_at":     time.Now().UTC(),
		}).Error
}

// MarkSlipIssued attaches a pending slip to every unpaid id.
func (s *InvoiceStore) MarkSlipIssued(ctx context.Context, ids []string, url, barcode string) error {
	if len(ids) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&invoiceModel{}).
		Where("id IN ?", ids).
		Where("status <> ?", string(invoice.StatusPaid)).
		Updates(map[string]any{
			"status":         string(invoice.StatusSlipIssued),
			"boleto_url":     url,
			"boleto_barcode": barcode,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// Ensure interface compliance.
var _ ports.InvoiceStore = (*InvoiceStore)(nil)
