package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/installpay/domain/invoice"
	"github.com/artpar/installpay/ports"
	"github.com/shopspring/decimal"
)

// InvoiceStore implements ports.InvoiceStore using SQLite.
type InvoiceStore struct {
	db *DB
}

// NewInvoiceStore creates a new SQLite invoice store.
func NewInvoiceStore(db *DB) *InvoiceStore {
	return &InvoiceStore{db: db}
}

const invoiceColumns = `id, user_id, month, due_date, amount, status,
	payment_date, payment_id, notes, boleto_url, boleto_barcode, purchase_group_id`

// ListByUser returns every invoice of a user ordered by due date.
func (s *InvoiceStore) ListByUser(ctx context.Context, userID string) ([]invoice.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE user_id = ?
		ORDER BY due_date, id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInvoices(rows)
}

// Get retrieves an invoice by ID.
func (s *InvoiceStore) Get(ctx context.Context, id string) (invoice.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
	if err != nil {
		return invoice.Invoice{}, err
	}
	defer rows.Close()

	invoices, err := scanInvoices(rows)
	if err != nil {
		return invoice.Invoice{}, err
	}
	if len(invoices) == 0 {
		return invoice.Invoice{}, ErrNotFound
	}
	return invoices[0], nil
}

// GetMany retrieves the invoices with the given ids.
func (s *InvoiceStore) GetMany(ctx context.Context, ids []string) ([]invoice.Invoice, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE id IN (`+placeholders(len(ids))+`)
		ORDER BY due_date, id
	`, args(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInvoices(rows)
}

// Upsert creates or replaces invoices in one transaction.
func (s *InvoiceStore) Upsert(ctx context.Context, invoices []invoice.Invoice) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO invoices (`+invoiceColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			month = excluded.month,
			due_date = excluded.due_date,
			amount = excluded.amount,
			status = excluded.status,
			payment_date = excluded.payment_date,
			payment_id = excluded.payment_id,
			notes = excluded.notes,
			boleto_url = excluded.boleto_url,
			boleto_barcode = excluded.boleto_barcode,
			purchase_group_id = excluded.purchase_group_id,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, inv := range invoices {
		if inv.ID == "" {
			return 0, errors.New("invoice id is required")
		}
		_, err := stmt.ExecContext(ctx,
			inv.ID, inv.UserID, inv.Month, invoice.FormatDate(inv.DueDate), inv.Amount.String(), string(inv.Status),
			nullTime(inv.PaymentDate), nullString(inv.PaymentID), nullString(inv.Notes),
			nullString(inv.BoletoURL), nullString(inv.BoletoBarcode), nullString(inv.PurchaseGroupID),
		)
		if err != nil {
			return 0, fmt.Errorf("upsert invoice %s: %w", inv.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(invoices), nil
}

// MarkPaid settles all ids with one statement. Invoices already paid by a
// different payment are left untouched; reconciliation reports them.
func (s *InvoiceStore) MarkPaid(ctx context.Context, ids []string, paymentID string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE invoices
		SET status = ?, payment_id = ?, payment_date = ?,
		    boleto_url = NULL, boleto_barcode = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id IN (` + placeholders(len(ids)) + `)
		  AND (status <> ? OR payment_id = ?)`

	params := []any{string(invoice.StatusPaid), paymentID, at.UTC()}
	params = append(params, args(ids)...)
	params = append(params, string(invoice.StatusPaid), paymentID)

	_, err := s.db.ExecContext(ctx, query, params...)
	return err
}

// MarkSlipIssued attaches a pending slip to all unpaid ids.
func (s *InvoiceStore) MarkSlipIssued(ctx context.Context, ids []string, url, barcode string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE invoices
		SET status = ?, boleto_url = ?, boleto_barcode = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id IN (` + placeholders(len(ids)) + `)
		  AND status <> ?`

	params := []any{string(invoice.StatusSlipIssued), url, barcode}
	params = append(params, args(ids)...)
	params = append(params, string(invoice.StatusPaid))

	result, err := s.db.ExecContext(ctx, query, params...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanInvoices(rows *sql.Rows) ([]invoice.Invoice, error) {
	var invoices []invoice.Invoice
	for rows.Next() {
		var (
			inv                                                 invoice.Invoice
			dueDate, amount, status                             string
			paymentDate                                         sql.NullTime
			paymentID, notes, boletoURL, boletoBarcode, groupID sql.NullString
		)
		err := rows.Scan(
			&inv.ID, &inv.UserID, &inv.Month, &dueDate, &amount, &status,
			&paymentDate, &paymentID, &notes, &boletoURL, &boletoBarcode, &groupID,
		)
		if err != nil {
			return nil, err
		}

		if inv.DueDate, err = invoice.ParseDate(dueDate); err != nil {
			return nil, fmt.Errorf("invoice %s: %w", inv.ID, err)
		}
		if inv.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invoice %s: parse amount: %w", inv.ID, err)
		}
		inv.Status = invoice.Status(status)
		if paymentDate.Valid {
			t := paymentDate.Time
			inv.PaymentDate = &t
		}
		inv.PaymentID = paymentID.String
		inv.Notes = notes.String
		inv.BoletoURL = boletoURL.String
		inv.BoletoBarcode = boletoBarcode.String
		inv.PurchaseGroupID = groupID.String

		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func args(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// Ensure interface compliance.
var _ ports.InvoiceStore = (*InvoiceStore)(nil)
