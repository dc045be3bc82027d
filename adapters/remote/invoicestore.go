package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/artpar/installpay/domain/invoice"
	"github.com/artpar/installpay/ports"
	"golang.org/x/sync/errgroup"
)

// InvoiceStore implements ports.InvoiceStore against an invoice REST API.
//
// API Contract:
//
//	GET   /users/{user_id}/invoices   -> [invoice]
//	GET   /invoices/{id}              -> invoice | 404
//	GET   /invoices?ids=a,b,c         -> [invoice]
//	PUT   /invoices                   [invoice] -> {"written": n}
//	PATCH /invoices/{id}              {status, payment_id, payment_date, boleto_url, boleto_barcode} -> 204
//
// The API updates one row per request, so batch writes are issued
// concurrently and may partially fail. The returned error joins every
// per-invoice failure.
type InvoiceStore struct {
	client      *Client
	concurrency int
}

// NewInvoiceStore creates a remote invoice store.
func NewInvoiceStore(cfg ClientConfig) *InvoiceStore {
	return &InvoiceStore{client: NewClient(cfg), concurrency: 8}
}

func fromRecords(records []invoice.Record) ([]invoice.Invoice, error) {
	out := make([]invoice.Invoice, 0, len(records))
	for _, r := range records {
		inv, err := invoice.FromRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}

// ListByUser returns every invoice of a user.
func (s *InvoiceStore) ListByUser(ctx context.Context, userID string) ([]invoice.Invoice, error) {
	var records []invoice.Record
	if err := s.client.Request(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/invoices", nil, &records); err != nil {
		return nil, err
	}
	invoices, err := fromRecords(records)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(invoices, func(i, j int) bool {
		if !invoices[i].DueDate.Equal(invoices[j].DueDate) {
			return invoices[i].DueDate.Before(invoices[j].DueDate)
		}
		return invoices[i].ID < invoices[j].ID
	})
	return invoices, nil
}

// Get retrieves an invoice by ID.
func (s *InvoiceStore) Get(ctx context.Context, id string) (invoice.Invoice, error) {
	var record invoice.Record
	if err := s.client.Request(ctx, http.MethodGet, "/invoices/"+url.PathEscape(id), nil, &record); err != nil {
		if IsNotFound(err) {
			return invoice.Invoice{}, ports.ErrNotFound
		}
		return invoice.Invoice{}, err
	}
	return invoice.FromRecord(record)
}

// GetMany retrieves the invoices with the given ids.
func (s *InvoiceStore) GetMany(ctx context.Context, ids []string) ([]invoice.Invoice, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var records []invoice.Record
	q := url.Values{"ids": {strings.Join(ids, ",")}}
	if err := s.client.Request(ctx, http.MethodGet, "/invoices?"+q.Encode(), nil, &records); err != nil {
		return nil, err
	}
	return fromRecords(records)
}

// Upsert creates or replaces invoices.
func (s *InvoiceStore) Upsert(ctx context.Context, invoices []invoice.Invoice) (int, error) {
	if len(invoices) == 0 {
		return 0, nil
	}
	records := make([]invoice.Record, len(invoices))
	for i, inv := range invoices {
		if inv.ID == "" {
			return 0, errors.New("invoice id is required")
		}
		records[i] = invoice.ToRecord(inv)
	}

	var resp struct {
		Written int `json:"written"`
	}
	if err := s.client.Request(ctx, http.MethodPut, "/invoices", records, &resp); err != nil {
		return 0, err
	}
	return resp.Written, nil
}

type invoicePatch struct {
	Status        string     `json:"status"`
	PaymentID     *string    `json:"payment_id,omitempty"`
	PaymentDate   *time.Time `json:"payment_date,omitempty"`
	BoletoURL     *string    `json:"boleto_url"`
	BoletoBarcode *string    `json:"boleto_barcode"`
}

// MarkPaid settles every id with the payment. Failures are per invoice.
func (s *InvoiceStore) MarkPaid(ctx context.Context, ids []string, paymentID string, at time.Time) error {
	at = at.UTC()
	return s.patchAll(ctx, ids, invoicePatch{
		Status:      string(invoice.StatusPaid),
		PaymentID:   &paymentID,
		PaymentDate: &at,
	})
}

// MarkSlipIssued attaches a slip to every id. Failures are per invoice.
func (s *InvoiceStore) MarkSlipIssued(ctx context.Context, ids []string, slipURL, barcode string) error {
	return s.patchAll(ctx, ids, invoicePatch{
		Status:        string(invoice.StatusSlipIssued),
		BoletoURL:     &slipURL,
		BoletoBarcode: &barcode,
	})
}

func (s *InvoiceStore) patchAll(ctx context.Context, ids []string, patch invoicePatch) error {
	var (
		mu   sync.Mutex
		errs []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			err := s.client.Request(gctx, http.MethodPatch, "/invoices/"+url.PathEscape(id), patch, nil)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("invoice %s: %w", id, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// Ensure interface compliance.
var _ ports.InvoiceStore = (*InvoiceStore)(nil)
