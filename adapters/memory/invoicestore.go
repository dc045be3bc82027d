// Package memory provides in-memory implementations of storage ports.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/artpar/installpay/domain/invoice"
	"github.com/artpar/installpay/ports"
	"github.com/samber/lo"
)

// ErrNotFound is returned when an entity is not found.
var ErrNotFound = ports.ErrNotFound

// ErrWriteFailed is returned for ids configured with FailWrites.
var ErrWriteFailed = errors.New("write failed")

// InvoiceStore is an in-memory implementation of ports.InvoiceStore.
// Batch writes are applied per invoice, so a failing id does not stop the
// others; this mirrors a store without multi-row transactions.
type InvoiceStore struct {
	mu       sync.RWMutex
	invoices map[string]invoice.Invoice
	failing  map[string]bool
}

// NewInvoiceStore creates a new in-memory invoice store.
func NewInvoiceStore(seed ...invoice.Invoice) *InvoiceStore {
	s := &InvoiceStore{
		invoices: make(map[string]invoice.Invoice),
		failing:  make(map[string]bool),
	}
	for _, inv := range seed {
		s.invoices[inv.ID] = inv
	}
	return s
}

// FailWrites makes writes to the given ids fail (for testing).
func (s *InvoiceStore) FailWrites(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.failing[id] = true
	}
}

// ListByUser returns every invoice of a user ordered by due date.
func (s *InvoiceStore) ListByUser(ctx context.Context, userID string) ([]invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := lo.Filter(lo.Values(s.invoices), func(inv invoice.Invoice, _ int) bool {
		return inv.UserID == userID
	})
	sortByDue(out)
	return out, nil
}

// Get retrieves an invoice by ID.
func (s *InvoiceStore) Get(ctx context.Context, id string) (invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[id]
	if !ok {
		return invoice.Invoice{}, ErrNotFound
	}
	return inv, nil
}

// GetMany retrieves the invoices with the given ids.
func (s *InvoiceStore) GetMany(ctx context.Context, ids []string) ([]invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []invoice.Invoice
	for _, id := range lo.Uniq(ids) {
		if inv, ok := s.invoices[id]; ok {
			out = append(out, inv)
		}
	}
	sortByDue(out)
	return out, nil
}

// Upsert creates or replaces invoices.
func (s *InvoiceStore) Upsert(ctx context.Context, invoices []invoice.Invoice) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inv := range invoices {
		if inv.ID == "" {
			return 0, errors.New("invoice id is required")
		}
	}
	for _, inv := range invoices {
		s.invoices[inv.ID] = inv
	}
	return len(invoices), nil
}

// MarkPaid settles every id independently. Invoices already paid by another
// payment are skipped.
func (s *InvoiceStore) MarkPaid(ctx context.Context, ids []string, paymentID string, at time.Time) error {
	return s.apply(ids, func(inv invoice.Invoice) (invoice.Invoice, bool) {
		if inv.IsPaid() && inv.PaymentID != paymentID {
			return inv, false
		}
		return inv.MarkPaid(paymentID, at), true
	})
}

// MarkSlipIssued attaches a pending slip to every unpaid id.
func (s *InvoiceStore) MarkSlipIssued(ctx context.Context, ids []string, url, barcode string) error {
	return s.apply(ids, func(inv invoice.Invoice) (invoice.Invoice, bool) {
		if inv.IsPaid() {
			return inv, false
		}
		return inv.MarkSlipIssued(url, barcode), true
	})
}

func (s *InvoiceStore) apply(ids []string, fn func(invoice.Invoice) (invoice.Invoice, bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, id := range lo.Uniq(ids) {
		inv, ok := s.invoices[id]
		if !ok {
			errs = append(errs, fmt.Errorf("invoice %s: %w", id, ErrNotFound))
			continue
		}
		if s.failing[id] {
			errs = append(errs, fmt.Errorf("invoice %s: %w", id, ErrWriteFailed))
			continue
		}
		if next, changed := fn(inv); changed {
			s.invoices[id] = next
		}
	}
	return errors.Join(errs...)
}

func sortByDue(invoices []invoice.Invoice) {
	sort.Slice(invoices, func(i, j int) bool {
		a, b := invoices[i], invoices[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		return a.ID < b.ID
	})
}

// Ensure interface compliance.
var _ ports.InvoiceStore = (*InvoiceStore)(nil)
