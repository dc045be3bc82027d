// Package settlement checks that a bulk payment landed on every invoice it
// was meant to settle.
package settlement

import (
	"fmt"
	"strings"

	"github.com/artpar/installpay/domain/invoice"
)

// Report compares the intended set of invoices with what the store holds
// after the write.
type Report struct {
	PaymentID string
	Intended  []string
	Confirmed []string // paid with PaymentID
	Missing   []string // not paid, paid by another payment, or not found
}

// Complete returns true if every intended invoice was confirmed.
func (r Report) Complete() bool {
	return len(r.Missing) == 0
}

// Err returns a *PartialError when any intended invoice is missing.
func (r Report) Err() error {
	if r.Complete() {
		return nil
	}
	return &PartialError{
		PaymentID: r.PaymentID,
		Confirmed: append([]string(nil), r.Confirmed...),
		Missing:   append([]string(nil), r.Missing...),
	}
}

// Reconcile builds a report from the intended ids and a fresh read of the
// invoices.
func Reconcile(intended []string, observed []invoice.Invoice, paymentID string) Report {
	byID := make(map[string]invoice.Invoice, len(observed))
	for _, inv := range observed {
		byID[inv.ID] = inv
	}

	r := Report{PaymentID: paymentID, Intended: append([]string(nil), intended...)}
	for _, id := range intended {
		inv, ok := byID[id]
		if ok && inv.IsPaid() && inv.PaymentID == paymentID {
			r.Confirmed = append(r.Confirmed, id)
			continue
		}
		r.Missing = append(r.Missing, id)
	}
	return r
}

// PartialError reports a bulk settlement where money moved but not every
// invoice reflects it. It is never healed automatically.
type PartialError struct {
	PaymentID string
	Confirmed []string
	Missing   []string
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("payment %s settled %d of %d invoices; missing: %s",
		e.PaymentID, len(e.Confirmed), len(e.Confirmed)+len(e.Missing), strings.Join(e.Missing, ", "))
}

// Partial returns true if at least one invoice was confirmed.
func (e *PartialError) Partial() bool {
	return len(e.Confirmed) > 0
}
