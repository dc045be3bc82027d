package payflow

import "time"

// Effect is a store update requested by a transition.
type Effect interface {
	effect()
}

// MarkPaid settles every listed invoice with the same payment.
type MarkPaid struct {
	InvoiceIDs []string
	PaymentID  string
	At         time.Time
}

// MarkSlipIssued attaches a pending slip to every listed invoice.
type MarkSlipIssued struct {
	InvoiceIDs []string
	URL        string
	Barcode    string
}

func (MarkPaid) effect()       {}
func (MarkSlipIssued) effect() {}
