// Package status classifies invoices and purchase groups into lifecycle states.
// All functions are pure; "today" is always passed in.
package status

import (
	"time"

	"github.com/artpar/installpay/domain/invoice"
)

// GroupStatus is the lifecycle state of a purchase group.
type GroupStatus string

const (
	Completed GroupStatus = "completed"
	Active    GroupStatus = "active"
	Late      GroupStatus = "late"
)

// rank orders statuses for display: lower sorts first.
func (s GroupStatus) rank() int {
	switch s {
	case Late:
		return 0
	case Active:
		return 1
	default:
		return 2
	}
}

// Fold applies one member invoice to a running group status.
// Paid members leave the status untouched; an unpaid member moves the group
// to Late when overdue and to Active otherwise, but Late is never downgraded.
func Fold(current GroupStatus, inv invoice.Invoice, today time.Time) GroupStatus {
	if inv.IsPaid() {
		return current
	}
	if inv.IsLate(today) {
		return Late
	}
	if current == Late {
		return Late
	}
	return Active
}

// Classify computes the group status of members from scratch.
func Classify(members []invoice.Invoice, today time.Time) GroupStatus {
	s := Completed
	for _, inv := range members {
		s = Fold(s, inv, today)
	}
	return s
}

// Less reports whether a group (aStatus, aNext) displays before
// (bStatus, bNext). Late before Active before Completed; Late and Active are
// ordered by next due date ascending with nil last. Completed groups compare
// equal so a stable sort keeps their prior order.
func Less(aStatus GroupStatus, aNext *time.Time, bStatus GroupStatus, bNext *time.Time) bool {
	if aStatus.rank() != bStatus.rank() {
		return aStatus.rank() < bStatus.rank()
	}
	if aStatus == Completed {
		return false
	}
	switch {
	case aNext == nil:
		return false
	case bNext == nil:
		return true
	default:
		return invoice.Before(*aNext, *bNext)
	}
}
