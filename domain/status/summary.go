package status

import (
	"time"

	"github.com/artpar/installpay/domain/invoice"
	"github.com/shopspring/decimal"
)

// Summary holds the headline figures shown above the invoice list.
type Summary struct {
	OpenCount  int
	OpenAmount decimal.Decimal
	LateCount  int
	LateAmount decimal.Decimal
	NextDue    *invoice.Invoice // earliest unpaid invoice that is not late
}

// HasLate returns true if any invoice is overdue.
func (s Summary) HasLate() bool {
	return s.LateCount > 0
}

// Summarize computes banner figures over a flat invoice list.
func Summarize(invoices []invoice.Invoice, today time.Time) Summary {
	sum := Summary{
		OpenAmount: decimal.Zero,
		LateAmount: decimal.Zero,
	}

	for i := range invoices {
		inv := invoices[i]
		if inv.IsPaid() {
			continue
		}
		sum.OpenCount++
		sum.OpenAmount = sum.OpenAmount.Add(inv.Amount)

		if inv.IsLate(today) {
			sum.LateCount++
			sum.LateAmount = sum.LateAmount.Add(inv.Amount)
			continue
		}
		if sum.NextDue == nil || invoice.Before(inv.DueDate, sum.NextDue.DueDate) {
			next := inv
			sum.NextDue = &next
		}
	}
	return sum
}
