// Package renegotiation prices overdue debt consolidated into a new plan.
//
// Interest grows linearly with the number of installments chosen, reaching
// the configured maximum rate at MaxInstallments:
//
//	interestPct       = maxRate * (installments / 7) / 100
//	totalWithInterest = totalOriginal * (1 + interestPct)
//	installmentValue  = totalWithInterest / installments
package renegotiation

import (
	"errors"
	"fmt"
	"time"

	"github.com/artpar/installpay/domain/invoice"
	"github.com/shopspring/decimal"
)

const (
	MinInstallments = 1
	MaxInstallments = 7
)

// DefaultMaxRate is the interest percentage applied at MaxInstallments when
// no setting overrides it.
var DefaultMaxRate = decimal.NewFromInt(15)

var (
	// ErrNoOverdueInvoices is returned when the deal has nothing to consolidate.
	ErrNoOverdueInvoices = errors.New("renegotiation requires at least one overdue invoice")
	// ErrInstallmentsOutOfRange is returned for counts outside [1,7].
	ErrInstallmentsOutOfRange = errors.New("installments must be between 1 and 7")
	// ErrNegativeRate is returned for a negative maximum rate.
	ErrNegativeRate = errors.New("maximum interest rate must not be negative")
	// ErrNotOverdue is returned when a member invoice is paid or not yet due.
	ErrNotOverdue = errors.New("invoice is not overdue")
)

var (
	seven   = decimal.NewFromInt(MaxInstallments)
	hundred = decimal.NewFromInt(100)
)

// Deal is a priced renegotiation of a set of overdue invoices.
type Deal struct {
	Invoices          []invoice.Invoice
	Installments      int
	MaxRate           decimal.Decimal
	TotalOriginal     decimal.Decimal
	InterestPct       decimal.Decimal // fraction, e.g. 0.15 for 15%
	TotalWithInterest decimal.Decimal // rounded to cents
	InstallmentValue  decimal.Decimal // rounded to cents
}

// InterestPct returns the interest fraction for a number of installments.
// The result is exact for installments == 7.
func InterestPct(maxRate decimal.Decimal, installments int) decimal.Decimal {
	n := decimal.NewFromInt(int64(installments))
	return maxRate.Mul(n).Div(seven).Div(hundred)
}

// Validate checks the inputs of a deal without pricing it.
func Validate(overdue []invoice.Invoice, installments int, maxRate decimal.Decimal) error {
	if len(overdue) == 0 {
		return ErrNoOverdueInvoices
	}
	if installments < MinInstallments || installments > MaxInstallments {
		return fmt.Errorf("%w: got %d", ErrInstallmentsOutOfRange, installments)
	}
	if maxRate.IsNegative() {
		return ErrNegativeRate
	}
	return nil
}

// ComputeDeal prices a renegotiation. It does not look at due dates; callers
// that need to enforce overdue membership use ComputeDealOn.
func ComputeDeal(overdue []invoice.Invoice, installments int, maxRate decimal.Decimal) (Deal, error) {
	if err := Validate(overdue, installments, maxRate); err != nil {
		return Deal{}, err
	}

	total := invoice.Sum(overdue)
	pct := InterestPct(maxRate, installments)
	withInterest := total.Mul(decimal.NewFromInt(1).Add(pct))
	perInstallment := withInterest.Div(decimal.NewFromInt(int64(installments)))

	members := make([]invoice.Invoice, len(overdue))
	copy(members, overdue)

	return Deal{
		Invoices:          members,
		Installments:      installments,
		MaxRate:           maxRate,
		TotalOriginal:     total,
		InterestPct:       pct,
		TotalWithInterest: withInterest.Round(2),
		InstallmentValue:  perInstallment.Round(2),
	}, nil
}

// ComputeDealOn prices a renegotiation after checking that every member is
// unpaid and overdue on today.
func ComputeDealOn(overdue []invoice.Invoice, installments int, maxRate decimal.Decimal, today time.Time) (Deal, error) {
	for _, inv := range overdue {
		if !inv.IsLate(today) {
			return Deal{}, fmt.Errorf("%w: %s", ErrNotOverdue, inv.ID)
		}
	}
	return ComputeDeal(overdue, installments, maxRate)
}

// Quote prices the deal for every allowed installment count.
func Quote(overdue []invoice.Invoice, maxRate decimal.Decimal) ([]Deal, error) {
	deals := make([]Deal, 0, MaxInstallments)
	for n := MinInstallments; n <= MaxInstallments; n++ {
		d, err := ComputeDeal(overdue, n, maxRate)
		if err != nil {
			return nil, err
		}
		deals = append(deals, d)
	}
	return deals, nil
}

// InterestPercent returns the interest as a percentage rounded to two places.
func (d Deal) InterestPercent() decimal.Decimal {
	return d.InterestPct.Mul(hundred).Round(2)
}

// Description is the human-readable plan recorded on the synthesized invoice.
func (d Deal) Description() string {
	return fmt.Sprintf("Renegociação de %d fatura(s) em atraso: %dx de R$ %s (juros de %s%%)",
		len(d.Invoices), d.Installments, d.InstallmentValue.StringFixed(2), d.InterestPercent().StringFixed(2))
}

// Obligation synthesizes the transient invoice that carries the deal through
// the payment flow. It has no persistent id.
func (d Deal) Obligation(today time.Time) invoice.Invoice {
	var userID string
	if len(d.Invoices) > 0 {
		userID = d.Invoices[0].UserID
	}
	return invoice.Invoice{
		UserID:  userID,
		Month:   fmt.Sprintf("Renegociação (%dx)", d.Installments),
		DueDate: invoice.Date(today),
		Amount:  d.TotalWithInterest,
		Status:  invoice.StatusOpen,
		Notes:   d.Description(),
	}
}
