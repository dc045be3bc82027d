// Package grouping partitions a flat invoice list into purchase-plan groups.
// Grouping is a pure function of the invoices and the injected date.
package grouping

import (
	"sort"
	"time"

	"github.com/artpar/installpay/domain/invoice"
	"github.com/artpar/installpay/domain/status"
	"github.com/shopspring/decimal"
)

// PurchaseGroup is the derived view of one purchase or financing plan.
type PurchaseGroup struct {
	Key               string
	Name              string
	Invoices          []invoice.Invoice // input order
	TotalAmount       decimal.Decimal
	PaidAmount        decimal.Decimal
	RemainingAmount   decimal.Decimal
	TotalInstallments int
	PaidInstallments  int
	NextDueDate       *time.Time
	Status            status.GroupStatus
}

// UnpaidInstallments returns the number of unpaid members.
func (g PurchaseGroup) UnpaidInstallments() int {
	return g.TotalInstallments - g.PaidInstallments
}

// Progress returns the paid fraction of installments in [0,1].
func (g PurchaseGroup) Progress() float64 {
	if g.TotalInstallments == 0 {
		return 0
	}
	return float64(g.PaidInstallments) / float64(g.TotalInstallments)
}

func newGroup(key, name string) *PurchaseGroup {
	return &PurchaseGroup{
		Key:             key,
		Name:            name,
		TotalAmount:     decimal.Zero,
		PaidAmount:      decimal.Zero,
		RemainingAmount: decimal.Zero,
		Status:          status.Completed,
	}
}

// add folds one member into the group aggregates.
func (g *PurchaseGroup) add(inv invoice.Invoice, today time.Time) {
	g.Invoices = append(g.Invoices, inv)
	g.TotalAmount = g.TotalAmount.Add(inv.Amount)
	g.TotalInstallments++

	if inv.IsPaid() {
		g.PaidAmount = g.PaidAmount.Add(inv.Amount)
		g.PaidInstallments++
		return
	}

	g.RemainingAmount = g.RemainingAmount.Add(inv.Amount)
	if g.NextDueDate == nil || invoice.Before(inv.DueDate, *g.NextDueDate) {
		due := inv.DueDate
		g.NextDueDate = &due
	}
	g.Status = status.Fold(g.Status, inv, today)
}

// Group partitions invoices using DefaultNamer.
func Group(invoices []invoice.Invoice, today time.Time) []PurchaseGroup {
	return GroupWith(DefaultNamer, invoices, today)
}

// GroupWith partitions invoices using the given namer. Groups are returned in
// order of first appearance; members keep input order.
func GroupWith(namer Namer, invoices []invoice.Invoice, today time.Time) []PurchaseGroup {
	index := make(map[string]int)
	var groups []*PurchaseGroup

	for _, inv := range invoices {
		key, name := namer.Name(inv)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, newGroup(key, name))
		}
		groups[i].add(inv, today)
	}

	out := make([]PurchaseGroup, len(groups))
	for i, g := range groups {
		out[i] = *g
	}
	return out
}

// Sort returns groups in display order: Late, Active, Completed; Late and
// Active by next due date ascending (nil last). The input is not modified.
func Sort(groups []PurchaseGroup) []PurchaseGroup {
	out := make([]PurchaseGroup, len(groups))
	copy(out, groups)
	sort.SliceStable(out, func(i, j int) bool {
		return status.Less(out[i].Status, out[i].NextDueDate, out[j].Status, out[j].NextDueDate)
	})
	return out
}

// GroupAndSort is Group followed by Sort.
func GroupAndSort(invoices []invoice.Invoice, today time.Time) []PurchaseGroup {
	return Sort(Group(invoices, today))
}
