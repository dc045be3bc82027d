package grouping

import (
	"regexp"
	"strings"

	"github.com/artpar/installpay/domain/invoice"
)

var (
	installmentSuffix = regexp.MustCompile(`^(.*?)\s*\(\d+/\d+\)$`)
	purchaseNote      = regexp.MustCompile(`Referente a compra de (.*?) parcelada`)
)

// Namer derives the group key and display name for an invoice.
type Namer interface {
	Name(inv invoice.Invoice) (key, name string)
}

// LegacyNamer reconstructs the purchase from free-text fields.
// Rows without a purchase_group_id rely on it.
type LegacyNamer struct{}

// Name returns the installment-suffix prefix of Month, else the purchase name
// in Notes, else the full Month.
func (LegacyNamer) Name(inv invoice.Invoice) (string, string) {
	name := LegacyName(inv.Month, inv.Notes)
	return name, name
}

// LegacyName applies the text rules to a month label and notes.
func LegacyName(month, notes string) string {
	if m := installmentSuffix.FindStringSubmatch(month); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := purchaseNote.FindStringSubmatch(notes); m != nil {
		return strings.TrimSpace(m[1])
	}
	return month
}

// ExplicitNamer groups by PurchaseGroupID and delegates to Fallback for
// rows that do not carry one.
type ExplicitNamer struct {
	Fallback Namer
}

// Name returns the purchase group id as key when present.
func (n ExplicitNamer) Name(inv invoice.Invoice) (string, string) {
	fallback := n.Fallback
	if fallback == nil {
		fallback = LegacyNamer{}
	}

	key, name := fallback.Name(inv)
	if inv.PurchaseGroupID == "" {
		return key, name
	}
	if name == "" {
		name = inv.PurchaseGroupID
	}
	// Prefix keeps explicit ids apart from legacy names.
	return "id:" + inv.PurchaseGroupID, name
}

// DefaultNamer is used by Group.
var DefaultNamer Namer = ExplicitNamer{Fallback: LegacyNamer{}}
