package http

import (
	"strconv"
	"strings"
	"time"

	"github.com/artpar/installpay/app"
	"github.com/artpar/installpay/domain/anticipation"
	"github.com/artpar/installpay/domain/grouping"
	"github.com/artpar/installpay/domain/invoice"
	"github.com/artpar/installpay/domain/payflow"
	"github.com/artpar/installpay/domain/renegotiation"
	"github.com/artpar/installpay/pkg/jsonapi"
	"github.com/shopspring/decimal"
)

// Resource types.
const (
	TypeInvoice      = "invoices"
	TypeGroup        = "purchase_groups"
	TypeFlow         = "flows"
	TypeDeal         = "renegotiation_deals"
	TypeAnticipation = "anticipations"
	TypeUser         = "users"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func datePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return invoice.FormatDate(*t)
}

func invoiceResource(inv invoice.Invoice, today time.Time) jsonapi.Resource {
	return jsonapi.NewResource(TypeInvoice, inv.ID).
		Attr("month", inv.Month).
		Attr("due_date", invoice.FormatDate(inv.DueDate)).
		Attr("amount", money(inv.Amount)).
		Attr("status", string(inv.Status)).
		Attr("late", inv.IsLate(today)).
		AttrIf(inv.PaymentDate != nil, "payment_date", datePtr(inv.PaymentDate)).
		AttrIf(inv.PaymentID != "", "payment_id", inv.PaymentID).
		AttrIf(inv.Notes != "", "notes", inv.Notes).
		AttrIf(inv.BoletoURL != "", "boleto_url", inv.BoletoURL).
		AttrIf(inv.BoletoBarcode != "", "boleto_barcode", inv.BoletoBarcode).
		BelongsTo("user", TypeUser, inv.UserID).
		Build()
}

func groupResource(g grouping.PurchaseGroup) jsonapi.Resource {
	return jsonapi.NewResource(TypeGroup, g.Key).
		Attr("name", g.Name).
		Attr("status", string(g.Status)).
		Attr("total_amount", money(g.TotalAmount)).
		Attr("paid_amount", money(g.PaidAmount)).
		Attr("remaining_amount", money(g.RemainingAmount)).
		Attr("total_installments", g.TotalInstallments).
		Attr("paid_installments", g.PaidInstallments).
		Attr("progress", g.Progress()).
		Attr("next_due_date", datePtr(g.NextDueDate)).
		HasManyIDs("invoices", TypeInvoice, invoice.IDs(g.Invoices)).
		Build()
}

// billingDocument renders the grouped view. Groups are the primary data,
// invoices ride along in included.
func billingDocument(v app.View) jsonapi.Document {
	groups := make([]jsonapi.Resource, 0, len(v.Groups))
	for _, g := range v.Groups {
		groups = append(groups, groupResource(g))
	}
	included := make([]jsonapi.Resource, 0, len(v.Invoices))
	for _, inv := range v.Invoices {
		included = append(included, invoiceResource(inv, v.Today))
	}

	summary := map[string]any{
		"open_count":  v.Summary.OpenCount,
		"open_amount": money(v.Summary.OpenAmount),
		"late_count":  v.Summary.LateCount,
		"late_amount": money(v.Summary.LateAmount),
		"has_late":    v.Summary.HasLate(),
	}
	if next := v.Summary.NextDue; next != nil {
		summary["next_due"] = map[string]any{
			"invoice_id": next.ID,
			"due_date":   invoice.FormatDate(next.DueDate),
			"amount":     money(next.Amount),
		}
	}

	return jsonapi.NewDocument().
		DataCollection(groups).
		Include(included...).
		Meta("user_id", v.UserID).
		Meta("today", invoice.FormatDate(v.Today)).
		Meta("summary", summary).
		Meta("max_rate", v.MaxRate.String()).
		Meta("has_profile", v.Profile != nil).
		Build()
}

func dealResource(d renegotiation.Deal) jsonapi.Resource {
	return jsonapi.NewResource(TypeDeal, dealID(d)).
		Attr("installments", d.Installments).
		Attr("total_original", money(d.TotalOriginal)).
		Attr("interest_pct", d.InterestPercent().StringFixed(2)).
		Attr("total_with_interest", money(d.TotalWithInterest)).
		Attr("installment_value", money(d.InstallmentValue)).
		Attr("description", d.Description()).
		HasManyIDs("invoices", TypeInvoice, invoice.IDs(d.Invoices)).
		Build()
}

func dealID(d renegotiation.Deal) string {
	return strconv.Itoa(d.Installments) + "x"
}

func anticipationResource(o anticipation.Obligation) jsonapi.Resource {
	return jsonapi.NewResource(TypeAnticipation, strings.Join(o.InvoiceIDs(), ",")).
		Attr("label", o.Label()).
		Attr("total", money(o.Total)).
		Attr("discount", money(o.DiscountValue)).
		Attr("final_amount", money(o.FinalAmount)).
		HasManyIDs("invoices", TypeInvoice, o.InvoiceIDs()).
		Build()
}

func obligationAttrs(o payflow.Obligation) map[string]any {
	methods := make([]string, 0, len(o.AllowedMethods))
	for _, m := range o.AllowedMethods {
		methods = append(methods, string(m))
	}
	return map[string]any{
		"kind":            string(o.Kind),
		"invoice_ids":     o.InvoiceIDs,
		"amount":          money(o.Amount),
		"description":     o.Description,
		"due_date":        invoice.FormatDate(o.DueDate),
		"installments":    o.Installments,
		"allowed_methods": methods,
	}
}

func flowResource(f payflow.Flow) jsonapi.Resource {
	b := jsonapi.NewResource(TypeFlow, f.ID).
		Attr("state", string(f.State)).
		Attr("selection", f.Selection.IDs()).
		Attr("selection_frozen", f.Selection.Frozen()).
		AttrIf(f.Method != "", "method", string(f.Method)).
		AttrIf(f.Error != "", "error", f.Error).
		BelongsTo("user", TypeUser, f.UserID).
		Link("/api/flows/" + f.ID)

	if f.Target != nil {
		b.Attr("target", obligationAttrs(*f.Target))
	}
	if f.Pix != nil {
		b.Attr("pix", map[string]any{
			"qr_image":    f.Pix.QRImage,
			"copy_paste":  f.Pix.CopyPaste,
			"expires_at":  f.Pix.ExpiresAt.UTC().Format(time.RFC3339),
			"provider_id": f.Pix.ProviderID,
		})
	}
	if f.Slip != nil {
		b.Attr("slip", map[string]any{
			"url":         f.Slip.URL,
			"barcode":     f.Slip.Barcode,
			"provider_id": f.Slip.ProviderID,
		})
	}
	return b.Build()
}
