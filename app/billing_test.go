package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/artpar/installpay/app"
	"github.com/artpar/installpay/domain/anticipation"
	"github.com/artpar/installpay/domain/invoice"
	"github.com/artpar/installpay/domain/payflow"
	"github.com/artpar/installpay/domain/renegotiation"
	"github.com/artpar/installpay/domain/settings"
	"github.com/artpar/installpay/domain/status"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func iphone() []invoice.Invoice {
	return []invoice.Invoice{
		inv("i1", "iPhone (1/3)", "2024-01-10", "300", invoice.StatusPaid),
		inv("i2", "iPhone (2/3)", "2024-02-10", "300", invoice.StatusOpen),
		inv("i3", "iPhone (3/3)", "2024-03-10", "300", invoice.StatusOpen),
	}
}

func TestBillingService_Load_GroupsAndSummary(t *testing.T) {
	h := newHarness(t, "2024-01-15", iphone()...)
	h.withProfile(t)

	view, err := h.billing.Load(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, view.Groups, 1)
	g := view.Groups[0]
	assert.Equal(t, "iPhone", g.Name)
	assert.Equal(t, 1, g.PaidInstallments)
	assert.Equal(t, 3, g.TotalInstallments)
	assert.Equal(t, status.Active, g.Status)

	assert.Equal(t, 2, view.Summary.OpenCount)
	assert.True(t, view.Summary.OpenAmount.Equal(dec("600")))
	assert.Equal(t, 0, view.Summary.LateCount)
	require.NotNil(t, view.Summary.NextDue)
	assert.Equal(t, "i2", view.Summary.NextDue.ID)

	require.NotNil(t, view.Profile)
	assert.Equal(t, "12345678909", view.Profile.TaxID)
	assert.Equal(t, "15", view.MaxRate.String())
	assert.Equal(t, []error{nil}, h.metrics.loads)
}

func TestBillingService_Load_LateAfterDueDate(t *testing.T) {
	h := newHarness(t, "2024-02-11", iphone()...)

	view, err := h.billing.Load(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, view.Groups, 1)
	assert.Equal(t, status.Late, view.Groups[0].Status)
	assert.Equal(t, 1, view.Summary.LateCount)
	assert.Nil(t, view.Profile)
}

func TestBillingService_Load_UsesConfiguredRate(t *testing.T) {
	h := newHarness(t, "2024-01-15")
	require.NoError(t, h.settings.Store().Set(context.Background(), settings.KeyNegotiationInterest, "9", false))

	view, err := h.billing.Load(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, "9", view.MaxRate.String())
	assert.Empty(t, view.Groups)
}

func TestBillingService_Load_FailsAsAWhole(t *testing.T) {
	h := newHarness(t, "2024-01-15", iphone()...)
	boom := errors.New("connection refused")
	metrics := &recordedMetrics{}

	svc := app.NewBillingService(app.BillingConfig{
		Invoices: failingInvoices{InvoiceStore: h.invoices, err: boom},
		Profiles: h.profiles,
		Settings: h.settings,
		Clock:    h.clock,
		Metrics:  metrics,
		Logger:   zerolog.Nop(),
	})

	view, err := svc.Load(context.Background(), "user-1")
	require.Error(t, err)
	assert.Empty(t, view.Groups)

	var loadErr *app.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "invoices", loadErr.Op)
	assert.Equal(t, "user-1", loadErr.UserID)
	assert.ErrorIs(t, err, boom)
	require.Len(t, metrics.loads, 1)
	assert.Error(t, metrics.loads[0])
}

func lateInvoices() []invoice.Invoice {
	return []invoice.Invoice{
		inv("a", "Sofá (1/2)", "2024-01-05", "600", invoice.StatusOpen),
		inv("b", "Sofá (2/2)", "2024-02-05", "400", invoice.StatusSlipIssued),
		inv("c", "TV (1/1)", "2024-06-05", "250", invoice.StatusOpen),
	}
}

func TestBillingService_QuoteRenegotiation_AllLate(t *testing.T) {
	h := newHarness(t, "2024-03-01", lateInvoices()...)

	deals, err := h.billing.QuoteRenegotiation(context.Background(), "user-1", nil, 0)
	require.NoError(t, err)
	require.Len(t, deals, renegotiation.MaxInstallments)

	seven := deals[6]
	assert.Equal(t, []string{"a", "b"}, invoice.IDs(seven.Invoices))
	assert.True(t, seven.TotalOriginal.Equal(dec("1000")))
	assert.True(t, seven.InterestPct.Equal(dec("0.15")))
	assert.True(t, seven.TotalWithInterest.Equal(dec("1150")))
	assert.True(t, seven.InstallmentValue.Equal(dec("164.29")))

	one := deals[0]
	assert.True(t, one.TotalWithInterest.Equal(dec("1021.43")), one.TotalWithInterest.String())
	assert.Equal(t, []payflow.Kind{payflow.KindRenegotiation}, h.metrics.quotes)
}

func TestBillingService_QuoteRenegotiation_Single(t *testing.T) {
	h := newHarness(t, "2024-03-01", lateInvoices()...)

	deals, err := h.billing.QuoteRenegotiation(context.Background(), "user-1", []string{"a"}, 3)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, 3, deals[0].Installments)
	assert.True(t, deals[0].TotalOriginal.Equal(dec("600")))
}

func TestBillingService_QuoteRenegotiation_Errors(t *testing.T) {
	tests := []struct {
		name         string
		ids          []string
		installments int
		wantIs       error
	}{
		{"installments out of range", nil, 8, app.ErrValidation},
		{"future invoice", []string{"c"}, 2, renegotiation.ErrNotOverdue},
		{"future invoice in full quote", []string{"a", "c"}, 0, renegotiation.ErrNotOverdue},
		{"unknown invoice", []string{"zzz"}, 2, anticipation.ErrUnknownInvoice},
		{"foreign invoice", []string{"other"}, 2, app.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := inv("other", "Geladeira (1/1)", "2024-01-01", "10", invoice.StatusOpen)
			other.UserID = "user-2"
			h := newHarness(t, "2024-03-01", append(lateInvoices(), other)...)

			_, err := h.billing.QuoteRenegotiation(context.Background(), "user-1", tt.ids, tt.installments)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantIs)
		})
	}
}

func TestBillingService_QuoteRenegotiation_NothingLate(t *testing.T) {
	h := newHarness(t, "2024-01-01", lateInvoices()...)

	_, err := h.billing.QuoteRenegotiation(context.Background(), "user-1", nil, 0)
	assert.ErrorIs(t, err, renegotiation.ErrNoOverdueInvoices)
	assert.ErrorIs(t, err, app.ErrValidation)
}

func TestBillingService_QuoteAnticipation(t *testing.T) {
	h := newHarness(t, "2024-01-01",
		inv("f1", "Notebook (2/4)", "2024-02-10", "100", invoice.StatusOpen),
		inv("f2", "Notebook (3/4)", "2024-03-10", "50", invoice.StatusOpen),
		inv("p1", "Notebook (1/4)", "2023-12-10", "100", invoice.StatusPaid),
	)

	ob, err := h.billing.QuoteAnticipation(context.Background(), "user-1", []string{"f1", "f2"})
	require.NoError(t, err)

	assert.True(t, ob.Total.Equal(dec("150")))
	assert.True(t, ob.DiscountValue.Equal(dec("7.5")))
	assert.True(t, ob.FinalAmount.Equal(dec("142.5")))
	assert.Equal(t, "Antecipação de 2 parcelas", ob.Label())
	assert.Equal(t, []payflow.Kind{payflow.KindAnticipation}, h.metrics.quotes)

	_, err = h.billing.QuoteAnticipation(context.Background(), "user-1", []string{"f1", "p1"})
	assert.ErrorIs(t, err, anticipation.ErrAlreadyPaid)

	_, err = h.billing.QuoteAnticipation(context.Background(), "user-1", nil)
	assert.ErrorIs(t, err, anticipation.ErrEmptySelection)

	_, err = h.billing.QuoteAnticipation(context.Background(), "user-1", []string{"f1", "f1"})
	assert.ErrorIs(t, err, anticipation.ErrDuplicate)
}

func TestBillingService_ExplicitGroupIDs(t *testing.T) {
	a := inv("x1", "Parcela 1", "2024-02-10", "10", invoice.StatusOpen)
	a.PurchaseGroupID = "plan-9"
	b := inv("x2", "Parcela 2", "2024-03-10", "10", invoice.StatusOpen)
	b.PurchaseGroupID = "plan-9"

	h := newHarness(t, "2024-01-01", a, b, inv("y1", "Avulsa", "2024-02-01", "5", invoice.StatusOpen))

	view, err := h.billing.Load(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, view.Groups, 2)

	var planned int
	for _, g := range view.Groups {
		if g.TotalInstallments == 2 {
			planned++
		}
	}
	assert.Equal(t, 1, planned)
}
