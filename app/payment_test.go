package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/artpar/installpay/adapters/redis"
	"github.com/artpar/installpay/app"
	"github.com/artpar/installpay/domain/invoice"
	"github.com/artpar/installpay/domain/payflow"
	"github.com/artpar/installpay/domain/settlement"
	"github.com/artpar/installpay/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func futureInvoices() []invoice.Invoice {
	return []invoice.Invoice{
		inv("f1", "Notebook (2/4)", "2024-02-10", "100", invoice.StatusOpen),
		inv("f2", "Notebook (3/4)", "2024-03-10", "50", invoice.StatusOpen),
		inv("f3", "Notebook (4/4)", "2024-04-10", "50", invoice.StatusOpen),
		inv("late", "Sofá (1/1)", "2023-12-01", "1000", invoice.StatusOpen),
	}
}

func stored(t *testing.T, h *harness, id string) invoice.Invoice {
	t.Helper()
	got, err := h.invoices.Get(context.Background(), id)
	require.NoError(t, err)
	return got
}

func TestPaymentService_StartFlow(t *testing.T) {
	h := newHarness(t, "2024-01-01")
	ctx := context.Background()

	f, err := h.payments.StartFlow(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "flow-1", f.ID)
	assert.Equal(t, payflow.StateList, f.State)

	got, err := h.payments.GetFlow(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)

	_, err = h.payments.StartFlow(ctx, " ")
	assert.ErrorIs(t, err, app.ErrValidation)

	_, err = h.payments.GetFlow(ctx, "missing")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestPaymentService_AnticipationByCard(t *testing.T) {
	h := newHarness(t, "2024-01-01", futureInvoices()...)
	ctx := context.Background()

	f, err := h.payments.StartFlow(ctx, "user-1")
	require.NoError(t, err)

	for _, id := range []string{"f1", "f2"} {
		f, err = h.payments.Toggle(ctx, f.ID, id)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"f1", "f2"}, f.Selection.IDs())

	f, err = h.payments.Open(ctx, f.ID, app.OpenRequest{Kind: payflow.KindAnticipation})
	require.NoError(t, err)
	assert.Equal(t, payflow.StateSelectMethod, f.State)
	assert.True(t, f.Target.Amount.Equal(dec("142.5")))
	assert.True(t, f.Selection.Frozen())

	f, err = h.payments.ChooseMethod(ctx, f.ID, payflow.MethodCard)
	require.NoError(t, err)
	assert.Equal(t, payflow.StatePayCard, f.State)

	f, err = h.payments.PayCard(ctx, f.ID, "tok_visa", 3)
	require.NoError(t, err)
	assert.Equal(t, payflow.StateList, f.State)
	assert.Nil(t, f.Target)

	require.Len(t, h.gateway.cards, 1)
	req := h.gateway.cards[0]
	assert.True(t, req.Amount.Equal(dec("142.5")))
	assert.Equal(t, 3, req.Installments)
	assert.Equal(t, []string{"f1", "f2"}, req.Reference.InvoiceIDs)
	assert.Equal(t, payflow.KindAnticipation, req.Reference.Kind)

	for _, id := range []string{"f1", "f2"} {
		got := stored(t, h, id)
		assert.Equal(t, invoice.StatusPaid, got.Status, id)
		assert.Equal(t, "pay_card_1", got.PaymentID, id)
	}
	assert.Equal(t, invoice.StatusOpen, stored(t, h, "f3").Status)

	e, ok := h.events.last(ports.EventInvoicesPaid)
	require.True(t, ok)
	paid := e.Payload.(app.InvoicesPaid)
	assert.Equal(t, []string{"f1", "f2"}, paid.InvoiceIDs)
	assert.Equal(t, "user-1", e.Key)
	assert.Contains(t, h.metrics.payments, "card:succeeded")
}

func TestPaymentService_ToggleRejectedWhileFrozen(t *testing.T) {
	h := newHarness(t, "2024-01-01", futureInvoices()...)
	ctx := context.Background()

	f, _ := h.payments.StartFlow(ctx, "user-1")
	f, err := h.payments.Open(ctx, f.ID, app.OpenRequest{Kind: payflow.KindAnticipation, InvoiceIDs: []string{"f1"}})
	require.NoError(t, err)

	_, err = h.payments.Toggle(ctx, f.ID, "f2")
	assert.ErrorIs(t, err, payflow.ErrInvalidTransition)

	f, err = h.payments.Back(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Selection.Len())

	f, err = h.payments.Toggle(ctx, f.ID, "f2")
	require.NoError(t, err)
	assert.True(t, f.Selection.Contains("f2"))
}

func TestPaymentService_CardDeclineKeepsSubstate(t *testing.T) {
	h := newHarness(t, "2024-01-01", futureInvoices()...)
	h.gateway.cardRes = ports.CardResult{Approved: false, Message: "insufficient funds"}
	ctx := context.Background()

	f, _ := h.payments.StartFlow(ctx, "user-1")
	f, err := h.payments.Open(ctx, f.ID, app.OpenRequest{Kind: payflow.KindInvoice, InvoiceID: "f1"})
	require.NoError(t, err)
	f, err = h.payments.ChooseMethod(ctx, f.ID, payflow.MethodCard)
	require.NoError(t, err)

	f, err = h.payments.PayCard(ctx, f.ID, "tok_x", 1)
	require.NoError(t, err)
	assert.Equal(t, payflow.StatePayCard, f.State)
	assert.Equal(t, "insufficient funds", f.Error)
	assert.Equal(t, invoice.StatusOpen, stored(t, h, "f1").Status)
	assert.Contains(t, h.events.types(), ports.EventPaymentFailed)
	assert.Contains(t, h.metrics.payments, "card:declined")

	// retry succeeds from the same substate
	h.gateway.cardRes = ports.CardResult{Approved: true, ProviderID: "pay_retry"}
	f, err = h.payments.PayCard(ctx, f.ID, "tok_y", 1)
	require.NoError(t, err)
	assert.Equal(t, payflow.StateList, f.State)
	assert.Equal(t, "pay_retry", stored(t, h, "f1").PaymentID)
}

func TestPaymentService_PayCardValidation(t *testing.T) {
	h := newHarness(t, "2024-01-01", futureInvoices()...)
	ctx := context.Background()

	f, _ := h.payments.StartFlow(ctx, "user-1")
	_, err := h.payments.PayCard(ctx, f.ID, "tok", 1)
	assert.ErrorIs(t, err, payflow.ErrInvalidTransition)

	f, _ = h.payments.Open(ctx, f.ID, app.OpenRequest{Kind: payflow.KindInvoice, InvoiceID: "f1"})
	f, _ = h.payments.ChooseMethod(ctx, f.ID, payflow.MethodCard)

	_, err = h.payments.PayCard(ctx, f.ID, "", 1)
	assert.ErrorIs(t, err, app.ErrValidation)
	_, err = h.payments.PayCard(ctx, f.ID, "tok", 13)
	assert.ErrorIs(t, err, app.ErrValidation)
	assert.Empty(t, h.gateway.cards)
}

func TestPaymentService_ProviderErrorIsRetryable(t *testing.T) {
	h := newHarness(t, "2024-01-01", futureInvoices()...)
	h.gateway.err = errors.New("gateway timeout")
	ctx := context.Background()

	f, _ := h.payments.StartFlow(ctx, "user-1")
	f, _ = h.payments.Open(ctx, f.ID, app.OpenRequest{Kind: payflow.KindInvoice, InvoiceID: "f1"})
	f, _ = h.payments.ChooseMethod(ctx, f.ID, payflow.MethodPix)

	f, err := h.payments.CreatePix(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, payflow.StatePayPix, f.State)
	assert.Equal(t, "gateway timeout", f.Error)
	assert.Nil(t, f.Pix)

	saved, err := h.payments.GetFlow(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "gateway timeout", saved.Error)
	assert.Contains(t, h.metrics.payments, "pix:error")
}

func TestPaymentService_PixCreateAndConfirm(t *testing.T) {
	h := newHarness(t, "2024-01-01", futureInvoices()...)
	h.withProfile(t)
	ctx := context.Background()

	f, _ := h.payments.StartFlow(ctx, "user-1")
	f, _ = h.payments.Open(ctx, f.ID, app.OpenRequest{Kind: payflow.KindInvoice, InvoiceID: "f2"})
	f, _ = h.payments.ChooseMethod(ctx, f.ID, payflow.MethodPix)

	f, err := h.payments.CreatePix(ctx, f.ID)
	require.NoError(t, err)
	require.NotNil(t, f.Pix)
	assert.Equal(t, "pay_pix_1", f.Pix.ProviderID)
	require.Len(t, h.gateway.pix, 1)
	assert.Equal(t, "maria@example.com", h.gateway.pix[0].PayerEmail)
	assert.True(t, h.gateway.pix[0].Amount.Equal(dec("50")))

	// Not paid at the provider yet.
	_, err = h.payments.ConfirmPix(ctx, f.ID)
	assert.ErrorIs(t, err, app.ErrPaymentPending)
	assert.Equal(t, invoice.StatusOpen, stored(t, h, "f2").Status)
	got, _ := h.payments.GetFlow(ctx, f.ID)
	assert.Equal(t, payflow.StatePayPix, got.State)

	h.gateway.settle("pay_pix_1", dec("50.00"), f.ID)
	f, err = h.payments.ConfirmPix(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, payflow.StateList, f.State)
	assert.Equal(t, []string{"pay_pix_1", "pay_pix_1"}, h.gateway.lookups)

	paid := stored(t, h, "f2")
	assert.Equal(t, invoice.StatusPaid, paid.Status)
	assert.Equal(t, "pay_pix_1", paid.PaymentID)
	require.NotNil(t, paid.PaymentDate)
	assert.Equal(t, h.clock.Now(), *paid.PaymentDate)
}

func TestPaymentService_PixConfirmWithoutChargeIsRejected(t *testing.T) {
	h := newHarness(t, "2024-01-01", futureInvoices()...)
	ctx := context.Background()

	f, _ := h.payments.StartFlow(ctx, "user-1")
	f, _ = h.payments.Open(ctx, f.ID, app.OpenRequest{Kind: payflow.KindInvoice, InvoiceID: "f2"})
	f, _ = h.payments.ChooseMethod(ctx, f.ID, payflow.MethodPix)

	f, err := h.payments.ConfirmPix(ctx, f.ID)
	assert.ErrorIs(t, err, app.ErrValidation)
	assert.Equal(t, payflow.StatePayPix, f.State)
	assert.Empty(t, h.gateway.lookups)
	assert.Empty(t, h.gateway.pix)

	got := stored(t, h, "f2")
	assert.Equal(t, invoice.StatusOpen, got.Status)
	assert.Empty(t, got.PaymentID)
}

func TestPaymentService_PixConfirmChecksTheCharge(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		flowID string
	}{
		{"amount differs", "10.00", ""},
		{"other flow", "50", "flow-99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "2024-01-01", futureInvoices()...)
			ctx := context.Background()

			f, _ := h.payments.StartFlow(ctx, "user-1")
			f, _ = h.payments.Open(ctx, f.ID, app.OpenRequest{Kind: payflow.KindInvoice, InvoiceID: "f2"})
			f, _ = h.payments.ChooseMethod(ctx, f.ID, payflow.MethodPix)
			f, err := h.payments.CreatePix(ctx, f.ID)
			require.NoError(t, err)

			h.gateway.settle("pay_pix_1", dec(tt.amount), tt.flowID)
			_, err = h.payments.ConfirmPix(ctx, f.ID)
			assert.ErrorIs(t, err, app.ErrPaymentMismatch)
			assert.Equal(t, invoice.StatusOpen, stored(t, h, "f2").Status)
		})
	}
}

func TestPaymentService_PixConfirmProviderError(t *testing.T) {
	h := newHarness(t, "2024-01-01", futureInvoices()...)
	ctx := context.Background()

	f, _ := h.payments.StartFlow(ctx, "user-1")
	f, _ = h.payments.Open(ctx, f.ID, app.OpenRequest{Kind: payflow.KindInvoice, InvoiceID: "f2"})
	f, _ = h.payments.ChooseMethod(ctx, f.ID, payflow.MethodPix)
	f, _ = h.payments.CreatePix(ctx, f.ID)

	h.gateway.err = errors.New("gateway timeout")
	f, err := h.payments.ConfirmPix(ctx, f.ID)
	assert.ErrorIs(t, err, app.ErrGateway)
	assert.Equal(t, payflow.StatePayPix, f.State)
	assert.Equal(t, invoice.StatusOpen, stored(t, h, "f2").Status)
}

func TestPaymentService_SharedRedisFlowsChargeOnce(t *testing.T) {
	h := newHarness(t, "2024-01-01", futureInvoices()...)
	h.gateway.delay = 50 * time.Millisecond
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client, err := redis.Connect(ctx, mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	first := h.service(redis.NewFlowStore(client, time.Hour))
	second := h.service(redis.NewFlowStore(client, time.Hour))

	f, err := first.StartFlow(ctx, "user-1")
	require.NoError(t, err)
	_, err = first.Open(ctx, f.ID, app.OpenRequest{Kind: payflow.KindInvoice, InvoiceID: "f1"})
	require.NoError(t, err)
	_, err = second.ChooseMethod(ctx, f.ID, payflow.MethodCard)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, svc := range []*app.PaymentService{first, second} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.PayCard(ctx, f.ID, "tok_visa", 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.gateway.cardCount())
	var transitionErrs int
	for _, err := range errs {
		if errors.Is(err, payflow.ErrInvalidTransition) {
			transitionErrs++
		} else {
			assert.NoError(t, err)
		}
	}
	assert.Equal(t, 1, transitionErrs)
	assert.Equal(t, invoice.StatusPaid, stored(t, h, "f1").Status)
	assert.False(t, mr.Exists("installpay:flowlock:"+f.ID), "flow lock should be released")
}

func TestPaymentService_RenegotiationIsBoletoOnly(t *testing.T) {
	h := newHarness(t, "2024-01-01", futureInvoices()...)
	h.withProfile(t)
	ctx := context.Background()

	f, _ := h.payments.StartFlow(ctx, "user-1")
	f, err := h.payments.Open(ctx, f.ID, app.OpenRequest{Kind: payflow.KindRenegotiation, Installments: 7})
	require.NoError(t, err)
	assert.True(t, f.Target.Amount.Equal(dec("1150")))
	assert.Equal(t, []string{"late"}, f.Target.InvoiceIDs)

	_, err = h.payments.ChooseMethod(ctx, f.ID, payflow.MethodCard)
	assert.ErrorIs(t, err, payflow.ErrMethodNotAllowed)
	_, err = h.payments.ChooseMethod(ctx, f.ID, payflow.MethodPix)
	assert.ErrorIs(t, err, app.ErrValidation)

	f, err = h.payments.ChooseMethod(ctx, f.ID, payflow.MethodBoleto)
	require.NoError(t, err)

	f, err = h.payments.IssueBoleto(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, payflow.StateBoletoDetails, f.State)
	require.NotNil(t, f.Slip)

	require.Len(t, h.gateway.boletos, 1)
	req := h.gateway.boletos[0]
	assert.Equal(t, "2024-01-04", invoice.FormatDate(req.DueDate))
	assert.Equal(t, "12345678909", req.Payer.TaxID)

	got := stored(t, h, "late")
	assert.Equal(t, invoice.StatusSlipIssued, got.Status)
	assert.Equal(t, "https://slips.example/b1", got.BoletoURL)
	assert.Contains(t, h.events.types(), ports.EventSlipIssued)
	assert.Contains(t, h.metrics.payments, "boleto:issued")
}

func TestPaymentService_BoletoRequiresProfile(t *testing.T) {
	h := newHarness(t, "2024-01-01", futureInvoices()...)
	ctx := context.Background()

	f, _ := h.payments.StartFlow(ctx, "user-1")
	f, _ = h.payments.Open(ctx, f.ID, app.OpenRequest{Kind: payflow.KindInvoice, InvoiceID: "f1"})
	f, _ = h.payments.ChooseMethod(ctx, f.ID, payflow.MethodBoleto)

	_, err := h.payments.IssueBoleto(ctx, f.ID)
	var verr *app.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "profile.tax_id", verr.Field)
	assert.Empty(t, h.gateway.boletos)
}

func TestPaymentService_OpenErrors(t *testing.T) {
	other := inv("foreign", "Outro (1/1)", "2024-02-01", "10", invoice.StatusOpen)
	other.UserID = "user-2"
	paid := inv("paid", "Pago (1/1)", "2024-02-01", "10", invoice.StatusPaid)
	h := newHarness(t, "2024-01-01", append(futureInvoices(), other, paid)...)
	ctx := context.Background()
	f, _ := h.payments.StartFlow(ctx, "user-1")

	tests := []struct {
		name string
		req  app.OpenRequest
		want error
	}{
		{"missing invoice id", app.OpenRequest{Kind: payflow.KindInvoice}, app.ErrValidation},
		{"foreign invoice", app.OpenRequest{Kind: payflow.KindInvoice, InvoiceID: "foreign"}, app.ErrForbidden},
		{"paid invoice", app.OpenRequest{Kind: payflow.KindInvoice, InvoiceID: "paid"}, payflow.ErrInvoicePaid},
		{"empty anticipation", app.OpenRequest{Kind: payflow.KindAnticipation}, app.ErrValidation},
		{"overdue anticipation", app.OpenRequest{Kind: payflow.KindAnticipation, InvoiceIDs: []string{"late"}}, app.ErrValidation},
		{"renegotiation without installments", app.OpenRequest{Kind: payflow.KindRenegotiation}, app.ErrValidation},
		{"unknown kind", app.OpenRequest{Kind: "gift"}, app.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.payments.Open(ctx, f.ID, tt.req)
			assert.ErrorIs(t, err, tt.want)

			got, err := h.payments.GetFlow(ctx, f.ID)
			require.NoError(t, err)
			assert.Equal(t, payflow.StateList, got.State)
		})
	}
}

func TestPaymentService_PartialSettlementIsReported(t *testing.T) {
	h := newHarness(t, "2024-01-01", futureInvoices()...)
	h.invoices.FailWrites("f2")
	ctx := context.Background()

	f, _ := h.payments.StartFlow(ctx, "user-1")
	f, _ = h.payments.Open(ctx, f.ID, app.OpenRequest{Kind: payflow.KindAnticipation, InvoiceIDs: []string{"f1", "f2", "f3"}})
	f, _ = h.payments.ChooseMethod(ctx, f.ID, payflow.MethodCard)

	f, err := h.payments.PayCard(ctx, f.ID, "tok_visa", 1)
	require.Error(t, err)

	var partial *settlement.PartialError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []string{"f1", "f3"}, partial.Confirmed)
	assert.Equal(t, []string{"f2"}, partial.Missing)
	assert.True(t, partial.Partial())

	// the flow still moved on: money was taken
	assert.Equal(t, payflow.StateList, f.State)
	assert.Equal(t, invoice.StatusPaid, stored(t, h, "f1").Status)
	assert.Equal(t, invoice.StatusOpen, stored(t, h, "f2").Status)

	assert.Equal(t, []int{1}, h.metrics.partial)
	e, ok := h.events.last(ports.EventPartialSettlement)
	require.True(t, ok)
	assert.Equal(t, []string{"f2"}, e.Payload.(app.PartialSettlement).Missing)
	assert.NotContains(t, h.events.types(), ports.EventInvoicesPaid)
}

func TestPaymentService_WebhookConfirmsWaitingFlow(t *testing.T) {
	h := newHarness(t, "2024-01-01", futureInvoices()...)
	ctx := context.Background()

	f, _ := h.payments.StartFlow(ctx, "user-1")
	f, _ = h.payments.Open(ctx, f.ID, app.OpenRequest{Kind: payflow.KindInvoice, InvoiceID: "f1"})
	f, _ = h.payments.ChooseMethod(ctx, f.ID, payflow.MethodPix)
	f, _ = h.payments.CreatePix(ctx, f.ID)

	h.gateway.webhook = ports.PaymentEvent{
		Type:       ports.PaymentSucceeded,
		ProviderID: "pay_pix_1",
		Reference:  ports.PaymentReference{FlowID: f.ID, UserID: "user-1", Kind: payflow.KindInvoice, InvoiceIDs: []string{"f1"}},
		At:         h.clock.Now(),
	}
	require.NoError(t, h.payments.HandleWebhook(ctx, []byte(`{}`), "sig"))

	got, err := h.payments.GetFlow(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, payflow.StateList, got.State)
	assert.Equal(t, "pay_pix_1", stored(t, h, "f1").PaymentID)

	// a redelivery is idempotent
	require.NoError(t, h.payments.HandleWebhook(ctx, []byte(`{}`), "sig"))
	assert.Equal(t, "pay_pix_1", stored(t, h, "f1").PaymentID)
}

func TestPaymentService_WebhookSettlesBoletoWithoutFlow(t *testing.T) {
	h := newHarness(t, "2024-01-01", futureInvoices()...)
	h.gateway.webhook = ports.PaymentEvent{
		Type:       ports.PaymentSucceeded,
		ProviderID: "bol_9",
		Reference:  ports.PaymentReference{FlowID: "expired", UserID: "user-1", Kind: payflow.KindRenegotiation, InvoiceIDs: []string{"late"}},
	}

	require.NoError(t, h.payments.HandleWebhook(context.Background(), nil, "sig"))
	got := stored(t, h, "late")
	assert.Equal(t, invoice.StatusPaid, got.Status)
	assert.Equal(t, "bol_9", got.PaymentID)
}

func TestPaymentService_WebhookFailureRecordsError(t *testing.T) {
	h := newHarness(t, "2024-01-01", futureInvoices()...)
	ctx := context.Background()

	f, _ := h.payments.StartFlow(ctx, "user-1")
	f, _ = h.payments.Open(ctx, f.ID, app.OpenRequest{Kind: payflow.KindInvoice, InvoiceID: "f1"})
	f, _ = h.payments.ChooseMethod(ctx, f.ID, payflow.MethodPix)

	h.gateway.webhook = ports.PaymentEvent{
		Type:      ports.PaymentFailed,
		Message:   "expired",
		Reference: ports.PaymentReference{FlowID: f.ID, UserID: "user-1"},
	}
	require.NoError(t, h.payments.HandleWebhook(ctx, nil, "sig"))

	got, _ := h.payments.GetFlow(ctx, f.ID)
	assert.Equal(t, payflow.StatePayPix, got.State)
	assert.Equal(t, "expired", got.Error)

	assert.ErrorIs(t, h.payments.HandleWebhook(ctx, nil, "bad"), app.ErrInvalidWebhook)

	h.gateway.webhook = ports.PaymentEvent{Type: ports.PaymentIgnored}
	assert.NoError(t, h.payments.HandleWebhook(ctx, nil, "sig"))
}
