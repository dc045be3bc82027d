package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/artpar/installpay/adapters/clock"
	"github.com/artpar/installpay/adapters/idgen"
	"github.com/artpar/installpay/adapters/memory"
	"github.com/artpar/installpay/app"
	"github.com/artpar/installpay/domain/invoice"
	"github.com/artpar/installpay/domain/payflow"
	"github.com/artpar/installpay/domain/settings"
	"github.com/artpar/installpay/ports"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func inv(id, month, due, amount string, st invoice.Status) invoice.Invoice {
	d, err := invoice.ParseDate(due)
	if err != nil {
		panic(err)
	}
	return invoice.Invoice{
		ID:      id,
		UserID:  "user-1",
		Month:   month,
		DueDate: d,
		Amount:  dec(amount),
		Status:  st,
	}
}

type recordedEvents struct {
	mu     sync.Mutex
	events []ports.Event
}

func (r *recordedEvents) Publish(ctx context.Context, e ports.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) Close() error { return nil }

func (r *recordedEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recordedEvents) last(typ string) (ports.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == typ {
			return r.events[i], true
		}
	}
	return ports.Event{}, false
}

type recordedMetrics struct {
	mu       sync.Mutex
	loads    []error
	quotes   []payflow.Kind
	payments []string
	partial  []int
}

func (m *recordedMetrics) ObserveLoad(err error, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads = append(m.loads, err)
}

func (m *recordedMetrics) ObserveQuote(kind payflow.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes = append(m.quotes, kind)
}

func (m *recordedMetrics) ObservePayment(method payflow.Method, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments = append(m.payments, string(method)+":"+outcome)
}

func (m *recordedMetrics) ObservePartialSettlement(missing int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partial = append(m.partial, missing)
}

// fakeGateway records requests and returns canned results.
type fakeGateway struct {
	mu       sync.Mutex
	pix      []ports.PixRequest
	boletos  []ports.BoletoRequest
	cards    []ports.CardRequest
	cardRes  ports.CardResult
	err      error
	webhook  ports.PaymentEvent
	hookErr  error
	chargeID string
	status   map[string]ports.PaymentStatus
	lookups  []string
	delay    time.Duration // card processing time
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		cardRes:  ports.CardResult{Approved: true, ProviderID: "pay_card_1"},
		chargeID: "pay_pix_1",
		status:   make(map[string]ports.PaymentStatus),
	}
}

// settle makes the provider report providerID as paid.
func (g *fakeGateway) settle(providerID string, amount decimal.Decimal, flowID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status[providerID] = ports.PaymentStatus{
		ProviderID: providerID,
		Succeeded:  true,
		Amount:     amount,
		Reference:  ports.PaymentReference{FlowID: flowID},
	}
}

func (g *fakeGateway) GetPayment(ctx context.Context, providerID string) (ports.PaymentStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lookups = append(g.lookups, providerID)
	if g.err != nil {
		return ports.PaymentStatus{}, g.err
	}
	st, ok := g.status[providerID]
	if !ok {
		return ports.PaymentStatus{ProviderID: providerID}, nil
	}
	return st, nil
}

func (g *fakeGateway) cardCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.cards)
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) CreatePix(ctx context.Context, req ports.PixRequest) (payflow.PixCharge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pix = append(g.pix, req)
	if g.err != nil {
		return payflow.PixCharge{}, g.err
	}
	return payflow.PixCharge{CopyPaste: "000201pix", ProviderID: g.chargeID, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (g *fakeGateway) CreateBoleto(ctx context.Context, req ports.BoletoRequest) (payflow.Slip, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.boletos = append(g.boletos, req)
	if g.err != nil {
		return payflow.Slip{}, g.err
	}
	return payflow.Slip{URL: "https://slips.example/b1", Barcode: "23793.38128", ProviderID: "bol_1"}, nil
}

func (g *fakeGateway) ProcessCard(ctx context.Context, req ports.CardRequest) (ports.CardResult, error) {
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cards = append(g.cards, req)
	if g.err != nil {
		return ports.CardResult{}, g.err
	}
	return g.cardRes, nil
}

func (g *fakeGateway) ParseWebhook(payload []byte, signature string) (ports.PaymentEvent, error) {
	if signature == "bad" {
		return ports.PaymentEvent{}, errors.New("invalid signature")
	}
	return g.webhook, g.hookErr
}

// failingInvoices makes ListByUser fail.
type failingInvoices struct {
	*memory.InvoiceStore
	err error
}

func (f failingInvoices) ListByUser(ctx context.Context, userID string) ([]invoice.Invoice, error) {
	return nil, f.err
}

type harness struct {
	clock    *clock.Fake
	invoices *memory.InvoiceStore
	profiles *memory.ProfileStore
	flows    *memory.FlowStore
	settings *app.SettingsService
	gateway  *fakeGateway
	events   *recordedEvents
	metrics  *recordedMetrics
	billing  *app.BillingService
	payments *app.PaymentService
}

func newHarness(t *testing.T, today string, invoices ...invoice.Invoice) *harness {
	t.Helper()

	h := &harness{
		clock:    clock.NewFakeDate(today),
		invoices: memory.NewInvoiceStore(invoices...),
		profiles: memory.NewProfileStore(),
		gateway:  newFakeGateway(),
		events:   &recordedEvents{},
		metrics:  &recordedMetrics{},
	}
	h.flows = memory.NewFlowStore(0, h.clock)
	h.settings = app.NewSettingsService(memory.NewSettingsStore(settings.Settings{}), zerolog.Nop())
	h.billing = app.NewBillingService(app.BillingConfig{
		Invoices: h.invoices,
		Profiles: h.profiles,
		Settings: h.settings,
		Clock:    h.clock,
		Metrics:  h.metrics,
		Logger:   zerolog.Nop(),
	})
	h.payments = h.service(h.flows)
	return h
}

// service builds a payment service over the harness stores and flows, as a
// second process sharing the same backends would.
func (h *harness) service(flows ports.FlowStore) *app.PaymentService {
	return app.NewPaymentService(app.PaymentConfig{
		Invoices: h.invoices,
		Profiles: h.profiles,
		Flows:    flows,
		Gateway:  h.gateway,
		Settings: h.settings,
		Billing:  h.billing,
		Clock:    h.clock,
		IDs:      idgen.NewSequential("flow-"),
		Events:   h.events,
		Metrics:  h.metrics,
		Logger:   zerolog.Nop(),
	})
}

func (h *harness) withProfile(t *testing.T) {
	t.Helper()
	err := h.profiles.Upsert(context.Background(), ports.Profile{
		UserID: "user-1",
		Name:   "Maria Silva",
		Email:  "maria@example.com",
		TaxID:  "12345678909",
		Address: ports.Address{
			Street:     "Rua das Flores",
			Number:     "100",
			District:   "Centro",
			City:       "São Paulo",
			State:      "SP",
			PostalCode: "01001000",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
}
