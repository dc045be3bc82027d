// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/artpar/installpay/domain/invoice"
	"github.com/artpar/installpay/domain/payflow"
	"github.com/artpar/installpay/domain/settings"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by stores when an entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrFlowBusy is returned when a flow lock cannot be acquired in time.
var ErrFlowBusy = errors.New("flow is locked by another request")

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability. Date logic derives "today" from it.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// InvoiceStore persists invoices. Invoices are created by an external sale
// process; this service only reads them and writes payment state back.
type InvoiceStore interface {
	// ListByUser returns every invoice of a user ordered by due date.
	ListByUser(ctx context.Context, userID string) ([]invoice.Invoice, error)

	// Get retrieves an invoice by ID.
	Get(ctx context.Context, id string) (invoice.Invoice, error)

	// GetMany retrieves the invoices with the given ids. Missing ids are
	// skipped, not reported as errors.
	GetMany(ctx context.Context, ids []string) ([]invoice.Invoice, error)

	// Upsert creates or replaces invoices and returns how many were written.
	Upsert(ctx context.Context, invoices []invoice.Invoice) (int, error)

	// MarkPaid settles all ids with one payment in a single batch.
	MarkPaid(ctx context.Context, ids []string, paymentID string, at time.Time) error

	// MarkSlipIssued attaches a pending slip to all ids in a single batch.
	MarkSlipIssued(ctx context.Context, ids []string, url, barcode string) error
}

// Address is a postal address used for slip issuance.
type Address struct {
	Street     string
	Number     string
	Complement string
	District   string
	City       string
	State      string
	PostalCode string
}

// Profile is the payer identity of a user.
type Profile struct {
	UserID    string
	Name      string
	Email     string
	TaxID     string // CPF or CNPJ, digits only
	Phone     string
	Address   Address
	UpdatedAt time.Time
}

// ProfileStore persists payer profiles.
type ProfileStore interface {
	// Get retrieves the profile of a user.
	Get(ctx context.Context, userID string) (Profile, error)

	// Upsert creates or replaces a profile.
	Upsert(ctx context.Context, p Profile) error
}

// FlowStore persists payment flow sessions between requests.
type FlowStore interface {
	// Get retrieves a flow by ID.
	Get(ctx context.Context, id string) (payflow.Flow, error)

	// Save creates or replaces a flow.
	Save(ctx context.Context, f payflow.Flow) error

	// Delete removes a flow.
	Delete(ctx context.Context, id string) error

	// Lock takes the exclusive mutation lock of a flow, shared by every
	// process using the same store. It blocks until the lock is free or ctx
	// is done, and fails with ErrFlowBusy when it gives up.
	Lock(ctx context.Context, id string) (unlock func(), err error)
}

// -----------------------------------------------------------------------------
// Settings Ports
// -----------------------------------------------------------------------------

// SettingsStore persists application settings.
type SettingsStore interface {
	// Get retrieves a single setting by key.
	Get(ctx context.Context, key string) (settings.Setting, error)

	// GetAll retrieves all settings as a map.
	GetAll(ctx context.Context) (settings.Settings, error)

	// GetByPrefix retrieves all settings with a given prefix.
	GetByPrefix(ctx context.Context, prefix string) (settings.Settings, error)

	// Set stores or updates a setting.
	Set(ctx context.Context, key, value string, encrypted bool) error

	// SetBatch stores or updates multiple settings.
	SetBatch(ctx context.Context, s settings.Settings) error

	// Delete removes a setting.
	Delete(ctx context.Context, key string) error
}

// -----------------------------------------------------------------------------
// Payment Gateway Ports
// -----------------------------------------------------------------------------

// PaymentReference ties a provider payment back to what it settles.
// Gateways carry it as payment metadata so webhooks can be routed.
type PaymentReference struct {
	FlowID     string
	UserID     string
	Kind       payflow.Kind
	InvoiceIDs []string
}

// PixRequest asks for a PIX charge.
type PixRequest struct {
	Amount      decimal.Decimal
	Description string
	PayerEmail  string
	Reference   PaymentReference
}

// BoletoRequest asks for a bank slip.
type BoletoRequest struct {
	Amount      decimal.Decimal
	Description string
	Payer       Profile
	DueDate     time.Time
	Reference   PaymentReference
}

// CardRequest charges a tokenized card.
type CardRequest struct {
	Token        string
	Payer        Profile
	Installments int
	Amount       decimal.Decimal
	Description  string
	Reference    PaymentReference
}

// CardResult is the outcome of a card charge.
type CardResult struct {
	Approved   bool
	ProviderID string
	Message    string // decline reason when not approved
}

// PaymentStatus is what the provider currently reports for a charge.
type PaymentStatus struct {
	ProviderID string
	Succeeded  bool
	Amount     decimal.Decimal
	Reference  PaymentReference
	PaidAt     time.Time // zero when the provider does not report it
}

// PaymentEventType classifies provider notifications.
type PaymentEventType string

const (
	PaymentSucceeded PaymentEventType = "payment.succeeded"
	PaymentFailed    PaymentEventType = "payment.failed"
	PaymentIgnored   PaymentEventType = "ignored"
)

// PaymentEvent is a parsed provider webhook.
type PaymentEvent struct {
	Type       PaymentEventType
	ProviderID string
	Reference  PaymentReference
	Message    string
	At         time.Time
}

// PaymentGateway creates charges with a payment provider.
type PaymentGateway interface {
	// Name returns the provider name (e.g., "stripe", "remote").
	Name() string

	// CreatePix creates a PIX charge.
	CreatePix(ctx context.Context, req PixRequest) (payflow.PixCharge, error)

	// CreateBoleto issues a bank slip.
	CreateBoleto(ctx context.Context, req BoletoRequest) (payflow.Slip, error)

	// ProcessCard charges a tokenized card. A decline is a result, not an error.
	ProcessCard(ctx context.Context, req CardRequest) (CardResult, error)

	// GetPayment asks the provider for the current state of a charge.
	GetPayment(ctx context.Context, providerID string) (PaymentStatus, error)

	// ParseWebhook parses and validates an incoming webhook.
	ParseWebhook(payload []byte, signature string) (PaymentEvent, error)
}

// -----------------------------------------------------------------------------
// Event Ports
// -----------------------------------------------------------------------------

// Event is a domain event published after a state change.
type Event struct {
	Type    string
	Key     string // partition key, usually the user id
	At      time.Time
	Payload any
}

// Event types.
const (
	EventInvoicesPaid      = "invoices.paid"
	EventSlipIssued        = "invoices.slip_issued"
	EventPartialSettlement = "settlement.partial"
	EventPaymentFailed     = "payment.failed"
)

// EventPublisher publishes domain events to a message bus.
type EventPublisher interface {
	// Publish sends an event. Implementations may batch.
	Publish(ctx context.Context, e Event) error

	// Close flushes pending events and releases resources.
	Close() error
}

// -----------------------------------------------------------------------------
// Metrics Ports
// -----------------------------------------------------------------------------

// BillingMetrics records service-level measurements.
type BillingMetrics interface {
	ObserveLoad(err error, d time.Duration)
	ObserveQuote(kind payflow.Kind)
	ObservePayment(method payflow.Method, outcome string)
	ObservePartialSettlement(missing int)
}
