// Package payflow sequences a payment attempt as a finite state machine.
//
//	List -> SelectMethod -> {PayCard, PayPix, PayBoleto}
//	PayCard, PayPix -> List            (confirmed)
//	PayBoleto       -> BoletoDetails   (slip issued)
//	any             -> List            (back)
//
// Flow is a value. Transitions return the next Flow plus the store effects
// the caller must apply; nothing is executed here.
package payflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/artpar/installpay/domain/anticipation"
)

// State is a node of the payment flow.
type State string

const (
	StateList          State = "list"
	StateSelectMethod  State = "select_method"
	StatePayCard       State = "pay_card"
	StatePayPix        State = "pay_pix"
	StatePayBoleto     State = "pay_boleto"
	StateBoletoDetails State = "boleto_details"
)

// Paying reports whether s is a provider-specific payment substate.
func (s State) Paying() bool {
	return s == StatePayCard || s == StatePayPix || s == StatePayBoleto
}

// Method is a payment instrument.
type Method string

const (
	MethodCard   Method = "card"
	MethodPix    Method = "pix"
	MethodBoleto Method = "boleto"
)

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	_, ok := methodState[m]
	return ok
}

var methodState = map[Method]State{
	MethodCard:   StatePayCard,
	MethodPix:    StatePayPix,
	MethodBoleto: StatePayBoleto,
}

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNoTarget          = errors.New("payment target is required")
	ErrUnknownMethod     = errors.New("unknown payment method")
	ErrMethodNotAllowed  = errors.New("payment method not allowed for this target")
	ErrMissingPaymentID  = errors.New("payment id is required")
)

// TransitionError reports an event that is not accepted in the current state.
type TransitionError struct {
	From  State
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s not allowed in state %s", e.Event, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Slip is an issued bank slip.
type Slip struct {
	URL        string `json:"url"`
	Barcode    string `json:"barcode"`
	ProviderID string `json:"provider_id"`
}

// PixCharge is a created PIX charge awaiting payment.
type PixCharge struct {
	QRImage    string    `json:"qr_image"`
	CopyPaste  string    `json:"copy_paste"`
	ExpiresAt  time.Time `json:"expires_at"`
	ProviderID string    `json:"provider_id"`
}

// Flow is one payment attempt session.
type Flow struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	State     State                  `json:"state"`
	Target    *Obligation            `json:"target,omitempty"`
	Selection anticipation.Selection `json:"selection"`
	Method    Method                 `json:"method,omitempty"`
	Error     string                 `json:"error,omitempty"` // retryable provider error
	Slip      *Slip                  `json:"slip,omitempty"`
	Pix       *PixCharge             `json:"pix,omitempty"`
}

// New returns a flow resting in List.
func New(id, userID string) Flow {
	return Flow{ID: id, UserID: userID, State: StateList}
}

func (f Flow) reject(event string) error {
	return &TransitionError{From: f.State, Event: event}
}

// Toggle flips an invoice in the bulk selection. Only accepted in List while
// the selection is not frozen.
func (f Flow) Toggle(invoiceID string) (Flow, error) {
	if f.State != StateList {
		return f, f.reject("toggle")
	}
	sel, err := f.Selection.Toggle(invoiceID)
	if err != nil {
		return f, err
	}
	f.Selection = sel
	return f, nil
}

// Open starts paying target. An anticipation freezes the selection.
func (f Flow) Open(target Obligation) (Flow, error) {
	if f.State != StateList {
		return f, f.reject("open")
	}
	if target.IsZero() {
		return f, ErrNoTarget
	}

	t := target
	t.InvoiceIDs = append([]string(nil), target.InvoiceIDs...)
	f.Target = &t
	if target.Kind == KindAnticipation {
		f.Selection = f.Selection.Freeze()
	}
	f.State = StateSelectMethod
	f.Error = ""
	return f, nil
}

// Choose routes to the provider-specific substate for m.
func (f Flow) Choose(m Method) (Flow, error) {
	if f.State != StateSelectMethod {
		return f, f.reject("choose")
	}
	next, ok := methodState[m]
	if !ok {
		return f, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
	}
	if !f.Target.Allows(m) {
		return f, fmt.Errorf("%w: %s", ErrMethodNotAllowed, m)
	}
	f.State = next
	f.Method = m
	return f, nil
}

// PixCreated records a PIX charge while waiting for its confirmation.
func (f Flow) PixCreated(charge PixCharge) (Flow, error) {
	if f.State != StatePayPix {
		return f, f.reject("pix created")
	}
	f.Pix = &charge
	f.Error = ""
	return f, nil
}

// Confirm completes a card or PIX payment and returns to List.
func (f Flow) Confirm(paymentID string, at time.Time) (Flow, []Effect, error) {
	if f.State != StatePayCard && f.State != StatePayPix {
		return f, nil, f.reject("confirm")
	}
	if paymentID == "" {
		return f, nil, ErrMissingPaymentID
	}

	effect := MarkPaid{
		InvoiceIDs: append([]string(nil), f.Target.InvoiceIDs...),
		PaymentID:  paymentID,
		At:         at,
	}
	return f.reset(), []Effect{effect}, nil
}

// SlipIssued moves to BoletoDetails with the issued slip attached.
func (f Flow) SlipIssued(slip Slip) (Flow, []Effect, error) {
	if f.State != StatePayBoleto {
		return f, nil, f.reject("slip issued")
	}

	effect := MarkSlipIssued{
		InvoiceIDs: append([]string(nil), f.Target.InvoiceIDs...),
		URL:        slip.URL,
		Barcode:    slip.Barcode,
	}
	f.State = StateBoletoDetails
	f.Slip = &slip
	f.Error = ""
	return f, []Effect{effect}, nil
}

// Fail records a retryable provider error. The state is kept.
func (f Flow) Fail(err error) (Flow, error) {
	if !f.State.Paying() {
		return f, f.reject("fail")
	}
	if err != nil {
		f.Error = err.Error()
	}
	return f, nil
}

// Back returns to List from any state, dropping the target, the selection
// and any error. An issued slip stays pending in the store.
func (f Flow) Back() Flow {
	return f.reset()
}

func (f Flow) reset() Flow {
	return Flow{ID: f.ID, UserID: f.UserID, State: StateList}
}
