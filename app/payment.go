package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/installpay/adapters/clock"
	"github.com/artpar/installpay/domain/anticipation"
	"github.com/artpar/installpay/domain/payflow"
	"github.com/artpar/installpay/domain/settings"
	"github.com/artpar/installpay/domain/settlement"
	"github.com/artpar/installpay/ports"
	"github.com/rs/zerolog"
)

// Payment outcomes recorded in metrics.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeDeclined  = "declined"
	OutcomeError     = "error"
	OutcomeCreated   = "created"
	OutcomeIssued    = "issued"
)

// OpenRequest selects what a flow is going to pay.
type OpenRequest struct {
	Kind         payflow.Kind
	InvoiceID    string   // KindInvoice
	InvoiceIDs   []string // KindRenegotiation, KindAnticipation
	Installments int      // KindRenegotiation
}

// DefaultLockWait is how long a request waits for another request holding
// the same flow.
const DefaultLockWait = 10 * time.Second

// PaymentService drives payment flows: it loads a flow, applies one
// transition, talks to the gateway and executes the resulting store effects.
// Mutations of a single flow are serialized through the flow store lock, so
// they stay serialized across processes sharing the store.
type PaymentService struct {
	invoices ports.InvoiceStore
	profiles ports.ProfileStore
	flows    ports.FlowStore
	gateway  ports.PaymentGateway
	settings *SettingsService
	billing  *BillingService
	clock    ports.Clock
	ids      ports.IDGenerator
	events   ports.EventPublisher
	metrics  ports.BillingMetrics
	logger   zerolog.Logger
	lockWait time.Duration
}

// PaymentConfig holds the collaborators of a PaymentService.
type PaymentConfig struct {
	Invoices ports.InvoiceStore
	Profiles ports.ProfileStore
	Flows    ports.FlowStore
	Gateway  ports.PaymentGateway
	Settings *SettingsService
	Billing  *BillingService
	Clock    ports.Clock
	IDs      ports.IDGenerator
	Events   ports.EventPublisher
	Metrics  ports.BillingMetrics
	Logger   zerolog.Logger
	LockWait time.Duration // DefaultLockWait when zero
}

// NewPaymentService creates a payment service.
func NewPaymentService(cfg PaymentConfig) *PaymentService {
	wait := cfg.LockWait
	if wait <= 0 {
		wait = DefaultLockWait
	}
	return &PaymentService{
		invoices: cfg.Invoices,
		profiles: cfg.Profiles,
		flows:    cfg.Flows,
		gateway:  cfg.Gateway,
		settings: cfg.Settings,
		billing:  cfg.Billing,
		clock:    cfg.Clock,
		ids:      cfg.IDs,
		events:   cfg.Events,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		lockWait: wait,
	}
}

// SetGateway swaps the payment gateway, e.g. after a settings change.
func (s *PaymentService) SetGateway(g ports.PaymentGateway) {
	s.gateway = g
}

// Gateway returns the active payment gateway.
func (s *PaymentService) Gateway() ports.PaymentGateway {
	return s.gateway
}

// StartFlow opens a new payment session for a user.
func (s *PaymentService) StartFlow(ctx context.Context, userID string) (payflow.Flow, error) {
	if strings.TrimSpace(userID) == "" {
		return payflow.Flow{}, invalid("user_id", "is required")
	}
	f := payflow.New(s.ids.New(), userID)
	if err := s.flows.Save(ctx, f); err != nil {
		return payflow.Flow{}, fmt.Errorf("save flow: %w", err)
	}
	s.logger.Debug().Str("flow_id", f.ID).Str("user_id", userID).Msg("flow started")
	return f, nil
}

// GetFlow returns a flow by id.
func (s *PaymentService) GetFlow(ctx context.Context, flowID string) (payflow.Flow, error) {
	return s.flows.Get(ctx, flowID)
}

// update runs fn on the stored flow under the flow lock and saves the result.
// A failing fn leaves the stored flow untouched.
func (s *PaymentService) update(ctx context.Context, flowID string, fn func(payflow.Flow) (payflow.Flow, error)) (payflow.Flow, error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	unlock, err := s.flows.Lock(lockCtx, flowID)
	cancel()
	if err != nil {
		return payflow.Flow{}, err
	}
	defer unlock()

	f, err := s.flows.Get(ctx, flowID)
	if err != nil {
		return payflow.Flow{}, err
	}
	next, err := fn(f)
	if err != nil {
		return f, err
	}
	if err := s.flows.Save(ctx, next); err != nil {
		return next, fmt.Errorf("save flow: %w", err)
	}
	return next, nil
}

// Toggle flips an invoice in the flow's bulk selection.
func (s *PaymentService) Toggle(ctx context.Context, flowID, invoiceID string) (payflow.Flow, error) {
	return s.update(ctx, flowID, func(f payflow.Flow) (payflow.Flow, error) {
		if _, err := ownedInvoices(ctx, s.invoices, f.UserID, []string{invoiceID}); err != nil {
			return f, err
		}
		next, err := f.Toggle(invoiceID)
		if errors.Is(err, anticipation.ErrSelectionFrozen) {
			return f, validation(err)
		}
		return next, err
	})
}

// Open prices the requested target and moves the flow to method selection.
func (s *PaymentService) Open(ctx context.Context, flowID string, req OpenRequest) (payflow.Flow, error) {
	return s.update(ctx, flowID, func(f payflow.Flow) (payflow.Flow, error) {
		target, sel, err := s.target(ctx, f, req)
		if err != nil {
			return f, err
		}
		if req.Kind == payflow.KindAnticipation {
			f.Selection = sel
		}
		next, err := f.Open(target)
		if err != nil {
			return f, err
		}
		s.logger.Info().
			Str("flow_id", f.ID).
			Str("user_id", f.UserID).
			Str("kind", string(target.Kind)).
			Str("amount", target.Amount.StringFixed(2)).
			Msg("payment target opened")
		return next, nil
	})
}

func (s *PaymentService) target(ctx context.Context, f payflow.Flow, req OpenRequest) (payflow.Obligation, anticipation.Selection, error) {
	switch req.Kind {
	case payflow.KindInvoice:
		if req.InvoiceID == "" {
			return payflow.Obligation{}, f.Selection, invalid("invoice_id", "is required")
		}
		invs, err := ownedInvoices(ctx, s.invoices, f.UserID, []string{req.InvoiceID})
		if err != nil {
			return payflow.Obligation{}, f.Selection, err
		}
		ob, err := payflow.ForInvoice(invs[0])
		if err != nil {
			return payflow.Obligation{}, f.Selection, validation(err)
		}
		return ob, f.Selection, nil

	case payflow.KindRenegotiation:
		if req.Installments == 0 {
			return payflow.Obligation{}, f.Selection, invalid("installments", "is required")
		}
		deals, err := s.billing.QuoteRenegotiation(ctx, f.UserID, req.InvoiceIDs, req.Installments)
		if err != nil {
			return payflow.Obligation{}, f.Selection, err
		}
		return payflow.ForRenegotiation(deals[0], clock.Today(s.clock)), f.Selection, nil

	case payflow.KindAnticipation:
		sel := f.Selection
		if len(req.InvoiceIDs) > 0 {
			sel = anticipation.NewSelection(req.InvoiceIDs...)
		}
		ob, err := s.billing.QuoteAnticipation(ctx, f.UserID, sel.IDs())
		if err != nil {
			return payflow.Obligation{}, f.Selection, err
		}
		return payflow.ForAnticipation(ob), sel, nil
	}
	return payflow.Obligation{}, f.Selection, invalid("kind", "unknown target kind %q", req.Kind)
}

// ChooseMethod routes the flow to the payment substate of method.
func (s *PaymentService) ChooseMethod(ctx context.Context, flowID string, method payflow.Method) (payflow.Flow, error) {
	return s.update(ctx, flowID, func(f payflow.Flow) (payflow.Flow, error) {
		next, err := f.Choose(method)
		if errors.Is(err, payflow.ErrUnknownMethod) || errors.Is(err, payflow.ErrMethodNotAllowed) {
			return f, validation(err)
		}
		return next, err
	})
}

// Back abandons the current target and returns the flow to the list.
func (s *PaymentService) Back(ctx context.Context, flowID string) (payflow.Flow, error) {
	return s.update(ctx, flowID, func(f payflow.Flow) (payflow.Flow, error) {
		return f.Back(), nil
	})
}

// PayCard charges a tokenized card for the flow's target. Declines and
// provider errors are recorded on the flow and do not return an error.
func (s *PaymentService) PayCard(ctx context.Context, flowID, token string, installments int) (payflow.Flow, error) {
	var effects []payflow.Effect
	var target payflow.Obligation

	f, err := s.update(ctx, flowID, func(f payflow.Flow) (payflow.Flow, error) {
		if f.State != payflow.StatePayCard {
			return f, notIn(f, "pay card")
		}
		if token == "" {
			return f, invalid("token", "is required")
		}
		if limit := s.settings.CardMaxInstallments(); installments < 1 || installments > limit {
			return f, invalid("installments", "must be between 1 and %d", limit)
		}
		target = *f.Target

		payer, err := s.payer(ctx, f.UserID)
		if err != nil {
			return f, err
		}
		res, err := s.gateway.ProcessCard(ctx, ports.CardRequest{
			Token:        token,
			Payer:        payer,
			Installments: installments,
			Amount:       target.Amount,
			Description:  target.Description,
			Reference:    reference(f),
		})
		if err != nil {
			return s.fail(ctx, f, OutcomeError, err)
		}
		if !res.Approved {
			msg := res.Message
			if msg == "" {
				msg = "card declined"
			}
			return s.fail(ctx, f, OutcomeDeclined, errors.New(msg))
		}

		next, eff, err := f.Confirm(res.ProviderID, s.clock.Now())
		if err != nil {
			return f, err
		}
		effects = eff
		s.observePayment(payflow.MethodCard, OutcomeSucceeded)
		return next, nil
	})
	if err != nil {
		return f, err
	}
	return f, s.apply(ctx, flowID, target, effects)
}

// CreatePix creates a PIX charge for the flow's target.
func (s *PaymentService) CreatePix(ctx context.Context, flowID string) (payflow.Flow, error) {
	return s.update(ctx, flowID, func(f payflow.Flow) (payflow.Flow, error) {
		if f.State != payflow.StatePayPix {
			return f, notIn(f, "create pix")
		}
		payer, err := s.payer(ctx, f.UserID)
		if err != nil {
			return f, err
		}
		charge, err := s.gateway.CreatePix(ctx, ports.PixRequest{
			Amount:      f.Target.Amount,
			Description: f.Target.Description,
			PayerEmail:  payer.Email,
			Reference:   reference(f),
		})
		if err != nil {
			return s.fail(ctx, f, OutcomeError, err)
		}
		s.observePayment(payflow.MethodPix, OutcomeCreated)
		return f.PixCreated(charge)
	})
}

// ConfirmPix settles the flow's target once the provider reports the PIX
// charge created for this flow as paid. The caller only triggers the check.
func (s *PaymentService) ConfirmPix(ctx context.Context, flowID string) (payflow.Flow, error) {
	var effects []payflow.Effect
	var target payflow.Obligation

	f, err := s.update(ctx, flowID, func(f payflow.Flow) (payflow.Flow, error) {
		if f.State != payflow.StatePayPix {
			return f, notIn(f, "confirm pix")
		}
		if f.Pix == nil || f.Pix.ProviderID == "" {
			return f, invalid("pix", "no charge has been created")
		}

		st, err := s.gateway.GetPayment(ctx, f.Pix.ProviderID)
		if err != nil {
			return f, fmt.Errorf("%w: %w", ErrGateway, err)
		}
		if !st.Succeeded {
			return f, ErrPaymentPending
		}
		if err := chargeMatches(f, st); err != nil {
			s.logger.Error().
				Err(err).
				Str("flow_id", f.ID).
				Str("payment_id", f.Pix.ProviderID).
				Str("amount", st.Amount.StringFixed(2)).
				Msg("provider charge does not match flow")
			return f, err
		}

		at := st.PaidAt
		if at.IsZero() {
			at = s.clock.Now()
		}
		target = *f.Target
		next, eff, err := f.Confirm(f.Pix.ProviderID, at)
		if err != nil {
			return f, err
		}
		effects = eff
		s.observePayment(payflow.MethodPix, OutcomeSucceeded)
		return next, nil
	})
	if err != nil {
		return f, err
	}
	return f, s.apply(ctx, flowID, target, effects)
}

// chargeMatches checks that a paid charge is the one f is waiting for.
func chargeMatches(f payflow.Flow, st ports.PaymentStatus) error {
	switch {
	case st.ProviderID != "" && st.ProviderID != f.Pix.ProviderID:
		return fmt.Errorf("%w: provider returned charge %s", ErrPaymentMismatch, st.ProviderID)
	case st.Reference.FlowID != "" && st.Reference.FlowID != f.ID:
		return fmt.Errorf("%w: charge belongs to flow %s", ErrPaymentMismatch, st.Reference.FlowID)
	case !st.Amount.Round(2).Equal(f.Target.Amount.Round(2)):
		return fmt.Errorf("%w: paid %s, expected %s", ErrPaymentMismatch, st.Amount.StringFixed(2), f.Target.Amount.StringFixed(2))
	}
	return nil
}

// IssueBoleto issues a bank slip for the flow's target. The payer profile
// must carry a tax id and an address.
func (s *PaymentService) IssueBoleto(ctx context.Context, flowID string) (payflow.Flow, error) {
	var effects []payflow.Effect
	var target payflow.Obligation

	f, err := s.update(ctx, flowID, func(f payflow.Flow) (payflow.Flow, error) {
		if f.State != payflow.StatePayBoleto {
			return f, notIn(f, "issue boleto")
		}
		payer, err := s.payer(ctx, f.UserID)
		if err != nil {
			return f, err
		}
		if payer.TaxID == "" {
			return f, invalid("profile.tax_id", "is required to issue a bank slip")
		}
		if payer.Address.Street == "" || payer.Address.PostalCode == "" {
			return f, invalid("profile.address", "is required to issue a bank slip")
		}

		target = *f.Target
		days := s.settings.Get().GetInt(settings.KeyPaymentBoletoExpiryDays, 3)
		slip, err := s.gateway.CreateBoleto(ctx, ports.BoletoRequest{
			Amount:      target.Amount,
			Description: target.Description,
			Payer:       payer,
			DueDate:     clock.Today(s.clock).AddDate(0, 0, days),
			Reference:   reference(f),
		})
		if err != nil {
			return s.fail(ctx, f, OutcomeError, err)
		}

		next, eff, err := f.SlipIssued(slip)
		if err != nil {
			return f, err
		}
		effects = eff
		s.observePayment(payflow.MethodBoleto, OutcomeIssued)
		return next, nil
	})
	if err != nil {
		return f, err
	}
	return f, s.apply(ctx, flowID, target, effects)
}

// HandleWebhook applies a provider notification. A success confirms the
// flow when it is still waiting; otherwise the referenced invoices are
// settled directly, which is a no-op for invoices already paid by the same
// payment.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWebhook, err)
	}

	ref := event.Reference
	log := s.logger.With().
		Str("provider", s.gateway.Name()).
		Str("payment_id", event.ProviderID).
		Str("flow_id", ref.FlowID).
		Str("user_id", ref.UserID).
		Logger()

	switch event.Type {
	case ports.PaymentSucceeded:
		log.Info().Strs("invoice_ids", ref.InvoiceIDs).Msg("payment succeeded")
		return s.webhookSucceeded(ctx, event)

	case ports.PaymentFailed:
		log.Warn().Str("reason", event.Message).Msg("payment failed")
		if ref.FlowID == "" {
			s.publish(ctx, ports.EventPaymentFailed, ref.UserID, PaymentFailed{UserID: ref.UserID, Reason: event.Message})
			return nil
		}
		_, err := s.update(ctx, ref.FlowID, func(f payflow.Flow) (payflow.Flow, error) {
			if !f.State.Paying() {
				return f, nil
			}
			return s.fail(ctx, f, OutcomeDeclined, errors.New(event.Message))
		})
		if errors.Is(err, ports.ErrNotFound) {
			return nil
		}
		return err

	default:
		log.Debug().Msg("webhook ignored")
		return nil
	}
}

func (s *PaymentService) webhookSucceeded(ctx context.Context, event ports.PaymentEvent) error {
	ref := event.Reference
	at := event.At
	if at.IsZero() {
		at = s.clock.Now()
	}

	if ref.FlowID != "" {
		var effects []payflow.Effect
		var target payflow.Obligation
		_, err := s.update(ctx, ref.FlowID, func(f payflow.Flow) (payflow.Flow, error) {
			if f.State != payflow.StatePayCard && f.State != payflow.StatePayPix {
				return f, nil
			}
			target = *f.Target
			next, eff, err := f.Confirm(event.ProviderID, at)
			if err != nil {
				return f, err
			}
			effects = eff
			s.observePayment(f.Method, OutcomeSucceeded)
			return next, nil
		})
		if err != nil && !errors.Is(err, ports.ErrNotFound) {
			return err
		}
		if len(effects) > 0 {
			return s.apply(ctx, ref.FlowID, target, effects)
		}
	}

	if len(ref.InvoiceIDs) == 0 {
		return nil
	}
	target := payflow.Obligation{Kind: ref.Kind, UserID: ref.UserID, InvoiceIDs: ref.InvoiceIDs}
	return s.settle(ctx, ref.FlowID, target, event.ProviderID, at)
}

// fail records a retryable provider error on f and reports it.
func (s *PaymentService) fail(ctx context.Context, f payflow.Flow, outcome string, cause error) (payflow.Flow, error) {
	next, err := f.Fail(cause)
	if err != nil {
		return f, err
	}
	s.observePayment(f.Method, outcome)
	s.logger.Warn().
		Err(cause).
		Str("flow_id", f.ID).
		Str("user_id", f.UserID).
		Str("method", string(f.Method)).
		Str("outcome", outcome).
		Msg("payment attempt failed")
	s.publish(ctx, ports.EventPaymentFailed, f.UserID, PaymentFailed{
		FlowID: f.ID,
		UserID: f.UserID,
		Method: f.Method,
		Reason: cause.Error(),
	})
	return next, nil
}

// apply executes the store effects of a transition.
func (s *PaymentService) apply(ctx context.Context, flowID string, target payflow.Obligation, effects []payflow.Effect) error {
	var errs []error
	for _, e := range effects {
		switch e := e.(type) {
		case payflow.MarkPaid:
			t := target
			t.InvoiceIDs = e.InvoiceIDs
			errs = append(errs, s.settle(ctx, flowID, t, e.PaymentID, e.At))

		case payflow.MarkSlipIssued:
			if err := s.invoices.MarkSlipIssued(ctx, e.InvoiceIDs, e.URL, e.Barcode); err != nil {
				s.logger.Error().Err(err).Str("flow_id", flowID).Strs("invoice_ids", e.InvoiceIDs).Msg("attach slip failed")
				errs = append(errs, fmt.Errorf("attach slip: %w", err))
				continue
			}
			s.publish(ctx, ports.EventSlipIssued, target.UserID, SlipIssued{
				FlowID:     flowID,
				UserID:     target.UserID,
				Kind:       target.Kind,
				InvoiceIDs: e.InvoiceIDs,
				URL:        e.URL,
				Barcode:    e.Barcode,
			})
		}
	}
	return errors.Join(errs...)
}

// settle writes the Paid state for every target invoice in one batch, then
// re-reads them to confirm the write landed on all of them. Drift is
// reported as a *settlement.PartialError and never healed here.
func (s *PaymentService) settle(ctx context.Context, flowID string, target payflow.Obligation, paymentID string, at time.Time) error {
	log := s.logger.With().
		Str("flow_id", flowID).
		Str("user_id", target.UserID).
		Str("payment_id", paymentID).
		Logger()

	writeErr := s.invoices.MarkPaid(ctx, target.InvoiceIDs, paymentID, at)
	if writeErr != nil {
		log.Error().Err(writeErr).Msg("mark paid failed")
	}

	observed, err := s.invoices.GetMany(ctx, target.InvoiceIDs)
	if err != nil {
		return errors.Join(writeErr, fmt.Errorf("reconcile settlement: %w", err))
	}

	report := settlement.Reconcile(target.InvoiceIDs, observed, paymentID)
	if !report.Complete() {
		log.Error().
			Strs("confirmed", report.Confirmed).
			Strs("missing", report.Missing).
			Msg("partial settlement")
		if s.metrics != nil {
			s.metrics.ObservePartialSettlement(len(report.Missing))
		}
		s.publish(ctx, ports.EventPartialSettlement, target.UserID, PartialSettlement{
			UserID:    target.UserID,
			PaymentID: paymentID,
			Confirmed: report.Confirmed,
			Missing:   report.Missing,
		})
		return report.Err()
	}

	log.Info().Int("count", len(report.Confirmed)).Msg("invoices settled")
	s.publish(ctx, ports.EventInvoicesPaid, target.UserID, InvoicesPaid{
		FlowID:     flowID,
		UserID:     target.UserID,
		Kind:       target.Kind,
		PaymentID:  paymentID,
		InvoiceIDs: report.Confirmed,
		PaidAt:     at,
	})
	return nil
}

// payer returns the profile of userID, or a bare profile when none exists.
func (s *PaymentService) payer(ctx context.Context, userID string) (ports.Profile, error) {
	p, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, ports.ErrNotFound) {
		return ports.Profile{UserID: userID}, nil
	}
	if err != nil {
		return ports.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *PaymentService) observePayment(m payflow.Method, outcome string) {
	if s.metrics != nil {
		s.metrics.ObservePayment(m, outcome)
	}
}

func notIn(f payflow.Flow, event string) error {
	return &payflow.TransitionError{From: f.State, Event: event}
}

func reference(f payflow.Flow) ports.PaymentReference {
	return ports.PaymentReference{
		FlowID:     f.ID,
		UserID:     f.UserID,
		Kind:       f.Target.Kind,
		InvoiceIDs: append([]string(nil), f.Target.InvoiceIDs...),
	}
}
