package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/installpay/adapters/clock"
	"github.com/artpar/installpay/domain/anticipation"
	"github.com/artpar/installpay/domain/grouping"
	"github.com/artpar/installpay/domain/invoice"
	"github.com/artpar/installpay/domain/payflow"
	"github.com/artpar/installpay/domain/renegotiation"
	"github.com/artpar/installpay/domain/status"
	"github.com/artpar/installpay/ports"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// View is everything the billing screen shows for one user.
type View struct {
	UserID   string
	Today    time.Time
	Groups   []grouping.PurchaseGroup
	Summary  status.Summary
	Invoices []invoice.Invoice
	Profile  *ports.Profile // nil when the user has no payer profile yet
	MaxRate  decimal.Decimal
}

// BillingService assembles billing views and prices renegotiation and
// anticipation offers.
type BillingService struct {
	invoices ports.InvoiceStore
	profiles ports.ProfileStore
	settings *SettingsService
	clock    ports.Clock
	namer    grouping.Namer
	metrics  ports.BillingMetrics
	logger   zerolog.Logger
}

// BillingConfig holds the collaborators of a BillingService.
type BillingConfig struct {
	Invoices ports.InvoiceStore
	Profiles ports.ProfileStore
	Settings *SettingsService
	Clock    ports.Clock
	Namer    grouping.Namer // defaults to grouping.DefaultNamer
	Metrics  ports.BillingMetrics
	Logger   zerolog.Logger
}

// NewBillingService creates a billing service.
func NewBillingService(cfg BillingConfig) *BillingService {
	namer := cfg.Namer
	if namer == nil {
		namer = grouping.DefaultNamer
	}
	return &BillingService{
		invoices: cfg.Invoices,
		profiles: cfg.Profiles,
		settings: cfg.Settings,
		clock:    cfg.Clock,
		namer:    namer,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
}

// Today returns the current calendar date.
func (s *BillingService) Today() time.Time {
	return clock.Today(s.clock)
}

// Load gathers invoices, profile and settings concurrently and derives the
// grouped view. Any failure fails the whole load with a *LoadError.
func (s *BillingService) Load(ctx context.Context, userID string) (View, error) {
	start := time.Now()
	view, err := s.load(ctx, userID)
	if s.metrics != nil {
		s.metrics.ObserveLoad(err, time.Since(start))
	}
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("billing load failed")
		return View{}, err
	}
	return view, nil
}

func (s *BillingService) load(ctx context.Context, userID string) (View, error) {
	var (
		invoices []invoice.Invoice
		profile  *ports.Profile
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.invoices.ListByUser(gctx, userID)
		if err != nil {
			return &LoadError{UserID: userID, Op: "invoices", Err: err}
		}
		invoices = list
		return nil
	})
	g.Go(func() error {
		p, err := s.profiles.Get(gctx, userID)
		if errors.Is(err, ports.ErrNotFound) {
			return nil
		}
		if err != nil {
			return &LoadError{UserID: userID, Op: "profile", Err: err}
		}
		profile = &p
		return nil
	})
	g.Go(func() error {
		if err := s.settings.Load(gctx); err != nil {
			return &LoadError{UserID: userID, Op: "settings", Err: err}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return View{}, err
	}

	today := s.Today()
	groups := grouping.Sort(grouping.GroupWith(s.namer, invoices, today))

	return View{
		UserID:   userID,
		Today:    today,
		Groups:   groups,
		Summary:  status.Summarize(invoices, today),
		Invoices: invoices,
		Profile:  profile,
		MaxRate:  s.settings.MaxRate(),
	}, nil
}

// QuoteRenegotiation prices the renegotiation of overdue invoices. An empty
// id list takes every late invoice of the user. Zero installments quotes all
// allowed counts; otherwise a single deal is returned.
func (s *BillingService) QuoteRenegotiation(ctx context.Context, userID string, ids []string, installments int) ([]renegotiation.Deal, error) {
	if installments != 0 && (installments < renegotiation.MinInstallments || installments > renegotiation.MaxInstallments) {
		return nil, invalid("installments", "must be between %d and %d", renegotiation.MinInstallments, renegotiation.MaxInstallments)
	}

	today := s.Today()
	var overdue []invoice.Invoice
	if len(ids) == 0 {
		all, err := s.invoices.ListByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("list invoices: %w", err)
		}
		overdue = invoice.Late(all, today)
	} else {
		selected, err := s.owned(ctx, userID, ids)
		if err != nil {
			return nil, err
		}
		overdue = selected
	}

	maxRate := s.settings.MaxRate()
	if installments == 0 {
		for _, inv := range overdue {
			if !inv.IsLate(today) {
				return nil, validation(fmt.Errorf("%w: %s", renegotiation.ErrNotOverdue, inv.ID))
			}
		}
		deals, err := renegotiation.Quote(overdue, maxRate)
		if err != nil {
			return nil, validation(err)
		}
		s.observeQuote(payflow.KindRenegotiation)
		return deals, nil
	}

	deal, err := renegotiation.ComputeDealOn(overdue, installments, maxRate, today)
	if err != nil {
		return nil, validation(err)
	}
	s.observeQuote(payflow.KindRenegotiation)
	return []renegotiation.Deal{deal}, nil
}

// QuoteAnticipation prices the early payment of the given future invoices.
func (s *BillingService) QuoteAnticipation(ctx context.Context, userID string, ids []string) (anticipation.Obligation, error) {
	if len(ids) == 0 {
		return anticipation.Obligation{}, validation(anticipation.ErrEmptySelection)
	}
	if dup := lo.FindDuplicates(ids); len(dup) > 0 {
		return anticipation.Obligation{}, validation(&anticipation.InvoiceError{ID: dup[0], Err: anticipation.ErrDuplicate})
	}

	selected, err := s.owned(ctx, userID, ids)
	if err != nil {
		return anticipation.Obligation{}, err
	}
	ob, err := anticipation.Compute(selected, s.Today())
	if err != nil {
		return anticipation.Obligation{}, validation(err)
	}
	s.observeQuote(payflow.KindAnticipation)
	return ob, nil
}

// owned loads the invoices with the given ids, in id order, and checks that
// they all exist and belong to userID.
func (s *BillingService) owned(ctx context.Context, userID string, ids []string) ([]invoice.Invoice, error) {
	return ownedInvoices(ctx, s.invoices, userID, ids)
}

func ownedInvoices(ctx context.Context, store ports.InvoiceStore, userID string, ids []string) ([]invoice.Invoice, error) {
	found, err := store.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get invoices: %w", err)
	}
	byID := lo.KeyBy(found, func(inv invoice.Invoice) string { return inv.ID })

	out := make([]invoice.Invoice, 0, len(ids))
	for _, id := range lo.Uniq(ids) {
		inv, ok := byID[id]
		if !ok {
			return nil, validation(&anticipation.InvoiceError{ID: id, Err: anticipation.ErrUnknownInvoice})
		}
		if inv.UserID != userID {
			return nil, fmt.Errorf("invoice %s: %w", id, ErrForbidden)
		}
		out = append(out, inv)
	}
	return out, nil
}

func (s *BillingService) observeQuote(kind payflow.Kind) {
	if s.metrics != nil {
		s.metrics.ObserveQuote(kind)
	}
}

// validation tags a domain error as a validation failure.
func validation(err error) error {
	if err == nil || errors.Is(err, ErrValidation) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}
