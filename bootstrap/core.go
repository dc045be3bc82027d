package bootstrap

import (
	"context"
	"fmt"

	"github.com/artpar/installpay/adapters/clock"
	"github.com/artpar/installpay/app"
	"github.com/artpar/installpay/config"
	"github.com/artpar/installpay/domain/grouping"
	"github.com/artpar/installpay/ports"
	"github.com/rs/zerolog"
)

// Core is the part of the application that needs only the database: stores,
// settings and billing. The CLI works on a Core without starting a server.
type Core struct {
	Stores   *Stores
	Settings *app.SettingsService
	Billing  *app.BillingService
	Clock    ports.Clock
}

// OpenCore opens the stores, seeds payment settings from cfg and builds the
// billing service.
func OpenCore(ctx context.Context, cfg *config.Config, logger zerolog.Logger, observer ports.BillingMetrics) (*Core, error) {
	clk, err := clock.InLocation(cfg.Billing.Timezone)
	if err != nil {
		return nil, fmt.Errorf("billing timezone: %w", err)
	}

	stores, err := OpenStores(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	svc := app.NewSettingsService(stores.Settings, logger)
	if n, err := svc.SeedMissing(ctx, cfg.Payment.Seed()); err != nil {
		stores.Close()
		return nil, fmt.Errorf("seed settings: %w", err)
	} else if n > 0 {
		logger.Info().Int("count", n).Msg("payment settings seeded from config")
	}
	if err := svc.Load(ctx); err != nil {
		stores.Close()
		return nil, fmt.Errorf("load settings: %w", err)
	}

	return &Core{
		Stores:   stores,
		Settings: svc,
		Clock:    clk,
		Billing: app.NewBillingService(app.BillingConfig{
			Invoices: stores.Invoices,
			Profiles: stores.Profiles,
			Settings: svc,
			Clock:    clk,
			Namer:    namer(cfg.Billing.GroupBy),
			Metrics:  observer,
			Logger:   logger,
		}),
	}, nil
}

// Close releases the stores.
func (c *Core) Close() error {
	return c.Stores.Close()
}

func namer(groupBy string) grouping.Namer {
	if groupBy == "legacy" {
		return grouping.LegacyNamer{}
	}
	return grouping.ExplicitNamer{Fallback: grouping.LegacyNamer{}}
}
