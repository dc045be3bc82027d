package bootstrap

import (
	"context"
	"fmt"

	"github.com/artpar/installpay/adapters/gormstore"
	"github.com/artpar/installpay/adapters/memory"
	"github.com/artpar/installpay/adapters/remote"
	"github.com/artpar/installpay/adapters/sqlite"
	"github.com/artpar/installpay/config"
	"github.com/artpar/installpay/domain/settings"
	"github.com/artpar/installpay/ports"
	"github.com/rs/zerolog"
)

// Stores groups the persistence ports selected by database.driver.
type Stores struct {
	Driver   string
	Invoices ports.InvoiceStore
	Profiles ports.ProfileStore
	Settings ports.SettingsStore

	// Migrations lists the schema versions applied while opening.
	Migrations []string

	ping  func(ctx context.Context) error
	close func() error
}

// OpenStores connects to the configured backend and brings its schema up to
// date.
func OpenStores(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*Stores, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		versions, err := db.MigrateVersions()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		logger.Info().Str("dsn", cfg.DSN).Int("migrations", len(versions)).Msg("database initialized")
		return &Stores{
			Driver:     cfg.Driver,
			Invoices:   sqlite.NewInvoiceStore(db),
			Profiles:   sqlite.NewProfileStore(db),
			Settings:   sqlite.NewSettingsStore(db),
			Migrations: versions,
			ping:       db.PingContext,
			close:      db.Close,
		}, nil

	case "postgres":
		db, err := gormstore.Open(ctx, gormstore.Config{Driver: "postgres", DSN: cfg.DSN})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := gormstore.Migrate(ctx, db); err != nil {
			sqlDB.Close()
			return nil, err
		}
		logger.Info().Str("driver", "postgres").Msg("database initialized")
		gs := gormstore.NewStores(db)
		return &Stores{
			Driver:   cfg.Driver,
			Invoices: gs.Invoices,
			Profiles: gs.Profiles,
			Settings: gs.Settings,
			ping:     sqlDB.PingContext,
			close:    sqlDB.Close,
		}, nil

	case "remote":
		client := remote.ClientConfig{
			BaseURL: cfg.Remote.URL,
			APIKey:  cfg.Remote.APIKey,
			Timeout: cfg.Remote.Timeout,
			Retries: cfg.Remote.Retries,
			Headers: cfg.Remote.Headers,
		}
		logger.Info().Str("url", cfg.Remote.URL).Msg("using remote invoice store")
		return &Stores{
			Driver:   cfg.Driver,
			Invoices: remote.NewInvoiceStore(client),
			Profiles: remote.NewProfileStore(client),
			// The remote API owns invoices and profiles only.
			Settings: memory.NewSettingsStore(settings.Settings{}),
		}, nil

	case "memory":
		logger.Warn().Msg("using in-memory stores, data is lost on exit")
		return &Stores{
			Driver:   cfg.Driver,
			Invoices: memory.NewInvoiceStore(),
			Profiles: memory.NewProfileStore(),
			Settings: memory.NewSettingsStore(settings.Settings{}),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// Ping checks the backing database. Backends without a connection report
// healthy.
func (s *Stores) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the database connection.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
