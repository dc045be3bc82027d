// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from a YAML file or INSTALLPAY_* environment variables;
// payment credentials live in the settings store once seeded.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apihttp "github.com/artpar/installpay/adapters/http"
	"github.com/artpar/installpay/adapters/idgen"
	"github.com/artpar/installpay/adapters/kafka"
	"github.com/artpar/installpay/adapters/memory"
	"github.com/artpar/installpay/adapters/metrics"
	"github.com/artpar/installpay/adapters/payment"
	"github.com/artpar/installpay/adapters/redis"
	"github.com/artpar/installpay/app"
	"github.com/artpar/installpay/config"
	"github.com/artpar/installpay/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	Stores     *Stores
	HTTPServer *http.Server
	Router     http.Handler
	Metrics    *metrics.Collector // nil when metrics are disabled
	Registry   *prometheus.Registry

	// Services
	Settings *app.SettingsService
	Billing  *app.BillingService
	Payments *app.PaymentService

	holder *config.Holder
	redis  *goredis.Client
	events ports.EventPublisher
}

// New builds the application from a loaded configuration.
func New(cfg *config.Config) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{
		Config: cfg,
		Logger: NewLogger(cfg.Logging, os.Stdout),
	}

	if err := a.init(ctx); err != nil {
		a.closeResources()
		return nil, err
	}
	return a, nil
}

// NewWithHotReload loads path into a config.Holder and reapplies reloadable
// fields when the file changes or the process receives SIGHUP.
func NewWithHotReload(path string) (*App, error) {
	holder, err := config.NewHolder(path, NewLogger(config.LoggingConfig{Level: "info", Format: "json"}, os.Stdout))
	if err != nil {
		return nil, err
	}

	a, err := New(holder.Get())
	if err != nil {
		holder.Stop()
		return nil, err
	}

	a.holder = holder
	if a.Metrics != nil {
		holder.Observe(a.Metrics)
	}
	holder.OnChange(a.applyConfig)

	if err := holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch unavailable, SIGHUP only")
	}
	holder.WatchSignals()

	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	if cfg.Metrics.Enabled {
		a.Registry = prometheus.NewRegistry()
		a.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewWithRegistry(a.Registry)
	}

	var observer ports.BillingMetrics = metrics.Noop{}
	if a.Metrics != nil {
		observer = a.Metrics
	}

	core, err := OpenCore(ctx, cfg, a.Logger, observer)
	if err != nil {
		return err
	}
	a.Stores = core.Stores
	a.Settings = core.Settings
	a.Billing = core.Billing
	clk := core.Clock

	flows, err := a.flowStore(ctx, clk)
	if err != nil {
		return err
	}

	a.events = kafka.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		a.events = kafka.NewPublisher(kafka.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, a.Logger)
		a.Logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publishing payment events")
	}

	a.Payments = app.NewPaymentService(app.PaymentConfig{
		Invoices: a.Stores.Invoices,
		Profiles: a.Stores.Profiles,
		Flows:    flows,
		Gateway:  a.gateway(),
		Settings: a.Settings,
		Billing:  a.Billing,
		Clock:    clk,
		IDs:      idgen.UUID{Prefix: "flow_"},
		Events:   a.events,
		Metrics:  observer,
		Logger:   a.Logger,
	})

	a.initHTTPServer()
	return nil
}

func (a *App) flowStore(ctx context.Context, clk ports.Clock) (ports.FlowStore, error) {
	cfg := a.Config.Redis
	if cfg.URL == "" {
		return memory.NewFlowStore(cfg.FlowTTL, clk), nil
	}

	client, err := redis.Connect(ctx, cfg.URL)
	if err != nil {
		return nil, err
	}
	a.redis = client
	a.Logger.Info().Dur("ttl", cfg.FlowTTL).Msg("payment flows stored in redis")
	return redis.NewFlowStore(client, cfg.FlowTTL), nil
}

// gateway builds the payment gateway from the current settings. An unusable
// configuration disables payments instead of failing startup.
func (a *App) gateway() ports.PaymentGateway {
	gw, err := payment.NewGateway(a.Settings.Get())
	if err != nil {
		a.Logger.Warn().Err(err).Msg("payment gateway not configured, payments disabled")
		gw = payment.NoopGateway{}
	}
	a.Logger.Info().Str("provider", gw.Name()).Msg("payment gateway ready")

	if a.Metrics != nil {
		return payment.Instrument(gw, a.Metrics)
	}
	return gw
}

func (a *App) initHTTPServer() {
	cfg := a.Config

	checks := map[string]apihttp.HealthChecker{
		"database": apihttp.HealthCheckFunc(a.Stores.Ping),
	}
	if a.redis != nil {
		checks["redis"] = apihttp.HealthCheckFunc(func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}

	routerCfg := apihttp.RouterConfig{
		EnableOpenAPI:  cfg.OpenAPI.Enabled,
		RequestTimeout: cfg.Server.RequestTimeout,
	}
	if a.Metrics != nil {
		routerCfg.Metrics = a.Metrics
		routerCfg.MetricsHandler = promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})
	}

	api := apihttp.NewAPI(a.Billing, a.Payments, a.Logger)
	a.Router = apihttp.NewRouter(api, apihttp.NewHealthHandler(checks), a.Logger, routerCfg)

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// Reload rereads settings from the store and rebuilds the payment gateway.
// The previous gateway stays active if the new settings are unusable.
func (a *App) Reload() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.Settings.Load(ctx); err != nil {
		return fmt.Errorf("reload settings: %w", err)
	}

	gw, err := payment.NewGateway(a.Settings.Get())
	if err != nil {
		return fmt.Errorf("reload gateway: %w", err)
	}
	if a.Metrics != nil {
		gw = payment.Instrument(gw, a.Metrics)
	}
	a.Payments.SetGateway(gw)

	a.Logger.Info().Str("provider", gw.Name()).Msg("settings reloaded")
	return nil
}

// applyConfig runs on every successful config file reload.
func (a *App) applyConfig(cfg *config.Config) {
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := a.Settings.SeedMissing(ctx, cfg.Payment.Seed()); err != nil {
		a.Logger.Error().Err(err).Msg("seed settings on reload")
	}

	if err := a.Reload(); err != nil {
		a.Logger.Error().Err(err).Msg("keeping previous payment gateway")
	}
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM or a server
// error.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.closeResources()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	a.closeResources()
	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func (a *App) closeResources() {
	if a.holder != nil {
		a.holder.Stop()
	}
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("event publisher close error")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("redis close error")
		}
	}
	if a.Stores != nil {
		if err := a.Stores.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}
}

// NewLogger builds the process logger and sets the global level.
func NewLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}
