package bootstrap_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/artpar/installpay/bootstrap"
	"github.com/artpar/installpay/config"
	"github.com/artpar/installpay/domain/settings"
)

func newApp(t *testing.T, yaml string) *bootstrap.App {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	a, err := bootstrap.New(cfg)
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	t.Cleanup(func() { a.Shutdown() })
	return a
}

func serve(a *bootstrap.App, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return rec
}

func TestBootstrap_MemoryDriver(t *testing.T) {
	a := newApp(t, `
database:
  driver: memory
payment:
  provider: dummy
metrics:
  enabled: true
logging:
  level: warn
`)

	if a.HTTPServer == nil || a.HTTPServer.Addr != "0.0.0.0:8080" {
		t.Fatalf("HTTPServer = %+v", a.HTTPServer)
	}
	if a.Settings == nil || a.Billing == nil || a.Payments == nil {
		t.Fatal("services should be initialized")
	}
	if got := a.Payments.Gateway().Name(); got != "dummy" {
		t.Errorf("gateway = %s, want dummy", got)
	}

	if rec := serve(a, http.MethodGet, "/health/ready"); rec.Code != http.StatusOK {
		t.Errorf("ready status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec := serve(a, http.MethodGet, "/api/users/u1/billing"); rec.Code != http.StatusOK {
		t.Errorf("billing status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec := serve(a, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"installpay_requests_total", "installpay_loads_total", "go_goroutines"} {
		if !bytes.Contains(body, []byte(want)) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestBootstrap_MetricsDisabled(t *testing.T) {
	a := newApp(t, "database:\n  driver: memory\n")

	if a.Metrics != nil {
		t.Error("Metrics should be nil when disabled")
	}
	if rec := serve(a, http.MethodGet, "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("metrics status = %d, want 404", rec.Code)
	}
}

func TestBootstrap_SQLiteMigrates(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "installpay.db")
	a := newApp(t, "database:\n  driver: sqlite\n  dsn: "+dsn+"\n")

	if len(a.Stores.Migrations) == 0 {
		t.Error("expected migrations to be applied")
	}
	if err := a.Stores.Ping(t.Context()); err != nil {
		t.Errorf("Ping: %v", err)
	}

	// Reopening applies nothing new.
	cfg, _ := config.Parse([]byte("database:\n  driver: sqlite\n  dsn: " + dsn + "\n"))
	stores, err := bootstrap.OpenStores(t.Context(), cfg.Database, a.Logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer stores.Close()
	if len(stores.Migrations) != 0 {
		t.Errorf("reopen applied %v", stores.Migrations)
	}
}

func TestBootstrap_SeedsPaymentSettingsOnce(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "installpay.db")
	a := newApp(t, "database:\n  driver: sqlite\n  dsn: "+dsn+"\npayment:\n  provider: dummy\n")

	if err := a.Settings.Set(t.Context(), settings.KeyPaymentProvider, "none"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	a.Shutdown()

	// The stored value wins over the config file on the next start.
	b := newApp(t, "database:\n  driver: sqlite\n  dsn: "+dsn+"\npayment:\n  provider: dummy\n")
	if got := b.Payments.Gateway().Name(); got != "none" {
		t.Errorf("gateway = %s, want none", got)
	}
}

func TestBootstrap_RedisFlows(t *testing.T) {
	mr := miniredis.RunT(t)
	a := newApp(t, `
database:
  driver: memory
redis:
  url: redis://`+mr.Addr()+`
payment:
  provider: dummy
`)

	rec := serve(a, http.MethodPost, "/api/users/u1/flows")
	if rec.Code != http.StatusCreated {
		t.Fatalf("start flow status = %d, body %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/api/flows/flow_") {
		t.Errorf("Location = %q", loc)
	}
	if len(mr.Keys()) != 1 {
		t.Errorf("redis keys = %v, want one flow", mr.Keys())
	}

	if rec := serve(a, http.MethodGet, "/health/ready"); rec.Code != http.StatusOK {
		t.Errorf("ready status = %d", rec.Code)
	}
	mr.Close()
	if rec := serve(a, http.MethodGet, "/health/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready status with redis down = %d, want 503", rec.Code)
	}
}

func TestBootstrap_RemoteStores(t *testing.T) {
	var calls atomic.Int32
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/users/u1/invoices":
			w.Write([]byte(`[{"id": "r1", "user_id": "u1", "month": "TV (1/1)", "due_date": "2099-01-10", "amount": "80.00", "status": "Em aberto"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer remote.Close()

	a := newApp(t, "database:\n  driver: remote\n  remote:\n    url: "+remote.URL+"\n    retries: 1\n")

	rec := serve(a, http.MethodGet, "/api/users/u1/billing")
	if rec.Code != http.StatusOK {
		t.Fatalf("billing status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"r1"`) {
		t.Errorf("billing body missing remote invoice: %s", rec.Body.String())
	}
	if calls.Load() < 2 {
		t.Errorf("remote calls = %d, want invoices and profile", calls.Load())
	}
}

func TestBootstrap_RedisUnreachable(t *testing.T) {
	cfg, err := config.Parse([]byte("database:\n  driver: memory\nredis:\n  url: 127.0.0.1:1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := bootstrap.New(cfg); err == nil {
		t.Error("expected error when redis is unreachable")
	}
}

func TestBootstrap_MisconfiguredGatewayDisablesPayments(t *testing.T) {
	a := newApp(t, "database:\n  driver: memory\npayment:\n  provider: stripe\n")

	if got := a.Payments.Gateway().Name(); got != "none" {
		t.Errorf("gateway = %s, want none", got)
	}
}

func TestApp_Reload(t *testing.T) {
	a := newApp(t, "database:\n  driver: memory\npayment:\n  provider: dummy\n")

	if err := a.Settings.Set(t.Context(), settings.KeyPaymentProvider, "none"); err != nil {
		t.Fatal(err)
	}
	if err := a.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := a.Payments.Gateway().Name(); got != "none" {
		t.Errorf("gateway = %s, want none", got)
	}

	if err := a.Settings.Set(t.Context(), settings.KeyPaymentProvider, "paypal"); err != nil {
		t.Fatal(err)
	}
	if err := a.Reload(); err == nil {
		t.Error("Reload should fail for unknown provider")
	}
	if got := a.Payments.Gateway().Name(); got != "none" {
		t.Errorf("gateway after failed reload = %s, want none", got)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := bootstrap.NewLogger(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	logger.Info().Str("flow_id", "f1").Msg("hello")

	if !strings.Contains(buf.String(), `"flow_id":"f1"`) {
		t.Errorf("json output = %s", buf.String())
	}

	buf.Reset()
	logger = bootstrap.NewLogger(config.LoggingConfig{Level: "info", Format: "console"}, &buf)
	logger.Info().Msg("console")
	if strings.HasPrefix(buf.String(), "{") {
		t.Errorf("console output looks like json: %s", buf.String())
	}
}
