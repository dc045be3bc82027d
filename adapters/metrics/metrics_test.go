package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/artpar/installpay/adapters/metrics"
	"github.com/artpar/installpay/domain/payflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWithRegistry(t *testing.T) {
	// Use a new registry to avoid conflicts with other tests
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	if m.RequestsTotal == nil || m.RequestDuration == nil || m.RequestsInFlight == nil {
		t.Error("request metrics not initialized")
	}
	if m.LoadsTotal == nil || m.QuotesTotal == nil || m.PaymentsTotal == nil || m.PartialSettlements == nil {
		t.Error("billing metrics not initialized")
	}
	if m.GatewayDuration == nil || m.ConfigReloads == nil {
		t.Error("gateway or config metrics not initialized")
	}
}

func TestNewWithRegistry_Twice(t *testing.T) {
	metrics.NewWithRegistry(prometheus.NewRegistry())
	metrics.NewWithRegistry(prometheus.NewRegistry())
}

func TestObserveLoad(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.ObserveLoad(nil, 20*time.Millisecond)
	m.ObserveLoad(nil, 30*time.Millisecond)
	m.ObserveLoad(errors.New("db down"), time.Second)

	if got := testutil.ToFloat64(m.LoadsTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("loads ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.LoadsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("loads error = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.LoadDuration); n != 1 {
		t.Errorf("LoadDuration series = %d", n)
	}
}

func TestObserveQuoteAndPayment(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	m.ObserveQuote(payflow.KindRenegotiation)
	m.ObserveQuote(payflow.KindRenegotiation)
	m.ObserveQuote(payflow.KindAnticipation)
	m.ObservePayment(payflow.MethodPix, "succeeded")
	m.ObservePayment(payflow.MethodCard, "declined")

	if got := testutil.ToFloat64(m.QuotesTotal.WithLabelValues("renegotiation")); got != 2 {
		t.Errorf("renegotiation quotes = %v", got)
	}
	if got := testutil.ToFloat64(m.PaymentsTotal.WithLabelValues("card", "declined")); got != 1 {
		t.Errorf("declined card payments = %v", got)
	}
}

func TestObservePartialSettlement(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	m.ObservePartialSettlement(1)
	m.ObservePartialSettlement(3)

	if got := testutil.ToFloat64(m.PartialSettlements); got != 2 {
		t.Errorf("PartialSettlements = %v", got)
	}
	if got := testutil.ToFloat64(m.UnsettledInvoices); got != 4 {
		t.Errorf("UnsettledInvoices = %v", got)
	}
}

func TestObserveGatewayAndConfig(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	m.ObserveGateway("stripe", "pix", nil, 100*time.Millisecond)
	m.ObserveGateway("stripe", "pix", errors.New("timeout"), time.Second)
	m.ObserveConfigReload(nil)
	m.ObserveConfigReload(errors.New("bad yaml"))

	if got := testutil.ToFloat64(m.GatewayErrors.WithLabelValues("stripe", "pix")); got != 1 {
		t.Errorf("GatewayErrors = %v", got)
	}
	if got := testutil.ToFloat64(m.ConfigReloads); got != 1 {
		t.Errorf("ConfigReloads = %v", got)
	}
	if got := testutil.ToFloat64(m.ConfigReloadErrors); got != 1 {
		t.Errorf("ConfigReloadErrors = %v", got)
	}
	if testutil.ToFloat64(m.ConfigLastReload) == 0 {
		t.Error("ConfigLastReload not set")
	}
}

func TestNoop(t *testing.T) {
	var n metrics.Noop
	n.ObserveLoad(nil, time.Second)
	n.ObserveQuote(payflow.KindInvoice)
	n.ObservePayment(payflow.MethodBoleto, "issued")
	n.ObservePartialSettlement(2)
}
