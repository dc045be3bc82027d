// Package metrics provides Prometheus metrics collection for the billing service.
package metrics

import (
	"time"

	"github.com/artpar/installpay/domain/payflow"
	"github.com/artpar/installpay/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "installpay"

// Collector holds all Prometheus metrics for the service.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Billing metrics
	LoadsTotal         *prometheus.CounterVec
	LoadDuration       prometheus.Histogram
	QuotesTotal        *prometheus.CounterVec
	PaymentsTotal      *prometheus.CounterVec
	PartialSettlements prometheus.Counter
	UnsettledInvoices  prometheus.Counter

	// Gateway metrics
	GatewayDuration *prometheus.HistogramVec
	GatewayErrors   *prometheus.CounterVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),

		LoadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "loads_total",
				Help:      "Total number of invoice loads by result",
			},
			[]string{"result"},
		),
		LoadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "load_duration_seconds",
				Help:      "Invoice load duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		QuotesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quotes_total",
				Help:      "Total number of renegotiation and anticipation quotes",
			},
			[]string{"kind"},
		),
		PaymentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_total",
				Help:      "Total number of payment attempts by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		PartialSettlements: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "partial_settlements_total",
				Help:      "Payments whose invoices were not all marked paid",
			},
		),
		UnsettledInvoices: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unsettled_invoices_total",
				Help:      "Invoices left unpaid by partial settlements",
			},
		),

		GatewayDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "gateway_duration_seconds",
				Help:      "Payment gateway call duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider", "operation"},
		),
		GatewayErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gateway_errors_total",
				Help:      "Total number of payment gateway errors",
			},
			[]string{"provider", "operation"},
		),

		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

// ObserveLoad records one invoice load.
func (c *Collector) ObserveLoad(err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.LoadsTotal.WithLabelValues(result).Inc()
	c.LoadDuration.Observe(d.Seconds())
}

// ObserveQuote records a computed quote.
func (c *Collector) ObserveQuote(kind payflow.Kind) {
	c.QuotesTotal.WithLabelValues(string(kind)).Inc()
}

// ObservePayment records a payment attempt outcome.
func (c *Collector) ObservePayment(method payflow.Method, outcome string) {
	c.PaymentsTotal.WithLabelValues(string(method), outcome).Inc()
}

// ObservePartialSettlement records a payment that left invoices unpaid.
func (c *Collector) ObservePartialSettlement(missing int) {
	c.PartialSettlements.Inc()
	c.UnsettledInvoices.Add(float64(missing))
}

// ObserveGateway records a gateway call.
func (c *Collector) ObserveGateway(provider, operation string, err error, d time.Duration) {
	c.GatewayDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
	if err != nil {
		c.GatewayErrors.WithLabelValues(provider, operation).Inc()
	}
}

// ObserveConfigReload records a config reload attempt.
func (c *Collector) ObserveConfigReload(err error) {
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.SetToCurrentTime()
}

// Noop discards all measurements.
type Noop struct{}

func (Noop) ObserveLoad(error, time.Duration)      {}
func (Noop) ObserveQuote(payflow.Kind)             {}
func (Noop) ObservePayment(payflow.Method, string) {}
func (Noop) ObservePartialSettlement(int)          {}

// Ensure interface compliance.
var (
	_ ports.BillingMetrics = (*Collector)(nil)
	_ ports.BillingMetrics = Noop{}
)
