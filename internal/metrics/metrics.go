// Package metrics exposes Prometheus collectors for the HTTP API and the
// checkout flow. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	quotes          *prometheus.CounterVec
	sales           prometheus.Counter
	salesAmount     prometheus.Counter
	configCache     *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "celustock",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "celustock",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "celustock",
			Name:      "payment_quotes_total",
			Help:      "Payment quotes computed, split by whether an installment surcharge applied.",
		}, []string{"surcharge"}),
		sales: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "celustock",
			Name:      "sales_total",
			Help:      "Completed sales.",
		}),
		salesAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "celustock",
			Name:      "sales_amount_ars_total",
			Help:      "Sum of completed sale totals in ARS, surcharge included.",
		}),
		configCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "celustock",
			Name:      "payment_config_cache_total",
			Help:      "Payment configuration cache lookups by result.",
		}, []string{"result"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.quotes,
		m.sales,
		m.salesAmount,
		m.configCache,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRequest(method string, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) QuoteComputed(surcharged bool) {
	if m == nil {
		return
	}
	m.quotes.WithLabelValues(strconv.FormatBool(surcharged)).Inc()
}

func (m *Metrics) SaleRecorded(totalARS decimal.Decimal) {
	if m == nil {
		return
	}
	m.sales.Inc()
	m.salesAmount.Add(totalARS.InexactFloat64())
}

func (m *Metrics) PaymentConfigLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.configCache.WithLabelValues(result).Inc()
}
