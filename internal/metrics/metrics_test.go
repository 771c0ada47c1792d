package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestCountersAccumulate(t *testing.T) {
	m := New()

	m.QuoteComputed(true)
	m.QuoteComputed(true)
	m.QuoteComputed(false)
	m.SaleRecorded(decimal.RequireFromString("1270.50"))
	m.PaymentConfigLookup(false)
	m.PaymentConfigLookup(true)
	m.PaymentConfigLookup(true)

	body := scrape(t, m)
	for _, want := range []string{
		`celustock_payment_quotes_total{surcharge="true"} 2`,
		`celustock_payment_quotes_total{surcharge="false"} 1`,
		`celustock_sales_total 1`,
		`celustock_sales_amount_ars_total 1270.5`,
		`celustock_payment_config_cache_total{result="hit"} 2`,
		`celustock_payment_config_cache_total{result="miss"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in exposition, got:\n%s", want, body)
		}
	}
}

func TestHandlerExposesRequestMetrics(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodPost, "/api/v1/payments/quote", http.StatusOK, 12*time.Millisecond)

	body := scrape(t, m)
	if !strings.Contains(body, `celustock_http_requests_total{method="POST",route="/api/v1/payments/quote",status="200"} 1`) {
		t.Fatalf("expected request counter in exposition, got:\n%s", body)
	}
	if !strings.Contains(body, `celustock_http_request_duration_seconds_count{method="POST",route="/api/v1/payments/quote"} 1`) {
		t.Fatalf("expected latency histogram in exposition, got:\n%s", body)
	}
}

func TestNilMetricsIsInert(t *testing.T) {
	var m *Metrics
	m.QuoteComputed(true)
	m.SaleRecorded(decimal.NewFromInt(10))
	m.PaymentConfigLookup(true)
	m.ObserveRequest(http.MethodGet, "/healthz", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from nil metrics handler, got %d", rec.Code)
	}
}
