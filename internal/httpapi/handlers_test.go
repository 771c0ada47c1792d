package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"celustock/backend/internal/cache"
	"celustock/backend/internal/domain"
	"celustock/backend/internal/metrics"
	"celustock/backend/internal/service"
	"celustock/backend/internal/store/memory"
)

// newTestAPI builds a full API with a seeded in-memory store and a real
// Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	svc := service.New(memory.NewSeeded(), cache.NewMemoryPaymentConfigCache(), service.Options{
		PaymentConfigTTL: time.Minute,
		Metrics:          m,
		Logger:           logger,
	})
	return New(svc, m, logger, "*")
}

func do(t *testing.T, api *API, method string, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			payload, err := json.Marshal(body)
			if err != nil {
				t.Fatalf("marshal body: %v", err)
			}
			reader = bytes.NewReader(payload)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dest); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	rec := do(t, api, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	decodeBody(t, rec, &body)
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestQuoteAcceptsStringAndNumberFields(t *testing.T) {
	api := newTestAPI(t)

	rec := do(t, api, http.MethodPost, "/api/v1/payments/quote", `{
		"base_amount_ars": "1000",
		"payments": [
			{"payment_method_id": 1, "installments": "", "amount": "400"},
			{"payment_method_id": "3", "installments": 3, "amount": ""}
		]
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var quote struct {
		Totals struct {
			Saldo              string          `json:"saldo"`
			TotalWithSurcharge string          `json:"total_with_surcharge"`
			RemainingARS       string          `json:"remaining_ars"`
			InterestMethod     json.RawMessage `json:"interest_method"`
		} `json:"totals"`
		SuggestedAmount string `json:"suggested_amount"`
	}
	decodeBody(t, rec, &quote)
	if quote.Totals.Saldo != "600" || quote.Totals.TotalWithSurcharge != "1150" {
		t.Fatalf("unexpected totals %+v", quote.Totals)
	}
	if quote.SuggestedAmount != "750" || quote.Totals.RemainingARS != "750" {
		t.Fatalf("expected 750 remaining, got %+v", quote)
	}
	if len(quote.Totals.InterestMethod) == 0 {
		t.Fatalf("expected interest method in response")
	}
}

func TestQuoteRejectsUnknownFields(t *testing.T) {
	api := newTestAPI(t)

	rec := do(t, api, http.MethodPost, "/api/v1/payments/quote", `{"base_amount_ars": 10, "discount": 5}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCheckoutFlow(t *testing.T) {
	api := newTestAPI(t)

	checkout := map[string]any{
		"idempotency_key": "idem-http-1",
		"customer_id":     "cust-demo",
		"exchange_rate":   "1000",
		"items":           []map[string]any{{"product_id": "prod-g84-256", "qty": 1}},
		"payments": []map[string]any{
			{"payment_method_id": "1", "amount": "10000"},
			{"payment_method_id": "3", "installments": "6", "amount": "290000"},
		},
	}

	rec := do(t, api, http.MethodPost, "/api/v1/sales", checkout)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.CheckoutResponse
	decodeBody(t, rec, &created)
	if created.Duplicate || created.Sale.ID == "" {
		t.Fatalf("expected new sale, got %+v", created)
	}
	// 210000 base, 200000 on card at 1.45 adds 90000.
	if created.Sale.TotalARS.String() != "300000" {
		t.Fatalf("expected total 300000, got %s", created.Sale.TotalARS)
	}

	replay := do(t, api, http.MethodPost, "/api/v1/sales", checkout)
	if replay.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d", replay.Code)
	}
	var duplicate domain.CheckoutResponse
	decodeBody(t, replay, &duplicate)
	if !duplicate.Duplicate || duplicate.Sale.ID != created.Sale.ID {
		t.Fatalf("expected duplicate of %s, got %+v", created.Sale.ID, duplicate)
	}

	get := do(t, api, http.MethodGet, "/api/v1/sales/"+created.Sale.ID, nil)
	if get.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching sale, got %d", get.Code)
	}
	missing := do(t, api, http.MethodGet, "/api/v1/sales/sale-ghost", nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown sale, got %d", missing.Code)
	}
}

func TestCheckoutErrorStatuses(t *testing.T) {
	api := newTestAPI(t)

	base := func() map[string]any {
		return map[string]any{
			"customer_id":   "cust-demo",
			"exchange_rate": "1000",
			"items":         []map[string]any{{"product_id": "prod-iphone15-256", "qty": 1}},
			"payments":      []map[string]any{{"payment_method_id": "2", "amount": "980000"}},
		}
	}

	incomplete := base()
	incomplete["payments"] = []map[string]any{{"payment_method_id": "2", "amount": "900000"}}
	if rec := do(t, api, http.MethodPost, "/api/v1/sales", incomplete); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete payment, got %d", rec.Code)
	}

	tooMany := base()
	tooMany["items"] = []map[string]any{{"product_id": "prod-iphone15-256", "qty": 3}}
	tooMany["payments"] = []map[string]any{{"payment_method_id": "2", "amount": "2940000"}}
	if rec := do(t, api, http.MethodPost, "/api/v1/sales", tooMany); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for insufficient stock, got %d", rec.Code)
	}

	ghost := base()
	ghost["customer_id"] = "cust-ghost"
	if rec := do(t, api, http.MethodPost, "/api/v1/sales", ghost); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown customer, got %d", rec.Code)
	}
}

func TestInstallmentPlanLifecycle(t *testing.T) {
	api := newTestAPI(t)

	rec := do(t, api, http.MethodPost, "/api/v1/installment-plans", map[string]any{
		"payment_method_id": 3,
		"installments":      18,
		"multiplier":        "2.1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Plan domain.InstallmentPlan `json:"installment_plan"`
	}
	decodeBody(t, rec, &created)

	dup := do(t, api, http.MethodPost, "/api/v1/installment-plans", map[string]any{
		"payment_method_id": 3,
		"installments":      18,
		"multiplier":        "2.3",
	})
	if dup.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate plan, got %d", dup.Code)
	}

	list := do(t, api, http.MethodGet, "/api/v1/installment-plans?payment_method_id=3", nil)
	var plans struct {
		Plans []domain.InstallmentPlan `json:"installment_plans"`
	}
	decodeBody(t, list, &plans)
	if len(plans.Plans) != 5 {
		t.Fatalf("expected 5 card plans, got %d", len(plans.Plans))
	}

	path := "/api/v1/installment-plans/" + strconv.FormatInt(created.Plan.ID, 10)
	if rec := do(t, api, http.MethodPatch, path, map[string]any{"multiplier": "0.5"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for multiplier below 1, got %d", rec.Code)
	}
	if rec := do(t, api, http.MethodDelete, path, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := do(t, api, http.MethodDelete, path, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
	if rec := do(t, api, http.MethodDelete, "/api/v1/installment-plans/abc", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", rec.Code)
	}
}

func TestMovementsReportFormats(t *testing.T) {
	api := newTestAPI(t)

	rec := do(t, api, http.MethodPost, "/api/v1/movements", map[string]any{
		"account_id":  "acc-caja",
		"kind":        "income",
		"amount_ars":  "1500.50",
		"description": "Aporte inicial",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	jsonRec := do(t, api, http.MethodGet, "/api/v1/reports/movements?account_id=acc-caja", nil)
	if jsonRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", jsonRec.Code)
	}
	var report domain.MovementReport
	decodeBody(t, jsonRec, &report)
	if report.IncomeARS.String() != "1500.5" || len(report.Movements) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	csvRec := do(t, api, http.MethodGet, "/api/v1/reports/movements?account_id=acc-caja&format=csv", nil)
	if ct := csvRec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected csv content type, got %q", ct)
	}
	if !strings.Contains(csvRec.Body.String(), "Aporte inicial") {
		t.Fatalf("expected movement in csv body")
	}
	if cd := csvRec.Header().Get("Content-Disposition"); !strings.Contains(cd, "movements-acc-caja-") {
		t.Fatalf("expected attachment filename, got %q", cd)
	}

	htmlRec := do(t, api, http.MethodGet, "/api/v1/reports/movements?account_id=acc-caja&format=html", nil)
	if !strings.Contains(htmlRec.Body.String(), "<table>") {
		t.Fatalf("expected printable html")
	}

	xlsxRec := do(t, api, http.MethodGet, "/api/v1/reports/movements?account_id=acc-caja&format=xlsx", nil)
	f, err := excelize.OpenReader(xlsxRec.Body)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer func() { _ = f.Close() }()
	desc, err := f.GetCellValue("Movimientos", "E2")
	if err != nil || desc != "Aporte inicial" {
		t.Fatalf("expected movement description in workbook, got %q (%v)", desc, err)
	}

	if rec := do(t, api, http.MethodGet, "/api/v1/reports/movements?account_id=acc-ghost", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown account, got %d", rec.Code)
	}
	if rec := do(t, api, http.MethodGet, "/api/v1/reports/movements?from=ayer", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", rec.Code)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	api := newTestAPI(t)

	rec := do(t, api, http.MethodPost, "/api/v1/products", map[string]any{
		"brand":         "Xiaomi",
		"model":         "Redmi 13C",
		"storage_gb":    128,
		"condition":     "new",
		"price_usd":     "160",
		"cost_usd":      "120",
		"initial_stock": 2,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Product domain.Product `json:"product"`
	}
	decodeBody(t, rec, &created)

	patch := do(t, api, http.MethodPatch, "/api/v1/products/"+created.Product.ID, map[string]any{"active": false})
	if patch.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", patch.Code)
	}

	list := do(t, api, http.MethodGet, "/api/v1/products", nil)
	var active struct {
		Products []domain.Product `json:"products"`
	}
	decodeBody(t, list, &active)
	for _, p := range active.Products {
		if p.ID == created.Product.ID {
			t.Fatalf("inactive product must be hidden by default")
		}
	}

	if rec := do(t, api, http.MethodPost, "/api/v1/customers", map[string]any{"name": "Marta", "status": "lead"}); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating customer, got %d", rec.Code)
	}
	if rec := do(t, api, http.MethodGet, "/api/v1/customers/cust-demo", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching customer, got %d", rec.Code)
	}
	if rec := do(t, api, http.MethodPost, "/api/v1/providers", map[string]any{"name": "Mayorista Centro"}); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate provider, got %d", rec.Code)
	}
}

func TestMetricsEndpointCountsRoutes(t *testing.T) {
	api := newTestAPI(t)

	do(t, api, http.MethodGet, "/api/v1/products/prod-a54-256", nil)
	rec := do(t, api, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `route="/api/v1/products/"`) {
		t.Fatalf("expected product route label in metrics")
	}
}
