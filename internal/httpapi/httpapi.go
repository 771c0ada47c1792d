package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"celustock/backend/internal/metrics"
	"celustock/backend/internal/service"
	"celustock/backend/internal/store"
)

type API struct {
	service       *service.Service
	metrics       *metrics.Metrics
	logger        *slog.Logger
	allowedOrigin string
}

func New(svc *service.Service, m *metrics.Metrics, logger *slog.Logger, allowedOrigin string) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		service:       svc,
		metrics:       m,
		logger:        logger,
		allowedOrigin: allowedOrigin,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.Handle("/metrics", a.metrics.Handler())

	mux.HandleFunc("/api/v1/payment-methods", a.handlePaymentMethods)
	mux.HandleFunc("/api/v1/payment-methods/", a.handlePaymentMethodActions)
	mux.HandleFunc("/api/v1/installment-plans", a.handleInstallmentPlans)
	mux.HandleFunc("/api/v1/installment-plans/", a.handleInstallmentPlanActions)
	mux.HandleFunc("/api/v1/payment-config", a.handlePaymentConfig)
	mux.HandleFunc("/api/v1/payments/quote", a.handleQuote)

	mux.HandleFunc("/api/v1/products", a.handleProducts)
	mux.HandleFunc("/api/v1/products/", a.handleProductActions)
	mux.HandleFunc("/api/v1/customers", a.handleCustomers)
	mux.HandleFunc("/api/v1/customers/", a.handleCustomerActions)
	mux.HandleFunc("/api/v1/providers", a.handleProviders)
	mux.HandleFunc("/api/v1/purchases", a.handlePurchases)

	mux.HandleFunc("/api/v1/sales", a.handleSales)
	mux.HandleFunc("/api/v1/sales/", a.handleSaleActions)

	mux.HandleFunc("/api/v1/accounts", a.handleAccounts)
	mux.HandleFunc("/api/v1/accounts/balances", a.handleAccountBalances)
	mux.HandleFunc("/api/v1/movements", a.handleMovements)
	mux.HandleFunc("/api/v1/reports/sales", a.handleSalesReport)
	mux.HandleFunc("/api/v1/reports/movements", a.handleMovementsReport)

	return a.withMiddleware(mux)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (a *API) withMiddleware(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Idempotency-Key")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		_, route := mux.Handler(r)
		if route == "" {
			route = "unmatched"
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		startedAt := time.Now()
		mux.ServeHTTP(rec, r)
		elapsed := time.Since(startedAt)

		a.metrics.ObserveRequest(r.Method, route, rec.status, elapsed)
		a.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", elapsed,
		)
	})
}

// pathID returns the single path segment after prefix, or "" when the path
// has none or more than one.
func pathID(path string, prefix string) string {
	tail := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if tail == "" || strings.Contains(tail, "/") {
		return ""
	}
	return tail
}

func pathInt64(path string, prefix string) (int64, bool) {
	id, err := strconv.ParseInt(pathID(path, prefix), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// statusFor maps store sentinels onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrInsufficientStock):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies stay generic; the cause only goes to the log.
	msg := err.Error()
	if status >= 500 {
		slog.Error("internal error", "status", status, "error", err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
