package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"celustock/backend/internal/domain"
)

func (a *API) handlePaymentMethods(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		methods, err := a.service.ListPaymentMethods(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"payment_methods": methods})
	case http.MethodPost:
		var req domain.PaymentMethodCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		method, err := a.service.CreatePaymentMethod(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"payment_method": method})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handlePaymentMethodActions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r.URL.Path, "/api/v1/payment-methods/")
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("invalid payment method id"))
		return
	}
	if r.Method != http.MethodPatch {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.PaymentMethodUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	method, err := a.service.UpdatePaymentMethod(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payment_method": method})
}

func (a *API) handleInstallmentPlans(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var methodID int64
		if raw := strings.TrimSpace(r.URL.Query().Get("payment_method_id")); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || parsed < 1 {
				writeError(w, http.StatusBadRequest, errors.New("invalid payment_method_id"))
				return
			}
			methodID = parsed
		}
		plans, err := a.service.ListInstallmentPlans(r.Context(), methodID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"installment_plans": plans})
	case http.MethodPost:
		var req domain.InstallmentPlanCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		plan, err := a.service.CreateInstallmentPlan(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"installment_plan": plan})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleInstallmentPlanActions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r.URL.Path, "/api/v1/installment-plans/")
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("invalid installment plan id"))
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req domain.InstallmentPlanUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		plan, err := a.service.UpdateInstallmentPlan(r.Context(), id, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"installment_plan": plan})
	case http.MethodDelete:
		if err := a.service.DeleteInstallmentPlan(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handlePaymentConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	cfg, err := a.service.PaymentConfig(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (a *API) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.QuoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	quote, err := a.service.Quote(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}
