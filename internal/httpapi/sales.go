package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"celustock/backend/internal/domain"
)

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		limit := parsePositiveLimit(q.Get("limit"), 100, 500)
		sales, err := a.service.ListSales(r.Context(), q.Get("from"), q.Get("to"), limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sales": sales})
	case http.MethodPost:
		a.handleCheckout(w, r)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}

	resp, err := a.service.Checkout(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if resp.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (a *API) handleSaleActions(w http.ResponseWriter, r *http.Request) {
	id := pathID(r.URL.Path, "/api/v1/sales/")
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("sale id required"))
		return
	}
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	sale, err := a.service.GetSale(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
}
