package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"celustock/backend/internal/domain"
	"celustock/backend/internal/report"
)

func (a *API) handleAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		accounts, err := a.service.ListAccounts(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
	case http.MethodPost:
		var req domain.AccountCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		account, err := a.service.CreateAccount(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"account": account})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleAccountBalances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	balances, err := a.service.AccountBalances(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balances": balances})
}

func (a *API) handleMovements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		limit := parsePositiveLimit(q.Get("limit"), 200, 1000)
		movements, err := a.service.ListMovements(r.Context(), q.Get("account_id"), q.Get("from"), q.Get("to"), limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"movements": movements})
	case http.MethodPost:
		var req domain.MovementCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		movement, err := a.service.CreateMovement(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"movement": movement})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	q := r.URL.Query()
	sales, err := a.service.SalesReport(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	switch format := reportFormat(r); format {
	case "csv":
		writeRendered(w, report.ContentTypeCSV, report.SalesFilename(sales, format), func(buf *bytes.Buffer) error {
			return report.WriteSalesCSV(buf, sales)
		})
	case "html":
		writeRendered(w, report.ContentTypeHTML, "", func(buf *bytes.Buffer) error {
			out, err := report.SalesHTML(sales)
			buf.Write(out)
			return err
		})
	case "xlsx":
		writeRendered(w, report.ContentTypeXLSX, report.SalesFilename(sales, format), func(buf *bytes.Buffer) error {
			return report.WriteSalesXLSX(buf, sales)
		})
	default:
		writeJSON(w, http.StatusOK, sales)
	}
}

func (a *API) handleMovementsReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	q := r.URL.Query()
	movements, err := a.service.MovementReport(r.Context(), q.Get("account_id"), q.Get("from"), q.Get("to"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	switch format := reportFormat(r); format {
	case "csv":
		writeRendered(w, report.ContentTypeCSV, report.MovementsFilename(movements, format), func(buf *bytes.Buffer) error {
			return report.WriteMovementsCSV(buf, movements)
		})
	case "html":
		writeRendered(w, report.ContentTypeHTML, "", func(buf *bytes.Buffer) error {
			out, err := report.MovementsHTML(movements)
			buf.Write(out)
			return err
		})
	case "xlsx":
		writeRendered(w, report.ContentTypeXLSX, report.MovementsFilename(movements, format), func(buf *bytes.Buffer) error {
			return report.WriteMovementsXLSX(buf, movements)
		})
	default:
		writeJSON(w, http.StatusOK, movements)
	}
}

func reportFormat(r *http.Request) string {
	return strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
}

// writeRendered buffers the document so a rendering failure can still be
// reported as a JSON error instead of a truncated download.
func writeRendered(w http.ResponseWriter, contentType string, filename string, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
