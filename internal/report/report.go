// Package report renders account movement and sales summaries as CSV,
// printable HTML and XLSX workbooks.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"time"

	"celustock/backend/internal/domain"
)

const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func MovementsFilename(r domain.MovementReport, ext string) string {
	scope := r.AccountID
	if scope == "" {
		scope = "all"
	}
	return fmt.Sprintf("movements-%s-%s-%s.%s", scope, r.From, r.To, ext)
}

func SalesFilename(r domain.SalesReport, ext string) string {
	return fmt.Sprintf("sales-%s-%s.%s", r.From, r.To, ext)
}

func WriteMovementsCSV(w io.Writer, r domain.MovementReport) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"date", "account_id", "kind", "amount_ars", "signed_ars", "description", "reference_type", "reference_id"},
	}
	for _, mv := range r.Movements {
		rows = append(rows, []string{
			mv.CreatedAt.Format(time.RFC3339),
			mv.AccountID,
			mv.Kind,
			mv.AmountARS.StringFixed(2),
			mv.SignedAmount().StringFixed(2),
			mv.Description,
			mv.ReferenceType,
			mv.ReferenceID,
		})
	}
	rows = append(rows,
		[]string{"summary", r.AccountID, "income", r.IncomeARS.StringFixed(2)},
		[]string{"summary", r.AccountID, "expense", r.ExpenseARS.StringFixed(2)},
		[]string{"summary", r.AccountID, "net", r.NetARS.StringFixed(2)},
	)
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func WriteSalesCSV(w io.Writer, r domain.SalesReport) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"section", "key", "value"},
		{"summary", "from", r.From},
		{"summary", "to", r.To},
		{"summary", "sales", fmt.Sprintf("%d", r.Sales)},
		{"summary", "base_amount_ars", r.BaseAmountARS.StringFixed(2)},
		{"summary", "surcharge_ars", r.SurchargeARS.StringFixed(2)},
		{"summary", "total_ars", r.TotalARS.StringFixed(2)},
	}
	for _, p := range r.ByPaymentMethod {
		rows = append(rows,
			[]string{"payment", p.PaymentMethodName + "_payments", fmt.Sprintf("%d", p.Payments)},
			[]string{"payment", p.PaymentMethodName + "_amount_ars", p.AmountARS.StringFixed(2)},
		)
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

var printableFuncs = template.FuncMap{
	"money": func(v interface{ StringFixed(int32) string }) string { return v.StringFixed(2) },
	"when":  func(t time.Time) string { return t.Format("2006-01-02 15:04") },
}

var movementsHTMLTmpl = template.Must(template.New("movements-report").Funcs(printableFuncs).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Movimientos {{.AccountName}} {{.From}} / {{.To}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    td.num { text-align: right; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>Movimientos: {{.AccountName}}</h2>
  <p>Periodo: {{.From}} a {{.To}}</p>
  <p>Ingresos: {{money .IncomeARS}} | Egresos: {{money .ExpenseARS}} | Neto: {{money .NetARS}}</p>

  <table>
    <thead><tr><th>Fecha</th><th>Cuenta</th><th>Tipo</th><th>Importe ARS</th><th>Detalle</th></tr></thead>
    <tbody>{{range .Movements}}<tr><td>{{when .CreatedAt}}</td><td>{{.AccountID}}</td><td>{{.Kind}}</td><td class="num">{{money .SignedAmount}}</td><td>{{.Description}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

var salesHTMLTmpl = template.Must(template.New("sales-report").Funcs(printableFuncs).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Ventas {{.From}} / {{.To}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    td.num { text-align: right; }
  </style>
</head>
<body>
  <h2>Ventas {{.From}} a {{.To}}</h2>
  <p>Ventas: {{.Sales}}</p>
  <p>Base: {{money .BaseAmountARS}} | Recargo: {{money .SurchargeARS}} | Total: {{money .TotalARS}}</p>

  <h3>Por medio de pago</h3>
  <table>
    <thead><tr><th>Medio</th><th>Pagos</th><th>Importe ARS</th></tr></thead>
    <tbody>{{range .ByPaymentMethod}}<tr><td>{{.PaymentMethodName}}</td><td class="num">{{.Payments}}</td><td class="num">{{money .AmountARS}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

func MovementsHTML(r domain.MovementReport) ([]byte, error) {
	var buf bytes.Buffer
	if err := movementsHTMLTmpl.Execute(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func SalesHTML(r domain.SalesReport) ([]byte, error) {
	var buf bytes.Buffer
	if err := salesHTMLTmpl.Execute(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
