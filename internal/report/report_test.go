package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"celustock/backend/internal/domain"
)

func sampleMovementReport() domain.MovementReport {
	at := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	return domain.MovementReport{
		AccountID:   "acc-banco",
		AccountName: "Banco <principal>",
		From:        "2026-03-01",
		To:          "2026-03-10",
		IncomeARS:   decimal.RequireFromString("375000"),
		ExpenseARS:  decimal.RequireFromString("500000"),
		NetARS:      decimal.RequireFromString("-125000"),
		Movements: []domain.Movement{
			{ID: "mov-1", AccountID: "acc-banco", Kind: domain.MovementKindIncome, AmountARS: decimal.RequireFromString("375000"), Description: "Venta sale-1 (Tarjeta, 3 cuotas)", ReferenceType: domain.ReferenceSale, ReferenceID: "sale-1", CreatedAt: at},
			{ID: "mov-2", AccountID: "acc-banco", Kind: domain.MovementKindExpense, AmountARS: decimal.RequireFromString("500000"), Description: "Compra pur-1", ReferenceType: domain.ReferencePurchase, ReferenceID: "pur-1", CreatedAt: at.Add(time.Hour)},
		},
	}
}

func sampleSalesReport() domain.SalesReport {
	return domain.SalesReport{
		From:          "2026-03-10",
		To:            "2026-03-10",
		Sales:         1,
		BaseAmountARS: decimal.RequireFromString("450000"),
		SurchargeARS:  decimal.RequireFromString("75000"),
		TotalARS:      decimal.RequireFromString("525000"),
		ByPaymentMethod: []domain.SalesReportPayment{
			{PaymentMethodID: 3, PaymentMethodName: "Tarjeta de credito", Payments: 1, AmountARS: decimal.RequireFromString("375000")},
			{PaymentMethodID: 1, PaymentMethodName: "Efectivo", Payments: 1, AmountARS: decimal.RequireFromString("150000")},
		},
	}
}

func TestWriteMovementsCSVQuotesAndSignsAmounts(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMovementsCSV(&buf, sampleMovementReport()); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("csv output is not parseable: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("expected header, 2 movements and 3 summary rows, got %d", len(rows))
	}
	if rows[1][5] != "Venta sale-1 (Tarjeta, 3 cuotas)" {
		t.Fatalf("description with comma must survive quoting, got %q", rows[1][5])
	}
	if rows[2][4] != "-500000.00" {
		t.Fatalf("expected signed expense, got %q", rows[2][4])
	}
	if rows[5][2] != "net" || rows[5][3] != "-125000.00" {
		t.Fatalf("unexpected net row %v", rows[5])
	}
}

func TestWriteSalesCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSalesCSV(&buf, sampleSalesReport()); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"summary,surcharge_ars,75000.00", "payment,Efectivo_amount_ars,150000.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in csv:\n%s", want, out)
		}
	}
}

func TestMovementsHTMLEscapesUserText(t *testing.T) {
	out, err := MovementsHTML(sampleMovementReport())
	if err != nil {
		t.Fatalf("render html: %v", err)
	}
	html := string(out)
	if strings.Contains(html, "Banco <principal>") {
		t.Fatalf("account name must be escaped")
	}
	if !strings.Contains(html, "Banco &lt;principal&gt;") {
		t.Fatalf("expected escaped account name in output")
	}
	if !strings.Contains(html, "-125000.00") {
		t.Fatalf("expected net total in output")
	}
}

func TestSalesHTML(t *testing.T) {
	out, err := SalesHTML(sampleSalesReport())
	if err != nil {
		t.Fatalf("render html: %v", err)
	}
	if !strings.Contains(string(out), "Tarjeta de credito") {
		t.Fatalf("expected payment method row in output")
	}
}

func TestWriteMovementsXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMovementsXLSX(&buf, sampleMovementReport()); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer func() { _ = f.Close() }()

	header, err := f.GetCellValue(movementsSheet, "A1")
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if header != "Fecha" {
		t.Fatalf("expected Fecha header, got %q", header)
	}
	ref, err := f.GetCellValue(movementsSheet, "F3")
	if err != nil {
		t.Fatalf("read reference: %v", err)
	}
	if ref != "pur-1" {
		t.Fatalf("expected purchase reference on second movement, got %q", ref)
	}
	label, err := f.GetCellValue(movementsSheet, "A7")
	if err != nil {
		t.Fatalf("read net label: %v", err)
	}
	if label != "Neto" {
		t.Fatalf("expected Neto label after totals, got %q", label)
	}
}

func TestWriteSalesXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSalesXLSX(&buf, sampleSalesReport()); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer func() { _ = f.Close() }()

	if got := f.GetSheetList(); len(got) != 2 {
		t.Fatalf("expected summary and payments sheets, got %v", got)
	}
	method, err := f.GetCellValue(paymentsSheet, "A2")
	if err != nil {
		t.Fatalf("read payment row: %v", err)
	}
	if method != "Tarjeta de credito" {
		t.Fatalf("expected first payment row, got %q", method)
	}
}

func TestFilenames(t *testing.T) {
	r := sampleMovementReport()
	if got := MovementsFilename(r, "csv"); got != "movements-acc-banco-2026-03-01-2026-03-10.csv" {
		t.Fatalf("unexpected filename %q", got)
	}
	r.AccountID = ""
	if got := MovementsFilename(r, "xlsx"); got != "movements-all-2026-03-01-2026-03-10.xlsx" {
		t.Fatalf("unexpected filename %q", got)
	}
	if got := SalesFilename(sampleSalesReport(), "html"); got != "sales-2026-03-10-2026-03-10.html" {
		t.Fatalf("unexpected filename %q", got)
	}
}
