package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"celustock/backend/internal/domain"
)

const (
	movementsSheet = "Movimientos"
	salesSheet     = "Ventas"
	paymentsSheet  = "Medios de pago"
)

// WriteMovementsXLSX writes one row per movement followed by the income,
// expense and net totals.
func WriteMovementsXLSX(w io.Writer, r domain.MovementReport) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", movementsSheet); err != nil {
		return err
	}

	headers := []string{"Fecha", "Cuenta", "Tipo", "Importe ARS", "Detalle", "Referencia"}
	if err := writeHeader(f, movementsSheet, headers); err != nil {
		return err
	}

	row := 2
	for _, mv := range r.Movements {
		values := []any{
			mv.CreatedAt.Format("02/01/2006 15:04"),
			mv.AccountID,
			mv.Kind,
			mv.SignedAmount().InexactFloat64(),
			mv.Description,
			mv.ReferenceID,
		}
		if err := f.SetSheetRow(movementsSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
		row++
	}

	row++
	for _, total := range []struct {
		label string
		value float64
	}{
		{"Ingresos", r.IncomeARS.InexactFloat64()},
		{"Egresos", r.ExpenseARS.InexactFloat64()},
		{"Neto", r.NetARS.InexactFloat64()},
	} {
		values := []any{total.label, "", "", total.value}
		if err := f.SetSheetRow(movementsSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
		row++
	}

	if err := setMoneyFormat(f, movementsSheet, "D2", fmt.Sprintf("D%d", row)); err != nil {
		return err
	}
	_, err := f.WriteTo(w)
	return err
}

func WriteSalesXLSX(w io.Writer, r domain.SalesReport) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", salesSheet); err != nil {
		return err
	}
	summary := [][]any{
		{"Desde", r.From},
		{"Hasta", r.To},
		{"Ventas", r.Sales},
		{"Base ARS", r.BaseAmountARS.InexactFloat64()},
		{"Recargo ARS", r.SurchargeARS.InexactFloat64()},
		{"Total ARS", r.TotalARS.InexactFloat64()},
	}
	for i, values := range summary {
		if err := f.SetSheetRow(salesSheet, fmt.Sprintf("A%d", i+1), &values); err != nil {
			return err
		}
	}
	if err := setMoneyFormat(f, salesSheet, "B4", "B6"); err != nil {
		return err
	}

	if _, err := f.NewSheet(paymentsSheet); err != nil {
		return err
	}
	if err := writeHeader(f, paymentsSheet, []string{"Medio de pago", "Pagos", "Importe ARS"}); err != nil {
		return err
	}
	for i, p := range r.ByPaymentMethod {
		values := []any{p.PaymentMethodName, p.Payments, p.AmountARS.InexactFloat64()}
		if err := f.SetSheetRow(paymentsSheet, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return err
		}
	}
	if len(r.ByPaymentMethod) > 0 {
		if err := setMoneyFormat(f, paymentsSheet, "C2", fmt.Sprintf("C%d", len(r.ByPaymentMethod)+1)); err != nil {
			return err
		}
	}

	_, err := f.WriteTo(w)
	return err
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func setMoneyFormat(f *excelize.File, sheet string, from string, to string) error {
	format := "#,##0.00"
	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &format})
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, from, to, style)
}
