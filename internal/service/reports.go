package service

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"celustock/backend/internal/domain"
)

const reportRowLimit = 10000

func (s *Service) SalesReport(ctx context.Context, from string, to string) (domain.SalesReport, error) {
	start, end, err := s.parseDateRange(from, to)
	if err != nil {
		return domain.SalesReport{}, err
	}
	sales, err := s.repo.ListSales(ctx, start, end, reportRowLimit)
	if err != nil {
		return domain.SalesReport{}, err
	}

	report := domain.SalesReport{
		From:          start.Format(dateLayout),
		To:            end.AddDate(0, 0, -1).Format(dateLayout),
		BaseAmountARS: decimal.Zero,
		SurchargeARS:  decimal.Zero,
		TotalARS:      decimal.Zero,
	}
	byMethod := make(map[int64]*domain.SalesReportPayment)
	for _, sale := range sales {
		report.Sales++
		report.BaseAmountARS = report.BaseAmountARS.Add(sale.BaseAmountARS)
		report.SurchargeARS = report.SurchargeARS.Add(sale.SurchargeARS)
		report.TotalARS = report.TotalARS.Add(sale.TotalARS)
		for _, p := range sale.Payments {
			row, ok := byMethod[p.PaymentMethodID]
			if !ok {
				row = &domain.SalesReportPayment{
					PaymentMethodID:   p.PaymentMethodID,
					PaymentMethodName: p.PaymentMethodName,
					AmountARS:         decimal.Zero,
				}
				byMethod[p.PaymentMethodID] = row
			}
			row.Payments++
			row.AmountARS = row.AmountARS.Add(p.AmountARS)
		}
	}

	report.ByPaymentMethod = make([]domain.SalesReportPayment, 0, len(byMethod))
	for _, row := range byMethod {
		report.ByPaymentMethod = append(report.ByPaymentMethod, *row)
	}
	slices.SortFunc(report.ByPaymentMethod, func(a, b domain.SalesReportPayment) int {
		if c := b.AmountARS.Cmp(a.AmountARS); c != 0 {
			return c
		}
		return cmp.Compare(a.PaymentMethodID, b.PaymentMethodID)
	})
	return report, nil
}

// MovementReport summarises one account, or every account when accountID is
// empty, over a date range.
func (s *Service) MovementReport(ctx context.Context, accountID string, from string, to string) (domain.MovementReport, error) {
	start, end, err := s.parseDateRange(from, to)
	if err != nil {
		return domain.MovementReport{}, err
	}

	accountID = strings.TrimSpace(accountID)
	accountName := "Todas las cuentas"
	if accountID != "" {
		account, err := s.repo.GetAccount(ctx, accountID)
		if err != nil {
			return domain.MovementReport{}, err
		}
		accountName = account.Name
	}

	movements, err := s.repo.ListMovements(ctx, accountID, start, end, reportRowLimit)
	if err != nil {
		return domain.MovementReport{}, err
	}

	report := domain.MovementReport{
		AccountID:   accountID,
		AccountName: accountName,
		From:        start.Format(dateLayout),
		To:          end.AddDate(0, 0, -1).Format(dateLayout),
		IncomeARS:   decimal.Zero,
		ExpenseARS:  decimal.Zero,
		NetARS:      decimal.Zero,
		Movements:   movements,
	}
	for _, mv := range movements {
		switch mv.Kind {
		case domain.MovementKindExpense:
			report.ExpenseARS = report.ExpenseARS.Add(mv.AmountARS)
		case domain.MovementKindIncome:
			report.IncomeARS = report.IncomeARS.Add(mv.AmountARS)
		}
		report.NetARS = report.NetARS.Add(mv.SignedAmount())
	}
	return report, nil
}
