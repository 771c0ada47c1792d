// Package payment computes checkout totals for a sale paid with one or more
// payment legs, some of which may carry an installment surcharge.
package payment

import (
	"strings"

	"github.com/shopspring/decimal"

	"celustock/backend/internal/domain"
)

var one = decimal.NewFromInt(1)

// ParseOrZero converts raw form input into a decimal. Empty or unparseable
// text is worth zero; it is never an error.
func ParseOrZero(raw domain.Numeric) decimal.Decimal {
	value, ok := parseNumber(raw)
	if !ok {
		return decimal.Zero
	}
	return value
}

// parseNumber reports whether raw holds a number. Blank input counts as zero
// so a leg with no installments typed in still compares as 0.
func parseNumber(raw domain.Numeric) (decimal.Decimal, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return decimal.Zero, true
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

// FindPlan returns the first plan configured for the leg's payment method and
// installment count.
func FindPlan(leg domain.PaymentLeg, plans []domain.InstallmentPlan) (domain.InstallmentPlan, bool) {
	methodID, ok := parseNumber(leg.PaymentMethodID)
	if !ok {
		return domain.InstallmentPlan{}, false
	}
	installments, ok := parseNumber(leg.Installments)
	if !ok {
		return domain.InstallmentPlan{}, false
	}

	for _, plan := range plans {
		if decimal.NewFromInt(plan.PaymentMethodID).Equal(methodID) &&
			decimal.NewFromInt(int64(plan.Installments)).Equal(installments) {
			return plan, true
		}
	}
	return domain.InstallmentPlan{}, false
}

// CalculateTotals splits the sale between surcharge-free legs and at most one
// installment leg. The surcharge applies only to the part of baseAmountARS not
// already covered by surcharge-free legs. Only the first leg whose plan has a
// multiplier above 1 is charged; later ones still count as paid.
func CalculateTotals(baseAmountARS decimal.Decimal, payments []domain.PaymentLeg, plans []domain.InstallmentPlan) domain.TotalsResult {
	paidNoInterest := decimal.Zero
	paid := decimal.Zero
	multiplier := one
	var interestMethod *domain.PaymentLeg

	for i := range payments {
		leg := payments[i]
		amount := ParseOrZero(leg.Amount)
		paid = paid.Add(amount)

		plan, found := FindPlan(leg, plans)
		if !found || plan.Multiplier.Equal(one) {
			paidNoInterest = paidNoInterest.Add(amount)
			continue
		}
		if interestMethod == nil && plan.Multiplier.GreaterThan(one) {
			selected := leg
			interestMethod = &selected
			multiplier = plan.Multiplier
		}
	}

	saldo := decimal.Max(baseAmountARS.Sub(paidNoInterest), decimal.Zero)

	total := baseAmountARS
	if interestMethod != nil {
		total = baseAmountARS.Add(saldo.Mul(multiplier.Sub(one)))
	}

	return domain.TotalsResult{
		BaseAmountARS:      baseAmountARS,
		PaidNoInterest:     paidNoInterest,
		Saldo:              saldo,
		InterestMethod:     interestMethod,
		Multiplier:         multiplier,
		TotalWithSurcharge: total,
		PaidARS:            paid,
		RemainingARS:       decimal.Max(total.Sub(paid), decimal.Zero),
	}
}

// Surcharge is the amount added on top of the base by the installment leg.
func Surcharge(totals domain.TotalsResult) decimal.Decimal {
	return totals.TotalWithSurcharge.Sub(totals.BaseAmountARS)
}
