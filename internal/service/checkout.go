package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"celustock/backend/internal/domain"
	"celustock/backend/internal/payment"
	"celustock/backend/internal/store"
	"celustock/backend/internal/xid"
)

func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = xid.New("idem")
	}

	if existing, err := s.repo.FindSaleByIdempotency(ctx, req.IdempotencyKey); err == nil {
		return domain.CheckoutResponse{Sale: *existing, Duplicate: true}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.CheckoutResponse{}, err
	}

	req.CustomerID = strings.TrimSpace(req.CustomerID)
	if req.CustomerID == "" {
		return domain.CheckoutResponse{}, invalid("customer required")
	}
	if _, err := s.repo.GetCustomer(ctx, req.CustomerID); err != nil {
		return domain.CheckoutResponse{}, err
	}

	rate, err := s.parseExchangeRate(req.ExchangeRate)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	items := normalizeItems(req.Items)
	if len(items) == 0 {
		return domain.CheckoutResponse{}, invalid("at least one item required")
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	base := decimal.Zero
	saleItems := make([]domain.SaleItem, 0, len(items))
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok || !product.Active {
			return domain.CheckoutResponse{}, invalid(fmt.Sprintf("product %s unavailable", item.ProductID))
		}
		if product.Stock < item.Qty {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Description())
		}
		subtotal := product.PriceUSD.Mul(decimal.NewFromInt(int64(item.Qty))).Mul(rate)
		base = base.Add(subtotal)
		saleItems = append(saleItems, domain.SaleItem{
			ProductID:    product.ID,
			Description:  product.Description(),
			Qty:          item.Qty,
			UnitPriceUSD: product.PriceUSD,
			SubtotalARS:  roundCents(subtotal),
		})
	}
	base = roundCents(base)

	cfg, err := s.PaymentConfig(ctx)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	salePayments, legs, err := resolvePayments(req.Payments, cfg)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	// Only legs that move money may select the surcharge plan.
	totals := payment.CalculateTotals(base, legs, cfg.Plans)
	if totals.RemainingARS.IsPositive() {
		return domain.CheckoutResponse{}, invalid(fmt.Sprintf("payment incomplete: %s ARS remaining", roundCents(totals.RemainingARS).StringFixed(2)))
	}

	var interestMethodID int64
	if totals.InterestMethod != nil {
		if id, ok := parseID(totals.InterestMethod.PaymentMethodID); ok {
			interestMethodID = id
		}
	}

	now := s.now()
	sale := domain.Sale{
		ID:                      xid.New("sale"),
		IdempotencyKey:          req.IdempotencyKey,
		CustomerID:              req.CustomerID,
		ExchangeRate:            rate,
		BaseAmountARS:           base,
		SurchargeARS:            roundCents(payment.Surcharge(totals)),
		TotalARS:                roundCents(totals.TotalWithSurcharge),
		PaidARS:                 roundCents(totals.PaidARS),
		InterestPaymentMethodID: interestMethodID,
		Multiplier:              totals.Multiplier,
		Status:                  domain.SaleStatusCompleted,
		Notes:                   strings.TrimSpace(req.Notes),
		Items:                   saleItems,
		Payments:                salePayments,
		CreatedAt:               now,
	}

	created, err := s.repo.CreateSale(ctx, sale, incomeMovements(sale, now))
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Lost a race against a retry carrying the same key.
			if existing, findErr := s.repo.FindSaleByIdempotency(ctx, req.IdempotencyKey); findErr == nil {
				return domain.CheckoutResponse{Sale: *existing, Duplicate: true}, nil
			}
		}
		return domain.CheckoutResponse{}, err
	}

	s.metrics.SaleRecorded(created.TotalARS)
	s.logger.Info("sale recorded",
		"sale_id", created.ID,
		"customer_id", created.CustomerID,
		"total_ars", created.TotalARS.StringFixed(2),
		"surcharge_ars", created.SurchargeARS.StringFixed(2),
		"payments", len(created.Payments),
	)

	return domain.CheckoutResponse{Sale: *created, Totals: &totals, Duplicate: false}, nil
}

// resolvePayments validates every leg that moves money and snapshots its
// method and plan onto the sale. It also returns the accepted legs, in
// request order, for the totals calculation.
func resolvePayments(legs []domain.PaymentLeg, cfg domain.PaymentConfig) ([]domain.SalePayment, []domain.PaymentLeg, error) {
	methods := make(map[int64]domain.PaymentMethod, len(cfg.Methods))
	for _, m := range cfg.Methods {
		methods[m.ID] = m
	}

	resolved := make([]domain.SalePayment, 0, len(legs))
	accepted := make([]domain.PaymentLeg, 0, len(legs))
	for _, leg := range legs {
		amount := payment.ParseOrZero(leg.Amount)
		if amount.IsNegative() {
			return nil, nil, invalid("payment amount must not be negative")
		}
		if amount.IsZero() {
			continue
		}

		methodID, ok := parseID(leg.PaymentMethodID)
		if !ok {
			return nil, nil, invalid("payment method required")
		}
		method, ok := methods[methodID]
		if !ok || !method.Active {
			return nil, nil, invalid(fmt.Sprintf("payment method %d unavailable", methodID))
		}

		installments, ok := parseCount(leg.Installments)
		if !ok {
			return nil, nil, invalid("invalid installments")
		}
		multiplier := one
		if plan, found := payment.FindPlan(leg, cfg.Plans); found {
			multiplier = plan.Multiplier
		} else if installments > 1 {
			return nil, nil, invalid(fmt.Sprintf("no installment plan for %s in %d installments", method.Name, installments))
		}

		resolved = append(resolved, domain.SalePayment{
			PaymentMethodID:   method.ID,
			PaymentMethodName: method.Name,
			Installments:      installments,
			Multiplier:        multiplier,
			AmountARS:         roundCents(amount),
			AccountID:         method.AccountID,
		})
		accepted = append(accepted, leg)
	}
	if len(resolved) == 0 {
		return nil, nil, invalid("at least one payment required")
	}
	return resolved, accepted, nil
}

func incomeMovements(sale domain.Sale, at time.Time) []domain.Movement {
	movements := make([]domain.Movement, 0, len(sale.Payments))
	for _, p := range sale.Payments {
		if p.AccountID == "" {
			continue
		}
		movements = append(movements, domain.Movement{
			ID:            xid.New("mov"),
			AccountID:     p.AccountID,
			Kind:          domain.MovementKindIncome,
			AmountARS:     p.AmountARS,
			Description:   fmt.Sprintf("Venta %s (%s)", sale.ID, p.PaymentMethodName),
			ReferenceType: domain.ReferenceSale,
			ReferenceID:   sale.ID,
			CreatedAt:     at,
		})
	}
	return movements
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Sale{}, invalid("sale id required")
	}
	sale, err := s.repo.FindSaleByID(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, from string, to string, limit int) ([]domain.Sale, error) {
	start, end, err := s.parseDateRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSales(ctx, start, end, limit)
}

// normalizeItems merges repeated products and drops empty lines, keeping the
// order in which products first appear.
func normalizeItems(items []domain.SaleItemRequest) []domain.SaleItemRequest {
	agg := make(map[string]int, len(items))
	order := make([]string, 0, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.ProductID)
		if id == "" || item.Qty < 1 {
			continue
		}
		if _, seen := agg[id]; !seen {
			order = append(order, id)
		}
		agg[id] += item.Qty
	}

	normalized := make([]domain.SaleItemRequest, 0, len(order))
	for _, id := range order {
		normalized = append(normalized, domain.SaleItemRequest{ProductID: id, Qty: agg[id]})
	}
	return normalized
}

func parseID(raw domain.Numeric) (int64, bool) {
	value, err := decimal.NewFromString(strings.TrimSpace(string(raw)))
	if err != nil || !value.IsInteger() || !value.IsPositive() {
		return 0, false
	}
	return value.IntPart(), true
}

// parseCount reads an installment count; blank means a single payment.
func parseCount(raw domain.Numeric) (int, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return 0, true
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil || !value.IsInteger() || value.IsNegative() {
		return 0, false
	}
	return int(value.IntPart()), true
}
