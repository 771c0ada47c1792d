package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"celustock/backend/internal/domain"
	"celustock/backend/internal/xid"
)

func (s *Service) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return s.repo.ListAccounts(ctx)
}

func (s *Service) CreateAccount(ctx context.Context, req domain.AccountCreateRequest) (domain.Account, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Account{}, invalid("name required")
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	if len(currency) != 3 {
		return domain.Account{}, invalid("currency must be a 3-letter code")
	}

	created, err := s.repo.CreateAccount(ctx, domain.Account{
		ID:        xid.New("acc"),
		Name:      name,
		Currency:  currency,
		CreatedAt: s.now(),
	})
	if err != nil {
		return domain.Account{}, err
	}
	return *created, nil
}

func (s *Service) AccountBalances(ctx context.Context) ([]domain.AccountBalance, error) {
	return s.repo.GetAccountBalances(ctx)
}

// CreateMovement records a manual cash movement. Income and expense amounts
// are positive; only adjustments may be negative.
func (s *Service) CreateMovement(ctx context.Context, req domain.MovementCreateRequest) (domain.Movement, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return domain.Movement{}, invalid("account required")
	}
	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	switch kind {
	case domain.MovementKindIncome, domain.MovementKindExpense:
		if !req.AmountARS.IsPositive() {
			return domain.Movement{}, invalid("amount must be positive")
		}
	case domain.MovementKindAdjustment:
		if req.AmountARS.IsZero() {
			return domain.Movement{}, invalid("amount must not be zero")
		}
	default:
		return domain.Movement{}, invalid("unsupported movement kind")
	}

	created, err := s.repo.CreateMovement(ctx, domain.Movement{
		ID:          xid.New("mov"),
		AccountID:   accountID,
		Kind:        kind,
		AmountARS:   roundCents(req.AmountARS),
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   s.now(),
	})
	if err != nil {
		return domain.Movement{}, err
	}
	return *created, nil
}

func (s *Service) ListMovements(ctx context.Context, accountID string, from string, to string, limit int) ([]domain.Movement, error) {
	start, end, err := s.parseDateRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.repo.ListMovements(ctx, strings.TrimSpace(accountID), start, end, limit)
}

// CreatePurchase restocks products bought from a provider. When an account
// is given, the ARS cost is booked against it as an expense.
func (s *Service) CreatePurchase(ctx context.Context, req domain.PurchaseCreateRequest) (domain.Purchase, error) {
	providerID := strings.TrimSpace(req.ProviderID)
	if providerID == "" {
		return domain.Purchase{}, invalid("provider required")
	}
	provider, err := s.repo.GetProvider(ctx, providerID)
	if err != nil {
		return domain.Purchase{}, err
	}
	rate, err := s.parseExchangeRate(req.ExchangeRate)
	if err != nil {
		return domain.Purchase{}, err
	}
	if len(req.Items) == 0 {
		return domain.Purchase{}, invalid("at least one item required")
	}

	ids := make([]string, 0, len(req.Items))
	items := make([]domain.PurchaseItem, 0, len(req.Items))
	totalUSD := decimal.Zero
	for _, item := range req.Items {
		item.ProductID = strings.TrimSpace(item.ProductID)
		if item.ProductID == "" || item.Qty < 1 || item.UnitCostUSD.IsNegative() {
			return domain.Purchase{}, invalid("each item needs a product, a positive qty and a cost")
		}
		totalUSD = totalUSD.Add(item.UnitCostUSD.Mul(decimal.NewFromInt(int64(item.Qty))))
		ids = append(ids, item.ProductID)
		items = append(items, item)
	}
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return domain.Purchase{}, err
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return domain.Purchase{}, invalid(fmt.Sprintf("product %s not found", id))
		}
	}

	now := s.now()
	purchase := domain.Purchase{
		ID:           xid.New("pur"),
		ProviderID:   provider.ID,
		AccountID:    strings.TrimSpace(req.AccountID),
		ExchangeRate: rate,
		TotalUSD:     roundCents(totalUSD),
		TotalARS:     roundCents(totalUSD.Mul(rate)),
		Items:        items,
		CreatedAt:    now,
	}

	var expense *domain.Movement
	if purchase.AccountID != "" && purchase.TotalARS.IsPositive() {
		expense = &domain.Movement{
			ID:            xid.New("mov"),
			AccountID:     purchase.AccountID,
			Kind:          domain.MovementKindExpense,
			AmountARS:     purchase.TotalARS,
			Description:   fmt.Sprintf("Compra %s a %s", purchase.ID, provider.Name),
			ReferenceType: domain.ReferencePurchase,
			ReferenceID:   purchase.ID,
			CreatedAt:     now,
		}
	}

	created, err := s.repo.CreatePurchase(ctx, purchase, expense)
	if err != nil {
		return domain.Purchase{}, err
	}
	s.logger.Info("purchase recorded", "purchase_id", created.ID, "provider_id", created.ProviderID, "total_ars", created.TotalARS.StringFixed(2))
	return *created, nil
}

func (s *Service) ListPurchases(ctx context.Context, limit int) ([]domain.Purchase, error) {
	return s.repo.ListPurchases(ctx, limit)
}
