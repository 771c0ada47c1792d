package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"celustock/backend/internal/domain"
	"celustock/backend/internal/store"
)

func TestCreateSaleDecrementsStockAndRecordsIncome(t *testing.T) {
	databaseURL := os.Getenv("CELUSTOCK_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set CELUSTOCK_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	accountID := fmt.Sprintf("acc-it-%d", stamp)
	productID := fmt.Sprintf("prod-it-%d", stamp)
	customerID := fmt.Sprintf("cust-it-%d", stamp)
	saleID := fmt.Sprintf("sale-it-%d", stamp)
	now := time.Now().UTC()

	var methodID int64
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM movements WHERE account_id = $1`, accountID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_payments WHERE sale_id = $1`, saleID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, saleID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM payment_methods WHERE id = $1`, methodID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, customerID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
	})

	if _, err := s.CreateAccount(ctx, domain.Account{ID: accountID, Name: "Caja IT " + accountID, Currency: "ARS", CreatedAt: now}); err != nil {
		t.Fatalf("create account: %v", err)
	}
	method, err := s.CreatePaymentMethod(ctx, domain.PaymentMethod{
		Name:       "Efectivo IT " + accountID,
		Multiplier: decimal.NewFromInt(1),
		AccountID:  accountID,
		Active:     true,
		CreatedAt:  now,
	})
	if err != nil {
		t.Fatalf("create payment method: %v", err)
	}
	methodID = method.ID

	if _, err := s.CreateProduct(ctx, domain.Product{
		ID:        productID,
		Brand:     "Samsung",
		Model:     "A15",
		StorageGB: 128,
		Condition: domain.ConditionNew,
		PriceUSD:  decimal.NewFromInt(150),
		Stock:     3,
		Active:    true,
		CreatedAt: now,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := s.CreateCustomer(ctx, domain.Customer{
		ID:        customerID,
		Name:      "Cliente IT",
		Status:    domain.CustomerStatusLead,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("create customer: %v", err)
	}

	amount := decimal.NewFromInt(150000)
	sale := domain.Sale{
		ID:             saleID,
		IdempotencyKey: saleID,
		CustomerID:     customerID,
		ExchangeRate:   decimal.NewFromInt(1000),
		BaseAmountARS:  amount,
		SurchargeARS:   decimal.Zero,
		TotalARS:       amount,
		PaidARS:        amount,
		Multiplier:     decimal.NewFromInt(1),
		Status:         domain.SaleStatusCompleted,
		Items: []domain.SaleItem{{
			ProductID:    productID,
			Description:  "Samsung A15 128GB",
			Qty:          2,
			UnitPriceUSD: decimal.NewFromInt(150),
			SubtotalARS:  decimal.NewFromInt(300000),
		}},
		Payments: []domain.SalePayment{{
			PaymentMethodID:   methodID,
			PaymentMethodName: method.Name,
			Multiplier:        decimal.NewFromInt(1),
			AmountARS:         amount,
			AccountID:         accountID,
		}},
		CreatedAt: now,
	}
	income := []domain.Movement{{
		ID:            "mov-" + saleID,
		AccountID:     accountID,
		Kind:          domain.MovementKindIncome,
		AmountARS:     amount,
		Description:   "Venta " + saleID,
		ReferenceType: domain.ReferenceSale,
		ReferenceID:   saleID,
		CreatedAt:     now,
	}}

	if _, err := s.CreateSale(ctx, sale, income); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	products, err := s.GetProductsByIDs(ctx, []string{productID})
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got := products[productID].Stock; got != 1 {
		t.Fatalf("expected stock 1 after sale, got %d", got)
	}

	customer, err := s.GetCustomer(ctx, customerID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if customer.Status != domain.CustomerStatusCustomer {
		t.Fatalf("expected customer promoted, got %s", customer.Status)
	}

	stored, err := s.FindSaleByIdempotency(ctx, saleID)
	if err != nil {
		t.Fatalf("find sale: %v", err)
	}
	if len(stored.Items) != 1 || len(stored.Payments) != 1 {
		t.Fatalf("expected sale lines to be stored, got %+v", stored)
	}
	if !stored.TotalARS.Equal(amount) {
		t.Fatalf("expected total %s, got %s", amount, stored.TotalARS)
	}

	balances, err := s.GetAccountBalances(ctx)
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	found := false
	for _, b := range balances {
		if b.AccountID == accountID {
			found = true
			if !b.BalanceARS.Equal(amount) {
				t.Fatalf("expected balance %s, got %s", amount, b.BalanceARS)
			}
		}
	}
	if !found {
		t.Fatalf("expected balance row for %s", accountID)
	}

	again := sale
	again.ID = saleID + "-retry"
	if _, err := s.CreateSale(ctx, again, nil); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict for reused idempotency key, got %v", err)
	}

	oversell := sale
	oversell.ID = saleID + "-oversell"
	oversell.IdempotencyKey = saleID + "-oversell"
	oversell.Items[0].Qty = 5
	if _, err := s.CreateSale(ctx, oversell, nil); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
}
