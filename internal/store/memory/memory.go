package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"celustock/backend/internal/domain"
	"celustock/backend/internal/store"
)

type Store struct {
	mu               sync.RWMutex
	nextMethodID     int64
	nextPlanID       int64
	paymentMethods   map[int64]domain.PaymentMethod
	installmentPlans map[int64]domain.InstallmentPlan
	products         map[string]domain.Product
	customers        map[string]domain.Customer
	providers        map[string]domain.Provider
	purchases        []domain.Purchase
	salesByID        map[string]*domain.Sale
	salesByIdem      map[string]*domain.Sale
	accounts         map[string]domain.Account
	movements        []domain.Movement
}

func New() *Store {
	return &Store{
		nextMethodID:     1,
		nextPlanID:       1,
		paymentMethods:   make(map[int64]domain.PaymentMethod),
		installmentPlans: make(map[int64]domain.InstallmentPlan),
		products:         make(map[string]domain.Product),
		customers:        make(map[string]domain.Customer),
		providers:        make(map[string]domain.Provider),
		purchases:        make([]domain.Purchase, 0, 16),
		salesByID:        make(map[string]*domain.Sale),
		salesByIdem:      make(map[string]*domain.Sale),
		accounts:         make(map[string]domain.Account),
		movements:        make([]domain.Movement, 0, 64),
	}
}

// NewSeeded returns a store with a small demo catalog and the usual
// cash / transfer / credit card payment setup.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	for _, acc := range []domain.Account{
		{ID: "acc-caja", Name: "Caja", Currency: "ARS"},
		{ID: "acc-banco", Name: "Banco", Currency: "ARS"},
	} {
		acc.CreatedAt = now
		s.accounts[acc.ID] = acc
	}

	for _, method := range []domain.PaymentMethod{
		{Name: "Efectivo", AccountID: "acc-caja"},
		{Name: "Transferencia", AccountID: "acc-banco"},
		{Name: "Tarjeta de credito", AccountID: "acc-banco"},
	} {
		method.ID = s.nextMethodID
		method.Multiplier = decimal.NewFromInt(1)
		method.Active = true
		method.CreatedAt = now
		s.paymentMethods[method.ID] = method
		s.nextMethodID++
	}

	for _, plan := range []struct {
		installments int
		multiplier   string
	}{
		{1, "1"},
		{3, "1.25"},
		{6, "1.45"},
		{12, "1.9"},
	} {
		s.installmentPlans[s.nextPlanID] = domain.InstallmentPlan{
			ID:              s.nextPlanID,
			PaymentMethodID: 3,
			Installments:    plan.installments,
			Multiplier:      decimal.RequireFromString(plan.multiplier),
		}
		s.nextPlanID++
	}

	for _, p := range []domain.Product{
		{ID: "prod-iphone13-128", Brand: "Apple", Model: "iPhone 13", StorageGB: 128, Color: "Midnight", Condition: domain.ConditionUsed, PriceUSD: decimal.RequireFromString("450"), CostUSD: decimal.RequireFromString("360"), Stock: 3},
		{ID: "prod-iphone15-256", Brand: "Apple", Model: "iPhone 15", StorageGB: 256, Color: "Blue", Condition: domain.ConditionNew, PriceUSD: decimal.RequireFromString("980"), CostUSD: decimal.RequireFromString("850"), Stock: 2},
		{ID: "prod-a54-256", Brand: "Samsung", Model: "Galaxy A54", StorageGB: 256, Color: "Black", Condition: domain.ConditionNew, PriceUSD: decimal.RequireFromString("320"), CostUSD: decimal.RequireFromString("255"), Stock: 5},
		{ID: "prod-g84-256", Brand: "Motorola", Model: "Moto G84", StorageGB: 256, Color: "Viva Magenta", Condition: domain.ConditionRefurbished, PriceUSD: decimal.RequireFromString("210"), CostUSD: decimal.RequireFromString("150"), Stock: 4},
	} {
		p.Active = true
		p.CreatedAt = now
		s.products[p.ID] = p
	}

	s.customers["cust-demo"] = domain.Customer{
		ID:        "cust-demo",
		Name:      "Cliente Demo",
		Phone:     "+54 11 5555-0100",
		Status:    domain.CustomerStatusLead,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.providers["prov-mayorista"] = domain.Provider{
		ID:        "prov-mayorista",
		Name:      "Mayorista Centro",
		Phone:     "+54 11 5555-0200",
		CreatedAt: now,
	}

	return s
}

func (s *Store) ListPaymentMethods(_ context.Context) ([]domain.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	methods := make([]domain.PaymentMethod, 0, len(s.paymentMethods))
	for _, m := range s.paymentMethods {
		methods = append(methods, m)
	}
	slices.SortFunc(methods, func(a, b domain.PaymentMethod) int {
		return cmpInt64(a.ID, b.ID)
	})
	return methods, nil
}

func (s *Store) GetPaymentMethod(_ context.Context, id int64) (*domain.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	method, ok := s.paymentMethods[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &method, nil
}

func (s *Store) CreatePaymentMethod(_ context.Context, method domain.PaymentMethod) (*domain.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if method.Name == "" {
		return nil, store.ErrInvalidInput
	}
	for _, existing := range s.paymentMethods {
		if strings.EqualFold(existing.Name, method.Name) {
			return nil, store.ErrConflict
		}
	}
	if method.AccountID != "" {
		if _, ok := s.accounts[method.AccountID]; !ok {
			return nil, store.ErrNotFound
		}
	}

	method.ID = s.nextMethodID
	s.nextMethodID++
	s.paymentMethods[method.ID] = method
	created := method
	return &created, nil
}

func (s *Store) UpdatePaymentMethod(_ context.Context, method domain.PaymentMethod) (*domain.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.paymentMethods[method.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	for id, other := range s.paymentMethods {
		if id != method.ID && strings.EqualFold(other.Name, method.Name) {
			return nil, store.ErrConflict
		}
	}
	if method.AccountID != "" {
		if _, ok := s.accounts[method.AccountID]; !ok {
			return nil, store.ErrNotFound
		}
	}

	method.CreatedAt = existing.CreatedAt
	s.paymentMethods[method.ID] = method
	updated := method
	return &updated, nil
}

func (s *Store) ListInstallmentPlans(_ context.Context, paymentMethodID int64) ([]domain.InstallmentPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plans := make([]domain.InstallmentPlan, 0, len(s.installmentPlans))
	for _, p := range s.installmentPlans {
		if paymentMethodID > 0 && p.PaymentMethodID != paymentMethodID {
			continue
		}
		plans = append(plans, p)
	}
	slices.SortFunc(plans, func(a, b domain.InstallmentPlan) int {
		return cmpInt64(a.ID, b.ID)
	})
	return plans, nil
}

func (s *Store) CreateInstallmentPlan(_ context.Context, plan domain.InstallmentPlan) (*domain.InstallmentPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.paymentMethods[plan.PaymentMethodID]; !ok {
		return nil, store.ErrNotFound
	}
	for _, existing := range s.installmentPlans {
		if existing.PaymentMethodID == plan.PaymentMethodID && existing.Installments == plan.Installments {
			return nil, store.ErrConflict
		}
	}

	plan.ID = s.nextPlanID
	s.nextPlanID++
	s.installmentPlans[plan.ID] = plan
	created := plan
	return &created, nil
}

func (s *Store) UpdateInstallmentPlan(_ context.Context, id int64, multiplier decimal.Decimal) (*domain.InstallmentPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, ok := s.installmentPlans[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	plan.Multiplier = multiplier
	s.installmentPlans[id] = plan
	return &plan, nil
}

func (s *Store) DeleteInstallmentPlan(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.installmentPlans[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.installmentPlans, id)
	return nil
}

func (s *Store) ListProducts(_ context.Context, includeInactive bool) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active && !includeInactive {
			continue
		}
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Brand == b.Brand {
			return strings.Compare(a.Model, b.Model)
		}
		return strings.Compare(a.Brand, b.Brand)
	})
	return products, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" || product.Brand == "" || product.Model == "" {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrConflict
	}
	if product.IMEI != "" {
		for _, existing := range s.products {
			if existing.IMEI == product.IMEI {
				return nil, store.ErrConflict
			}
		}
	}

	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if product.IMEI != "" {
		for id, other := range s.products {
			if id != product.ID && other.IMEI == product.IMEI {
				return nil, store.ErrConflict
			}
		}
	}

	product.Stock = existing.Stock
	product.CreatedAt = existing.CreatedAt
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) ListCustomers(_ context.Context, status string) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if status != "" && c.Status != status {
			continue
		}
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return customers, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &customer, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == "" || customer.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.customers[customer.ID]; exists {
		return nil, store.ErrConflict
	}
	s.customers[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customers[customer.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	customer.CreatedAt = existing.CreatedAt
	s.customers[customer.ID] = customer
	updated := customer
	return &updated, nil
}

func (s *Store) ListProviders(_ context.Context) ([]domain.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	providers := make([]domain.Provider, 0, len(s.providers))
	for _, p := range s.providers {
		providers = append(providers, p)
	}
	slices.SortFunc(providers, func(a, b domain.Provider) int {
		return strings.Compare(a.Name, b.Name)
	})
	return providers, nil
}

func (s *Store) GetProvider(_ context.Context, id string) (*domain.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	provider, ok := s.providers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &provider, nil
}

func (s *Store) CreateProvider(_ context.Context, provider domain.Provider) (*domain.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if provider.ID == "" || provider.Name == "" {
		return nil, store.ErrInvalidInput
	}
	for _, existing := range s.providers {
		if strings.EqualFold(existing.Name, provider.Name) {
			return nil, store.ErrConflict
		}
	}
	s.providers[provider.ID] = provider
	created := provider
	return &created, nil
}

func (s *Store) CreatePurchase(_ context.Context, purchase domain.Purchase, expense *domain.Movement) (*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.providers[purchase.ProviderID]; !ok {
		return nil, store.ErrNotFound
	}
	for _, item := range purchase.Items {
		if _, ok := s.products[item.ProductID]; !ok {
			return nil, store.ErrNotFound
		}
	}
	if expense != nil {
		if _, ok := s.accounts[expense.AccountID]; !ok {
			return nil, store.ErrNotFound
		}
	}

	for _, item := range purchase.Items {
		product := s.products[item.ProductID]
		product.Stock += item.Qty
		product.CostUSD = item.UnitCostUSD
		s.products[item.ProductID] = product
	}
	if expense != nil {
		s.movements = append(s.movements, *expense)
	}

	saved := clonePurchase(purchase)
	s.purchases = append(s.purchases, saved)
	created := clonePurchase(saved)
	return &created, nil
}

func (s *Store) ListPurchases(_ context.Context, limit int) ([]domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Purchase, 0, len(s.purchases))
	for i := len(s.purchases) - 1; i >= 0; i-- {
		result = append(result, clonePurchase(s.purchases[i]))
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale, income []domain.Movement) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.salesByIdem[sale.IdempotencyKey]; ok {
		return nil, store.ErrConflict
	}
	customer, ok := s.customers[sale.CustomerID]
	if !ok {
		return nil, store.ErrNotFound
	}

	requested := make(map[string]int, len(sale.Items))
	for _, item := range sale.Items {
		requested[item.ProductID] += item.Qty
	}
	for productID, qty := range requested {
		product, ok := s.products[productID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if product.Stock < qty {
			return nil, store.ErrInsufficientStock
		}
	}
	for _, mv := range income {
		if _, ok := s.accounts[mv.AccountID]; !ok {
			return nil, store.ErrNotFound
		}
	}

	for productID, qty := range requested {
		product := s.products[productID]
		product.Stock -= qty
		s.products[productID] = product
	}
	if customer.Status == domain.CustomerStatusLead {
		customer.Status = domain.CustomerStatusCustomer
		customer.UpdatedAt = sale.CreatedAt
		s.customers[customer.ID] = customer
	}
	s.movements = append(s.movements, income...)

	saved := cloneSale(&sale)
	s.salesByID[saved.ID] = saved
	s.salesByIdem[saved.IdempotencyKey] = saved
	return cloneSale(saved), nil
}

func (s *Store) FindSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) FindSaleByIdempotency(_ context.Context, key string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByIdem[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) ListSales(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		if sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		sales = append(sales, *cloneSale(sale))
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

func (s *Store) ListAccounts(_ context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		accounts = append(accounts, a)
	}
	slices.SortFunc(accounts, func(a, b domain.Account) int {
		return strings.Compare(a.Name, b.Name)
	})
	return accounts, nil
}

func (s *Store) GetAccount(_ context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &account, nil
}

func (s *Store) CreateAccount(_ context.Context, account domain.Account) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if account.ID == "" || account.Name == "" {
		return nil, store.ErrInvalidInput
	}
	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Name, account.Name) {
			return nil, store.ErrConflict
		}
	}
	s.accounts[account.ID] = account
	created := account
	return &created, nil
}

func (s *Store) CreateMovement(_ context.Context, movement domain.Movement) (*domain.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[movement.AccountID]; !ok {
		return nil, store.ErrNotFound
	}
	s.movements = append(s.movements, movement)
	created := movement
	return &created, nil
}

func (s *Store) ListMovements(_ context.Context, accountID string, from time.Time, to time.Time, limit int) ([]domain.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Movement, 0, 32)
	for _, mv := range s.movements {
		if accountID != "" && mv.AccountID != accountID {
			continue
		}
		if mv.CreatedAt.Before(from) || !mv.CreatedAt.Before(to) {
			continue
		}
		result = append(result, mv)
	}
	slices.SortStableFunc(result, func(a, b domain.Movement) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (s *Store) GetAccountBalances(_ context.Context) ([]domain.AccountBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byAccount := make(map[string]*domain.AccountBalance, len(s.accounts))
	for id, acc := range s.accounts {
		byAccount[id] = &domain.AccountBalance{
			AccountID:  id,
			Name:       acc.Name,
			Currency:   acc.Currency,
			BalanceARS: decimal.Zero,
		}
	}
	for _, mv := range s.movements {
		balance, ok := byAccount[mv.AccountID]
		if !ok {
			continue
		}
		balance.Movements++
		balance.BalanceARS = balance.BalanceARS.Add(mv.SignedAmount())
	}

	result := make([]domain.AccountBalance, 0, len(byAccount))
	for _, balance := range byAccount {
		result = append(result, *balance)
	}
	slices.SortFunc(result, func(a, b domain.AccountBalance) int {
		return strings.Compare(a.Name, b.Name)
	})
	return result, nil
}

func cmpInt64(a int64, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cloneSale(src *domain.Sale) *domain.Sale {
	if src == nil {
		return nil
	}
	dst := *src
	dst.Items = append([]domain.SaleItem(nil), src.Items...)
	dst.Payments = append([]domain.SalePayment(nil), src.Payments...)
	return &dst
}

func clonePurchase(src domain.Purchase) domain.Purchase {
	dst := src
	dst.Items = append([]domain.PurchaseItem(nil), src.Items...)
	return dst
}
