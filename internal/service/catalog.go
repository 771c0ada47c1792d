package service

import (
	"context"
	"strings"

	"celustock/backend/internal/domain"
	"celustock/backend/internal/store"
	"celustock/backend/internal/xid"
)

func (s *Service) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, includeInactive)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.Brand = strings.TrimSpace(req.Brand)
	req.Model = strings.TrimSpace(req.Model)
	req.Color = strings.TrimSpace(req.Color)
	req.IMEI = strings.TrimSpace(req.IMEI)
	req.Condition = strings.ToLower(strings.TrimSpace(req.Condition))
	if req.Condition == "" {
		req.Condition = domain.ConditionNew
	}

	if req.Brand == "" || req.Model == "" {
		return domain.Product{}, invalid("brand and model required")
	}
	if !isSupportedCondition(req.Condition) {
		return domain.Product{}, invalid("unsupported condition")
	}
	if req.StorageGB < 0 || req.InitialStock < 0 {
		return domain.Product{}, invalid("storage and stock must not be negative")
	}
	if !req.PriceUSD.IsPositive() || req.CostUSD.IsNegative() {
		return domain.Product{}, invalid("price must be positive and cost not negative")
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		ID:        xid.New("prod"),
		Brand:     req.Brand,
		Model:     req.Model,
		StorageGB: req.StorageGB,
		Color:     req.Color,
		Condition: req.Condition,
		IMEI:      req.IMEI,
		PriceUSD:  req.PriceUSD,
		CostUSD:   req.CostUSD,
		Stock:     req.InitialStock,
		Active:    true,
		CreatedAt: s.now(),
	})
	if err != nil {
		return domain.Product{}, err
	}
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, invalid("product id required")
	}

	products, err := s.repo.GetProductsByIDs(ctx, []string{id})
	if err != nil {
		return domain.Product{}, err
	}
	existing, ok := products[id]
	if !ok {
		return domain.Product{}, store.ErrNotFound
	}

	if req.Color != nil {
		existing.Color = strings.TrimSpace(*req.Color)
	}
	if req.Condition != nil {
		condition := strings.ToLower(strings.TrimSpace(*req.Condition))
		if !isSupportedCondition(condition) {
			return domain.Product{}, invalid("unsupported condition")
		}
		existing.Condition = condition
	}
	if req.IMEI != nil {
		existing.IMEI = strings.TrimSpace(*req.IMEI)
	}
	if req.PriceUSD != nil {
		if !req.PriceUSD.IsPositive() {
			return domain.Product{}, invalid("price must be positive")
		}
		existing.PriceUSD = *req.PriceUSD
	}
	if req.CostUSD != nil {
		if req.CostUSD.IsNegative() {
			return domain.Product{}, invalid("cost must not be negative")
		}
		existing.CostUSD = *req.CostUSD
	}
	if req.Active != nil {
		existing.Active = *req.Active
	}

	updated, err := s.repo.UpdateProduct(ctx, existing)
	if err != nil {
		return domain.Product{}, err
	}
	return *updated, nil
}

func (s *Service) ListCustomers(ctx context.Context, status string) ([]domain.Customer, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" && !isSupportedCustomerStatus(status) {
		return nil, invalid("unsupported customer status")
	}
	return s.repo.ListCustomers(ctx, status)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	customer, err := s.repo.GetCustomer(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, invalid("name required")
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status == "" {
		status = domain.CustomerStatusLead
	}
	if !isSupportedCustomerStatus(status) {
		return domain.Customer{}, invalid("unsupported customer status")
	}

	now := s.now()
	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		ID:        xid.New("cust"),
		Name:      name,
		Phone:     strings.TrimSpace(req.Phone),
		Email:     strings.TrimSpace(req.Email),
		Status:    status,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return *created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	existing, err := s.repo.GetCustomer(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Customer{}, err
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
		if updated.Name == "" {
			return domain.Customer{}, invalid("name required")
		}
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		updated.Email = strings.TrimSpace(*req.Email)
	}
	if req.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*req.Status))
		if !isSupportedCustomerStatus(status) {
			return domain.Customer{}, invalid("unsupported customer status")
		}
		updated.Status = status
	}
	if req.Notes != nil {
		updated.Notes = strings.TrimSpace(*req.Notes)
	}
	updated.UpdatedAt = s.now()

	saved, err := s.repo.UpdateCustomer(ctx, updated)
	if err != nil {
		return domain.Customer{}, err
	}
	return *saved, nil
}

func (s *Service) ListProviders(ctx context.Context) ([]domain.Provider, error) {
	return s.repo.ListProviders(ctx)
}

func (s *Service) CreateProvider(ctx context.Context, req domain.ProviderCreateRequest) (domain.Provider, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Provider{}, invalid("name required")
	}
	created, err := s.repo.CreateProvider(ctx, domain.Provider{
		ID:        xid.New("prov"),
		Name:      name,
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: s.now(),
	})
	if err != nil {
		return domain.Provider{}, err
	}
	return *created, nil
}

func isSupportedCondition(condition string) bool {
	switch condition {
	case domain.ConditionNew, domain.ConditionUsed, domain.ConditionRefurbished:
		return true
	default:
		return false
	}
}

func isSupportedCustomerStatus(status string) bool {
	return status == domain.CustomerStatusLead || status == domain.CustomerStatusCustomer
}
