package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"celustock/backend/internal/domain"
	"celustock/backend/internal/payment"
)

var one = decimal.NewFromInt(1)

func (s *Service) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	return s.repo.ListPaymentMethods(ctx)
}

func (s *Service) CreatePaymentMethod(ctx context.Context, req domain.PaymentMethodCreateRequest) (domain.PaymentMethod, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.PaymentMethod{}, invalid("name required")
	}
	multiplier := one
	if req.Multiplier != nil {
		multiplier = *req.Multiplier
	}
	if multiplier.IsNegative() {
		return domain.PaymentMethod{}, invalid("multiplier must not be negative")
	}

	created, err := s.repo.CreatePaymentMethod(ctx, domain.PaymentMethod{
		Name:       name,
		Multiplier: multiplier,
		AccountID:  strings.TrimSpace(req.AccountID),
		Active:     true,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return domain.PaymentMethod{}, err
	}
	s.invalidatePaymentConfig(ctx)
	return *created, nil
}

func (s *Service) UpdatePaymentMethod(ctx context.Context, id int64, req domain.PaymentMethodUpdateRequest) (domain.PaymentMethod, error) {
	if id < 1 {
		return domain.PaymentMethod{}, invalid("payment method id required")
	}
	existing, err := s.repo.GetPaymentMethod(ctx, id)
	if err != nil {
		return domain.PaymentMethod{}, err
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
		if updated.Name == "" {
			return domain.PaymentMethod{}, invalid("name required")
		}
	}
	if req.Multiplier != nil {
		if req.Multiplier.IsNegative() {
			return domain.PaymentMethod{}, invalid("multiplier must not be negative")
		}
		updated.Multiplier = *req.Multiplier
	}
	if req.AccountID != nil {
		updated.AccountID = strings.TrimSpace(*req.AccountID)
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdatePaymentMethod(ctx, updated)
	if err != nil {
		return domain.PaymentMethod{}, err
	}
	s.invalidatePaymentConfig(ctx)
	return *saved, nil
}

func (s *Service) ListInstallmentPlans(ctx context.Context, paymentMethodID int64) ([]domain.InstallmentPlan, error) {
	return s.repo.ListInstallmentPlans(ctx, paymentMethodID)
}

func (s *Service) CreateInstallmentPlan(ctx context.Context, req domain.InstallmentPlanCreateRequest) (domain.InstallmentPlan, error) {
	if req.PaymentMethodID < 1 {
		return domain.InstallmentPlan{}, invalid("payment method id required")
	}
	if req.Installments < 1 {
		return domain.InstallmentPlan{}, invalid("installments must be at least 1")
	}
	if req.Multiplier.LessThan(one) {
		return domain.InstallmentPlan{}, invalid("multiplier must be at least 1")
	}
	if _, err := s.repo.GetPaymentMethod(ctx, req.PaymentMethodID); err != nil {
		return domain.InstallmentPlan{}, err
	}

	created, err := s.repo.CreateInstallmentPlan(ctx, domain.InstallmentPlan{
		PaymentMethodID: req.PaymentMethodID,
		Installments:    req.Installments,
		Multiplier:      req.Multiplier,
	})
	if err != nil {
		return domain.InstallmentPlan{}, err
	}
	s.invalidatePaymentConfig(ctx)
	return *created, nil
}

func (s *Service) UpdateInstallmentPlan(ctx context.Context, id int64, req domain.InstallmentPlanUpdateRequest) (domain.InstallmentPlan, error) {
	if id < 1 {
		return domain.InstallmentPlan{}, invalid("installment plan id required")
	}
	if req.Multiplier.LessThan(one) {
		return domain.InstallmentPlan{}, invalid("multiplier must be at least 1")
	}
	updated, err := s.repo.UpdateInstallmentPlan(ctx, id, req.Multiplier)
	if err != nil {
		return domain.InstallmentPlan{}, err
	}
	s.invalidatePaymentConfig(ctx)
	return *updated, nil
}

func (s *Service) DeleteInstallmentPlan(ctx context.Context, id int64) error {
	if id < 1 {
		return invalid("installment plan id required")
	}
	if err := s.repo.DeleteInstallmentPlan(ctx, id); err != nil {
		return err
	}
	s.invalidatePaymentConfig(ctx)
	return nil
}

// PaymentConfig returns the methods and plans snapshot, served from the
// cache while it is fresh. Cache failures fall back to the repository.
func (s *Service) PaymentConfig(ctx context.Context) (domain.PaymentConfig, error) {
	cached, ok, err := s.paymentCache.Get(ctx)
	if err != nil {
		s.logger.Warn("payment config cache read failed", "error", err)
	}
	if ok && cached != nil {
		s.metrics.PaymentConfigLookup(true)
		return *cached, nil
	}
	s.metrics.PaymentConfigLookup(false)

	gen := s.configGen.Load()
	methods, err := s.repo.ListPaymentMethods(ctx)
	if err != nil {
		return domain.PaymentConfig{}, err
	}
	plans, err := s.repo.ListInstallmentPlans(ctx, 0)
	if err != nil {
		return domain.PaymentConfig{}, err
	}

	cfg := domain.PaymentConfig{Methods: methods, Plans: plans}
	if s.configGen.Load() != gen {
		return cfg, nil
	}
	if err := s.paymentCache.Set(ctx, &cfg, s.configTTL); err != nil {
		s.logger.Warn("payment config cache write failed", "error", err)
	}
	return cfg, nil
}

func (s *Service) invalidatePaymentConfig(ctx context.Context) {
	s.configGen.Add(1)
	if err := s.paymentCache.Invalidate(ctx); err != nil {
		s.logger.Warn("payment config cache invalidation failed", "error", err)
	}
}

// Quote runs the totals calculator against the current plans. The suggested
// amount is what a new payment leg should be pre-filled with.
func (s *Service) Quote(ctx context.Context, req domain.QuoteRequest) (domain.QuoteResponse, error) {
	base := payment.ParseOrZero(req.BaseAmountARS)
	if base.IsNegative() {
		return domain.QuoteResponse{}, invalid("base amount must not be negative")
	}

	cfg, err := s.PaymentConfig(ctx)
	if err != nil {
		return domain.QuoteResponse{}, err
	}

	totals := payment.CalculateTotals(base, req.Payments, cfg.Plans)
	s.metrics.QuoteComputed(totals.InterestMethod != nil)

	return domain.QuoteResponse{
		Totals:          totals,
		SuggestedAmount: totals.RemainingARS,
	}, nil
}
