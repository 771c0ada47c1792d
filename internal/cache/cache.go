package cache

import (
	"context"
	"time"

	"celustock/backend/internal/domain"
)

// PaymentConfigKey is the single key the payment configuration lives under.
const PaymentConfigKey = "celustock:payment-config:v1"

type PaymentConfigCache interface {
	Get(ctx context.Context) (*domain.PaymentConfig, bool, error)
	Set(ctx context.Context, value *domain.PaymentConfig, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopPaymentConfigCache struct{}

func (NoopPaymentConfigCache) Get(_ context.Context) (*domain.PaymentConfig, bool, error) {
	return nil, false, nil
}

func (NoopPaymentConfigCache) Set(_ context.Context, _ *domain.PaymentConfig, _ time.Duration) error {
	return nil
}

func (NoopPaymentConfigCache) Invalidate(_ context.Context) error {
	return nil
}
