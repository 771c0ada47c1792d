package cache

import (
	"context"
	"sync"
	"time"

	"celustock/backend/internal/domain"
)

// MemoryPaymentConfigCache keeps the configuration in process. It is used
// when REDIS_ADDR is not set and by tests.
type MemoryPaymentConfigCache struct {
	mu        sync.Mutex
	value     *domain.PaymentConfig
	expiresAt time.Time
	now       func() time.Time
}

func NewMemoryPaymentConfigCache() *MemoryPaymentConfigCache {
	return &MemoryPaymentConfigCache{now: time.Now}
}

func (c *MemoryPaymentConfigCache) Get(_ context.Context) (*domain.PaymentConfig, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.value == nil || !c.now().Before(c.expiresAt) {
		return nil, false, nil
	}
	copied := clonePaymentConfig(c.value)
	return &copied, true, nil
}

func (c *MemoryPaymentConfigCache) Set(_ context.Context, value *domain.PaymentConfig, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := clonePaymentConfig(value)
	c.value = &copied
	c.expiresAt = c.now().Add(ttl)
	return nil
}

func (c *MemoryPaymentConfigCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = nil
	return nil
}

func clonePaymentConfig(cfg *domain.PaymentConfig) domain.PaymentConfig {
	return domain.PaymentConfig{
		Methods: append([]domain.PaymentMethod(nil), cfg.Methods...),
		Plans:   append([]domain.InstallmentPlan(nil), cfg.Plans...),
	}
}
