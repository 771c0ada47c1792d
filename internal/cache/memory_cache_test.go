package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"celustock/backend/internal/domain"
)

func TestMemoryPaymentConfigCacheExpires(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewMemoryPaymentConfigCache()
	c.now = func() time.Time { return now }

	ctx := context.Background()
	cfg := &domain.PaymentConfig{
		Plans: []domain.InstallmentPlan{{ID: 1, PaymentMethodID: 3, Installments: 3, Multiplier: decimal.RequireFromString("1.25")}},
	}
	if err := c.Set(ctx, cfg, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := c.Get(ctx)
	if err != nil || !ok {
		t.Fatalf("expected cache hit, got ok=%v err=%v", ok, err)
	}
	if len(got.Plans) != 1 || got.Plans[0].Installments != 3 {
		t.Fatalf("unexpected cached config: %+v", got)
	}

	got.Plans[0].Installments = 99
	again, _, _ := c.Get(ctx)
	if again.Plans[0].Installments != 3 {
		t.Fatalf("cached value must not be shared with callers")
	}

	now = now.Add(time.Minute)
	if _, ok, _ := c.Get(ctx); ok {
		t.Fatalf("expected cache miss after ttl")
	}
}

func TestMemoryPaymentConfigCacheInvalidate(t *testing.T) {
	c := NewMemoryPaymentConfigCache()
	ctx := context.Background()
	if err := c.Set(ctx, &domain.PaymentConfig{}, time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := c.Get(ctx); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestNoopPaymentConfigCacheAlwaysMisses(t *testing.T) {
	var c PaymentConfigCache = NoopPaymentConfigCache{}
	ctx := context.Background()
	_ = c.Set(ctx, &domain.PaymentConfig{}, time.Hour)
	if _, ok, err := c.Get(ctx); ok || err != nil {
		t.Fatalf("expected noop miss, got ok=%v err=%v", ok, err)
	}
}
