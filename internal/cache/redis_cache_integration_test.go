package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"celustock/backend/internal/domain"
)

func TestRedisPaymentConfigCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("CELUSTOCK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set CELUSTOCK_TEST_REDIS_ADDR to run redis integration test")
	}

	ctx := context.Background()
	c := NewRedisPaymentConfigCache(addr, os.Getenv("CELUSTOCK_TEST_REDIS_PASSWORD"), 0)
	c.key = fmt.Sprintf("%s:it-%d", PaymentConfigKey, time.Now().UnixNano())
	t.Cleanup(func() {
		_ = c.Invalidate(ctx)
		_ = c.Close()
	})
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	if _, ok, err := c.Get(ctx); err != nil || ok {
		t.Fatalf("expected miss on empty key, got ok=%v err=%v", ok, err)
	}

	cfg := &domain.PaymentConfig{
		Methods: []domain.PaymentMethod{{ID: 3, Name: "Tarjeta de credito", Multiplier: decimal.NewFromInt(1), Active: true}},
		Plans:   []domain.InstallmentPlan{{ID: 2, PaymentMethodID: 3, Installments: 3, Multiplier: decimal.RequireFromString("1.25")}},
	}
	if err := c.Set(ctx, cfg, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := c.Get(ctx)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if len(got.Methods) != 1 || got.Methods[0].Name != "Tarjeta de credito" {
		t.Fatalf("unexpected methods: %+v", got.Methods)
	}
	if len(got.Plans) != 1 || !got.Plans[0].Multiplier.Equal(decimal.RequireFromString("1.25")) {
		t.Fatalf("unexpected plans: %+v", got.Plans)
	}

	ttl, err := c.client.TTL(ctx, c.key).Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected ttl within a minute, got %v (%v)", ttl, err)
	}

	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, err := c.Get(ctx); err != nil || ok {
		t.Fatalf("expected miss after invalidate, got ok=%v err=%v", ok, err)
	}
}
