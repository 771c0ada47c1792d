package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "PAYMENT_CONFIG_TTL_SECONDS", "DEFAULT_CURRENCY", "MAX_EXCHANGE_RATE", "DATABASE_URL", "REDIS_ADDR"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Address() != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.Address())
	}
	if cfg.PaymentConfigTTLSeconds != 60 {
		t.Fatalf("expected ttl 60, got %d", cfg.PaymentConfigTTLSeconds)
	}
	if cfg.DefaultCurrency != "ARS" {
		t.Fatalf("expected ARS, got %s", cfg.DefaultCurrency)
	}
	if cfg.MaxExchangeRate.String() != "100000" {
		t.Fatalf("expected max exchange rate 100000, got %s", cfg.MaxExchangeRate)
	}
	if cfg.DatabaseURL != "" || cfg.RedisAddr != "" {
		t.Fatalf("expected no external stores by default")
	}
}

func TestLoadFallsBackOnInvalidTTL(t *testing.T) {
	t.Setenv("PAYMENT_CONFIG_TTL_SECONDS", "soon")

	if got := Load().PaymentConfigTTLSeconds; got != 60 {
		t.Fatalf("expected fallback ttl 60, got %d", got)
	}
}

func TestLoadKeepsUnparseableExchangeRateBoundAsZero(t *testing.T) {
	t.Setenv("MAX_EXCHANGE_RATE", "mucho")

	if got := Load().MaxExchangeRate; !got.IsZero() {
		t.Fatalf("expected zero bound, got %s", got)
	}
}
