package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Config struct {
	Port                    string
	AllowedOrigin           string
	DatabaseURL             string
	RedisAddr               string
	RedisPassword           string
	RedisDB                 int
	PaymentConfigTTLSeconds int
	DefaultCurrency         string
	MaxExchangeRate         decimal.Decimal
	LogLevel                string
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ttl, err := strconv.Atoi(getEnv("PAYMENT_CONFIG_TTL_SECONDS", "60"))
	if err != nil || ttl < 1 {
		ttl = 60
	}
	// An unparseable bound is kept as zero so validation refuses to start.
	maxRate, err := decimal.NewFromString(strings.TrimSpace(getEnv("MAX_EXCHANGE_RATE", "100000")))
	if err != nil {
		maxRate = decimal.Zero
	}

	cfg := Config{
		Port:                    strings.TrimSpace(getEnv("PORT", "8080")),
		AllowedOrigin:           getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:5173"),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		RedisAddr:               os.Getenv("REDIS_ADDR"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:                 redisDB,
		PaymentConfigTTLSeconds: ttl,
		DefaultCurrency:         strings.ToUpper(getEnv("DEFAULT_CURRENCY", "ARS")),
		MaxExchangeRate:         maxRate,
		LogLevel:                getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
