package service

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"celustock/backend/internal/cache"
	"celustock/backend/internal/domain"
	"celustock/backend/internal/metrics"
	"celustock/backend/internal/store"
)

type Options struct {
	PaymentConfigTTL time.Duration
	MaxExchangeRate  decimal.Decimal
	DefaultCurrency  string
	Metrics          *metrics.Metrics
	Logger           *slog.Logger
}

type Service struct {
	repo            store.Repository
	paymentCache    cache.PaymentConfigCache
	configTTL       time.Duration
	maxExchangeRate decimal.Decimal
	defaultCurrency string
	metrics         *metrics.Metrics
	logger          *slog.Logger
	now             func() time.Time

	// configGen counts payment config invalidations; a snapshot read across
	// an invalidation is not cached.
	configGen atomic.Uint64
}

func New(repo store.Repository, paymentCache cache.PaymentConfigCache, opts Options) *Service {
	if paymentCache == nil {
		paymentCache = cache.NoopPaymentConfigCache{}
	}
	if opts.PaymentConfigTTL <= 0 {
		opts.PaymentConfigTTL = time.Minute
	}
	if !opts.MaxExchangeRate.IsPositive() {
		opts.MaxExchangeRate = decimal.NewFromInt(100000)
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "ARS"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Service{
		repo:            repo,
		paymentCache:    paymentCache,
		configTTL:       opts.PaymentConfigTTL,
		maxExchangeRate: opts.MaxExchangeRate,
		defaultCurrency: opts.DefaultCurrency,
		metrics:         opts.Metrics,
		logger:          opts.Logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", store.ErrInvalidInput, reason)
}

// parseExchangeRate accepts a positive rate no larger than the configured
// sanity bound.
func (s *Service) parseExchangeRate(raw domain.Numeric) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(string(raw)))
	if err != nil || !rate.IsPositive() || rate.GreaterThan(s.maxExchangeRate) {
		return decimal.Zero, invalid("invalid exchange rate")
	}
	return rate, nil
}

func roundCents(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

const dateLayout = "2006-01-02"

// parseDateRange turns inclusive YYYY-MM-DD bounds into a half-open UTC
// interval. Missing bounds default to the last 30 days.
func (s *Service) parseDateRange(from string, to string) (time.Time, time.Time, error) {
	now := s.now()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if strings.TrimSpace(to) != "" {
		parsed, err := time.Parse(dateLayout, strings.TrimSpace(to))
		if err != nil {
			return time.Time{}, time.Time{}, invalid("invalid to date")
		}
		end = parsed.UTC()
	}
	start := end.AddDate(0, 0, -29)
	if strings.TrimSpace(from) != "" {
		parsed, err := time.Parse(dateLayout, strings.TrimSpace(from))
		if err != nil {
			return time.Time{}, time.Time{}, invalid("invalid from date")
		}
		start = parsed.UTC()
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, invalid("from date after to date")
	}
	return start, end.AddDate(0, 0, 1), nil
}
