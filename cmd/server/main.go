package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"celustock/backend/internal/cache"
	"celustock/backend/internal/config"
	"celustock/backend/internal/httpapi"
	"celustock/backend/internal/metrics"
	"celustock/backend/internal/service"
	"celustock/backend/internal/store"
	"celustock/backend/internal/store/memory"
	pgstore "celustock/backend/internal/store/postgres"
	"celustock/backend/pkg/logging"
)

func main() {
	cfg := config.Load()
	logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))

	if err := validateConfig(cfg); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", "error", err)
			os.Exit(1)
		}
		repo = pg
		closers = append(closers, pg.Close)
		slog.Info("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		slog.Info("repository: in-memory (seeded demo data)")
	}

	var paymentCache cache.PaymentConfigCache = cache.NewMemoryPaymentConfigCache()
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisPaymentConfigCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			slog.Warn("redis unavailable, using in-process cache", "error", err)
			_ = redisCache.Close()
		} else {
			paymentCache = redisCache
			closers = append(closers, redisCache.Close)
			slog.Info("cache: redis", "addr", cfg.RedisAddr)
		}
	} else {
		slog.Info("cache: in-process")
	}

	m := metrics.New()
	svc := service.New(repo, paymentCache, service.Options{
		PaymentConfigTTL: time.Duration(cfg.PaymentConfigTTLSeconds) * time.Second,
		MaxExchangeRate:  cfg.MaxExchangeRate,
		DefaultCurrency:  cfg.DefaultCurrency,
		Metrics:          m,
		Logger:           slog.Default(),
	})
	api := httpapi.New(svc, m, slog.Default(), cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("celustock backend listening", "addr", cfg.Address())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			slog.Error("close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func validateConfig(cfg config.Config) error {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", cfg.Port)
	}
	if !cfg.MaxExchangeRate.IsPositive() {
		return fmt.Errorf("MAX_EXCHANGE_RATE must be a positive number")
	}
	if len(cfg.DefaultCurrency) != 3 {
		return fmt.Errorf("DEFAULT_CURRENCY must be a 3-letter code, got %q", cfg.DefaultCurrency)
	}
	return nil
}
