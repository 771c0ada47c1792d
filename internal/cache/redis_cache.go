package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"celustock/backend/internal/domain"
)

type RedisPaymentConfigCache struct {
	client *redis.Client
	key    string
}

func NewRedisPaymentConfigCache(addr string, password string, db int) *RedisPaymentConfigCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisPaymentConfigCache{client: client, key: PaymentConfigKey}
}

func (c *RedisPaymentConfigCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisPaymentConfigCache) Close() error {
	return c.client.Close()
}

func (c *RedisPaymentConfigCache) Get(ctx context.Context) (*domain.PaymentConfig, bool, error) {
	val, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var cfg domain.PaymentConfig
	if err := json.Unmarshal(val, &cfg); err != nil {
		return nil, false, err
	}
	return &cfg, true, nil
}

func (c *RedisPaymentConfigCache) Set(ctx context.Context, value *domain.PaymentConfig, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key, payload, ttl).Err()
}

func (c *RedisPaymentConfigCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}
