package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultTTL = 5 * time.Minute

// ProductCache is best effort: a failing backend behaves like a miss.
type ProductCache interface {
	Get(ctx context.Context, productID uuid.UUID) (*types.Product, bool)
	Set(ctx context.Context, product *types.Product)
	Invalidate(ctx context.Context, productID uuid.UUID)
}

type RedisProductCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisProductCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisProductCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisProductCache{client: client, ttl: ttl, logger: logger}
}

func key(productID uuid.UUID) string {
	return "product:" + productID.String()
}

func (c *RedisProductCache) Get(ctx context.Context, productID uuid.UUID) (*types.Product, bool) {
	data, err := c.client.Get(ctx, key(productID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Product cache read failed", zap.String("product_id", productID.String()), zap.Error(err))
		}
		return nil, false
	}

	var product types.Product
	if err := json.Unmarshal(data, &product); err != nil {
		c.logger.Warn("Product cache entry unreadable", zap.String("product_id", productID.String()), zap.Error(err))
		return nil, false
	}
	return &product, true
}

func (c *RedisProductCache) Set(ctx context.Context, product *types.Product) {
	data, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(product.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Product cache write failed", zap.String("product_id", product.ID.String()), zap.Error(err))
	}
}

func (c *RedisProductCache) Invalidate(ctx context.Context, productID uuid.UUID) {
	if err := c.client.Del(ctx, key(productID)).Err(); err != nil {
		c.logger.Warn("Product cache invalidation failed", zap.String("product_id", productID.String()), zap.Error(err))
	}
}

// NopCache is used when no Redis address is configured.
type NopCache struct{}

func (NopCache) Get(context.Context, uuid.UUID) (*types.Product, bool) { return nil, false }

func (NopCache) Set(context.Context, *types.Product) {}

func (NopCache) Invalidate(context.Context, uuid.UUID) {}
