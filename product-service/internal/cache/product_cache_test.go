package cache

import (
	"context"
	"testing"
	"time"

	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRedisCacheUnreachableIsAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := NewRedisProductCache(client, 0, zap.NewNop())
	assert.Equal(t, DefaultTTL, c.ttl)

	ctx := context.Background()
	product := &types.Product{ID: uuid.New(), Name: "Lamp", Price: decimal.NewFromInt(5)}

	assert.NotPanics(t, func() {
		c.Set(ctx, product)
		c.Invalidate(ctx, product.ID)
	})

	cached, ok := c.Get(ctx, product.ID)
	assert.False(t, ok)
	assert.Nil(t, cached)
}

func TestNopCacheAlwaysMisses(t *testing.T) {
	var c ProductCache = NopCache{}
	product := &types.Product{ID: uuid.New()}

	c.Set(context.Background(), product)
	_, ok := c.Get(context.Background(), product.ID)
	assert.False(t, ok)
}
