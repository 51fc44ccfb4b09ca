package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisCache holds product read views as JSON under "product:<id>".
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func productKey(id string) string { return "product:" + id }

func (r *RedisCache) GetProduct(ctx context.Context, id string) (*domain.Product, bool, error) {
	data, err := r.rdb.Get(ctx, productKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	var p domain.Product
	if err := json.Unmarshal(data, &p); err != nil {
		// corrupt entry; treat as a miss and let the next write replace it
		return nil, false, nil
	}
	return &p, true, nil
}

func (r *RedisCache) SetProduct(ctx context.Context, p *domain.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	return r.rdb.Set(ctx, productKey(p.ID), data, r.ttl).Err()
}

func (r *RedisCache) Invalidate(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	return r.rdb.Del(ctx, keys...).Err()
}

var _ usecase.ProductCache = (*RedisCache)(nil)
