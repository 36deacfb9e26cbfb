package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/shutterbay/api/internal/domain"
	"github.com/shutterbay/api/internal/platform/config"
)

const (
	defaultTTL = 5 * time.Minute
	keyPrefix  = "shop:product:"
)

// RedisProductCache stores product documents as JSON keyed by product id.
type RedisProductCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisClient builds a client from configuration. It returns nil when no address is configured.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRedisProductCache wraps client. ttl <= 0 selects the default.
func NewRedisProductCache(client redis.UniversalClient, ttl time.Duration) (*RedisProductCache, error) {
	if client == nil {
		return nil, errors.New("cache: redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisProductCache{client: client, ttl: ttl}, nil
}

// GetProduct returns the cached product. ok is false on a miss.
func (c *RedisProductCache) GetProduct(ctx context.Context, id domain.ProductRef) (domain.Product, bool, error) {
	raw, err := c.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Product{}, false, nil
	}
	if err != nil {
		return domain.Product{}, false, fmt.Errorf("cache: get %s: %w", id, err)
	}
	var product domain.Product
	if err := json.Unmarshal(raw, &product); err != nil {
		// A corrupt entry is treated as a miss and overwritten by the caller.
		return domain.Product{}, false, nil
	}
	return product, true, nil
}

// PutProduct stores product with the configured ttl.
func (c *RedisProductCache) PutProduct(ctx context.Context, product domain.Product) error {
	raw, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", product.ID, err)
	}
	if err := c.client.Set(ctx, key(product.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", product.ID, err)
	}
	return nil
}

// InvalidateProducts removes the given products from the cache.
func (c *RedisProductCache) InvalidateProducts(ctx context.Context, ids ...domain.ProductRef) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, key(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache: invalidate: %w", err)
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (c *RedisProductCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func key(id domain.ProductRef) string {
	return keyPrefix + string(id.Normalize())
}
