package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ad-checkout/internal/pricing"
)

const cacheKeyPrefix = "catalog:v1:"

// Cache wraps Redis helpers for JSON payloads.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client disables caching.
func NewCache(client redis.UniversalClient, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if !c.enabled() || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if !c.enabled() || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Cached is a read-through Redis decorator over another Catalog. Only
// successful lookups are cached; misses and store errors always reach the
// source. Redis failures are logged and bypassed.
type Cached struct {
	source Catalog
	cache  *Cache
	logger zerolog.Logger
}

// NewCached decorates source with cache.
func NewCached(source Catalog, cache *Cache, logger *zerolog.Logger) *Cached {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "catalog_cache").Logger()
	}
	return &Cached{source: source, cache: cache, logger: l}
}

func (c *Cached) Product(ctx context.Context, code string) (Product, error) {
	return readThrough(ctx, c, productKey(code), func(ctx context.Context) (Product, error) {
		return c.source.Product(ctx, code)
	})
}

func (c *Cached) Customer(ctx context.Context, id int64) (Customer, error) {
	return readThrough(ctx, c, customerKey(id), func(ctx context.Context) (Customer, error) {
		return c.source.Customer(ctx, id)
	})
}

func (c *Cached) PriceDeals(ctx context.Context, customerID int64) ([]pricing.PriceOverrideDeal, error) {
	return readThrough(ctx, c, priceDealsKey(customerID), func(ctx context.Context) ([]pricing.PriceOverrideDeal, error) {
		return c.source.PriceDeals(ctx, customerID)
	})
}

func (c *Cached) BulkDeals(ctx context.Context, customerID int64) ([]pricing.BulkDeal, error) {
	return readThrough(ctx, c, bulkDealsKey(customerID), func(ctx context.Context) ([]pricing.BulkDeal, error) {
		return c.source.BulkDeals(ctx, customerID)
	})
}

func readThrough[T any](ctx context.Context, c *Cached, key string, load func(context.Context) (T, error)) (T, error) {
	var cached T
	hit, err := c.cache.GetJSON(ctx, key, &cached)
	switch {
	case err != nil:
		c.logger.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
	case hit:
		return cached, nil
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if err := c.cache.SetJSON(ctx, key, v); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
	return v, nil
}

func productKey(code string) string {
	return cacheKeyPrefix + "product:" + code
}

func customerKey(id int64) string {
	return cacheKeyPrefix + "customer:" + strconv.FormatInt(id, 10)
}

func priceDealsKey(customerID int64) string {
	return cacheKeyPrefix + "deals:price:" + strconv.FormatInt(customerID, 10)
}

func bulkDealsKey(customerID int64) string {
	return cacheKeyPrefix + "deals:bulk:" + strconv.FormatInt(customerID, 10)
}
