// Package ratelimit throttles the quote endpoint with a fixed-window limiter
// backed by Redis when available and process memory otherwise.
package ratelimit

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// DefaultPrefix namespaces limiter keys in Redis.
const DefaultPrefix = "ratelimit:quotes"

// NewStore returns a Redis store when client is non-nil, else an in-memory store.
func NewStore(client redis.UniversalClient, prefix string) (limiter.Store, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	opts := limiter.StoreOptions{Prefix: prefix}
	if client == nil {
		return memory.NewStoreWithOptions(opts), nil
	}
	store, err := limiterredis.NewStoreWithOptions(client, opts)
	if err != nil {
		return nil, fmt.Errorf("limiter redis store: %w", err)
	}
	return store, nil
}

// New builds a limiter for a formatted rate such as "120-M".
func New(store limiter.Store, formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", formatted, err)
	}
	return limiter.New(store, rate), nil
}
