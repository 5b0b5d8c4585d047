package catalog_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ad-checkout/internal/catalog"
	"github.com/noah-isme/ad-checkout/internal/pricing"
)

// countingCatalog records how often each lookup reaches the source.
type countingCatalog struct {
	catalog.Catalog
	calls map[string]int
}

func newCounting() *countingCatalog {
	return &countingCatalog{Catalog: catalog.Default(), calls: map[string]int{}}
}

func (c *countingCatalog) Product(ctx context.Context, code string) (catalog.Product, error) {
	c.calls["product"]++
	return c.Catalog.Product(ctx, code)
}

func (c *countingCatalog) Customer(ctx context.Context, id int64) (catalog.Customer, error) {
	c.calls["customer"]++
	return c.Catalog.Customer(ctx, id)
}

func (c *countingCatalog) BulkDeals(ctx context.Context, id int64) ([]pricing.BulkDeal, error) {
	c.calls["bulk"]++
	return c.Catalog.BulkDeals(ctx, id)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCachedReadThrough(t *testing.T) {
	mr, client := newRedis(t)
	src := newCounting()
	cached := catalog.NewCached(src, catalog.NewCache(client, time.Minute), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := cached.Product(ctx, "classic")
		require.NoError(t, err)
		require.Equal(t, 269.99, p.Price)

		deals, err := cached.BulkDeals(ctx, 5)
		require.NoError(t, err)
		require.Len(t, deals, 8)
	}
	require.Equal(t, 1, src.calls["product"])
	require.Equal(t, 1, src.calls["bulk"])
	require.True(t, mr.Exists("catalog:v1:product:classic"))
	require.True(t, mr.Exists("catalog:v1:deals:bulk:5"))
	require.Greater(t, mr.TTL("catalog:v1:product:classic"), time.Duration(0))
}

func TestCachedDoesNotCacheMisses(t *testing.T) {
	mr, client := newRedis(t)
	src := newCounting()
	cached := catalog.NewCached(src, catalog.NewCache(client, time.Minute), nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := cached.Customer(ctx, 404)
		require.ErrorIs(t, err, catalog.ErrNotFound)
	}
	require.Equal(t, 2, src.calls["customer"])
	require.False(t, mr.Exists("catalog:v1:customer:404"))
}

func TestCachedExpires(t *testing.T) {
	mr, client := newRedis(t)
	src := newCounting()
	cached := catalog.NewCached(src, catalog.NewCache(client, time.Minute), nil)
	ctx := context.Background()

	_, err := cached.Customer(ctx, 1)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = cached.Customer(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, src.calls["customer"])
}

func TestCachedBypassesBrokenRedis(t *testing.T) {
	mr, client := newRedis(t)
	src := newCounting()
	cached := catalog.NewCached(src, catalog.NewCache(client, time.Minute), nil)
	mr.Close()

	p, err := cached.Product(context.Background(), "premium")
	require.NoError(t, err)
	require.Equal(t, "premium", p.Code)
	require.Equal(t, 1, src.calls["product"])
}

func TestCachedIgnoresCorruptEntries(t *testing.T) {
	mr, client := newRedis(t)
	src := newCounting()
	cached := catalog.NewCached(src, catalog.NewCache(client, time.Minute), nil)
	require.NoError(t, mr.Set("catalog:v1:product:classic", "{not json"))

	p, err := cached.Product(context.Background(), "classic")
	require.NoError(t, err)
	require.Equal(t, "Classic Ad", p.Name)
	require.Equal(t, 1, src.calls["product"])
}

func TestCacheDisabled(t *testing.T) {
	var c *catalog.Cache
	hit, err := c.GetJSON(context.Background(), "k", &struct{}{})
	require.NoError(t, err)
	require.False(t, hit)
	require.NoError(t, c.SetJSON(context.Background(), "k", 1))

	src := newCounting()
	cached := catalog.NewCached(src, catalog.NewCache(nil, time.Minute), nil)
	_, err = cached.Product(context.Background(), "classic")
	require.NoError(t, err)
	_, err = cached.Product(context.Background(), "classic")
	require.NoError(t, err)
	require.Equal(t, 2, src.calls["product"])
}
