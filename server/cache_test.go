package server

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/scraper"
)

func TestNewCacheSelection(t *testing.T) {
	cfg := config.DefaultConfig()
	require.IsType(t, &LRUCache{}, NewCache(cfg))

	cfg.CacheSize = 0
	require.Nil(t, NewCache(cfg))

	cfg.RedisAddr = "127.0.0.1:6379"
	c := NewCache(cfg)
	require.IsType(t, &RedisCache{}, c)
	require.NoError(t, c.(*RedisCache).Close())

	require.Nil(t, NewCache(nil))
}

func TestLRUCacheExpires(t *testing.T) {
	c := NewLRUCache(2, 20*time.Millisecond)
	ctx := context.Background()

	c.Add(ctx, "k", sampleSet())
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, sampleSet(), got)

	require.Eventually(t, func() bool {
		_, ok := c.Get(ctx, "k")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisCache(mr.Addr(), "", 0, time.Minute)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	_, ok := c.Get(ctx, "missing")
	require.False(t, ok)

	set := sampleSet()
	c.Add(ctx, "0451524934|u|3", set)

	require.True(t, mr.Exists(redisKeyPrefix+"0451524934|u|3"))
	require.Equal(t, time.Minute, mr.TTL(redisKeyPrefix+"0451524934|u|3"))

	got, ok := c.Get(ctx, "0451524934|u|3")
	require.True(t, ok)
	require.Equal(t, set.Sentiments, got.Sentiments)
	require.Equal(t, set.Flatten(), got.Flatten())
	require.Equal(t, set.BySource[models.SourceStorefront].TotalPages, got.BySource[models.SourceStorefront].TotalPages)

	mr.FastForward(2 * time.Minute)
	_, ok = c.Get(ctx, "0451524934|u|3")
	require.False(t, ok)
}

func TestRedisCacheTreatsFailuresAsMisses(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisCache(mr.Addr(), "", 0, time.Minute)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	require.NoError(t, mr.Set(redisKeyPrefix+"bad", "not json"))
	_, ok := c.Get(ctx, "bad")
	require.False(t, ok)

	down := NewRedisCache("127.0.0.1:1", "", 0, time.Minute)
	t.Cleanup(func() { _ = down.Close() })
	down.Add(ctx, "k", sampleSet())
	_, ok = down.Get(ctx, "k")
	require.False(t, ok)
}

func TestServerSharesRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.DefaultConfig()
	cfg.RedisAddr = mr.Addr()

	first := &fakeAggregator{set: sampleSet()}
	second := &fakeAggregator{set: sampleSet()}
	a := New(first, cfg, scraper.NewMetrics())
	b := New(second, cfg, nil)
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})

	srvA := newHTTPTestServer(t, a)
	srvB := newHTTPTestServer(t, b)

	resp, _ := get(t, srvA.URL+"/v1/reviews/0451524934")
	require.Equal(t, "miss", resp.Header.Get("X-Cache"))
	resp, _ = get(t, srvB.URL+"/v1/reviews/0451524934")
	require.Equal(t, "hit", resp.Header.Get("X-Cache"))

	require.Equal(t, 1, first.callCount())
	require.Equal(t, 0, second.callCount())
}
