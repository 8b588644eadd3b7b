package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/cache"
)

type stats struct {
	Count int64 `json:"count"`
}

func newCache(t *testing.T, ttl time.Duration) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return cache.New(client, ttl, logger.NewNop()), mr
}

func counting(calls *int, v stats) func(context.Context) (stats, error) {
	return func(context.Context) (stats, error) {
		*calls++
		return v, nil
	}
}

func TestFetch_ReadThrough(t *testing.T) {
	t.Parallel()

	c, mr := newCache(t, time.Minute)
	key := cache.Key("statistics", "project1")
	calls := 0

	got, err := cache.Fetch(context.Background(), c, key, counting(&calls, stats{Count: 3}))
	require.NoError(t, err)
	assert.Equal(t, stats{Count: 3}, got)

	got, err = cache.Fetch(context.Background(), c, key, counting(&calls, stats{Count: 99}))
	require.NoError(t, err)
	assert.Equal(t, stats{Count: 3}, got)
	assert.Equal(t, 1, calls)

	assert.Equal(t, "metadata-search:statistics:project1", key)
	assert.Equal(t, time.Minute, mr.TTL(key))
}

func TestFetch_Expires(t *testing.T) {
	t.Parallel()

	c, mr := newCache(t, time.Minute)
	key := cache.Key("size", "project1")
	calls := 0

	_, err := cache.Fetch(context.Background(), c, key, counting(&calls, stats{Count: 1}))
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	got, err := cache.Fetch(context.Background(), c, key, counting(&calls, stats{Count: 2}))
	require.NoError(t, err)
	assert.Equal(t, stats{Count: 2}, got)
	assert.Equal(t, 2, calls)
}

func TestFetch_LoadErrorNotCached(t *testing.T) {
	t.Parallel()

	c, mr := newCache(t, time.Minute)
	key := cache.Key("activity", "project1")
	boom := errors.New("boom")

	_, err := cache.Fetch(context.Background(), c, key, func(context.Context) (stats, error) {
		return stats{}, boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(key))
}

func TestFetch_RedisDownFallsThrough(t *testing.T) {
	t.Parallel()

	c, mr := newCache(t, time.Minute)
	mr.Close()
	calls := 0

	got, err := cache.Fetch(context.Background(), c, cache.Key("statistics", "p"), counting(&calls, stats{Count: 5}))
	require.NoError(t, err)
	assert.Equal(t, stats{Count: 5}, got)
	assert.Equal(t, 1, calls)
}

func TestFetch_CorruptEntryReloads(t *testing.T) {
	t.Parallel()

	c, mr := newCache(t, time.Minute)
	key := cache.Key("statistics", "p")
	require.NoError(t, mr.Set(key, "{not json"))
	calls := 0

	got, err := cache.Fetch(context.Background(), c, key, counting(&calls, stats{Count: 7}))
	require.NoError(t, err)
	assert.Equal(t, stats{Count: 7}, got)
	assert.Equal(t, 1, calls)
}

func TestFetch_NilCache(t *testing.T) {
	t.Parallel()

	var c *cache.Cache
	calls := 0

	for range 2 {
		_, err := cache.Fetch(context.Background(), c, "k", counting(&calls, stats{}))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}
