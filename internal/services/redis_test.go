package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

func TestRedisCache_GetOrSet(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	calls := 0
	load := func() (int, error) {
		calls++
		return 42, nil
	}

	v, err := GetOrSet(cache, ctx, "answer", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = GetOrSet(cache, ctx, "answer", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)

	mr.FastForward(2 * time.Minute)
	_, err = GetOrSet(cache, ctx, "answer", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRedisCache_GetOrSetKeepsConcurrentWrite(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	v, err := GetOrSet(cache, ctx, "status", time.Minute, func() (string, error) {
		require.NoError(t, cache.Set(ctx, "status", "paid", time.Minute))
		return "pending", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", v)

	var cached string
	require.NoError(t, cache.Get(ctx, "status", &cached))
	assert.Equal(t, "paid", cached)
}

func TestRedisCache_GetOrSetDoesNotCacheErrors(t *testing.T) {
	cache, mr := newTestCache(t)

	_, err := GetOrSet(cache, context.Background(), "k", time.Minute, func() (string, error) {
		return "", errors.New("boom")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists("k"))
}

func TestRedisCache_SetNX(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	ok, err := cache.SetNX(ctx, "lock", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.SetNX(ctx, "lock", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Delete(ctx, "lock"))
	ok, err = cache.SetNX(ctx, "lock", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisCache_GetMissing(t *testing.T) {
	cache, _ := newTestCache(t)

	var v string
	err := cache.Get(context.Background(), "nope", &v)
	assert.ErrorIs(t, err, redis.Nil)
	assert.NoError(t, cache.Delete(context.Background()))
}

func TestNewRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)

	cache, err := NewRedisCache("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	defer cache.Close()

	require.NoError(t, cache.Set(context.Background(), "k", map[string]string{"a": "b"}, 0))
	var got map[string]string
	require.NoError(t, cache.Get(context.Background(), "k", &got))
	assert.Equal(t, "b", got["a"])

	_, err = NewRedisCache("not a url")
	assert.Error(t, err)
}
