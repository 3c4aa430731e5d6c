package booking

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisReadCache_SetAtRespectsGeneration(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewRedisReadCache(client)
	ctx := context.Background()
	key := availabilityCacheKey("bus-1", testDate)

	gen, err := cache.Generation(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	stored, err := cache.SetAt(ctx, key, []int{1, 2}, time.Minute, gen)
	require.NoError(t, err)
	assert.True(t, stored)

	var got []int
	hit, err := cache.Get(ctx, key, &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []int{1, 2}, got)

	// A reader that started before this Del must not repopulate the key.
	require.NoError(t, cache.Del(ctx, key))
	stored, err = cache.SetAt(ctx, key, []int{1, 2}, time.Minute, gen)
	require.NoError(t, err)
	assert.False(t, stored)
	hit, err = cache.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, hit)

	gen, err = cache.Generation(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
	stored, err = cache.SetAt(ctx, key, []int{1, 2, 3}, time.Minute, gen)
	require.NoError(t, err)
	assert.True(t, stored)

	mr.FastForward(2 * time.Minute)
	hit, err = cache.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, hit, "entries expire with their ttl")
}
