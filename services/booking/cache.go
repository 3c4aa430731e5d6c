package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ReadCache stores derived read models. Entries are dropped, never updated in
// place, whenever the underlying bookings change.
//
// Every key carries a generation that Del bumps. A reader takes the
// generation before querying the store and fills the entry with SetAt, which
// refuses the write if a Del happened in between.
type ReadCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Generation(ctx context.Context, key string) (int64, error)
	SetAt(ctx context.Context, key string, v any, ttl time.Duration, gen int64) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// generationTTL outlives any cache fill by a wide margin.
const generationTTL = 24 * time.Hour

// KEYS[1] entry, KEYS[2] generation; ARGV[1] value, ARGV[2] ttl ms, ARGV[3] gen.
var setAtGeneration = redis.NewScript(`
local g = tonumber(redis.call('GET', KEYS[2]) or '0')
if g ~= tonumber(ARGV[3]) then
	return 0
end
if tonumber(ARGV[2]) > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// KEYS[1..n] entries followed by their n generations; ARGV[1] generation ttl ms.
var dropAndBump = redis.NewScript(`
local n = #KEYS / 2
for i = 1, n do
	redis.call('DEL', KEYS[i])
	redis.call('INCR', KEYS[n + i])
	redis.call('PEXPIRE', KEYS[n + i], ARGV[1])
end
return n
`)

func generationKey(key string) string {
	return key + ":gen"
}

func availabilityCacheKey(tripID, date string) string {
	return fmt.Sprintf("availability:%s:%s", tripID, date)
}

func ownerBookingsCacheKey(accountID string) string {
	return "bookings:owner:" + accountID
}

// RedisReadCache is a JSON read cache over Redis.
type RedisReadCache struct {
	client redis.UniversalClient
}

func NewRedisReadCache(client redis.UniversalClient) *RedisReadCache {
	return &RedisReadCache{client: client}
}

func (c *RedisReadCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// Treat a corrupt entry as a miss; the caller rewrites it.
		return false, nil
	}
	return true, nil
}

func (c *RedisReadCache) Generation(ctx context.Context, key string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(key)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

func (c *RedisReadCache) SetAt(ctx context.Context, key string, v any, ttl time.Duration, gen int64) (bool, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	stored, err := setAtGeneration.Run(ctx, c.client,
		[]string{key, generationKey(key)},
		string(data), ttl.Milliseconds(), gen,
	).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

func (c *RedisReadCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	all := make([]string, 0, 2*len(keys))
	all = append(all, keys...)
	for _, key := range keys {
		all = append(all, generationKey(key))
	}
	return dropAndBump.Run(ctx, c.client, all, generationTTL.Milliseconds()).Err()
}
