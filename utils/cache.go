// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"sync"
	"time"

	"seatbook/config"

	"github.com/go-redis/redis/v8"
)

var (
	// CacheClient backs the read caches (availability, booking lists).
	CacheClient *redis.Client
	// AuthCacheClient backs the session authority.
	AuthCacheClient *redis.Client
	// LockClient backs the seat lock store and the notifier relay.
	LockClient *redis.Client

	cacheOnce, authOnce, lockOnce sync.Once
)

func newRedisClient(db int, name string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (%s): %v", name, err)
	}
	return client
}

// GetCacheClient returns the generic cache client.
func GetCacheClient() *redis.Client {
	cacheOnce.Do(func() {
		CacheClient = newRedisClient(config.AppConfig.RedisCacheDB, "Cache")
	})
	return CacheClient
}

// GetAuthCacheClient returns the Redis client for session state.
func GetAuthCacheClient() *redis.Client {
	authOnce.Do(func() {
		AuthCacheClient = newRedisClient(config.AppConfig.RedisAuthDB, "Auth")
	})
	return AuthCacheClient
}

// GetLockClient returns the Redis client for seat locks.
func GetLockClient() *redis.Client {
	lockOnce.Do(func() {
		LockClient = newRedisClient(config.AppConfig.RedisLockDB, "Lock")
	})
	return LockClient
}

// InitRedis connects every Redis client up front so a bad address fails at boot.
func InitRedis() {
	GetCacheClient()
	GetAuthCacheClient()
	GetLockClient()
}

// CloseRedis closes whichever clients were opened.
func CloseRedis() {
	for _, c := range []*redis.Client{CacheClient, AuthCacheClient, LockClient} {
		if c != nil {
			_ = c.Close()
		}
	}
}
