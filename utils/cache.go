// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"innkeep/config"

	"github.com/go-redis/redis/v8"
)

var (
	// SessionCacheClient stores in-flight booking sessions.
	SessionCacheClient *redis.Client
	// RatesCacheClient caches rate tables and FX rates.
	RatesCacheClient *redis.Client
)

// InitSessionCache initializes the Redis client for booking sessions.
func InitSessionCache() {
	SessionCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisSessionDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := SessionCacheClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (Session Cache): %v", err)
	}
}

// GetSessionCacheClient returns the booking-session cache client.
func GetSessionCacheClient() *redis.Client {
	if SessionCacheClient == nil {
		InitSessionCache()
	}
	return SessionCacheClient
}

// InitRatesCache initializes the Redis client for rate-table and FX caching.
func InitRatesCache() {
	RatesCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisRatesDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := RatesCacheClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (Rates Cache): %v", err)
	}
}

// GetRatesCacheClient returns the rates cache client.
func GetRatesCacheClient() *redis.Client {
	if RatesCacheClient == nil {
		InitRatesCache()
	}
	return RatesCacheClient
}

// InitRedis brings up all Redis clients at startup.
func InitRedis() {
	InitSessionCache()
	InitRatesCache()
}
