package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"strconv"       // Generation formatting
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// GetCache retrieves a value from Redis and unmarshals it into dest.
// A nil client behaves as an empty cache.
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil
	}
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	if rdb == nil {
		return nil
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes keys from Redis
func DeleteCache(ctx context.Context, rdb *redis.Client, keys ...string) error {
	if rdb == nil || len(keys) == 0 {
		return nil
	}
	return rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// Generation returns the current generation of a cache namespace.
// Keys built with it go stale together when BumpGeneration is called.
func Generation(ctx context.Context, rdb *redis.Client, namespace string) string {
	if rdb == nil {
		return "0"
	}
	n, err := rdb.Get(ctx, namespace+":gen").Int64()
	if err != nil {
		return "0" // Missing key or Redis error, both read as generation zero
	}
	return strconv.FormatInt(n, 10)
}

// BumpGeneration invalidates every key built from the namespace's current generation
func BumpGeneration(ctx context.Context, rdb *redis.Client, namespace string) error {
	if rdb == nil {
		return nil
	}
	return rdb.Incr(ctx, namespace+":gen").Err()
}
