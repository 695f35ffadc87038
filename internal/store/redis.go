package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKV keeps session state in Redis. Used by kiosk fleets that share
// state centrally instead of on the device.
type RedisKV struct {
	Client *redis.Client
	prefix string
}

// NewRedisKV connects to redis with short timeouts.
func NewRedisKV(addr, prefix string) *RedisKV {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	if prefix == "" {
		prefix = "clockin:"
	}
	return &RedisKV{Client: client, prefix: prefix}
}

// Get returns the stored value or ErrNotFound.
func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.Client.Get(ctx, r.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", err
	}
	return v, nil
}

// Set stores a value.
func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	return r.Client.Set(ctx, r.prefix+key, value, 0).Err()
}

// Remove deletes keys; missing keys are not an error.
func (r *RedisKV) Remove(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.prefix + k
	}
	return r.Client.Del(ctx, full...).Err()
}

// Healthy verifies redis connectivity.
func (r *RedisKV) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}
