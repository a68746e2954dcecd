package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"quotewall/internal/middleware"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

var loads singleflight.Group

// GetJSON decodes key into dest. It reports false on a miss, a missing client or undecodable data.
func GetJSON(ctx context.Context, key string, dest any) bool {
	if client == nil {
		return false
	}
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		middleware.Logger.WarnContext(ctx, "cache entry undecodable, ignoring", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return true
}

// SetJSON stores value under key. Failures are logged and otherwise ignored.
func SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if client == nil || ttl <= 0 {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache encode failed", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	if err := client.Set(ctx, key, raw, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Aside is read-through caching: on a hit dest is filled from Redis, otherwise fn fills dest
// and the result is stored for ttl. Concurrent misses on one key share a single fn call.
// Redis problems never fail the request.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fn func() error) error {
	if GetJSON(ctx, key, dest) {
		return nil
	}
	if client == nil {
		return fn()
	}

	raw, err, _ := loads.Do(key, func() (any, error) {
		if err := fn(); err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(dest)
		if err != nil {
			return nil, err
		}
		if ttl > 0 {
			if err := client.Set(ctx, key, encoded, ttl).Err(); err != nil {
				middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
			}
		}
		return encoded, nil
	})
	if err != nil {
		return err
	}
	// Callers that shared another caller's load decode its result into their own dest.
	return json.Unmarshal(raw.([]byte), dest)
}
