// Package cache holds the Redis-backed availability cache shared between
// service instances.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/room-booking/internal/application"
)

const (
	// DefaultPrefix namespaces availability keys.
	DefaultPrefix = "booking:availability:"
	// DefaultTTL bounds how long a computed answer may be served.
	DefaultTTL = 30 * time.Second
)

// NewRedisClient connects to addr and pings it with a short timeout. It
// returns nil when the server cannot be reached so callers can fall back to
// the in-process cache.
func NewRedisClient(ctx context.Context, addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}

// RedisAvailability implements application.AvailabilityCache with one hash
// per date. Each field is a slot query; the whole hash expires after the TTL
// and is deleted when a booking on that date changes.
type RedisAvailability struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisAvailability wraps client. A nil client turns every call into a
// miss or a no-op.
func NewRedisAvailability(client redis.Cmdable, prefix string, ttl time.Duration, logger *slog.Logger) *RedisAvailability {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisAvailability{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// DateKey returns the hash key holding all cached answers for date.
func (c *RedisAvailability) DateKey(date string) string {
	return c.prefix + date
}

// Get returns the cached answer for key. Transport errors count as misses.
func (c *RedisAvailability) Get(ctx context.Context, key application.AvailabilityKey) ([]application.RoomAvailability, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	raw, err := c.client.HGet(ctx, c.DateKey(key.Date), key.Field()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "availability cache read failed", "date", key.Date, "error", err)
		}
		return nil, false
	}

	var results []application.RoomAvailability
	if err := json.Unmarshal(raw, &results); err != nil {
		c.logger.WarnContext(ctx, "discarding undecodable availability entry", "date", key.Date, "error", err)
		return nil, false
	}
	return results, true
}

// Store writes results under key and refreshes the expiry of its date.
func (c *RedisAvailability) Store(ctx context.Context, key application.AvailabilityKey, results []application.RoomAvailability) {
	if c == nil || c.client == nil {
		return
	}

	payload, err := json.Marshal(results)
	if err != nil {
		c.logger.WarnContext(ctx, "availability cache encode failed", "date", key.Date, "error", err)
		return
	}

	dateKey := c.DateKey(key.Date)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, dateKey, key.Field(), payload)
		pipe.Expire(ctx, dateKey, c.ttl)
		return nil
	})
	if err != nil {
		c.logger.WarnContext(ctx, "availability cache write failed", "date", key.Date, "error", err)
	}
}

// InvalidateDate drops every cached answer for date.
func (c *RedisAvailability) InvalidateDate(ctx context.Context, date string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, c.DateKey(date)).Err(); err != nil {
		c.logger.WarnContext(ctx, "availability cache invalidation failed", "date", date, "error", err)
	}
}

var _ application.AvailabilityCache = (*RedisAvailability)(nil)
