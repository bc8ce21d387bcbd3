package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const headerIdempotencyKey = "Idempotency-Key"

// RedisDeduper stores idempotency keys in Redis so every instance sees
// requests another instance already processed.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper using the provided Redis client and TTL.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (r *RedisDeduper) key(scope, key string) string {
	return fmt.Sprintf("idem:%s:%s", scope, key)
}

// Add records the key if it does not already exist. It returns true when the
// key was newly added.
func (r *RedisDeduper) Add(ctx context.Context, scope, key string) (bool, error) {
	return r.client.SetNX(ctx, r.key(scope, key), 1, r.ttl).Result()
}

// Remove deletes a previously recorded key so the caller may retry.
func (r *RedisDeduper) Remove(ctx context.Context, scope, key string) error {
	return r.client.Del(ctx, r.key(scope, key)).Err()
}

// idempotent rejects a repeated Idempotency-Key from the same user with 409.
// Requests without the header pass through. A failed request releases its key.
func idempotent(deduper Deduper, logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if deduper == nil {
			return next
		}
		return func(c echo.Context) error {
			key := c.Request().Header.Get(headerIdempotencyKey)
			if key == "" {
				return next(c)
			}
			ctx := c.Request().Context()
			scope := strconv.FormatInt(currentUser(c), 10) + ":" + c.Path()
			added, err := deduper.Add(ctx, scope, key)
			if err != nil {
				return fmt.Errorf("record idempotency key: %w", err)
			}
			if !added {
				return echo.NewHTTPError(http.StatusConflict, "duplicate request")
			}
			if err := next(c); err != nil {
				if rerr := deduper.Remove(context.WithoutCancel(ctx), scope, key); rerr != nil {
					logger.WithFields(log.Fields{"key": key, "error": rerr}).Error("dedupe rollback failed")
				}
				return err
			}
			return nil
		}
	}
}
