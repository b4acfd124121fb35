package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// revocationPrefix is the Redis key prefix for per-user logout records.
	revocationPrefix = "auth:logout:"
	// revocationSkew keeps the record alive slightly past token expiry so a
	// token issued just before logout can never outlive its revocation.
	revocationSkew = 5 * time.Minute
)

// RecordLogout stores the user's logout timestamp. Tokens issued before this
// instant are rejected. ttl should be the token lifetime; the record expires
// once no outstanding token could still reference it.
func (c *Cache) RecordLogout(ctx context.Context, userID string, at time.Time, ttl time.Duration) error {
	key := revocationPrefix + userID
	value := strconv.FormatInt(at.UTC().Unix(), 10)

	if err := c.client.Set(ctx, key, value, ttl+revocationSkew).Err(); err != nil {
		return fmt.Errorf("record logout for %s: %w", userID, err)
	}
	return nil
}

// LastLogout returns the user's most recent logout time, or the zero time if
// none is recorded.
func (c *Cache) LastLogout(ctx context.Context, userID string) (time.Time, error) {
	key := revocationPrefix + userID

	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("read logout for %s: %w", userID, err)
	}

	unix, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		// Corrupted record - treat as absent rather than locking the user out.
		return time.Time{}, nil
	}
	return time.Unix(unix, 0).UTC(), nil
}
