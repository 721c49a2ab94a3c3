package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked_token:"

// RedisList is a Redis-backed revocation list. Entries expire via key TTL and
// revocations are visible across processes and survive restarts, closing the
// gaps the in-memory list has.
type RedisList struct {
	client redis.Cmdable
}

// NewRedis constructs a Redis-backed revocation list.
func NewRedis(client redis.Cmdable) *RedisList {
	return &RedisList{client: client}
}

func (l *RedisList) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" {
		return nil
	}
	if err := l.client.Set(ctx, revokedKeyPrefix+token, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (l *RedisList) IsRevoked(ctx context.Context, token string) (bool, error) {
	err := l.client.Get(ctx, revokedKeyPrefix+token).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return true, nil
}
