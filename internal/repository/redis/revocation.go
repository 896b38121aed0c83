// Package redis implements repository.RevocationStore on Redis.
//
// Each revoked token is a key with a TTL matching the token's remaining
// lifetime, so Redis drops it once the token could no longer be used anyway.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vibecoders/vibecoders/internal/repository"
)

const revokedKeyPrefix = "vibecoders:revoked:" // vibecoders:revoked:{token_id}

// RevocationStore keeps revoked token IDs in Redis.
type RevocationStore struct {
	client *redis.Client
}

var _ repository.RevocationStore = (*RevocationStore)(nil)

// NewRevocationStore wraps an existing client. The caller owns the client.
func NewRevocationStore(client *redis.Client) *RevocationStore {
	return &RevocationStore{client: client}
}

// Dial connects to addr and pings it before returning.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: pinging %s: %w", addr, err)
	}
	return client, nil
}

// Revoke records tokenID until expiresAt. A token that has already expired
// needs no record.
func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revokedKeyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis: revoking token %s: %w", tokenID, err)
	}
	return nil
}

func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis: checking token %s: %w", tokenID, err)
	}
	return n > 0, nil
}

// PurgeExpired is a no-op: key TTLs already remove expired revocations.
func (s *RevocationStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}
