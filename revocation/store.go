package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrAlreadyRevoked is returned by [Store.Consume] when the token id is
// already present in the revocation record.
var ErrAlreadyRevoked = errors.New("token id already revoked")

// ErrRedisUnavailable wraps transport and server failures from Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Entries never live shorter than this, so a token consumed at the very
// edge of its validity window still blocks an immediate replay.
const minEntryTTL = time.Second

// Store is the Redis-backed revocation record for refresh token ids.
// Each consumed or revoked id is a key with TTL equal to the token's
// remaining validity, after which the token is expired anyway and the
// entry is garbage.
//
// Consume relies on Redis SET NX for its atomicity guarantee: of any
// number of concurrent consumers of the same id, exactly one observes
// success.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a revocation [Store] backed by the given Redis client.
// prefix sets the Redis key namespace.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "arv"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Store) key(tokenID string) string {
	return s.prefix + ":" + tokenID
}

// Consume marks tokenID as used. Exactly one Consume per id succeeds;
// every later call returns [ErrAlreadyRevoked] until the entry's TTL
// lapses, which coincides with the token's own expiry.
//
//	Performance: 1 Redis SET NX PX.
func (s *Store) Consume(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" {
		return errors.New("empty token id")
	}
	if ttl < minEntryTTL {
		ttl = minEntryTTL
	}

	ok, err := s.redis.SetNX(ctx, s.key(tokenID), 1, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return ErrAlreadyRevoked
	}

	return nil
}

// Revoke unconditionally marks tokenID as revoked. Used by logout and
// account-status invalidation, where idempotency matters more than
// first-writer detection.
func (s *Store) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" {
		return errors.New("empty token id")
	}
	if ttl < minEntryTTL {
		ttl = minEntryTTL
	}

	if err := s.redis.Set(ctx, s.key(tokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// IsRevoked reports whether tokenID is present in the revocation record.
func (s *Store) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
