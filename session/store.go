package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps any transport or server failure from Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrNotFound is returned when no record exists for an account.
var ErrNotFound = errors.New("session record not found")

// Store keeps one remember-me record per account.
//
// Keys are prefix+accountID. A record is overwritten on every Put, so at most
// one durable session exists per account.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore returns a Store. An empty prefix keys records by the bare account id.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) key(accountID string) string {
	return s.prefix + accountID
}

// Put stores value for accountID. A ttl of zero keeps the record until it is
// overwritten or deleted.
func (s *Store) Put(ctx context.Context, accountID string, value []byte, ttl time.Duration) error {
	if accountID == "" {
		return errors.New("session: empty account id")
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.redis.Set(ctx, s.key(accountID), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get returns the stored value, or ErrNotFound.
func (s *Store) Get(ctx context.Context, accountID string) ([]byte, error) {
	data, err := s.redis.Get(ctx, s.key(accountID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return data, nil
}

// Delete removes the record. Deleting a missing record is not an error.
func (s *Store) Delete(ctx context.Context, accountID string) error {
	if err := s.redis.Del(ctx, s.key(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// TTL reports the remaining lifetime of a record. ok is false when the record
// does not exist; a zero duration with ok=true means no expiry.
func (s *Store) TTL(ctx context.Context, accountID string) (time.Duration, bool, error) {
	d, err := s.redis.TTL(ctx, s.key(accountID)).Result()
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	switch {
	case d == -2:
		return 0, false, nil
	case d < 0:
		return 0, true, nil
	}
	return d, true, nil
}

// Ping measures a round trip to Redis.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
