package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const activationKeyPrefix = "aat"

// ErrActivationRedisUnavailable wraps Redis failures from ActivationLedger.
var ErrActivationRedisUnavailable = errors.New("activation ledger redis unavailable")

// ActivationLedger remembers which activation tokens have been redeemed.
//
// Entries are keyed by token id and expire together with the token, so the
// ledger never grows beyond the set of still-valid tokens.
type ActivationLedger struct {
	redis  redis.UniversalClient
	prefix string
}

// NewActivationLedger returns a ledger. An empty prefix selects the default.
func NewActivationLedger(client redis.UniversalClient, prefix string) *ActivationLedger {
	if prefix == "" {
		prefix = activationKeyPrefix
	}
	return &ActivationLedger{redis: client, prefix: prefix}
}

func (l *ActivationLedger) key(tokenID string) string {
	return l.prefix + ":" + tokenID
}

// Mark records tokenID as redeemed. It returns false when the token was
// already marked. ttl is clamped to at least one second.
func (l *ActivationLedger) Mark(ctx context.Context, tokenID string, ttl time.Duration) (bool, error) {
	if tokenID == "" {
		return false, errors.New("activation ledger: empty token id")
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	ok, err := l.redis.SetNX(ctx, l.key(tokenID), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrActivationRedisUnavailable, err)
	}
	return ok, nil
}

// Release removes a mark so the token can be redeemed again.
func (l *ActivationLedger) Release(ctx context.Context, tokenID string) error {
	if err := l.redis.Del(ctx, l.key(tokenID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrActivationRedisUnavailable, err)
	}
	return nil
}
