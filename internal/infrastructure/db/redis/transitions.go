package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hireloop/chatsync/internal/core/ports"
)

const (
	transitionKeyPrefix  = "chatsync:applied:"
	defaultTransitionTTL = 24 * time.Hour
)

// TransitionMarker records applied membership transitions in Redis so a
// redelivered event is skipped. Entries expire after the TTL; a redelivery
// that arrives later than that is applied again, which is harmless since
// invite and kick are idempotent against the homeserver.
type TransitionMarker struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ports.TransitionMarker = (*TransitionMarker)(nil)

func NewTransitionMarker(client *redis.Client, ttl time.Duration) *TransitionMarker {
	if ttl <= 0 {
		ttl = defaultTransitionTTL
	}
	return &TransitionMarker{client: client, ttl: ttl}
}

func (m *TransitionMarker) IsApplied(ctx context.Context, key string) (bool, error) {
	n, err := m.client.Exists(ctx, transitionKeyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("transition marker check: %w", err)
	}
	return n > 0, nil
}

func (m *TransitionMarker) MarkApplied(ctx context.Context, key string) error {
	if err := m.client.Set(ctx, transitionKeyPrefix+key, 1, m.ttl).Err(); err != nil {
		return fmt.Errorf("transition marker set: %w", err)
	}
	return nil
}
