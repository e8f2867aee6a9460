package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"custodial-wallet-engine/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// IntentStore implements ports.IntentStore using Redis.
// Intents are JSON values under a TTL: previews that are never confirmed
// simply expire, and terminal intents age out with the retention TTL.
type IntentStore struct {
	client *goredis.Client
	prefix string
}

// NewIntentStore creates a new Redis-backed intent store.
func NewIntentStore(client *goredis.Client) *IntentStore {
	return &IntentStore{
		client: client,
		prefix: "intent:",
	}
}

// Save writes the intent, replacing any prior value and resetting the TTL.
func (s *IntentStore) Save(ctx context.Context, intent *domain.PaymentIntent, ttl time.Duration) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("marshal intent: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+intent.ID.String(), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis intent save: %w", err)
	}
	return nil
}

// Get retrieves an intent. Returns nil, nil when absent or expired.
func (s *IntentStore) Get(ctx context.Context, id uuid.UUID) (*domain.PaymentIntent, error) {
	val, err := s.client.Get(ctx, s.prefix+id.String()).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis intent get: %w", err)
	}

	var intent domain.PaymentIntent
	if err := json.Unmarshal(val, &intent); err != nil {
		return nil, fmt.Errorf("unmarshal intent: %w", err)
	}
	return &intent, nil
}

// Delete removes an intent (cancellation).
func (s *IntentStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, s.prefix+id.String()).Err(); err != nil {
		return fmt.Errorf("redis intent delete: %w", err)
	}
	return nil
}
