package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ExecutionGuard implements ports.ExecutionGuard using Redis SET NX.
// One slot per intent id; the guard is never released, so a settled or
// timed-out payment can never be executed a second time.
type ExecutionGuard struct {
	client *goredis.Client
	prefix string
}

// NewExecutionGuard creates a new Redis-backed execution guard.
func NewExecutionGuard(client *goredis.Client) *ExecutionGuard {
	return &ExecutionGuard{
		client: client,
		prefix: "intent-exec:",
	}
}

// Acquire atomically claims the execution slot for an intent.
// Returns true for the first caller, false for everyone after.
func (g *ExecutionGuard) Acquire(ctx context.Context, intentID string, ttl time.Duration) (bool, error) {
	result, err := g.client.SetArgs(ctx, g.prefix+intentID, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists — execution already started
			return false, nil
		}
		return false, fmt.Errorf("redis execution guard: %w", err)
	}
	return result == "OK", nil
}
