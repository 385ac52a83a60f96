package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "automaton:lock:"

// Lua script so we only delete our own lock.
const releaseScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

// RedisLock is a Redis-backed EntityLock for multi-instance deployments.
type RedisLock struct {
	client *redis.Client
}

// NewRedisLock creates an entity lock backed by the given Redis client.
func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{client: client}
}

// Acquire takes the lock with SET NX or returns ErrLockHeld.
func (l *RedisLock) Acquire(ctx context.Context, ruleID, entityID string, ttl time.Duration) (Lease, error) {
	lockID := uuid.New().String()
	key := lockKeyPrefix + ruleID + ":" + entityID

	acquired, err := l.client.SetNX(ctx, key, lockID, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire entity lock: %w", err)
	}

	if !acquired {
		return nil, ErrLockHeld
	}

	return &redisLease{client: l.client, key: key, lockID: lockID}, nil
}

type redisLease struct {
	client *redis.Client
	key    string
	lockID string
}

func (l *redisLease) Release(ctx context.Context) error {
	_, err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.lockID).Result()
	if err != nil {
		return fmt.Errorf("failed to release entity lock: %w", err)
	}

	return nil
}
