// Package lock provides per-key mutual exclusion across API and worker processes
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseScript deletes the key only while it still holds the caller's token
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// redisClient is the part of *redis.Client the locker needs
type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// ReleaseFunc gives a held lock back
type ReleaseFunc func(ctx context.Context) error

// RedisLocker hands out expiring tokens stored under "<prefix><key>"
type RedisLocker struct {
	rdb    redisClient
	prefix string
	ttl    time.Duration
}

// NewRedisLocker creates a locker. The TTL bounds how long a crashed holder
// keeps the key.
func NewRedisLocker(rdb redisClient, prefix string, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}
}

// TryLock acquires key without waiting. ok is false when someone else holds it.
func (l *RedisLocker) TryLock(ctx context.Context, key string) (ReleaseFunc, bool, error) {
	token := uuid.NewString()
	redisKey := l.prefix + key

	ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", redisKey, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if err := l.rdb.Eval(ctx, releaseScript, []string{redisKey}, token).Err(); err != nil {
			return fmt.Errorf("failed to release lock %s: %w", redisKey, err)
		}
		return nil
	}
	return release, true, nil
}
