package infrastructure

import (
	"context"
	"fmt"
	"time"

	"predictions/application"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockLua deletes the lock key only when it still holds the caller's token
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// RedisLockManager implements application.LockManager with SETNX and a TTL
type RedisLockManager struct {
	rdb      *redis.Client
	unlockSc *redis.Script
}

// NewRedisLockManager creates a lock manager backed by the given client
func NewRedisLockManager(rdb *redis.Client) *RedisLockManager {
	return &RedisLockManager{
		rdb:      rdb,
		unlockSc: redis.NewScript(unlockLua),
	}
}

func lockKey(key string) string {
	return "predictions:lock:" + key
}

// Acquire obtains the lock or returns application.ErrLockHeld. The returned
// unlock function is idempotent.
func (lm *RedisLockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	lk := lockKey(key)

	ok, err := lm.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, application.ErrLockHeld
	}

	released := false
	unlock := func() {
		if released {
			return
		}
		released = true

		// Background context so the release survives a cancelled caller
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = lm.unlockSc.Run(unlockCtx, lm.rdb, []string{lk}, token).Err()
	}

	return unlock, nil
}

var _ application.LockManager = (*RedisLockManager)(nil)
