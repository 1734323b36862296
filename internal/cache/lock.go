package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld 锁已被其他实例持有
var ErrLockHeld = errors.New("distributed lock held by another instance")

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock 基于 SET NX 的分布式锁
type Lock struct {
	key   string
	token string
}

// AcquireLock 尝试获取锁；缓存未启用时直接返回一个空锁（单实例部署）
func AcquireLock(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	lock := &Lock{key: key, token: uuid.NewString()}
	if !Enabled() {
		return lock, nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	ok, err := redisClient.SetNX(ctx, buildKey(key), lock.token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis set lock nx: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return lock, nil
}

// Release 释放锁，仅删除自己持有的锁
func (l *Lock) Release(ctx context.Context) error {
	if l == nil || !Enabled() {
		return nil
	}
	if err := releaseLockScript.Run(ctx, redisClient, []string{buildKey(l.key)}, l.token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("redis release lock: %w", err)
	}
	return nil
}
