package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	errx "github.com/Chative-core-poc-v1/companion/internal/core/error"
	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
)

const defaultRetryInterval = 50 * time.Millisecond

// RedisLocker is a Locker shared by every instance that points at the same
// Redis. A lock is a key set with NX and a TTL; release deletes it only while
// the caller's token still owns it.
type RedisLocker struct {
	rdb   redis.Cmdable
	ttl   time.Duration
	retry time.Duration
}

func NewRedisLocker(rdb redis.Cmdable, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisLocker{rdb: rdb, ttl: ttl, retry: defaultRetryInterval}
}

func (l *RedisLocker) lockKey(key string) string {
	return fmt.Sprintf("lock:user:%s", key)
}

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock polls until the key is acquired or ctx ends.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	name := l.lockKey(key)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.rdb.SetNX(ctx, name, token, l.ttl).Result()
		if err != nil {
			return nil, errx.WrapRedis(err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// detached so a cancelled request still releases its lock
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := unlockScript.Run(releaseCtx, l.rdb, []string{name}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				logx.Warn().Err(err).Str("lock", name).Msg("failed to release user lock; it will expire")
			}
		})
	}, nil
}

var _ Locker = (*RedisLocker)(nil)
