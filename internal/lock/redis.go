package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultTTL     = 5 * time.Minute
	releaseTimeout = 3 * time.Second
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every process talking to the same server.
// The TTL bounds how long a crashed holder keeps the lock.
type Redis struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
	Logger *zap.Logger
}

func (r *Redis) TryLock(ctx context.Context, key string) (Release, error) {
	if r == nil || r.Client == nil {
		return func() {}, nil
	}
	ttl := r.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	full := r.Prefix + key
	token := uuid.NewString()

	ok, err := r.Client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", full, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := releaseScript.Run(ctx, r.Client, []string{full}, token).Err(); err != nil && err != redis.Nil {
			r.logger().Warn("redis lock release failed", zap.String("key", full), zap.Error(err))
		}
	}, nil
}

func (r *Redis) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
