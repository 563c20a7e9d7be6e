package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	redisKeyPrefix     = "lock:"
	redisRetryInterval = 25 * time.Millisecond
	redisReleaseWait   = 2 * time.Second
)

// releaseScript deletes the key only while it still holds our token,
// so an expired lock taken over by another holder is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every process using the same Redis instance.
// A lock expires after ttl so a crashed holder cannot block a resource forever.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a Redis client for the given address.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	if l.client == nil {
		return nil, errors.New("redis client is nil")
	}

	redisKey := redisKeyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(redisRetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
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

	return func() {
		// The caller's context may already be done; release on a short detached context.
		releaseCtx, cancel := context.WithTimeout(context.Background(), redisReleaseWait)
		defer cancel()

		if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to release redis lock")
		}
	}, nil
}
