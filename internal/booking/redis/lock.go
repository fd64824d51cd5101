package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis holds a short-lived advisory lock per space around the booking
// critical section. The lock sheds concurrent contenders cheaply; the store
// transaction remains the authoritative guard, so a lost lock is never a
// correctness problem.
type Redis struct {
	Client *redis.Client
	TTL    time.Duration
}

const defaultTTL = 30 * time.Second

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{Client: client, TTL: ttl}
}

func lockKey(spaceID string) string {
	return "space_lock:" + spaceID
}

// LockSpace acquires the lock for a space, keyed by the caller's token so
// only the holder can release it. Returns false without error when another
// booker holds the lock.
func (r *Redis) LockSpace(ctx context.Context, spaceID, token string) (bool, error) {
	return r.Client.SetNX(ctx, lockKey(spaceID), token, r.TTL).Result()
}

// UnlockSpace releases the lock if the token matches the holder. Releasing
// an already-expired or foreign lock is a no-op.
func (r *Redis) UnlockSpace(ctx context.Context, spaceID, token string) error {
	key := lockKey(spaceID)
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if val == token {
		_, err = r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}
