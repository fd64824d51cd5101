package redis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a Redis client backed by miniredis so tests never
// need a real server.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	return client, mr
}

func cleanupTestRedis(client *redis.Client, mr *miniredis.Miniredis) {
	if client != nil {
		client.Close()
	}
	if mr != nil {
		mr.Close()
	}
}

func TestLockSpace_MutualExclusion(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := NewRedis(client, 30*time.Second)
	ctx := context.Background()

	locked, err := r.LockSpace(ctx, "space-1", "res-1")
	require.NoError(t, err)
	assert.True(t, locked, "First contender should acquire the lock")

	locked, err = r.LockSpace(ctx, "space-1", "res-2")
	require.NoError(t, err)
	assert.False(t, locked, "Second contender should be shed")

	// A different space is independent.
	locked, err = r.LockSpace(ctx, "space-2", "res-2")
	require.NoError(t, err)
	assert.True(t, locked)

	require.NoError(t, r.UnlockSpace(ctx, "space-1", "res-1"))

	locked, err = r.LockSpace(ctx, "space-1", "res-3")
	require.NoError(t, err)
	assert.True(t, locked, "Lock should be free after unlock")
}

func TestUnlockSpace_OnlyHolderReleases(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := NewRedis(client, 30*time.Second)
	ctx := context.Background()

	locked, err := r.LockSpace(ctx, "space-1", "res-1")
	require.NoError(t, err)
	require.True(t, locked)

	// A foreign token must not release the holder's lock.
	require.NoError(t, r.UnlockSpace(ctx, "space-1", "someone-else"))

	val, err := client.Get(ctx, "space_lock:space-1").Result()
	require.NoError(t, err)
	assert.Equal(t, "res-1", val, "Lock should still belong to res-1")

	// Unlocking a key that was never locked is a no-op.
	assert.NoError(t, r.UnlockSpace(ctx, "space-9", "res-1"))
}

func TestLockSpace_ExpiresAfterTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := NewRedis(client, 5*time.Second)
	ctx := context.Background()

	locked, err := r.LockSpace(ctx, "space-1", "res-1")
	require.NoError(t, err)
	require.True(t, locked)

	// A crashed holder never unlocks; the TTL frees the space.
	mr.FastForward(6 * time.Second)

	locked, err = r.LockSpace(ctx, "space-1", "res-2")
	require.NoError(t, err)
	assert.True(t, locked, "Lock should be reclaimable after TTL expiry")
}

func TestLockSpace_ConcurrentContenders(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := NewRedis(client, 30*time.Second)

	const contenders = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			locked, err := r.LockSpace(context.Background(), "space-1", fmt.Sprintf("res-%d", n))
			if err == nil && locked {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners, "Exactly one contender should hold the lock")
}
