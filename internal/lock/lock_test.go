package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, &Redis{Client: client, Prefix: "test:lock:", TTL: time.Minute}
}

func TestLocal_TryLock(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	rel, err := l.TryLock(ctx, "c-1")
	require.NoError(t, err)

	_, err = l.TryLock(ctx, "c-1")
	assert.ErrorIs(t, err, ErrLocked)

	other, err := l.TryLock(ctx, "c-2")
	require.NoError(t, err)
	other()

	rel()
	rel()
	rel, err = l.TryLock(ctx, "c-1")
	require.NoError(t, err)
	rel()
}

func TestRedis_TryLockAndRelease(t *testing.T) {
	ctx := context.Background()
	mr, l := setupRedis(t)

	rel, err := l.TryLock(ctx, "c-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:c-1"))
	assert.Equal(t, time.Minute, mr.TTL("test:lock:c-1"))

	_, err = l.TryLock(ctx, "c-1")
	assert.ErrorIs(t, err, ErrLocked)

	rel()
	assert.False(t, mr.Exists("test:lock:c-1"))
}

func TestRedis_ReleaseKeepsForeignToken(t *testing.T) {
	ctx := context.Background()
	mr, l := setupRedis(t)

	rel, err := l.TryLock(ctx, "c-1")
	require.NoError(t, err)

	// the lock expired and another holder took it
	mr.FastForward(2 * time.Minute)
	require.NoError(t, mr.Set("test:lock:c-1", "someone-else"))

	rel()
	got, err := mr.Get("test:lock:c-1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedis_NilClientIsNoop(t *testing.T) {
	var l *Redis
	rel, err := l.TryLock(context.Background(), "c-1")
	require.NoError(t, err)
	rel()
}

func TestChain_ReleasesEarlierLocksOnFailure(t *testing.T) {
	ctx := context.Background()
	_, remote := setupRedis(t)
	local := NewLocal()
	chain := Chain{local, remote}

	holder, err := remote.TryLock(ctx, "c-1")
	require.NoError(t, err)

	_, err = chain.TryLock(ctx, "c-1")
	assert.ErrorIs(t, err, ErrLocked)

	// the local half must have been released
	rel, err := local.TryLock(ctx, "c-1")
	require.NoError(t, err)
	rel()

	holder()
	rel, err = chain.TryLock(ctx, "c-1")
	require.NoError(t, err)
	rel()
}
