package redlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestLockAndUnlock(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	locker := NewLocker(client, "ledger_key", "holder_1")
	require.NoError(t, locker.Lock(ctx, time.Minute))

	// A second holder cannot take the lock while it is held.
	other := NewLocker(client, "ledger_key", "holder_2")
	assert.Error(t, other.Lock(ctx, time.Minute))

	require.NoError(t, locker.Unlock(ctx))
	assert.NoError(t, other.Lock(ctx, time.Minute))
}

func TestUnlockByNonHolderFails(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	holder := NewLocker(client, "ledger_key", "holder_1")
	require.NoError(t, holder.Lock(ctx, time.Minute))

	intruder := NewLocker(client, "ledger_key", "holder_2")
	assert.Error(t, intruder.Unlock(ctx))

	// The real holder can still unlock.
	assert.NoError(t, holder.Unlock(ctx))
}

func TestExtendLock(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	holder := NewLocker(client, "ledger_key", "holder_1")
	require.NoError(t, holder.Lock(ctx, time.Minute))
	assert.NoError(t, holder.ExtendLock(ctx, 2*time.Minute))

	intruder := NewLocker(client, "ledger_key", "holder_2")
	assert.Error(t, intruder.ExtendLock(ctx, 2*time.Minute))
}

func TestWaitLockAcquiresAfterRelease(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	holder := NewLocker(client, "ledger_key", "holder_1")
	require.NoError(t, holder.Lock(ctx, time.Minute))

	released := make(chan struct{})
	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = holder.Unlock(ctx)
		close(released)
	}()

	waiter := NewLocker(client, "ledger_key", "holder_2")
	err := waiter.WaitLock(ctx, time.Minute, time.Second)
	<-released
	assert.NoError(t, err)
}

func TestWaitLockTimesOut(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	holder := NewLocker(client, "ledger_key", "holder_1")
	require.NoError(t, holder.Lock(ctx, time.Minute))

	waiter := NewLocker(client, "ledger_key", "holder_2")
	err := waiter.WaitLock(ctx, time.Minute, 50*time.Millisecond)
	assert.Error(t, err)
}
