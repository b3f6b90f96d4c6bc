package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryLockStore struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemoryLockStore() *memoryLockStore {
	return &memoryLockStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, held := m.values[key]; held {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryLockStore) CompareAndDelete(_ context.Context, key, value string) (bool, error) {
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func (m *memoryLockStore) LockKey(name string) string { return "ra:lock:" + name }

func TestRedisLockIsExclusive(t *testing.T) {
	store := newMemoryLockStore()
	ctx := context.Background()
	first, err := NewRedisLock(store, "cron-worker", 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "cron-worker", time.Minute)
	require.NoError(t, err)

	won, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, won)
	assert.Equal(t, defaultLockTTL, store.ttls["ra:lock:cron-worker"])

	won, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, won)

	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, "ra:lock:cron-worker", "a loser must not free the lock")

	require.NoError(t, first.Release(ctx))
	assert.NotContains(t, store.values, "ra:lock:cron-worker")
}

func TestRedisLockLeavesTakenOverLease(t *testing.T) {
	store := newMemoryLockStore()
	ctx := context.Background()
	lock, err := NewRedisLock(store, "cron-worker", time.Minute)
	require.NoError(t, err)
	won, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, won)

	store.values["ra:lock:cron-worker"] = "someone-else"
	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, "someone-else", store.values["ra:lock:cron-worker"])
}

func TestNewRedisLockValidation(t *testing.T) {
	_, err := NewRedisLock(nil, "cron-worker", time.Minute)
	assert.Error(t, err)
	_, err = NewRedisLock(newMemoryLockStore(), "", time.Minute)
	assert.Error(t, err)
}
