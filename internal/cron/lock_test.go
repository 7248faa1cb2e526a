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
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryLockStore) DeleteIfValue(_ context.Context, key, want string) (bool, error) {
	if value, ok := m.values[key]; !ok || value != want {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockIsExclusive(t *testing.T) {
	store := newMemoryLockStore()
	first, err := NewRedisLock(store, "sd:lock:cron-worker", 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "sd:lock:cron-worker", time.Minute)
	require.NoError(t, err)

	ctx := context.Background()
	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, defaultLockTTL, store.ttls["sd:lock:cron-worker"])

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, "sd:lock:cron-worker")

	require.NoError(t, first.Release(ctx))
	assert.NotContains(t, store.values, "sd:lock:cron-worker")

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockLeavesForeignHolder(t *testing.T) {
	store := newMemoryLockStore()
	lock, err := NewRedisLock(store, "sd:lock:cron-worker", time.Minute)
	require.NoError(t, err)

	ctx := context.Background()
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// simulate expiry and takeover by another replica
	store.values["sd:lock:cron-worker"] = "other-owner"
	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, "other-owner", store.values["sd:lock:cron-worker"])

	delete(store.values, "sd:lock:cron-worker")
	require.NoError(t, lock.Release(ctx))
}

func TestNewRedisLockValidation(t *testing.T) {
	_, err := NewRedisLock(nil, "key", time.Minute)
	assert.Error(t, err)
	_, err = NewRedisLock(newMemoryLockStore(), "", time.Minute)
	assert.Error(t, err)
}
