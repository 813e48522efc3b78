package cron

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memoryLockStore struct {
	values map[string]string
	dels   int
}

func newMemoryLockStore() *memoryLockStore {
	return &memoryLockStore{values: map[string]string{}}
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryLockStore) Del(_ context.Context, keys ...string) error {
	m.dels++
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func TestRedisLockSingleOwner(t *testing.T) {
	t.Setenv("WORKER_ID", "cron-a")
	store := newMemoryLockStore()
	first, err := NewRedisLock(store, "cl:lock:cron", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "cl:lock:cron", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(store.values["cl:lock:cron"], "cron-a:"))

	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, second.Release(context.Background()))
	require.Equal(t, 0, store.dels)

	require.NoError(t, first.Release(context.Background()))
	require.Equal(t, 1, store.dels)
	require.Empty(t, store.values)
}

func TestRedisLockReleaseSkipsForeignToken(t *testing.T) {
	store := newMemoryLockStore()
	lock, err := NewRedisLock(store, "cl:lock:cron", 0)
	require.NoError(t, err)
	require.Equal(t, defaultLockTTL, lock.ttl)

	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	store.values["cl:lock:cron"] = "someone-else"
	require.NoError(t, lock.Release(context.Background()))
	require.Equal(t, "someone-else", store.values["cl:lock:cron"])

	delete(store.values, "cl:lock:cron")
	require.NoError(t, lock.Release(context.Background()))
}

func TestNewRedisLockValidates(t *testing.T) {
	_, err := NewRedisLock(nil, "k", time.Minute)
	require.Error(t, err)
	_, err = NewRedisLock(newMemoryLockStore(), "", time.Minute)
	require.Error(t, err)
}
