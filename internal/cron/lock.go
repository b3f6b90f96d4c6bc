package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 5 * time.Minute

// Lock makes sure only one worker runs a cycle at a time.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
	LockKey(name string) string
}

// RedisLock is a lease on a single redis key. The TTL bounds how long a crashed worker keeps it.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	token string
}

func NewRedisLock(store lockStore, name string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if name == "" {
		return nil, errors.New("lock name is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: store.LockKey(name), ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	won, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if won {
		l.token = token
	}
	return won, nil
}

// Release drops the lease if this instance still holds it. A lease that expired and was
// taken by another worker is left alone.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	if _, err := l.store.CompareAndDelete(ctx, l.key, token); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
