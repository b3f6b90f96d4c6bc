package roas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const snapshotScope = "roas_batch"

// SnapshotStore keeps the caller's last analyzed batch so a single row can be recalculated later.
type SnapshotStore interface {
	Save(ctx context.Context, ownerID string, result BatchResult) error
	Load(ctx context.Context, ownerID string) (*BatchResult, error)
}

type snapshotBackend interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	SnapshotKey(scope, ownerID string) string
}

// RedisSnapshotStore persists batch snapshots as JSON with a TTL. Last write wins.
type RedisSnapshotStore struct {
	backend snapshotBackend
	ttl     time.Duration
}

func NewRedisSnapshotStore(backend snapshotBackend, ttl time.Duration) (*RedisSnapshotStore, error) {
	if backend == nil {
		return nil, errors.New("snapshot backend required")
	}
	if ttl <= 0 {
		return nil, errors.New("snapshot ttl must be positive")
	}
	return &RedisSnapshotStore{backend: backend, ttl: ttl}, nil
}

func (s *RedisSnapshotStore) Save(ctx context.Context, ownerID string, result BatchResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode batch snapshot: %w", err)
	}
	if err := s.backend.Set(ctx, s.backend.SnapshotKey(snapshotScope, ownerID), payload, s.ttl); err != nil {
		return fmt.Errorf("store batch snapshot: %w", err)
	}
	return nil
}

// Load returns nil without error when the owner has no live snapshot.
func (s *RedisSnapshotStore) Load(ctx context.Context, ownerID string) (*BatchResult, error) {
	raw, err := s.backend.Get(ctx, s.backend.SnapshotKey(snapshotScope, ownerID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load batch snapshot: %w", err)
	}
	var result BatchResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("decode batch snapshot: %w", err)
	}
	return &result, nil
}
