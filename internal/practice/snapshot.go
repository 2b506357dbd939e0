package practice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Snapshot is the last view of a session together with its owner.
type Snapshot struct {
	OwnerID uuid.UUID `json:"owner_id"`
	View    View      `json:"view"`
}

// SnapshotStore keeps session views in Redis so clients can reconnect
// after the live session has been evicted.
type SnapshotStore struct {
	redis redisKV
	ttl   time.Duration
}

func NewSnapshotStore(client redisKV, ttl time.Duration) *SnapshotStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SnapshotStore{redis: client, ttl: ttl}
}

func snapshotKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("practice:session:%s", sessionID.String())
}

// Save overwrites the snapshot of a session and refreshes its TTL.
func (s *SnapshotStore) Save(ctx context.Context, ownerID uuid.UUID, view View) error {
	data, err := json.Marshal(Snapshot{OwnerID: ownerID, View: view})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.redis.Set(ctx, snapshotKey(view.SessionID), data, s.ttl).Err()
}

// Load returns nil, nil when no snapshot exists.
func (s *SnapshotStore) Load(ctx context.Context, sessionID uuid.UUID) (*Snapshot, error) {
	data, err := s.redis.Get(ctx, snapshotKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (s *SnapshotStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	return s.redis.Del(ctx, snapshotKey(sessionID)).Err()
}
