package redis

import (
	"context"
	"fmt"
	"time"

	"sketchroom/internal/core/domain"
	"sketchroom/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const snapshotKeyPrefix = keyPrefix + "snapshot:"

// RedisSnapshotRepository keeps one hash per whiteboard. Saving overwrites.
type RedisSnapshotRepository struct {
	client *redis.Client
}

func NewRedisSnapshotRepository(client *redis.Client) ports.SnapshotRepository {
	return &RedisSnapshotRepository{client: client}
}

func snapshotKey(id domain.WhiteboardID) string {
	return snapshotKeyPrefix + string(id)
}

func (r *RedisSnapshotRepository) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	err := r.client.HSet(ctx, snapshotKey(snapshot.WhiteboardID),
		"data", snapshot.Data,
		"updated_by", string(snapshot.UpdatedBy),
		"updated_at", snapshot.UpdatedAt.UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to save snapshot in Redis: %w", err)
	}
	return nil
}

func (r *RedisSnapshotRepository) Get(ctx context.Context, id domain.WhiteboardID) (*domain.Snapshot, error) {
	fields, err := r.client.HGetAll(ctx, snapshotKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot from Redis: %w", err)
	}
	data, ok := fields["data"]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}

	snapshot := &domain.Snapshot{
		WhiteboardID: id,
		Data:         []byte(data),
		UpdatedBy:    domain.UserID(fields["updated_by"]),
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields["updated_at"]); err == nil {
		snapshot.UpdatedAt = ts
	}
	return snapshot, nil
}

func (r *RedisSnapshotRepository) Delete(ctx context.Context, id domain.WhiteboardID) error {
	n, err := r.client.Del(ctx, snapshotKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete snapshot from Redis: %w", err)
	}
	if n == 0 {
		return domain.ErrSnapshotNotFound
	}
	return nil
}
