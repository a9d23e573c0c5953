package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"sketchroom/internal/core/domain"
	"sketchroom/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const (
	whiteboardKeyPrefix   = keyPrefix + "whiteboard:"
	whiteboardIndexSuffix = ":whiteboards"
)

type whiteboardRecord struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Owner      string    `json:"owner"`
	SharedWith []string  `json:"shared_with"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toWhiteboardRecord(wb *domain.Whiteboard) whiteboardRecord {
	shared := make([]string, len(wb.SharedWith))
	for i, id := range wb.SharedWith {
		shared[i] = string(id)
	}
	return whiteboardRecord{
		ID:         string(wb.ID),
		Title:      wb.Title,
		Content:    wb.Content,
		Owner:      string(wb.Owner),
		SharedWith: shared,
		CreatedAt:  wb.CreatedAt,
		UpdatedAt:  wb.UpdatedAt,
	}
}

func (rec whiteboardRecord) toDomain() *domain.Whiteboard {
	shared := make([]domain.UserID, len(rec.SharedWith))
	for i, id := range rec.SharedWith {
		shared[i] = domain.UserID(id)
	}
	return &domain.Whiteboard{
		ID:         domain.WhiteboardID(rec.ID),
		Title:      rec.Title,
		Content:    rec.Content,
		Owner:      domain.UserID(rec.Owner),
		SharedWith: shared,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}

// RedisWhiteboardRepository stores each whiteboard as JSON and keeps a set of
// accessible whiteboard ids per user.
type RedisWhiteboardRepository struct {
	client *redis.Client
}

func NewRedisWhiteboardRepository(client *redis.Client) ports.WhiteboardRepository {
	return &RedisWhiteboardRepository{client: client}
}

func whiteboardKey(id domain.WhiteboardID) string {
	return whiteboardKeyPrefix + string(id)
}

func userWhiteboardsKey(id domain.UserID) string {
	return userKeyPrefix + string(id) + whiteboardIndexSuffix
}

func (r *RedisWhiteboardRepository) Create(ctx context.Context, wb *domain.Whiteboard) error {
	data, err := json.Marshal(toWhiteboardRecord(wb))
	if err != nil {
		return fmt.Errorf("failed to marshal whiteboard: %w", err)
	}

	ok, err := r.client.SetNX(ctx, whiteboardKey(wb.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set whiteboard in Redis: %w", err)
	}
	if !ok {
		return fmt.Errorf("whiteboard already exists: %s", wb.ID)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, userWhiteboardsKey(wb.Owner), string(wb.ID))
		for _, u := range wb.SharedWith {
			pipe.SAdd(ctx, userWhiteboardsKey(u), string(wb.ID))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to index whiteboard: %w", err)
	}
	return nil
}

func (r *RedisWhiteboardRepository) GetByID(ctx context.Context, id domain.WhiteboardID) (*domain.Whiteboard, error) {
	data, err := r.client.Get(ctx, whiteboardKey(id)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrWhiteboardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get whiteboard from Redis: %w", err)
	}

	var rec whiteboardRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal whiteboard: %w", err)
	}
	return rec.toDomain(), nil
}

func (r *RedisWhiteboardRepository) Update(ctx context.Context, wb *domain.Whiteboard) error {
	old, err := r.GetByID(ctx, wb.ID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(toWhiteboardRecord(wb))
	if err != nil {
		return fmt.Errorf("failed to marshal whiteboard: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, whiteboardKey(wb.ID), data, 0)
		for _, u := range old.SharedWith {
			if !wb.CanAccess(u) {
				pipe.SRem(ctx, userWhiteboardsKey(u), string(wb.ID))
			}
		}
		pipe.SAdd(ctx, userWhiteboardsKey(wb.Owner), string(wb.ID))
		for _, u := range wb.SharedWith {
			pipe.SAdd(ctx, userWhiteboardsKey(u), string(wb.ID))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update whiteboard in Redis: %w", err)
	}
	return nil
}

func (r *RedisWhiteboardRepository) Delete(ctx context.Context, id domain.WhiteboardID) error {
	wb, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, whiteboardKey(id))
		pipe.SRem(ctx, userWhiteboardsKey(wb.Owner), string(id))
		for _, u := range wb.SharedWith {
			pipe.SRem(ctx, userWhiteboardsKey(u), string(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete whiteboard from Redis: %w", err)
	}
	return nil
}

func (r *RedisWhiteboardRepository) ListAccessible(ctx context.Context, userID domain.UserID) ([]*domain.Whiteboard, error) {
	ids, err := r.client.SMembers(ctx, userWhiteboardsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get user whiteboards from Redis: %w", err)
	}

	result := make([]*domain.Whiteboard, 0, len(ids))
	for _, id := range ids {
		wb, err := r.GetByID(ctx, domain.WhiteboardID(id))
		if err != nil {
			// Skip whiteboards that no longer exist
			continue
		}
		if wb.CanAccess(userID) {
			result = append(result, wb)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
