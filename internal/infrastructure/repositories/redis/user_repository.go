package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"sketchroom/internal/core/domain"
	"sketchroom/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix     = keyPrefix + "user:"
	usernameKeyPrefix = userKeyPrefix + "name:"
)

type userRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func userKey(id domain.UserID) string {
	return userKeyPrefix + string(id)
}

func usernameKey(username string) string {
	return usernameKeyPrefix + strings.ToLower(username)
}

type RedisUserRepository struct {
	client *redis.Client
}

func NewRedisUserRepository(client *redis.Client) ports.UserRepository {
	return &RedisUserRepository{client: client}
}

func (r *RedisUserRepository) Create(ctx context.Context, user *domain.User) error {
	data, err := json.Marshal(userRecord{
		ID:           string(user.ID),
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	// The username key is the uniqueness guard.
	ok, err := r.client.SetNX(ctx, usernameKey(user.Username), string(user.ID), 0).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve username in Redis: %w", err)
	}
	if !ok {
		return domain.ErrUserExists
	}

	if err := r.client.Set(ctx, userKey(user.ID), data, 0).Err(); err != nil {
		r.client.Del(ctx, usernameKey(user.Username))
		return fmt.Errorf("failed to set user in Redis: %w", err)
	}
	return nil
}

func (r *RedisUserRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	data, err := r.client.Get(ctx, userKey(id)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user from Redis: %w", err)
	}

	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &domain.User{
		ID:           domain.UserID(rec.ID),
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

func (r *RedisUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	id, err := r.client.Get(ctx, usernameKey(username)).Result()
	if err == redis.Nil {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get username from Redis: %w", err)
	}
	return r.GetByID(ctx, domain.UserID(id))
}
