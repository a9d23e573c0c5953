package memory

import (
	"context"
	"strings"
	"sync"

	"sketchroom/internal/core/domain"
	"sketchroom/internal/core/ports"
)

type MemoryUserRepository struct {
	users      map[domain.UserID]*domain.User
	byUsername map[string]domain.UserID
	mu         sync.RWMutex
}

func NewMemoryUserRepository() ports.UserRepository {
	return &MemoryUserRepository{
		users:      make(map[domain.UserID]*domain.User),
		byUsername: make(map[string]domain.UserID),
	}
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(user.Username)
	if _, exists := r.byUsername[key]; exists {
		return domain.ErrUserExists
	}
	if _, exists := r.users[user.ID]; exists {
		return domain.ErrUserExists
	}

	cp := *user
	r.users[user.ID] = &cp
	r.byUsername[key] = user.ID
	return nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, domain.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *MemoryUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byUsername[strings.ToLower(username)]
	if !exists {
		return nil, domain.ErrUserNotFound
	}
	cp := *r.users[id]
	return &cp, nil
}
