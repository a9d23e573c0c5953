package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"sketchroom/internal/core/domain"
	"sketchroom/internal/core/ports"
)

type MemoryWhiteboardRepository struct {
	whiteboards map[domain.WhiteboardID]*domain.Whiteboard
	mu          sync.RWMutex
}

func NewMemoryWhiteboardRepository() ports.WhiteboardRepository {
	return &MemoryWhiteboardRepository{
		whiteboards: make(map[domain.WhiteboardID]*domain.Whiteboard),
	}
}

func (r *MemoryWhiteboardRepository) Create(ctx context.Context, wb *domain.Whiteboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.whiteboards[wb.ID]; exists {
		return fmt.Errorf("whiteboard already exists: %s", wb.ID)
	}

	r.whiteboards[wb.ID] = wb.Clone()
	return nil
}

func (r *MemoryWhiteboardRepository) GetByID(ctx context.Context, id domain.WhiteboardID) (*domain.Whiteboard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wb, exists := r.whiteboards[id]
	if !exists {
		return nil, domain.ErrWhiteboardNotFound
	}

	return wb.Clone(), nil
}

func (r *MemoryWhiteboardRepository) Update(ctx context.Context, wb *domain.Whiteboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.whiteboards[wb.ID]; !exists {
		return domain.ErrWhiteboardNotFound
	}

	r.whiteboards[wb.ID] = wb.Clone()
	return nil
}

func (r *MemoryWhiteboardRepository) Delete(ctx context.Context, id domain.WhiteboardID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.whiteboards[id]; !exists {
		return domain.ErrWhiteboardNotFound
	}

	delete(r.whiteboards, id)
	return nil
}

func (r *MemoryWhiteboardRepository) ListAccessible(ctx context.Context, userID domain.UserID) ([]*domain.Whiteboard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Whiteboard, 0)
	for _, wb := range r.whiteboards {
		if wb.CanAccess(userID) {
			result = append(result, wb.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
