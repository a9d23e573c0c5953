package memory

import (
	"context"
	"sync"

	"sketchroom/internal/core/domain"
	"sketchroom/internal/core/ports"
)

type MemorySnapshotRepository struct {
	snapshots map[domain.WhiteboardID]*domain.Snapshot
	mu        sync.RWMutex
}

func NewMemorySnapshotRepository() ports.SnapshotRepository {
	return &MemorySnapshotRepository{
		snapshots: make(map[domain.WhiteboardID]*domain.Snapshot),
	}
}

func (r *MemorySnapshotRepository) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *snapshot
	cp.Data = append([]byte(nil), snapshot.Data...)
	r.snapshots[snapshot.WhiteboardID] = &cp
	return nil
}

func (r *MemorySnapshotRepository) Get(ctx context.Context, id domain.WhiteboardID) (*domain.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot, exists := r.snapshots[id]
	if !exists {
		return nil, domain.ErrSnapshotNotFound
	}
	cp := *snapshot
	return &cp, nil
}

func (r *MemorySnapshotRepository) Delete(ctx context.Context, id domain.WhiteboardID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.snapshots[id]; !exists {
		return domain.ErrSnapshotNotFound
	}
	delete(r.snapshots, id)
	return nil
}
