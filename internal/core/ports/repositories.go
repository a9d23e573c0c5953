package ports

import (
	"context"

	"sketchroom/internal/core/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type WhiteboardRepository interface {
	Create(ctx context.Context, wb *domain.Whiteboard) error
	GetByID(ctx context.Context, id domain.WhiteboardID) (*domain.Whiteboard, error)
	Update(ctx context.Context, wb *domain.Whiteboard) error
	Delete(ctx context.Context, id domain.WhiteboardID) error
	// ListAccessible returns whiteboards owned by or shared with the user.
	ListAccessible(ctx context.Context, userID domain.UserID) ([]*domain.Whiteboard, error)
}

// SnapshotRepository keeps at most one snapshot per whiteboard.
type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *domain.Snapshot) error
	Get(ctx context.Context, id domain.WhiteboardID) (*domain.Snapshot, error)
	Delete(ctx context.Context, id domain.WhiteboardID) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id domain.SessionID) (*domain.Session, error)
	Delete(ctx context.Context, id domain.SessionID) error
}
