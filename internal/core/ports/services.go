package ports

import (
	"context"

	"sketchroom/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, username, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*domain.User, string, error)
	Authenticate(ctx context.Context, token string) (*domain.User, error)
	Logout(ctx context.Context, token string) error
}

type WhiteboardService interface {
	Create(ctx context.Context, owner domain.UserID, title, content string) (*domain.Whiteboard, error)
	List(ctx context.Context, userID domain.UserID) ([]*domain.Whiteboard, error)
	Get(ctx context.Context, userID domain.UserID, id domain.WhiteboardID) (*domain.Whiteboard, error)
	Update(ctx context.Context, userID domain.UserID, id domain.WhiteboardID, title, content string) (*domain.Whiteboard, error)
	Delete(ctx context.Context, userID domain.UserID, id domain.WhiteboardID) error
	Share(ctx context.Context, userID domain.UserID, id domain.WhiteboardID, username string) (*domain.Whiteboard, error)
	SaveSnapshot(ctx context.Context, userID domain.UserID, id domain.WhiteboardID, data []byte) error
	LoadSnapshot(ctx context.Context, userID domain.UserID, id domain.WhiteboardID) (*domain.Snapshot, error)
	Authorizer
}

// Authorizer decides whether a user may collaborate on a whiteboard.
type Authorizer interface {
	Authorize(ctx context.Context, userID domain.UserID, id domain.WhiteboardID) error
}
