package services

import (
	"context"

	"sketchroom/internal/core/domain"

	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockWhiteboardRepository struct {
	mock.Mock
}

func (m *MockWhiteboardRepository) Create(ctx context.Context, wb *domain.Whiteboard) error {
	args := m.Called(ctx, wb)
	return args.Error(0)
}

func (m *MockWhiteboardRepository) GetByID(ctx context.Context, id domain.WhiteboardID) (*domain.Whiteboard, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Whiteboard).Clone(), args.Error(1)
}

func (m *MockWhiteboardRepository) Update(ctx context.Context, wb *domain.Whiteboard) error {
	args := m.Called(ctx, wb)
	return args.Error(0)
}

func (m *MockWhiteboardRepository) Delete(ctx context.Context, id domain.WhiteboardID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockWhiteboardRepository) ListAccessible(ctx context.Context, userID domain.UserID) ([]*domain.Whiteboard, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Whiteboard), args.Error(1)
}

type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotRepository) Get(ctx context.Context, id domain.WhiteboardID) (*domain.Snapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Snapshot), args.Error(1)
}

func (m *MockSnapshotRepository) Delete(ctx context.Context, id domain.WhiteboardID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) Delete(ctx context.Context, id domain.SessionID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
