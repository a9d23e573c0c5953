package services

import (
	"context"
	"errors"
	"testing"

	"sketchroom/internal/core/domain"
	"sketchroom/internal/core/ports"
	"sketchroom/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type whiteboardFixture struct {
	svc   ports.WhiteboardService
	users ports.UserRepository
}

func newWhiteboardFixture(t *testing.T, maxSnapshot int) *whiteboardFixture {
	t.Helper()
	users := memory.NewMemoryUserRepository()
	ctx := context.Background()
	for _, u := range []*domain.User{
		{ID: "owner", Username: "owner"},
		{ID: "friend", Username: "friend"},
		{ID: "stranger", Username: "stranger"},
	} {
		require.NoError(t, users.Create(ctx, u))
	}
	return &whiteboardFixture{
		svc: NewWhiteboardService(
			memory.NewMemoryWhiteboardRepository(),
			memory.NewMemorySnapshotRepository(),
			users,
			maxSnapshot,
			zaptest.NewLogger(t).Sugar(),
		),
		users: users,
	}
}

func TestWhiteboardService_CreateAndList(t *testing.T) {
	ctx := context.Background()
	f := newWhiteboardFixture(t, 1024)

	wb, err := f.svc.Create(ctx, "owner", "  Sprint Plan  ", "notes")
	require.NoError(t, err)
	assert.Equal(t, "Sprint Plan", wb.Title)
	assert.Equal(t, domain.UserID("owner"), wb.Owner)

	_, err = f.svc.Create(ctx, "owner", "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	cleaned, err := f.svc.Create(ctx, "owner", "Road\x00map", "")
	require.NoError(t, err)
	assert.Equal(t, "Roadmap", cleaned.Title)

	list, err := f.svc.List(ctx, "owner")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = f.svc.List(ctx, "friend")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.Share(ctx, "owner", wb.ID, "friend")
	require.NoError(t, err)
	list, err = f.svc.List(ctx, "friend")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestWhiteboardService_UpdateKeepsEmptyFields(t *testing.T) {
	ctx := context.Background()
	f := newWhiteboardFixture(t, 1024)

	wb, err := f.svc.Create(ctx, "owner", "Title", "Content")
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, "owner", wb.ID, "", "New content")
	require.NoError(t, err)
	assert.Equal(t, "Title", updated.Title)
	assert.Equal(t, "New content", updated.Content)

	got, err := f.svc.Get(ctx, "owner", wb.ID)
	require.NoError(t, err)
	assert.Equal(t, "New content", got.Content)
}

func TestWhiteboardService_ShareIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newWhiteboardFixture(t, 1024)

	wb, err := f.svc.Create(ctx, "owner", "Board", "")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		wb, err = f.svc.Share(ctx, "owner", wb.ID, "friend")
		require.NoError(t, err)
	}
	assert.Equal(t, []domain.UserID{"friend"}, wb.SharedWith)

	wb, err = f.svc.Share(ctx, "owner", wb.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{"friend"}, wb.SharedWith)

	_, err = f.svc.Share(ctx, "owner", wb.ID, "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = f.svc.Share(ctx, "owner", wb.ID, " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// Owner and shared users pass every whiteboard operation; anyone else is forbidden.
func TestWhiteboardService_Authorization(t *testing.T) {
	ctx := context.Background()
	f := newWhiteboardFixture(t, 1024)

	wb, err := f.svc.Create(ctx, "owner", "Board", "")
	require.NoError(t, err)
	_, err = f.svc.Share(ctx, "owner", wb.ID, "friend")
	require.NoError(t, err)

	ops := map[string]func(user domain.UserID) error{
		"authorize": func(u domain.UserID) error { return f.svc.Authorize(ctx, u, wb.ID) },
		"get": func(u domain.UserID) error {
			_, err := f.svc.Get(ctx, u, wb.ID)
			return err
		},
		"update": func(u domain.UserID) error {
			_, err := f.svc.Update(ctx, u, wb.ID, "Renamed", "")
			return err
		},
		"share": func(u domain.UserID) error {
			_, err := f.svc.Share(ctx, u, wb.ID, "friend")
			return err
		},
		"save snapshot": func(u domain.UserID) error {
			return f.svc.SaveSnapshot(ctx, u, wb.ID, []byte("data:image/png;base64,AAAA"))
		},
		"load snapshot": func(u domain.UserID) error {
			_, err := f.svc.LoadSnapshot(ctx, u, wb.ID)
			return err
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, op("stranger"), domain.ErrForbidden)
		})
	}
	for name, op := range ops {
		t.Run(name+" allowed", func(t *testing.T) {
			for _, u := range []domain.UserID{"owner", "friend"} {
				err := op(u)
				if name == "load snapshot" && errors.Is(err, domain.ErrSnapshotNotFound) {
					continue
				}
				assert.NoError(t, err, "user %s", u)
			}
		})
	}

	assert.ErrorIs(t, f.svc.Delete(ctx, "stranger", wb.ID), domain.ErrForbidden)
	assert.NoError(t, f.svc.Delete(ctx, "friend", wb.ID))
	assert.ErrorIs(t, f.svc.Authorize(ctx, "owner", wb.ID), domain.ErrWhiteboardNotFound)
}

func TestWhiteboardService_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newWhiteboardFixture(t, 64)

	wb, err := f.svc.Create(ctx, "owner", "Board", "")
	require.NoError(t, err)

	_, err = f.svc.LoadSnapshot(ctx, "owner", wb.ID)
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	payloads := [][]byte{
		[]byte("data:image/png;base64,iVBORw0KGgo="),
		{0x00, 0xff, 0x10, 0x00},
		[]byte("x"),
	}
	for _, p := range payloads {
		require.NoError(t, f.svc.SaveSnapshot(ctx, "owner", wb.ID, p))
		got, err := f.svc.LoadSnapshot(ctx, "owner", wb.ID)
		require.NoError(t, err)
		assert.Equal(t, p, got.Data)
		assert.Equal(t, domain.UserID("owner"), got.UpdatedBy)
	}

	assert.ErrorIs(t, f.svc.SaveSnapshot(ctx, "owner", wb.ID, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, f.svc.SaveSnapshot(ctx, "owner", wb.ID, make([]byte, 65)), domain.ErrSnapshotTooLarge)

	// deleting the whiteboard removes its snapshot too
	require.NoError(t, f.svc.Delete(ctx, "owner", wb.ID))
	_, err = f.svc.LoadSnapshot(ctx, "owner", wb.ID)
	assert.ErrorIs(t, err, domain.ErrWhiteboardNotFound)
}

func TestWhiteboardService_InvalidIDIsNotFound(t *testing.T) {
	f := newWhiteboardFixture(t, 64)
	_, err := f.svc.Get(context.Background(), "owner", "../etc")
	assert.ErrorIs(t, err, domain.ErrWhiteboardNotFound)
}

func TestWhiteboardService_PersistenceFailure(t *testing.T) {
	ctx := context.Background()
	whiteboards := new(MockWhiteboardRepository)
	snapshots := new(MockSnapshotRepository)
	users := new(MockUserRepository)
	svc := NewWhiteboardService(whiteboards, snapshots, users, 1024, zaptest.NewLogger(t).Sugar())

	wb := &domain.Whiteboard{ID: "wb1", Owner: "owner"}
	whiteboards.On("GetByID", ctx, domain.WhiteboardID("wb1")).Return(wb, nil)
	snapshots.On("Save", ctx, mock.AnythingOfType("*domain.Snapshot")).Return(errors.New("disk full"))

	err := svc.SaveSnapshot(ctx, "owner", "wb1", []byte("data"))
	assert.ErrorIs(t, err, domain.ErrPersistence)

	whiteboards.On("Create", ctx, mock.AnythingOfType("*domain.Whiteboard")).Return(errors.New("timeout"))
	_, err = svc.Create(ctx, "owner", "Board", "")
	assert.ErrorIs(t, err, domain.ErrPersistence)

	whiteboards.AssertExpectations(t)
	snapshots.AssertExpectations(t)
}
