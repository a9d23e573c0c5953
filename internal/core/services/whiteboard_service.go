package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sketchroom/internal/core/domain"
	"sketchroom/internal/core/ports"
	"sketchroom/pkg/utils"
	"sketchroom/pkg/validation"

	"go.uber.org/zap"
)

type whiteboardService struct {
	whiteboards      ports.WhiteboardRepository
	snapshots        ports.SnapshotRepository
	users            ports.UserRepository
	maxSnapshotBytes int
	now              func() time.Time
	logger           *zap.SugaredLogger
}

func NewWhiteboardService(
	whiteboards ports.WhiteboardRepository,
	snapshots ports.SnapshotRepository,
	users ports.UserRepository,
	maxSnapshotBytes int,
	logger *zap.SugaredLogger,
) ports.WhiteboardService {
	return &whiteboardService{
		whiteboards:      whiteboards,
		snapshots:        snapshots,
		users:            users,
		maxSnapshotBytes: maxSnapshotBytes,
		now:              time.Now,
		logger:           logger,
	}
}

func (s *whiteboardService) Create(ctx context.Context, owner domain.UserID, title, content string) (*domain.Whiteboard, error) {
	title = utils.SanitizeString(title)
	if err := validation.ValidateTitle(title); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	now := s.now()
	wb := &domain.Whiteboard{
		ID:        domain.WhiteboardID(utils.GenerateWhiteboardID()),
		Title:     title,
		Content:   content,
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.whiteboards.Create(ctx, wb); err != nil {
		return nil, storageErr("create whiteboard", err)
	}

	s.logger.Infow("whiteboard created", "whiteboard_id", wb.ID, "owner", owner)
	return wb, nil
}

func (s *whiteboardService) List(ctx context.Context, userID domain.UserID) ([]*domain.Whiteboard, error) {
	list, err := s.whiteboards.ListAccessible(ctx, userID)
	if err != nil {
		return nil, storageErr("list whiteboards", err)
	}
	return list, nil
}

func (s *whiteboardService) Get(ctx context.Context, userID domain.UserID, id domain.WhiteboardID) (*domain.Whiteboard, error) {
	return s.load(ctx, userID, id)
}

// Update replaces title and content; empty values keep the stored ones.
func (s *whiteboardService) Update(ctx context.Context, userID domain.UserID, id domain.WhiteboardID, title, content string) (*domain.Whiteboard, error) {
	wb, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if title = utils.SanitizeString(title); title != "" {
		if err := validation.ValidateTitle(title); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		wb.Title = title
	}
	if content != "" {
		wb.Content = content
	}
	wb.UpdatedAt = s.now()

	if err := s.whiteboards.Update(ctx, wb); err != nil {
		return nil, storageErr("update whiteboard", err)
	}
	return wb, nil
}

func (s *whiteboardService) Delete(ctx context.Context, userID domain.UserID, id domain.WhiteboardID) error {
	if _, err := s.load(ctx, userID, id); err != nil {
		return err
	}
	if err := s.whiteboards.Delete(ctx, id); err != nil {
		return storageErr("delete whiteboard", err)
	}
	if err := s.snapshots.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrSnapshotNotFound) {
		s.logger.Warnw("failed to delete snapshot", "whiteboard_id", id, "error", err)
	}

	s.logger.Infow("whiteboard deleted", "whiteboard_id", id, "user_id", userID)
	return nil
}

// Share grants username access. Sharing twice or with the owner is a no-op.
func (s *whiteboardService) Share(ctx context.Context, userID domain.UserID, id domain.WhiteboardID, username string) (*domain.Whiteboard, error) {
	username = strings.TrimSpace(username)
	if err := validation.ValidateNonEmptyString(username, "username"); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	wb, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, storageErr("lookup user", err)
	}

	if !wb.AddCollaborator(target.ID) {
		return wb, nil
	}
	wb.UpdatedAt = s.now()
	if err := s.whiteboards.Update(ctx, wb); err != nil {
		return nil, storageErr("share whiteboard", err)
	}

	s.logger.Infow("whiteboard shared", "whiteboard_id", id, "by", userID, "with", target.ID)
	return wb, nil
}

func (s *whiteboardService) Authorize(ctx context.Context, userID domain.UserID, id domain.WhiteboardID) error {
	_, err := s.load(ctx, userID, id)
	return err
}

func (s *whiteboardService) SaveSnapshot(ctx context.Context, userID domain.UserID, id domain.WhiteboardID, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: snapshot data is required", domain.ErrInvalidInput)
	}
	if s.maxSnapshotBytes > 0 && len(data) > s.maxSnapshotBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", domain.ErrSnapshotTooLarge, len(data), s.maxSnapshotBytes)
	}
	if _, err := s.load(ctx, userID, id); err != nil {
		return err
	}

	snapshot := &domain.Snapshot{
		WhiteboardID: id,
		Data:         data,
		UpdatedBy:    userID,
		UpdatedAt:    s.now(),
	}
	if err := s.snapshots.Save(ctx, snapshot); err != nil {
		return storageErr("save snapshot", err)
	}

	s.logger.Debugw("snapshot saved", "whiteboard_id", id, "user_id", userID, "bytes", len(data))
	return nil
}

func (s *whiteboardService) LoadSnapshot(ctx context.Context, userID domain.UserID, id domain.WhiteboardID) (*domain.Snapshot, error) {
	if _, err := s.load(ctx, userID, id); err != nil {
		return nil, err
	}
	snapshot, err := s.snapshots.Get(ctx, id)
	if err != nil {
		return nil, storageErr("load snapshot", err)
	}
	return snapshot, nil
}

// load fetches the whiteboard and checks that userID owns it or has it shared.
func (s *whiteboardService) load(ctx context.Context, userID domain.UserID, id domain.WhiteboardID) (*domain.Whiteboard, error) {
	if err := validation.ValidateWhiteboardID(string(id)); err != nil {
		return nil, domain.ErrWhiteboardNotFound
	}
	wb, err := s.whiteboards.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("get whiteboard", err)
	}
	if !wb.CanAccess(userID) {
		return nil, domain.ErrForbidden
	}
	return wb, nil
}
