package postgres

import (
	"context"
	"errors"
	"fmt"

	"sketchroom/internal/core/domain"
	"sketchroom/internal/core/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresSnapshotRepository struct {
	db *gorm.DB
}

func NewPostgresSnapshotRepository(db *gorm.DB) ports.SnapshotRepository {
	return &PostgresSnapshotRepository{db: db}
}

// Save upserts the single snapshot row of the whiteboard.
func (r *PostgresSnapshotRepository) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	m := &SnapshotModel{
		WhiteboardID: string(snapshot.WhiteboardID),
		Data:         snapshot.Data,
		UpdatedBy:    string(snapshot.UpdatedBy),
		UpdatedAt:    snapshot.UpdatedAt,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "whiteboard_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_by", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (r *PostgresSnapshotRepository) Get(ctx context.Context, id domain.WhiteboardID) (*domain.Snapshot, error) {
	var m SnapshotModel
	err := r.db.WithContext(ctx).First(&m, "whiteboard_id = ?", string(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return &domain.Snapshot{
		WhiteboardID: domain.WhiteboardID(m.WhiteboardID),
		Data:         m.Data,
		UpdatedBy:    domain.UserID(m.UpdatedBy),
		UpdatedAt:    m.UpdatedAt,
	}, nil
}

func (r *PostgresSnapshotRepository) Delete(ctx context.Context, id domain.WhiteboardID) error {
	res := r.db.WithContext(ctx).Delete(&SnapshotModel{}, "whiteboard_id = ?", string(id))
	if res.Error != nil {
		return fmt.Errorf("failed to delete snapshot: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrSnapshotNotFound
	}
	return nil
}
