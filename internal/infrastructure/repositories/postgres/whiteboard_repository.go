package postgres

import (
	"context"
	"errors"
	"fmt"

	"sketchroom/internal/core/domain"
	"sketchroom/internal/core/ports"

	"gorm.io/gorm"
)

type PostgresWhiteboardRepository struct {
	db *gorm.DB
}

func NewPostgresWhiteboardRepository(db *gorm.DB) ports.WhiteboardRepository {
	return &PostgresWhiteboardRepository{db: db}
}

func (r *PostgresWhiteboardRepository) Create(ctx context.Context, wb *domain.Whiteboard) error {
	if err := r.db.WithContext(ctx).Create(newWhiteboardModel(wb)).Error; err != nil {
		return fmt.Errorf("failed to insert whiteboard: %w", err)
	}
	return nil
}

func (r *PostgresWhiteboardRepository) GetByID(ctx context.Context, id domain.WhiteboardID) (*domain.Whiteboard, error) {
	var m WhiteboardModel
	err := r.db.WithContext(ctx).Preload("Shares").First(&m, "id = ?", string(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrWhiteboardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get whiteboard: %w", err)
	}
	return m.toDomain(), nil
}

// Update rewrites the row and replaces its share list in one transaction.
func (r *PostgresWhiteboardRepository) Update(ctx context.Context, wb *domain.Whiteboard) error {
	m := newWhiteboardModel(wb)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&WhiteboardModel{}).Where("id = ?", m.ID).Updates(map[string]interface{}{
			"title":      m.Title,
			"content":    m.Content,
			"owner_id":   m.OwnerID,
			"updated_at": m.UpdatedAt,
		})
		if res.Error != nil {
			return fmt.Errorf("failed to update whiteboard: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrWhiteboardNotFound
		}

		if err := tx.Where("whiteboard_id = ?", m.ID).Delete(&WhiteboardShareModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear shares: %w", err)
		}
		if len(m.Shares) > 0 {
			if err := tx.Create(&m.Shares).Error; err != nil {
				return fmt.Errorf("failed to insert shares: %w", err)
			}
		}
		return nil
	})
}

func (r *PostgresWhiteboardRepository) Delete(ctx context.Context, id domain.WhiteboardID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("whiteboard_id = ?", string(id)).Delete(&WhiteboardShareModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete shares: %w", err)
		}
		res := tx.Delete(&WhiteboardModel{}, "id = ?", string(id))
		if res.Error != nil {
			return fmt.Errorf("failed to delete whiteboard: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrWhiteboardNotFound
		}
		return nil
	})
}

func (r *PostgresWhiteboardRepository) ListAccessible(ctx context.Context, userID domain.UserID) ([]*domain.Whiteboard, error) {
	var models []WhiteboardModel
	shared := r.db.Model(&WhiteboardShareModel{}).Select("whiteboard_id").Where("user_id = ?", string(userID))
	err := r.db.WithContext(ctx).
		Preload("Shares").
		Where("owner_id = ?", string(userID)).
		Or("id IN (?)", shared).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list whiteboards: %w", err)
	}

	result := make([]*domain.Whiteboard, 0, len(models))
	for i := range models {
		result = append(result, models[i].toDomain())
	}
	return result, nil
}
