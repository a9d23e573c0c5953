package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sketchroom/internal/core/domain"
	"sketchroom/internal/core/ports"

	"gorm.io/gorm"
)

type PostgresSessionRepository struct {
	db *gorm.DB
}

func NewPostgresSessionRepository(db *gorm.DB) ports.SessionRepository {
	return &PostgresSessionRepository{db: db}
}

func (r *PostgresSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	m := &SessionModel{
		ID:        string(session.ID),
		UserID:    string(session.UserID),
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepository) GetByID(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	var m SessionModel
	err := r.db.WithContext(ctx).First(&m, "id = ? AND expires_at > ?", string(id), time.Now()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &domain.Session{
		ID:        domain.SessionID(m.ID),
		UserID:    domain.UserID(m.UserID),
		CreatedAt: m.CreatedAt,
		ExpiresAt: m.ExpiresAt,
	}, nil
}

func (r *PostgresSessionRepository) Delete(ctx context.Context, id domain.SessionID) error {
	if err := r.db.WithContext(ctx).Delete(&SessionModel{}, "id = ?", string(id)).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
