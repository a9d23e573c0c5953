package postgres

import (
	"sort"
	"strings"
	"time"

	"sketchroom/internal/core/domain"
)

type UserModel struct {
	ID           string `gorm:"primaryKey;size:64"`
	Username     string `gorm:"size:50;not null"`
	UsernameKey  string `gorm:"size:50;not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
}

func (UserModel) TableName() string { return "users" }

func newUserModel(u *domain.User) *UserModel {
	return &UserModel{
		ID:           string(u.ID),
		Username:     u.Username,
		UsernameKey:  strings.ToLower(u.Username),
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

func (m *UserModel) toDomain() *domain.User {
	return &domain.User{
		ID:           domain.UserID(m.ID),
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
	}
}

type WhiteboardModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	Title     string `gorm:"size:200;not null"`
	Content   string
	OwnerID   string                 `gorm:"size:64;not null;index"`
	Shares    []WhiteboardShareModel `gorm:"foreignKey:WhiteboardID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (WhiteboardModel) TableName() string { return "whiteboards" }

// WhiteboardShareModel is one row per user a whiteboard is shared with.
type WhiteboardShareModel struct {
	WhiteboardID string `gorm:"primaryKey;size:64"`
	UserID       string `gorm:"primaryKey;size:64;index"`
	Position     int
}

func (WhiteboardShareModel) TableName() string { return "whiteboard_shares" }

func newWhiteboardModel(wb *domain.Whiteboard) *WhiteboardModel {
	m := &WhiteboardModel{
		ID:        string(wb.ID),
		Title:     wb.Title,
		Content:   wb.Content,
		OwnerID:   string(wb.Owner),
		CreatedAt: wb.CreatedAt,
		UpdatedAt: wb.UpdatedAt,
	}
	for i, u := range wb.SharedWith {
		m.Shares = append(m.Shares, WhiteboardShareModel{WhiteboardID: m.ID, UserID: string(u), Position: i})
	}
	return m
}

func (m *WhiteboardModel) toDomain() *domain.Whiteboard {
	wb := &domain.Whiteboard{
		ID:        domain.WhiteboardID(m.ID),
		Title:     m.Title,
		Content:   m.Content,
		Owner:     domain.UserID(m.OwnerID),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	shares := make([]WhiteboardShareModel, len(m.Shares))
	copy(shares, m.Shares)
	sort.Slice(shares, func(i, j int) bool { return shares[i].Position < shares[j].Position })
	for _, s := range shares {
		wb.SharedWith = append(wb.SharedWith, domain.UserID(s.UserID))
	}
	return wb
}

type SnapshotModel struct {
	WhiteboardID string `gorm:"primaryKey;size:64"`
	Data         []byte `gorm:"not null"`
	UpdatedBy    string `gorm:"size:64"`
	UpdatedAt    time.Time
}

func (SnapshotModel) TableName() string { return "snapshots" }

type SessionModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	UserID    string `gorm:"size:64;not null;index"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index"`
}

func (SessionModel) TableName() string { return "sessions" }
