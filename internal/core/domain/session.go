package domain

import "time"

type SessionID string

type Session struct {
	ID        SessionID
	UserID    UserID
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
