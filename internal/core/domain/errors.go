package domain

import "errors"

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrIdentityMismatch   = errors.New("identity mismatch")
	ErrNotJoined          = errors.New("connection has not joined a room")
	ErrRoomMismatch       = errors.New("event room does not match joined room")
	ErrConnectionClosed   = errors.New("connection closed")
	ErrWhiteboardNotFound = errors.New("whiteboard not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSnapshotNotFound   = errors.New("snapshot not found")
	ErrSnapshotTooLarge   = errors.New("snapshot too large")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidEvent       = errors.New("invalid event")
	ErrInvalidInput       = errors.New("invalid input")
	ErrPersistence        = errors.New("persistence failure")
)
