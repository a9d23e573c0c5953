package domain

import "time"

// WhiteboardID identifies a persisted whiteboard. It doubles as the room id
// for real-time collaboration.
type WhiteboardID string

type Whiteboard struct {
	ID         WhiteboardID
	Title      string
	Content    string
	Owner      UserID
	SharedWith []UserID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (w *Whiteboard) IsOwner(userID UserID) bool {
	return w.Owner == userID
}

func (w *Whiteboard) IsSharedWith(userID UserID) bool {
	for _, id := range w.SharedWith {
		if id == userID {
			return true
		}
	}
	return false
}

// CanAccess reports whether the user owns the whiteboard or it was shared with them.
func (w *Whiteboard) CanAccess(userID UserID) bool {
	return w.IsOwner(userID) || w.IsSharedWith(userID)
}

// AddCollaborator shares the whiteboard with userID. It returns false when
// nothing changed: the user is the owner or already has access.
func (w *Whiteboard) AddCollaborator(userID UserID) bool {
	if w.CanAccess(userID) {
		return false
	}
	w.SharedWith = append(w.SharedWith, userID)
	return true
}

// Clone returns a copy that does not share the SharedWith slice.
func (w *Whiteboard) Clone() *Whiteboard {
	cp := *w
	cp.SharedWith = append([]UserID(nil), w.SharedWith...)
	return &cp
}

// Snapshot is the latest saved canvas image of a whiteboard. Saving
// overwrites; there is no history.
type Snapshot struct {
	WhiteboardID WhiteboardID
	Data         []byte
	UpdatedBy    UserID
	UpdatedAt    time.Time
}
