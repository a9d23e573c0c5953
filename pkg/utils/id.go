package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// GenerateWhiteboardID generates a unique whiteboard (room) ID
func GenerateWhiteboardID() string {
	return uuid.New().String()
}

// GenerateUserID generates a unique user ID
func GenerateUserID() string {
	return uuid.New().String()
}

// GenerateSessionID generates a unique session ID
func GenerateSessionID() string {
	return uuid.New().String()
}

// GenerateConnectionID returns a time-ordered id for a live websocket.
// ksuids sort by creation time, which keeps connection logs readable.
func GenerateConnectionID() string {
	return ksuid.New().String()
}

// GenerateRequestID generates a unique request ID
func GenerateRequestID() string {
	timestamp := time.Now().UnixNano()
	b := make([]byte, 4)
	rand.Read(b)
	return fmt.Sprintf("req_%d_%s", timestamp, hex.EncodeToString(b))
}
