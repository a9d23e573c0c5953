package collab

import "sketchroom/internal/core/domain"

// Conn is the hub's binding for one live socket. Room state is guarded by the
// hub mutex; the transport only reads ID, UserID and Send.
type Conn struct {
	ID     domain.ConnectionID
	UserID domain.UserID

	send   chan []byte
	room   domain.WhiteboardID
	joined bool
	closed bool
}

// Send is the connection's outbound queue. It is closed when the hub drops
// the connection.
func (c *Conn) Send() <-chan []byte {
	return c.send
}
