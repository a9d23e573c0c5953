package collab

import (
	"context"
	"sort"
	"sync"

	"sketchroom/internal/core/domain"
	"sketchroom/internal/core/ports"
	"sketchroom/pkg/utils"

	"go.uber.org/zap"
)

const DefaultSendQueueSize = 256

type room struct {
	id      domain.WhiteboardID
	members map[domain.ConnectionID]*Conn
}

// Hub owns the room arena and the connection bindings. Rooms are created on
// first join and never removed; the arena is bounded by the whiteboards in use.
type Hub struct {
	mu    sync.Mutex
	rooms map[domain.WhiteboardID]*room
	conns map[domain.ConnectionID]*Conn

	authorizer ports.Authorizer
	queueSize  int
	recorder   Recorder
	logger     *zap.SugaredLogger
}

type JoinResult struct {
	RoomID  domain.WhiteboardID
	UserID  domain.UserID
	Members []domain.UserID
}

type Stats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
	Joined      int `json:"joined"`
}

func NewHub(authorizer ports.Authorizer, queueSize int, recorder Recorder, logger *zap.SugaredLogger) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultSendQueueSize
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Hub{
		rooms:      make(map[domain.WhiteboardID]*room),
		conns:      make(map[domain.ConnectionID]*Conn),
		authorizer: authorizer,
		queueSize:  queueSize,
		recorder:   recorder,
		logger:     logger,
	}
}

// Register binds a new connection to the identity established by the session gate.
func (h *Hub) Register(userID domain.UserID) *Conn {
	c := &Conn{
		ID:     domain.ConnectionID(utils.GenerateConnectionID()),
		UserID: userID,
		send:   make(chan []byte, h.queueSize),
	}

	h.mu.Lock()
	h.conns[c.ID] = c
	h.mu.Unlock()

	h.recorder.ConnectionOpened()
	h.logger.Debugw("connection registered", "conn_id", c.ID, "user_id", userID)
	return c
}

// Join admits the connection into roomID after checking the claimed identity
// and asking the authorizer. A connection is in at most one room, so joining
// another room leaves the current one.
func (h *Hub) Join(ctx context.Context, connID domain.ConnectionID, roomID domain.WhiteboardID, claimed domain.UserID) (*JoinResult, error) {
	h.mu.Lock()
	c, ok := h.conns[connID]
	if !ok || c.closed {
		h.mu.Unlock()
		return nil, domain.ErrConnectionClosed
	}
	if claimed != c.UserID {
		h.mu.Unlock()
		return nil, domain.ErrIdentityMismatch
	}
	userID := c.UserID
	h.mu.Unlock()

	// The authorizer may hit storage, so it runs without the lock.
	if err := h.authorizer.Authorize(ctx, userID, roomID); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// A disconnect that raced the authorization wins.
	if c, ok = h.conns[connID]; !ok || c.closed {
		return nil, domain.ErrConnectionClosed
	}

	if c.joined && c.room != roomID {
		h.leaveLocked(c)
	}

	r := h.rooms[roomID]
	if r == nil {
		r = &room{id: roomID, members: make(map[domain.ConnectionID]*Conn)}
		h.rooms[roomID] = r
	}

	alreadyIn := c.joined && c.room == roomID
	r.members[c.ID] = c
	c.room = roomID
	c.joined = true

	result := &JoinResult{RoomID: roomID, UserID: userID, Members: memberIDs(r)}

	if frame, err := Encode(EventJoined, JoinedPayload{RoomID: roomID, UserID: userID, Members: result.Members}); err == nil {
		if !h.pushLocked(c, frame) {
			h.disconnectLocked(c)
			h.recorder.SlowConsumerDisconnected()
			return nil, domain.ErrConnectionClosed
		}
	}

	if !alreadyIn {
		h.recorder.RoomJoined(len(h.rooms))
		if frame, err := Encode(EventUserJoined, PresencePayload{RoomID: roomID, UserID: userID}); err == nil {
			h.broadcastLocked(r, c, frame)
		}
		h.logger.Infow("connection joined room", "conn_id", connID, "room_id", roomID, "user_id", userID, "members", len(r.members))
	}

	return result, nil
}

// Relay fans an event out to every other member of the sender's room. Events
// from unknown or unjoined connections, or whose claimed user or room differ
// from the binding, are dropped.
func (h *Hub) Relay(connID domain.ConnectionID, env *Envelope) (int, error) {
	frame, err := Encode(env.Event, env.Payload)
	if err != nil {
		h.recorder.EventDropped(DropInvalid)
		return 0, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[connID]
	if !ok || c.closed {
		h.recorder.EventDropped(DropUnknownConnection)
		return 0, domain.ErrConnectionClosed
	}
	if !c.joined {
		h.recorder.EventDropped(DropNotJoined)
		return 0, domain.ErrNotJoined
	}
	if env.UserID != c.UserID {
		h.recorder.EventDropped(DropIdentityMismatch)
		return 0, domain.ErrIdentityMismatch
	}
	if env.RoomID != c.room {
		h.recorder.EventDropped(DropRoomMismatch)
		return 0, domain.ErrRoomMismatch
	}

	delivered := h.broadcastLocked(h.rooms[c.room], c, frame)
	h.recorder.EventRelayed(env.Kind(), delivered)
	return delivered, nil
}

// Send queues a frame for a single connection, used for error replies.
func (h *Hub) Send(connID domain.ConnectionID, frame []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[connID]
	if !ok || c.closed {
		return false
	}
	if !h.pushLocked(c, frame) {
		h.disconnectLocked(c)
		h.recorder.SlowConsumerDisconnected()
		return false
	}
	return true
}

// Dropped records an event the transport discarded before it reached Relay.
func (h *Hub) Dropped(reason string) {
	h.recorder.EventDropped(reason)
}

// Leave takes the connection out of its room but keeps it registered.
func (h *Hub) Leave(connID domain.ConnectionID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.conns[connID]; ok && c.joined {
		h.leaveLocked(c)
	}
}

// Disconnect removes every trace of the connection and closes its queue.
// Calling it again is a no-op.
func (h *Hub) Disconnect(connID domain.ConnectionID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.conns[connID]; ok {
		h.disconnectLocked(c)
	}
}

// DisconnectAll drops every connection, used on shutdown.
func (h *Hub) DisconnectAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.conns {
		h.disconnectLocked(c)
	}
}

func (h *Hub) RoomMembers(roomID domain.WhiteboardID) []domain.UserID {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.rooms[roomID]
	if r == nil {
		return nil
	}
	return memberIDs(r)
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := Stats{Connections: len(h.conns), Rooms: len(h.rooms)}
	for _, c := range h.conns {
		if c.joined {
			stats.Joined++
		}
	}
	return stats
}

func (h *Hub) leaveLocked(c *Conn) {
	r := h.rooms[c.room]
	roomID := c.room
	c.joined = false
	c.room = ""
	if r == nil {
		return
	}
	delete(r.members, c.ID)

	if frame, err := Encode(EventUserLeft, PresencePayload{RoomID: roomID, UserID: c.UserID}); err == nil {
		h.broadcastLocked(r, c, frame)
	}
	h.logger.Infow("connection left room", "conn_id", c.ID, "room_id", roomID, "user_id", c.UserID, "members", len(r.members))
}

func (h *Hub) disconnectLocked(c *Conn) {
	if c.closed {
		return
	}
	c.closed = true
	delete(h.conns, c.ID)
	if c.joined {
		h.leaveLocked(c)
	}
	close(c.send)

	h.recorder.ConnectionClosed()
	h.logger.Debugw("connection disconnected", "conn_id", c.ID, "user_id", c.UserID)
}

// broadcastLocked pushes frame to every member except sender. Members whose
// queue is full are disconnected after the fan-out.
func (h *Hub) broadcastLocked(r *room, sender *Conn, frame []byte) int {
	if r == nil {
		return 0
	}

	delivered := 0
	var slow []*Conn
	for _, m := range r.members {
		if m == sender {
			continue
		}
		if h.pushLocked(m, frame) {
			delivered++
		} else {
			slow = append(slow, m)
		}
	}

	for _, m := range slow {
		h.logger.Warnw("disconnecting slow consumer", "conn_id", m.ID, "room_id", r.id, "user_id", m.UserID)
		h.disconnectLocked(m)
		h.recorder.SlowConsumerDisconnected()
	}
	return delivered
}

func (h *Hub) pushLocked(c *Conn, frame []byte) bool {
	if c.closed {
		return true
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func memberIDs(r *room) []domain.UserID {
	seen := make(map[domain.UserID]struct{}, len(r.members))
	ids := make([]domain.UserID, 0, len(r.members))
	for _, m := range r.members {
		if _, dup := seen[m.UserID]; dup {
			continue
		}
		seen[m.UserID] = struct{}{}
		ids = append(ids, m.UserID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
