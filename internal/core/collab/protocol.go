package collab

import (
	"encoding/json"
	"fmt"

	"sketchroom/internal/core/domain"
)

// Client to server events.
const (
	EventJoinRoom   = "join-room"
	EventLeaveRoom  = "leave-room"
	EventDraw       = "draw"
	EventCursorMove = "cursor-move"
	EventImage      = "image"
)

// Server to client events. draw, cursor-move and image are relayed under the
// same names.
const (
	EventJoined     = "joined"
	EventUserJoined = "user-joined"
	EventUserLeft   = "user-left"
	EventError      = "error"
)

// Message is the frame envelope in both directions.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinRoomRequest struct {
	RoomID domain.WhiteboardID `json:"roomId"`
	UserID domain.UserID       `json:"userId"`
}

type JoinedPayload struct {
	RoomID  domain.WhiteboardID `json:"roomId"`
	UserID  domain.UserID       `json:"userId"`
	Members []domain.UserID     `json:"members"`
}

type PresencePayload struct {
	RoomID domain.WhiteboardID `json:"roomId"`
	UserID domain.UserID       `json:"userId"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Encode builds a text frame for event with data as its payload.
func Encode(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	frame, err := json.Marshal(Message{Event: event, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", event, err)
	}
	return frame, nil
}

func Decode(frame []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, fmt.Errorf("%w: malformed frame: %v", domain.ErrInvalidEvent, err)
	}
	if msg.Event == "" {
		return nil, fmt.Errorf("%w: missing event name", domain.ErrInvalidEvent)
	}
	return &msg, nil
}

// DecodeData unmarshals the payload of msg into v.
func DecodeData(msg *Message, v interface{}) error {
	if len(msg.Data) == 0 {
		return fmt.Errorf("%w: %s has no data", domain.ErrInvalidEvent, msg.Event)
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidEvent, msg.Event, err)
	}
	return nil
}

// Envelope is an inbound event ready for relay. RoomID and UserID are what
// the client claimed; the hub checks both against the binding.
type Envelope struct {
	Event   string
	RoomID  domain.WhiteboardID
	UserID  domain.UserID
	Payload interface{}
}

// Kind labels the envelope in metrics. Eraser strokes are counted apart from
// pencil and text draws.
func (e *Envelope) Kind() string {
	if d, ok := e.Payload.(*domain.DrawEvent); ok && d.IsEraser() {
		return "erase"
	}
	return e.Event
}

// ParseEnvelope decodes and validates a relayable event.
func ParseEnvelope(msg *Message) (*Envelope, error) {
	switch msg.Event {
	case EventDraw:
		var e domain.DrawEvent
		if err := DecodeData(msg, &e); err != nil {
			return nil, err
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		return &Envelope{Event: msg.Event, RoomID: e.RoomID, UserID: e.UserID, Payload: &e}, nil
	case EventCursorMove:
		var e domain.CursorEvent
		if err := DecodeData(msg, &e); err != nil {
			return nil, err
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		return &Envelope{Event: msg.Event, RoomID: e.RoomID, UserID: e.UserID, Payload: &e}, nil
	case EventImage:
		var e domain.ImageEvent
		if err := DecodeData(msg, &e); err != nil {
			return nil, err
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		return &Envelope{Event: msg.Event, RoomID: e.RoomID, UserID: e.UserID, Payload: &e}, nil
	default:
		return nil, fmt.Errorf("%w: unknown event %q", domain.ErrInvalidEvent, msg.Event)
	}
}
