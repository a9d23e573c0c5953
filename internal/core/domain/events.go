package domain

import (
	"encoding/json"
	"fmt"

	"sketchroom/pkg/validation"
)

// ConnectionID is assigned by the server to each live socket.
type ConnectionID string

type Tool string

const (
	ToolPencil Tool = "pencil"
	ToolEraser Tool = "eraser"
	ToolText   Tool = "text"
)

// DrawEvent is either a line segment (pencil or eraser) or a text placement.
// Clients may omit the tool: a non-empty text means a text placement, anything
// else is a pencil segment.
type DrawEvent struct {
	RoomID    WhiteboardID `json:"roomId"`
	UserID    UserID       `json:"userId"`
	Tool      Tool         `json:"tool"`
	X0        float64      `json:"x0"`
	Y0        float64      `json:"y0"`
	X1        float64      `json:"x1"`
	Y1        float64      `json:"y1"`
	LineWidth float64      `json:"lineWidth"`
	Text      string       `json:"text"`
	X         float64      `json:"x"`
	Y         float64      `json:"y"`
	TextSize  float64      `json:"textSize"`
	Color     string       `json:"color"`
}

type segmentWire struct {
	RoomID    WhiteboardID `json:"roomId"`
	UserID    UserID       `json:"userId"`
	Tool      Tool         `json:"tool"`
	X0        float64      `json:"x0"`
	Y0        float64      `json:"y0"`
	X1        float64      `json:"x1"`
	Y1        float64      `json:"y1"`
	LineWidth float64      `json:"lineWidth"`
	Color     string       `json:"color"`
}

type textWire struct {
	RoomID   WhiteboardID `json:"roomId"`
	UserID   UserID       `json:"userId"`
	Tool     Tool         `json:"tool"`
	Text     string       `json:"text"`
	X        float64      `json:"x"`
	Y        float64      `json:"y"`
	TextSize float64      `json:"textSize"`
	Color    string       `json:"color"`
}

// MarshalJSON always writes the full field set of the event's shape, zero
// coordinates included.
func (e DrawEvent) MarshalJSON() ([]byte, error) {
	if e.shape() == ToolText {
		return json.Marshal(textWire{
			RoomID: e.RoomID, UserID: e.UserID, Tool: ToolText,
			Text: e.Text, X: e.X, Y: e.Y, TextSize: e.TextSize, Color: e.Color,
		})
	}
	return json.Marshal(segmentWire{
		RoomID: e.RoomID, UserID: e.UserID, Tool: e.shape(),
		X0: e.X0, Y0: e.Y0, X1: e.X1, Y1: e.Y1, LineWidth: e.LineWidth, Color: e.Color,
	})
}

// shape resolves the effective tool for events sent without one.
func (e *DrawEvent) shape() Tool {
	if e.Tool != "" {
		return e.Tool
	}
	if e.Text != "" {
		return ToolText
	}
	return ToolPencil
}

func (e *DrawEvent) IsEraser() bool {
	return e.Tool == ToolEraser
}

// Validate checks the event and fills in the tool when the client left it out.
func (e *DrawEvent) Validate() error {
	if e.RoomID == "" || e.UserID == "" {
		return fmt.Errorf("%w: roomId and userId are required", ErrInvalidEvent)
	}
	if err := validation.ValidateColor(e.Color); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	switch e.shape() {
	case ToolPencil, ToolEraser:
		if e.Text != "" {
			return fmt.Errorf("%w: line segment cannot carry text", ErrInvalidEvent)
		}
		if e.LineWidth < 0 {
			return fmt.Errorf("%w: negative line width", ErrInvalidEvent)
		}
	case ToolText:
		if err := validation.ValidateText(e.Text); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		if e.TextSize < 0 {
			return fmt.Errorf("%w: negative text size", ErrInvalidEvent)
		}
	default:
		return fmt.Errorf("%w: unknown tool %q", ErrInvalidEvent, e.Tool)
	}
	e.Tool = e.shape()
	return nil
}

type CursorEvent struct {
	RoomID WhiteboardID `json:"roomId"`
	UserID UserID       `json:"userId"`
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
}

func (e *CursorEvent) Validate() error {
	if e.RoomID == "" || e.UserID == "" {
		return fmt.Errorf("%w: roomId and userId are required", ErrInvalidEvent)
	}
	return nil
}

// ImageEvent carries an image pasted onto the canvas. It is relayed, never stored.
type ImageEvent struct {
	RoomID  WhiteboardID `json:"roomId"`
	UserID  UserID       `json:"userId"`
	DataURL string       `json:"dataUrl"`
}

func (e *ImageEvent) Validate() error {
	if e.RoomID == "" || e.UserID == "" {
		return fmt.Errorf("%w: roomId and userId are required", ErrInvalidEvent)
	}
	if err := validation.ValidateImageDataURL(e.DataURL); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return nil
}
