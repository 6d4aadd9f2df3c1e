package session

import (
	"errors"

	"github.com/basekick-labs/linkview/internal/view"
)

// EventType names one kind of interaction.
type EventType string

const (
	EventBrush2D   EventType = "brush2d"
	EventBrushAxis EventType = "brush_axis"
	EventClick     EventType = "click"
	EventHover     EventType = "hover"
	EventLeave     EventType = "leave"
	EventSelection EventType = "selection"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrTooManySessions = errors.New("too many sessions")
	ErrUnknownEvent    = errors.New("unknown event type")
	ErrInvalidEvent    = errors.New("invalid event")
)

// Event is one interaction delivered to a workspace. Which fields are read
// depends on Type:
//
//	brush2d     Rect (nil retracts the scatter brush)
//	brush_axis  Dimension, Span (nil retracts that axis)
//	click       ID, Modifier
//	hover       ID
//	leave       -
//	selection   Payload, a loosely typed id list
type Event struct {
	Type      EventType  `json:"type" msgpack:"type"`
	Rect      *view.Rect `json:"rect,omitempty" msgpack:"rect,omitempty"`
	Dimension string     `json:"dimension,omitempty" msgpack:"dimension,omitempty"`
	Span      *view.Span `json:"span,omitempty" msgpack:"span,omitempty"`
	ID        *int       `json:"id,omitempty" msgpack:"id,omitempty"`
	Modifier  bool       `json:"modifier,omitempty" msgpack:"modifier,omitempty"`
	Payload   any        `json:"payload,omitempty" msgpack:"payload,omitempty"`
}

// Result is what one event changed.
type Result struct {
	Selected []int      `json:"selected"`
	Scatter  view.Delta `json:"scatter"`
	Parallel view.Delta `json:"parallel"`
}
