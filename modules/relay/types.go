package relay

import (
	"encoding/json"
	"errors"
)

// Validation errors.
var (
	ErrEmptyTopic   = errors.New("tick needs a topic")
	ErrEmptyEvent   = errors.New("tick needs an event name")
	ErrUnknownTopic = errors.New("topic is not a known topic room")
)

// TickRequest pushes an opaque update to a topic room. Event is the wire
// event name the subscribers receive; the payload is forwarded verbatim.
type TickRequest struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TickResponse acknowledges the publish.
type TickResponse struct {
	Accepted bool `json:"accepted"`
}
