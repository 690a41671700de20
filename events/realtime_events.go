package events

import (
	"encoding/json"
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// PresenceChangedEvent is emitted when a user transitions between online and
// offline. One event per transition, never per connection.
type PresenceChangedEvent struct {
	UserID     string    `json:"user_id"`
	IsOnline   bool      `json:"is_online"`
	LastActive time.Time `json:"last_active"`
}

// DirectMessageSentEvent is emitted after a direct message has been persisted.
type DirectMessageSentEvent struct {
	MessageID     string    `json:"message_id"`
	SenderID      string    `json:"sender_id"`
	RecipientID   string    `json:"recipient_id"`
	Body          string    `json:"body,omitempty"`
	AttachmentURL string    `json:"attachment_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// GroupMessageSentEvent is emitted after a group chat message has been persisted.
type GroupMessageSentEvent struct {
	MessageID string    `json:"message_id"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body,omitempty"`
	AudioURL  string    `json:"audio_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationCreatedEvent is emitted after a notification has been persisted.
// Kind and payload are opaque to the transport.
type NotificationCreatedEvent struct {
	NotificationID string          `json:"notification_id"`
	RecipientID    string          `json:"recipient_id"`
	SenderID       string          `json:"sender_id,omitempty"`
	Kind           string          `json:"kind"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// TopicTickEvent carries an opaque payload from an external poller to a
// shared topic room. Never persisted.
type TopicTickEvent struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Event definitions for the realtime hub.
var (
	PresenceChangedV1 = helper.EventDefinition[PresenceChangedEvent](
		"presence",
		"PresenceChanged",
		"v1",
	)

	DirectMessageSentV1 = helper.EventDefinition[DirectMessageSentEvent](
		"messaging",
		"DirectMessageSent",
		"v1",
	)

	GroupMessageSentV1 = helper.EventDefinition[GroupMessageSentEvent](
		"messaging",
		"GroupMessageSent",
		"v1",
	)

	NotificationCreatedV1 = helper.EventDefinition[NotificationCreatedEvent](
		"notify",
		"NotificationCreated",
		"v1",
	)

	TopicTickV1 = helper.EventDefinition[TopicTickEvent](
		"relay",
		"TopicTick",
		"v1",
	)
)
