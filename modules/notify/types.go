package notify

import (
	"encoding/json"
	"errors"
)

// Pagination limits.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// MaxKindLength caps the notification kind discriminator.
const MaxKindLength = 64

// Validation errors.
var (
	ErrEmptyRecipient = errors.New("notification needs a recipient")
	ErrEmptyKind      = errors.New("notification needs a kind")
	ErrKindTooLong    = errors.New("notification kind exceeds maximum length")
)

// Error codes carried in responses.
const (
	ErrCodeNotFound         = "not_found"
	ErrCodePermissionDenied = "permission_denied"
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// CreateRequest asks to persist and push a notification. Kind and payload
// are passed through untouched.
type CreateRequest struct {
	RecipientID string          `json:"recipient_id"`
	SenderID    string          `json:"sender_id,omitempty"`
	Kind        string          `json:"kind"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// CreateResponse returns the persisted notification.
type CreateResponse struct {
	Notification Notification `json:"notification"`
}

// ListRequest pages the caller's notifications, newest first.
type ListRequest struct {
	UserID     string `json:"user_id"`
	Limit      int    `json:"limit,omitempty"`
	UnreadOnly bool   `json:"unread_only,omitempty"`
}

// ListResponse lists notifications with the caller's unread total.
type ListResponse struct {
	Notifications []Notification `json:"notifications"`
	Total         int            `json:"total"`
	UnreadCount   int64          `json:"unread_count"`
}

// MarkReadRequest marks one notification read. UserID is the caller and
// must be the recipient.
type MarkReadRequest struct {
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
}

// MarkReadResponse reports the outcome; rejections travel as error codes.
type MarkReadResponse struct {
	Updated bool   `json:"updated"`
	Error   string `json:"error,omitempty"`
}

// MarkAllReadRequest marks every unread notification for the caller read.
type MarkAllReadRequest struct {
	UserID string `json:"user_id"`
}

// MarkAllReadResponse reports how many rows were updated.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
