package messaging

import (
	"errors"
	"time"
	"unicode/utf8"
)

// Validation constants.
const (
	MaxBodyLength = 5000

	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Validation and permission errors.
var (
	ErrEmptyMessage     = errors.New("message needs a body or an attachment")
	ErrBodyTooLong      = errors.New("message body exceeds maximum length")
	ErrBodyInvalid      = errors.New("message body contains invalid characters")
	ErrPermissionDenied = errors.New("caller does not own this operation")
)

// Error codes carried in responses so transports can map rejections to the
// right status without string matching.
const (
	ErrCodeNotFound         = "not_found"
	ErrCodePermissionDenied = "permission_denied"
)

// ValidateContent checks a message body/attachment pair.
func ValidateContent(body, attachment string) error {
	if body == "" && attachment == "" {
		return ErrEmptyMessage
	}
	if len(body) > MaxBodyLength {
		return ErrBodyTooLong
	}
	if !utf8.ValidString(body) {
		return ErrBodyInvalid
	}
	return nil
}

// clampLimit normalizes a caller-supplied page size.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// SendDirectRequest asks to persist and push a direct message.
type SendDirectRequest struct {
	SenderID      string `json:"sender_id"`
	RecipientID   string `json:"recipient_id"`
	Body          string `json:"body,omitempty"`
	AttachmentURL string `json:"attachment_url,omitempty"`
}

// SendDirectResponse returns the persisted message.
type SendDirectResponse struct {
	Message DirectMessage `json:"message"`
}

// ConversationRequest pages through the caller's conversation with a peer.
type ConversationRequest struct {
	UserID string    `json:"user_id"`
	PeerID string    `json:"peer_id"`
	Limit  int       `json:"limit,omitempty"`
	Before time.Time `json:"before,omitempty"`
}

// ConversationResponse lists messages in creation order.
type ConversationResponse struct {
	Messages []DirectMessage `json:"messages"`
	Total    int             `json:"total"`
}

// MarkReadRequest marks one direct message read. UserID is the caller and
// must be the recipient.
type MarkReadRequest struct {
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
}

// MarkReadResponse reports the outcome; rejections travel as error codes.
type MarkReadResponse struct {
	Updated bool   `json:"updated"`
	Error   string `json:"error,omitempty"`
}

// MarkConversationReadRequest marks every unread message from a peer read.
type MarkConversationReadRequest struct {
	UserID string `json:"user_id"`
	PeerID string `json:"peer_id"`
}

// MarkConversationReadResponse reports how many rows were updated.
type MarkConversationReadResponse struct {
	Updated int64 `json:"updated"`
}

// UnreadCountRequest asks for the caller's unread message count.
type UnreadCountRequest struct {
	UserID string `json:"user_id"`
}

// UnreadCountResponse carries the count.
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// DeleteDirectRequest deletes a direct message. UserID must be the sender.
type DeleteDirectRequest struct {
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
}

// DeleteDirectResponse reports the outcome.
type DeleteDirectResponse struct {
	Deleted bool   `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// SendGroupRequest asks to persist and push a group chat message.
type SendGroupRequest struct {
	SenderID string `json:"sender_id"`
	Body     string `json:"body,omitempty"`
	AudioURL string `json:"audio_url,omitempty"`
}

// SendGroupResponse returns the persisted message.
type SendGroupResponse struct {
	Message ChatMessage `json:"message"`
}

// HistoryRequest pages the group chat, most recent first.
type HistoryRequest struct {
	Limit int `json:"limit,omitempty"`
}

// HistoryResponse lists group messages in creation order.
type HistoryResponse struct {
	Messages []ChatMessage `json:"messages"`
	Total    int           `json:"total"`
}

// MarkSeenRequest appends the caller to the seen-by set of each message.
type MarkSeenRequest struct {
	MessageIDs []string `json:"message_ids"`
	UserID     string   `json:"user_id"`
}

// MarkSeenResponse reports how many messages were updated. Already-seen
// and unknown ids are skipped silently.
type MarkSeenResponse struct {
	Marked int `json:"marked"`
}

// DeleteGroupRequest deletes a group message. UserID must be the sender.
type DeleteGroupRequest struct {
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
}

// DeleteGroupResponse reports the outcome.
type DeleteGroupResponse struct {
	Deleted bool   `json:"deleted"`
	Error   string `json:"error,omitempty"`
}
