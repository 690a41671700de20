package messaging

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// UserSet is a set of user ids stored as a JSON array. Adding a member is
// idempotent and order carries no meaning.
type UserSet map[string]struct{}

// Contains reports set membership.
func (s UserSet) Contains(userID string) bool {
	_, ok := s[userID]
	return ok
}

// Add inserts a member. Adding an existing member is a no-op.
func (s *UserSet) Add(userID string) {
	if *s == nil {
		*s = make(UserSet)
	}
	(*s)[userID] = struct{}{}
}

// MarshalJSON encodes the set as a sorted array for stable output.
func (s UserSet) MarshalJSON() ([]byte, error) {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return json.Marshal(ids)
}

// UnmarshalJSON decodes a JSON array into the set.
func (s *UserSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = make(UserSet, len(ids))
	for _, id := range ids {
		(*s)[id] = struct{}{}
	}
	return nil
}

// Value implements driver.Valuer for GORM.
func (s UserSet) Value() (driver.Value, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for GORM.
func (s *UserSet) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = make(UserSet)
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported seen_by column type %T", src)
	}
}

// DirectMessage is a durable one-to-one message. Only the recipient flips
// IsRead; only the sender may delete it.
type DirectMessage struct {
	ID            string    `gorm:"primarykey;size:36" json:"id"`
	SenderID      string    `gorm:"size:36;index;not null" json:"sender_id"`
	RecipientID   string    `gorm:"size:36;index;not null" json:"recipient_id"`
	Body          string    `gorm:"size:5000" json:"body,omitempty"`
	AttachmentURL string    `gorm:"size:512" json:"attachment_url,omitempty"`
	IsRead        bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

// TableName returns the table name for DirectMessage.
func (DirectMessage) TableName() string {
	return "direct_messages"
}

// ChatMessage is a durable broadcast message in the global chat. SeenBy is
// appended by explicit client acknowledgement, never inferred from
// delivery.
type ChatMessage struct {
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	SenderID  string    `gorm:"size:36;index;not null" json:"sender_id"`
	Body      string    `gorm:"size:5000" json:"body,omitempty"`
	AudioURL  string    `gorm:"size:512" json:"audio_url,omitempty"`
	SeenBy    UserSet   `gorm:"type:text" json:"seen_by"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName returns the table name for ChatMessage.
func (ChatMessage) TableName() string {
	return "chat_messages"
}
